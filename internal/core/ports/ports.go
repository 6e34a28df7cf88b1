package ports

import (
	"context"
	"time"

	"unpack/internal/core/model"
)

// CandidateValidator admits or rejects a candidate before any I/O.
type CandidateValidator interface {
	Validate(c model.Candidate) error
}

// ContentLoader acquires the text of an admitted candidate.
type ContentLoader interface {
	Load(ctx context.Context, c model.Candidate) (string, error)
}

// Fingerprinter derives a deterministic digest from loaded text.
type Fingerprinter interface {
	Compute(text string) string
}

// StructuralAnalyzer extracts declared names. It must never panic.
type StructuralAnalyzer interface {
	Analyze(text string) model.StructuralResult
}

// SemanticAnalyzer asks the external oracle for an assessment of one file.
type SemanticAnalyzer interface {
	Analyze(ctx context.Context, text, filename string) (model.SemanticResult, error)
}

// SemanticLookup returns a previously stored assessment for identical content.
type SemanticLookup interface {
	LookupSemantic(ctx context.Context, hash, name string) (model.SemanticResult, bool, error)
}

// Clock isolates "now" so tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

// IDProvider issues identifiers for processed files. hash is the content
// fingerprint; random providers ignore it.
type IDProvider interface {
	NewID(hash string) string
}

// BatchSummary describes one completed ingestion for persistence.
type BatchSummary struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Submitted  int
	Succeeded  int
	Failed     int
	Outcome    string
}

// RecordStore persists batches of processed files.
type RecordStore interface {
	SaveBatch(ctx context.Context, summary BatchSummary, files []model.ProcessedFile) (int64, error)
	SemanticLookup
	Close() error
}

// HealthReporter is implemented by components that expose a health line.
type HealthReporter interface {
	Health(ctx context.Context) (status string, detail string)
}
