package pipeline

import (
	"time"

	"unpack/internal/core/errors"
	"unpack/internal/core/model"
)

type Outcome string

const (
	OutcomeEmpty    Outcome = "empty"    // nothing submitted
	OutcomeComplete Outcome = "complete" // every candidate succeeded
	OutcomePartial  Outcome = "partial"
	OutcomeNone     Outcome = "none" // zero successes
)

// Failure records a candidate dropped from the batch.
type Failure struct {
	Index int
	Name  string
	Class errors.Class
	Err   error
}

// Warning records a degraded but admitted file, e.g. a failed oracle call
// under the keep policy.
type Warning struct {
	Index int
	Name  string
	Class errors.Class
	Err   error
}

// Result is the value handed from the pipeline to its consumers. Files keep
// the submission order of the candidates that succeeded.
type Result struct {
	Submitted  int
	Files      []model.ProcessedFile
	Failures   []Failure
	Warnings   []Warning
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r Result) Outcome() Outcome {
	switch {
	case r.Submitted == 0:
		return OutcomeEmpty
	case len(r.Files) == 0:
		return OutcomeNone
	case len(r.Failures) == 0:
		return OutcomeComplete
	default:
		return OutcomePartial
	}
}

// FailureCounts groups failures by class.
func (r Result) FailureCounts() map[errors.Class]int {
	counts := make(map[errors.Class]int)
	for _, f := range r.Failures {
		counts[f.Class]++
	}
	return counts
}
