// Package pipeline runs the per-file ingestion stages concurrently and
// reassembles the survivors in submission order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"unpack/internal/core/errors"
	"unpack/internal/core/model"
	"unpack/internal/core/ports"
	"unpack/internal/shared/observability"
	"unpack/internal/shared/util"
)

type FailurePolicy string

const (
	// KeepOnOracleFailure admits the file without a semantic result.
	KeepOnOracleFailure FailurePolicy = "keep"
	// DropOnOracleFailure treats an oracle failure like any other stage failure.
	DropOnOracleFailure FailurePolicy = "drop"
)

// Deps are the services the pipeline composes. Semantic and Structure may be
// nil to skip those stages.
type Deps struct {
	Validator     ports.CandidateValidator
	Loader        ports.ContentLoader
	Fingerprinter ports.Fingerprinter
	Structure     ports.StructuralAnalyzer
	Semantic      ports.SemanticAnalyzer
	Clock         ports.Clock
	IDs           ports.IDProvider
}

type Options struct {
	Concurrency      int
	SourceExtensions []string
	FailurePolicy    FailurePolicy
}

type Pipeline struct {
	deps    Deps
	opts    Options
	sources map[string]bool
}

func New(deps Deps, opts Options) (*Pipeline, error) {
	if deps.Validator == nil || deps.Loader == nil || deps.Fingerprinter == nil {
		return nil, errors.New(errors.CodeValidationError, "pipeline requires a validator, a loader and a fingerprinter")
	}
	if deps.Clock == nil {
		deps.Clock = util.SystemClock{}
	}
	if deps.IDs == nil {
		deps.IDs = util.UUIDProvider{}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	switch opts.FailurePolicy {
	case "":
		opts.FailurePolicy = KeepOnOracleFailure
	case KeepOnOracleFailure, DropOnOracleFailure:
	default:
		return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("unknown failure policy %q", opts.FailurePolicy))
	}

	sources := make(map[string]bool, len(opts.SourceExtensions))
	for _, ext := range opts.SourceExtensions {
		sources[ext] = true
	}
	return &Pipeline{deps: deps, opts: opts, sources: sources}, nil
}

// outcome of one candidate; exactly one of file or failure is set.
type slot struct {
	file    *model.ProcessedFile
	failure *Failure
	warning *Warning
}

// Ingest never fails as a whole. Per-candidate failures are recorded in the
// result and do not affect the other candidates.
func (p *Pipeline) Ingest(ctx context.Context, candidates []model.Candidate) Result {
	ctx, span := observability.Tracer.Start(ctx, "pipeline.Ingest",
		trace.WithAttributes(attribute.Int("candidates", len(candidates))))
	defer span.End()

	start := time.Now()
	res := Result{Submitted: len(candidates), StartedAt: p.deps.Clock.Now()}

	slots := make([]slot, len(candidates))
	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			slots[i] = p.process(ctx, i, c)
			return nil
		})
	}
	_ = g.Wait()

	res.Files = make([]model.ProcessedFile, 0, len(candidates))
	for _, s := range slots {
		if s.warning != nil {
			res.Warnings = append(res.Warnings, *s.warning)
		}
		if s.failure != nil {
			res.Failures = append(res.Failures, *s.failure)
			observability.CandidatesTotal.WithLabelValues(string(s.failure.Class)).Inc()
			continue
		}
		res.Files = append(res.Files, *s.file)
		observability.CandidatesTotal.WithLabelValues("ok").Inc()
	}
	res.FinishedAt = p.deps.Clock.Now()
	observability.BatchDuration.Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.Int("succeeded", len(res.Files)),
		attribute.Int("failed", len(res.Failures)),
		attribute.String("outcome", string(res.Outcome())),
	)
	slog.Info("ingestion finished",
		"submitted", res.Submitted,
		"succeeded", len(res.Files),
		"failed", len(res.Failures),
		"warnings", len(res.Warnings),
		"outcome", res.Outcome(),
	)
	return res
}

func (p *Pipeline) process(ctx context.Context, idx int, c model.Candidate) slot {
	ctx, span := observability.Tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.String("file.name", c.Name), attribute.Int64("file.size", c.Size)))
	defer span.End()

	fail := func(stage string, err error) slot {
		class := errors.ClassOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		slog.Warn("candidate dropped", "path", c.Name, "stage", stage, "class", class, "error", err)
		return slot{failure: &Failure{Index: idx, Name: c.Name, Class: class, Err: err}}
	}

	stageStart := time.Now()
	if err := p.deps.Validator.Validate(c); err != nil {
		return fail("validate", err)
	}
	observeStage("validate", stageStart)

	stageStart = time.Now()
	text, err := p.deps.Loader.Load(ctx, c)
	observeStage("load", stageStart)
	if err != nil {
		return fail("load", err)
	}

	var (
		hash      string
		structure *model.StructuralResult
		semantic  *model.SemanticResult
		semErr    error
		g         errgroup.Group
	)
	g.Go(func() error {
		defer observeStage("hash", time.Now())
		hash = p.deps.Fingerprinter.Compute(text)
		return nil
	})
	if p.deps.Structure != nil && p.sources[c.Extension()] {
		g.Go(func() error {
			defer observeStage("structure", time.Now())
			res := analyzeStructure(p.deps.Structure, text)
			structure = &res
			return nil
		})
	}
	if p.deps.Semantic != nil && text != "" {
		g.Go(func() error {
			defer observeStage("semantic", time.Now())
			res, err := p.deps.Semantic.Analyze(ctx, text, c.Name)
			if err != nil {
				semErr = err
				return nil
			}
			semantic = &res
			return nil
		})
	}
	_ = g.Wait()

	var warning *Warning
	if semErr != nil {
		if p.opts.FailurePolicy == DropOnOracleFailure {
			return fail("semantic", semErr)
		}
		slog.Warn("semantic analysis unavailable, keeping file", "path", c.Name, "error", semErr)
		warning = &Warning{Index: idx, Name: c.Name, Class: errors.ClassOf(semErr), Err: semErr}
	}

	file := model.ProcessedFile{
		ID:           p.deps.IDs.NewID(hash),
		Name:         c.Name,
		Content:      text,
		DeclaredType: c.DeclaredType,
		Size:         int64(len(text)),
		Hash:         hash,
		CreatedAt:    p.deps.Clock.Now(),
		Structure:    structure,
		Semantic:     semantic,
	}
	return slot{file: &file, warning: warning}
}

// analyzeStructure contains panics from analyzers that do not recover
// themselves.
func analyzeStructure(a ports.StructuralAnalyzer, text string) (res model.StructuralResult) {
	defer func() {
		if r := recover(); r != nil {
			res = model.FailedStructure(fmt.Sprintf("analysis panicked: %v", r))
		}
	}()
	return a.Analyze(text)
}

func observeStage(stage string, start time.Time) {
	observability.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
