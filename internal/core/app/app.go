// Package app builds the ingestion services from configuration and connects
// the pipeline to the file tree, the records store and watch mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"unpack/internal/core/config"
	"unpack/internal/core/errors"
	"unpack/internal/core/pipeline"
	"unpack/internal/core/ports"
	"unpack/internal/core/tree"
	"unpack/internal/core/watcher"
	"unpack/internal/data/records"
	"unpack/internal/engine/fingerprint"
	"unpack/internal/engine/loader"
	"unpack/internal/engine/semantic"
	"unpack/internal/engine/structure"
	"unpack/internal/engine/validate"
	"unpack/internal/shared/observability"
	"unpack/internal/shared/util"
)

// Update is emitted after every completed ingestion or edit sync.
type Update struct {
	Trigger string // "ingest", "edit" or "rescan"
	Result  pipeline.Result
	BatchID int64
	Edited  []string
}

// Options override services that are otherwise built from config.
type Options struct {
	Oracle semantic.Oracle
	Clock  ports.Clock
	IDs    ports.IDProvider
	Store  ports.RecordStore
}

type App struct {
	Config *config.Config
	Tree   *tree.Store

	pipeline  *pipeline.Pipeline
	validator ports.CandidateValidator
	loader    *loader.Loader
	records   ports.RecordStore
	cache     *semantic.CachedAnalyzer
	oracle    string

	roots   []string
	scanMu  sync.Mutex
	sources map[string]string // absolute disk path -> candidate name

	updateMu sync.RWMutex
	onUpdate func(Update)

	activeWatcher *watcher.Watcher
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}

	a := &App{
		Config:  cfg,
		Tree:    tree.NewStore(),
		sources: make(map[string]string),
	}

	a.records = opts.Store
	if a.records == nil && cfg.Records.Enabled {
		store, err := records.Open(cfg.Records.Path)
		if err != nil {
			if records.IsCorruptError(err) {
				return nil, fmt.Errorf("records store %s is corrupt; move it aside to start fresh: %w", cfg.Records.Path, err)
			}
			return nil, fmt.Errorf("open records store: %w", err)
		}
		a.records = store
	}

	a.validator = validate.New(cfg.Ingest.MaxFileBytes, cfg.Ingest.AllowedExtensions)
	a.loader = loader.New(loader.Options{
		MaxAttempts:    cfg.Loader.MaxAttempts,
		AttemptTimeout: cfg.Loader.AttemptTimeout,
		Backoff:        cfg.Loader.Backoff,
	})
	fp := fingerprint.SHA256{}

	var semanticStage ports.SemanticAnalyzer
	if cfg.Oracle.IsEnabled() {
		oracle := opts.Oracle
		if oracle == nil {
			built, err := buildOracle(ctx, cfg.Oracle)
			if err != nil {
				a.Close()
				return nil, err
			}
			oracle = built
		}
		if oracle != nil {
			a.oracle = oracle.Name()
			wrapped := semantic.Wrap(oracle,
				semantic.RateLimited(util.NewLimiter(cfg.Oracle.RPS, cfg.Oracle.Burst)),
				semantic.WithTimeout(cfg.Oracle.Timeout),
				semantic.Logged(),
				semantic.Instrumented(),
			)

			var lookup ports.SemanticLookup
			if a.records != nil && cfg.Records.ReuseSemanticEnabled() {
				lookup = a.records
			}
			cache, err := semantic.NewCachedAnalyzer(semantic.NewClient(wrapped), fp, cfg.Oracle.CacheEntries, lookup)
			if err != nil {
				a.Close()
				return nil, fmt.Errorf("build semantic cache: %w", err)
			}
			a.cache = cache
			semanticStage = cache
		}
	}

	ids := opts.IDs
	if ids == nil {
		ids = idProvider(cfg.Ingest.IDStrategy)
	}

	p, err := pipeline.New(pipeline.Deps{
		Validator:     a.validator,
		Loader:        a.loader,
		Fingerprinter: fp,
		Structure:     structure.New(cfg.Structure.FrameworkTokens),
		Semantic:      semanticStage,
		Clock:         opts.Clock,
		IDs:           ids,
	}, pipeline.Options{
		Concurrency:      cfg.Ingest.Concurrency,
		SourceExtensions: cfg.Ingest.SourceExtensions,
		FailurePolicy:    pipeline.FailurePolicy(cfg.Oracle.FailurePolicy),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pipeline = p
	return a, nil
}

// buildOracle returns nil without error when the Gemini key is missing, which
// leaves semantic analysis off for the session.
func buildOracle(ctx context.Context, cfg config.Oracle) (semantic.Oracle, error) {
	switch cfg.Provider {
	case "fake":
		return &semantic.FakeOracle{}, nil
	case "gemini":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			slog.Warn("semantic analysis disabled: API key not set", "env", cfg.APIKeyEnv)
			return nil, nil
		}
		oracle, err := semantic.NewGeminiOracle(ctx, key, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return oracle, nil
	default:
		return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("unknown oracle provider %q", cfg.Provider))
	}
}

func idProvider(strategy string) ports.IDProvider {
	if strategy == "fingerprint" {
		return util.FingerprintIDProvider{}
	}
	return util.UUIDProvider{}
}

func (a *App) SetUpdateHandler(handler func(Update)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

func (a *App) emitUpdate(update Update) {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler != nil {
		handler(update)
	}
}

// OracleName reports the active oracle, or "" when semantic analysis is off.
func (a *App) OracleName() string {
	return a.oracle
}

func (a *App) Close() error {
	var firstErr error
	if a.activeWatcher != nil {
		if err := a.activeWatcher.Close(); err != nil {
			firstErr = err
		}
		a.activeWatcher = nil
	}
	if a.records != nil {
		if err := a.records.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.records = nil
	}
	return firstErr
}

func (a *App) recordBatch(ctx context.Context, res pipeline.Result) int64 {
	if a.records == nil {
		return 0
	}
	summary := ports.BatchSummary{
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Submitted:  res.Submitted,
		Succeeded:  len(res.Files),
		Failed:     len(res.Failures),
		Outcome:    string(res.Outcome()),
	}
	id, err := a.records.SaveBatch(ctx, summary, res.Files)
	if err != nil {
		slog.Warn("failed to persist batch", "error", err)
		return 0
	}
	observability.RecordsSavedTotal.Add(float64(len(res.Files)))
	return id
}
