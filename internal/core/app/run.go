package app

import (
	"context"
	"log/slog"

	"unpack/internal/core/pipeline"
)

// Run ingests paths as one batch and replaces the tree with the survivors.
// The pipeline result is returned even when loading the tree fails.
func (a *App) Run(ctx context.Context, paths []string) (pipeline.Result, error) {
	a.scanMu.Lock()
	a.roots = append([]string(nil), paths...)
	a.scanMu.Unlock()
	return a.ingest(ctx, "ingest")
}

func (a *App) ingest(ctx context.Context, trigger string) (pipeline.Result, error) {
	a.scanMu.Lock()
	defer a.scanMu.Unlock()

	candidates, sources, err := a.CollectCandidates(a.roots)
	if err != nil {
		return pipeline.Result{}, err
	}

	res := a.pipeline.Ingest(ctx, candidates)
	if err := a.Tree.ReplaceAll(res.Files); err != nil {
		slog.Error("failed to load files into tree", "error", err)
		return res, err
	}
	a.sources = sources

	batchID := a.recordBatch(ctx, res)
	a.emitUpdate(Update{Trigger: trigger, Result: res, BatchID: batchID})
	return res, nil
}
