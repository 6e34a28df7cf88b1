package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"unpack/internal/core/model"
	"unpack/internal/core/watcher"
	"unpack/internal/shared/util"
)

// StartWatcher keeps the tree in sync with the submitted paths. Edits to
// tracked files are pushed through the tree's edit sync; anything that adds
// or removes files triggers a full re-ingest.
func (a *App) StartWatcher(ctx context.Context) error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Scan.ExcludeDirs,
		a.Config.Scan.ExcludeFiles,
		func(paths []string) { a.HandleChanges(ctx, paths) },
	)
	if err != nil {
		return err
	}
	w.SetExtensions(a.Config.Ingest.AllowedExtensions)

	if err := w.Watch(a.watchDirs()); err != nil {
		_ = w.Close()
		return err
	}
	a.activeWatcher = w
	return nil
}

func (a *App) watchDirs() []string {
	a.scanMu.Lock()
	defer a.scanMu.Unlock()

	seen := make(map[string]bool, len(a.roots))
	dirs := make([]string, 0, len(a.roots))
	for _, root := range a.roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			abs = filepath.Dir(abs)
		}
		if !seen[abs] {
			seen[abs] = true
			dirs = append(dirs, abs)
		}
	}
	sort.Strings(dirs)
	return dirs
}

func (a *App) HandleChanges(ctx context.Context, paths []string) {
	a.scanMu.Lock()
	sources := a.sources
	roots := append([]string(nil), a.roots...)
	a.scanMu.Unlock()

	var edited []string
	rescan := false
	for _, p := range paths {
		name, tracked := sources[p]
		info, statErr := os.Stat(p)
		if tracked && statErr == nil && !info.IsDir() {
			if a.syncEdit(ctx, p, name, info.Size()) {
				edited = append(edited, name)
			} else {
				rescan = true
			}
			continue
		}
		if underRoots(p, roots) {
			rescan = true
		}
	}

	if rescan {
		slog.Info("submitted paths changed, re-ingesting", "changes", len(paths))
		if _, err := a.ingest(ctx, "rescan"); err != nil {
			slog.Error("re-ingest failed", "error", err)
		}
		return
	}
	if len(edited) > 0 {
		slog.Debug("synced edits into tree", "files", len(edited))
		a.emitUpdate(Update{Trigger: "edit", Edited: edited})
	}
}

// syncEdit pushes an edited file into the tree. False means the edit needs a
// full ingest, which also covers files whose last ingest failed.
func (a *App) syncEdit(ctx context.Context, path, name string, size int64) bool {
	c := model.Candidate{
		Name:         name,
		DeclaredType: declaredType(name),
		Size:         size,
		Source:       model.FileSource{Path: path},
	}
	if err := a.validator.Validate(c); err != nil {
		slog.Warn("edited file rejected, re-ingesting", "path", path, "error", err)
		return false
	}
	text, err := a.loader.Load(ctx, c)
	if err != nil {
		slog.Warn("failed to reload edited file, re-ingesting", "path", path, "error", err)
		return false
	}
	if !a.Tree.UpdateContent(name, text) {
		slog.Debug("edited file not in tree, re-ingesting", "path", path)
		return false
	}
	return true
}

func underRoots(path string, roots []string) bool {
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if path == abs {
			return true
		}
		if util.HasPathPrefix(filepath.ToSlash(path), filepath.ToSlash(abs)) {
			if info, err := os.Stat(abs); err == nil && info.IsDir() {
				return true
			}
		}
	}
	return false
}
