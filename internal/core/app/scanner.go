package app

import (
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"unpack/internal/core/model"
)

const fallbackType = "application/octet-stream"

// CollectCandidates turns the submitted paths into candidates. A file is
// always submitted under its base name so the validator can report it.
// Directories are walked with the scan excludes and only contribute files with
// an allowed extension, named relative to the directory's parent.
func (a *App) CollectCandidates(paths []string) ([]model.Candidate, map[string]string, error) {
	dirGlobs, err := compileGlobs(a.Config.Scan.ExcludeDirs, "exclude dir")
	if err != nil {
		return nil, nil, err
	}
	fileGlobs, err := compileGlobs(a.Config.Scan.ExcludeFiles, "exclude file")
	if err != nil {
		return nil, nil, err
	}

	allowed := make(map[string]bool, len(a.Config.Ingest.AllowedExtensions))
	for _, ext := range a.Config.Ingest.AllowedExtensions {
		allowed[ext] = true
	}

	var candidates []model.Candidate
	sources := make(map[string]string)
	add := func(abs, name string, size int64) {
		candidates = append(candidates, model.Candidate{
			Name:         name,
			DeclaredType: declaredType(name),
			Size:         size,
			Source:       model.FileSource{Path: abs},
		})
		sources[abs] = name
	}

	for _, root := range paths {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve %s: %w", root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, nil, err
		}
		if !info.IsDir() {
			add(abs, filepath.Base(abs), info.Size())
			continue
		}

		base := filepath.Dir(abs)
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if path != abs && matchAny(dirGlobs, name) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || matchAny(fileGlobs, name) {
				return nil
			}
			if !allowed[model.Extension(name)] {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(base, path)
			if err != nil {
				return err
			}
			add(path, filepath.ToSlash(rel), fi.Size())
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}
	return candidates, sources, nil
}

func declaredType(name string) string {
	t := mime.TypeByExtension(model.Extension(name))
	if t == "" {
		return fallbackType
	}
	// Drop parameters such as "; charset=utf-8".
	if idx := strings.Index(t, ";"); idx >= 0 {
		t = strings.TrimSpace(t[:idx])
	}
	return t
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", label, p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
