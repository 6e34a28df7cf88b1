package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitFor(t *testing.T, ch <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-ch:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change on %s", want)
		}
	}
}

func TestNewWatcherRejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcherRejectsBadPattern(t *testing.T) {
	if _, err := NewWatcher(time.Millisecond, []string{"["}, nil, func([]string) {}); err == nil {
		t.Fatal("expected error for malformed dir pattern")
	}
	if _, err := NewWatcher(time.Millisecond, nil, []string{"["}, func([]string) {}); err == nil {
		t.Fatal("expected error for malformed file pattern")
	}
}

func TestWatcherReportsChangesAndExclusions(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, []string{"node_modules"}, []string{"*.min.js"}, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{root}); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(root, "app.js")
	if err := os.WriteFile(src, []byte("function a() {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, src, 2*time.Second)

	if err := os.WriteFile(filepath.Join(root, "bundle.min.js"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "node_modules", "dep.js"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case paths := <-changed:
		for _, p := range paths {
			base := filepath.Base(p)
			if base == "bundle.min.js" || base == "dep.js" {
				t.Fatalf("excluded path reported: %s", p)
			}
		}
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	changed := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, nil, nil, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{root}); err != nil {
		t.Fatal(err)
	}

	sub := filepath.Join(root, "pkg", "inner")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(sub, "nested.py")
	if err := os.WriteFile(nested, []byte("def f(): pass"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, nested, 2*time.Second)
}

func TestWatcherReportsRenames(t *testing.T) {
	root := t.TempDir()
	changed := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, nil, nil, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{root}); err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(root, "old.ts")
	newPath := filepath.Join(root, "new.ts")
	if err := os.WriteFile(oldPath, []byte("class A {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, newPath, 2*time.Second)
}

func TestDebounceCoalescesBursts(t *testing.T) {
	calls := make(chan []string, 8)
	w, err := NewWatcher(80*time.Millisecond, nil, nil, func(paths []string) {
		calls <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.scheduleChange("/b.go")
	w.scheduleChange("/a.go")
	w.scheduleChange("/b.go")

	select {
	case paths := <-calls:
		if len(paths) != 2 || paths[0] != "/a.go" || paths[1] != "/b.go" {
			t.Fatalf("expected sorted unique paths, got %v", paths)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for debounced flush")
	}

	select {
	case paths := <-calls:
		t.Fatalf("expected a single flush, got extra %v", paths)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSetExtensions(t *testing.T) {
	w, err := NewWatcher(10*time.Millisecond, nil, []string{"*.lock"}, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if w.shouldExcludeFile("main.rs") {
		t.Fatal("expected no extension filter by default")
	}

	w.SetExtensions([]string{"JS", ".ts", " "})
	cases := map[string]bool{
		"a.js":      false,
		"b.TS":      false,
		"c.py":      true,
		"yarn.lock": true,
	}
	for name, excluded := range cases {
		if got := w.shouldExcludeFile(name); got != excluded {
			t.Fatalf("shouldExcludeFile(%q) = %v, want %v", name, got, excluded)
		}
	}
}
