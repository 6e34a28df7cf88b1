package records

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"unpack/internal/core/model"
	"unpack/internal/core/ports"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleFile(id, name, hash string, semantic *model.SemanticResult) model.ProcessedFile {
	structure := model.Analyzed([]string{"main"}, []string{"App"})
	return model.ProcessedFile{
		ID:           id,
		Name:         name,
		Content:      "function main() {}",
		DeclaredType: "text/javascript",
		Size:         18,
		Hash:         hash,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Structure:    &structure,
		Semantic:     semantic,
	}
}

func sampleSummary(outcome string, submitted, succeeded int) ports.BatchSummary {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return ports.BatchSummary{
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Submitted:  submitted,
		Succeeded:  succeeded,
		Failed:     submitted - succeeded,
		Outcome:    outcome,
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	store := openTestStore(t)

	var version int
	if err := store.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	if version != SchemaVersion {
		t.Fatalf("expected schema version %d, got %d", SchemaVersion, version)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()
	if second.Path() != path {
		t.Fatalf("expected path %q, got %q", path, second.Path())
	}
}

func TestOpenRejectsBadPaths(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("expected error for directory path")
	}
}

func TestEnsureSchemaRejectsNewerVersion(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.db.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatalf("insert future version: %v", err)
	}
	if err := EnsureSchema(store.db); err == nil {
		t.Fatal("expected error for newer schema version")
	}
}

func TestSaveBatchPersistsFiles(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sem := model.SemanticResult{Summary: "fine", PotentialThreats: []string{}, Recommendations: []string{"add tests"}}
	files := []model.ProcessedFile{
		sampleFile("f1", "src/a.js", "hash-a", &sem),
		sampleFile("f2", "src/b.js", "hash-b", nil),
	}

	id, err := store.SaveBatch(ctx, sampleSummary("complete", 2, 2), files)
	if err != nil {
		t.Fatalf("save batch: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive batch id, got %d", id)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM files WHERE batch_id = ?`, id).Scan(&count); err != nil {
		t.Fatalf("count files: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 stored files, got %d", count)
	}

	var semanticJSON string
	if err := store.db.QueryRow(`SELECT semantic_json FROM files WHERE file_id = 'f2'`).Scan(&semanticJSON); err != nil {
		t.Fatalf("read semantic column: %v", err)
	}
	if semanticJSON != "" {
		t.Fatalf("expected empty semantic column for file without assessment, got %q", semanticJSON)
	}
}

func TestSaveBatchEmpty(t *testing.T) {
	store := openTestStore(t)

	id, err := store.SaveBatch(context.Background(), sampleSummary("empty", 0, 0), nil)
	if err != nil {
		t.Fatalf("save empty batch: %v", err)
	}
	batches, err := store.RecentBatches(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent batches: %v", err)
	}
	if len(batches) != 1 || batches[0].ID != id || batches[0].Outcome != "empty" {
		t.Fatalf("unexpected batches: %+v", batches)
	}
}

func TestSaveBatchCancelledContext(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.SaveBatch(ctx, sampleSummary("complete", 1, 1), []model.ProcessedFile{sampleFile("f1", "a.js", "h", nil)}); err == nil {
		t.Fatal("expected error for cancelled context")
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM batches`).Scan(&count); err != nil {
		t.Fatalf("count batches: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no batches after cancelled save, got %d", count)
	}
}

func TestLookupSemanticReturnsNewest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := model.SemanticResult{Summary: "older", PotentialThreats: []string{"x"}, Recommendations: []string{}}
	newer := model.SemanticResult{Summary: "newer", PotentialThreats: []string{}, Recommendations: []string{"y"}}

	if _, err := store.SaveBatch(ctx, sampleSummary("complete", 1, 1), []model.ProcessedFile{sampleFile("f1", "a.js", "h1", &older)}); err != nil {
		t.Fatalf("save first batch: %v", err)
	}
	if _, err := store.SaveBatch(ctx, sampleSummary("complete", 1, 1), []model.ProcessedFile{sampleFile("f2", "a.js", "h1", &newer)}); err != nil {
		t.Fatalf("save second batch: %v", err)
	}
	// A later run without an assessment must not hide the stored one.
	if _, err := store.SaveBatch(ctx, sampleSummary("complete", 1, 1), []model.ProcessedFile{sampleFile("f3", "a.js", "h1", nil)}); err != nil {
		t.Fatalf("save third batch: %v", err)
	}

	got, ok, err := store.LookupSemantic(ctx, "h1", "a.js")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected stored assessment")
	}
	if got.Summary != "newer" || len(got.Recommendations) != 1 || got.Recommendations[0] != "y" {
		t.Fatalf("unexpected assessment: %+v", got)
	}
	if got.PotentialThreats == nil {
		t.Fatal("expected non-nil threats slice")
	}
}

func TestLookupSemanticMiss(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sem := model.SemanticResult{Summary: "s", PotentialThreats: []string{}, Recommendations: []string{}}
	if _, err := store.SaveBatch(ctx, sampleSummary("complete", 1, 1), []model.ProcessedFile{sampleFile("f1", "a.js", "h1", &sem)}); err != nil {
		t.Fatalf("save batch: %v", err)
	}

	cases := []struct{ hash, name string }{
		{"h2", "a.js"},
		{"h1", "b.js"},
	}
	for _, tc := range cases {
		_, ok, err := store.LookupSemantic(ctx, tc.hash, tc.name)
		if err != nil {
			t.Fatalf("lookup %s/%s: %v", tc.hash, tc.name, err)
		}
		if ok {
			t.Fatalf("expected miss for %s/%s", tc.hash, tc.name)
		}
	}
}

func TestRecentBatchesOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	outcomes := []string{"complete", "partial", "none"}
	for _, o := range outcomes {
		if _, err := store.SaveBatch(ctx, sampleSummary(o, 2, 1), nil); err != nil {
			t.Fatalf("save %s: %v", o, err)
		}
	}

	batches, err := store.RecentBatches(ctx, 2)
	if err != nil {
		t.Fatalf("recent batches: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].Outcome != "none" || batches[1].Outcome != "partial" {
		t.Fatalf("unexpected order: %+v", batches)
	}
	if batches[0].Submitted != 2 || batches[0].Succeeded != 1 || batches[0].Failed != 1 {
		t.Fatalf("unexpected counts: %+v", batches[0])
	}
	if !batches[0].FinishedAt.After(batches[0].StartedAt) {
		t.Fatalf("expected finished after started: %+v", batches[0])
	}
}

func TestHealth(t *testing.T) {
	store := openTestStore(t)
	status, detail := store.Health(context.Background())
	if status != "ok" || detail != store.Path() {
		t.Fatalf("unexpected health: %s %s", status, detail)
	}

	var nilStore *Store
	if status, _ := nilStore.Health(context.Background()); status != "disabled" {
		t.Fatalf("expected disabled for nil store, got %s", status)
	}
}

func TestIsLockError(t *testing.T) {
	if isLockError(nil) {
		t.Fatal("nil must not be a lock error")
	}
	if !isLockError(errString("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatal("expected lock error")
	}
	if isLockError(sql.ErrNoRows) {
		t.Fatal("ErrNoRows is not a lock error")
	}
}

func TestIsCorruptError(t *testing.T) {
	if !IsCorruptError(errString("database disk image is malformed")) {
		t.Fatal("expected corrupt error")
	}
	if IsCorruptError(nil) || IsCorruptError(errString("timeout")) {
		t.Fatal("unexpected corrupt classification")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
