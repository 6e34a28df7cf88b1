// Package records persists ingested batches in SQLite and serves earlier
// semantic assessments for unchanged content.
package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"unpack/internal/core/model"
	"unpack/internal/core/ports"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

var _ ports.RecordStore = (*Store)(nil)

// BatchRecord is one persisted ingestion run.
type BatchRecord struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Submitted  int
	Succeeded  int
	Failed     int
	Outcome    string
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("records path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("records path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create records directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite records %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite records %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveBatch writes the batch summary and every file in one transaction and
// returns the batch id.
func (s *Store) SaveBatch(ctx context.Context, summary ports.BatchSummary, files []model.ProcessedFile) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batchID int64
	err := s.withRetry("save batch", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx, `
INSERT INTO batches (started_at_utc, finished_at_utc, submitted, succeeded, failed, outcome)
VALUES (?, ?, ?, ?, ?, ?)`,
			formatTime(summary.StartedAt),
			formatTime(summary.FinishedAt),
			summary.Submitted,
			summary.Succeeded,
			summary.Failed,
			summary.Outcome,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO files (batch_id, file_id, name, declared_type, size, hash, created_at_utc, structure_json, semantic_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, f := range files {
			structureJSON, err := encodeOptional(f.Structure)
			if err != nil {
				return fmt.Errorf("encode structure for %s: %w", f.Name, err)
			}
			semanticJSON, err := encodeOptional(f.Semantic)
			if err != nil {
				return fmt.Errorf("encode semantic for %s: %w", f.Name, err)
			}
			if _, err := stmt.ExecContext(ctx, id, f.ID, f.Name, f.DeclaredType, f.Size, f.Hash,
				formatTime(f.CreatedAt), structureJSON, semanticJSON); err != nil {
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return err
		}
		batchID = id
		return nil
	})
	return batchID, err
}

// LookupSemantic returns the newest stored assessment for identical content
// under the same name.
func (s *Store) LookupSemantic(ctx context.Context, hash, name string) (model.SemanticResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw string
	err := s.withRetry("lookup semantic", func() error {
		return s.db.QueryRowContext(ctx, `
SELECT semantic_json FROM files
WHERE hash = ? AND name = ? AND semantic_json != ''
ORDER BY id DESC
LIMIT 1`, hash, name).Scan(&raw)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.SemanticResult{}, false, nil
	}
	if err != nil {
		return model.SemanticResult{}, false, err
	}

	var res model.SemanticResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return model.SemanticResult{}, false, fmt.Errorf("decode stored semantic result: %w", err)
	}
	if res.PotentialThreats == nil {
		res.PotentialThreats = []string{}
	}
	if res.Recommendations == nil {
		res.Recommendations = []string{}
	}
	return res, true, nil
}

// RecentBatches returns up to limit batches, newest first.
func (s *Store) RecentBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	var rows *sql.Rows
	err := s.withRetry("load batches", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT id, started_at_utc, finished_at_utc, submitted, succeeded, failed, outcome
FROM batches
ORDER BY id DESC
LIMIT ?`, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]BatchRecord, 0)
	for rows.Next() {
		var (
			rec                 BatchRecord
			startRaw, finishRaw string
		)
		if err := rows.Scan(&rec.ID, &startRaw, &finishRaw, &rec.Submitted, &rec.Succeeded, &rec.Failed, &rec.Outcome); err != nil {
			return nil, fmt.Errorf("scan batch row: %w", err)
		}
		if rec.StartedAt, err = parseTime(startRaw); err != nil {
			return nil, err
		}
		if rec.FinishedAt, err = parseTime(finishRaw); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch rows: %w", err)
	}
	return out, nil
}

// Health pings the database.
func (s *Store) Health(ctx context.Context) (string, string) {
	if s == nil || s.db == nil {
		return "disabled", ""
	}
	if err := s.db.PingContext(ctx); err != nil {
		return "error", err.Error()
	}
	return "ok", s.path
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	if errors.Is(lastErr, sql.ErrNoRows) {
		return lastErr
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}

func encodeOptional[T any](v *T) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", raw, err)
	}
	return t, nil
}
