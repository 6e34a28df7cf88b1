package model

import (
	"context"
	"fmt"
	"os"
)

// Source yields the raw bytes of a candidate. Implementations should honor
// ctx, but callers must not rely on it: the loader abandons reads that outlive
// their attempt deadline.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]byte, error)

func (f SourceFunc) Read(ctx context.Context) ([]byte, error) { return f(ctx) }

// BytesSource serves fixed content.
type BytesSource []byte

func (b BytesSource) Read(context.Context) ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// FileSource reads a file from disk on every attempt.
type FileSource struct {
	Path string
}

func (s FileSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return data, nil
}
