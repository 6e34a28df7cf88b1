// Package loader reads candidate content with a per-attempt deadline and a
// bounded number of retries.
package loader

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"unpack/internal/core/errors"
	"unpack/internal/core/model"
	"unpack/internal/core/ports"
	"unpack/internal/shared/observability"
)

type Options struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	Backoff        time.Duration
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Loader struct {
	opts  Options
	sleep SleepFunc
}

var _ ports.ContentLoader = (*Loader)(nil)

func New(opts Options) *Loader {
	return &Loader{opts: opts, sleep: sleepContext}
}

// WithSleep replaces the backoff wait, mainly for tests.
func (l *Loader) WithSleep(fn SleepFunc) *Loader {
	l.sleep = fn
	return l
}

// Load returns the candidate's text. Empty content counts as a failed attempt.
// A cancelled ctx ends the loop immediately with READ_ABORTED.
func (l *Loader) Load(ctx context.Context, c model.Candidate) (string, error) {
	if c.Source == nil {
		return "", readErr(errors.CodeReadCorrupt, c, 0, "candidate has no content source", nil)
	}

	var lastErr error
	for attempt := 1; attempt <= l.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", readErr(errors.CodeReadAborted, c, attempt, "read aborted", err)
		}

		text, err := l.attempt(ctx, c, attempt)
		if err == nil {
			observability.LoadAttemptsTotal.WithLabelValues("ok").Inc()
			slog.Debug("content loaded", "path", c.Name, "attempt", attempt, "bytes", len(text))
			return text, nil
		}
		if errors.IsCode(err, errors.CodeReadAborted) {
			observability.LoadAttemptsTotal.WithLabelValues("aborted").Inc()
			return "", err
		}

		lastErr = err
		observability.LoadAttemptsTotal.WithLabelValues(string(errors.CodeOf(err))).Inc()
		slog.Warn("read attempt failed", "path", c.Name, "attempt", attempt, "max", l.opts.MaxAttempts, "error", err)

		if attempt == l.opts.MaxAttempts {
			break
		}
		if err := l.sleep(ctx, l.opts.Backoff); err != nil {
			return "", readErr(errors.CodeReadAborted, c, attempt, "read aborted during backoff", err)
		}
	}

	if lastErr == nil {
		return "", readErr(errors.CodeReadExhausted, c, 0, "exhausted attempts", nil)
	}
	// lastErr already names the path and attempt.
	return "", &errors.DomainError{
		Code:    errors.CodeReadExhausted,
		Message: fmt.Sprintf("exhausted %d attempts", l.opts.MaxAttempts),
		Err:     lastErr,
	}
}

type readResult struct {
	data []byte
	err  error
}

// attempt races one source read against the attempt deadline. A read that
// outlives the deadline is abandoned; its goroutine exits when the read does.
func (l *Loader) attempt(ctx context.Context, c model.Candidate, attempt int) (string, error) {
	actx, cancel := context.WithTimeout(ctx, l.opts.AttemptTimeout)
	defer cancel()

	done := make(chan readResult, 1)
	go func() {
		data, err := c.Source.Read(actx)
		done <- readResult{data: data, err: err}
	}()

	select {
	case <-actx.Done():
		return "", l.deadlineErr(ctx, c, attempt)
	case res := <-done:
		if res.err != nil {
			if ctx.Err() != nil {
				return "", readErr(errors.CodeReadAborted, c, attempt, "read aborted", ctx.Err())
			}
			if stderrors.Is(res.err, context.DeadlineExceeded) && actx.Err() != nil {
				return "", l.deadlineErr(ctx, c, attempt)
			}
			return "", readErr(errors.CodeReadCorrupt, c, attempt, "source read failed", res.err)
		}
		if len(res.data) == 0 {
			return "", readErr(errors.CodeReadCorrupt, c, attempt, "empty content", nil)
		}
		if !utf8.Valid(res.data) {
			return "", readErr(errors.CodeReadCorrupt, c, attempt, "content is not valid UTF-8", nil)
		}
		return string(res.data), nil
	}
}

func (l *Loader) deadlineErr(ctx context.Context, c model.Candidate, attempt int) error {
	if err := ctx.Err(); err != nil {
		return readErr(errors.CodeReadAborted, c, attempt, "read aborted", err)
	}
	return readErr(errors.CodeReadTimeout, c, attempt,
		fmt.Sprintf("no content within %s", l.opts.AttemptTimeout), context.DeadlineExceeded)
}

func readErr(code errors.ErrorCode, c model.Candidate, attempt int, msg string, cause error) error {
	de := &errors.DomainError{Code: code, Message: msg, Err: cause}
	de.WithContext(errors.CtxPath, c.Name)
	if attempt > 0 {
		de.WithContext(errors.CtxAttempt, attempt)
	}
	return de
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
