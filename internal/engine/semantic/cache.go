package semantic

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"unpack/internal/core/model"
	"unpack/internal/core/ports"
	"unpack/internal/shared/observability"
)

// CachedAnalyzer memoizes assessments by content fingerprint and file name.
// Misses consult the optional persistent lookup before calling the wrapped
// analyzer; concurrent misses for the same key share one call. A shared call
// keeps running after its callers are cancelled, bounded by the oracle
// timeout when one is configured.
type CachedAnalyzer struct {
	next   ports.SemanticAnalyzer
	fp     ports.Fingerprinter
	lookup ports.SemanticLookup
	cache  *lru.Cache[string, model.SemanticResult]
	group  singleflight.Group
}

var _ ports.SemanticAnalyzer = (*CachedAnalyzer)(nil)

func NewCachedAnalyzer(next ports.SemanticAnalyzer, fp ports.Fingerprinter, size int, lookup ports.SemanticLookup) (*CachedAnalyzer, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, model.SemanticResult](size)
	if err != nil {
		return nil, fmt.Errorf("create semantic cache: %w", err)
	}
	return &CachedAnalyzer{next: next, fp: fp, lookup: lookup, cache: cache}, nil
}

func (c *CachedAnalyzer) Analyze(ctx context.Context, text, filename string) (model.SemanticResult, error) {
	hash := c.fp.Compute(text)
	key := hash + "\x00" + filename

	if res, ok := c.cache.Get(key); ok {
		observability.OracleRequestsTotal.WithLabelValues("cache_hit").Inc()
		return cloneSemantic(res), nil
	}

	// The shared call runs detached from any one caller, so a caller that
	// gives up does not fail the others waiting on the same key.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if c.lookup != nil {
			res, ok, err := c.lookup.LookupSemantic(shared, hash, filename)
			if err != nil {
				slog.Warn("semantic lookup failed", "path", filename, "error", err)
			} else if ok {
				observability.OracleRequestsTotal.WithLabelValues("cache_hit").Inc()
				c.cache.Add(key, res)
				return res, nil
			}
		}
		res, err := c.next.Analyze(shared, text, filename)
		if err != nil {
			return model.SemanticResult{}, err
		}
		c.cache.Add(key, res)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return model.SemanticResult{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return model.SemanticResult{}, r.Err
		}
		return cloneSemantic(r.Val.(model.SemanticResult)), nil
	}
}

// Len reports the number of cached assessments.
func (c *CachedAnalyzer) Len() int {
	return c.cache.Len()
}

func cloneSemantic(in model.SemanticResult) model.SemanticResult {
	out := in
	out.PotentialThreats = append(make([]string, 0, len(in.PotentialThreats)), in.PotentialThreats...)
	out.Recommendations = append(make([]string, 0, len(in.Recommendations)), in.Recommendations...)
	return out
}
