package semantic

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"unpack/internal/core/errors"
	"unpack/internal/core/model"
	"unpack/internal/engine/fingerprint"
	"unpack/internal/shared/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replyWith(raw string, err error) *FakeOracle {
	return &FakeOracle{Reply: func(string) (string, error) { return raw, err }}
}

func TestClientFallback(t *testing.T) {
	c := NewClient(replyWith("not json at all", nil))

	res, err := c.Analyze(context.Background(), "x = 1", "a.py")
	require.NoError(t, err)
	assert.Equal(t, "not json at all", res.Summary)
	assert.Empty(t, res.PotentialThreats)
	assert.NotNil(t, res.PotentialThreats)
	assert.Empty(t, res.Recommendations)
}

func TestClientOracleError(t *testing.T) {
	down := stderrors.New("connection refused")
	c := NewClient(replyWith("", down))

	_, err := c.Analyze(context.Background(), "x = 1", "a.py")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeOracle))
	assert.ErrorIs(t, err, down)
	assert.Equal(t, errors.ClassOracle, errors.ClassOf(err))
}

func TestClientSendsPrompt(t *testing.T) {
	var seen string
	c := NewClient(&FakeOracle{Reply: func(p string) (string, error) {
		seen = p
		return `{"summary":"s","potentialThreats":[],"recommendations":[]}`, nil
	}})

	res, err := c.Analyze(context.Background(), "def run(): pass", "job.py")
	require.NoError(t, err)
	assert.Equal(t, "s", res.Summary)
	assert.Equal(t, BuildPrompt("job.py", "def run(): pass"), seen)
}

func TestFakeOracleDefaultReply(t *testing.T) {
	c := NewClient(&FakeOracle{})

	res, err := c.Analyze(context.Background(), "el.innerHTML = input; eval(code)", "ui.js")
	require.NoError(t, err)
	assert.Contains(t, res.Summary, "Offline review")
	assert.Len(t, res.PotentialThreats, 2)
	assert.Len(t, res.Recommendations, 2)

	again, err := c.Analyze(context.Background(), "el.innerHTML = input; eval(code)", "ui.js")
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestFakeOracleReportsCredentials(t *testing.T) {
	c := NewClient(&FakeOracle{})

	content := "import os\nAWS_KEY = \"AKIA1234567890ABCDEF\"\n"
	res, err := c.Analyze(context.Background(), content, "settings.py")
	require.NoError(t, err)
	require.Len(t, res.PotentialThreats, 1)
	assert.Equal(t, "Possible hard-coded credential: aws-access-key-id (high) at line 2: AKIA...CDEF", res.PotentialThreats[0])
	assert.Equal(t, []string{"Load secrets from the environment or a vault"}, res.Recommendations)
}

type countingOracle struct {
	calls atomic.Int32
}

func (o *countingOracle) Name() string { return "counting" }
func (o *countingOracle) Generate(ctx context.Context, prompt string) (string, error) {
	o.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return `{"summary":"ok"}`, nil
}

func TestWrapOrder(t *testing.T) {
	var trail []string
	mark := func(tag string) Middleware {
		return func(next Oracle) Oracle {
			return oracleFunc{name: next.Name(), fn: func(ctx context.Context, p string) (string, error) {
				trail = append(trail, tag)
				return next.Generate(ctx, p)
			}}
		}
	}

	o := Wrap(&countingOracle{}, mark("a"), mark("b"), Logged(), Instrumented())
	_, err := o.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, trail)
	assert.Equal(t, "counting", o.Name())
}

func TestRateLimited(t *testing.T) {
	inner := &countingOracle{}
	o := Wrap(inner, RateLimited(util.NewLimiter(0.001, 1)))

	_, err := o.Generate(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = o.Generate(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, int32(1), inner.calls.Load())

	// A zero rate disables limiting entirely.
	assert.Same(t, Oracle(inner), Wrap(inner, RateLimited(util.NewLimiter(0, 1))))
}

func TestWithTimeout(t *testing.T) {
	slow := &FakeOracle{}
	blocking := oracleFunc{name: "slow", fn: func(ctx context.Context, p string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}

	_, err := Wrap(blocking, WithTimeout(10*time.Millisecond)).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Same(t, Oracle(slow), Wrap(slow, WithTimeout(0)))
}

type memoryLookup struct {
	hits map[string]model.SemanticResult
}

func (m memoryLookup) LookupSemantic(_ context.Context, hash, name string) (model.SemanticResult, bool, error) {
	res, ok := m.hits[hash+"|"+name]
	return res, ok, nil
}

func TestCachedAnalyzer(t *testing.T) {
	inner := &countingOracle{}
	cached, err := NewCachedAnalyzer(NewClient(inner), fingerprint.SHA256{}, 8, nil)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := cached.Analyze(ctx, "a = 1", "a.py")
	require.NoError(t, err)
	first.PotentialThreats = append(first.PotentialThreats, "mutated")

	second, err := cached.Analyze(ctx, "a = 1", "a.py")
	require.NoError(t, err)
	assert.Empty(t, second.PotentialThreats)
	assert.Equal(t, int32(1), inner.calls.Load())

	_, err = cached.Analyze(ctx, "a = 1", "b.py")
	require.NoError(t, err)
	_, err = cached.Analyze(ctx, "a = 2", "a.py")
	require.NoError(t, err)
	assert.Equal(t, int32(3), inner.calls.Load())
	assert.Equal(t, 3, cached.Len())
}

func TestCachedAnalyzerUsesLookup(t *testing.T) {
	inner := &countingOracle{}
	hash := fingerprint.SHA256{}.Compute("a = 1")
	stored := model.SemanticResult{Summary: "from records", PotentialThreats: []string{}, Recommendations: []string{"r"}}
	lookup := memoryLookup{hits: map[string]model.SemanticResult{hash + "|a.py": stored}}

	cached, err := NewCachedAnalyzer(NewClient(inner), fingerprint.SHA256{}, 8, lookup)
	require.NoError(t, err)

	res, err := cached.Analyze(context.Background(), "a = 1", "a.py")
	require.NoError(t, err)
	assert.Equal(t, stored, res)
	assert.Equal(t, int32(0), inner.calls.Load())
}

func TestCachedAnalyzerDoesNotCacheErrors(t *testing.T) {
	calls := 0
	c := NewClient(&FakeOracle{Reply: func(string) (string, error) {
		calls++
		if calls == 1 {
			return "", stderrors.New("flaky")
		}
		return `{"summary":"ok"}`, nil
	}})
	cached, err := NewCachedAnalyzer(c, fingerprint.SHA256{}, 8, nil)
	require.NoError(t, err)

	_, err = cached.Analyze(context.Background(), "x", "x.go")
	require.Error(t, err)
	res, err := cached.Analyze(context.Background(), "x", "x.go")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Summary)
}

func TestCachedAnalyzerWaiterOutlivesCancelledCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	gated := oracleFunc{name: "gated", fn: func(ctx context.Context, _ string) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return `{"summary":"shared"}`, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}}
	cached, err := NewCachedAnalyzer(NewClient(gated), fingerprint.SHA256{}, 8, nil)
	require.NoError(t, err)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	firstErr := make(chan error, 1)
	go func() {
		_, err := cached.Analyze(firstCtx, "a = 1", "a.py")
		firstErr <- err
	}()
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("oracle was never called")
	}

	type outcome struct {
		res model.SemanticResult
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := cached.Analyze(context.Background(), "a = 1", "a.py")
		second <- outcome{res, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case got := <-second:
		require.NoError(t, got.err)
		assert.Equal(t, "shared", got.res.Summary)
	case <-time.After(time.Second):
		t.Fatal("waiting caller did not return")
	}
	assert.Equal(t, int32(1), calls.Load())
}
