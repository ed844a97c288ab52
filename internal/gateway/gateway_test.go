package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pricofy/quizlate/internal/domain"
)

type step struct {
	out string
	err error
}

// scriptedProvider replays steps in order, repeating the last one.
type scriptedProvider struct {
	mu    sync.Mutex
	steps []step
	calls int
	langs [][2]string
}

func (p *scriptedProvider) Translate(_ context.Context, _, src, tgt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	if i >= len(p.steps) {
		i = len(p.steps) - 1
	}
	p.calls++
	p.langs = append(p.langs, [2]string{src, tgt})
	return p.steps[i].out, p.steps[i].err
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

var errTransient = errors.New("connection reset")

// newTestGateway records waits instead of sleeping.
func newTestGateway(p Provider, cfg Config, opts ...Option) (*Gateway, *[]time.Duration) {
	g := New(p, cfg, opts...)
	var waits []time.Duration
	g.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return g, &waits
}

func TestTranslate_SucceedsFirstAttempt(t *testing.T) {
	p := &scriptedProvider{steps: []step{{out: "નમસ્તે"}}}
	g, waits := newTestGateway(p, Config{})

	result := g.Translate(context.Background(), "Hello")

	require.Equal(t, "નમસ્તે", result.Text)
	require.Equal(t, domain.Translated, result.Provenance)
	require.Equal(t, 1, p.Calls())
	require.Empty(t, *waits)
	require.Len(t, result.Attempts, 1)
	require.Equal(t, [2]string{"en", "gu"}, p.langs[0])
}

func TestTranslate_FailsTwiceThenSucceeds(t *testing.T) {
	p := &scriptedProvider{steps: []step{{err: errTransient}, {err: errTransient}, {out: "ભારત"}}}
	g, waits := newTestGateway(p, Config{MaxRetries: 3, Delay: time.Second})

	result := g.Translate(context.Background(), "India")

	require.Equal(t, "ભારત", result.Text)
	require.Equal(t, domain.Translated, result.Provenance)
	require.Equal(t, 3, p.Calls())
	require.Equal(t, []time.Duration{time.Second, time.Second}, *waits)
	require.Len(t, result.Attempts, 3)
	require.ErrorIs(t, result.Attempts[0].Err, errTransient)
	require.Equal(t, 3, result.Attempts[2].Index)
	require.True(t, result.Attempts[2].Succeeded())
}

func TestTranslate_SentinelTriggersRetry(t *testing.T) {
	p := &scriptedProvider{steps: []step{
		{out: "ભાર\uFFFD"},
		{out: "\uFFFDત"},
		{out: "ભારત"},
	}}
	g, _ := newTestGateway(p, Config{MaxRetries: 3})

	result := g.Translate(context.Background(), "India")

	require.Equal(t, "ભારત", result.Text)
	require.Equal(t, domain.Translated, result.Provenance)
	require.Equal(t, 3, p.Calls())
	require.ErrorIs(t, result.Attempts[0].Err, ErrSentinel)
	require.ErrorIs(t, result.Attempts[1].Err, ErrSentinel)
}

func TestTranslate_AllAttemptsFail(t *testing.T) {
	p := &scriptedProvider{steps: []step{{err: errTransient}}}
	delay := 20 * time.Millisecond
	g := New(p, Config{MaxRetries: 3, Delay: delay})

	start := time.Now()
	result := g.Translate(context.Background(), "Who won the match?")
	elapsed := time.Since(start)

	require.Equal(t, "Who won the match?", result.Text)
	require.Equal(t, domain.FellBackToOriginal, result.Provenance)
	require.Equal(t, 3, p.Calls())
	require.GreaterOrEqual(t, elapsed, 2*delay)
	require.Len(t, result.Attempts, 3)
}

func TestTranslate_EmptyInput(t *testing.T) {
	p := &scriptedProvider{steps: []step{{out: "x"}}}
	g, _ := newTestGateway(p, Config{})

	for _, in := range []string{"", "   ", "\n"} {
		result := g.Translate(context.Background(), in)
		require.Equal(t, in, result.Text)
		require.Equal(t, domain.Translated, result.Provenance)
	}
	require.Zero(t, p.Calls())
}

func TestTranslate_ProtectedTerms(t *testing.T) {
	p := &scriptedProvider{steps: []step{
		{out: "ભારતની રાજધાની દિલ્હી છે"},
		{out: "ભારતની રાજધાની Delhi છે"},
	}}
	g, _ := newTestGateway(p, Config{MaxRetries: 3})

	result := g.Translate(context.Background(), "The capital of India is Delhi", "Delhi")

	require.Equal(t, domain.Translated, result.Provenance)
	require.Contains(t, result.Text, "Delhi")
	require.Equal(t, 2, p.Calls())
	require.ErrorIs(t, result.Attempts[0].Err, ErrProtectedTerm)
}

func TestTranslate_ProtectedTermsNeverSurvive(t *testing.T) {
	p := &scriptedProvider{steps: []step{{out: "૨૦૨૪માં"}}}
	g, _ := newTestGateway(p, Config{MaxRetries: 2})

	result := g.Translate(context.Background(), "In 2024", "2024")

	require.Equal(t, domain.FellBackToOriginal, result.Provenance)
	require.Equal(t, "In 2024", result.Text)
	require.Equal(t, 2, p.Calls())
}

func TestTranslate_IgnoresProtectedTermsAbsentFromInput(t *testing.T) {
	p := &scriptedProvider{steps: []step{{out: "નમસ્તે"}}}
	g, _ := newTestGateway(p, Config{})

	result := g.Translate(context.Background(), "Hello", "ISRO", "")

	require.Equal(t, domain.Translated, result.Provenance)
	require.Equal(t, 1, p.Calls())
}

func TestTranslate_EmptyResponseIsFailure(t *testing.T) {
	p := &scriptedProvider{steps: []step{{out: "  "}, {out: "હા"}}}
	g, _ := newTestGateway(p, Config{})

	result := g.Translate(context.Background(), "Yes")

	require.Equal(t, "હા", result.Text)
	require.ErrorIs(t, result.Attempts[0].Err, ErrEmptyResponse)
}

func TestTranslate_RetryBound(t *testing.T) {
	for _, r := range []int{1, 2, 5} {
		p := &scriptedProvider{steps: []step{{err: errTransient}}}
		g, waits := newTestGateway(p, Config{MaxRetries: r})

		result := g.Translate(context.Background(), "text")

		require.Equal(t, r, p.Calls())
		require.Len(t, *waits, r-1)
		require.Equal(t, domain.FellBackToOriginal, result.Provenance)
	}
}

func TestTranslate_Backoff(t *testing.T) {
	p := &scriptedProvider{steps: []step{{err: errTransient}}}
	g, waits := newTestGateway(p, Config{MaxRetries: 4, Delay: 100 * time.Millisecond, Backoff: 2})

	g.Translate(context.Background(), "text")

	require.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
	}, *waits)
}

func TestTranslate_BackoffIsCapped(t *testing.T) {
	p := &scriptedProvider{steps: []step{{err: errTransient}}}
	g, waits := newTestGateway(p, Config{MaxRetries: 5, Delay: 100 * time.Millisecond, Backoff: 3, MaxDelay: time.Second})

	g.Translate(context.Background(), "text")

	require.Equal(t, []time.Duration{
		100 * time.Millisecond,
		300 * time.Millisecond,
		900 * time.Millisecond,
		time.Second,
	}, *waits)
}

func TestTranslate_HugeBackoffDoesNotOverflow(t *testing.T) {
	p := &scriptedProvider{steps: []step{{err: errTransient}}}
	g, waits := newTestGateway(p, Config{MaxRetries: 40, Delay: time.Hour, Backoff: 1e6})

	g.Translate(context.Background(), "text")

	require.Len(t, *waits, 39)
	for _, d := range *waits {
		require.Equal(t, time.Hour, d)
	}
}

func TestTranslate_CancelledContextFallsBack(t *testing.T) {
	p := &scriptedProvider{steps: []step{{err: errTransient}}}
	g := New(p, Config{MaxRetries: 3, Delay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	result := g.Translate(ctx, "text")

	require.Equal(t, domain.FellBackToOriginal, result.Provenance)
	require.Equal(t, "text", result.Text)
	require.Equal(t, 1, p.Calls())
}

func TestTranslate_AttemptTimeout(t *testing.T) {
	var calls int
	slow := ProviderFunc(func(ctx context.Context, text, _, _ string) (string, error) {
		calls++
		<-ctx.Done()
		return "", ctx.Err()
	})
	g, _ := newTestGateway(slow, Config{MaxRetries: 2, AttemptTimeout: 5 * time.Millisecond})

	result := g.Translate(context.Background(), "text")

	require.Equal(t, domain.FellBackToOriginal, result.Provenance)
	require.Equal(t, 2, calls)
	require.ErrorIs(t, result.Attempts[0].Err, context.DeadlineExceeded)
}

type mapCache struct {
	data map[string]string
	sets int
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key, value string) error {
	c.data[key] = value
	c.sets++
	return nil
}

func TestTranslate_Cache(t *testing.T) {
	cache := &mapCache{data: map[string]string{}}
	p := &scriptedProvider{steps: []step{{out: "નમસ્તે"}}}
	g, _ := newTestGateway(p, Config{}, WithCache(cache))

	first := g.Translate(context.Background(), "Hello")
	second := g.Translate(context.Background(), "Hello")

	require.Equal(t, first.Text, second.Text)
	require.Equal(t, domain.Translated, second.Provenance)
	require.Equal(t, 1, p.Calls())
	require.Equal(t, 1, cache.sets)
}

func TestTranslate_FallbackIsNotCached(t *testing.T) {
	cache := &mapCache{data: map[string]string{}}
	p := &scriptedProvider{steps: []step{{err: errTransient}}}
	g, _ := newTestGateway(p, Config{MaxRetries: 2}, WithCache(cache))

	g.Translate(context.Background(), "Hello")

	require.Zero(t, cache.sets)
}

func TestTranslate_CachedEntryFailingChecksIsIgnored(t *testing.T) {
	cache := &mapCache{data: map[string]string{
		CacheKey("en", "gu", "Hello", nil): "bad \uFFFD",
	}}
	p := &scriptedProvider{steps: []step{{out: "નમસ્તે"}}}
	g, _ := newTestGateway(p, Config{}, WithCache(cache))

	result := g.Translate(context.Background(), "Hello")

	require.Equal(t, "નમસ્તે", result.Text)
	require.Equal(t, 1, p.Calls())
}

type countingObserver struct {
	attempts int
	results  []domain.TranslationResult
}

func (o *countingObserver) ObserveAttempt(domain.TranslationAttempt, time.Duration) { o.attempts++ }
func (o *countingObserver) ObserveResult(r domain.TranslationResult)                { o.results = append(o.results, r) }

func TestTranslate_Observer(t *testing.T) {
	obs := &countingObserver{}
	p := &scriptedProvider{steps: []step{{err: errTransient}, {out: "ok"}}}
	g, _ := newTestGateway(p, Config{}, WithObserver(obs))

	g.Translate(context.Background(), "text")

	require.Equal(t, 2, obs.attempts)
	require.Len(t, obs.results, 1)
	require.Equal(t, domain.Translated, obs.results[0].Provenance)
}

func TestConfig_Defaults(t *testing.T) {
	g := New(&scriptedProvider{}, Config{})
	cfg := g.Config()

	require.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	require.Equal(t, DefaultAttemptTimeout, cfg.AttemptTimeout)
	require.Equal(t, DefaultMaxDelay, cfg.MaxDelay)
	require.Equal(t, []string{DefaultSentinel}, cfg.Sentinels)
	require.Equal(t, "en", cfg.SourceLang)
	require.Equal(t, "gu", cfg.TargetLang)
}

func TestConfig_EmptySentinelsDisablesCheck(t *testing.T) {
	p := &scriptedProvider{steps: []step{{out: "ok \uFFFD"}}}
	g, _ := newTestGateway(p, Config{Sentinels: []string{}})

	result := g.Translate(context.Background(), "text")

	require.Equal(t, domain.Translated, result.Provenance)
}
