// Package gateway wraps a translation provider with bounded retry and
// fall-back-to-original semantics. Translate never returns an error: the
// caller always receives text it can render.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pricofy/quizlate/internal/domain"
)

// Defaults used when a Config field is left at its zero value.
const (
	DefaultMaxRetries     = 3
	DefaultDelay          = time.Second
	DefaultAttemptTimeout = 30 * time.Second
	DefaultMaxDelay       = time.Minute
	DefaultSourceLang     = "en"
	DefaultTargetLang     = "gu"
)

// DefaultSentinel is the replacement character renderers emit for code
// points they have no glyph for.
const DefaultSentinel = "\uFFFD"

// Rejection causes recorded on failed attempts.
var (
	ErrSentinel       = errors.New("translation contains an unrenderable-glyph marker")
	ErrProtectedTerm  = errors.New("translation dropped a protected term")
	ErrEmptyResponse  = errors.New("provider returned an empty translation")
	errNotAttemptable = errors.New("context done before attempt")
)

// Provider is a remote translation service.
type Provider interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, text, sourceLang, targetLang string) (string, error)

// Translate calls f.
func (f ProviderFunc) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return f(ctx, text, sourceLang, targetLang)
}

// Cache stores accepted translations. Lookups that fail are treated as misses.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Observer receives per-attempt and per-call outcomes.
type Observer interface {
	ObserveAttempt(attempt domain.TranslationAttempt, elapsed time.Duration)
	ObserveResult(result domain.TranslationResult)
}

// Config is the immutable configuration of a Gateway.
type Config struct {
	SourceLang string
	TargetLang string
	// MaxRetries is the total number of provider calls allowed per input.
	MaxRetries int
	// Delay is the wait between attempts.
	Delay time.Duration
	// Backoff multiplies Delay after each failed attempt. Values <= 1 keep
	// the delay fixed.
	Backoff float64
	// MaxDelay caps the delay grown by Backoff. It is never below Delay.
	MaxDelay time.Duration
	// AttemptTimeout bounds a single provider call.
	AttemptTimeout time.Duration
	// Sentinels are markers whose presence in the output rejects an attempt.
	Sentinels []string
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		SourceLang:     DefaultSourceLang,
		TargetLang:     DefaultTargetLang,
		MaxRetries:     DefaultMaxRetries,
		Delay:          DefaultDelay,
		AttemptTimeout: DefaultAttemptTimeout,
		MaxDelay:       DefaultMaxDelay,
		Sentinels:      []string{DefaultSentinel},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SourceLang == "" {
		c.SourceLang = d.SourceLang
	}
	if c.TargetLang == "" {
		c.TargetLang = d.TargetLang
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = d.AttemptTimeout
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.MaxDelay < c.Delay {
		c.MaxDelay = c.Delay
	}
	if c.Sentinels == nil {
		c.Sentinels = d.Sentinels
	}
	c.Sentinels = append([]string(nil), c.Sentinels...)
	return c
}

// Gateway translates text through a Provider.
// A Gateway holds no per-call state and is safe for concurrent use.
type Gateway struct {
	provider Provider
	cfg      Config
	cache    Cache
	observer Observer
	logger   *slog.Logger
	wait     func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithCache enables lookups of previously accepted translations.
func WithCache(c Cache) Option {
	return func(g *Gateway) { g.cache = c }
}

// WithObserver reports attempts and results, e.g. to metrics.
func WithObserver(o Observer) Option {
	return func(g *Gateway) { g.observer = o }
}

// WithLogger overrides the slog default logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// New creates a Gateway. Zero Config fields take their defaults.
func New(p Provider, cfg Config, opts ...Option) *Gateway {
	g := &Gateway{
		provider: p,
		cfg:      cfg.withDefaults(),
		logger:   slog.Default(),
		wait:     sleep,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the effective configuration.
func (g *Gateway) Config() Config {
	c := g.cfg
	c.Sentinels = append([]string(nil), g.cfg.Sentinels...)
	return c
}

// Translate translates text, making at most MaxRetries provider calls.
// An attempt is accepted when the call succeeds, the output holds no
// sentinel and every protected substring survives verbatim. When no attempt
// is accepted the original text is returned with FellBackToOriginal.
// Empty or whitespace-only text is returned as is without a provider call.
func (g *Gateway) Translate(ctx context.Context, text string, protected ...string) domain.TranslationResult {
	if strings.TrimSpace(text) == "" {
		return domain.TranslationResult{Text: text, Provenance: domain.Translated}
	}

	protected = presentTerms(text, protected)

	key := g.cacheKey(text, protected)
	if cached, ok := g.lookup(ctx, key, protected); ok {
		result := domain.TranslationResult{Text: cached, Provenance: domain.Translated}
		g.report(result)
		return result
	}

	attempts := make([]domain.TranslationAttempt, 0, g.cfg.MaxRetries)
	delay := g.cfg.Delay

	for n := 1; n <= g.cfg.MaxRetries; n++ {
		attempt := g.attempt(ctx, n, text, protected)
		attempts = append(attempts, attempt)

		if attempt.Succeeded() {
			result := domain.TranslationResult{
				Text:       attempt.Output,
				Provenance: domain.Translated,
				Attempts:   attempts,
			}
			g.store(ctx, key, attempt.Output)
			g.report(result)
			return result
		}

		g.logger.Warn("Translation attempt rejected",
			"attempt", n, "max_attempts", g.cfg.MaxRetries, "error", attempt.Err)

		if n == g.cfg.MaxRetries {
			break
		}
		if err := g.wait(ctx, delay); err != nil {
			g.logger.Warn("Translation retry abandoned", "attempt", n, "error", err)
			break
		}
		delay = g.nextDelay(delay)
	}

	g.logger.Error("Translation failed, keeping original text",
		"attempts", len(attempts), "text", truncate(text, 100))

	result := domain.TranslationResult{
		Text:       text,
		Provenance: domain.FellBackToOriginal,
		Attempts:   attempts,
	}
	g.report(result)
	return result
}

// nextDelay grows delay by Backoff, capped at MaxDelay. The product is
// compared as a float so that it cannot overflow time.Duration.
func (g *Gateway) nextDelay(delay time.Duration) time.Duration {
	if g.cfg.Backoff <= 1 {
		return delay
	}
	next := float64(delay) * g.cfg.Backoff
	if next >= float64(g.cfg.MaxDelay) {
		return g.cfg.MaxDelay
	}
	return time.Duration(next)
}

// attempt makes one provider call and validates its output.
func (g *Gateway) attempt(ctx context.Context, n int, text string, protected []string) domain.TranslationAttempt {
	a := domain.TranslationAttempt{Index: n, Input: text}
	start := g.now()
	defer func() {
		if g.observer != nil {
			g.observer.ObserveAttempt(a, g.now().Sub(start))
		}
	}()

	if err := ctx.Err(); err != nil {
		a.Err = fmt.Errorf("%w: %w", errNotAttemptable, err)
		return a
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.AttemptTimeout)
	defer cancel()

	out, err := g.provider.Translate(callCtx, text, g.cfg.SourceLang, g.cfg.TargetLang)
	if err != nil {
		a.Err = fmt.Errorf("provider: %w", err)
		return a
	}
	a.Output = out
	a.Err = g.validate(out, protected)
	return a
}

// validate checks the post-conditions an output must meet to be accepted.
func (g *Gateway) validate(out string, protected []string) error {
	if strings.TrimSpace(out) == "" {
		return ErrEmptyResponse
	}
	for _, s := range g.cfg.Sentinels {
		if s != "" && strings.Contains(out, s) {
			return fmt.Errorf("%w %q", ErrSentinel, s)
		}
	}
	for _, p := range protected {
		if !strings.Contains(out, p) {
			return fmt.Errorf("%w %q", ErrProtectedTerm, p)
		}
	}
	return nil
}

func (g *Gateway) lookup(ctx context.Context, key string, protected []string) (string, bool) {
	if g.cache == nil {
		return "", false
	}
	v, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		g.logger.Warn("Translation cache lookup failed", "error", err)
		return "", false
	}
	if !ok || g.validate(v, protected) != nil {
		return "", false
	}
	return v, true
}

func (g *Gateway) store(ctx context.Context, key, value string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, key, value); err != nil {
		g.logger.Warn("Translation cache store failed", "error", err)
	}
}

func (g *Gateway) cacheKey(text string, protected []string) string {
	return CacheKey(g.cfg.SourceLang, g.cfg.TargetLang, text, protected)
}

func (g *Gateway) report(result domain.TranslationResult) {
	if g.observer != nil {
		g.observer.ObserveResult(result)
	}
}

// CacheKey identifies a translation request for caching purposes.
func CacheKey(sourceLang, targetLang, text string, protected []string) string {
	var b strings.Builder
	b.WriteString(sourceLang)
	b.WriteByte('\x1f')
	b.WriteString(targetLang)
	b.WriteByte('\x1f')
	b.WriteString(text)
	for _, p := range protected {
		b.WriteByte('\x1e')
		b.WriteString(p)
	}
	return b.String()
}

// presentTerms drops empty protected terms and terms absent from the
// input; neither can be checked meaningfully against the output.
func presentTerms(text string, protected []string) []string {
	if len(protected) == 0 {
		return nil
	}
	kept := make([]string, 0, len(protected))
	for _, p := range protected {
		if p != "" && strings.Contains(text, p) {
			kept = append(kept, p)
		}
	}
	return kept
}

func sleep(ctx context.Context, d time.Duration) error {
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

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
