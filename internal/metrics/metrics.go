// Package metrics exposes Prometheus metrics for the translation gateway.
package metrics

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pricofy/quizlate/internal/domain"
	"github.com/pricofy/quizlate/internal/gateway"
)

// Collector implements gateway.Observer.
type Collector struct {
	attempts        *prometheus.CounterVec
	attemptDuration prometheus.Histogram
	results         *prometheus.CounterVec
	attemptsPerCall prometheus.Histogram
}

// NewCollector creates the gateway metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizlate_translation_attempts_total",
				Help: "Provider calls made by the gateway, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		attemptDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quizlate_translation_attempt_duration_seconds",
				Help:    "Duration of single provider calls in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizlate_translation_results_total",
				Help: "Gateway results, labeled by provenance.",
			},
			[]string{"provenance"},
		),
		attemptsPerCall: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quizlate_translation_attempts_per_call",
				Help:    "Provider calls needed per gateway call.",
				Buckets: []float64{0, 1, 2, 3, 5, 8},
			},
		),
	}
	reg.MustRegister(c.attempts, c.attemptDuration, c.results, c.attemptsPerCall)
	return c
}

// Outcome labels an attempt for the attempts counter.
func Outcome(a domain.TranslationAttempt) string {
	switch {
	case a.Err == nil:
		return "accepted"
	case errors.Is(a.Err, gateway.ErrSentinel):
		return "sentinel"
	case errors.Is(a.Err, gateway.ErrProtectedTerm):
		return "protected_term"
	case errors.Is(a.Err, gateway.ErrEmptyResponse):
		return "empty"
	default:
		return "provider_error"
	}
}

// ObserveAttempt implements gateway.Observer.
func (c *Collector) ObserveAttempt(a domain.TranslationAttempt, elapsed time.Duration) {
	c.attempts.WithLabelValues(Outcome(a)).Inc()
	c.attemptDuration.Observe(elapsed.Seconds())
}

// ObserveResult implements gateway.Observer.
func (c *Collector) ObserveResult(r domain.TranslationResult) {
	c.results.WithLabelValues(r.Provenance.String()).Inc()
	c.attemptsPerCall.Observe(float64(len(r.Attempts)))
}

// Expose serves the default registry on addr until the server fails.
func Expose(addr string) {
	slog.Info("Exposing Prometheus metrics", "address", addr)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("Failed to start Prometheus metrics server", "error", err)
	}
}
