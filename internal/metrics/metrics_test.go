package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pricofy/quizlate/internal/domain"
	"github.com/pricofy/quizlate/internal/gateway"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, "accepted"},
		{fmt.Errorf("%w %q", gateway.ErrSentinel, "x"), "sentinel"},
		{fmt.Errorf("%w %q", gateway.ErrProtectedTerm, "Delhi"), "protected_term"},
		{gateway.ErrEmptyResponse, "empty"},
		{errors.New("timeout"), "provider_error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := Outcome(domain.TranslationAttempt{Err: tt.err})
			if got != tt.expected {
				t.Errorf("Outcome() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCollector_WithGateway(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	n := 0
	p := gateway.ProviderFunc(func(context.Context, string, string, string) (string, error) {
		n++
		if n == 1 {
			return "", errors.New("reset")
		}
		return "ok", nil
	})
	g := gateway.New(p, gateway.Config{Delay: time.Millisecond}, gateway.WithObserver(c))

	g.Translate(context.Background(), "hello")

	if v := testutil.ToFloat64(c.attempts.WithLabelValues("provider_error")); v != 1 {
		t.Errorf("provider_error attempts = %v, want 1", v)
	}
	if v := testutil.ToFloat64(c.attempts.WithLabelValues("accepted")); v != 1 {
		t.Errorf("accepted attempts = %v, want 1", v)
	}
	if v := testutil.ToFloat64(c.results.WithLabelValues("translated")); v != 1 {
		t.Errorf("translated results = %v, want 1", v)
	}
}
