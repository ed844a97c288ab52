// Package app assembles the translation services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pricofy/quizlate/internal/cache"
	"github.com/pricofy/quizlate/internal/config"
	"github.com/pricofy/quizlate/internal/gateway"
	"github.com/pricofy/quizlate/internal/metrics"
	"github.com/pricofy/quizlate/internal/pipeline"
	"github.com/pricofy/quizlate/internal/protect"
	"github.com/pricofy/quizlate/internal/provider"
	"github.com/pricofy/quizlate/internal/router"
	"github.com/pricofy/quizlate/internal/segmenter"
)

// Services holds the long-lived components shared by the CLI and the Lambda.
type Services struct {
	Config         *config.Config
	Segmenter      *segmenter.Segmenter
	Provider       gateway.Provider
	GatewayOptions []gateway.Option
	// Supports reports whether the provider serves a language pair. Nil
	// means any pair.
	Supports func(source, target string) bool

	closers []io.Closer
}

// Build creates the provider, optional Redis cache and optional metrics
// collector described by cfg. A nil reg disables metrics. An unreachable
// cache is logged and skipped.
func Build(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*Services, error) {
	seg, err := cfg.Segmenter()
	if err != nil {
		return nil, err
	}

	s := &Services{Config: cfg, Segmenter: seg}

	switch cfg.Provider.Kind {
	case config.ProviderLambda:
		r, err := router.New(ctx, cfg.Lambda.Routes, cfg.Lambda.Environment)
		if err != nil {
			return nil, fmt.Errorf("failed to create router: %w", err)
		}
		s.Provider = provider.NewChunked(r, cfg.Provider.MaxChars)
		s.Supports = r.IsValidPair
	default:
		g := provider.NewGoogle(cfg.Provider.Endpoint, cfg.Provider.Timeout)
		s.Provider = provider.NewChunked(g, cfg.Provider.MaxChars)
	}
	slog.Info("Using translation provider", "kind", cfg.Provider.Kind, "max_chars", cfg.Provider.MaxChars)

	if cfg.Cache.Addr != "" {
		c, client, err := cache.NewRedis(ctx, cache.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			Prefix:   cfg.Cache.Prefix,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			slog.Warn("Translation cache disabled", "error", err)
		} else {
			slog.Info("Connected to translation cache", "addr", cfg.Cache.Addr)
			s.GatewayOptions = append(s.GatewayOptions, gateway.WithCache(c))
			s.closers = append(s.closers, client)
		}
	}

	if reg != nil {
		s.GatewayOptions = append(s.GatewayOptions, gateway.WithObserver(metrics.NewCollector(reg)))
	}

	return s, nil
}

// Gateway returns a gateway for the configured language pair.
func (s *Services) Gateway() *gateway.Gateway {
	return gateway.New(s.Provider, s.Config.GatewayConfig(), s.GatewayOptions...)
}

// Protector builds the configured term and pattern protector.
func (s *Services) Protector() (*protect.Protector, error) {
	return protect.New(s.Config.Protect.Terms, s.Config.Protect.Patterns)
}

// Pipeline returns a question pipeline over Gateway.
func (s *Services) Pipeline() (*pipeline.Pipeline, error) {
	prot, err := s.Protector()
	if err != nil {
		return nil, err
	}
	return pipeline.New(s.Segmenter, s.Gateway(),
		pipeline.WithProtector(prot),
		pipeline.WithForeignRuns(s.Config.Protect.ForeignRuns),
		pipeline.WithWorkers(s.Config.Pipeline.Workers),
	), nil
}

// Close releases connections opened by Build.
func (s *Services) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
