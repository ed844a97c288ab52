// Package config loads quizlate configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pricofy/quizlate/internal/gateway"
	"github.com/pricofy/quizlate/internal/router"
	"github.com/pricofy/quizlate/internal/scraper"
	"github.com/pricofy/quizlate/internal/segmenter"
)

// Provider kinds.
const (
	ProviderGoogle = "google"
	ProviderLambda = "lambda"
)

// Config holds application configuration.
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	Scripts  ScriptsConfig  `yaml:"scripts"`
	Provider ProviderConfig `yaml:"provider"`
	Lambda   LambdaConfig   `yaml:"lambda"`
	Cache    CacheConfig    `yaml:"cache"`
	Protect  ProtectConfig  `yaml:"protect"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// GatewayConfig controls retry behaviour of the translation gateway.
type GatewayConfig struct {
	SourceLang     string        `yaml:"source_lang"`
	TargetLang     string        `yaml:"target_lang"`
	MaxRetries     int           `yaml:"max_retries"`
	Delay          time.Duration `yaml:"delay"`
	Backoff        float64       `yaml:"backoff"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	Sentinels      []string      `yaml:"sentinels"`
}

// ScriptsConfig names the target script and its code point ranges.
type ScriptsConfig struct {
	Target string       `yaml:"target"`
	Ranges []RangeEntry `yaml:"ranges"`
	// Fonts maps a script class ("target", "other") to a CSS font family.
	// A fonts map in the file replaces the default one.
	Fonts map[string]string `yaml:"fonts"`
}

// RangeEntry is an inclusive code point range written as hex ("0x0A80" or "U+0A80").
type RangeEntry struct {
	Lo CodePoint `yaml:"lo"`
	Hi CodePoint `yaml:"hi"`
}

// CodePoint decodes a hex or decimal code point from YAML.
type CodePoint rune

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *CodePoint) UnmarshalYAML(value *yaml.Node) error {
	r, err := ParseCodePoint(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*c = CodePoint(r)
	return nil
}

// MarshalYAML renders the code point as U+XXXX.
func (c CodePoint) MarshalYAML() (interface{}, error) {
	return fmt.Sprintf("U+%04X", rune(c)), nil
}

// ParseCodePoint accepts "U+0A80", "0x0A80" or a decimal number.
func ParseCodePoint(s string) (rune, error) {
	s = strings.TrimSpace(s)
	base := 10
	switch {
	case strings.HasPrefix(s, "U+"), strings.HasPrefix(s, "u+"):
		s, base = s[2:], 16
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s, base = s[2:], 16
	}
	n, err := strconv.ParseInt(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid code point %q", s)
	}
	return rune(n), nil
}

// ProviderConfig selects and configures the translation provider.
type ProviderConfig struct {
	Kind     string        `yaml:"kind"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	MaxChars int           `yaml:"max_chars"`
}

// LambdaConfig configures the Lambda-backed provider.
type LambdaConfig struct {
	Environment string `yaml:"environment"`
	// Routes in the file replace DefaultRoutes entirely.
	Routes router.Routes `yaml:"routes"`
}

// CacheConfig configures the Redis translation cache. Empty Addr disables it.
type CacheConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// ProtectConfig lists terms and patterns that must survive translation.
type ProtectConfig struct {
	Terms    []string `yaml:"terms"`
	Patterns []string `yaml:"patterns"`
	// ForeignRuns protects latin runs in text already written in the target script.
	ForeignRuns bool `yaml:"foreign_runs"`
}

// ScraperConfig configures the quiz scrapers.
type ScraperConfig struct {
	BaseURL string `yaml:"base_url"`
	// PendulumURL is the quiz index of the second source. Empty disables it.
	PendulumURL string        `yaml:"pendulum_url"`
	Days        int           `yaml:"days"`
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
}

// OutputConfig sets where snapshots and documents go.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// MetricsConfig configures the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// PipelineConfig controls field-level parallelism.
type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			SourceLang:     gateway.DefaultSourceLang,
			TargetLang:     gateway.DefaultTargetLang,
			MaxRetries:     gateway.DefaultMaxRetries,
			Delay:          gateway.DefaultDelay,
			AttemptTimeout: gateway.DefaultAttemptTimeout,
			MaxDelay:       gateway.DefaultMaxDelay,
			Sentinels:      []string{gateway.DefaultSentinel},
		},
		Scripts: ScriptsConfig{
			Target: "gujarati",
			Ranges: []RangeEntry{{Lo: CodePoint(segmenter.Gujarati.Lo), Hi: CodePoint(segmenter.Gujarati.Hi)}},
			Fonts: map[string]string{
				"target": "'Noto Sans Gujarati', 'Lohit Gujarati', sans-serif",
				"other":  "Helvetica, Arial, sans-serif",
			},
		},
		Provider: ProviderConfig{
			Kind:     ProviderGoogle,
			Timeout:  30 * time.Second,
			MaxChars: 4500,
		},
		Lambda: LambdaConfig{
			Routes: router.DefaultRoutes(),
		},
		Cache: CacheConfig{
			TTL: 30 * 24 * time.Hour,
		},
		Scraper: ScraperConfig{
			BaseURL:     scraper.DefaultBaseURL,
			PendulumURL: scraper.DefaultPendulumURL,
			Days:        7,
			Timeout:     30 * time.Second,
		},
		Output:   OutputConfig{Dir: "output"},
		Log:      LogConfig{File: "logs/quizlate.log", Level: "info"},
		Pipeline: PipelineConfig{Workers: 1},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("Config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := cfg.decode(data); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode unmarshals data over c. yaml.v3 merges mappings into existing
// maps, so the default maps are cleared first and restored only when the
// file leaves them out.
func (c *Config) decode(data []byte) error {
	routes, fonts := c.Lambda.Routes, c.Scripts.Fonts
	c.Lambda.Routes, c.Scripts.Fonts = nil, nil

	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}

	if c.Lambda.Routes == nil {
		c.Lambda.Routes = routes
	}
	if c.Scripts.Fonts == nil {
		c.Scripts.Fonts = fonts
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Gateway.SourceLang = getEnv("QUIZLATE_SOURCE_LANG", c.Gateway.SourceLang)
	c.Gateway.TargetLang = getEnv("QUIZLATE_TARGET_LANG", c.Gateway.TargetLang)
	c.Provider.Kind = getEnv("QUIZLATE_PROVIDER", c.Provider.Kind)
	c.Lambda.Environment = getEnv("ENVIRONMENT", c.Lambda.Environment)
	c.Cache.Addr = getEnv("REDIS_ADDR", c.Cache.Addr)
	c.Cache.Password = getEnv("REDIS_PASSWORD", c.Cache.Password)
	c.Output.Dir = getEnv("OUTPUT_DIR", c.Output.Dir)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Metrics.Addr = getEnv("METRICS_ADDR", c.Metrics.Addr)

	var err error
	if v, ok := os.LookupEnv("QUIZLATE_MAX_RETRIES"); ok {
		if c.Gateway.MaxRetries, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid QUIZLATE_MAX_RETRIES %q: %w", v, err)
		}
	}
	if v, ok := os.LookupEnv("QUIZLATE_RETRY_DELAY"); ok {
		if c.Gateway.Delay, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid QUIZLATE_RETRY_DELAY %q: %w", v, err)
		}
	}
	if v, ok := os.LookupEnv("QUIZLATE_WORKERS"); ok {
		if c.Pipeline.Workers, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid QUIZLATE_WORKERS %q: %w", v, err)
		}
	}
	return nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Gateway.MaxRetries < 1 {
		problems = append(problems, "gateway.max_retries must be at least 1")
	}
	if c.Gateway.Delay < 0 {
		problems = append(problems, "gateway.delay must not be negative")
	}
	if c.Gateway.MaxDelay < 0 {
		problems = append(problems, "gateway.max_delay must not be negative")
	}
	if c.Gateway.SourceLang == "" || c.Gateway.TargetLang == "" {
		problems = append(problems, "gateway.source_lang and gateway.target_lang are required")
	}
	if len(c.Scripts.Ranges) == 0 {
		problems = append(problems, "scripts.ranges must not be empty")
	}
	switch c.Provider.Kind {
	case ProviderGoogle, ProviderLambda:
	default:
		problems = append(problems, fmt.Sprintf("provider.kind %q is not one of google, lambda", c.Provider.Kind))
	}
	if c.Scraper.Days < 1 {
		problems = append(problems, "scraper.days must be at least 1")
	}
	if c.Pipeline.Workers < 1 {
		problems = append(problems, "pipeline.workers must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	if _, err := c.Segmenter(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GatewayConfig converts the gateway section.
func (c *Config) GatewayConfig() gateway.Config {
	return gateway.Config{
		SourceLang:     c.Gateway.SourceLang,
		TargetLang:     c.Gateway.TargetLang,
		MaxRetries:     c.Gateway.MaxRetries,
		Delay:          c.Gateway.Delay,
		Backoff:        c.Gateway.Backoff,
		MaxDelay:       c.Gateway.MaxDelay,
		AttemptTimeout: c.Gateway.AttemptTimeout,
		Sentinels:      c.Gateway.Sentinels,
	}
}

// Segmenter builds a segmenter from the scripts section.
func (c *Config) Segmenter() (*segmenter.Segmenter, error) {
	ranges := make([]segmenter.Range, 0, len(c.Scripts.Ranges))
	for _, r := range c.Scripts.Ranges {
		ranges = append(ranges, segmenter.Range{Lo: rune(r.Lo), Hi: rune(r.Hi)})
	}
	return segmenter.New(ranges...)
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
