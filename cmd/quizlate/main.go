// quizlate scrapes weekly current-affairs questions, translates them into
// an Indic language and renders a printable quiz.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pricofy/quizlate/internal/app"
	"github.com/pricofy/quizlate/internal/config"
	"github.com/pricofy/quizlate/internal/domain"
	"github.com/pricofy/quizlate/internal/logging"
	"github.com/pricofy/quizlate/internal/metrics"
	"github.com/pricofy/quizlate/internal/pipeline"
	"github.com/pricofy/quizlate/internal/render"
	"github.com/pricofy/quizlate/internal/scraper"
	"github.com/pricofy/quizlate/internal/snapshot"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	configPath  string
	metricsAddr string
	targetLang  string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizlate",
		Short: "Scrape, translate and render weekly current-affairs quizzes",
		Long: `quizlate scrapes a week of current-affairs questions, translates every
field through a retrying translation gateway and renders an HTML quiz in
which each run of text is tagged with its script for font selection.

Commands:
  run         Scrape, translate and render a new quiz
  translate   Translate a saved English snapshot
  segment     Print the script runs of a text
  version     Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "quizlate.yaml", "Configuration file")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	root.PersistentFlags().StringVar(&targetLang, "lang", "", "Target language (overrides config)")

	root.AddCommand(
		newRunCmd(),
		newTranslateCmd(),
		newSegmentCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the logger.
func setup() (*config.Config, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if targetLang != "" {
		cfg.Gateway.TargetLang = targetLang
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}

	_, closer := logging.Setup(logging.Options{
		File:    cfg.Log.File,
		Level:   cfg.Log.Level,
		Service: "quizlate",
	})
	return cfg, closer, nil
}

// services builds the translation stack, exposing metrics when configured.
func services(ctx context.Context, cfg *config.Config) (*app.Services, error) {
	var reg prometheus.Registerer
	if cfg.Metrics.Addr != "" {
		reg = prometheus.DefaultRegisterer
		go metrics.Expose(cfg.Metrics.Addr)
	}
	return app.Build(ctx, cfg, reg)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ---------------------------------------------------------------------------
// run
// ---------------------------------------------------------------------------

func newRunCmd() *cobra.Command {
	var days int
	var outputDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape, translate and render a new quiz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := setup()
			if err != nil {
				return err
			}
			defer closer.Close()

			if days > 0 {
				cfg.Scraper.Days = days
			}
			if outputDir != "" {
				cfg.Output.Dir = outputDir
			}

			ctx, cancel := signalContext()
			defer cancel()

			return runQuiz(ctx, cfg, time.Now())
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Number of days to scrape (overrides config)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (overrides config)")

	return cmd
}

func runQuiz(ctx context.Context, cfg *config.Config, now time.Time) error {
	slog.Info("Starting quiz run", "days", cfg.Scraper.Days, "target_lang", cfg.Gateway.TargetLang)

	svc, err := services(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	dates := scraper.DateRange(now, cfg.Scraper.Days)
	questions := scraper.Collect(ctx, dates, sources(cfg.Scraper)...)
	if len(questions) == 0 {
		return fmt.Errorf("no questions found for the last %d days", cfg.Scraper.Days)
	}

	run, err := snapshot.NewRun(cfg.Output.Dir, now)
	if err != nil {
		return err
	}
	if _, err := run.Save(snapshot.SourceFile, questions); err != nil {
		return err
	}

	return translateAndRender(ctx, svc, run, questions, dates[len(dates)-1], dates[0], now)
}

// sources returns IndiaBix, then PendulumEdu when its index is configured.
func sources(cfg config.ScraperConfig) []scraper.Source {
	srcs := []scraper.Source{scraper.New(cfg.BaseURL, cfg.UserAgent, cfg.Timeout)}
	if cfg.PendulumURL != "" {
		srcs = append(srcs, scraper.NewPendulum(cfg.PendulumURL, cfg.UserAgent, cfg.Timeout))
	}
	return srcs
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate <snapshot.json>",
		Short: "Translate a saved English snapshot",
		Long: `Translate the questions of a saved snapshot and write the translated
snapshot and HTML quiz next to it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := setup()
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, cancel := signalContext()
			defer cancel()

			questions, err := snapshot.Read(args[0])
			if err != nil {
				return err
			}
			if len(questions) == 0 {
				return fmt.Errorf("%s has no questions", args[0])
			}

			svc, err := services(ctx, cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			now := time.Now()
			run, err := snapshot.Open(filepath.Dir(args[0]))
			if err != nil {
				slog.Debug("Snapshot is not inside a run directory", "path", args[0], "error", err)
				if run, err = snapshot.NewRun(cfg.Output.Dir, now); err != nil {
					return err
				}
			}

			from, to := weekBounds(questions, now)
			return translateAndRender(ctx, svc, run, questions, from, to, now)
		},
	}

	return cmd
}

func translateAndRender(ctx context.Context, svc *app.Services, run *snapshot.Run, questions []domain.Question, from, to, now time.Time) error {
	lang := svc.Config.Gateway.TargetLang

	pl, err := svc.Pipeline()
	if err != nil {
		return err
	}
	results, stats := pl.TranslateAll(ctx, questions)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("translation interrupted: %w", err)
	}

	if _, err := run.Save(snapshot.TranslatedFile(lang), pipeline.Translated(results)); err != nil {
		return err
	}

	r, err := render.New(lang, svc.Config.Scripts.Fonts)
	if err != nil {
		return err
	}
	htmlPath := run.Path(fmt.Sprintf("quiz_%s.html", lang))
	if err := r.WriteFile(htmlPath, render.Document{
		From:      from,
		To:        to,
		Generated: now,
		Results:   results,
		Stats:     stats,
	}); err != nil {
		return err
	}

	slog.Info("Quiz ready",
		"dir", run.Dir, "questions", stats.Questions,
		"translated", stats.Translated, "fell_back", stats.FellBack)
	fmt.Printf("%s\n", htmlPath)
	return nil
}

// weekBounds returns the earliest and latest question dates, or the week
// ending at now when no question carries a parseable date.
func weekBounds(questions []domain.Question, now time.Time) (time.Time, time.Time) {
	var from, to time.Time
	for _, q := range questions {
		d, err := time.Parse("2006-01-02", q.Date)
		if err != nil {
			continue
		}
		if from.IsZero() || d.Before(from) {
			from = d
		}
		if to.IsZero() || d.After(to) {
			to = d
		}
	}
	if from.IsZero() {
		return now.AddDate(0, 0, -6), now
	}
	return from, to
}

// ---------------------------------------------------------------------------
// segment
// ---------------------------------------------------------------------------

func newSegmentCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "segment <text>",
		Short: "Print the script runs of a text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			seg, err := cfg.Segmenter()
			if err != nil {
				return err
			}

			runs := seg.Segment(args[0])
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			for _, r := range runs {
				fmt.Fprintf(out, "%d\t%s\t%q\n", r.Start, r.Class, r.Text)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")

	return cmd
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "quizlate version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}

	return cmd
}
