// Package handler provides the Lambda handler for field translation.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/pricofy/quizlate/internal/chunker"
	"github.com/pricofy/quizlate/internal/domain"
	"github.com/pricofy/quizlate/internal/gateway"
	"github.com/pricofy/quizlate/internal/pipeline"
	"github.com/pricofy/quizlate/internal/protect"
	"github.com/pricofy/quizlate/internal/segmenter"
)

// AutoDetect as sourceLang asks the handler to detect the source language.
const AutoDetect = "auto"

// Request is the input to the handler.
type Request struct {
	Fields     []domain.TextField `json:"fields"`
	SourceLang string             `json:"sourceLang"`
	TargetLang string             `json:"targetLang"`
	Protected  []string           `json:"protected,omitempty"`
}

// FieldResult is the outcome for one request field.
type FieldResult struct {
	ID         string             `json:"id"`
	Text       string             `json:"text"`
	Provenance domain.Provenance  `json:"provenance"`
	Attempts   int                `json:"attempts"`
	Runs       []domain.ScriptRun `json:"runs"`
}

// Response is the output of the handler.
type Response struct {
	Fields           []FieldResult `json:"fields,omitempty"`
	SourceLang       string        `json:"sourceLang,omitempty"`
	Translated       int           `json:"translated"`
	FellBack         int           `json:"fellBack"`
	BatchesProcessed int           `json:"batchesProcessed,omitempty"`
	Error            string        `json:"error,omitempty"`
}

// Options configures a Handler.
type Options struct {
	Gateway        gateway.Config
	GatewayOptions []gateway.Option
	Terms          []string
	Patterns       []string
	ForeignRuns    bool
	Workers        int
	// MaxBatchChars bounds the text handled by one worker at a time.
	MaxBatchChars int
	// Supports reports whether a language pair can be served. Nil accepts any pair.
	Supports func(source, target string) bool
}

// Handler translates request fields through the gateway.
type Handler struct {
	provider gateway.Provider
	seg      *segmenter.Segmenter
	opts     Options
}

// New creates a Handler.
func New(p gateway.Provider, seg *segmenter.Segmenter, opts Options) *Handler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxBatchChars <= 0 {
		opts.MaxBatchChars = chunker.DefaultMaxChars
	}
	return &Handler{provider: p, seg: seg, opts: opts}
}

// Handle processes a translation request. Request problems are reported in
// Response.Error; a field that cannot be translated falls back to its
// original text without failing the request.
func (h *Handler) Handle(ctx context.Context, req Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return &Response{Error: err.Error()}, nil
	}

	// Empty input - return immediately
	if len(req.Fields) == 0 {
		return &Response{Fields: []FieldResult{}}, nil
	}

	if req.SourceLang == AutoDetect {
		lang, err := detectLanguage(req.Fields)
		if err != nil {
			return &Response{Error: err.Error()}, nil
		}
		slog.Info("Detected source language", "sourceLang", lang)
		req.SourceLang = lang
		if req.SourceLang == req.TargetLang {
			return &Response{Error: "sourceLang and targetLang must be different"}, nil
		}
	}

	if h.opts.Supports != nil && !h.opts.Supports(req.SourceLang, req.TargetLang) {
		return &Response{
			Error: fmt.Sprintf("no translator for %s→%s", req.SourceLang, req.TargetLang),
		}, nil
	}

	prot, err := protect.New(protect.Merge(h.opts.Terms, req.Protected), h.opts.Patterns)
	if err != nil {
		return &Response{Error: fmt.Sprintf("invalid protected terms: %v", err)}, nil
	}

	cfg := h.opts.Gateway
	cfg.SourceLang = req.SourceLang
	cfg.TargetLang = req.TargetLang
	gw := gateway.New(h.provider, cfg, h.opts.GatewayOptions...)
	pl := pipeline.New(h.seg, gw,
		pipeline.WithProtector(prot),
		pipeline.WithForeignRuns(h.opts.ForeignRuns))

	texts := make([]string, len(req.Fields))
	for i, f := range req.Fields {
		texts[i] = f.Value
	}
	batches := chunker.Batch(texts, h.opts.MaxBatchChars)

	results := make([]FieldResult, len(req.Fields))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.Workers)

	start := 0
	for _, batch := range batches {
		lo, hi := start, start+len(batch)
		start = hi
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				f := pl.TranslateField(gCtx, req.Fields[i])
				results[i] = FieldResult{
					ID:         f.ID,
					Text:       f.Text,
					Provenance: f.Provenance,
					Attempts:   f.Attempts,
					Runs:       f.Runs,
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := &Response{
		Fields:           results,
		SourceLang:       req.SourceLang,
		BatchesProcessed: len(batches),
	}
	for _, r := range results {
		if r.Provenance == domain.FellBackToOriginal {
			resp.FellBack++
		} else {
			resp.Translated++
		}
	}

	slog.Info("Handled translation request",
		"sourceLang", req.SourceLang, "targetLang", req.TargetLang,
		"fields", len(results), "batches", len(batches),
		"translated", resp.Translated, "fellBack", resp.FellBack)
	return resp, nil
}

// validateRequest checks the request is valid.
func validateRequest(req Request) error {
	if req.SourceLang == "" {
		return fmt.Errorf("sourceLang is required")
	}
	if req.TargetLang == "" {
		return fmt.Errorf("targetLang is required")
	}
	if req.SourceLang == req.TargetLang {
		return fmt.Errorf("sourceLang and targetLang must be different")
	}
	if req.Fields == nil {
		return fmt.Errorf("fields is required")
	}
	if req.SourceLang != AutoDetect {
		if _, err := language.Parse(req.SourceLang); err != nil {
			return fmt.Errorf("invalid sourceLang %q", req.SourceLang)
		}
	}
	if req.TargetLang == AutoDetect {
		return fmt.Errorf("targetLang cannot be %q", AutoDetect)
	}
	if _, err := language.Parse(req.TargetLang); err != nil {
		return fmt.Errorf("invalid targetLang %q", req.TargetLang)
	}
	seen := make(map[string]bool, len(req.Fields))
	for _, f := range req.Fields {
		if f.ID == "" {
			return fmt.Errorf("field id is required")
		}
		if seen[f.ID] {
			return fmt.Errorf("duplicate field id %q", f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}

// detectLanguage guesses the language of the request text as an ISO 639-1
// code where one exists.
func detectLanguage(fields []domain.TextField) (string, error) {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f.Value)
		b.WriteByte('\n')
	}

	info := whatlanggo.Detect(b.String())
	if !info.IsReliable() {
		return "", fmt.Errorf("could not detect sourceLang, please set it explicitly")
	}

	base, err := language.ParseBase(info.Lang.Iso6393())
	if err != nil {
		return "", fmt.Errorf("unsupported detected language %q", info.Lang.Iso6393())
	}
	return base.String(), nil
}
