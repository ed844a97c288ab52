// Package pipeline runs scraped questions through protection, translation
// and script segmentation.
package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pricofy/quizlate/internal/domain"
	"github.com/pricofy/quizlate/internal/protect"
	"github.com/pricofy/quizlate/internal/segmenter"
)

// Translator is the gateway as seen by the pipeline.
type Translator interface {
	Translate(ctx context.Context, text string, protected ...string) domain.TranslationResult
}

// Field is one translated text field, ready for a renderer.
type Field struct {
	ID         string             `json:"id"`
	Source     string             `json:"source"`
	Text       string             `json:"text"`
	Provenance domain.Provenance  `json:"provenance"`
	Attempts   int                `json:"attempts"`
	Protected  []string           `json:"protected,omitempty"`
	Runs       []domain.ScriptRun `json:"runs"`
}

// Result is a translated question together with its per-field details.
type Result struct {
	Original   domain.Question `json:"original"`
	Translated domain.Question `json:"translated"`
	Fields     []Field         `json:"fields"`
}

// Stats summarises a run.
type Stats struct {
	Questions  int `json:"questions"`
	Fields     int `json:"fields"`
	Translated int `json:"translated"`
	FellBack   int `json:"fell_back"`
}

// Pipeline is safe for concurrent use if its Translator is.
type Pipeline struct {
	seg         *segmenter.Segmenter
	translator  Translator
	protector   *protect.Protector
	foreignRuns bool
	workers     int
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithProtector sets the term/pattern protector.
func WithProtector(p *protect.Protector) Option {
	return func(pl *Pipeline) { pl.protector = p }
}

// WithForeignRuns protects other-script runs of fields already written in
// the target script.
func WithForeignRuns(enabled bool) Option {
	return func(pl *Pipeline) { pl.foreignRuns = enabled }
}

// WithWorkers sets how many questions are translated concurrently.
func WithWorkers(n int) Option {
	return func(pl *Pipeline) {
		if n > 0 {
			pl.workers = n
		}
	}
}

// New creates a Pipeline.
func New(seg *segmenter.Segmenter, t Translator, opts ...Option) *Pipeline {
	p := &Pipeline{seg: seg, translator: t, workers: 1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Protected returns the substrings of text that must survive translation.
func (p *Pipeline) Protected(text string) []string {
	terms := p.protector.Find(text)
	if p.foreignRuns && p.seg.HasTarget(text) {
		terms = protect.Merge(terms, protect.FromRuns(p.seg.Segment(text)))
	}
	return terms
}

// TranslateField translates one field and segments the result.
func (p *Pipeline) TranslateField(ctx context.Context, f domain.TextField) Field {
	protected := p.Protected(f.Value)
	res := p.translator.Translate(ctx, f.Value, protected...)

	slog.Debug("Translated field", "id", f.ID, "provenance", res.Provenance.String(), "attempts", len(res.Attempts))

	return Field{
		ID:         f.ID,
		Source:     f.Value,
		Text:       res.Text,
		Provenance: res.Provenance,
		Attempts:   len(res.Attempts),
		Protected:  protected,
		Runs:       p.seg.Segment(res.Text),
	}
}

// TranslateQuestion translates every field of q. A field that falls back
// keeps its original text; the other fields are unaffected.
func (p *Pipeline) TranslateQuestion(ctx context.Context, q domain.Question) Result {
	slog.Info("Translating question", "question_no", q.No)

	sources := q.Fields()
	fields := make([]Field, len(sources))
	values := make([]string, len(sources))
	for i, f := range sources {
		fields[i] = p.TranslateField(ctx, f)
		values[i] = fields[i].Text
	}

	translated, err := q.WithFields(values)
	if err != nil {
		// Unreachable: values is built from q.Fields().
		slog.Error("Failed to rebuild question", "question_no", q.No, "error", err)
		translated = q
	}

	return Result{Original: q, Translated: translated, Fields: fields}
}

// TranslateAll translates questions with up to the configured number of
// workers, preserving input order.
func (p *Pipeline) TranslateAll(ctx context.Context, questions []domain.Question) ([]Result, Stats) {
	results := make([]Result, len(questions))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, q := range questions {
		g.Go(func() error {
			results[i] = p.TranslateQuestion(gCtx, q)
			return nil
		})
	}
	_ = g.Wait()

	stats := Summarize(results)
	slog.Info("Finished translating batch",
		"questions", stats.Questions, "fields", stats.Fields,
		"translated", stats.Translated, "fell_back", stats.FellBack)
	return results, stats
}

// Summarize counts field outcomes across results.
func Summarize(results []Result) Stats {
	s := Stats{Questions: len(results)}
	for _, r := range results {
		for _, f := range r.Fields {
			s.Fields++
			if f.Provenance == domain.FellBackToOriginal {
				s.FellBack++
			} else {
				s.Translated++
			}
		}
	}
	return s
}

// Translated returns the translated questions of results, in order.
func Translated(results []Result) []domain.Question {
	out := make([]domain.Question, len(results))
	for i, r := range results {
		out[i] = r.Translated
	}
	return out
}
