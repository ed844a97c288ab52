// Package render produces the printable HTML quiz document.
//
// Every translated field is written as its script runs, each wrapped in a
// span whose class selects the font for that script. Labels come from the
// embedded gettext catalogs under locales/.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/leonelquinteros/gotext"

	"github.com/pricofy/quizlate/internal/domain"
	"github.com/pricofy/quizlate/internal/pipeline"
)

//go:embed all:locales
var locales embed.FS

//go:embed document.html.tmpl
var documentTemplate string

const textDomain = "quizlate"

// CSS classes for script runs.
const (
	ClassTarget = "script-target"
	ClassOther  = "script-other"
)

// Font keys, matching ScriptClass text values.
const (
	FontTarget = "target"
	FontOther  = "other"
)

// DefaultFonts are the CSS font stacks used when none are configured.
var DefaultFonts = map[string]string{
	FontTarget: "'Noto Sans Gujarati', 'Lohit Gujarati', sans-serif",
	FontOther:  "Helvetica, Arial, sans-serif",
}

const dateLayout = "02 Jan 2006"

// Document is everything needed to render one quiz.
type Document struct {
	From      time.Time
	To        time.Time
	Generated time.Time
	Results   []pipeline.Result
	Stats     pipeline.Stats
}

// Renderer renders documents in one language.
type Renderer struct {
	lang  string
	fonts map[string]string
	po    *gotext.Locale
	tmpl  *template.Template
}

type labels struct {
	Answer      string
	Explanation string
	Category    string
	Source      string
	Summary     string
}

type questionView struct {
	No          int
	Heading     string
	Question    pipeline.Field
	Options     []pipeline.Field
	Answer      pipeline.Field
	Explanation *pipeline.Field
	Category    *pipeline.Field
	Link        string
}

type documentView struct {
	Lang      string
	Title     string
	Week      string
	Generated string
	CSS       template.CSS
	Labels    labels
	Questions []questionView
	Summary   []string
}

// New creates a Renderer for lang. Missing font entries take DefaultFonts.
func New(lang string, fonts map[string]string) (*Renderer, error) {
	merged := make(map[string]string, len(DefaultFonts))
	for k, v := range DefaultFonts {
		merged[k] = v
	}
	for k, v := range fonts {
		if v != "" {
			merged[k] = v
		}
	}

	tmpl, err := template.New("document").
		Funcs(template.FuncMap{"runClass": RunClass}).
		Parse(documentTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing document template: %w", err)
	}

	po := gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(textDomain)
	po.SetDomain(textDomain)

	return &Renderer{lang: lang, fonts: merged, po: po, tmpl: tmpl}, nil
}

// T translates a label into the renderer's language.
func (r *Renderer) T(msgid string, vars ...interface{}) string {
	return r.po.Get(msgid, vars...)
}

// RunClass returns the CSS class for a script class.
func RunClass(c domain.ScriptClass) string {
	if c == domain.TargetScript {
		return ClassTarget
	}
	return ClassOther
}

// Render writes doc as HTML to w.
func (r *Renderer) Render(w io.Writer, doc Document) error {
	view := documentView{
		Lang:      r.lang,
		Title:     r.T("Weekly Current Affairs Quiz"),
		Week:      r.T("Week of %s to %s", doc.From.Format(dateLayout), doc.To.Format(dateLayout)),
		Generated: r.T("Generated on %s", doc.Generated.Format(dateLayout+" 15:04")),
		CSS:       r.css(),
		Labels: labels{
			Answer:      r.T("Answer"),
			Explanation: r.T("Explanation"),
			Category:    r.T("Category"),
			Source:      r.T("Source"),
			Summary:     r.T("Summary"),
		},
		Summary: []string{
			r.T("Total questions: %d", doc.Stats.Questions),
			r.T("Translated fields: %d", doc.Stats.Translated),
			r.T("Fields kept in original: %d", doc.Stats.FellBack),
		},
	}

	for _, res := range doc.Results {
		qv, err := r.question(res)
		if err != nil {
			return err
		}
		view.Questions = append(view.Questions, qv)
	}

	return r.tmpl.Execute(w, view)
}

// WriteFile renders doc into path.
func (r *Renderer) WriteFile(path string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Render(f, doc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("Rendered document", "file", path, "lang", r.lang, "questions", len(doc.Results))
	return nil
}

// question maps the fields of res back onto the parts of the question,
// in the order domain.Question.Fields produces them.
func (r *Renderer) question(res pipeline.Result) (questionView, error) {
	q := res.Original
	want := len(q.Fields())
	if len(res.Fields) != want {
		return questionView{}, fmt.Errorf("question %d: got %d fields, want %d", q.No, len(res.Fields), want)
	}

	fields := res.Fields
	qv := questionView{
		No:       q.No,
		Heading:  r.T("Q. %d", q.No),
		Question: fields[0],
		Link:     q.Link,
	}
	fields = fields[1:]

	qv.Options = fields[:len(q.Options)]
	fields = fields[len(q.Options):]

	qv.Answer = fields[0]
	fields = fields[1:]

	if q.Explanation != "" {
		qv.Explanation = &fields[0]
		fields = fields[1:]
	}
	if q.Category != "" {
		qv.Category = &fields[0]
	}
	return qv, nil
}

func (r *Renderer) css() template.CSS {
	var b strings.Builder
	fmt.Fprintf(&b, ".%s { font-family: %s; }\n", ClassTarget, fontStack(r.fonts[FontTarget]))
	fmt.Fprintf(&b, ".%s { font-family: %s; }\n", ClassOther, fontStack(r.fonts[FontOther]))
	return template.CSS(b.String())
}

// fontStack drops characters that could end the font-family declaration.
func fontStack(stack string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>', '\\':
			return -1
		}
		return r
	}, stack)
	return strings.TrimSpace(clean)
}
