package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pricofy/quizlate/internal/config"
	"github.com/pricofy/quizlate/internal/domain"
	"github.com/pricofy/quizlate/internal/snapshot"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	require.NoError(t, root.Execute())
	return out.String()
}

func TestSegmentCmd(t *testing.T) {
	out := execute(t, "segment", "નમસ્તે hi")
	require.Equal(t, "0\ttarget\t\"નમસ્તે\"\n18\tother\t\" hi\"\n", out)
}

func TestSegmentCmd_JSON(t *testing.T) {
	out := execute(t, "segment", "--json", "hi ગુ")

	var runs []domain.ScriptRun
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 2)
	require.Equal(t, domain.TargetScript, runs[1].Class)
	require.Equal(t, 3, runs[1].Start)
}

func TestVersionCmd(t *testing.T) {
	out := execute(t, "version")
	require.True(t, strings.HasPrefix(out, "quizlate version dev\n"))
}

func TestWeekBounds(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	from, to := weekBounds([]domain.Question{
		{Date: "2024-02-18"}, {Date: "2024-02-20"}, {Date: "bad"}, {Date: "2024-02-14"},
	}, now)
	require.Equal(t, "2024-02-14", from.Format("2006-01-02"))
	require.Equal(t, "2024-02-20", to.Format("2006-01-02"))

	from, to = weekBounds([]domain.Question{{}}, now)
	require.Equal(t, "2024-02-24", from.Format("2006-01-02"))
	require.Equal(t, now, to)
}

const quizPage = `<html><body>
<div class="bix-div-container">
  <table>
    <tr><td class="bix-td-qtxt">Which state has Gandhinagar as capital?</td></tr>
    <tr class="bix-tbl-options"><td class="bix-td-option-val">Gujarat</td></tr>
    <tr class="bix-tbl-options"><td class="bix-td-option-val">Rajasthan</td></tr>
  </table>
  <div class="bix-div-answer">View Answer Gujarat</div>
</div>
</body></html>`

const pendulumIndex = `<html><body>
<a href="/quiz/daily-20-feb">Current Affairs Quiz 20 February 2024</a>
<a href="/quiz/daily-10-feb">Current Affairs Quiz 10 February 2024</a>
</body></html>`

const pendulumQuiz = `<html><body>
<p>Q1. Which bank released the monetary policy this week?</p>
<p>A. RBI</p>
<p>Ans. A</p>
</body></html>`

func TestRunQuiz(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/current-affairs/2024/02/20/":
			_, _ = w.Write([]byte(quizPage))
		case r.URL.Path == "/quiz/":
			_, _ = w.Write([]byte(pendulumIndex))
		case r.URL.Path == "/quiz/daily-20-feb":
			_, _ = w.Write([]byte(pendulumQuiz))
		case r.URL.Path == "/translate_a/single":
			q := r.URL.Query().Get("q")
			translated := "અનુવાદ " + q
			if q == "Rajasthan" {
				translated = "\uFFFD"
			}
			body, _ := json.Marshal([]interface{}{[]interface{}{[]interface{}{translated, q, nil, nil}}, nil, "en"})
			_, _ = w.Write(body)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Scraper.BaseURL = srv.URL
	cfg.Scraper.PendulumURL = srv.URL + "/quiz/"
	cfg.Scraper.Days = 1
	cfg.Provider.Endpoint = srv.URL + "/translate_a/single"
	cfg.Gateway.MaxRetries = 2
	cfg.Gateway.Delay = time.Millisecond
	cfg.Output.Dir = t.TempDir()

	now := time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)
	require.NoError(t, runQuiz(context.Background(), cfg, now))

	entries, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	run, err := snapshot.Open(filepath.Join(cfg.Output.Dir, entries[0].Name()))
	require.NoError(t, err)

	english, err := run.Load(snapshot.SourceFile)
	require.NoError(t, err)
	require.Len(t, english, 2)
	require.Equal(t, "Which state has Gandhinagar as capital?", english[0].Question)
	require.Equal(t, "IndiaBix", english[0].Source)
	require.Equal(t, "PendulumEdu", english[1].Source)
	require.Equal(t, 2, english[1].No)
	require.Equal(t, []string{"A. RBI"}, english[1].Options)

	gujarati, err := run.Load(snapshot.TranslatedFile("gu"))
	require.NoError(t, err)
	require.Equal(t, "અનુવાદ Which state has Gandhinagar as capital?", gujarati[0].Question)
	require.Equal(t, []string{"અનુવાદ Gujarat", "Rajasthan"}, gujarati[0].Options)

	html, err := os.ReadFile(run.Path("quiz_gu.html"))
	require.NoError(t, err)
	require.Contains(t, string(html), `<span class="script-target">અનુવાદ</span>`)
	require.Contains(t, string(html), "મૂળ ભાષામાં રાખેલ ફીલ્ડ: 1")
}

func TestRunQuiz_NoQuestions(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := config.Default()
	cfg.Scraper.BaseURL = srv.URL
	cfg.Scraper.PendulumURL = srv.URL + "/quiz/"
	cfg.Scraper.Days = 2
	cfg.Output.Dir = t.TempDir()

	err := runQuiz(context.Background(), cfg, time.Now())
	require.ErrorContains(t, err, "no questions found")
}
