package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const dayPage = `<html><body>
<div class="bix-div-container">
  <table>
    <tr><td class="bix-td-qtxt">Which city hosted the
      G20 summit in 2023?</td></tr>
    <tr class="bix-tbl-options"><td class="bix-td-option-val">New Delhi</td></tr>
    <tr class="bix-tbl-options"><td class="bix-td-option-val">Mumbai</td></tr>
    <tr class="bix-tbl-options"><td class="bix-td-option-val"> </td></tr>
  </table>
  <div class="bix-div-answer">View Answer Option A: New Delhi</div>
  <div class="bix-ans-description">India held the presidency in 2023.</div>
  <div class="bix-div-category">International</div>
</div>
<div class="bix-div-container">
  <table><tr><td class="bix-td-qtxt">Who is the RBI governor?</td></tr></table>
</div>
<div class="bix-div-container"><p>advert</p></div>
</body></html>`

func TestParsePage(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(dayPage))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	qs := ParsePage(doc, "2024-02-20", "https://example/2024/02/20/")
	if len(qs) != 2 {
		t.Fatalf("got %d questions, want 2", len(qs))
	}

	q := qs[0]
	if q.Question != "Which city hosted the G20 summit in 2023?" {
		t.Errorf("Question = %q", q.Question)
	}
	if len(q.Options) != 2 || q.Options[0] != "New Delhi" || q.Options[1] != "Mumbai" {
		t.Errorf("Options = %q", q.Options)
	}
	if q.Answer != "Option A: New Delhi" {
		t.Errorf("Answer = %q", q.Answer)
	}
	if q.Explanation != "India held the presidency in 2023." {
		t.Errorf("Explanation = %q", q.Explanation)
	}
	if q.Category != "International" {
		t.Errorf("Category = %q", q.Category)
	}
	if q.Source != SourceName || q.Date != "2024-02-20" {
		t.Errorf("Source/Date = %q/%q", q.Source, q.Date)
	}

	if qs[1].Answer != NoAnswer {
		t.Errorf("missing answer = %q, want %q", qs[1].Answer, NoAnswer)
	}
	if len(qs[1].Options) != 0 {
		t.Errorf("Options = %q, want none", qs[1].Options)
	}
}

func TestDateRange(t *testing.T) {
	now := time.Date(2025, 12, 28, 10, 0, 0, 0, time.UTC)
	dates := DateRange(now, 7)

	if len(dates) != 7 {
		t.Fatalf("got %d dates, want 7", len(dates))
	}
	if dates[0].Day() != 28 || dates[6].Day() != 22 {
		t.Errorf("range = %v .. %v", dates[0], dates[6])
	}

	for _, days := range []int{0, -1} {
		if got := DateRange(now, days); got != nil {
			t.Errorf("DateRange(now, %d) = %v, want nil", days, got)
		}
	}
}

func TestScrape(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		switch r.URL.Path {
		case "/current-affairs/2024/02/20/":
			_, _ = w.Write([]byte(dayPage))
		case "/current-affairs/2024/02/19/":
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			_, _ = w.Write([]byte("<html><body>nothing</body></html>"))
		}
	}))
	defer srv.Close()

	s := New(srv.URL, "", 5*time.Second)
	now := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	qs := s.Scrape(context.Background(), DateRange(now, 3))

	if len(paths) != 3 {
		t.Errorf("fetched %v, want 3 pages", paths)
	}
	if len(qs) != 2 {
		t.Fatalf("got %d questions, want 2", len(qs))
	}
	if qs[0].No != 1 || qs[1].No != 2 {
		t.Errorf("numbering = %d, %d", qs[0].No, qs[1].No)
	}
	if !strings.HasSuffix(qs[0].Link, "/current-affairs/2024/02/20/") {
		t.Errorf("Link = %q", qs[0].Link)
	}
}
