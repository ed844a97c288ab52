// Package scraper collects current-affairs questions from IndiaBix daily
// pages and PendulumEdu quizzes.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricofy/quizlate/internal/domain"
)

// Defaults for New.
const (
	DefaultBaseURL   = "https://www.indiabix.com"
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	SourceName       = "IndiaBix"
	// NoAnswer is used when a question block has no answer element.
	NoAnswer = "Refer to website"
)

// Source is one question site.
type Source interface {
	Name() string
	Scrape(ctx context.Context, dates []time.Time) []domain.Question
}

// Collect scrapes every source in turn and concatenates their questions,
// grouped by source in the given order and numbered from 1.
func Collect(ctx context.Context, dates []time.Time, sources ...Source) []domain.Question {
	var all []domain.Question
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		qs := src.Scrape(ctx, dates)
		slog.Info("Source collected", "source", src.Name(), "questions", len(qs))
		all = append(all, qs...)
	}
	number(all)
	return all
}

func number(questions []domain.Question) {
	for i := range questions {
		questions[i].No = i + 1
	}
}

// fetcher performs browser-like GETs and parses the HTML.
type fetcher struct {
	client    *http.Client
	userAgent string
}

func newFetcher(userAgent string, timeout time.Duration) fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return fetcher{client: &http.Client{Timeout: timeout}, userAgent: userAgent}
}

// Scraper fetches and parses IndiaBix daily question pages.
type Scraper struct {
	fetcher
	baseURL string
}

// New creates a Scraper. Empty arguments take defaults.
func New(baseURL, userAgent string, timeout time.Duration) *Scraper {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Scraper{
		fetcher: newFetcher(userAgent, timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the source name stamped on IndiaBix questions.
func (s *Scraper) Name() string { return SourceName }

// DateRange returns days dates going backwards from now, newest first.
// It returns nil when days is not positive.
func DateRange(now time.Time, days int) []time.Time {
	if days <= 0 {
		return nil
	}
	dates := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, now.AddDate(0, 0, -i))
	}
	return dates
}

// DayURL returns the page for one day's questions.
func (s *Scraper) DayURL(day time.Time) string {
	return fmt.Sprintf("%s/current-affairs/%s/", s.baseURL, day.Format("2006/01/02"))
}

// Scrape fetches every day in dates and returns the questions found,
// numbered from 1 in page order. Pages that fail are logged and skipped.
func (s *Scraper) Scrape(ctx context.Context, dates []time.Time) []domain.Question {
	slog.Info("Starting scrape", "source", SourceName, "days", len(dates))

	var all []domain.Question
	for _, day := range dates {
		if ctx.Err() != nil {
			break
		}
		link := s.DayURL(day)
		slog.Info("Checking URL", "url", link)

		doc, err := s.fetch(ctx, link)
		if err != nil {
			slog.Error("Error fetching page", "url", link, "error", err)
			continue
		}

		questions := ParsePage(doc, day.Format("2006-01-02"), link)
		if len(questions) == 0 {
			slog.Warn("No questions found", "url", link)
			continue
		}
		all = append(all, questions...)
	}

	number(all)
	slog.Info("Scrape finished", "source", SourceName, "questions", len(all))
	return all
}

func (f fetcher) fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("bad status code: %d", resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// ParsePage extracts the question blocks of one daily page.
func ParsePage(doc *goquery.Document, date, link string) []domain.Question {
	var questions []domain.Question

	doc.Find("div.bix-div-container").Each(func(_ int, c *goquery.Selection) {
		text := cleanText(c.Find("td.bix-td-qtxt").First().Text())
		if text == "" {
			return
		}

		q := domain.Question{
			Question: text,
			Options:  []string{},
			Answer:   NoAnswer,
			Source:   SourceName,
			Date:     date,
			Link:     link,
		}

		c.Find("tr.bix-tbl-options td.bix-td-option-val").Each(func(_ int, o *goquery.Selection) {
			if opt := cleanText(o.Text()); opt != "" {
				q.Options = append(q.Options, opt)
			}
		})

		if a := c.Find("div.bix-div-answer").First(); a.Length() > 0 {
			ans := cleanText(strings.ReplaceAll(a.Text(), "View Answer", ""))
			if ans != "" {
				q.Answer = ans
			}
		}

		if exp := cleanText(c.Find("div.bix-ans-description").First().Text()); exp != "" {
			q.Explanation = exp
		}
		if cat := cleanText(c.Find(".bix-div-category, .bix-td-category").First().Text()); cat != "" {
			q.Category = cat
		}

		questions = append(questions, q)
	})

	return questions
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
