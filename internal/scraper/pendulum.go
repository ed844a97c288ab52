package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricofy/quizlate/internal/domain"
)

// PendulumEdu defaults.
const (
	DefaultPendulumURL = "https://pendulumedu.com/quiz/current-affairs"
	PendulumSourceName = "PendulumEdu"
	// PendulumNoAnswer is used when no "Ans." line follows a question.
	PendulumNoAnswer = "Check Link"
)

// quizLinkDate is how the quiz index titles its daily quizzes, e.g. "2 February 2024".
const quizLinkDate = "2 January 2006"

// Pendulum finds the daily quizzes linked from the PendulumEdu index and
// parses their question paragraphs.
type Pendulum struct {
	fetcher
	indexURL string
}

// NewPendulum creates a Pendulum scraper. Empty arguments take defaults.
func NewPendulum(indexURL, userAgent string, timeout time.Duration) *Pendulum {
	if indexURL == "" {
		indexURL = DefaultPendulumURL
	}
	return &Pendulum{
		fetcher:  newFetcher(userAgent, timeout),
		indexURL: indexURL,
	}
}

// Name returns the source name stamped on PendulumEdu questions.
func (p *Pendulum) Name() string { return PendulumSourceName }

// QuizLink is a daily quiz page and the day it covers.
type QuizLink struct {
	URL  string
	Date time.Time
}

// Scrape fetches the index, follows the links whose text names one of
// dates and returns the questions found, numbered from 1.
func (p *Pendulum) Scrape(ctx context.Context, dates []time.Time) []domain.Question {
	slog.Info("Starting scrape", "source", PendulumSourceName, "days", len(dates))

	index, err := p.fetch(ctx, p.indexURL)
	if err != nil {
		slog.Error("Error fetching page", "url", p.indexURL, "error", err)
		return nil
	}

	links, err := QuizLinks(index, p.indexURL, dates)
	if err != nil {
		slog.Error("Error resolving quiz links", "url", p.indexURL, "error", err)
		return nil
	}

	var all []domain.Question
	for _, l := range links {
		if ctx.Err() != nil {
			break
		}
		slog.Info("Scraping quiz", "url", l.URL)

		doc, err := p.fetch(ctx, l.URL)
		if err != nil {
			slog.Error("Error fetching page", "url", l.URL, "error", err)
			continue
		}

		questions := ParseQuiz(doc, l.Date.Format("2006-01-02"), l.URL)
		if len(questions) == 0 {
			slog.Warn("No questions found", "url", l.URL)
			continue
		}
		all = append(all, questions...)
	}

	number(all)
	slog.Info("Scrape finished", "source", PendulumSourceName, "questions", len(all))
	return all
}

// QuizLinks returns the absolute URLs of index anchors whose text contains
// one of dates written as "2 January 2006", case-insensitively and not
// preceded by another digit. Each URL is
// listed once, in date order then page order.
func QuizLinks(index *goquery.Document, indexURL string, dates []time.Time) ([]QuizLink, error) {
	base, err := url.Parse(indexURL)
	if err != nil {
		return nil, fmt.Errorf("parsing index URL: %w", err)
	}

	anchors := index.Find("a[href]")
	seen := make(map[string]bool)
	var links []QuizLink

	for _, day := range dates {
		want := strings.ToLower(day.Format(quizLinkDate))
		anchors.Each(func(_ int, a *goquery.Selection) {
			if !containsDate(strings.ToLower(cleanText(a.Text())), want) {
				return
			}
			href, _ := a.Attr("href")
			ref, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				slog.Debug("Skipping malformed quiz link", "href", href, "error", err)
				return
			}
			full := base.ResolveReference(ref).String()
			if seen[full] {
				return
			}
			seen[full] = true
			links = append(links, QuizLink{URL: full, Date: day})
			slog.Info("Found quiz", "date", want, "url", full)
		})
	}
	return links, nil
}

// containsDate reports whether date occurs in text not preceded by a
// digit, so "9 february" does not match "19 february".
func containsDate(text, date string) bool {
	for from := 0; ; {
		i := strings.Index(text[from:], date)
		if i < 0 {
			return false
		}
		i += from
		if i == 0 || !unicode.IsDigit(rune(text[i-1])) {
			return true
		}
		from = i + 1
	}
}

// ParseQuiz extracts questions from a quiz page. Blocks are read from
// div.question-container, or from paragraphs when the page has none. A
// block opens a question when it starts with "Q" or holds a "?" and is
// longer than 20 characters; later "Ans." blocks set its answer and short
// "A." style blocks add options.
func ParseQuiz(doc *goquery.Document, date, link string) []domain.Question {
	blocks := doc.Find("div.question-container")
	if blocks.Length() == 0 {
		blocks = doc.Find("p")
	}

	var questions []domain.Question
	var current *domain.Question

	blocks.Each(func(_ int, b *goquery.Selection) {
		text := cleanText(b.Text())
		switch {
		case isQuestion(text):
			if current != nil {
				questions = append(questions, *current)
			}
			current = &domain.Question{
				Question: text,
				Options:  []string{},
				Answer:   PendulumNoAnswer,
				Source:   PendulumSourceName,
				Date:     date,
				Link:     link,
			}
		case current == nil:
		case strings.Contains(text, "Ans."):
			current.Answer = text
		case isOption(text):
			current.Options = append(current.Options, text)
		}
	})

	if current != nil {
		questions = append(questions, *current)
	}
	return questions
}

func isQuestion(text string) bool {
	if text == "" || utf8.RuneCountInString(text) <= 20 {
		return false
	}
	return strings.HasPrefix(text, "Q") || strings.Contains(text, "?")
}

// isOption matches short lettered lines such as "B. Mumbai".
func isOption(text string) bool {
	if utf8.RuneCountInString(text) >= 100 {
		return false
	}
	r := []rune(text)
	return len(r) >= 2 && unicode.IsLetter(r[0]) && r[1] == '.'
}
