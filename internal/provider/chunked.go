package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/pricofy/quizlate/internal/chunker"
	"github.com/pricofy/quizlate/internal/gateway"
)

// Chunked splits long texts before handing them to the wrapped provider.
// A failure on any chunk fails the whole call, so callers never see a
// partially translated text.
type Chunked struct {
	next     gateway.Provider
	maxChars int
}

// NewChunked wraps next. maxChars <= 0 uses chunker.DefaultMaxChars.
func NewChunked(next gateway.Provider, maxChars int) *Chunked {
	if maxChars <= 0 {
		maxChars = chunker.DefaultMaxChars
	}
	return &Chunked{next: next, maxChars: maxChars}
}

// Translate implements gateway.Provider.
func (c *Chunked) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	chunks := chunker.Split(text, c.maxChars)
	if len(chunks) <= 1 {
		return c.next.Translate(ctx, text, sourceLang, targetLang)
	}

	var b strings.Builder
	for i, chunk := range chunks {
		// Whitespace-only chunks come from runs of separators; keep them as is.
		if strings.TrimSpace(chunk) == "" {
			b.WriteString(chunk)
			continue
		}
		out, err := c.next.Translate(ctx, chunk, sourceLang, targetLang)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		b.WriteString(out)
		if trailing := trailingSpace(chunk); trailing != "" && !strings.HasSuffix(out, trailing) {
			b.WriteString(trailing)
		}
	}
	return b.String(), nil
}

// trailingSpace returns the whitespace suffix of s. Providers tend to trim
// it, which would glue translated chunks together.
func trailingSpace(s string) string {
	trimmed := strings.TrimRight(s, " \t\n\r")
	return s[len(trimmed):]
}
