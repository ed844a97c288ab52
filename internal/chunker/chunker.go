// Package chunker splits text into pieces that fit a provider's request limit.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChars is the default maximum characters per request.
// The public Google endpoint rejects requests above 5000 characters.
const DefaultMaxChars = 4500

// CountChars returns the number of characters (runes) in text.
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// Split breaks text into chunks of at most maxChars runes.
// Cuts prefer sentence ends, then whitespace, then any rune boundary.
// Concatenating the chunks yields text exactly.
func Split(text string, maxChars int) []string {
	if text == "" {
		return nil
	}

	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var chunks []string
	rest := text
	for CountChars(rest) > maxChars {
		cut := cutPoint(rest, maxChars)
		chunks = append(chunks, rest[:cut])
		rest = rest[cut:]
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}

	return chunks
}

// cutPoint returns a byte offset into s, covering at most maxChars runes.
func cutPoint(s string, maxChars int) int {
	limit := 0
	for i := 0; i < maxChars; i++ {
		_, size := utf8.DecodeRuneInString(s[limit:])
		limit += size
	}
	window := s[:limit]

	// Prefer the last sentence end inside the window, keeping the
	// trailing whitespace with the sentence.
	sentence := -1
	for i, r := range window {
		if r == '.' || r == '?' || r == '!' || r == '।' || r == '\n' {
			sentence = i + utf8.RuneLen(r)
		}
	}
	if sentence > 0 {
		for sentence < len(window) {
			r, size := utf8.DecodeRuneInString(window[sentence:])
			if !unicode.IsSpace(r) {
				break
			}
			sentence += size
		}
		return sentence
	}

	if space := strings.LastIndexFunc(window, unicode.IsSpace); space > 0 {
		_, size := utf8.DecodeRuneInString(window[space:])
		return space + size
	}

	return limit
}

// Batch groups texts into batches whose combined size doesn't exceed maxChars.
// Each text is kept whole - never split mid-text.
func Batch(texts []string, maxChars int) [][]string {
	if len(texts) == 0 {
		return nil
	}

	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var batches [][]string
	var current []string
	currentChars := 0

	for _, text := range texts {
		n := CountChars(text)

		// An oversized text gets its own batch
		if n > maxChars {
			if len(current) > 0 {
				batches = append(batches, current)
				current = nil
				currentChars = 0
			}
			batches = append(batches, []string{text})
			continue
		}

		if currentChars+n > maxChars && len(current) > 0 {
			batches = append(batches, current)
			current = nil
			currentChars = 0
		}

		current = append(current, text)
		currentChars += n
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}
