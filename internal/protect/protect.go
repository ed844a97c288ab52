// Package protect finds substrings that must survive translation verbatim.
package protect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/pricofy/quizlate/internal/domain"
)

// Protector finds protected terms in a text. The zero value protects nothing.
type Protector struct {
	terms    []string
	patterns []*regexp.Regexp
}

// New compiles a Protector from literal terms and regular expressions.
func New(terms []string, patterns []string) (*Protector, error) {
	p := &Protector{}
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			p.terms = append(p.terms, t)
		}
	}
	// Longer terms first so "New Delhi" wins over "Delhi".
	sort.SliceStable(p.terms, func(i, j int) bool { return len(p.terms[i]) > len(p.terms[j]) })

	for _, expr := range patterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid protect pattern %q: %w", expr, err)
		}
		p.patterns = append(p.patterns, re)
	}
	return p, nil
}

// Find returns the distinct protected substrings of text in order of
// first occurrence. Terms nested inside a longer match are not repeated.
func (p *Protector) Find(text string) []string {
	if p == nil || text == "" {
		return nil
	}

	type match struct{ start, end int }
	var matches []match

	for _, t := range p.terms {
		for off := 0; ; {
			i := strings.Index(text[off:], t)
			if i < 0 {
				break
			}
			matches = append(matches, match{off + i, off + i + len(t)})
			off += i + len(t)
		}
	}
	for _, re := range p.patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if loc[1] > loc[0] {
				matches = append(matches, match{loc[0], loc[1]})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].end > matches[j].end
	})

	var out []string
	seen := make(map[string]bool)
	coveredTo := 0
	for _, m := range matches {
		if m.end <= coveredTo {
			continue
		}
		coveredTo = m.end
		s := text[m.start:m.end]
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// FromRuns returns the trimmed other-script runs that contain a letter.
// When the source text is written in the target script these are the
// foreign-script spans (names, codes) a translator tends to mangle.
func FromRuns(runs []domain.ScriptRun) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range runs {
		if r.Class != domain.OtherScript {
			continue
		}
		s := strings.TrimFunc(r.Text, func(c rune) bool {
			return unicode.IsSpace(c) || unicode.IsPunct(c)
		})
		if s == "" || !strings.ContainsFunc(s, unicode.IsLetter) || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Merge concatenates term lists, dropping duplicates and empty strings.
func Merge(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range lists {
		for _, s := range l {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
