// Package segmenter splits text into maximal runs of target-script and
// other-script characters.
package segmenter

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/rangetable"

	"github.com/pricofy/quizlate/internal/domain"
)

// Range is an inclusive code point range.
type Range struct {
	Lo rune
	Hi rune
}

// Gujarati is the Unicode block for the Gujarati script.
var Gujarati = Range{Lo: 0x0A80, Hi: 0x0AFF}

// ErrNoRanges is returned when a segmenter is built without any range.
var ErrNoRanges = errors.New("segmenter: script range table is empty")

// Segmenter classifies code points against an immutable range table.
// A Segmenter is safe for concurrent use.
type Segmenter struct {
	table *unicode.RangeTable
}

// New builds a Segmenter whose target script is the union of ranges.
// Overlapping and adjacent ranges are allowed.
func New(ranges ...Range) (*Segmenter, error) {
	if len(ranges) == 0 {
		return nil, ErrNoRanges
	}

	tables := make([]*unicode.RangeTable, 0, len(ranges))
	for _, r := range ranges {
		if err := r.validate(); err != nil {
			return nil, err
		}
		tables = append(tables, r.table())
	}

	return &Segmenter{table: rangetable.Merge(tables...)}, nil
}

// MustNew is like New but panics on a bad range table.
func MustNew(ranges ...Range) *Segmenter {
	s, err := New(ranges...)
	if err != nil {
		panic(err)
	}
	return s
}

func (r Range) validate() error {
	if r.Lo < 0 || r.Hi > unicode.MaxRune {
		return fmt.Errorf("segmenter: range %U-%U outside the Unicode code space", r.Lo, r.Hi)
	}
	if r.Lo > r.Hi {
		return fmt.Errorf("segmenter: range %U-%U has Lo > Hi", r.Lo, r.Hi)
	}
	return nil
}

func (r Range) table() *unicode.RangeTable {
	if r.Hi <= 0xFFFF {
		return &unicode.RangeTable{
			R16: []unicode.Range16{{Lo: uint16(r.Lo), Hi: uint16(r.Hi), Stride: 1}},
		}
	}
	if r.Lo > 0xFFFF {
		return &unicode.RangeTable{
			R32: []unicode.Range32{{Lo: uint32(r.Lo), Hi: uint32(r.Hi), Stride: 1}},
		}
	}
	// Straddles the BMP boundary.
	return &unicode.RangeTable{
		R16: []unicode.Range16{{Lo: uint16(r.Lo), Hi: 0xFFFF, Stride: 1}},
		R32: []unicode.Range32{{Lo: 0x10000, Hi: uint32(r.Hi), Stride: 1}},
	}
}

// Classify returns the script class of a single code point.
func (s *Segmenter) Classify(r rune) domain.ScriptClass {
	if r != utf8.RuneError && unicode.Is(s.table, r) {
		return domain.TargetScript
	}
	return domain.OtherScript
}

// HasTarget reports whether text contains at least one target-script code point.
func (s *Segmenter) HasTarget(text string) bool {
	for _, r := range text {
		if s.Classify(r) == domain.TargetScript {
			return true
		}
	}
	return false
}

// Segment splits text into maximal runs of the same class, in order.
// Concatenating the run texts yields text exactly. Empty input yields nil.
func (s *Segmenter) Segment(text string) []domain.ScriptRun {
	if text == "" {
		return nil
	}

	var runs []domain.ScriptRun
	start := 0
	current := domain.OtherScript

	// Ranging over a string yields utf8.RuneError (width 1) for invalid
	// bytes; those classify as OtherScript and are sliced through unchanged.
	for i, r := range text {
		class := s.Classify(r)
		if i == 0 {
			current = class
			continue
		}
		if class != current {
			runs = append(runs, domain.ScriptRun{Text: text[start:i], Class: current, Start: start})
			start = i
			current = class
		}
	}
	runs = append(runs, domain.ScriptRun{Text: text[start:], Class: current, Start: start})

	return runs
}

// Join concatenates run texts back into the segmented string.
func Join(runs []domain.ScriptRun) string {
	n := 0
	for _, r := range runs {
		n += len(r.Text)
	}
	buf := make([]byte, 0, n)
	for _, r := range runs {
		buf = append(buf, r.Text...)
	}
	return string(buf)
}
