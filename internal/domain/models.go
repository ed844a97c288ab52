// Package domain contains the core domain types shared by the segmenter,
// the translation gateway and their consumers.
package domain

import "fmt"

// TextField is a named string value extracted from an external source.
// Translation replaces a field rather than mutating it.
type TextField struct {
	ID    string `json:"id"`
	Value string `json:"text"`
}

// ScriptClass tags a run of text with the script it belongs to.
type ScriptClass int

const (
	// OtherScript is anything outside the configured target ranges,
	// including spaces, digits and punctuation.
	OtherScript ScriptClass = iota
	// TargetScript is a code point inside the configured target ranges.
	TargetScript
)

func (c ScriptClass) String() string {
	switch c {
	case TargetScript:
		return "target"
	case OtherScript:
		return "other"
	default:
		return fmt.Sprintf("ScriptClass(%d)", int(c))
	}
}

// MarshalText lets ScriptClass appear as "target"/"other" in JSON.
func (c ScriptClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses the form produced by MarshalText.
func (c *ScriptClass) UnmarshalText(b []byte) error {
	switch string(b) {
	case "target":
		*c = TargetScript
	case "other":
		*c = OtherScript
	default:
		return fmt.Errorf("unknown script class %q", string(b))
	}
	return nil
}

// ScriptRun is a maximal substring of one script class.
// Start is the byte offset of Text within the segmented string.
type ScriptRun struct {
	Text  string      `json:"text"`
	Class ScriptClass `json:"class"`
	Start int         `json:"start"`
}

// Provenance records where the text of a TranslationResult came from.
type Provenance int

const (
	Translated Provenance = iota
	FellBackToOriginal
)

func (p Provenance) String() string {
	switch p {
	case Translated:
		return "translated"
	case FellBackToOriginal:
		return "fell_back_to_original"
	default:
		return fmt.Sprintf("Provenance(%d)", int(p))
	}
}

// MarshalText lets Provenance appear by name in JSON.
func (p Provenance) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses the form produced by MarshalText.
func (p *Provenance) UnmarshalText(b []byte) error {
	switch string(b) {
	case "translated":
		*p = Translated
	case "fell_back_to_original":
		*p = FellBackToOriginal
	default:
		return fmt.Errorf("unknown provenance %q", string(b))
	}
	return nil
}

// TranslationAttempt is the record of one iteration of the gateway's retry loop.
// Exactly one of Output and Err is meaningful: Err is nil on success.
type TranslationAttempt struct {
	Index  int
	Input  string
	Output string
	Err    error
}

// Succeeded reports whether the attempt produced accepted output.
func (a TranslationAttempt) Succeeded() bool {
	return a.Err == nil
}

// TranslationResult is the final outcome of translating one input.
type TranslationResult struct {
	Text       string
	Provenance Provenance
	Attempts   []TranslationAttempt
}

// Translated reports whether the result holds accepted provider output.
func (r TranslationResult) Translated() bool {
	return r.Provenance == Translated
}
