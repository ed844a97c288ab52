package domain

import "fmt"

// Question is one scraped quiz question with its answer material.
type Question struct {
	No          int      `json:"question_no"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
	Category    string   `json:"category,omitempty"`
	Source      string   `json:"source,omitempty"`
	Date        string   `json:"date,omitempty"`
	Link        string   `json:"link,omitempty"`
}

// Field identifiers within a question.
const (
	FieldQuestion    = "question"
	FieldOption      = "option"
	FieldAnswer      = "answer"
	FieldExplanation = "explanation"
	FieldCategory    = "category"
)

// Fields lists the translatable text fields of q in display order.
// Empty explanation and category fields are omitted.
func (q Question) Fields() []TextField {
	prefix := fmt.Sprintf("q%d.", q.No)
	fields := []TextField{{ID: prefix + FieldQuestion, Value: q.Question}}
	for i, opt := range q.Options {
		fields = append(fields, TextField{ID: fmt.Sprintf("%s%s.%d", prefix, FieldOption, i), Value: opt})
	}
	fields = append(fields, TextField{ID: prefix + FieldAnswer, Value: q.Answer})
	if q.Explanation != "" {
		fields = append(fields, TextField{ID: prefix + FieldExplanation, Value: q.Explanation})
	}
	if q.Category != "" {
		fields = append(fields, TextField{ID: prefix + FieldCategory, Value: q.Category})
	}
	return fields
}

// WithFields returns a copy of q whose text fields are replaced by values,
// which must be in the order produced by Fields.
func (q Question) WithFields(values []string) (Question, error) {
	want := len(q.Fields())
	if len(values) != want {
		return q, fmt.Errorf("question %d: got %d field values, want %d", q.No, len(values), want)
	}

	out := q
	i := 0
	next := func() string { v := values[i]; i++; return v }

	out.Question = next()
	out.Options = make([]string, len(q.Options))
	for j := range q.Options {
		out.Options[j] = next()
	}
	out.Answer = next()
	if q.Explanation != "" {
		out.Explanation = next()
	}
	if q.Category != "" {
		out.Category = next()
	}
	return out, nil
}
