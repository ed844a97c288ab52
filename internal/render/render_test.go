package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pricofy/quizlate/internal/domain"
	"github.com/pricofy/quizlate/internal/pipeline"
	"github.com/pricofy/quizlate/internal/segmenter"
)

func field(seg *segmenter.Segmenter, id, text string, prov domain.Provenance) pipeline.Field {
	return pipeline.Field{ID: id, Text: text, Provenance: prov, Runs: seg.Segment(text)}
}

func testDocument(t *testing.T) Document {
	t.Helper()
	seg := segmenter.MustNew(segmenter.Gujarati)

	q := domain.Question{
		No:       1,
		Question: "Capital?",
		Options:  []string{"A", "B"},
		Answer:   "A",
		Category: "Polity",
		Link:     "https://www.indiabix.com/current-affairs/2024/02/20/",
	}
	fields := []pipeline.Field{
		field(seg, "q1.question", "ગુજરાતની રાજધાની <Gandhinagar>?", domain.Translated),
		field(seg, "q1.option.0", "ગાંધીનગર", domain.Translated),
		field(seg, "q1.option.1", "Surat", domain.FellBackToOriginal),
		field(seg, "q1.answer", "ગાંધીનગર", domain.Translated),
		field(seg, "q1.category", "રાજનીતિ", domain.Translated),
	}
	results := []pipeline.Result{{Original: q, Fields: fields}}

	return Document{
		From:      time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
		Generated: time.Date(2024, 2, 20, 18, 5, 0, 0, time.UTC),
		Results:   results,
		Stats:     pipeline.Summarize(results),
	}
}

func TestRender_Gujarati(t *testing.T) {
	r, err := New("gu", nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, testDocument(t)))
	out := buf.String()

	require.Contains(t, out, `<html lang="gu">`)
	require.Contains(t, out, "સાપ્તાહિક કરંટ અફેર્સ ક્વિઝ")
	require.Contains(t, out, "પ્રશ્ન 1")
	require.Contains(t, out, "<strong>જવાબ:</strong>")
	require.Contains(t, out, "કુલ પ્રશ્નો: 1")
	require.Contains(t, out, "મૂળ ભાષામાં રાખેલ ફીલ્ડ: 1")

	require.Contains(t, out, `<span class="script-target">ગાંધીનગર</span>`)
	require.Contains(t, out, `<span class="script-other">Surat</span>`)
	require.Contains(t, out, `<span class="script-other"> &lt;Gandhinagar&gt;?</span>`)
	require.Contains(t, out, ".script-target { font-family: 'Noto Sans Gujarati', 'Lohit Gujarati', sans-serif; }")
	require.NotContains(t, out, "<Gandhinagar>")
}

func TestRender_EnglishAndFonts(t *testing.T) {
	r, err := New("en", map[string]string{FontOther: "Arial; } body {"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, testDocument(t)))
	out := buf.String()

	require.Contains(t, out, "Weekly Current Affairs Quiz")
	require.Contains(t, out, "Week of 14 Feb 2024 to 20 Feb 2024")
	require.Contains(t, out, "Q. 1")
	require.Contains(t, out, "<strong>Category:</strong>")
	require.Contains(t, out, ".script-other { font-family: Arial  body; }")
	require.Equal(t, 1, strings.Count(out, `class="question"`))
}

func TestRender_UnknownLanguageUsesMsgids(t *testing.T) {
	r, err := New("xx", nil)
	require.NoError(t, err)
	require.Equal(t, "Total questions: 3", r.T("Total questions: %d", 3))
}

func TestRender_FieldMismatch(t *testing.T) {
	r, err := New("en", nil)
	require.NoError(t, err)

	doc := testDocument(t)
	doc.Results[0].Fields = doc.Results[0].Fields[:2]

	var buf bytes.Buffer
	require.Error(t, r.Render(&buf, doc))
}

func TestRunClass(t *testing.T) {
	require.Equal(t, ClassTarget, RunClass(domain.TargetScript))
	require.Equal(t, ClassOther, RunClass(domain.OtherScript))
}
