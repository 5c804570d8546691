package transcript

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coachloop/backend/libs/test"
)

func testDocument() *Document {
	return &Document{
		SessionID:       "ts_1",
		Title:           "Weekly Coaching",
		Date:            time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		DurationSeconds: 10,
		Language:        "zh-TW",
		Segments: []*Segment{
			{Sequence: 1, StartMS: 1000, EndMS: 4500, Speaker: "Speaker 1", Text: "你覺得這個問題如何？"},
			{Sequence: 2, StartMS: 5000, EndMS: 9250, Speaker: "Speaker 2", Text: "我覺得很有挑戰性。"},
		},
		Roles:      RoleMap{"Speaker 1": RoleCoach, "Speaker 2": RoleClient},
		ExportedAt: time.Date(2024, 3, 16, 12, 0, 0, 0, time.UTC),
	}
}

func render(t *testing.T, doc *Document, opts *RenderOptions) string {
	t.Helper()
	buf := &bytes.Buffer{}
	test.OK(t, Render(buf, doc, opts))
	return buf.String()
}

func TestRenderSRT(t *testing.T) {
	out := render(t, testDocument(), &RenderOptions{Format: FormatSRT})
	test.Equals(t, utf8BOM+`1
00:00:01,000 --> 00:00:04,500
[Coach] 你覺得這個問題如何？

2
00:00:05,000 --> 00:00:09,250
[Client] 我覺得很有挑戰性。

`, out)
}

func TestRenderVTT(t *testing.T) {
	out := render(t, testDocument(), &RenderOptions{Format: FormatVTT})
	test.Equals(t, `WEBVTT

00:00:01.000 --> 00:00:04.500
<v Coach>你覺得這個問題如何？

00:00:05.000 --> 00:00:09.250
<v Client>我覺得很有挑戰性。

`, out)
}

func TestRenderTXT(t *testing.T) {
	doc := testDocument()
	out := render(t, doc, &RenderOptions{Format: FormatTXT})
	test.Equals(t, utf8BOM+"[00:00:01] Coach: 你覺得這個問題如何？\n[00:00:05] Client: 我覺得很有挑戰性。\n", out)

	out = render(t, doc, &RenderOptions{Format: FormatTXT, ExcludeTimestamps: true, ExcludeSpeakers: true})
	test.Equals(t, utf8BOM+"你覺得這個問題如何？\n我覺得很有挑戰性。\n", out)
}

func TestRenderMarkdown(t *testing.T) {
	out := render(t, testDocument(), &RenderOptions{Format: FormatMarkdown})
	test.Equals(t, `# Weekly Coaching

Date: 2024-03-15
Duration: 00:00:10

**Coach** (00:00:01): 你覺得這個問題如何？
**Client** (00:00:05): 我覺得很有挑戰性。
`, out)
}

func TestRenderJSON(t *testing.T) {
	out := render(t, testDocument(), &RenderOptions{Format: FormatJSON})

	var jd jsonDocument
	test.OK(t, json.Unmarshal([]byte(out), &jd))
	test.Equals(t, "ts_1", jd.SessionID)
	test.Equals(t, "zh-TW", jd.Language)
	test.Equals(t, "2024-03-15", jd.Date)
	test.Equals(t, "2024-03-16T12:00:00Z", jd.ExportedAt)
	test.Equals(t, map[string]string{"Speaker 1": "coach", "Speaker 2": "client"}, jd.Speakers)
	test.Equals(t, 2, len(jd.Segments))
	test.Equals(t, RoleCoach, jd.Segments[0].Role)
	test.Equals(t, int64(1000), jd.Segments[0].StartMS)
}

func TestRenderDeterministic(t *testing.T) {
	doc := testDocument()
	opts := &RenderOptions{Format: FormatJSON}
	first := render(t, doc, opts)
	for i := 0; i < 5; i++ {
		test.Equals(t, first, render(t, doc, opts))
	}
}

func TestRenderUnassignedRoles(t *testing.T) {
	doc := testDocument()
	doc.Roles = nil
	out := render(t, doc, &RenderOptions{Format: FormatSRT})
	test.Assert(t, strings.Contains(out, "[Speaker 1] "), "expected fallback label, got %q", out)
	test.Assert(t, strings.Contains(out, "[Speaker 2] "), "expected fallback label, got %q", out)
}

func TestRenderSpeakerFilter(t *testing.T) {
	doc := testDocument()
	out := render(t, doc, &RenderOptions{
		Format:        FormatSRT,
		SpeakerFilter: map[string]bool{"Speaker 2": true},
	})
	// The remaining segment renumbers from 1 but keeps its stable label.
	test.Equals(t, utf8BOM+"1\n00:00:05,000 --> 00:00:09,250\n[Client] 我覺得很有挑戰性。\n\n", out)
}

func TestRenderUnsupportedFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, testDocument(), &RenderOptions{Format: Format("docx")})
	test.Assert(t, IsValidationError(err), "expected ValidationError, got %v", err)
}
