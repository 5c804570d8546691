package transcript

import (
	"bytes"
	"testing"

	"github.com/coachloop/backend/libs/test"
)

const sampleVTT = `WEBVTT

00:00:01.000 --> 00:00:04.500
<v Coach>你覺得這個問題如何？

00:00:05.000 --> 00:00:09.250
<v Client>我覺得很有挑戰性。
`

const sampleSRT = `1
00:00:01,000 --> 00:00:04,500
Coach: How did that feel?

2
00:00:05,000 --> 00:00:09,250
Client: It felt challenging.
`

func TestParseVTT(t *testing.T) {
	segs, err := Parse(sampleVTT, FormatVTT)
	test.OK(t, err)
	test.Equals(t, 2, len(segs))

	test.Equals(t, 1, segs[0].Sequence)
	test.Equals(t, int64(1000), segs[0].StartMS)
	test.Equals(t, int64(4500), segs[0].EndMS)
	test.Equals(t, "Coach", segs[0].Speaker)
	test.Equals(t, "你覺得這個問題如何？", segs[0].Text)

	test.Equals(t, "Client", segs[1].Speaker)
	test.Equals(t, "我覺得很有挑戰性。", segs[1].Text)
}

func TestParseSRT(t *testing.T) {
	segs, err := Parse(sampleSRT, FormatSRT)
	test.OK(t, err)
	test.Equals(t, 2, len(segs))
	test.Equals(t, "Coach", segs[0].Speaker)
	test.Equals(t, "How did that feel?", segs[0].Text)
	test.Equals(t, int64(9250), segs[1].EndMS)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("", FormatVTT)
	test.Assert(t, IsValidationError(err), "expected ValidationError, got %v", err)
	test.Equals(t, "transcript: no segments found", err.Error())

	_, err = Parse("WEBVTT\n\nnothing timed here\n", FormatVTT)
	test.Assert(t, IsValidationError(err), "expected ValidationError, got %v", err)
}

func TestParseUnsupportedFormat(t *testing.T) {
	_, err := Parse("x", FormatJSON)
	test.Assert(t, IsValidationError(err), "expected ValidationError, got %v", err)
}

func TestParseTimestampVariants(t *testing.T) {
	// Comma decimals inside VTT, missing hours, 1-digit fraction.
	content := "WEBVTT\n\n00:01,5 --> 00:03,25\nhello\n"
	segs, err := Parse(content, FormatVTT)
	test.OK(t, err)
	test.Equals(t, 1, len(segs))
	test.Equals(t, int64(1500), segs[0].StartMS)
	test.Equals(t, int64(3250), segs[0].EndMS)
}

func TestParseDropsZeroDuration(t *testing.T) {
	content := `WEBVTT

00:00:01.000 --> 00:00:01.000
dropped

00:00:02.000 --> 00:00:01.000
also dropped

00:00:03.000 --> 00:00:04.000
kept
`
	segs, err := Parse(content, FormatVTT)
	test.OK(t, err)
	test.Equals(t, 1, len(segs))
	test.Equals(t, "kept", segs[0].Text)
	test.Equals(t, 1, segs[0].Sequence)
}

func TestParseAllDroppedIsError(t *testing.T) {
	content := "WEBVTT\n\n00:00:01.000 --> 00:00:01.000\nzero\n"
	_, err := Parse(content, FormatVTT)
	test.Assert(t, IsValidationError(err), "expected ValidationError, got %v", err)
}

func TestParseDefaultSpeakers(t *testing.T) {
	content := `WEBVTT

00:00:01.000 --> 00:00:02.000
first line

00:00:03.000 --> 00:00:04.000
second line
`
	segs, err := Parse(content, FormatVTT)
	test.OK(t, err)
	test.Equals(t, "Speaker 1", segs[0].Speaker)
	test.Equals(t, "Speaker 2", segs[1].Speaker)
}

func TestParseBracketSpeakers(t *testing.T) {
	content := "1\n00:00:01,000 --> 00:00:02,000\n[Alice] hi there\n"
	segs, err := Parse(content, FormatSRT)
	test.OK(t, err)
	test.Equals(t, "Alice", segs[0].Speaker)
	test.Equals(t, "hi there", segs[0].Text)
}

func TestParseMultilineCue(t *testing.T) {
	content := "WEBVTT\n\n00:00:01.000 --> 00:00:05.000\n<v Coach>line one\nline two\n"
	segs, err := Parse(content, FormatVTT)
	test.OK(t, err)
	test.Equals(t, 1, len(segs))
	test.Equals(t, "line one\nline two", segs[0].Text)
}

func TestParseColonNotSpeaker(t *testing.T) {
	// A colon deep in prose should not be read as a speaker label when the
	// candidate label contains sentence punctuation.
	content := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nWait. Here is the thing: it works\n"
	segs, err := Parse(content, FormatVTT)
	test.OK(t, err)
	test.Equals(t, "Speaker 1", segs[0].Speaker)
	test.Equals(t, "Wait. Here is the thing: it works", segs[0].Text)
}

func TestParseBOM(t *testing.T) {
	segs, err := Parse(utf8BOM+sampleSRT, FormatSRT)
	test.OK(t, err)
	test.Equals(t, 2, len(segs))
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatVTT, FormatSRT} {
		src := sampleVTT
		if format == FormatSRT {
			src = sampleSRT
		}
		segs, err := Parse(src, format)
		test.OK(t, err)

		doc := &Document{
			Segments: segs,
			Roles:    RoleMap{"Coach": RoleCoach, "Client": RoleClient},
		}
		buf := &bytes.Buffer{}
		test.OK(t, Render(buf, doc, &RenderOptions{Format: format}))

		segs2, err := Parse(buf.String(), format)
		test.OK(t, err)
		test.Equals(t, len(segs), len(segs2))
		for i := range segs {
			test.Equals(t, segs[i].StartMS, segs2[i].StartMS)
			test.Equals(t, segs[i].EndMS, segs2[i].EndMS)
			test.Equals(t, segs[i].Text, segs2[i].Text)
			test.Equals(t, segs[i].Sequence, segs2[i].Sequence)
		}
	}
}
