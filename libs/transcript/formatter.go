package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Document is a transcript together with the session metadata carried into
// rendered output.
type Document struct {
	SessionID       string
	Title           string
	Date            time.Time
	DurationSeconds int
	Language        string
	Segments        []*Segment
	Roles           RoleMap
	// ExportedAt is stamped into JSON output. It is an explicit field rather
	// than a clock read so rendering stays deterministic.
	ExportedAt time.Time
}

// RenderOptions controls rendering. The zero value includes everything.
type RenderOptions struct {
	Format Format
	// ExcludeTimestamps drops the time prefix in TXT and Markdown output.
	// VTT and SRT always carry cue timings.
	ExcludeTimestamps bool
	// ExcludeSpeakers drops speaker names from the output.
	ExcludeSpeakers bool
	// SpeakerFilter, when non-empty, limits output to segments whose raw
	// label is in the set.
	SpeakerFilter map[string]bool
}

// Render writes the document to w in the requested format. Rendering is
// deterministic: the same document and options produce byte-identical output.
// Output is UTF-8; SRT and TXT are prefixed with a BOM since the desktop
// tools that consume them expect one.
func Render(w io.Writer, doc *Document, opts *RenderOptions) error {
	if opts == nil {
		opts = &RenderOptions{}
	}
	segments := doc.Segments
	if len(opts.SpeakerFilter) != 0 {
		segments = make([]*Segment, 0, len(doc.Segments))
		for _, seg := range doc.Segments {
			if opts.SpeakerFilter[seg.Speaker] {
				segments = append(segments, seg)
			}
		}
	}
	labels := displayLabels(doc.Segments, doc.Roles)

	switch opts.Format {
	case FormatVTT:
		return renderVTT(w, segments, labels, opts)
	case FormatSRT:
		return renderSRT(w, segments, labels, opts)
	case FormatTXT:
		return renderTXT(w, segments, labels, opts)
	case FormatMarkdown:
		return renderMarkdown(w, doc, segments, labels, opts)
	case FormatJSON:
		return renderJSON(w, doc, segments)
	}
	return &ValidationError{Reason: fmt.Sprintf("unsupported transcript format %q", opts.Format)}
}

func renderVTT(w io.Writer, segments []*Segment, labels map[string]string, opts *RenderOptions) error {
	if _, err := io.WriteString(w, "WEBVTT\n\n"); err != nil {
		return err
	}
	for _, seg := range segments {
		text := seg.Text
		if !opts.ExcludeSpeakers {
			text = "<v " + labels[seg.Speaker] + ">" + text
		}
		if _, err := fmt.Fprintf(w, "%s --> %s\n%s\n\n",
			formatTimestamp(seg.StartMS, '.'), formatTimestamp(seg.EndMS, '.'), text); err != nil {
			return err
		}
	}
	return nil
}

func renderSRT(w io.Writer, segments []*Segment, labels map[string]string, opts *RenderOptions) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	for i, seg := range segments {
		text := seg.Text
		if !opts.ExcludeSpeakers {
			text = "[" + labels[seg.Speaker] + "] " + text
		}
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1, formatTimestamp(seg.StartMS, ','), formatTimestamp(seg.EndMS, ','), text); err != nil {
			return err
		}
	}
	return nil
}

func renderTXT(w io.Writer, segments []*Segment, labels map[string]string, opts *RenderOptions) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	for _, seg := range segments {
		if !opts.ExcludeTimestamps {
			if _, err := fmt.Fprintf(w, "[%s] ", formatClock(seg.StartMS)); err != nil {
				return err
			}
		}
		if !opts.ExcludeSpeakers {
			if _, err := io.WriteString(w, labels[seg.Speaker]+": "); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, seg.Text+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func renderMarkdown(w io.Writer, doc *Document, segments []*Segment, labels map[string]string, opts *RenderOptions) error {
	title := doc.Title
	if title == "" {
		title = "Transcript"
	}
	if _, err := fmt.Fprintf(w, "# %s\n\n", title); err != nil {
		return err
	}
	if !doc.Date.IsZero() {
		if _, err := fmt.Fprintf(w, "Date: %s\n", doc.Date.Format("2006-01-02")); err != nil {
			return err
		}
	}
	if doc.DurationSeconds > 0 {
		if _, err := fmt.Fprintf(w, "Duration: %s\n", formatClock(int64(doc.DurationSeconds)*1000)); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	for _, seg := range segments {
		name := labels[seg.Speaker]
		if opts.ExcludeSpeakers {
			name = ""
		}
		switch {
		case name != "" && !opts.ExcludeTimestamps:
			if _, err := fmt.Fprintf(w, "**%s** (%s): %s\n", name, formatClock(seg.StartMS), seg.Text); err != nil {
				return err
			}
		case name != "":
			if _, err := fmt.Fprintf(w, "**%s**: %s\n", name, seg.Text); err != nil {
				return err
			}
		case !opts.ExcludeTimestamps:
			if _, err := fmt.Fprintf(w, "(%s): %s\n", formatClock(seg.StartMS), seg.Text); err != nil {
				return err
			}
		default:
			if _, err := io.WriteString(w, seg.Text+"\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

type jsonSegment struct {
	Sequence   int     `json:"sequence"`
	StartMS    int64   `json:"start_ms"`
	EndMS      int64   `json:"end_ms"`
	Speaker    string  `json:"speaker"`
	Role       Role    `json:"role"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
}

type jsonDocument struct {
	SessionID       string            `json:"session_id"`
	Title           string            `json:"title,omitempty"`
	Date            string            `json:"date,omitempty"`
	DurationSeconds int               `json:"duration_seconds,omitempty"`
	Language        string            `json:"language,omitempty"`
	Speakers        map[string]string `json:"speakers"`
	Segments        []*jsonSegment    `json:"segments"`
	ExportedAt      string            `json:"exported_at"`
}

func renderJSON(w io.Writer, doc *Document, segments []*Segment) error {
	jd := &jsonDocument{
		SessionID:       doc.SessionID,
		Title:           doc.Title,
		DurationSeconds: doc.DurationSeconds,
		Language:        doc.Language,
		Speakers:        make(map[string]string, len(doc.Roles)),
		Segments:        make([]*jsonSegment, len(segments)),
		ExportedAt:      doc.ExportedAt.UTC().Format(time.RFC3339),
	}
	if !doc.Date.IsZero() {
		jd.Date = doc.Date.Format("2006-01-02")
	}
	// The JSON encoder sorts map keys so the speaker map is deterministic.
	for _, label := range SpeakerOrder(doc.Segments) {
		jd.Speakers[label] = string(doc.Roles.Resolve(label))
	}
	for i, seg := range segments {
		jd.Segments[i] = &jsonSegment{
			Sequence:   seg.Sequence,
			StartMS:    seg.StartMS,
			EndMS:      seg.EndMS,
			Speaker:    seg.Speaker,
			Role:       doc.Roles.Resolve(seg.Speaker),
			Text:       seg.Text,
			Confidence: seg.Confidence,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(jd)
}
