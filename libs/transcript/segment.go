// Package transcript implements parsing, rendering, and speaker-role handling
// for timed transcript documents (VTT, SRT, JSON, plain text, Markdown).
package transcript

import (
	"fmt"
	"strings"
)

// Format identifies a transcript interchange format.
type Format string

const (
	FormatVTT      Format = "vtt"
	FormatSRT      Format = "srt"
	FormatJSON     Format = "json"
	FormatTXT      Format = "txt"
	FormatMarkdown Format = "md"
)

// ParseFormat normalizes a user-provided format string.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatVTT, FormatSRT, FormatJSON, FormatTXT, FormatMarkdown:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	}
	return "", &ValidationError{Reason: fmt.Sprintf("unsupported transcript format %q", s)}
}

// MIMEType returns the content type consuming tools expect for the format.
func (f Format) MIMEType() string {
	switch f {
	case FormatVTT:
		return "text/vtt; charset=utf-8"
	case FormatSRT:
		return "application/x-subrip"
	case FormatJSON:
		return "application/json"
	case FormatTXT:
		return "text/plain; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	}
	return "application/octet-stream"
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	return string(f)
}

// Segment is one timed transcript unit.
type Segment struct {
	// Sequence is the 1-based position of the segment within its transcript.
	Sequence int
	StartMS  int64
	EndMS    int64
	// Speaker is the raw label as it appeared in the source (or an assigned
	// "Speaker N" when the source carried no tag).
	Speaker string
	Text    string
	// Confidence is the provider-reported confidence in [0,1], 0 when absent.
	Confidence float64
}

// DurationMS returns the segment duration in milliseconds.
func (s *Segment) DurationMS() int64 {
	return s.EndMS - s.StartMS
}

// ValidationError indicates unusable transcript input (empty content, no
// parsable timestamps, unsupported format). It is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "transcript: " + e.Reason
}

// IsValidationError returns true if err is a ValidationError.
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// formatTimestamp renders milliseconds as hh:mm:ss<decSep>mmm.
func formatTimestamp(ms int64, decSep byte) string {
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000
	frac := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, decSep, frac)
}

// formatClock renders milliseconds as hh:mm:ss.
func formatClock(ms int64) string {
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
