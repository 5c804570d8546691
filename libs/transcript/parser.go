package transcript

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/coachloop/backend/libs/golog"
)

const utf8BOM = "\xef\xbb\xbf"

// timestampLine matches the cue timing line of both VTT and SRT. Hours are
// optional, the decimal separator may be a period or a comma, and trailing cue
// settings (VTT position/align) are tolerated.
var timestampLine = regexp.MustCompile(
	`^(?:(\d{1,2}):)?(\d{1,2}):(\d{1,2})[.,](\d{1,3})\s*-->\s*(?:(\d{1,2}):)?(\d{1,2}):(\d{1,2})[.,](\d{1,3})(?:\s+.*)?$`)

// voiceTag matches a VTT voice span: <v Speaker>text or <v.class Speaker>text.
var voiceTag = regexp.MustCompile(`^<v(?:\.[^ >]*)?\s+([^>]+)>\s*(.*)$`)

// bracketTag matches a "[Speaker] text" prefix.
var bracketTag = regexp.MustCompile(`^\[([^\]]+)\]\s*(.*)$`)

// colonTag matches a "Speaker: text" prefix. The label is kept short and free
// of sentence punctuation so ordinary prose with colons is not misread.
var colonTag = regexp.MustCompile(`^([^:.?!\n]{1,32}?):\s+(.*)$`)

// Parse parses VTT or SRT content into ordered segments in a single pass.
// Cues with a non-positive duration are dropped with a warning. It returns a
// ValidationError when the content is empty or contains no valid timing line.
func Parse(content string, format Format) ([]*Segment, error) {
	switch format {
	case FormatVTT, FormatSRT:
	default:
		return nil, &ValidationError{Reason: "unsupported transcript format \"" + string(format) + "\""}
	}
	content = strings.TrimPrefix(content, utf8BOM)
	if strings.TrimSpace(content) == "" {
		return nil, &ValidationError{Reason: "no segments found"}
	}

	var segments []*Segment
	var cur *Segment
	var curText []string
	dropped := 0

	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.TrimSpace(strings.Join(curText, "\n"))
		if cur.EndMS <= cur.StartMS {
			golog.Warningf("transcript: dropping zero-duration segment at %s", formatTimestamp(cur.StartMS, '.'))
			dropped++
		} else if cur.Text != "" {
			segments = append(segments, cur)
		}
		cur = nil
		curText = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if m := timestampLine.FindStringSubmatch(trimmed); m != nil {
			flush()
			cur = &Segment{
				StartMS: timestampMS(m[1], m[2], m[3], m[4]),
				EndMS:   timestampMS(m[5], m[6], m[7], m[8]),
			}
			continue
		}

		if cur == nil {
			// Between cues: headers, NOTE/STYLE blocks, SRT indices, and VTT
			// cue identifiers are all skipped. Only timing lines open a cue.
			continue
		}
		if trimmed == "" {
			flush()
			continue
		}
		if len(curText) == 0 {
			speaker, text := splitSpeaker(trimmed)
			cur.Speaker = speaker
			curText = append(curText, text)
			continue
		}
		curText = append(curText, trimmed)
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(segments) == 0 {
		if dropped > 0 {
			return nil, &ValidationError{Reason: "no segments with a positive duration"}
		}
		return nil, &ValidationError{Reason: "no segments found"}
	}

	for i, seg := range segments {
		seg.Sequence = i + 1
		if seg.Speaker == "" {
			seg.Speaker = "Speaker " + strconv.Itoa(seg.Sequence)
		}
	}
	return segments, nil
}

// splitSpeaker extracts a speaker label from the first text line of a cue.
func splitSpeaker(line string) (speaker, text string) {
	if m := voiceTag.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSuffix(strings.TrimSpace(m[2]), "</v>")
	}
	if m := bracketTag.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	if m := colonTag.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return "", line
}

func timestampMS(h, m, s, frac string) int64 {
	hi, _ := strconv.ParseInt(h, 10, 64) // empty hours parse to 0
	mi, _ := strconv.ParseInt(m, 10, 64)
	si, _ := strconv.ParseInt(s, 10, 64)
	// Fractional part may be 1-3 digits. "5" means 500ms.
	for len(frac) < 3 {
		frac += "0"
	}
	fi, _ := strconv.ParseInt(frac, 10, 64)
	return hi*3600000 + mi*60000 + si*1000 + fi
}
