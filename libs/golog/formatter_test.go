package golog

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coachloop/backend/libs/test"
)

func TestJSONFormatter(t *testing.T) {
	e := &Entry{
		Time: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		Lvl:  INFO,
		Msg:  "http: access",
		Ctx:  []interface{}{"app", "transcription", "status", 200},
		Src:  "svc/main.go:42",
	}
	b := JSONFormatter().Format(e)
	test.Assert(t, strings.HasSuffix(string(b), "\n"), "expected trailing newline, got %q", b)

	var m map[string]interface{}
	test.OK(t, json.Unmarshal(b, &m))
	test.Equals(t, "2024-03-15T10:00:00+0000", m["t"])
	test.Equals(t, "INFO", m["level"])
	test.Equals(t, "http: access", m["msg"])
	test.Equals(t, "svc/main.go:42", m["src"])
	test.Equals(t, "transcription", m["app"])
	test.Equals(t, float64(200), m["status"])
}

func TestLogfmtFormatter(t *testing.T) {
	e := &Entry{
		Time: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		Lvl:  ERR,
		Msg:  "query failed",
		Ctx:  []interface{}{"attempt", 2},
	}
	out := string(LogfmtFormatter().Format(e))
	for _, part := range []string{"lvl=ERR", `msg="query failed"`, "attempt=2"} {
		test.Assert(t, strings.Contains(out, part), "expected %q in %q", part, out)
	}
}
