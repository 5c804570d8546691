package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coachloop/backend/libs/golog"
	"github.com/coachloop/backend/libs/test"
)

type logCapture struct {
	entries []*golog.Entry
}

func (c *logCapture) Log(e *golog.Entry) error {
	c.entries = append(c.entries, e)
	return nil
}

func captureLogs(t *testing.T) *logCapture {
	c := &logCapture{}
	old := golog.Default().Handler()
	golog.Default().SetHandler(c)
	t.Cleanup(func() { golog.Default().SetHandler(old) })
	return c
}

func ctxValue(e *golog.Entry, key string) interface{} {
	for i := 0; i+1 < len(e.Ctx); i += 2 {
		if e.Ctx[i] == key {
			return e.Ctx[i+1]
		}
	}
	return nil
}

func TestLoggingHandlerAccess(t *testing.T) {
	logs := captureLogs(t)

	h := LoggingHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}), "transcription", false)

	r := httptest.NewRequest("POST", "/sessions", nil)
	r.RemoteAddr = "10.1.2.3:4321"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	test.Equals(t, http.StatusCreated, w.Code)
	test.Equals(t, 1, len(logs.entries))
	e := logs.entries[0]
	test.Equals(t, golog.INFO, e.Lvl)
	test.Equals(t, "http: access", e.Msg)
	test.Equals(t, "transcription", ctxValue(e, "app"))
	test.Equals(t, "POST", ctxValue(e, "method"))
	test.Equals(t, "/sessions", ctxValue(e, "path"))
	test.Equals(t, http.StatusCreated, ctxValue(e, "status"))
	test.Equals(t, len("created"), ctxValue(e, "bytes"))
	test.Equals(t, "10.1.2.3", ctxValue(e, "remote_addr"))
}

func TestLoggingHandlerBehindProxy(t *testing.T) {
	logs := captureLogs(t)

	h := LoggingHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}), "transcription", true)

	r := httptest.NewRequest("GET", "/sessions", nil)
	r.RemoteAddr = "10.0.0.1:4321"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	test.Equals(t, 1, len(logs.entries))
	test.Equals(t, "203.0.113.9", ctxValue(logs.entries[0], "remote_addr"))
}

func TestLoggingHandlerPanic(t *testing.T) {
	logs := captureLogs(t)

	h := LoggingHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), "transcription", false)

	r := httptest.NewRequest("GET", "/sessions/ts_1", nil)
	r.RemoteAddr = "10.1.2.3:4321"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	test.Equals(t, http.StatusInternalServerError, w.Code)
	test.Equals(t, 1, len(logs.entries))
	e := logs.entries[0]
	test.Equals(t, golog.CRIT, e.Lvl)
	test.Equals(t, "http: panic: boom", e.Msg)
	test.Equals(t, "/sessions/ts_1", ctxValue(e, "path"))
}
