package httputil

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coachloop/backend/libs/golog"
)

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	wroteHeader  bool
	bytesWritten int
}

func (w *loggingResponseWriter) WriteHeader(status int) {
	w.wroteHeader = true
	w.statusCode = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *loggingResponseWriter) Write(bytes []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(bytes)
	w.bytesWritten += n
	return n, err
}

type loggingHandler struct {
	h           http.Handler
	app         string
	behindProxy bool
}

// LoggingHandler wraps a handler to log one structured access-log entry per
// request and to recover and log panics.
func LoggingHandler(h http.Handler, app string, behindProxy bool) http.Handler {
	return &loggingHandler{h: h, app: app, behindProxy: behindProxy}
}

func (h *loggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
	startTime := time.Now()

	remoteAddr := r.RemoteAddr
	if h.behindProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			remoteAddr = strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
		}
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}

	defer func() {
		if rerr := recover(); rerr != nil {
			if !logrw.wroteHeader {
				logrw.WriteHeader(http.StatusInternalServerError)
			}
			Context(
				"app", h.app,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", remoteAddr,
			).Criticalf("http: panic: %v", rerr)
			return
		}
		Context(
			"app", h.app,
			"method", r.Method,
			"path", r.URL.Path,
			"status", logrw.statusCode,
			"bytes", logrw.bytesWritten,
			"remote_addr", remoteAddr,
			"duration_ms", time.Since(startTime).Milliseconds(),
			"user_agent", r.UserAgent(),
		).Infof("http: access")
	}()

	h.h.ServeHTTP(logrw, r)
}

// Context is a convenience for building a contextual logger from key/values.
func Context(ctx ...interface{}) golog.Logger {
	return golog.Default().Context(ctx...)
}
