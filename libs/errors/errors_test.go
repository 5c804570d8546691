package errors

import (
	"strings"
	"testing"
)

func TestTrace(t *testing.T) {
	orig := New("boom")
	err := Trace(orig)
	if Cause(err) != orig {
		t.Fatalf("Cause(%v) != original error", err)
	}
	if !strings.Contains(err.Error(), "errors/errors_test.go:") {
		t.Fatalf("expected trace to include call site, got %q", err.Error())
	}
	// Tracing twice appends rather than replacing.
	err = Trace(err)
	if n := strings.Count(err.Error(), "errors_test.go:"); n != 2 {
		t.Fatalf("expected 2 trace entries, got %d in %q", n, err.Error())
	}
}

func TestTraceNil(t *testing.T) {
	if Trace(nil) != nil {
		t.Fatal("Trace(nil) should be nil")
	}
	if Annotate(nil, "context") != nil {
		t.Fatal("Annotate(nil) should be nil")
	}
}

func TestAnnotate(t *testing.T) {
	err := Annotate(New("boom"), "while exploding")
	err = Annotatef(err, "attempt %d", 2)
	anns := Annotations(err)
	if len(anns) != 2 {
		t.Fatalf("expected 2 annotations, got %v", anns)
	}
	if !strings.Contains(err.Error(), "while exploding, attempt 2") {
		t.Fatalf("unexpected error string %q", err.Error())
	}
	if Cause(err).Error() != "boom" {
		t.Fatalf("unexpected cause %v", Cause(err))
	}
}
