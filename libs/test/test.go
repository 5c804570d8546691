// Package test provides minimal assertion helpers for tests.
package test

import (
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

// OK fails the test if err is not nil.
func OK(t testing.TB, err error) {
	if err != nil {
		t.Fatalf("%s: unexpected error: %s", callerString(1), err)
	}
}

// Equals fails the test if exp is not deeply equal to got.
func Equals(t testing.TB, exp, got interface{}) {
	if !reflect.DeepEqual(exp, got) {
		t.Fatalf("%s:\n\texp: %+v\n\tgot: %+v", callerString(1), exp, got)
	}
}

// Assert fails the test with msg if the condition is false.
func Assert(t testing.TB, condition bool, msg string, v ...interface{}) {
	if !condition {
		t.Fatalf("%s: %s", callerString(1), fmt.Sprintf(msg, v...))
	}
}

func callerString(calldepth int) string {
	_, file, line, ok := runtime.Caller(calldepth + 1)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
