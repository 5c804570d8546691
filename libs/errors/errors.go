// Package errors provides helpers to attach call-site and annotation context
// to errors for easier debugging. Wrapped errors mask the original error from
// type assertions, so use Cause at the point where the concrete error matters.
// This package is mainly useful for applications rather than libraries.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

type aerr struct {
	err         error // actual error
	trace       []string
	annotations []string
}

func wrap(err error) aerr {
	if e, ok := err.(aerr); ok {
		return e
	}
	return aerr{err: err}
}

// Error implements the error interface.
func (e aerr) Error() string {
	es := e.err.Error()
	if len(e.annotations) != 0 {
		es += " (" + strings.Join(e.annotations, ", ") + ")"
	}
	if len(e.trace) != 0 {
		es += " [" + strings.Join(e.trace, ", ") + "]"
	}
	return es
}

// New returns an error with the provided message.
func New(msg string) error {
	return errors.New(msg)
}

// Errorf returns an error with the formatted message.
func Errorf(f string, v ...interface{}) error {
	return fmt.Errorf(f, v...)
}

// Trace wraps an error recording the file:line of the caller. Calling Trace
// on an already wrapped error appends to the existing trace.
func Trace(err error) error {
	if err == nil {
		return nil
	}
	e := wrap(err)
	e.trace = append(e.trace, caller(2))
	return e
}

// Annotate adds context to an error that's useful when debugging.
func Annotate(err error, msg string) error {
	if err == nil {
		return nil
	}
	e := wrap(err)
	e.annotations = append(e.annotations, msg)
	return e
}

// Annotatef adds formatted context to an error that's useful when debugging.
func Annotatef(err error, f string, v ...interface{}) error {
	if err == nil {
		return nil
	}
	e := wrap(err)
	e.annotations = append(e.annotations, fmt.Sprintf(f, v...))
	return e
}

// Annotations returns all annotations attached to an error.
func Annotations(err error) []string {
	if e, ok := err.(aerr); ok {
		return e.annotations
	}
	return nil
}

// Cause returns the original error ignoring any attached trace or annotations.
func Cause(err error) error {
	if e, ok := err.(aerr); ok {
		return e.err
	}
	return err
}

func caller(calldepth int) string {
	_, file, line, ok := runtime.Caller(calldepth)
	if !ok {
		return "unknown"
	}
	short := file
	depth := 0
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			short = file[i+1:]
			depth++
			if depth == 2 {
				break
			}
		}
	}
	return fmt.Sprintf("%s:%d", short, line)
}
