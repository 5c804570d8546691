// Package conc includes helpers for concurrency patterns that avoid some of
// the most common pitfalls.
package conc

import "time"

// Testing should be set to true when running tests for code that uses this
// package. It makes all functionality synchronous so tests are deterministic.
var Testing bool

// Go runs the provided function in a goroutine, or synchronously when Testing.
func Go(f func()) {
	if Testing {
		f()
		return
	}
	go f()
}

// AfterFunc runs the provided function in a goroutine after the provided
// duration, or immediately and synchronously when Testing.
func AfterFunc(d time.Duration, f func()) *time.Timer {
	if Testing {
		f()
		return nil
	}
	return time.AfterFunc(d, f)
}
