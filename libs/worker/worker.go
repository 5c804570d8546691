// Package worker defines the interface background workers conform to along
// with common implementations.
package worker

import "time"

// Worker represents a mechanism performing periodic background work.
type Worker interface {
	Start()
	Stop(wait time.Duration)
	Started() bool
}
