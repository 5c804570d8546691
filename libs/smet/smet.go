// Package smet provides simple named counters for error accounting in
// background workers, backed by go-metrics counters.
package smet

import (
	"sync"

	"github.com/samuel/go-metrics/metrics"

	"github.com/coachloop/backend/libs/golog"
)

var (
	mu       sync.Mutex
	registry metrics.Registry
	counters = make(map[string]*metrics.Counter)
)

// InitRegistry sets the registry under which smet counters are registered.
// Counters created before InitRegistry remain local.
func InitRegistry(r metrics.Registry) {
	mu.Lock()
	registry = r
	for name, c := range counters {
		registry.Add(name, c)
	}
	mu.Unlock()
}

// GetCounter returns the counter with the given name, creating it if needed.
func GetCounter(name string) *metrics.Counter {
	mu.Lock()
	defer mu.Unlock()
	c, ok := counters[name]
	if !ok {
		c = metrics.NewCounter()
		counters[name] = c
		if registry != nil {
			registry.Add(name, c)
		}
	}
	return c
}

// Error increments the named counter and logs the error.
func Error(name string, err error) {
	GetCounter(name).Inc(1)
	golog.LogDepthf(1, golog.ERR, "%s: %s", name, err)
}

// Errorf increments the named counter and logs the formatted message.
func Errorf(name string, format string, args ...interface{}) {
	GetCounter(name).Inc(1)
	golog.LogDepthf(1, golog.ERR, name+": "+format, args...)
}
