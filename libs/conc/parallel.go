package conc

import "sync"

// Parallel runs a set of functions concurrently and collects the first error.
type Parallel struct {
	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

// NewParallel returns an empty Parallel group.
func NewParallel() *Parallel {
	return &Parallel{}
}

// Go schedules f on the group. When Testing is set it runs synchronously.
func (p *Parallel) Go(f func() error) {
	p.wg.Add(1)
	run := func() {
		defer p.wg.Done()
		if err := f(); err != nil {
			p.errOnce.Do(func() { p.err = err })
		}
	}
	if Testing {
		run()
		return
	}
	go run()
}

// Wait blocks until all scheduled functions finish and returns the first
// error encountered, if any.
func (p *Parallel) Wait() error {
	p.wg.Wait()
	return p.err
}
