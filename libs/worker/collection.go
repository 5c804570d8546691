package worker

import (
	"time"

	"github.com/coachloop/backend/libs/conc"
)

// Collection manages the lifecycle of a set of workers.
type Collection struct {
	workers []Worker
}

// AddWorker adds a worker to the collection of managed workers.
func (c *Collection) AddWorker(w Worker) {
	c.workers = append(c.workers, w)
}

// Start starts all workers.
func (c *Collection) Start() {
	for _, wk := range c.workers {
		wk := wk
		conc.Go(wk.Start)
	}
}

// Stop stops all workers, waiting up to the provided duration for each.
func (c *Collection) Stop(wait time.Duration) {
	parallel := conc.NewParallel()
	for _, wk := range c.workers {
		wk := wk
		parallel.Go(func() error {
			wk.Stop(wait)
			return nil
		})
	}
	parallel.Wait()
}
