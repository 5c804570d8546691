package worker

import (
	"sync/atomic"
	"time"
)

type repeatWorker struct {
	started  uint32
	interval time.Duration
	workF    func()
	stopCh   chan chan struct{}
}

// NewRepeat returns a worker that invokes workF every interval until stopped.
// The first invocation happens immediately after Start.
func NewRepeat(interval time.Duration, workF func()) Worker {
	return &repeatWorker{
		interval: interval,
		workF:    workF,
		stopCh:   make(chan chan struct{}, 1),
	}
}

func (w *repeatWorker) Started() bool {
	return atomic.LoadUint32(&w.started) != 0
}

func (w *repeatWorker) Stop(wait time.Duration) {
	if w.Started() {
		ch := make(chan struct{})
		w.stopCh <- ch
		select {
		case <-ch:
		case <-time.After(wait):
		}
	}
}

func (w *repeatWorker) Start() {
	if atomic.SwapUint32(&w.started, 1) == 1 {
		return
	}
	go func() {
		defer atomic.StoreUint32(&w.started, 0)
		tc := time.NewTicker(w.interval)
		defer tc.Stop()
		for {
			w.workF()
			select {
			case ch := <-w.stopCh:
				ch <- struct{}{}
				return
			case <-tc.C:
			}
		}
	}()
}
