// Package ratelimit provides simple interval rate limiters.
package ratelimit

import (
	"container/list"
	"sync"
	"time"
)

// RateLimiter checks whether an action with the given cost may proceed.
type RateLimiter interface {
	Check(cost int) (bool, error)
}

// KeyedRateLimiter checks limits independently per key.
type KeyedRateLimiter interface {
	Check(key string, cost int) (bool, error)
}

// Simple is a naïve single interval rate limiter. It uses a counter for the
// current interval which allows bursting within the interval.
type Simple struct {
	mu       sync.Mutex
	max      int
	interval time.Duration
	start    time.Time
	count    int
}

func NewSimple(max int, interval time.Duration) *Simple {
	return &Simple{
		max:      max,
		interval: interval,
	}
}

func (s *Simple) Check(cost int) (bool, error) {
	if cost > s.max {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if now.Sub(s.start) >= s.interval {
		s.start = now
		s.count = 0
	}
	s.count += cost
	return s.count <= s.max, nil
}

// LRUKeyed tracks a bounded number of per-key rate limiters, evicting the
// least recently used key when full.
type LRUKeyed struct {
	mu      sync.Mutex
	max     int
	newFunc func() RateLimiter
	order   *list.List
	entries map[string]*list.Element
}

type lruEntry struct {
	key string
	rl  RateLimiter
}

func NewLRUKeyed(maxKeys int, newFunc func() RateLimiter) *LRUKeyed {
	return &LRUKeyed{
		max:     maxKeys,
		newFunc: newFunc,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (l *LRUKeyed) Check(key string, cost int) (bool, error) {
	l.mu.Lock()
	el, ok := l.entries[key]
	if ok {
		l.order.MoveToFront(el)
	} else {
		el = l.order.PushFront(&lruEntry{key: key, rl: l.newFunc()})
		l.entries[key] = el
		if l.order.Len() > l.max {
			last := l.order.Back()
			l.order.Remove(last)
			delete(l.entries, last.Value.(*lruEntry).key)
		}
	}
	rl := el.Value.(*lruEntry).rl
	l.mu.Unlock()
	return rl.Check(cost)
}
