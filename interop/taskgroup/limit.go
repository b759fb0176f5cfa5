package taskgroup

import (
	"context"
	"sync/atomic"
)

// Limiter bounds how many of a Group's functions may run concurrently and
// reports its current occupancy, so a Group can expose live concurrency
// (Group.InFlight) instead of only gating it.
type Limiter interface {
	Acquire(ctx context.Context) error
	Release()
	InFlight() int
}

// semLimiter is a channel-backed semaphore that also tracks how many
// holders currently occupy it.
type semLimiter struct {
	ch     chan struct{}
	active int64
}

func newSemaphoreLimiter(n int) Limiter {
	if n <= 0 {
		return nil
	}
	return &semLimiter{ch: make(chan struct{}, n)}
}

func (l *semLimiter) Acquire(ctx context.Context) error {
	select {
	case l.ch <- struct{}{}:
		atomic.AddInt64(&l.active, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *semLimiter) Release() {
	select {
	case <-l.ch:
		atomic.AddInt64(&l.active, -1)
	default:
	}
}

func (l *semLimiter) InFlight() int { return int(atomic.LoadInt64(&l.active)) }
