// Package ratelimit implements the fixed-window throttle guarding GitHub
// search calls.
//
// The GitHub search API allows 30 requests per minute, counted against
// fixed windows rather than a rolling token bucket. A caller exceeding the
// window capacity blocks until the window elapses, after which the counter
// resets and the call is admitted.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInvalidLimit indicates a non-positive capacity or window.
var ErrInvalidLimit = errors.New("capacity and window must be positive")

// FixedWindow admits up to capacity calls per window, blocking callers that
// exceed it until the window rolls over. Safe for concurrent use.
type FixedWindow struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	start    time.Time
	count    int

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFixedWindow creates a limiter admitting capacity calls per window.
func NewFixedWindow(capacity int, window time.Duration) (*FixedWindow, error) {
	if capacity <= 0 || window <= 0 {
		return nil, ErrInvalidLimit
	}
	return &FixedWindow{
		capacity: capacity,
		window:   window,
		now:      time.Now,
		sleep:    sleepCtx,
	}, nil
}

// Wait admits the call, blocking until the current window elapses if its
// capacity is exhausted. Returns the context error if ctx is done first.
func (w *FixedWindow) Wait(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := w.now()
		if w.start.IsZero() || now.Sub(w.start) >= w.window {
			w.start = now
			w.count = 0
		}
		if w.count < w.capacity {
			w.count++
			w.mu.Unlock()
			return nil
		}
		wait := w.window - now.Sub(w.start)
		w.mu.Unlock()

		if err := w.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Remaining reports how many calls the current window still admits.
func (w *FixedWindow) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.start.IsZero() || w.now().Sub(w.start) >= w.window {
		return w.capacity
	}
	return w.capacity - w.count
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
