package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the number of calls allowed per endpoint within one window.
	DefaultMaxRequests = 20

	// DefaultWindow is the sliding window length.
	DefaultWindow = 60 * time.Second
)

// Limiter is a per-endpoint sliding-window request counter.
//
// For every endpoint it keeps the timestamps of accepted calls within the
// trailing window. A call is accepted while fewer than maxRequests timestamps
// remain after pruning; a rejected call records nothing. Pruning, checking and
// recording happen under one lock, so concurrent callers cannot overshoot the
// budget.
//
// State is process-local and is lost on restart.
type Limiter struct {
	mu          sync.Mutex
	windows     map[string][]time.Time
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a limiter allowing maxRequests calls per endpoint in each window.
// Non-positive values fall back to the defaults.
func New(maxRequests int, window time.Duration, opts ...Option) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}

	l := &Limiter{
		windows:     make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether a call to endpoint may proceed, and records it if so.
func (l *Limiter) Allow(endpoint string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	timestamps := l.pruneLocked(endpoint, now)
	if len(timestamps) >= l.maxRequests {
		return false
	}

	l.windows[endpoint] = append(timestamps, now)
	return true
}

// RetryAfter returns how long until endpoint has budget again. It is zero
// when a call would be accepted now.
func (l *Limiter) RetryAfter(endpoint string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	timestamps := l.pruneLocked(endpoint, now)
	if len(timestamps) < l.maxRequests {
		return 0
	}

	// The oldest timestamp that must expire to free one slot.
	oldest := timestamps[len(timestamps)-l.maxRequests]
	wait := oldest.Add(l.window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// Remaining returns how many calls endpoint may still make in the current window.
func (l *Limiter) Remaining(endpoint string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.maxRequests - len(l.pruneLocked(endpoint, l.now()))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset forgets all recorded calls.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string][]time.Time)
}

// Limits returns the configured budget.
func (l *Limiter) Limits() (maxRequests int, window time.Duration) {
	return l.maxRequests, l.window
}

// pruneLocked drops timestamps older than the window and returns the remainder.
// REQUIRES: l.mu held.
func (l *Limiter) pruneLocked(endpoint string, now time.Time) []time.Time {
	timestamps := l.windows[endpoint]
	if len(timestamps) == 0 {
		return nil
	}

	cutoff := now.Add(-l.window)
	i := 0
	for i < len(timestamps) && !timestamps[i].After(cutoff) {
		i++
	}
	if i == len(timestamps) {
		delete(l.windows, endpoint)
		return nil
	}
	if i > 0 {
		timestamps = append(timestamps[:0:0], timestamps[i:]...)
		l.windows[endpoint] = timestamps
	}
	return timestamps
}
