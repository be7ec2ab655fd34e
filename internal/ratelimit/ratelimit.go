// Package ratelimit throttles room create/join attempts per source address.
//
// Both limiters are fixed-window counters: the first attempt from an address opens a
// window, every attempt inside it increments the count, and attempts beyond the
// maximum are throttled until the window elapses. Bursts straddling a window
// boundary are not smoothed.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultWindow is the length of one counting window.
	DefaultWindow = 60 * time.Second

	// DefaultMax is the number of attempts allowed per window.
	DefaultMax = 60
)

// Limiter decides whether an attempt from addr must be rejected.
type Limiter interface {
	ShouldThrottle(ctx context.Context, addr string, now time.Time) bool
}

// Evicter is implemented by limiters that keep per-address state in process memory.
type Evicter interface {
	Evict(now time.Time) int
}

type bucket struct {
	windowStart time.Time
	count       int
}

// Memory is an in-process Limiter. The zero value is not usable; call NewMemory.
type Memory struct {
	window time.Duration
	max    int

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemory creates an in-memory limiter. Non-positive arguments fall back to the defaults.
func NewMemory(window time.Duration, max int) *Memory {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMax
	}
	return &Memory{
		window:  window,
		max:     max,
		buckets: make(map[string]*bucket),
	}
}

// ShouldThrottle counts one attempt from addr.
func (m *Memory) ShouldThrottle(_ context.Context, addr string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[addr]
	if !ok || now.Sub(b.windowStart) >= m.window {
		m.buckets[addr] = &bucket{windowStart: now, count: 1}
		return false
	}

	b.count++
	return b.count > m.max
}

// Evict drops buckets whose window has elapsed and returns how many were removed.
func (m *Memory) Evict(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for addr, b := range m.buckets {
		if now.Sub(b.windowStart) >= m.window {
			delete(m.buckets, addr)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked addresses.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
