// Package ratelimit provides an in-process login limiter for single-instance deployments.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/campus-admin/admingate/internal/ports"
)

type window struct {
	count   int
	resetAt time.Time
}

// Memory is a fixed-window attempt counter held in process memory.
// Counters are not shared between instances and are lost on restart.
type Memory struct {
	maxAttempts int
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]window
}

var _ ports.LoginLimiter = (*Memory)(nil)

// MemoryOptions configures a Memory limiter.
type MemoryOptions struct {
	MaxAttempts int
	Window      time.Duration
	// Now is overridable for tests.
	Now func() time.Time
}

// NewMemory creates an in-memory login limiter.
func NewMemory(opts MemoryOptions) (*Memory, error) {
	if opts.MaxAttempts <= 0 || opts.Window <= 0 {
		return nil, errors.New("max attempts and window must be positive")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Memory{
		maxAttempts: opts.MaxAttempts,
		window:      opts.Window,
		now:         now,
		entries:     make(map[string]window),
	}, nil
}

// Check reports whether another attempt is allowed for key without reserving it.
func (m *Memory) Check(_ context.Context, key string) (ports.LimitDecision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, _ := m.live(key, now)
	return m.decide(w, now), nil
}

// Acquire reserves an attempt for key, opening a new window on the first one.
func (m *Memory) Acquire(_ context.Context, key string) (ports.LimitDecision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.live(key, now)
	if !ok {
		w = window{resetAt: now.Add(m.window)}
	}
	if w.count >= m.maxAttempts {
		return m.decide(w, now), nil
	}
	w.count++
	m.entries[key] = w
	return ports.LimitDecision{Allowed: true, Remaining: m.maxAttempts - w.count}, nil
}

// Release returns a reserved attempt. It is a no-op once the window has ended.
func (m *Memory) Release(_ context.Context, key string) error {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.live(key, now)
	if !ok {
		return nil
	}
	w.count--
	if w.count <= 0 {
		delete(m.entries, key)
		return nil
	}
	m.entries[key] = w
	return nil
}

// Reset clears the counter for key.
func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Sweep drops expired windows. Callers run it periodically to bound memory.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, w := range m.entries {
		if !now.Before(w.resetAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Run sweeps expired windows every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Memory) decide(w window, now time.Time) ports.LimitDecision {
	if w.count < m.maxAttempts {
		return ports.LimitDecision{Allowed: true, Remaining: m.maxAttempts - w.count}
	}
	return ports.LimitDecision{Allowed: false, RetryAfter: w.resetAt.Sub(now)}
}

// live returns the entry for key when its window has not ended. Caller holds mu.
func (m *Memory) live(key string, now time.Time) (window, bool) {
	w, ok := m.entries[key]
	if !ok {
		return window{}, false
	}
	if !now.Before(w.resetAt) {
		delete(m.entries, key)
		return window{}, false
	}
	return w, true
}
