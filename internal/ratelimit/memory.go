package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// MemoryLimiter keeps fixed-window counters in process memory. Windows reset
// lazily on first access past their boundary; Sweep reclaims expired entries
// so the tracked set stays bounded.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*window
	now     func() time.Time
}

// NewMemoryLimiter builds an empty limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*window),
		now:     time.Now,
	}
}

// WithClock overrides the time source. Test use.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

// Check implements Limiter.
func (l *MemoryLimiter) Check(_ context.Context, identifier string, class Class) (Result, error) {
	policy := PolicyFor(class)
	key := string(class) + ":" + identifier
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.entries[key]
	if !ok || now.Sub(w.start) >= policy.Window {
		w = &window{start: now}
		l.entries[key] = w
	}

	if w.count >= policy.Limit {
		return Result{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: w.start.Add(policy.Window).Sub(now),
		}, nil
	}

	w.count++
	return Result{Allowed: true, Remaining: policy.Limit - w.count}, nil
}

// Sweep drops windows whose boundary has passed. Called periodically by the
// cleanup worker; correctness does not depend on it.
func (l *MemoryLimiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.entries {
		class, _, _ := cutKey(key)
		if now.Sub(w.start) >= PolicyFor(class).Window {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

func cutKey(key string) (Class, string, bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return Class(key[:i]), key[i+1:], true
		}
	}
	return ClassDefault, key, false
}
