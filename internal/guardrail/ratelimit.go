package guardrail

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limits are the maximum requests allowed per trailing window.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// DefaultLimits returns 10/minute, 100/hour, 500/day.
func DefaultLimits() Limits {
	return Limits{PerMinute: 10, PerHour: 100, PerDay: 500}
}

// Limiter enforces per-business request limits.
type Limiter interface {
	Check(ctx context.Context, businessID string) (Result, error)
}

// historyWindow is how long a request timestamp is retained.
const historyWindow = 24 * time.Hour

// window is one business's pruned request history. A retired window has been
// removed from the limiter and must not be written to.
type window struct {
	history []time.Time
	mu      sync.Mutex
	retired bool
}

// prune drops timestamps older than the day window.
func (w *window) prune(now time.Time) {
	kept := w.history[:0]
	for _, ts := range w.history {
		if now.Sub(ts) < historyWindow {
			kept = append(kept, ts)
		}
	}
	w.history = kept
}

// MemoryLimiter keeps request history in process. Each business's history
// is guarded by its own mutex so read-prune-append is atomic per identity.
// Identities idle for a full day are swept at most once per sweep interval.
type MemoryLimiter struct {
	windows   map[string]*window
	now       func() time.Time
	lastSweep time.Time
	limits    Limits
	mu        sync.Mutex
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(limits Limits) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
		limits:  limits,
	}
}

func (l *MemoryLimiter) windowFor(businessID string, now time.Time) *window {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= time.Hour {
		l.sweep(now)
		l.lastSweep = now
	}

	w, ok := l.windows[businessID]
	if !ok {
		w = &window{}
		l.windows[businessID] = w
	}
	return w
}

// sweep retires windows with no history inside the day window. Callers hold l.mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	for id, w := range l.windows {
		if !w.mu.TryLock() {
			continue
		}
		w.prune(now)
		if len(w.history) == 0 {
			w.retired = true
			delete(l.windows, id)
		}
		w.mu.Unlock()
	}
}

// Len reports how many identities are currently tracked.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Check counts the current request against each window and records it on pass.
func (l *MemoryLimiter) Check(_ context.Context, businessID string) (Result, error) {
	now := l.now().UTC()

	w := l.windowFor(businessID, now)
	w.mu.Lock()
	for w.retired {
		w.mu.Unlock()
		w = l.windowFor(businessID, now)
		w.mu.Lock()
	}
	defer w.mu.Unlock()

	w.prune(now)

	var perMinute, perHour int
	for _, ts := range w.history {
		age := now.Sub(ts)
		if age < time.Minute {
			perMinute++
		}
		if age < time.Hour {
			perHour++
		}
	}

	// The current request counts toward every window.
	result := l.limits.evaluate(perMinute+1, perHour+1, len(w.history)+1)
	if result.Passed {
		w.history = append(w.history, now)
	}
	return result, nil
}

func (l Limits) evaluate(perMinute, perHour, perDay int) Result {
	result := NewResult()
	switch {
	case perMinute > l.PerMinute:
		result.AddViolation(ViolationRateLimitExceeded, SeverityHigh,
			fmt.Sprintf("Exceeded %d requests per minute", l.PerMinute),
			map[string]any{"requests": perMinute, "window": "minute"})
	case perHour > l.PerHour:
		result.AddViolation(ViolationRateLimitExceeded, SeverityHigh,
			fmt.Sprintf("Exceeded %d requests per hour", l.PerHour),
			map[string]any{"requests": perHour, "window": "hour"})
	case perDay > l.PerDay:
		result.AddViolation(ViolationRateLimitExceeded, SeverityHigh,
			fmt.Sprintf("Exceeded %d requests per day", l.PerDay),
			map[string]any{"requests": perDay, "window": "day"})
	}
	return result
}
