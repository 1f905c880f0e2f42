package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// IdleTracker remembers when each browser was last seen and tells the
// registered services to let go of browsers that went quiet.
type IdleTracker struct {
	ttl      time.Duration
	now      func() time.Time
	mu       sync.Mutex
	lastSeen map[string]time.Time
	onExpire []func(browserID string)
}

func NewIdleTracker(ttl time.Duration, onExpire ...func(browserID string)) *IdleTracker {
	return &IdleTracker{
		ttl:      ttl,
		now:      time.Now,
		lastSeen: map[string]time.Time{},
		onExpire: onExpire,
	}
}

func (t *IdleTracker) Touch(browserID string) {
	t.mu.Lock()
	t.lastSeen[browserID] = t.now()
	t.mu.Unlock()
}

// Forget drops a browser immediately, as on logout.
func (t *IdleTracker) Forget(browserID string) {
	t.mu.Lock()
	delete(t.lastSeen, browserID)
	t.mu.Unlock()

	for _, fn := range t.onExpire {
		fn(browserID)
	}
}

// Sweep expires every browser idle for longer than the TTL and returns how
// many were dropped.
func (t *IdleTracker) Sweep() int {
	cutoff := t.now().Add(-t.ttl)

	t.mu.Lock()
	var expired []string
	for id, seen := range t.lastSeen {
		if seen.Before(cutoff) {
			expired = append(expired, id)
			delete(t.lastSeen, id)
		}
	}
	t.mu.Unlock()

	for _, id := range expired {
		for _, fn := range t.onExpire {
			fn(id)
		}
	}
	return len(expired)
}

// StartSweepTicker runs Sweep on a regular interval until ctx is cancelled.
func (t *IdleTracker) StartSweepTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				slog.Info("idle browsers released", "count", n)
			}
		}
	}
}
