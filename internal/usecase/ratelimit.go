package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiter admits at most one request per user within a fixed interval.
// It keeps a per-user last-admitted timestamp; the read-then-record step is
// guarded by a single mutex so two near-simultaneous requests by the same
// user cannot both be admitted.
//
// Construct one per process and inject it; there is no package-level instance.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	lastSeen map[string]time.Time
}

// NewRateLimiter creates a limiter with the given admission interval.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		lastSeen: make(map[string]time.Time),
	}
}

// Allow reports whether userID may proceed at instant now. The first request
// for a user is always admitted. The timestamp is recorded only on admission;
// a denied request leaves the stored window untouched. A wall clock stepping
// backwards can cause spurious admits or denials and is not special-cased.
func (r *RateLimiter) Allow(userID string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.lastSeen[userID]; ok && now.Sub(last) < r.interval {
		return false
	}
	r.lastSeen[userID] = now
	return true
}

// Interval returns the configured admission interval.
func (r *RateLimiter) Interval() time.Duration { return r.interval }

// Len returns the number of tracked users.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lastSeen)
}

// Sweep drops entries whose last admission is older than maxIdle and returns
// the number removed. Users swept away are treated as new on their next
// request, which the admission rule admits anyway.
func (r *RateLimiter) Sweep(now time.Time, maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, last := range r.lastSeen {
		if now.Sub(last) > maxIdle {
			delete(r.lastSeen, id)
			removed++
		}
	}
	return removed
}

// Janitor sweeps idle entries on a ticker until ctx is cancelled. Run it in
// its own goroutine; without it the table grows for the process lifetime.
func (r *RateLimiter) Janitor(ctx context.Context, every, maxIdle time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(time.Now(), maxIdle); n > 0 {
				logger.Debug("rate limiter swept idle users", "removed", n, "tracked", r.Len())
			}
		case <-ctx.Done():
			return
		}
	}
}
