package utils

import (
	"context"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"golang.org/x/time/rate"

	"github.com/mysocial-network/beacon/module/irrecoverable"
)

const (
	cleanUpTickInterval = 10 * time.Minute
	rateLimiterTTL      = 10 * time.Minute
)

// GetTimeNow returns the current time, it is overridden in tests.
type GetTimeNow func() time.Time

type limiterEntry struct {
	limiter      *rate.Limiter
	lastAccessed time.Time
}

// RateLimiter keeps one token bucket per peer. A zero limit disables rate limiting.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[peer.ID]*limiterEntry
	// limit amount of messages allowed per second.
	limit rate.Limit
	// burst amount of messages allowed at one time.
	burst int
	now   GetTimeNow
	ttl   time.Duration
}

// NewRateLimiter returns a rate limiter allowing limit events per second with the given burst
// for every peer.
func NewRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[peer.ID]*limiterEntry),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
		ttl:      rateLimiterTTL,
	}
}

// Disabled returns true if the limiter lets everything through.
func (r *RateLimiter) Disabled() bool {
	return r.limit <= 0
}

// Allow reports whether an event from the given peer may happen now.
func (r *RateLimiter) Allow(peerID peer.ID) bool {
	if r.Disabled() {
		return true
	}
	return r.getLimiter(peerID).AllowN(r.now(), 1)
}

// Wait blocks until an event for the given peer is allowed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, peerID peer.ID) error {
	if r.Disabled() {
		return nil
	}
	return r.getLimiter(peerID).Wait(ctx)
}

// Remove drops the limiter of the peer.
func (r *RateLimiter) Remove(peerID peer.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limiters, peerID)
}

// Size returns the number of peers tracked.
func (r *RateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// SetTimeNowFunc overrides the default time.Now func.
func (r *RateLimiter) SetTimeNowFunc(now GetTimeNow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// CleanupLoop periodically removes limiters of peers that were inactive for longer than the
// TTL. It blocks until ctx is cancelled.
func (r *RateLimiter) CleanupLoop(ctx irrecoverable.SignalerContext) {
	ticker := time.NewTicker(cleanUpTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cleanup()
		}
	}
}

// Cleanup removes limiters of inactive peers.
func (r *RateLimiter) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for pid, entry := range r.limiters {
		if now.Sub(entry.lastAccessed) > r.ttl {
			delete(r.limiters, pid)
		}
	}
}

func (r *RateLimiter) getLimiter(peerID peer.ID) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.limiters[peerID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[peerID] = entry
	}
	entry.lastAccessed = r.now()
	return entry.limiter
}
