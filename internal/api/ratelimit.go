// ratelimit.go implements token-bucket rate limiting for the order API.
//
// Each authenticated user gets a bucket that refills continuously, so a
// burst of order placements is absorbed up to the bucket capacity and
// sustained traffic is held to the refill rate. Requests that find the
// bucket empty are rejected with 429 rather than queued; trading clients
// are expected to back off and retry.
package api

import (
	"net/http"
	"sync"
	"time"
)

// TokenBucket is a continuously refilling token bucket. Take is
// non-blocking: it reports whether a token was available.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64 // current available tokens (fractional allowed)
	capacity float64 // maximum burst size
	rate     float64 // tokens refilled per second
	lastTime time.Time
}

// NewTokenBucket creates a bucket with the given capacity and refill rate.
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Take consumes a token if one is available.
func (tb *TokenBucket) Take() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastTime).Seconds()
	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastTime = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// RateLimiter hands out one bucket per user.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*TokenBucket
	capacity float64
	rate     float64
}

// NewRateLimiter creates a per-user limiter. Every user gets a bucket of
// the given burst capacity refilling at ratePerSecond.
func NewRateLimiter(capacity, ratePerSecond float64) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*TokenBucket),
		capacity: capacity,
		rate:     ratePerSecond,
	}
}

func (rl *RateLimiter) bucket(userID string) *TokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[userID]
	if !ok {
		b = NewTokenBucket(rl.capacity, rl.rate)
		rl.buckets[userID] = b
	}
	return b
}

// Allow reports whether the user may make another request now.
func (rl *RateLimiter) Allow(userID string) bool {
	return rl.bucket(userID).Take()
}

// rateLimit rejects requests from users who have exhausted their bucket.
// Must run after requireAuth so the user is known.
func (h *Handlers) rateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}
		if !h.limiter.Allow(claims.UserID) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}
