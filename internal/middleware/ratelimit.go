package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	windows map[string]*window
	now     func() time.Time
}

func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		period:  period,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow records a request for key. When the key is over its limit it
// returns false and the time left until the window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || !now.Before(w.resetAt) {
		rl.windows[key] = &window{count: 1, resetAt: now.Add(rl.period)}
		return true, 0
	}
	w.count++
	if w.count > rl.limit {
		return false, w.resetAt.Sub(now)
	}
	return true, 0
}

// Cleanup drops windows that have expired.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, key)
		}
	}
}

// RateLimit rejects requests over the limiter's budget, keyed by client IP,
// with 429 and a Retry-After header.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.Allow(RealIP(r))
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Round(time.Second)/time.Second)))
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"too many requests"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
