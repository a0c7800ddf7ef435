package middleware

import (
	"net/http"
	"sync"
	"time"
)

// EdgeLimiter is a per-process sliding-window limiter used at the HTTP edge
// to shed abusive traffic before it reaches the store-backed core limiters.
// It is deliberately per-instance: the authoritative limits are the DB-count
// limiters in the auth core.
type EdgeLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	window   time.Duration
	maxReqs  int
}

// NewEdgeLimiter creates an edge limiter allowing maxReqs per window per key.
func NewEdgeLimiter(window time.Duration, maxReqs int) *EdgeLimiter {
	l := &EdgeLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		maxReqs:  maxReqs,
	}
	go l.cleanup()
	return l
}

// Allow checks if a request is allowed for the given key
func (l *EdgeLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	kept := l.requests[key][:0]
	for _, t := range l.requests[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.maxReqs {
		l.requests[key] = kept
		return false
	}

	l.requests[key] = append(kept, now)
	return true
}

// cleanup periodically drops idle keys to bound memory.
func (l *EdgeLimiter) cleanup() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		cutoff := time.Now().Add(-l.window * 2)
		for key, reqs := range l.requests {
			latest := time.Time{}
			for _, t := range reqs {
				if t.After(latest) {
					latest = t
				}
			}
			if latest.Before(cutoff) {
				delete(l.requests, key)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimitMiddleware rejects requests over the edge limit with 429.
func RateLimitMiddleware(limiter *EdgeLimiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(keyFunc(r)) {
				respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetIPKey extracts the client IP from the request for rate limiting.
func GetIPKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return "ip:" + forwarded
	}
	return "ip:" + r.RemoteAddr
}
