package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a keyed token-bucket rate limiter with automatic stale-entry cleanup.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	r        rate.Limit
	burst    int
	key      func(*http.Request) string
}

// NewRateLimiter creates a per-IP limiter: r requests/second, burst up to burst requests.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return newRateLimiter(r, burst, realIP)
}

// NewUserRateLimiter buckets authenticated requests by user id so callers
// behind one carrier NAT do not share an allowance. Requests without claims
// fall back to the client IP.
func NewUserRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return newRateLimiter(r, burst, userOrIP)
}

func newRateLimiter(r rate.Limit, burst int, key func(*http.Request) string) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		r:        r,
		burst:    burst,
		key:      key,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.limiters[key]; ok {
		v.lastSeen = time.Now()
		return v.limiter
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.limiters[key] = &ipLimiter{limiter: l, lastSeen: time.Now()}
	return l
}

// cleanup removes stale entries every 5 minutes.
func (rl *RateLimiter) cleanup() {
	for {
		time.Sleep(5 * time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.limiters {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(rl.limiters, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Limit is the middleware handler that enforces the rate limit per key.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.get(rl.key(r)).Allow() {
			writeRateLimited(w, rl.refillInterval())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// refillInterval is the time for one token to come back.
func (rl *RateLimiter) refillInterval() time.Duration {
	if rl.r <= 0 || rl.r == rate.Inf {
		return time.Second
	}
	return time.Duration(float64(time.Second) / float64(rl.r))
}

func userOrIP(r *http.Request) string {
	if claims, ok := ClaimsFromContext(r.Context()); ok && claims.UserID != "" {
		return "user:" + claims.UserID
	}
	return "ip:" + realIP(r)
}

// realIP prefers the first X-Forwarded-For hop, then X-Real-Ip, then the
// host part of RemoteAddr.
func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xr := r.Header.Get("X-Real-Ip"); xr != "" {
		return strings.TrimSpace(xr)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
