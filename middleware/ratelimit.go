package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long an unused per-client limiter is kept.
const idleLimiterTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per client key.
type RateLimiter struct {
	limit rate.Limit
	burst int
	key   func(*http.Request) string
	now   func() time.Time

	mtx     sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimiter allows rps requests per second with the given burst per
// client. rps <= 0 disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   limit,
		burst:   burst,
		key:     ClientKey,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

// ClientKey identifies the caller for rate limiting by remote host. A
// presented API key is not trusted here: it has not been verified yet, and
// keying on it would hand every made-up key id a fresh bucket.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// Allow reports whether the client may make a request now.
func (rl *RateLimiter) Allow(client string) bool {
	now := rl.now()

	rl.mtx.Lock()
	c, ok := rl.clients[client]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[client] = c
	}
	c.lastSeen = now
	rl.mtx.Unlock()

	return c.limiter.AllowN(now, 1)
}

// Sweep forgets clients idle for longer than idleLimiterTTL.
func (rl *RateLimiter) Sweep() {
	cutoff := rl.now().Add(-idleLimiterTTL)
	rl.mtx.Lock()
	defer rl.mtx.Unlock()
	for k, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, k)
		}
	}
}

// Middleware rejects over-limit requests with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(rl.key(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
