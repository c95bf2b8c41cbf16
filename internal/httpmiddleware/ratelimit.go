// Package httpmiddleware holds gin middleware that is not tied to a single
// handler group.
package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"classtrack/internal/auth"
)

// idleEvict is how long a caller's bucket may sit untouched before it is
// dropped during the next refill pass.
const idleEvict = 10 * time.Minute

// UserRateLimiter is an in-memory token bucket keyed by authenticated user,
// falling back to client IP for unauthenticated routes (login, guest mode).
// One instance is shared across route groups so a caller cannot dodge the
// limit by mixing authenticated and anonymous requests from the same bucket
// key.
type UserRateLimiter struct {
	capacity int
	rate     int
	mu       sync.Mutex
	state    map[string]*bucket
}

type bucket struct {
	tokens int
	last   time.Time
}

// NewUserRateLimiter creates a limiter allowing perMinute requests per
// caller, with bursts up to capacity.
func NewUserRateLimiter(capacity, perMinute int) *UserRateLimiter {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &UserRateLimiter{
		capacity: capacity,
		rate:     perMinute,
		state:    make(map[string]*bucket),
	}
}

// GinMiddleware returns a gin handler enforcing the per-caller limit. It
// must run after auth.UserAuth on authenticated groups so the user key is
// available; elsewhere it degrades to per-IP.
func (l *UserRateLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(callerKey(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

// callerKey prefers the authenticated identity over the network address: a
// user behind a shared NAT gets their own budget, and a user rotating IPs
// does not get a fresh one.
func callerKey(c *gin.Context) string {
	if id := c.GetString(auth.CtxUserID); id != "" {
		return "user:" + id
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

func (l *UserRateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	b, ok := l.state[key]
	if !ok {
		l.evictIdle(now)
		b = &bucket{tokens: l.capacity - 1, last: now}
		l.state[key] = b
		return true
	}
	elapsed := now.Sub(b.last).Minutes()
	refill := int(elapsed * float64(l.rate))
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// evictIdle drops buckets idle past the eviction window. Called with the
// lock held, only when a new caller appears, so steady traffic pays nothing.
func (l *UserRateLimiter) evictIdle(now time.Time) {
	for key, b := range l.state {
		if now.Sub(b.last) > idleEvict {
			delete(l.state, key)
		}
	}
}
