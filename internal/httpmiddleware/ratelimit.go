package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const idleLimiterTTL = 5 * time.Minute

// IPRateLimiter keeps one token bucket per client IP. Idle buckets are evicted
// by a sweep that runs at most once per idleLimiterTTL.
type IPRateLimiter struct {
	limit rate.Limit
	burst int

	mu        sync.Mutex
	state     map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewIPRateLimiter allows perMinute requests per IP with a burst of the same size.
func NewIPRateLimiter(perMinute int) *IPRateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &IPRateLimiter{
		limit: rate.Every(time.Minute / time.Duration(perMinute)),
		burst: perMinute,
		state: make(map[string]*bucket),
		now:   time.Now,
	}
}

// GinMiddleware returns gin handler enforcing per-IP limits.
func (l *IPRateLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

// Allow consumes a token for key.
func (l *IPRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) > idleLimiterTTL {
		l.sweep(now)
	}
	b, ok := l.state[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.state[key] = b
	}
	b.seen = now
	l.mu.Unlock()
	return b.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for longer than idleLimiterTTL. Callers hold mu.
func (l *IPRateLimiter) sweep(now time.Time) {
	for k, b := range l.state {
		if now.Sub(b.seen) > idleLimiterTTL {
			delete(l.state, k)
		}
	}
	l.lastSweep = now
}
