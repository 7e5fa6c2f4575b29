package server

import (
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ConnRateLimiter throttles how fast a single IP address may open new
// connections, guarding the accept loop the way the teacher's
// oscar.IPRateLimiter guards login attempts: a token bucket per
// address, cached with a TTL so idle addresses are forgotten instead
// of accumulating forever.
type ConnRateLimiter struct {
	cache *cache.Cache
	rate  rate.Limit
	burst int
}

// NewConnRateLimiter builds a limiter allowing r connections per
// second per address, with the given burst, forgetting an address's
// bucket after it has been idle for ttl.
func NewConnRateLimiter(r rate.Limit, burst int, ttl time.Duration) *ConnRateLimiter {
	return &ConnRateLimiter{
		cache: cache.New(ttl, 2*ttl),
		rate:  r,
		burst: burst,
	}
}

// Allow reports whether a new connection from addr may proceed.
func (l *ConnRateLimiter) Allow(addr string) bool {
	v, found := l.cache.Get(addr)
	if !found {
		v = rate.NewLimiter(l.rate, l.burst)
		l.cache.Set(addr, v, cache.DefaultExpiration)
	}
	return v.(*rate.Limiter).Allow()
}
