package ratelimiting

import (
	"net"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// Idle limiters are evicted so one-off clients do not pin memory forever.
const limiterIdleTTL = 30 * time.Minute

type RateLimiter interface {
	Consume(key string) bool
}

type tokenBucketRateLimiter struct {
	limiters   *ttlcache.Cache[string, *rate.Limiter]
	refillRate rate.Limit
	burstSize  int
}

func (l *tokenBucketRateLimiter) Consume(key string) bool {
	limiter, _ := l.limiters.GetOrSet(key, rate.NewLimiter(l.refillRate, l.burstSize))
	return limiter.Value().Allow()
}

type RefillPerSecond int
type BurstSize int

// NewTokenBucketRateLimiter returns a limiter maintaining one token bucket
// per key, and a stop function that ends the background eviction of idle
// buckets.
func NewTokenBucketRateLimiter(refillPerSecond RefillPerSecond, burstSize BurstSize) (RateLimiter, func()) {
	limiters := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](limiterIdleTTL),
	)
	go limiters.Start()

	return &tokenBucketRateLimiter{
		limiters:   limiters,
		refillRate: rate.Limit(refillPerSecond),
		burstSize:  int(burstSize),
	}, limiters.Stop
}

type RequestRateLimiter interface {
	Consume(r *http.Request) bool
	KeyFor(r *http.Request) string
}

type requestBasedRateLimiter struct {
	limiter RateLimiter
	keyFunc func(r *http.Request) string
}

func (l *requestBasedRateLimiter) Consume(r *http.Request) bool {
	return l.limiter.Consume(l.keyFunc(r))
}

func (l *requestBasedRateLimiter) KeyFor(r *http.Request) string {
	return l.keyFunc(r)
}

func NewRequestBasedRateLimiter(limiter RateLimiter, keyFunc func(r *http.Request) string) RequestRateLimiter {
	return &requestBasedRateLimiter{
		limiter: limiter,
		keyFunc: keyFunc,
	}
}

// IPKeyFunc buckets requests by client IP. Deliberately not by cache key:
// many clients asking for the same hot key is exactly the load the cache is
// there to absorb.
func IPKeyFunc(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// Not host:port; use the address as-is
		host = r.RemoteAddr
	}
	return "ip: " + host
}
