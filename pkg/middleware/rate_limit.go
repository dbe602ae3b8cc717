package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	CleanupInterval   time.Duration
	TTL               time.Duration
}

// visitors keeps one token bucket per client IP
type visitors struct {
	mu    sync.Mutex
	m     map[string]*visitor
	rps   int
	burst int
}

func (vs *visitors) get(ip string) *rate.Limiter {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	v, exists := vs.m[ip]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(vs.rps), vs.burst)
		vs.m[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (vs *visitors) cleanup(ttl time.Duration, interval time.Duration) {
	for {
		time.Sleep(interval)
		vs.mu.Lock()
		for ip, v := range vs.m {
			if time.Since(v.lastSeen) > ttl {
				delete(vs.m, ip)
			}
		}
		vs.mu.Unlock()
	}
}

// RateLimiterMiddleware throttles requests per client IP. This is a
// coarse flood guard in front of the per-email throttling the auth flows do.
func RateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}
	if config.TTL == 0 {
		config.TTL = 3 * time.Minute
	}
	if config.Burst == 0 {
		config.Burst = config.RequestsPerSecond
	}

	vs := &visitors{
		m:     make(map[string]*visitor),
		rps:   config.RequestsPerSecond,
		burst: config.Burst,
	}

	go vs.cleanup(config.TTL, config.CleanupInterval)

	return func(c *gin.Context) {
		if !vs.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "Too many requests",
				"requestID": c.GetString("requestID"),
			})
			return
		}

		c.Next()
	}
}
