package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/logger"
)

// IPRateLimiter keeps one token bucket per client IP. Idle buckets expire
// out of the cache after five minutes.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors *cache.Cache
	rps      rate.Limit
	burst    int
	log      zerolog.Logger
}

func NewIPRateLimiter(perMinute int) *IPRateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &IPRateLimiter{
		visitors: cache.New(5*time.Minute, time.Minute),
		rps:      rate.Limit(float64(perMinute) / 60.0),
		burst:    5,
		log:      logger.Component("ratelimit"),
	}
}

func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.visitors.Get(ip); ok {
		lim := v.(*rate.Limiter)
		l.visitors.SetDefault(ip, lim)
		return lim
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.visitors.SetDefault(ip, lim)
	return lim
}

func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.getLimiter(ip).Allow() {
			l.log.Warn().Str("ip", ip).Str("path", c.Request.URL.Path).Msg("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
