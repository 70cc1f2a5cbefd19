package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per client IP. The map is reset
// every hour.
type IPRateLimiter struct {
	Limit  rate.Limit
	Burst  int
	Logger *zap.Logger

	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time
}

func NewIPRateLimiter(perSecond float64, burst int, logger *zap.Logger) *IPRateLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 10
	}
	return &IPRateLimiter{Limit: rate.Limit(perSecond), Burst: burst, Logger: logger}
}

func (l *IPRateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limiters == nil || time.Since(l.lastCleanup) > time.Hour {
		l.limiters = make(map[string]*rate.Limiter)
		l.lastCleanup = time.Now()
	}
	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.Limit, l.Burst)
		l.limiters[ip] = limiter
	}
	return limiter
}

func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if !l.limiter(ip).Allow() {
			if l.Logger != nil {
				l.Logger.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", c.FullPath()))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, webhookAck{Error: "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
