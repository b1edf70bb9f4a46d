package main

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipRateLimiter stores a rate limiter per client IP.
type ipRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

func newIpRateLimiter(r rate.Limit, b int) *ipRateLimiter {
	return &ipRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
}

func (i *ipRateLimiter) get(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.ips[ip]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.ips[ip] = limiter
	}
	return limiter
}

func rateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := newIpRateLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.get(c.ClientIP()).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}

// apiKeyAuth checks X-API-Key or a bearer token against the static
// allow-list. There is no authorization beyond key recognition.
func apiKeyAuth(keys []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			allowed[key] = true
		}
	}

	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			bearer := c.GetHeader("Authorization")
			if after, found := strings.CutPrefix(bearer, "Bearer "); found {
				key = after
			}
		}
		if !allowed[key] {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "invalid or missing api key",
			})
			return
		}
		c.Next()
	}
}
