package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// staleAfter is how long an idle client keeps its bucket.
const staleAfter = 10 * time.Minute

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimiter implements a token bucket per client IP.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	rate       float64 // tokens per second
	bucketSize float64 // maximum tokens
	lastPrune  time.Time
}

func NewRateLimiter(rate float64, bucketSize float64) *RateLimiter {
	return &RateLimiter{
		buckets:    make(map[string]*bucket),
		rate:       rate,
		bucketSize: bucketSize,
		lastPrune:  time.Now(),
	}
}

// RateLimit rejects requests with 429 once a client's bucket is empty.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		rl.mu.Lock()
		now := time.Now()

		b, exists := rl.buckets[ip]
		if !exists {
			b = &bucket{tokens: rl.bucketSize, lastRefill: now}
			rl.buckets[ip] = b
		}

		// Refill tokens based on time elapsed
		elapsed := now.Sub(b.lastRefill)
		b.tokens = min(rl.bucketSize, b.tokens+elapsed.Seconds()*rl.rate)
		b.lastRefill = now

		if b.tokens < 1 {
			rl.mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}
		b.tokens--

		if now.Sub(rl.lastPrune) > staleAfter {
			rl.prune(now)
			rl.lastPrune = now
		}
		rl.mu.Unlock()

		c.Next()
	}
}

// prune drops buckets idle long enough to be full again. Caller holds mu.
func (rl *RateLimiter) prune(now time.Time) {
	for ip, b := range rl.buckets {
		if now.Sub(b.lastRefill) > staleAfter {
			delete(rl.buckets, ip)
		}
	}
}
