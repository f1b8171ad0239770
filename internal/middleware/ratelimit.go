package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/trialscout-server/internal/domain"
)

const maxTrackedClients = 10000

// RateLimiter holds one token bucket per client IP. Idle clients fall out
// of the LRU once maxTrackedClients is reached.
type RateLimiter struct {
	mu         sync.Mutex
	clients    *lru.Cache[string, *rate.Limiter]
	limit      rate.Limit
	burst      int
	retryAfter time.Duration
}

// NewRateLimiter allows requestsPerHour per client with the given burst.
func NewRateLimiter(requestsPerHour, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	clients, _ := lru.New[string, *rate.Limiter](maxTrackedClients)
	return &RateLimiter{
		clients:    clients,
		limit:      rate.Limit(float64(requestsPerHour) / time.Hour.Seconds()),
		burst:      burst,
		retryAfter: time.Hour / time.Duration(max(requestsPerHour, 1)),
	}
}

// Allow reports whether key may make a request now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	limiter, ok := rl.clients.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.clients.Add(key, limiter)
	}
	rl.mu.Unlock()

	return limiter.Allow()
}

// Middleware rejects over-budget clients with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(int(rl.retryAfter.Seconds())))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
			domain.ErrCodeRateLimit,
			"Rate limit exceeded",
			"",
			GetCorrelationID(c),
		))
	}
}
