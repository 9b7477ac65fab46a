package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const rateWindow = time.Minute

// RateLimiter counts requests per client per minute, in Redis when a client
// is configured and in memory otherwise
type RateLimiter struct {
	rpm   int
	redis *redis.Client
	now   func() time.Time

	mu          sync.Mutex
	counts      map[string]int
	windowStart time.Time
}

// NewRateLimiter creates a limiter allowing rpm requests per minute per client.
// rpm <= 0 disables limiting. redisClient may be nil.
func NewRateLimiter(rpm int, redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		rpm:    rpm,
		redis:  redisClient,
		now:    time.Now,
		counts: make(map[string]int),
	}
}

// NewRedisClient returns nil when addr is empty
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// PingRedis validates the connection
func PingRedis(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

func (r *RateLimiter) windowKey(client string) string {
	return fmt.Sprintf("tubedeck:ratelimit:%s:%d", client, r.now().Unix()/int64(rateWindow.Seconds()))
}

// Allow records one request for client and reports whether it is within quota
// along with the remaining quota
func (r *RateLimiter) Allow(ctx context.Context, client string) (bool, int) {
	if r.rpm <= 0 {
		return true, r.rpm
	}
	if r.redis != nil {
		ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		key := r.windowKey(client)
		n, err := r.redis.Incr(ctx, key).Result()
		if err == nil {
			if n == 1 {
				_ = r.redis.Expire(ctx, key, rateWindow+5*time.Second).Err()
			}
			return int(n) <= r.rpm, r.rpm - int(n)
		}
		log.Debug().Str("component", "ratelimit").Err(err).Msg("redis unavailable, counting in memory")
	}
	return r.allowInMem(client)
}

func (r *RateLimiter) allowInMem(client string) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.windowStart) >= rateWindow {
		r.counts = make(map[string]int)
		r.windowStart = now
	}
	r.counts[client]++
	n := r.counts[client]
	return n <= r.rpm, r.rpm - n
}

// RateLimit rejects clients that exceed the limiter's quota with 429
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining := limiter.Allow(c.Request.Context(), c.ClientIP())
		if limiter.rpm > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.rpm))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"details": fmt.Sprintf("at most %d requests per minute", limiter.rpm),
			})
			return
		}
		c.Next()
	}
}
