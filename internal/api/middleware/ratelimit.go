package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/liliang-cn/gmassist/internal/domain"
)

// Counter counts hits per key within a fixed window and returns the new count
type Counter interface {
	Hit(ctx context.Context, key string) (int, error)
}

// MemoryCounter keeps counters in process
type MemoryCounter struct {
	mu       sync.Mutex
	counters *cache.Cache
}

// NewMemoryCounter creates a counter whose keys expire after window
func NewMemoryCounter(window time.Duration) *MemoryCounter {
	return &MemoryCounter{counters: cache.New(window, window)}
}

// Hit increments key and starts a new window on the first hit
func (m *MemoryCounter) Hit(ctx context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.counters.IncrementInt(key, 1)
	if err != nil {
		// first hit in this window
		m.counters.SetDefault(key, 1)
		return 1, nil
	}
	return n, nil
}

// RedisCounter shares counters between instances through Redis
type RedisCounter struct {
	client *redis.Client
	window time.Duration
}

// NewRedisCounter creates a counter backed by client
func NewRedisCounter(client *redis.Client, window time.Duration) *RedisCounter {
	return &RedisCounter{client: client, window: window}
}

// Hit increments key with INCR and sets its expiry on the first hit
func (r *RedisCounter) Hit(ctx context.Context, key string) (int, error) {
	key = "gmassist:ratelimit:" + key
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return 0, err
		}
	}
	return int(n), nil
}

// RateLimit allows each client IP limit requests per counter window. If the
// counter fails the request is let through.
func RateLimit(counter Counter, limit int, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := counter.Hit(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("rate limit counter failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, limit-n)))

		if n > limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": domain.ErrRateLimited.Error()})
			return
		}
		c.Next()
	}
}
