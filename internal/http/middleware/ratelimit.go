package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/scripture-study-backend/internal/http/response"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

// WindowCounter counts hits for key inside a fixed window starting at the first hit.
type WindowCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

type redisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) WindowCounter {
	return &redisCounter{rdb: rdb}
}

func (r *redisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := r.rdb.Expire(ctx, key, window).Err(); err != nil {
			return count, window, err
		}
		return count, window, nil
	}
	ttl, err := r.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		// A key left without expiry would block the client forever.
		_ = r.rdb.Expire(ctx, key, window).Err()
		ttl = window
	}
	return count, ttl, nil
}

type RateLimiter struct {
	log     *logger.Logger
	counter WindowCounter
}

// NewRateLimiter returns a limiter that lets everything through when counter is nil.
func NewRateLimiter(log *logger.Logger, counter WindowCounter) *RateLimiter {
	return &RateLimiter{log: log.With("middleware", "RateLimiter"), counter: counter}
}

// Limit allows limit requests per client IP per window for the named bucket.
func (rl *RateLimiter) Limit(bucket string, limit int, window time.Duration) gin.HandlerFunc {
	if rl == nil || rl.counter == nil || limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", bucket, c.ClientIP())
		count, ttl, err := rl.counter.Hit(c.Request.Context(), key, window)
		if err != nil {
			rl.log.Warn("rate limit check failed; allowing", "bucket", bucket, "error", err)
			c.Next()
			return
		}
		if count > int64(limit) {
			secs := int(ttl.Round(time.Second).Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			response.AbortError(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		c.Next()
	}
}
