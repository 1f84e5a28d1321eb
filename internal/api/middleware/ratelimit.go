package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shunnagahara/van-toilet-smash/pkg/logger"
	"github.com/shunnagahara/van-toilet-smash/pkg/ratelimit"
)

// RateLimitConfig holds rate limit configuration
type RateLimitConfig struct {
	Capacity   int64                     // Maximum number of requests
	RefillRate int64                     // Requests per second
	KeyFunc    func(*gin.Context) string // Function to extract rate limit key
}

// DefaultKeyFunc uses user ID if authenticated, otherwise IP address
func DefaultKeyFunc(c *gin.Context) string {
	if userID, exists := c.Get("userID"); exists {
		return fmt.Sprintf("user:%v", userID)
	}
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

// IPKeyFunc uses only IP address (for public endpoints)
func IPKeyFunc(c *gin.Context) string {
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

// RateLimit creates a rate limiting middleware
func RateLimit(config RateLimitConfig) gin.HandlerFunc {
	limiter := ratelimit.NewRateLimiter(config.Capacity, config.RefillRate)

	if config.KeyFunc == nil {
		config.KeyFunc = DefaultKeyFunc
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)

		if !limiter.Allow(key) {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(config.Capacity, 10))
			c.Header("Retry-After", "1")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RedisRateLimit Redis 기반 분산 rate limit 미들웨어.
// 인스턴스 수와 무관하게 전체 한도를 유지해야 하는 엔드포인트에 사용한다.
func RedisRateLimit(limiter *ratelimit.RedisRateLimiter, limit int, window time.Duration, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = DefaultKeyFunc
	}

	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), keyFunc(c), limit, window)
		if err != nil {
			// limiter 장애가 요청을 막아서는 안 된다
			logger.Warn("Rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		if !allowed {
			c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Header("Retry-After", "1")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// SessionRateLimit 세션 발급 남용 방지 - IP당 분당 10회
func SessionRateLimit() gin.HandlerFunc {
	return RateLimit(RateLimitConfig{
		Capacity:   10,
		RefillRate: 1,
		KeyFunc:    IPKeyFunc,
	})
}

// JoinRateLimit 대기열 참가 남용 방지 - 유저당 분당 30회
func JoinRateLimit() gin.HandlerFunc {
	return RateLimit(RateLimitConfig{
		Capacity:   30,
		RefillRate: 1,
		KeyFunc:    DefaultKeyFunc,
	})
}
