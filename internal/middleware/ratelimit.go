// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dumeirei/weekly-report-backend/internal/common/response"
)

// RateLimitConfig 固定窗口限流配置
type RateLimitConfig struct {
	RedisClient *redis.Client
	KeyPrefix   string
	Limit       int
	Window      time.Duration
	KeyFunc     func(*gin.Context) string // 为空时按 IP + 路径计数
	Message     string
}

// RateLimit 固定窗口限流中间件，Redis 不可用时放行
func RateLimit(config *RateLimitConfig) gin.HandlerFunc {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string {
			return c.ClientIP() + ":" + c.Request.URL.Path
		}
	}
	limit := strconv.Itoa(config.Limit)

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := config.KeyPrefix + keyFunc(c)

		count, err := config.RedisClient.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			config.RedisClient.Expire(ctx, key, config.Window)
		}

		remaining := config.Limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > config.Limit {
			ttl, _ := config.RedisClient.TTL(ctx, key).Result()
			if ttl < 0 {
				ttl = config.Window
			}
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			response.TooManyRequests(c, config.Message)
			c.Abort()
			return
		}

		c.Next()
	}
}

// UploadRateLimit 上传接口限流，已认证时按运营人员计数，否则按 IP
// 需挂在 OperatorAuth 之后才能取到运营人员 ID
func UploadRateLimit(redisClient *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimit(&RateLimitConfig{
		RedisClient: redisClient,
		KeyPrefix:   "ratelimit:upload:",
		Limit:       limit,
		Window:      window,
		Message:     "too many uploads, try again later",
		KeyFunc: func(c *gin.Context) string {
			if operatorID := GetOperatorID(c); operatorID > 0 {
				return fmt.Sprintf("op:%d", operatorID)
			}
			return "ip:" + c.ClientIP()
		},
	})
}
