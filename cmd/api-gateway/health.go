package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const readyTimeout = 3 * time.Second

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp int64             `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().Unix()})
}

func pingHandler(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

// dependencyCheck 返回 nil 表示依赖可用
type dependencyCheck func(ctx context.Context) error

func databaseCheck(db *gorm.DB) dependencyCheck {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func redisCheck(client *redis.Client) dependencyCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// readyHandler 逐个检查依赖，任一失败返回 503
// redisClient 为 nil 时 Redis 记为 disabled
func readyHandler(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	deps := map[string]dependencyCheck{"database": databaseCheck(db)}
	if redisClient != nil {
		deps["redis"] = redisCheck(redisClient)
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()

		resp := HealthResponse{
			Status:    "ready",
			Timestamp: time.Now().Unix(),
			Checks:    map[string]string{"redis": "disabled"},
		}
		code := http.StatusOK
		for name, check := range deps {
			if err := check(ctx); err != nil {
				resp.Checks[name] = "error: " + err.Error()
				resp.Status = "not ready"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		c.JSON(code, resp)
	}
}
