// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/weekly-report-backend/internal/common/config"
)

var (
	defaultAllowMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions,
	}
	defaultAllowHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID",
	}
	// 上传前端需要读取限流剩余次数
	defaultExposeHeaders = []string{
		"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After",
	}
)

// CORS 跨域中间件，未配置的字段使用默认值
func CORS(cfg *config.CORSConfig) gin.HandlerFunc {
	if cfg == nil {
		cfg = &config.CORSConfig{AllowedOrigins: []string{"*"}}
	}

	origins := orDefault(cfg.AllowedOrigins, []string{"*"})
	allowAll := len(origins) == 1 && origins[0] == "*"
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	methods := strings.Join(orDefault(cfg.AllowedMethods, defaultAllowMethods), ", ")
	headers := strings.Join(orDefault(cfg.AllowedHeaders, defaultAllowHeaders), ", ")
	exposed := strings.Join(orDefault(cfg.ExposedHeaders, defaultExposeHeaders), ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowOrigin := ""
		switch {
		case allowAll && cfg.AllowCredentials:
			// 携带凭证时不能返回 *
			allowOrigin = origin
		case allowAll:
			allowOrigin = "*"
		default:
			if _, ok := allowed[origin]; ok {
				allowOrigin = origin
			}
		}

		if allowOrigin != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Expose-Headers", exposed)
			h.Add("Vary", "Origin")
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if maxAge != "" {
				h.Set("Access-Control-Max-Age", maxAge)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func orDefault(values, def []string) []string {
	if len(values) == 0 {
		return def
	}
	return values
}
