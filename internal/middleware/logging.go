// Package middleware 提供 HTTP 中间件
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/weekly-report-backend/internal/common/logger"
)

// LoggingConfig 访问日志配置
// 上传接口的请求体是二进制表格，不记录请求体和响应体
type LoggingConfig struct {
	Logger    *zap.Logger
	SkipPaths []string // 跳过日志的路径
}

// DefaultLoggingConfig 默认跳过健康检查和指标接口
func DefaultLoggingConfig(log *zap.Logger) *LoggingConfig {
	return &LoggingConfig{
		Logger:    log,
		SkipPaths: []string{"/health", "/ping", "/ready", "/metrics"},
	}
}

// Logging 请求日志中间件，5xx 记 Error，4xx 记 Warn
func Logging(config *LoggingConfig) gin.HandlerFunc {
	skipPaths := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = struct{}{}
	}
	log := config.Logger.Named("http")

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skipPaths[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			logger.RequestID(GetRequestID(c)),
			logger.Method(c.Request.Method),
			logger.Path(path),
			logger.StatusCode(status),
			logger.Latency(time.Since(start)),
			logger.IP(c.ClientIP()),
		}
		if route := c.FullPath(); route != "" && route != path {
			fields = append(fields, logger.String("route", route))
		}
		if c.Request.URL.RawQuery != "" {
			fields = append(fields, logger.String("query", c.Request.URL.RawQuery))
		}
		if c.Request.ContentLength > 0 {
			fields = append(fields, logger.Int64("bytes_in", c.Request.ContentLength))
		}
		if operatorID := GetOperatorID(c); operatorID > 0 {
			fields = append(fields, logger.OperatorID(operatorID))
		}
		if traceID := GetTraceID(c); traceID != "" {
			fields = append(fields, logger.String("trace_id", traceID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("HTTP Request", fields...)
		case status >= 400:
			log.Warn("HTTP Request", fields...)
		default:
			log.Info("HTTP Request", fields...)
		}
	}
}

// AccessLog 使用默认配置的访问日志中间件
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return Logging(DefaultLoggingConfig(log))
}
