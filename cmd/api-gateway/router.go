// Package main 是应用程序入口
package main

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/weekly-report-backend/internal/common/config"
	"github.com/dumeirei/weekly-report-backend/internal/common/jwt"
	"github.com/dumeirei/weekly-report-backend/internal/common/metrics"
	reportHandler "github.com/dumeirei/weekly-report-backend/internal/handler/report"
	"github.com/dumeirei/weekly-report-backend/internal/middleware"
	reportService "github.com/dumeirei/weekly-report-backend/internal/service/report"
)

// setupRouter 设置路由
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	services *reportService.Services,
	m *metrics.Metrics,
) {
	// 初始化处理器
	uploadH := reportHandler.NewUploadHandler(services.Upload, cfg.Ingest.MaxFileSize)
	reportH := reportHandler.NewHandler(services.Query)

	// 全局中间件
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP())
	r.Use(middleware.CORS(&cfg.CORS))
	if cfg.Tracing.Enabled {
		r.Use(middleware.Tracing(&middleware.TracingConfig{
			ServiceName: cfg.Tracing.ServiceName,
			SkipPaths:   []string{"/health", "/ping", "/ready", cfg.Metrics.Path},
		}))
	}
	if m != nil {
		r.Use(m.Middleware())
	}
	r.Use(middleware.AccessLog(logger))

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(db, redisClient))

	if m != nil {
		r.GET(cfg.Metrics.Path, metrics.Handler())
	}

	// Swagger 文档
	if !cfg.IsRelease() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// API v1 路由组
	v1 := r.Group("/api/v1")
	if cfg.JWT.Enabled {
		jwtManager := jwt.NewManager(&jwt.Config{
			Secret:           cfg.JWT.Secret,
			AccessExpireTime: cfg.JWT.AccessTokenDuration(),
			Issuer:           cfg.JWT.Issuer,
		})
		v1.Use(middleware.OperatorAuth(jwtManager))
	}
	{
		// 上传
		upload := []gin.HandlerFunc{}
		if cfg.RateLimit.Enabled && redisClient != nil {
			upload = append(upload, middleware.UploadRateLimit(redisClient, cfg.RateLimit.UploadLimit, cfg.RateLimit.Window()))
		}
		upload = append(upload, middleware.RequestSizeLimiter(cfg.Ingest.MaxFileSize+multipartOverhead), uploadH.Upload)
		v1.POST("/reports/upload", upload...)

		// 周报
		v1.GET("/reports", reportH.List)
		v1.GET("/reports/:id", reportH.Get)
		v1.PUT("/reports/:id/status", reportH.UpdateStatus)
		v1.GET("/reports/:id/transactions", reportH.ListTransactions)

		// 上传记录
		v1.GET("/uploads", reportH.ListUploads)
	}
}

// multipartOverhead multipart 表单除文件外的余量
const multipartOverhead = 1 << 20
