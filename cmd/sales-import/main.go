// Package main 命令行批量导入销售流水表格
//
// 用法:
//
//	sales-import -config configs/config.yaml -file 2025-03.xlsx
//	sales-import -format migration legacy-2023.xlsx legacy-2024.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/dumeirei/weekly-report-backend/internal/common/cache"
	"github.com/dumeirei/weekly-report-backend/internal/common/config"
	"github.com/dumeirei/weekly-report-backend/internal/common/database"
	"github.com/dumeirei/weekly-report-backend/internal/common/errors"
	"github.com/dumeirei/weekly-report-backend/internal/common/logger"
	"github.com/dumeirei/weekly-report-backend/internal/models"
	reportService "github.com/dumeirei/weekly-report-backend/internal/service/report"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	file := flag.String("file", "", "待导入的表格文件，也可以作为位置参数传入多个")
	format := flag.String("format", "", "表格格式 weekly|migration，为空时自动识别")
	reportID := flag.Int64("report-id", 0, "仅导入指定周报所在周的流水")
	flag.Parse()

	files := flag.Args()
	if *file != "" {
		files = append([]string{*file}, files...)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: sales-import [-config path] [-format weekly|migration] [-report-id id] -file path [file...]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.GetLogger()

	db, err := database.Init(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()
	if err := database.Migrate(db, models.All()...); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 与 API 共用 Redis 缓存时需要连接，导入后才能失效看板缓存
	var redisClient *redis.Client
	if cfg.Cache.Driver == "redis" {
		redisClient, err = cache.Init(&cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	services, err := reportService.NewServices(db, cfg, cache.NewStore(&cfg.Cache, redisClient), nil, nil, log)
	if err != nil {
		log.Fatal("Failed to init report services", zap.Error(err))
	}

	failed := 0
	for _, path := range files {
		if err := importFile(context.Background(), services.Upload, path, *format, *reportID); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// importFile 导入单个表格并输出逐周结果
func importFile(ctx context.Context, svc *reportService.UploadService, path, format string, reportID int64) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	req := &reportService.UploadRequest{
		FileName: filepath.Base(path),
		Content:  content,
		Format:   format,
		Progress: func(done, total int, _ reportService.WeekDetail) {
			if bar == nil {
				bar = progressbar.Default(int64(total), filepath.Base(path))
			}
			_ = bar.Add(1)
		},
	}
	if reportID > 0 {
		req.ReportID = &reportID
	}

	result, err := svc.Upload(ctx, req)
	if bar != nil {
		_ = bar.Finish()
	}
	printResult(path, result, err)
	return err
}

func printResult(path string, result *reportService.UploadResult, err error) {
	if result == nil {
		return
	}
	if result.Parse != nil {
		fmt.Printf("%s: %d rows, %d parsed, %d dropped %v\n",
			path, result.Parse.RowCount, result.Parse.Parsed, result.Parse.DroppedTotal(), result.Parse.Dropped)
		if errors.IsAppError(err) && result.Parse.Parsed == 0 {
			fmt.Printf("  headers: %v\n", result.Parse.Headers)
		}
	}
	for _, d := range result.Detail {
		if d.Error != "" {
			fmt.Printf("  %s  FAILED  %s\n", d.Week, d.Error)
			continue
		}
		fmt.Printf("  %s  %-18s %5d rows  report #%d\n", d.Week, d.Title, d.Count, d.ReportID)
	}
	fmt.Printf("  batch %s: %d/%d weeks processed\n", result.BatchNo, result.WeeksProcessed, len(result.Detail))
}
