package report

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/weekly-report-backend/internal/common/cache"
	"github.com/dumeirei/weekly-report-backend/internal/common/errors"
	"github.com/dumeirei/weekly-report-backend/internal/common/logger"
	"github.com/dumeirei/weekly-report-backend/internal/common/metrics"
	"github.com/dumeirei/weekly-report-backend/internal/common/tracing"
	"github.com/dumeirei/weekly-report-backend/internal/common/utils"
	"github.com/dumeirei/weekly-report-backend/internal/models"
	"github.com/dumeirei/weekly-report-backend/internal/repository"
	"github.com/dumeirei/weekly-report-backend/internal/service/ingest"
	"github.com/dumeirei/weekly-report-backend/pkg/oss"
)

// UploadOptions 上传处理选项
type UploadOptions struct {
	MaxFileSize   int64
	ChunkSize     int
	ArchivePrefix string // 为空时不归档原始文件
}

// UploadService 表格上传与按周汇总服务
type UploadService struct {
	db         *gorm.DB
	reportRepo *repository.WeeklyReportRepository
	statRepo   *repository.RevenueStatRepository
	uploadRepo *repository.UploadLogRepository
	upserter   *UpsertCoordinator
	parser     *ingest.Parser
	engine     *Engine
	cache      cache.Store
	archiver   oss.Archiver
	metrics    *metrics.Metrics
	options    UploadOptions
	logger     *zap.Logger
}

// NewUploadService 创建上传服务，cache、archiver、m 均可为空
func NewUploadService(
	db *gorm.DB,
	reportRepo *repository.WeeklyReportRepository,
	txRepo *repository.SalesTransactionRepository,
	statRepo *repository.RevenueStatRepository,
	saleRepo *repository.ProductSaleRepository,
	uploadRepo *repository.UploadLogRepository,
	rules *ingest.Rules,
	store cache.Store,
	archiver oss.Archiver,
	m *metrics.Metrics,
	options UploadOptions,
	log *zap.Logger,
) *UploadService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UploadService{
		db:         db,
		reportRepo: reportRepo,
		statRepo:   statRepo,
		uploadRepo: uploadRepo,
		upserter:   NewUpsertCoordinator(txRepo, statRepo, saleRepo, options.ChunkSize),
		parser:     ingest.NewParser(rules, log),
		engine:     NewEngine(rules),
		cache:      store,
		archiver:   archiver,
		metrics:    m,
		options:    options,
		logger:     log.Named("upload"),
	}
}

// UploadRequest 上传请求
type UploadRequest struct {
	FileName   string
	Content    []byte
	ReportID   *int64 // 指定目标周，仅导入落在该周的流水
	Format     string // weekly | migration，为空时自动识别
	OperatorID *int64
	Progress   ProgressFunc // 每周处理完成后回调，可为空
}

// ProgressFunc 逐周进度回调，done 为已处理周数（含失败）
type ProgressFunc func(done, total int, detail WeekDetail)

// WeekDetail 单周处理结果
type WeekDetail struct {
	Week     string `json:"week"`
	ReportID int64  `json:"reportId,omitempty"`
	Title    string `json:"title,omitempty"`
	Count    int    `json:"count"`
	Created  bool   `json:"created,omitempty"`
	Error    string `json:"error,omitempty"`
}

// UploadResult 上传结果
type UploadResult struct {
	Success        bool                `json:"success"`
	WeeksProcessed int                 `json:"weeksProcessed"`
	Detail         []WeekDetail        `json:"detail"`
	BatchNo        string              `json:"batchNo"`
	ArchiveURL     string              `json:"archiveUrl,omitempty"`
	Parse          *ingest.ParseResult `json:"-"`
}

// Upload 解析表格并按周顺序写入，每周一个事务
// 某周失败只回滚该周，其余周继续处理
func (s *UploadService) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "report.Upload",
		tracing.WithFileName(req.FileName),
		tracing.WithUploadFormat(req.Format),
	)
	defer span.End()

	result := &UploadResult{
		BatchNo: utils.GenerateBatchNo("UP"),
		Detail:  []WeekDetail{},
	}

	err := s.upload(ctx, req, result)
	if err != nil {
		tracing.SetError(span, err)
	}
	s.writeLog(ctx, req, result, err)
	return result, err
}

func (s *UploadService) upload(ctx context.Context, req *UploadRequest, result *UploadResult) error {
	if s.options.MaxFileSize > 0 && int64(len(req.Content)) > s.options.MaxFileSize {
		return errors.ErrFileTooLarge.WithMessage(
			fmt.Sprintf("file exceeds %d bytes", s.options.MaxFileSize))
	}
	if !ingest.IsSupportedFile(req.FileName) {
		return errors.ErrUnsupportedFile.WithMessage(
			fmt.Sprintf("unsupported file type: %s", req.FileName))
	}

	var target *Week
	if req.ReportID != nil {
		report, err := s.reportRepo.GetByID(ctx, *req.ReportID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrReportNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}
		week, err := WeekOfDate(report.StartDate)
		if err != nil {
			return errors.ErrInternalError.WithError(err)
		}
		target = &week
	}

	sheet, err := ingest.ReadSheet(bytes.NewReader(req.Content), req.FileName)
	if err != nil {
		return err
	}

	parsed, err := s.parser.Parse(sheet, req.Format)
	result.Parse = parsed
	if parsed != nil && s.metrics != nil {
		s.metrics.RecordParse(parsed.Parsed, parsed.Dropped)
	}
	if err != nil {
		return err
	}

	txs := parsed.Transactions
	if target != nil {
		txs = filterWeek(parsed, *target)
		if len(txs) == 0 {
			return errors.ErrNoTransactions.WithMessage(
				fmt.Sprintf("no transactions within %s ~ %s", target.StartDate(), target.EndDate()))
		}
	}

	result.ArchiveURL = s.archive(ctx, req, result.BatchNo)

	failed := 0
	var firstErr error
	batches := GroupByWeek(txs)
	for i, batch := range batches {
		detail, err := s.processWeek(ctx, batch)
		result.Detail = append(result.Detail, detail)
		if req.Progress != nil {
			req.Progress(i+1, len(batches), detail)
		}
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.WeeksProcessed++
	}

	if failed > 0 {
		return errors.ErrWeekIngestFailed.
			WithMessage(fmt.Sprintf("%d of %d weeks failed", failed, len(result.Detail))).
			WithError(firstErr)
	}
	result.Success = true
	return nil
}

// filterWeek 只保留落在目标周内的流水，其余计为 out_of_window
func filterWeek(parsed *ingest.ParseResult, week Week) []*models.SalesTransaction {
	kept := make([]*models.SalesTransaction, 0, len(parsed.Transactions))
	for _, tx := range parsed.Transactions {
		if !week.Contains(tx.PaymentDate) {
			parsed.Drop(ingest.DropOutOfWindow)
			continue
		}
		kept = append(kept, tx)
	}
	return kept
}

// processWeek 在单个事务内完成周报定位、流水替换、汇总和统计写入
func (s *UploadService) processWeek(ctx context.Context, batch *WeekBatch) (WeekDetail, error) {
	start := time.Now()
	detail := WeekDetail{Week: batch.Week.StartDate(), Count: len(batch.Transactions)}

	ctx, span := tracing.GetTracer().StartSpan(ctx, "report.processWeek",
		tracing.WithWeekStart(detail.Week),
		tracing.WithRowCount(detail.Count),
	)
	defer span.End()

	var report *models.WeeklyReport
	var agg *WeekAggregate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reports := s.reportRepo.WithTx(tx)

		var created bool
		var err error
		report, created, err = ResolveReport(ctx, reports, batch.Week)
		if err != nil {
			return fmt.Errorf("resolve report: %w", err)
		}
		detail.Created = created

		upserter := s.upserter.WithTx(tx)
		if err := upserter.ReplaceTransactions(ctx, report.ID, batch.Transactions); err != nil {
			return err
		}

		reader := NewStoredStatsReader(reports, s.statRepo.WithTx(tx))
		agg, err = s.engine.Aggregate(ctx, reader, report, batch.Transactions)
		if err != nil {
			return fmt.Errorf("aggregate: %w", err)
		}
		return upserter.ApplyAggregate(ctx, report.ID, agg)
	})

	elapsed := time.Since(start)
	if err != nil {
		tracing.SetError(span, err)
		detail.Error = err.Error()
		if s.metrics != nil {
			s.metrics.RecordWeek("failed", elapsed)
		}
		s.logger.Error("week ingestion failed",
			logger.WeekStart(detail.Week),
			logger.Int("count", detail.Count),
			logger.Err(err),
		)
		return detail, errors.ErrStorageFailed.WithError(err)
	}

	detail.ReportID = report.ID
	detail.Title = report.Title
	span.SetAttributes(tracing.WithReportID(report.ID))
	if s.metrics != nil {
		s.metrics.RecordWeek("success", elapsed)
	}
	s.invalidate(ctx, report.ID)

	s.logger.Info("week ingested",
		logger.WeekStart(detail.Week),
		logger.ReportID(report.ID),
		logger.Int("count", detail.Count),
		logger.Int64("gross", agg.Gross),
		logger.Int64("net", agg.Net),
		logger.Latency(elapsed),
	)
	return detail, nil
}

// archive 归档原始文件，失败只记录日志
func (s *UploadService) archive(ctx context.Context, req *UploadRequest, batchNo string) string {
	if s.archiver == nil || s.options.ArchivePrefix == "" {
		return ""
	}
	key := oss.ArchiveKey(s.options.ArchivePrefix, batchNo, req.FileName, time.Now())
	url, err := s.archiver.Archive(ctx, key, req.Content, map[string]string{"batch-no": batchNo})
	if err != nil {
		s.logger.Warn("archive upload failed", logger.FileName(req.FileName), logger.Err(err))
		return ""
	}
	return url
}

func (s *UploadService) invalidate(ctx context.Context, reportID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.ReportKey(reportID)); err != nil {
		s.logger.Warn("invalidate report cache failed", logger.ReportID(reportID), logger.Err(err))
	}
}

// writeLog 写入上传审计记录，失败不影响上传结果
func (s *UploadService) writeLog(ctx context.Context, req *UploadRequest, result *UploadResult, uploadErr error) {
	entry := &models.UploadLog{
		BatchNo:    result.BatchNo,
		FileName:   req.FileName,
		Format:     req.Format,
		ReportID:   req.ReportID,
		OperatorID: req.OperatorID,
		Weeks:      result.WeeksProcessed,
		Status:     models.UploadStatusSuccess,
	}
	if p := result.Parse; p != nil {
		if p.Format != "" {
			entry.Format = p.Format
		}
		entry.RowCount = p.RowCount
		entry.Parsed = p.Parsed
		entry.Dropped = p.DroppedTotal()
	}
	if entry.Format == "" {
		entry.Format = models.UploadFormatWeekly
	}
	if result.ArchiveURL != "" {
		entry.ArchiveURL = utils.StringPtr(result.ArchiveURL)
	}
	if uploadErr != nil {
		entry.Error = utils.StringPtr(uploadErr.Error())
		entry.Status = models.UploadStatusFailed
		if result.WeeksProcessed > 0 {
			entry.Status = models.UploadStatusPartial
		}
	}

	if s.metrics != nil {
		s.metrics.RecordUpload(entry.Format, entry.Status)
	}
	if s.uploadRepo == nil {
		return
	}
	if err := s.uploadRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("write upload log failed", logger.String("batch_no", entry.BatchNo), logger.Err(err))
	}
}
