package report

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/weekly-report-backend/internal/common/cache"
	"github.com/dumeirei/weekly-report-backend/internal/common/errors"
	"github.com/dumeirei/weekly-report-backend/internal/common/logger"
	"github.com/dumeirei/weekly-report-backend/internal/common/metrics"
	"github.com/dumeirei/weekly-report-backend/internal/common/utils"
	"github.com/dumeirei/weekly-report-backend/internal/models"
	"github.com/dumeirei/weekly-report-backend/internal/repository"
)

const dashboardCacheName = "report_dashboard"

// QueryService 周报查询服务
type QueryService struct {
	reportRepo *repository.WeeklyReportRepository
	txRepo     *repository.SalesTransactionRepository
	statRepo   *repository.RevenueStatRepository
	saleRepo   *repository.ProductSaleRepository
	uploadRepo *repository.UploadLogRepository
	cache      cache.Store
	cacheTTL   time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewQueryService 创建周报查询服务
func NewQueryService(
	reportRepo *repository.WeeklyReportRepository,
	txRepo *repository.SalesTransactionRepository,
	statRepo *repository.RevenueStatRepository,
	saleRepo *repository.ProductSaleRepository,
	uploadRepo *repository.UploadLogRepository,
	store cache.Store,
	cacheTTL time.Duration,
	m *metrics.Metrics,
	log *zap.Logger,
) *QueryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &QueryService{
		reportRepo: reportRepo,
		txRepo:     txRepo,
		statRepo:   statRepo,
		saleRepo:   saleRepo,
		uploadRepo: uploadRepo,
		cache:      store,
		cacheTTL:   cacheTTL,
		metrics:    m,
		logger:     log.Named("report"),
	}
}

// Dashboard 周报看板数据
type Dashboard struct {
	Report           *models.WeeklyReport  `json:"report"`
	Stats            []*models.RevenueStat `json:"stats"`
	ProductSales     []*models.ProductSale `json:"product_sales"`
	TransactionCount int64                 `json:"transaction_count"`
}

// GetDashboard 获取周报看板，优先读缓存
func (s *QueryService) GetDashboard(ctx context.Context, reportID int64) (*Dashboard, error) {
	key := cache.ReportKey(reportID)
	if s.cache != nil {
		var cached Dashboard
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			s.recordCache(true)
			return &cached, nil
		}
		if !stderrors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("read report cache failed", logger.ReportID(reportID), logger.Err(err))
		}
		s.recordCache(false)
	}

	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	stats, err := s.statRepo.ListByReport(ctx, reportID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	sales, err := s.saleRepo.ListByReport(ctx, reportID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	count, err := s.txRepo.CountByReport(ctx, reportID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	dashboard := &Dashboard{
		Report:           report,
		Stats:            stats,
		ProductSales:     sales,
		TransactionCount: count,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, dashboard, s.cacheTTL); err != nil {
			s.logger.Warn("write report cache failed", logger.ReportID(reportID), logger.Err(err))
		}
	}
	return dashboard, nil
}

// ListReports 分页获取周报
func (s *QueryService) ListReports(ctx context.Context, filter *repository.WeeklyReportFilter, page utils.Pagination) ([]*models.WeeklyReport, int64, error) {
	page.Normalize()
	reports, total, err := s.reportRepo.List(ctx, filter, page.GetOffset(), page.GetLimit())
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return reports, total, nil
}

// UpdateStatus 切换周报发布状态
func (s *QueryService) UpdateStatus(ctx context.Context, reportID int64, status string) error {
	if !models.IsValidReportStatus(status) {
		return errors.ErrInvalidStatus
	}
	if err := s.reportRepo.UpdateStatus(ctx, reportID, status); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrReportNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, cache.ReportKey(reportID)); err != nil {
			s.logger.Warn("invalidate report cache failed", logger.ReportID(reportID), logger.Err(err))
		}
	}
	return nil
}

// ListTransactions 分页获取某周流水
func (s *QueryService) ListTransactions(ctx context.Context, reportID int64, status string, page utils.Pagination) ([]*models.SalesTransaction, int64, error) {
	if _, err := s.getReport(ctx, reportID); err != nil {
		return nil, 0, err
	}
	page.Normalize()
	txs, total, err := s.txRepo.ListByReport(ctx, reportID, status, page.GetOffset(), page.GetLimit())
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return txs, total, nil
}

// ListUploads 分页获取上传记录
func (s *QueryService) ListUploads(ctx context.Context, status string, page utils.Pagination) ([]*models.UploadLog, int64, error) {
	page.Normalize()
	logs, total, err := s.uploadRepo.List(ctx, status, page.GetOffset(), page.GetLimit())
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return logs, total, nil
}

func (s *QueryService) getReport(ctx context.Context, reportID int64) (*models.WeeklyReport, error) {
	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrReportNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return report, nil
}

func (s *QueryService) recordCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.RecordCacheHit(dashboardCacheName)
	} else {
		s.metrics.RecordCacheMiss(dashboardCacheName)
	}
}
