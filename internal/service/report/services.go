package report

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/weekly-report-backend/internal/common/cache"
	"github.com/dumeirei/weekly-report-backend/internal/common/config"
	"github.com/dumeirei/weekly-report-backend/internal/common/metrics"
	"github.com/dumeirei/weekly-report-backend/internal/repository"
	"github.com/dumeirei/weekly-report-backend/internal/service/ingest"
	"github.com/dumeirei/weekly-report-backend/pkg/oss"
)

// Services 周报相关服务集合
type Services struct {
	Upload *UploadService
	Query  *QueryService
}

// NewServices 按应用配置组装上传与查询服务
// archiver 为空时不归档原始文件
func NewServices(
	db *gorm.DB,
	cfg *config.Config,
	store cache.Store,
	archiver oss.Archiver,
	m *metrics.Metrics,
	log *zap.Logger,
) (*Services, error) {
	rules, err := ingest.NewRules(&cfg.Ingest)
	if err != nil {
		return nil, err
	}

	reportRepo := repository.NewWeeklyReportRepository(db)
	txRepo := repository.NewSalesTransactionRepository(db)
	statRepo := repository.NewRevenueStatRepository(db)
	saleRepo := repository.NewProductSaleRepository(db)
	uploadRepo := repository.NewUploadLogRepository(db)

	options := UploadOptions{
		MaxFileSize: cfg.Ingest.MaxFileSize,
		ChunkSize:   cfg.Ingest.ChunkSize,
	}
	if archiver != nil {
		options.ArchivePrefix = cfg.OSS.UploadDir
		if options.ArchivePrefix == "" {
			options.ArchivePrefix = "uploads"
		}
	}

	return &Services{
		Upload: NewUploadService(db, reportRepo, txRepo, statRepo, saleRepo, uploadRepo,
			rules, store, archiver, m, options, log),
		Query: NewQueryService(reportRepo, txRepo, statRepo, saleRepo, uploadRepo,
			store, cfg.Cache.TTLDuration(), m, log),
	}, nil
}
