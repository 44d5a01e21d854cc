package report

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/weekly-report-backend/internal/models"
	"github.com/dumeirei/weekly-report-backend/internal/repository"
	"github.com/dumeirei/weekly-report-backend/internal/service/ingest"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

type testRepos struct {
	reports  *repository.WeeklyReportRepository
	txs      *repository.SalesTransactionRepository
	stats    *repository.RevenueStatRepository
	products *repository.ProductSaleRepository
	uploads  *repository.UploadLogRepository
}

func newTestRepos(db *gorm.DB) *testRepos {
	return &testRepos{
		reports:  repository.NewWeeklyReportRepository(db),
		txs:      repository.NewSalesTransactionRepository(db),
		stats:    repository.NewRevenueStatRepository(db),
		products: repository.NewProductSaleRepository(db),
		uploads:  repository.NewUploadLogRepository(db),
	}
}

func newUploadService(db *gorm.DB, repos *testRepos, opts UploadOptions) *UploadService {
	return NewUploadService(db, repos.reports, repos.txs, repos.stats, repos.products, repos.uploads,
		ingest.DefaultRules(), nil, nil, nil, opts, nil)
}

var sheetHeader = []interface{}{"상태", "결제일", "환불일", "판매자", "구매자", "판매유형", "상품명", "결제금액", "환불금액"}

// workbook 生成表头 + 数据行的 xlsx 内容
func workbook(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	all := append([][]interface{}{sheetHeader}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func paidRow(date, buyer, product string, amount int) []interface{} {
	return []interface{}{"결", date, "", "S_김민수", buyer, "신규", product, amount, ""}
}

func refundRow(refundDate, buyer string, amount int) []interface{} {
	return []interface{}{"환", "", refundDate, "김운영", buyer, "신규", "왕수학 26주 챌린지", "", amount}
}
