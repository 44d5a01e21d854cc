// Package repository 周报相关仓储单元测试
package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/weekly-report-backend/internal/models"
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

func createReport(t *testing.T, db *gorm.DB, start, end, title string) *models.WeeklyReport {
	report := &models.WeeklyReport{Title: title, StartDate: start, EndDate: end, Status: models.ReportStatusDraft}
	require.NoError(t, db.Create(report).Error)
	return report
}

// ==================== WeeklyReportRepository 测试 ====================

func TestWeeklyReportRepository_GetOrCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWeeklyReportRepository(db)
	ctx := context.Background()

	first, created, err := repo.GetOrCreate(ctx, "2025-03-03", "2025-03-09", "2025년 3월 1주차")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)
	assert.Equal(t, models.ReportStatusDraft, first.Status)

	again, created, err := repo.GetOrCreate(ctx, "2025-03-03", "2025-03-09", "ignored")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "2025년 3월 1주차", again.Title)

	var count int64
	db.Model(&models.WeeklyReport{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestWeeklyReportRepository_GetPreviousAndTitle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWeeklyReportRepository(db)
	ctx := context.Background()

	createReport(t, db, "2025-02-17", "2025-02-23", "2025년 2월 3주차")
	feb24 := createReport(t, db, "2025-02-24", "2025-03-02", "2025년 2월 4주차")
	mar3 := createReport(t, db, "2025-03-03", "2025-03-09", "2025년 3월 1주차")

	prev, err := repo.GetPrevious(ctx, mar3.StartDate)
	require.NoError(t, err)
	assert.Equal(t, feb24.ID, prev.ID)

	_, err = repo.GetPrevious(ctx, "2025-02-17")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	byTitle, err := repo.GetByTitle(ctx, "2025년 3월 1주차")
	require.NoError(t, err)
	assert.Equal(t, mar3.ID, byTitle.ID)
}

func TestWeeklyReportRepository_ListAndStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWeeklyReportRepository(db)
	ctx := context.Background()

	createReport(t, db, "2024-12-30", "2025-01-05", "2024년 12월 5주차")
	jan := createReport(t, db, "2025-01-06", "2025-01-12", "2025년 1월 1주차")
	createReport(t, db, "2025-03-03", "2025-03-09", "2025년 3월 1주차")

	year, month := 2025, 1
	list, total, err := repo.List(ctx, &WeeklyReportFilter{Year: &year, Month: &month}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, jan.ID, list[0].ID)

	list, total, err = repo.List(ctx, &WeeklyReportFilter{Year: &year}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "2025-03-03", list[0].StartDate)

	require.NoError(t, repo.UpdateStatus(ctx, jan.ID, models.ReportStatusPublished))
	_, total, err = repo.List(ctx, &WeeklyReportFilter{Status: models.ReportStatusPublished}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, 9999, models.ReportStatusPublished), gorm.ErrRecordNotFound)
}

// ==================== SalesTransactionRepository 测试 ====================

func newTx(date string, payment int64) *models.SalesTransaction {
	return &models.SalesTransaction{
		PaymentDate:   date,
		Year:          2025,
		Month:         3,
		YearMonth:     "2025-03",
		YM:            "2503",
		SellerType:    models.SellerTypeOperations,
		Status:        models.TransactionStatusPaid,
		ProductType:   models.ProductTypeStandard,
		PaymentAmount: payment,
		FinalRevenue:  payment,
		Quantity:      1,
	}
}

func TestSalesTransactionRepository_ReplaceByReport(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSalesTransactionRepository(db)
	ctx := context.Background()
	report := createReport(t, db, "2025-03-03", "2025-03-09", "2025년 3월 1주차")
	other := createReport(t, db, "2025-03-10", "2025-03-16", "2025년 3월 2주차")

	require.NoError(t, repo.ReplaceByReport(ctx, other.ID, []*models.SalesTransaction{newTx("2025-03-10", 500)}, 0))

	batch := make([]*models.SalesTransaction, 0, 7)
	for i := 0; i < 7; i++ {
		batch = append(batch, newTx("2025-03-03", int64(1000*(i+1))))
	}
	require.NoError(t, repo.ReplaceByReport(ctx, report.ID, batch, 3))

	count, err := repo.CountByReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	// 第二次写入减少一行，旧行必须被物理删除
	require.NoError(t, repo.ReplaceByReport(ctx, report.ID, batch[:6], 3))
	list, total, err := repo.ListByReport(ctx, report.ID, "", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	for _, tx := range list {
		assert.NotEqual(t, int64(7000), tx.PaymentAmount)
		require.NotNil(t, tx.ReportID)
		assert.Equal(t, report.ID, *tx.ReportID)
	}

	count, err = repo.CountByReport(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.ReplaceByReport(ctx, report.ID, nil, 3))
	count, _ = repo.CountByReport(ctx, report.ID)
	assert.Zero(t, count)
}

func TestSalesTransactionRepository_ListByStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSalesTransactionRepository(db)
	ctx := context.Background()
	report := createReport(t, db, "2025-03-03", "2025-03-09", "2025년 3월 1주차")

	refund := newTx("2025-03-04", 0)
	refund.Status = models.TransactionStatusRefunded
	refund.RefundAmount = 2000
	refund.FinalRevenue = -2000
	require.NoError(t, repo.ReplaceByReport(ctx, report.ID, []*models.SalesTransaction{newTx("2025-03-03", 10000), refund}, 0))

	list, total, err := repo.ListByReport(ctx, report.ID, models.TransactionStatusRefunded, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(2000), list[0].RefundAmount)
}

// ==================== RevenueStatRepository 测试 ====================

func TestRevenueStatRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRevenueStatRepository(db)
	ctx := context.Background()
	report := createReport(t, db, "2025-03-03", "2025-03-09", "2025년 3월 1주차")

	stat := &models.RevenueStat{ReportID: report.ID, Category: models.RevenueCategoryGross, WeeklyAmt: 10000}
	require.NoError(t, repo.Upsert(ctx, stat))
	firstID := stat.ID

	updated := &models.RevenueStat{ReportID: report.ID, Category: models.RevenueCategoryGross, WeeklyAmt: 12000, MonthlyCumAmt: 12000}
	require.NoError(t, repo.Upsert(ctx, updated))
	assert.Equal(t, firstID, updated.ID)

	got, err := repo.GetByReportAndCategory(ctx, report.ID, models.RevenueCategoryGross)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), got.WeeklyAmt)
	assert.Equal(t, int64(12000), got.MonthlyCumAmt)

	var count int64
	db.Model(&models.RevenueStat{}).Where("report_id = ?", report.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRevenueStatRepository_SnapshotAndWindow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRevenueStatRepository(db)
	ctx := context.Background()

	w1 := createReport(t, db, "2025-03-03", "2025-03-09", "2025년 3월 1주차")
	w2 := createReport(t, db, "2025-03-10", "2025-03-16", "2025년 3월 2주차")
	w3 := createReport(t, db, "2025-03-31", "2025-04-06", "2025년 3월 5주차")
	apr := createReport(t, db, "2025-04-07", "2025-04-13", "2025년 4월 1주차")

	for _, s := range []struct {
		id         int64
		gross, net int64
	}{{w1.ID, 100, 80}, {w2.ID, 200, 150}, {w3.ID, 50, 50}, {apr.ID, 1000, 900}} {
		require.NoError(t, repo.Upsert(ctx, &models.RevenueStat{ReportID: s.id, Category: models.RevenueCategoryGross, WeeklyAmt: s.gross}))
		require.NoError(t, repo.Upsert(ctx, &models.RevenueStat{ReportID: s.id, Category: models.RevenueCategoryNet, WeeklyAmt: s.net}))
	}

	snap, err := repo.Snapshot(ctx, w2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), snap.Gross)
	assert.Equal(t, int64(150), snap.Net)

	empty, err := repo.Snapshot(ctx, 9999)
	require.NoError(t, err)
	assert.Zero(t, empty.Gross)

	// 3 月窗口排除 w2
	month, err := repo.WindowTotals(ctx, "2025-03-01", "2025-03-31", w2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), month.Gross)
	assert.Equal(t, int64(130), month.Net)

	year, err := repo.WindowTotals(ctx, "2025-01-01", "2025-12-31", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1350), year.Gross)
	assert.Equal(t, int64(1180), year.Net)

	none, err := repo.WindowTotals(ctx, "2024-01-01", "2024-12-31", 0)
	require.NoError(t, err)
	assert.Zero(t, none.Gross)
	assert.Zero(t, none.Net)
}

// ==================== ProductSaleRepository 测试 ====================

func TestProductSaleRepository_ReplaceByReport(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductSaleRepository(db)
	ctx := context.Background()
	report := createReport(t, db, "2025-03-03", "2025-03-09", "2025년 3월 1주차")

	require.NoError(t, repo.ReplaceByReport(ctx, report.ID, []*models.ProductSale{
		{ProductGroup: "standard", ProductVariant: "26주", SalesCount: 3, SalesShare: 75},
		{ProductGroup: "flagship", ProductVariant: "기타", SalesCount: 1, SalesShare: 25},
	}))
	require.NoError(t, repo.ReplaceByReport(ctx, report.ID, []*models.ProductSale{
		{ProductGroup: "standard", ProductVariant: "12주", SalesCount: 2, SalesShare: 100},
	}))

	sales, err := repo.ListByReport(ctx, report.ID)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "12주", sales[0].ProductVariant)
	assert.Equal(t, 100.0, sales[0].SalesShare)
}

// ==================== UploadLogRepository 测试 ====================

func TestUploadLogRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUploadLogRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.UploadLog{BatchNo: "UP1", FileName: "a.xlsx", Format: models.UploadFormatWeekly, Status: models.UploadStatusSuccess}))
	require.NoError(t, repo.Create(ctx, &models.UploadLog{BatchNo: "UP2", FileName: "b.xlsx", Format: models.UploadFormatWeekly, Status: models.UploadStatusFailed}))

	logs, total, err := repo.List(ctx, "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "UP2", logs[0].BatchNo)

	_, total, err = repo.List(ctx, models.UploadStatusFailed, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestDateWindow(t *testing.T) {
	year, month, bad := 2025, 2, 13

	from, to := dateWindow(nil, &month)
	assert.Empty(t, from)
	assert.Empty(t, to)

	from, to = dateWindow(&year, nil)
	assert.Equal(t, "2025-01-01", from)
	assert.Equal(t, "2025-12-31", to)

	from, to = dateWindow(&year, &month)
	assert.Equal(t, "2025-02-01", from)
	assert.Equal(t, "2025-02-31", to)

	from, _ = dateWindow(&year, &bad)
	assert.Equal(t, "2025-01-01", from)
}
