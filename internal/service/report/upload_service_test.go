package report

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dumeirei/weekly-report-backend/internal/common/cache"
	"github.com/dumeirei/weekly-report-backend/internal/common/errors"
	"github.com/dumeirei/weekly-report-backend/internal/common/metrics"
	"github.com/dumeirei/weekly-report-backend/internal/models"
	"github.com/dumeirei/weekly-report-backend/internal/service/ingest"
	"github.com/dumeirei/weekly-report-backend/pkg/oss"
)

func statOf(t *testing.T, repos *testRepos, reportID int64, category string) *models.RevenueStat {
	t.Helper()
	stat, err := repos.stats.GetByReportAndCategory(context.Background(), reportID, category)
	require.NoError(t, err)
	return stat
}

func TestUploadService_FirstWeek(t *testing.T) {
	db := setupTestDB(t)
	repos := newTestRepos(db)
	svc := newUploadService(db, repos, UploadOptions{ChunkSize: 300})
	ctx := context.Background()

	content := workbook(t,
		paidRow("2025-03-03", "홍길동", "왕수학 26주 챌린지", 10000),
		refundRow("2025-03-04", "이몽룡", 2000),
	)

	result, err := svc.Upload(ctx, &UploadRequest{FileName: "week.xlsx", Content: content})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.WeeksProcessed)
	require.Len(t, result.Detail, 1)
	assert.Equal(t, "2025-03-03", result.Detail[0].Week)
	assert.Equal(t, 2, result.Detail[0].Count)
	assert.True(t, result.Detail[0].Created)
	assert.Equal(t, "2025년 3월 1주차", result.Detail[0].Title)

	reportID := result.Detail[0].ReportID
	gross := statOf(t, repos, reportID, models.RevenueCategoryGross)
	assert.Equal(t, int64(10000), gross.WeeklyAmt)
	assert.Zero(t, gross.PrevWeeklyAmt)
	assert.Zero(t, gross.YoYAmt)
	assert.Equal(t, int64(10000), gross.MonthlyCumAmt)
	assert.Equal(t, int64(2000), gross.MonthlyRefundAmt)

	net := statOf(t, repos, reportID, models.RevenueCategoryNet)
	assert.Equal(t, int64(8000), net.WeeklyAmt)
	assert.Zero(t, net.PrevWeeklyAmt)
	assert.Zero(t, net.YoYAmt)
	assert.Equal(t, int64(8000), net.MonthlyCumAmt)
	assert.Equal(t, int64(8000), net.YearlyCumAmt)

	// 金额不变式
	txs, total, err := repos.txs.ListByReport(ctx, reportID, "", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, tx := range txs {
		assert.Equal(t, tx.PaymentAmount-tx.RefundAmount, tx.FinalRevenue)
		if tx.Status == models.TransactionStatusRefunded {
			assert.Zero(t, tx.PaymentAmount)
		}
	}

	sales, err := repos.products.ListByReport(ctx, reportID)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "26주", sales[0].ProductVariant)
	assert.Equal(t, 100.0, sales[0].SalesShare)

	logs, _, err := repos.uploads.List(ctx, "", 0, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.UploadStatusSuccess, logs[0].Status)
	assert.Equal(t, models.UploadFormatWeekly, logs[0].Format)
	assert.Equal(t, 2, logs[0].Parsed)
	assert.Equal(t, 1, logs[0].Weeks)
	assert.Equal(t, result.BatchNo, logs[0].BatchNo)
}

func TestUploadService_MultipleWeeksSequential(t *testing.T) {
	db := setupTestDB(t)
	repos := newTestRepos(db)
	svc := newUploadService(db, repos, UploadOptions{})
	ctx := context.Background()

	// 行顺序打乱，处理顺序仍按周升序
	content := workbook(t,
		paidRow("2025-03-12", "향단", "수학 8주", 5000),
		paidRow("2025-03-03", "홍길동", "왕수학 26주 챌린지", 10000),
		refundRow("2025-03-04", "이몽룡", 2000),
	)

	result, err := svc.Upload(ctx, &UploadRequest{FileName: "month.xlsx", Content: content})
	require.NoError(t, err)
	require.Len(t, result.Detail, 2)
	assert.Equal(t, "2025-03-03", result.Detail[0].Week)
	assert.Equal(t, "2025-03-10", result.Detail[1].Week)

	second := result.Detail[1].ReportID
	gross := statOf(t, repos, second, models.RevenueCategoryGross)
	assert.Equal(t, int64(5000), gross.WeeklyAmt)
	assert.Equal(t, int64(10000), gross.PrevWeeklyAmt)
	assert.Equal(t, int64(15000), gross.MonthlyCumAmt)
	assert.Equal(t, int64(15000), gross.YearlyCumAmt)
	assert.Equal(t, int64(2000), gross.MonthlyRefundAmt)

	net := statOf(t, repos, second, models.RevenueCategoryNet)
	assert.Equal(t, int64(8000), net.PrevWeeklyAmt)
	assert.Equal(t, int64(13000), net.MonthlyCumAmt)
}

func TestUploadService_YearOverYear(t *testing.T) {
	db := setupTestDB(t)
	repos := newTestRepos(db)
	svc := newUploadService(db, repos, UploadOptions{})
	ctx := context.Background()

	lastYear := &models.WeeklyReport{Title: "2024년 3월 1주차", StartDate: "2024-03-04", EndDate: "2024-03-10", Status: models.ReportStatusPublished}
	require.NoError(t, repos.reports.Create(ctx, lastYear))
	require.NoError(t, repos.stats.Upsert(ctx, &models.RevenueStat{ReportID: lastYear.ID, Category: models.RevenueCategoryGross, WeeklyAmt: 7000}))
	require.NoError(t, repos.stats.Upsert(ctx, &models.RevenueStat{ReportID: lastYear.ID, Category: models.RevenueCategoryNet, WeeklyAmt: 6000}))

	result, err := svc.Upload(ctx, &UploadRequest{
		FileName: "week.xlsx",
		Content:  workbook(t, paidRow("2025-03-05", "홍길동", "왕수학 26주 챌린지", 10000)),
	})
	require.NoError(t, err)

	reportID := result.Detail[0].ReportID
	assert.Equal(t, int64(7000), statOf(t, repos, reportID, models.RevenueCategoryGross).YoYAmt)
	assert.Equal(t, int64(6000), statOf(t, repos, reportID, models.RevenueCategoryNet).YoYAmt)
	// 去年的周报同时是最近的前一周
	assert.Equal(t, int64(7000), statOf(t, repos, reportID, models.RevenueCategoryGross).PrevWeeklyAmt)
	// 跨年周报不计入今年累计
	assert.Equal(t, int64(10000), statOf(t, repos, reportID, models.RevenueCategoryGross).YearlyCumAmt)
}

type storedState struct {
	transactions []models.SalesTransaction
	stats        []models.RevenueStat
	products     []models.ProductSale
}

func loadState(t *testing.T, repos *testRepos, reportID int64) storedState {
	t.Helper()
	ctx := context.Background()

	txs, _, err := repos.txs.ListByReport(ctx, reportID, "", 0, 1000)
	require.NoError(t, err)
	stats, err := repos.stats.ListByReport(ctx, reportID)
	require.NoError(t, err)
	sales, err := repos.products.ListByReport(ctx, reportID)
	require.NoError(t, err)

	var state storedState
	for _, tx := range txs {
		c := *tx
		c.ID, c.CreatedAt = 0, time.Time{}
		state.transactions = append(state.transactions, c)
	}
	for _, s := range stats {
		c := *s
		c.CreatedAt, c.UpdatedAt = time.Time{}, time.Time{}
		state.stats = append(state.stats, c)
	}
	for _, s := range sales {
		c := *s
		c.ID, c.CreatedAt = 0, time.Time{}
		state.products = append(state.products, c)
	}
	return state
}

func TestUploadService_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repos := newTestRepos(db)
	svc := newUploadService(db, repos, UploadOptions{ChunkSize: 2})
	ctx := context.Background()

	content := workbook(t,
		paidRow("2025-03-03", "홍길동", "왕수학 26주 챌린지", 10000),
		paidRow("2025-03-04", "성춘향", "1타 특강 12회", 30000),
		paidRow("2025-03-05", "변학도", "교재", 8000),
		refundRow("2025-03-06", "이몽룡", 2000),
	)

	first, err := svc.Upload(ctx, &UploadRequest{FileName: "week.xlsx", Content: content})
	require.NoError(t, err)
	reportID := first.Detail[0].ReportID
	before := loadState(t, repos, reportID)

	second, err := svc.Upload(ctx, &UploadRequest{FileName: "week.xlsx", Content: content})
	require.NoError(t, err)
	assert.Equal(t, reportID, second.Detail[0].ReportID)
	assert.False(t, second.Detail[0].Created)

	after := loadState(t, repos, reportID)
	assert.Equal(t, before, after)
	assert.Len(t, after.transactions, 4)
	assert.Len(t, after.stats, 2)

	var reports int64
	db.Model(&models.WeeklyReport{}).Count(&reports)
	assert.Equal(t, int64(1), reports)
}

func TestUploadService_ReuploadReplacesRows(t *testing.T) {
	db := setupTestDB(t)
	repos := newTestRepos(db)
	svc := newUploadService(db, repos, UploadOptions{})
	ctx := context.Background()

	first, err := svc.Upload(ctx, &UploadRequest{FileName: "week.xlsx", Content: workbook(t,
		paidRow("2025-03-03", "홍길동", "왕수학 26주 챌린지", 10000),
		paidRow("2025-03-04", "성춘향", "수학 8주", 30000),
		paidRow("2025-03-05", "변학도", "교재", 8000),
	)})
	require.NoError(t, err)
	reportID := first.Detail[0].ReportID

	_, err = svc.Upload(ctx, &UploadRequest{FileName: "week.xlsx", Content: workbook(t,
		paidRow("2025-03-03", "홍길동", "왕수학 26주 챌린지", 10000),
		paidRow("2025-03-04", "성춘향", "수학 8주", 30000),
	)})
	require.NoError(t, err)

	txs, total, err := repos.txs.ListByReport(ctx, reportID, "", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, tx := range txs {
		assert.NotEqual(t, "변학도", tx.Buyer)
	}
	assert.Equal(t, int64(40000), statOf(t, repos, reportID, models.RevenueCategoryGross).WeeklyAmt)

	sales, err := repos.products.ListByReport(ctx, reportID)
	require.NoError(t, err)
	assert.Len(t, sales, 2)
}

func TestUploadService_TargetReport(t *testing.T) {
	db := setupTestDB(t)
	repos := newTestRepos(db)
	svc := newUploadService(db, repos, UploadOptions{})
	ctx := context.Background()

	target := &models.WeeklyReport{Title: "2025년 3월 2주차", StartDate: "2025-03-10", EndDate: "2025-03-16", Status: models.ReportStatusDraft}
	require.NoError(t, repos.reports.Create(ctx, target))

	content := workbook(t,
		paidRow("2025-03-03", "홍길동", "왕수학 26주 챌린지", 10000),
		paidRow("2025-03-11", "향단", "수학 8주", 5000),
		refundRow("2025-03-04", "이몽룡", 2000),
	)

	result, err := svc.Upload(ctx, &UploadRequest{FileName: "week.xlsx", Content: content, ReportID: &target.ID})
	require.NoError(t, err)
	require.Len(t, result.Detail, 1)
	assert.Equal(t, target.ID, result.Detail[0].ReportID)
	assert.Equal(t, 2, result.Parse.Dropped[ingest.DropOutOfWindow])

	count, err := repos.txs.CountByReport(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var reports int64
	db.Model(&models.WeeklyReport{}).Count(&reports)
	assert.Equal(t, int64(1), reports)

	t.Run("目标周没有流水", func(t *testing.T) {
		_, err := svc.Upload(ctx, &UploadRequest{
			FileName: "week.xlsx",
			Content:  workbook(t, paidRow("2025-03-03", "홍길동", "교재", 100)),
			ReportID: &target.ID,
		})
		assert.ErrorIs(t, err, errors.ErrNoTransactions)
	})

	t.Run("目标周不存在", func(t *testing.T) {
		missing := int64(9999)
		_, err := svc.Upload(ctx, &UploadRequest{FileName: "week.xlsx", Content: content, ReportID: &missing})
		assert.ErrorIs(t, err, errors.ErrReportNotFound)
	})
}

func TestUploadService_BatchErrors(t *testing.T) {
	db := setupTestDB(t)
	repos := newTestRepos(db)
	svc := newUploadService(db, repos, UploadOptions{MaxFileSize: 64 * 1024})
	ctx := context.Background()

	t.Run("文件过大", func(t *testing.T) {
		_, err := svc.Upload(ctx, &UploadRequest{FileName: "big.xlsx", Content: make([]byte, 64*1024+1)})
		assert.ErrorIs(t, err, errors.ErrFileTooLarge)
	})

	t.Run("不支持的类型", func(t *testing.T) {
		_, err := svc.Upload(ctx, &UploadRequest{FileName: "week.pdf", Content: []byte("%PDF")})
		assert.ErrorIs(t, err, errors.ErrUnsupportedFile)
	})

	t.Run("没有有效流水带诊断信息", func(t *testing.T) {
		result, err := svc.Upload(ctx, &UploadRequest{FileName: "week.xlsx", Content: workbook(t,
			[]interface{}{"취소", "2025-03-03", "", "", "", "", "", 100, ""},
			[]interface{}{"결", "언젠가", "", "", "", "", "", 100, ""},
		)})
		assert.ErrorIs(t, err, errors.ErrNoTransactions)
		require.NotNil(t, result.Parse)
		assert.Equal(t, 2, result.Parse.RowCount)
		assert.Equal(t, 1, result.Parse.Dropped[ingest.DropUnknownStatus])
		assert.Equal(t, 1, result.Parse.Dropped[ingest.DropBadDate])
		assert.Contains(t, result.Parse.Headers, "결제일")
	})

	logs, total, err := repos.uploads.List(ctx, models.UploadStatusFailed, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.NotNil(t, logs[0].Error)
}

func TestUploadService_WeekFailureRollsBack(t *testing.T) {
	db := setupTestDB(t)
	repos := newTestRepos(db)
	svc := newUploadService(db, repos, UploadOptions{})
	ctx := context.Background()

	require.NoError(t, db.Migrator().DropTable(&models.ProductSale{}))

	result, err := svc.Upload(ctx, &UploadRequest{FileName: "week.xlsx", Content: workbook(t,
		paidRow("2025-03-03", "홍길동", "왕수학 26주 챌린지", 10000),
	)})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrWeekIngestFailed)
	assert.False(t, result.Success)
	assert.Zero(t, result.WeeksProcessed)
	require.Len(t, result.Detail, 1)
	assert.NotEmpty(t, result.Detail[0].Error)

	// 周事务整体回滚
	var reports, txs, stats int64
	db.Model(&models.WeeklyReport{}).Count(&reports)
	db.Model(&models.SalesTransaction{}).Count(&txs)
	db.Model(&models.RevenueStat{}).Count(&stats)
	assert.Zero(t, reports)
	assert.Zero(t, txs)
	assert.Zero(t, stats)

	logs, _, err := repos.uploads.List(ctx, models.UploadStatusFailed, 0, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestUploadService_ArchiveCacheAndMetrics(t *testing.T) {
	db := setupTestDB(t)
	repos := newTestRepos(db)
	store := cache.NewMemoryStore(time.Minute, time.Minute)
	archiver := oss.NewMockArchiver()
	m := metrics.NewWithRegisterer("weekly_report_test", prometheus.NewRegistry())

	svc := NewUploadService(db, repos.reports, repos.txs, repos.stats, repos.products, repos.uploads,
		ingest.DefaultRules(), store, archiver, m,
		UploadOptions{ArchivePrefix: "report-uploads"}, zap.NewNop())
	ctx := context.Background()

	content := workbook(t, paidRow("2025-03-03", "홍길동", "왕수학 26주 챌린지", 10000))
	first, err := svc.Upload(ctx, &UploadRequest{FileName: "week.xlsx", Content: content})
	require.NoError(t, err)
	assert.Contains(t, first.ArchiveURL, "report-uploads/")
	assert.Len(t, archiver.Files, 1)

	reportID := first.Detail[0].ReportID
	require.NoError(t, store.Set(ctx, cache.ReportKey(reportID), map[string]int{"stale": 1}, 0))

	second, err := svc.Upload(ctx, &UploadRequest{FileName: "week.xlsx", Content: content})
	require.NoError(t, err)
	assert.NotEqual(t, first.BatchNo, second.BatchNo)

	var cached map[string]int
	assert.ErrorIs(t, store.Get(ctx, cache.ReportKey(reportID), &cached), cache.ErrCacheMiss)

	logs, _, err := repos.uploads.List(ctx, "", 0, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.NotNil(t, logs[0].ArchiveURL)
}

func TestUploadService_Progress(t *testing.T) {
	db := setupTestDB(t)
	repos := newTestRepos(db)
	svc := newUploadService(db, repos, UploadOptions{})

	content := workbook(t,
		paidRow("2025-03-12", "B", "수학 8주", 5000),
		paidRow("2025-03-03", "A", "수학 8주", 5000),
	)

	var weeks []string
	var totals []int
	_, err := svc.Upload(context.Background(), &UploadRequest{
		FileName: "weeks.xlsx",
		Content:  content,
		Progress: func(done, total int, detail WeekDetail) {
			assert.Equal(t, len(weeks)+1, done)
			weeks = append(weeks, detail.Week)
			totals = append(totals, total)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-03", "2025-03-10"}, weeks)
	assert.Equal(t, []int{2, 2}, totals)
}
