package report

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/weekly-report-backend/internal/models"
	"github.com/dumeirei/weekly-report-backend/internal/repository"
	"github.com/dumeirei/weekly-report-backend/internal/service/ingest"
)

// PriorStatsReader 读取其他周已持久化的营收快照
// 对比指标只依赖本周流水和这些快照，不回读其他周的原始流水
type PriorStatsReader interface {
	// PreviousWeek 起始日早于 startDate 的最近一周快照，不存在时 found 为 false
	PreviousWeek(ctx context.Context, startDate string) (snap repository.StatSnapshot, found bool, err error)
	// ByTitle 标题完全匹配的周报快照
	ByTitle(ctx context.Context, title string) (snap repository.StatSnapshot, found bool, err error)
	// WindowTotals 起始日落在 [from, to] 的其他周报快照之和
	WindowTotals(ctx context.Context, from, to string, excludeReportID int64) (repository.StatSnapshot, error)
}

// storedStatsReader 基于仓储的快照读取
type storedStatsReader struct {
	reports *repository.WeeklyReportRepository
	stats   *repository.RevenueStatRepository
}

// NewStoredStatsReader 创建基于仓储的快照读取器
func NewStoredStatsReader(reports *repository.WeeklyReportRepository, stats *repository.RevenueStatRepository) PriorStatsReader {
	return &storedStatsReader{reports: reports, stats: stats}
}

func (r *storedStatsReader) PreviousWeek(ctx context.Context, startDate string) (repository.StatSnapshot, bool, error) {
	prev, err := r.reports.GetPrevious(ctx, startDate)
	return r.snapshotOf(ctx, prev, err)
}

func (r *storedStatsReader) ByTitle(ctx context.Context, title string) (repository.StatSnapshot, bool, error) {
	report, err := r.reports.GetByTitle(ctx, title)
	return r.snapshotOf(ctx, report, err)
}

func (r *storedStatsReader) WindowTotals(ctx context.Context, from, to string, excludeReportID int64) (repository.StatSnapshot, error) {
	return r.stats.WindowTotals(ctx, from, to, excludeReportID)
}

func (r *storedStatsReader) snapshotOf(ctx context.Context, report *models.WeeklyReport, err error) (repository.StatSnapshot, bool, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.StatSnapshot{}, false, nil
	}
	if err != nil {
		return repository.StatSnapshot{}, false, err
	}
	snap, err := r.stats.Snapshot(ctx, report.ID)
	if err != nil {
		return repository.StatSnapshot{}, false, err
	}
	return snap, true, nil
}

// WeekAggregate 单周汇总结果
type WeekAggregate struct {
	Gross        int64
	Refund       int64
	Net          int64
	ValidCount   int
	Stats        []*models.RevenueStat
	ProductSales []*models.ProductSale
}

// Stat 按口径取统计行
func (a *WeekAggregate) Stat(category string) *models.RevenueStat {
	for _, s := range a.Stats {
		if s.Category == category {
			return s
		}
	}
	return nil
}

// Engine 周汇总计算
type Engine struct {
	rules *ingest.Rules
}

// NewEngine 创建周汇总计算
func NewEngine(rules *ingest.Rules) *Engine {
	return &Engine{rules: rules}
}

// Aggregate 计算目标周的毛/净营收、对比指标和商品结构
// 查不到的历史数据按 0 处理
func (e *Engine) Aggregate(ctx context.Context, reader PriorStatsReader, report *models.WeeklyReport, txs []*models.SalesTransaction) (*WeekAggregate, error) {
	week, err := WeekOfDate(report.StartDate)
	if err != nil {
		return nil, err
	}

	agg := &WeekAggregate{}
	for _, tx := range txs {
		switch tx.Status {
		case models.TransactionStatusPaid:
			agg.Gross += tx.PaymentAmount
		case models.TransactionStatusRefunded:
			agg.Refund += tx.RefundAmount
		}
	}
	agg.Net = agg.Gross - agg.Refund

	prev, _, err := reader.PreviousWeek(ctx, report.StartDate)
	if err != nil {
		return nil, err
	}
	yoy, _, err := reader.ByTitle(ctx, week.YoYTitle())
	if err != nil {
		return nil, err
	}

	monthFrom, monthTo := week.MonthWindow()
	month, err := reader.WindowTotals(ctx, monthFrom, monthTo, report.ID)
	if err != nil {
		return nil, err
	}
	yearFrom, yearTo := week.YearWindow()
	year, err := reader.WindowTotals(ctx, yearFrom, yearTo, report.ID)
	if err != nil {
		return nil, err
	}

	monthlyRefund := (month.Gross - month.Net) + agg.Refund

	agg.Stats = []*models.RevenueStat{
		{
			ReportID:         report.ID,
			Category:         models.RevenueCategoryGross,
			WeeklyAmt:        agg.Gross,
			PrevWeeklyAmt:    prev.Gross,
			YoYAmt:           yoy.Gross,
			MonthlyCumAmt:    month.Gross + agg.Gross,
			MonthlyRefundAmt: monthlyRefund,
			YearlyCumAmt:     year.Gross + agg.Gross,
		},
		{
			ReportID:         report.ID,
			Category:         models.RevenueCategoryNet,
			WeeklyAmt:        agg.Net,
			PrevWeeklyAmt:    prev.Net,
			YoYAmt:           yoy.Net,
			MonthlyCumAmt:    month.Net + agg.Net,
			MonthlyRefundAmt: monthlyRefund,
			YearlyCumAmt:     year.Net + agg.Net,
		},
	}

	agg.ProductSales, agg.ValidCount = e.productMix(report.ID, txs)
	return agg, nil
}

type mixKey struct {
	group   string
	variant string
}

// productMix 统计计入正式件数的付款流水的商品结构，占比保留两位小数
func (e *Engine) productMix(reportID int64, txs []*models.SalesTransaction) ([]*models.ProductSale, int) {
	counts := make(map[mixKey]int)
	total := 0
	for _, tx := range txs {
		if tx.Status != models.TransactionStatusPaid || tx.PaymentCountRefined != 1 {
			continue
		}
		counts[mixKey{group: tx.ProductType, variant: e.rules.VariantLabel(tx.DurationWeeks)}]++
		total++
	}
	if total == 0 {
		return nil, 0
	}

	denominator := decimal.NewFromInt(int64(total))
	sales := make([]*models.ProductSale, 0, len(counts))
	for k, n := range counts {
		share := decimal.NewFromInt(int64(n)).Mul(decimal.NewFromInt(100)).Div(denominator).Round(2)
		sales = append(sales, &models.ProductSale{
			ReportID:       reportID,
			ProductGroup:   k.group,
			ProductVariant: k.variant,
			SalesCount:     n,
			SalesShare:     share.InexactFloat64(),
		})
	}

	sort.Slice(sales, func(i, j int) bool {
		if sales[i].ProductGroup != sales[j].ProductGroup {
			return sales[i].ProductGroup < sales[j].ProductGroup
		}
		if sales[i].SalesCount != sales[j].SalesCount {
			return sales[i].SalesCount > sales[j].SalesCount
		}
		return sales[i].ProductVariant < sales[j].ProductVariant
	})
	return sales, total
}
