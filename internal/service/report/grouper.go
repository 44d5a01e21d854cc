package report

import (
	"context"
	"sort"

	"github.com/dumeirei/weekly-report-backend/internal/models"
	"github.com/dumeirei/weekly-report-backend/internal/repository"
)

// WeekBatch 同一周的流水
type WeekBatch struct {
	Week         Week
	Transactions []*models.SalesTransaction
}

// GroupByWeek 按流水有效日期所在周分组，按周起始日升序返回
// 有效日期无法解析的流水被忽略
func GroupByWeek(txs []*models.SalesTransaction) []*WeekBatch {
	batches := make(map[string]*WeekBatch)
	for _, tx := range txs {
		week, err := WeekOfDate(tx.PaymentDate)
		if err != nil {
			continue
		}
		key := week.StartDate()
		batch, ok := batches[key]
		if !ok {
			batch = &WeekBatch{Week: week}
			batches[key] = batch
		}
		batch.Transactions = append(batch.Transactions, tx)
	}

	result := make([]*WeekBatch, 0, len(batches))
	for _, b := range batches {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Week.Start.Before(result[j].Week.Start)
	})
	return result
}

// ResolveReport 按周窗口查找周报，不存在时以生成的标题创建
func ResolveReport(ctx context.Context, reports *repository.WeeklyReportRepository, week Week) (*models.WeeklyReport, bool, error) {
	return reports.GetOrCreate(ctx, week.StartDate(), week.EndDate(), week.Title())
}
