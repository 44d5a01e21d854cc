package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dumeirei/weekly-report-backend/internal/models"
)

// RevenueStatRepository 周营收统计仓储
type RevenueStatRepository struct {
	db *gorm.DB
}

// NewRevenueStatRepository 创建周营收统计仓储
func NewRevenueStatRepository(db *gorm.DB) *RevenueStatRepository {
	return &RevenueStatRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *RevenueStatRepository) WithTx(tx *gorm.DB) *RevenueStatRepository {
	return &RevenueStatRepository{db: tx}
}

// GetByReportAndCategory 按 (report_id, category) 查找
func (r *RevenueStatRepository) GetByReportAndCategory(ctx context.Context, reportID int64, category string) (*models.RevenueStat, error) {
	var stat models.RevenueStat
	err := r.db.WithContext(ctx).
		Where("report_id = ? AND category = ?", reportID, category).
		First(&stat).Error
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

// Upsert 先查后改或插，保证每个 (report_id, category) 至多一行
func (r *RevenueStatRepository) Upsert(ctx context.Context, stat *models.RevenueStat) error {
	existing, err := r.GetByReportAndCategory(ctx, stat.ReportID, stat.Category)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if existing == nil {
		stat.ID = 0
		return r.db.WithContext(ctx).Create(stat).Error
	}

	stat.ID = existing.ID
	stat.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Model(existing).Updates(map[string]interface{}{
		"weekly_amt":         stat.WeeklyAmt,
		"prev_weekly_amt":    stat.PrevWeeklyAmt,
		"yoy_amt":            stat.YoYAmt,
		"monthly_cum_amt":    stat.MonthlyCumAmt,
		"monthly_refund_amt": stat.MonthlyRefundAmt,
		"yearly_cum_amt":     stat.YearlyCumAmt,
		"note":               stat.Note,
	}).Error
}

// ListByReport 获取某周全部口径统计
func (r *RevenueStatRepository) ListByReport(ctx context.Context, reportID int64) ([]*models.RevenueStat, error) {
	var stats []*models.RevenueStat
	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("category ASC").
		Find(&stats).Error
	return stats, err
}

// StatSnapshot 某周已持久化的毛/净营收快照
type StatSnapshot struct {
	ReportID int64
	Gross    int64
	Net      int64
}

// Snapshot 读取某周已存储的毛/净周营收，缺失口径按 0 处理
func (r *RevenueStatRepository) Snapshot(ctx context.Context, reportID int64) (StatSnapshot, error) {
	snap := StatSnapshot{ReportID: reportID}
	stats, err := r.ListByReport(ctx, reportID)
	if err != nil {
		return snap, err
	}
	for _, s := range stats {
		switch s.Category {
		case models.RevenueCategoryGross:
			snap.Gross = s.WeeklyAmt
		case models.RevenueCategoryNet:
			snap.Net = s.WeeklyAmt
		}
	}
	return snap, nil
}

// WindowTotals 汇总起始日落在 [from, to] 内、且不是 excludeReportID 的周报已存储周营收
func (r *RevenueStatRepository) WindowTotals(ctx context.Context, from, to string, excludeReportID int64) (StatSnapshot, error) {
	var row struct {
		Gross int64
		Net   int64
	}
	err := r.db.WithContext(ctx).
		Table("edu_revenue_stats AS s").
		Select(
			"COALESCE(SUM(CASE WHEN s.category = ? THEN s.weekly_amt ELSE 0 END), 0) AS gross, "+
				"COALESCE(SUM(CASE WHEN s.category = ? THEN s.weekly_amt ELSE 0 END), 0) AS net",
			models.RevenueCategoryGross, models.RevenueCategoryNet,
		).
		Joins("JOIN weekly_reports AS w ON w.id = s.report_id").
		Where("w.start_date >= ? AND w.start_date <= ? AND w.id <> ?", from, to, excludeReportID).
		Scan(&row).Error
	if err != nil {
		return StatSnapshot{}, err
	}
	return StatSnapshot{Gross: row.Gross, Net: row.Net}, nil
}
