// Package repository 提供数据访问层
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dumeirei/weekly-report-backend/internal/models"
)

// WeeklyReportRepository 周报仓储
type WeeklyReportRepository struct {
	db *gorm.DB
}

// NewWeeklyReportRepository 创建周报仓储
func NewWeeklyReportRepository(db *gorm.DB) *WeeklyReportRepository {
	return &WeeklyReportRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *WeeklyReportRepository) WithTx(tx *gorm.DB) *WeeklyReportRepository {
	return &WeeklyReportRepository{db: tx}
}

// Create 创建周报
func (r *WeeklyReportRepository) Create(ctx context.Context, report *models.WeeklyReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

// GetByID 根据 ID 获取周报
func (r *WeeklyReportRepository) GetByID(ctx context.Context, id int64) (*models.WeeklyReport, error) {
	var report models.WeeklyReport
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// GetByRange 按 (start_date, end_date) 精确查找周报
func (r *WeeklyReportRepository) GetByRange(ctx context.Context, startDate, endDate string) (*models.WeeklyReport, error) {
	var report models.WeeklyReport
	err := r.db.WithContext(ctx).
		Where("start_date = ? AND end_date = ?", startDate, endDate).
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// GetOrCreate 查找周报，不存在时按给定标题创建
// 并发创建触发唯一索引冲突时重新查找一次
func (r *WeeklyReportRepository) GetOrCreate(ctx context.Context, startDate, endDate, title string) (*models.WeeklyReport, bool, error) {
	report, err := r.GetByRange(ctx, startDate, endDate)
	if err == nil {
		return report, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	report = &models.WeeklyReport{
		Title:     title,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    models.ReportStatusDraft,
	}
	if createErr := r.Create(ctx, report); createErr != nil {
		existing, findErr := r.GetByRange(ctx, startDate, endDate)
		if findErr != nil {
			return nil, false, createErr
		}
		return existing, false, nil
	}
	return report, true, nil
}

// GetPrevious 获取起始日严格早于 startDate 的最近一周周报
func (r *WeeklyReportRepository) GetPrevious(ctx context.Context, startDate string) (*models.WeeklyReport, error) {
	var report models.WeeklyReport
	err := r.db.WithContext(ctx).
		Where("start_date < ?", startDate).
		Order("start_date DESC").
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// GetByTitle 按标题精确查找周报
func (r *WeeklyReportRepository) GetByTitle(ctx context.Context, title string) (*models.WeeklyReport, error) {
	var report models.WeeklyReport
	err := r.db.WithContext(ctx).
		Where("title = ?", title).
		Order("start_date ASC").
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// UpdateStatus 更新周报状态
func (r *WeeklyReportRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	result := r.db.WithContext(ctx).Model(&models.WeeklyReport{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// WeeklyReportFilter 周报查询过滤条件
type WeeklyReportFilter struct {
	Year   *int
	Month  *int
	Status string
}

// List 获取周报列表，按起始日降序
func (r *WeeklyReportRepository) List(ctx context.Context, filter *WeeklyReportFilter, offset, limit int) ([]*models.WeeklyReport, int64, error) {
	var reports []*models.WeeklyReport
	var total int64

	query := r.db.WithContext(ctx).Model(&models.WeeklyReport{})

	if filter != nil {
		from, to := dateWindow(filter.Year, filter.Month)
		if from != "" {
			query = query.Where("start_date >= ? AND start_date <= ?", from, to)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("start_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}
