package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/weekly-report-backend/internal/models"
)

// UploadLogRepository 上传审计仓储
type UploadLogRepository struct {
	db *gorm.DB
}

// NewUploadLogRepository 创建上传审计仓储
func NewUploadLogRepository(db *gorm.DB) *UploadLogRepository {
	return &UploadLogRepository{db: db}
}

// Create 记录一次上传
func (r *UploadLogRepository) Create(ctx context.Context, log *models.UploadLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// List 获取上传记录，按时间倒序
func (r *UploadLogRepository) List(ctx context.Context, status string, offset, limit int) ([]*models.UploadLog, int64, error) {
	var logs []*models.UploadLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.UploadLog{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
