package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/weekly-report-backend/internal/models"
)

// DefaultChunkSize 批量写入默认分片大小
const DefaultChunkSize = 300

// SalesTransactionRepository 销售流水仓储
type SalesTransactionRepository struct {
	db *gorm.DB
}

// NewSalesTransactionRepository 创建销售流水仓储
func NewSalesTransactionRepository(db *gorm.DB) *SalesTransactionRepository {
	return &SalesTransactionRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *SalesTransactionRepository) WithTx(tx *gorm.DB) *SalesTransactionRepository {
	return &SalesTransactionRepository{db: tx}
}

// ReplaceByReport 以替换集语义写入某周流水：先删除该周全部流水再分片插入
// 调用方负责将其置于事务中
func (r *SalesTransactionRepository) ReplaceByReport(ctx context.Context, reportID int64, txs []*models.SalesTransaction, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	db := r.db.WithContext(ctx)

	if err := db.Where("report_id = ?", reportID).Delete(&models.SalesTransaction{}).Error; err != nil {
		return err
	}
	if len(txs) == 0 {
		return nil
	}

	for _, t := range txs {
		id := reportID
		t.ReportID = &id
		t.ID = 0
	}
	return db.CreateInBatches(txs, chunkSize).Error
}

// ListByReport 获取某周流水
func (r *SalesTransactionRepository) ListByReport(ctx context.Context, reportID int64, status string, offset, limit int) ([]*models.SalesTransaction, int64, error) {
	var txs []*models.SalesTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SalesTransaction{}).Where("report_id = ?", reportID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("payment_date ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// CountByReport 统计某周流水数量
func (r *SalesTransactionRepository) CountByReport(ctx context.Context, reportID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SalesTransaction{}).
		Where("report_id = ?", reportID).
		Count(&count).Error
	return count, err
}
