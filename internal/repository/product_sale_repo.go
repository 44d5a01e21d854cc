package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/weekly-report-backend/internal/models"
)

// ProductSaleRepository 商品结构统计仓储
type ProductSaleRepository struct {
	db *gorm.DB
}

// NewProductSaleRepository 创建商品结构统计仓储
func NewProductSaleRepository(db *gorm.DB) *ProductSaleRepository {
	return &ProductSaleRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *ProductSaleRepository) WithTx(tx *gorm.DB) *ProductSaleRepository {
	return &ProductSaleRepository{db: tx}
}

// ReplaceByReport 删除某周全部商品结构后重新写入
func (r *ProductSaleRepository) ReplaceByReport(ctx context.Context, reportID int64, sales []*models.ProductSale) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("report_id = ?", reportID).Delete(&models.ProductSale{}).Error; err != nil {
		return err
	}
	if len(sales) == 0 {
		return nil
	}
	for _, s := range sales {
		s.ReportID = reportID
		s.ID = 0
	}
	return db.CreateInBatches(sales, DefaultChunkSize).Error
}

// ListByReport 获取某周商品结构
func (r *ProductSaleRepository) ListByReport(ctx context.Context, reportID int64) ([]*models.ProductSale, error) {
	var sales []*models.ProductSale
	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("product_group ASC, product_variant ASC").
		Find(&sales).Error
	return sales, err
}
