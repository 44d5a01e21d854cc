package report

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/dumeirei/weekly-report-backend/internal/models"
	"github.com/dumeirei/weekly-report-backend/internal/repository"
)

// UpsertCoordinator 覆盖写入某周的流水、营收统计和商品结构
type UpsertCoordinator struct {
	transactions *repository.SalesTransactionRepository
	stats        *repository.RevenueStatRepository
	products     *repository.ProductSaleRepository
	chunkSize    int
}

// NewUpsertCoordinator 创建覆盖写入协调器
func NewUpsertCoordinator(
	transactions *repository.SalesTransactionRepository,
	stats *repository.RevenueStatRepository,
	products *repository.ProductSaleRepository,
	chunkSize int,
) *UpsertCoordinator {
	if chunkSize <= 0 {
		chunkSize = repository.DefaultChunkSize
	}
	return &UpsertCoordinator{
		transactions: transactions,
		stats:        stats,
		products:     products,
		chunkSize:    chunkSize,
	}
}

// WithTx 返回绑定到事务的协调器
func (c *UpsertCoordinator) WithTx(tx *gorm.DB) *UpsertCoordinator {
	return &UpsertCoordinator{
		transactions: c.transactions.WithTx(tx),
		stats:        c.stats.WithTx(tx),
		products:     c.products.WithTx(tx),
		chunkSize:    c.chunkSize,
	}
}

// ReplaceTransactions 删除该周旧流水后分块插入新流水
func (c *UpsertCoordinator) ReplaceTransactions(ctx context.Context, reportID int64, txs []*models.SalesTransaction) error {
	if err := c.transactions.ReplaceByReport(ctx, reportID, txs, c.chunkSize); err != nil {
		return fmt.Errorf("replace transactions: %w", err)
	}
	return nil
}

// ApplyAggregate 每个口径一行地写入营收统计，并整体替换商品结构
func (c *UpsertCoordinator) ApplyAggregate(ctx context.Context, reportID int64, agg *WeekAggregate) error {
	for _, stat := range agg.Stats {
		stat.ReportID = reportID
		if err := c.stats.Upsert(ctx, stat); err != nil {
			return fmt.Errorf("upsert %s stat: %w", stat.Category, err)
		}
	}
	if err := c.products.ReplaceByReport(ctx, reportID, agg.ProductSales); err != nil {
		return fmt.Errorf("replace product sales: %w", err)
	}
	return nil
}
