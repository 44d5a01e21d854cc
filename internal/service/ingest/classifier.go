package ingest

import (
	"fmt"

	"github.com/dumeirei/weekly-report-backend/internal/models"
)

// 行被丢弃的原因
const (
	DropUnknownStatus = "unknown_status"
	DropBadDate       = "bad_date"
	DropEmptyRow      = "empty_row"
	DropOutOfWindow   = "out_of_window"
)

// DropError 行级错误，只导致该行被跳过
type DropError struct {
	Reason string
	Err    error
}

// Error 实现 error 接口
func (e *DropError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row dropped (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("row dropped (%s)", e.Reason)
}

// Unwrap 实现 errors.Unwrap
func (e *DropError) Unwrap() error {
	return e.Err
}

// ClassifiedRow 分类后的行
type ClassifiedRow struct {
	Row                 Row
	RawStatus           RawStatus
	Status              string
	SalesType           string
	EffectiveDate       string
	SellerType          string
	ProductType         string
	DurationWeeks       *int
	PaymentCountRefined int
}

// IsRefund 是否退款行
func (c *ClassifiedRow) IsRefund() bool {
	return c.Status == models.TransactionStatusRefunded
}

// Classifier 行分类器
type Classifier struct {
	rules *Rules
}

// NewClassifier 创建行分类器
func NewClassifier(rules *Rules) *Classifier {
	return &Classifier{rules: rules}
}

// Classify 判定状态、销售类型、有效日期及派生分类
func (c *Classifier) Classify(row Row) (*ClassifiedRow, error) {
	if row.IsBlank() {
		return nil, &DropError{Reason: DropEmptyRow}
	}

	raw := c.rules.LookupStatus(row.Get(FieldStatus))
	var status string
	switch raw {
	case RawPaid, RawPromoRepayment, RawRepayment:
		status = models.TransactionStatusPaid
	case RawRefunded, RawUnopenedRefund:
		status = models.TransactionStatusRefunded
	default:
		return nil, &DropError{
			Reason: DropUnknownStatus,
			Err:    fmt.Errorf("status %q", row.Get(FieldStatus)),
		}
	}

	salesType := c.rules.NormalizeSalesType(row.Get(FieldSalesType), raw)
	if raw == RawUnopenedRefund {
		salesType = c.rules.UnopenedLabel
	}

	// 退款以退款日为准，缺失时退回付款日
	dateCell := row.Get(FieldPaymentDate)
	if status == models.TransactionStatusRefunded && row.Get(FieldRefundDate) != "" {
		dateCell = row.Get(FieldRefundDate)
	}
	effective, err := ParseDate(dateCell)
	if err != nil {
		return nil, &DropError{Reason: DropBadDate, Err: err}
	}

	refined := 0
	if status == models.TransactionStatusPaid && c.rules.IsCountable(salesType) {
		refined = 1
	}

	productName := row.Get(FieldProductName)
	return &ClassifiedRow{
		Row:                 row,
		RawStatus:           raw,
		Status:              status,
		SalesType:           salesType,
		EffectiveDate:       effective,
		SellerType:          c.rules.SellerType(row.Get(FieldSeller)),
		ProductType:         c.rules.ProductType(productName),
		DurationWeeks:       c.rules.DurationWeeks(productName),
		PaymentCountRefined: refined,
	}, nil
}
