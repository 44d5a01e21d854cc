package ingest

import (
	"strings"
	"time"

	"github.com/dumeirei/weekly-report-backend/internal/models"
)

// Builder 将分类后的行组装为销售流水
type Builder struct {
	format string
}

// NewBuilder 创建流水组装器，format 决定是否填充分类/商品编码
func NewBuilder(format string) *Builder {
	return &Builder{format: format}
}

// Build 组装销售流水
// 付款行只有付款金额，退款行只有退款金额；退款金额列为空时取付款金额列
func (b *Builder) Build(c *ClassifiedRow) *models.SalesTransaction {
	row := c.Row
	points := ParseAmount(row.Get(FieldPoints))
	coupon := ParseAmount(row.Get(FieldCoupon))

	var payment, refund int64
	if c.IsRefund() {
		refund = ParseAmount(row.Get(FieldRefundAmount))
		if refund == 0 {
			refund = ParseAmount(row.Get(FieldPaymentAmount))
		}
	} else {
		payment = ParseAmount(row.Get(FieldPaymentAmount))
	}

	// 有效日期已通过 ParseDate 校验
	date, _ := time.Parse(isoDateLayout, c.EffectiveDate)

	tx := &models.SalesTransaction{
		PaymentDate:          c.EffectiveDate,
		Year:                 date.Year(),
		Month:                int(date.Month()),
		YearMonth:            date.Format("2006-01"),
		YM:                   date.Format("0601"),
		Seller:               row.Get(FieldSeller),
		SellerType:           c.SellerType,
		Buyer:                row.Get(FieldBuyer),
		Status:               c.Status,
		SalesType:            c.SalesType,
		ProductName:          row.Get(FieldProductName),
		ProductType:          c.ProductType,
		DurationWeeks:        c.DurationWeeks,
		ListPrice:            ParseAmount(row.Get(FieldListPrice)),
		OrderAmount:          ParseAmount(row.Get(FieldOrderAmount)),
		Points:               points,
		Coupon:               coupon,
		Discount:             points + coupon,
		PaymentAmount:        payment,
		RefundAmount:         refund,
		FinalRevenue:         payment - refund,
		Quantity:             1,
		PaymentCountOriginal: 1,
		PaymentCountRefined:  c.PaymentCountRefined,
	}

	if b.format == models.UploadFormatMigration {
		tx.CategoryCode = optional(row.Get(FieldCategoryCode))
		tx.ProductCode = optional(row.Get(FieldProductCode))
	}
	return tx
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
