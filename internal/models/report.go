// Package models 定义数据模型
package models

import "time"

// WeeklyReport 周报模型，每个周一至周日窗口一条
type WeeklyReport struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"type:varchar(50);not null;index" json:"title"`
	StartDate string    `gorm:"type:varchar(10);not null;uniqueIndex:uk_weekly_reports_range,priority:1" json:"start_date"`
	EndDate   string    `gorm:"type:varchar(10);not null;uniqueIndex:uk_weekly_reports_range,priority:2" json:"end_date"`
	Status    string    `gorm:"type:varchar(20);not null;default:draft" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (WeeklyReport) TableName() string {
	return "weekly_reports"
}

// ReportStatus 周报状态
const (
	ReportStatusDraft     = "draft"     // 草稿
	ReportStatusPublished = "published" // 已发布
)

// IsValidReportStatus 校验周报状态
func IsValidReportStatus(status string) bool {
	return status == ReportStatusDraft || status == ReportStatusPublished
}

// SalesTransaction 销售流水，一行对应一次付款或退款
type SalesTransaction struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReportID             *int64    `gorm:"index" json:"report_id,omitempty"`
	PaymentDate          string    `gorm:"type:varchar(10);not null;index" json:"payment_date"`
	Year                 int       `gorm:"not null" json:"year"`
	Month                int       `gorm:"not null" json:"month"`
	YearMonth            string    `gorm:"type:varchar(7);not null;index" json:"year_month"`
	YM                   string    `gorm:"column:ym;type:varchar(4);not null" json:"ym"`
	Seller               string    `gorm:"type:varchar(100)" json:"seller"`
	SellerType           string    `gorm:"type:varchar(20);not null" json:"seller_type"`
	Buyer                string    `gorm:"type:varchar(100)" json:"buyer"`
	Status               string    `gorm:"type:varchar(4);not null;index" json:"status"`
	SalesType            string    `gorm:"type:varchar(50)" json:"sales_type"`
	ProductName          string    `gorm:"type:varchar(255)" json:"product_name"`
	ProductType          string    `gorm:"type:varchar(20);not null" json:"product_type"`
	DurationWeeks        *int      `json:"duration_weeks,omitempty"`
	CategoryCode         *string   `gorm:"type:varchar(50)" json:"category_code,omitempty"`
	ProductCode          *string   `gorm:"type:varchar(50)" json:"product_code,omitempty"`
	ListPrice            int64     `gorm:"not null;default:0" json:"list_price"`
	OrderAmount          int64     `gorm:"not null;default:0" json:"order_amount"`
	Points               int64     `gorm:"not null;default:0" json:"points"`
	Coupon               int64     `gorm:"not null;default:0" json:"coupon"`
	Discount             int64     `gorm:"not null;default:0" json:"discount"`
	PaymentAmount        int64     `gorm:"not null;default:0" json:"payment_amount"`
	RefundAmount         int64     `gorm:"not null;default:0" json:"refund_amount"`
	FinalRevenue         int64     `gorm:"not null;default:0" json:"final_revenue"`
	Quantity             int       `gorm:"not null;default:1" json:"quantity"`
	PaymentCountOriginal int       `gorm:"not null;default:1" json:"payment_count_original"`
	PaymentCountRefined  int       `gorm:"not null;default:0" json:"payment_count_refined"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 表名
func (SalesTransaction) TableName() string {
	return "sales_transactions"
}

// 流水状态
const (
	TransactionStatusPaid     = "결" // 결제
	TransactionStatusRefunded = "환" // 환불
)

// 销售人员归属
const (
	SellerTypeSales      = "Sales"
	SellerTypeOperations = "Operations"
)

// 商品档次
const (
	ProductTypeFlagship = "flagship"
	ProductTypeStandard = "standard"
)

// RevenueStat 周营收统计，每个周报每个口径一条
type RevenueStat struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReportID         int64     `gorm:"not null;uniqueIndex:uk_revenue_stats_category,priority:1" json:"report_id"`
	Category         string    `gorm:"type:varchar(20);not null;uniqueIndex:uk_revenue_stats_category,priority:2" json:"category"`
	WeeklyAmt        int64     `gorm:"not null;default:0" json:"weekly_amt"`
	PrevWeeklyAmt    int64     `gorm:"not null;default:0" json:"prev_weekly_amt"`
	YoYAmt           int64     `gorm:"column:yoy_amt;not null;default:0" json:"yoy_amt"`
	MonthlyCumAmt    int64     `gorm:"not null;default:0" json:"monthly_cum_amt"`
	MonthlyRefundAmt int64     `gorm:"not null;default:0" json:"monthly_refund_amt"`
	YearlyCumAmt     int64     `gorm:"not null;default:0" json:"yearly_cum_amt"`
	Note             *string   `gorm:"type:text" json:"note,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (RevenueStat) TableName() string {
	return "edu_revenue_stats"
}

// 营收口径
const (
	RevenueCategoryGross = "gross"
	RevenueCategoryNet   = "net"
)

// ProductSale 商品结构统计
type ProductSale struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReportID       int64     `gorm:"not null;index" json:"report_id"`
	ProductGroup   string    `gorm:"type:varchar(20);not null" json:"product_group"`
	ProductVariant string    `gorm:"type:varchar(20);not null" json:"product_variant"`
	SalesCount     int       `gorm:"not null;default:0" json:"sales_count"`
	SalesShare     float64   `gorm:"type:decimal(5,2);not null;default:0" json:"sales_share"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 表名
func (ProductSale) TableName() string {
	return "edu_product_sales"
}
