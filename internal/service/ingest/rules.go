package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dumeirei/weekly-report-backend/internal/common/config"
	"github.com/dumeirei/weekly-report-backend/internal/models"
)

// RawStatus 表格中的原始状态
type RawStatus int

const (
	RawUnknown RawStatus = iota
	RawPaid
	RawRefunded
	RawUnopenedRefund
	RawPromoRepayment
	RawRepayment
)

// String 返回原始状态名称
func (s RawStatus) String() string {
	switch s {
	case RawPaid:
		return "paid"
	case RawRefunded:
		return "refunded"
	case RawUnopenedRefund:
		return "unopened_refund"
	case RawPromoRepayment:
		return "promo_repayment"
	case RawRepayment:
		return "repayment"
	default:
		return "unknown"
	}
}

// 原始状态写法，键已去除空白
var defaultStatusCodes = map[string]RawStatus{
	"결":       RawPaid,
	"결제":      RawPaid,
	"환":       RawRefunded,
	"환불":      RawRefunded,
	"미":       RawUnopenedRefund,
	"미개시":     RawUnopenedRefund,
	"미개시환불":   RawUnopenedRefund,
	"프":       RawPromoRepayment,
	"프재":      RawPromoRepayment,
	"프로모션재결제": RawPromoRepayment,
	"재":       RawRepayment,
	"재결제":     RawRepayment,
}

// 销售类型同义写法，键已去除空白
var defaultSalesTypeSynonyms = map[string]string{
	"재결제(프로모션)": "재결제",
	"프로모션재결제":   "재결제",
	"재결제프로모션":   "재결제",
	"재등록":       "재결제",
	"신규(이벤트)":   "신규",
	"신규이벤트":     "신규",
}

const repaymentLabel = "재결제"

var installmentPattern = regexp.MustCompile(`(\d+)\s*회차`)

// Rules 分类规则表
type Rules struct {
	SalesPrefixes     []string
	FlagshipMarker    string
	CountableTypes    map[string]bool
	SplitMarker       string
	UnopenedLabel     string
	OtherVariant      string
	StatusCodes       map[string]RawStatus
	SalesTypeSynonyms map[string]string
	duration          *regexp.Regexp
}

// NewRules 根据导入配置构建规则表
func NewRules(cfg *config.IngestConfig) (*Rules, error) {
	duration, err := regexp.Compile(cfg.DurationPattern)
	if err != nil {
		return nil, fmt.Errorf("compile duration pattern: %w", err)
	}

	countable := make(map[string]bool, len(cfg.CountableTypes))
	for _, t := range cfg.CountableTypes {
		countable[t] = true
	}

	return &Rules{
		SalesPrefixes:     cfg.SalesPrefixes,
		FlagshipMarker:    cfg.FlagshipMarker,
		CountableTypes:    countable,
		SplitMarker:       cfg.SplitMarker,
		UnopenedLabel:     cfg.UnopenedLabel,
		OtherVariant:      cfg.OtherVariant,
		StatusCodes:       defaultStatusCodes,
		SalesTypeSynonyms: defaultSalesTypeSynonyms,
		duration:          duration,
	}, nil
}

// DefaultRules 使用默认导入配置构建规则表
func DefaultRules() *Rules {
	rules, err := NewRules(&config.Default().Ingest)
	if err != nil {
		panic(err)
	}
	return rules
}

// LookupStatus 识别原始状态
func (r *Rules) LookupStatus(code string) RawStatus {
	return r.StatusCodes[normalizeHeader(code)]
}

// SellerType 按姓名前缀判断销售团队归属
func (r *Rules) SellerType(seller string) string {
	name := strings.TrimSpace(seller)
	for _, prefix := range r.SalesPrefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return models.SellerTypeSales
		}
	}
	return models.SellerTypeOperations
}

// ProductType 按商品名判断商品档次
func (r *Rules) ProductType(productName string) string {
	if r.FlagshipMarker != "" && strings.Contains(productName, r.FlagshipMarker) {
		return models.ProductTypeFlagship
	}
	return models.ProductTypeStandard
}

// DurationWeeks 从商品名提取周期，无法提取时返回 nil
func (r *Rules) DurationWeeks(productName string) *int {
	m := r.duration.FindStringSubmatch(productName)
	if len(m) < 2 {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// VariantLabel 商品结构统计的规格标签
func (r *Rules) VariantLabel(durationWeeks *int) string {
	if durationWeeks == nil {
		return r.OtherVariant
	}
	return fmt.Sprintf("%d주", *durationWeeks)
}

// NormalizeSalesType 规范化销售类型
// 分期第 2 期及以后归为分期标签，第 1 期保留基础标签
func (r *Rules) NormalizeSalesType(salesType string, status RawStatus) string {
	label := strings.TrimSpace(salesType)

	if r.SplitMarker != "" && strings.Contains(label, r.SplitMarker) {
		installment := 1
		if m := installmentPattern.FindStringSubmatch(label); len(m) == 2 {
			installment, _ = strconv.Atoi(m[1])
		}
		if installment > 1 {
			return r.SplitMarker
		}
		label = installmentPattern.ReplaceAllString(label, "")
		label = strings.TrimSpace(strings.ReplaceAll(label, r.SplitMarker, ""))
		if label == "" {
			return r.SplitMarker
		}
	}

	if canonical, ok := r.SalesTypeSynonyms[normalizeHeader(label)]; ok {
		label = canonical
	}

	if label == "" && (status == RawRepayment || status == RawPromoRepayment) {
		return repaymentLabel
	}
	return label
}

// IsCountable 销售类型是否计入正式销售件数
func (r *Rules) IsCountable(salesType string) bool {
	return r.CountableTypes[salesType]
}
