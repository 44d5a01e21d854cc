package ingest

import (
	"sort"
	"strings"
)

// 标准字段名
const (
	FieldStatus        = "status"
	FieldPaymentDate   = "payment_date"
	FieldRefundDate    = "refund_date"
	FieldSeller        = "seller"
	FieldBuyer         = "buyer"
	FieldSalesType     = "sales_type"
	FieldProductName   = "product_name"
	FieldListPrice     = "list_price"
	FieldOrderAmount   = "order_amount"
	FieldPoints        = "points"
	FieldCoupon        = "coupon"
	FieldPaymentAmount = "payment_amount"
	FieldRefundAmount  = "refund_amount"
	FieldCategoryCode  = "category_code"
	FieldProductCode   = "product_code"
)

// headerSynonyms 表头写法到标准字段的映射，键已去除空白
var headerSynonyms = map[string]string{
	"상태":     FieldStatus,
	"결제상태":   FieldStatus,
	"구분":     FieldStatus,
	"결제일":    FieldPaymentDate,
	"결제일자":   FieldPaymentDate,
	"결제날짜":   FieldPaymentDate,
	"환불일":    FieldRefundDate,
	"환불일자":   FieldRefundDate,
	"환불날짜":   FieldRefundDate,
	"판매자":    FieldSeller,
	"담당자":    FieldSeller,
	"상담자":    FieldSeller,
	"담당":     FieldSeller,
	"구매자":    FieldBuyer,
	"회원명":    FieldBuyer,
	"학생명":    FieldBuyer,
	"고객명":    FieldBuyer,
	"판매유형":   FieldSalesType,
	"결제유형":   FieldSalesType,
	"유형":     FieldSalesType,
	"매출구분":   FieldSalesType,
	"상품명":    FieldProductName,
	"상품":     FieldProductName,
	"강좌명":    FieldProductName,
	"정가":     FieldListPrice,
	"판매가":    FieldListPrice,
	"주문금액":   FieldOrderAmount,
	"포인트":    FieldPoints,
	"적립금사용":  FieldPoints,
	"쿠폰":     FieldCoupon,
	"쿠폰할인":   FieldCoupon,
	"결제금액":   FieldPaymentAmount,
	"실결제금액":  FieldPaymentAmount,
	"결제액":    FieldPaymentAmount,
	"환불금액":   FieldRefundAmount,
	"환불액":    FieldRefundAmount,
	"카테고리코드": FieldCategoryCode,
	"분류코드":   FieldCategoryCode,
	"상품코드":   FieldProductCode,
}

// normalizeHeader 去除表头中的所有空白
func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(h), "")
}

// CanonicalField 返回表头对应的标准字段名
func CanonicalField(header string) (string, bool) {
	field, ok := headerSynonyms[normalizeHeader(header)]
	return field, ok
}

// HeaderMap 列序号到标准字段名的映射
type HeaderMap map[int]string

// MapHeaders 将表头行映射为标准字段，无法识别的列被忽略
// 同一字段出现多次时以最左侧的列为准
func MapHeaders(row []string) HeaderMap {
	hm := make(HeaderMap)
	seen := make(map[string]bool)
	for i, cell := range row {
		field, ok := CanonicalField(cell)
		if !ok || seen[field] {
			continue
		}
		seen[field] = true
		hm[i] = field
	}
	return hm
}

// Has 是否包含某标准字段
func (h HeaderMap) Has(field string) bool {
	for _, f := range h {
		if f == field {
			return true
		}
	}
	return false
}

// Fields 返回已识别的标准字段（按列顺序）
func (h HeaderMap) Fields() []string {
	idx := make([]int, 0, len(h))
	for i := range h {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	fields := make([]string, 0, len(idx))
	for _, i := range idx {
		fields = append(fields, h[i])
	}
	return fields
}

// Row 按映射提取一行数据，缺失的单元格视为空串
func (h HeaderMap) Row(cells []string) Row {
	row := make(Row, len(h))
	for i, field := range h {
		if i < len(cells) {
			row[field] = strings.TrimSpace(cells[i])
		}
	}
	return row
}

// DetectHeaderRow 返回表头所在行号：第 0 行全空时取第 1 行
func DetectHeaderRow(rows [][]string) int {
	if len(rows) > 1 && isBlankRow(rows[0]) {
		return 1
	}
	return 0
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Row 以标准字段名为键的一行数据
type Row map[string]string

// Get 取字段值，不存在返回空串
func (r Row) Get(field string) string {
	return r[field]
}

// IsBlank 所有字段均为空
func (r Row) IsBlank() bool {
	for _, v := range r {
		if v != "" {
			return false
		}
	}
	return true
}
