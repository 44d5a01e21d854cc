// Package ingest 将销售流水表格解析为标准流水记录
package ingest

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateParseError 日期单元格无法解析
type DateParseError struct {
	Value string
}

// Error 实现 error 接口
func (e *DateParseError) Error() string {
	return fmt.Sprintf("unparseable date value %q", e.Value)
}

const isoDateLayout = "2006-01-02"

// 表格日期序列号的起点
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// 序列号上限对应 9999-12-31
const maxDateSerial = 2958465

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// 非 ISO 日期字符串依次尝试的格式
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"2006/01/02 15:04:05",
	"2006.01.02",
	"2006.1.2",
	"20060102",
	"2006년 1월 2일",
	"01-02-06",
	"1/2/06",
	"1/2/2006",
}

// 金额单元格中需要剔除的字符
var numberReplacer = strings.NewReplacer(",", "", "₩", "", "원", "", " ", "", " ", "")

// parseDecimal 解析数值单元格，空白、占位符和无法解析的值一律视为 0
func parseDecimal(value string) decimal.Decimal {
	s := strings.TrimSpace(value)
	if s == "" || strings.Trim(s, "-") == "" {
		return decimal.Zero
	}
	s = numberReplacer.Replace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		d = d.Neg()
	}
	return d
}

// ParseNumber 将单元格转换为数值，不会返回错误
func ParseNumber(value string) float64 {
	return parseDecimal(value).InexactFloat64()
}

// ParseAmount 将金额单元格四舍五入为整数（韩元无小数位），负数取绝对值
func ParseAmount(value string) int64 {
	return parseDecimal(value).Abs().Round(0).IntPart()
}

// ParseDate 将单元格转换为 ISO 日期 YYYY-MM-DD
// 支持 ISO 字符串、表格日期序列号和常见日期写法
func ParseDate(value string) (string, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return "", &DateParseError{Value: value}
	}

	if isoDatePattern.MatchString(s) {
		if _, err := time.Parse(isoDateLayout, s); err != nil {
			return "", &DateParseError{Value: value}
		}
		return s, nil
	}

	if isDateSerial(s) {
		serial, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return fromSerial(serial, value)
		}
	}

	normalized := strings.TrimSuffix(strings.ReplaceAll(s, ". ", "."), ".")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t.Format(isoDateLayout), nil
		}
	}

	// 带时间部分的写法只取日期部分再试一次
	if idx := strings.IndexAny(normalized, " T"); idx > 0 {
		head := normalized[:idx]
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, head); err == nil {
				return t.Format(isoDateLayout), nil
			}
		}
	}

	return "", &DateParseError{Value: value}
}

// isDateSerial 判断单元格是否为日期序列号，如 45719 或 45719.5
// 8 位纯数字按 YYYYMMDD 处理
func isDateSerial(s string) bool {
	if _, err := strconv.Atoi(s); err == nil {
		return len(s) <= 7
	}
	parts := strings.Split(s, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			return false
		}
	}
	// 区分 2025.3 这类点分日期
	return len(parts[0]) != 4 || len(parts[1]) > 2
}

func fromSerial(serial float64, raw string) (string, error) {
	days := math.Floor(serial)
	if days < 1 || days > maxDateSerial {
		return "", &DateParseError{Value: raw}
	}
	return serialEpoch.AddDate(0, 0, int(days)).Format(isoDateLayout), nil
}
