// Package utils 提供通用工具函数
package utils

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// batchSuffixLen 批次号随机后缀长度
const batchSuffixLen = 6

// GenerateBatchNo 生成上传批次号
// 格式: 前缀 + 年月日时分秒(UTC) + 6位大写十六进制
func GenerateBatchNo(prefix string) string {
	return GenerateBatchNoAt(prefix, time.Now())
}

// GenerateBatchNoAt 以指定时间生成批次号
func GenerateBatchNoAt(prefix string, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:batchSuffixLen]
	return prefix + at.UTC().Format("20060102150405") + strings.ToUpper(suffix)
}

// StringPtr 返回字符串指针，空串返回 nil
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Pagination 分页参数
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// 分页默认值
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// GetOffset 获取偏移量
func (p *Pagination) GetOffset() int {
	return (p.Page - 1) * p.PageSize
}

// GetLimit 获取限制数
func (p *Pagination) GetLimit() int {
	return p.PageSize
}

// Normalize 规范化分页参数
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.PageSize < 1:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
}
