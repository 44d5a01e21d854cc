package ingest

import (
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dumeirei/weekly-report-backend/internal/common/errors"
	"github.com/dumeirei/weekly-report-backend/internal/common/logger"
	"github.com/dumeirei/weekly-report-backend/internal/models"
)

// ParseResult 解析结果及诊断信息
type ParseResult struct {
	Format       string                     `json:"format"`
	Headers      []string                   `json:"headers"`
	Fields       []string                   `json:"fields"`
	RowCount     int                        `json:"rowCount"`
	Parsed       int                        `json:"parsed"`
	Dropped      map[string]int             `json:"dropped"`
	Transactions []*models.SalesTransaction `json:"-"`
}

// DroppedTotal 被丢弃的行数
func (r *ParseResult) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// Drop 记录一次丢弃
func (r *ParseResult) Drop(reason string) {
	r.Dropped[reason]++
}

// Parser 表格解析器
type Parser struct {
	classifier *Classifier
	logger     *zap.Logger
}

// NewParser 创建表格解析器
func NewParser(rules *Rules, log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{
		classifier: NewClassifier(rules),
		logger:     log.Named("ingest"),
	}
}

// DetectFormat 未指定格式时，含分类/商品编码列的表格视为迁移格式
func DetectFormat(requested string, headers HeaderMap) (string, error) {
	switch requested {
	case models.UploadFormatWeekly, models.UploadFormatMigration:
		return requested, nil
	case "":
		if headers.Has(FieldCategoryCode) || headers.Has(FieldProductCode) {
			return models.UploadFormatMigration, nil
		}
		return models.UploadFormatWeekly, nil
	default:
		return "", errors.ErrInvalidParams.WithMessage(fmt.Sprintf("unknown format: %s", requested))
	}
}

// Parse 解析工作表
// 出错时仍尽量返回带诊断信息的结果
func (p *Parser) Parse(sheet *Sheet, format string) (*ParseResult, error) {
	result := &ParseResult{Dropped: make(map[string]int)}

	if sheet == nil || len(sheet.Rows) == 0 || allBlank(sheet.Rows) {
		return result, errors.ErrEmptySheet
	}

	headerIdx := DetectHeaderRow(sheet.Rows)
	headerRow := sheet.Rows[headerIdx]
	headers := MapHeaders(headerRow)
	result.Headers = headerRow
	result.Fields = headers.Fields()
	result.RowCount = len(sheet.Rows) - headerIdx - 1

	if len(headers) == 0 {
		return result, errors.ErrHeaderNotFound
	}

	resolved, err := DetectFormat(format, headers)
	if err != nil {
		return result, err
	}
	result.Format = resolved
	builder := NewBuilder(resolved)

	for i, cells := range sheet.Rows[headerIdx+1:] {
		classified, err := p.classifier.Classify(headers.Row(cells))
		if err != nil {
			var dropErr *DropError
			if stderrors.As(err, &dropErr) {
				result.Drop(dropErr.Reason)
				p.logger.Debug("row dropped",
					logger.RowIndex(headerIdx+2+i),
					logger.String("reason", dropErr.Reason),
					logger.Err(dropErr.Err),
				)
				continue
			}
			return result, err
		}
		result.Transactions = append(result.Transactions, builder.Build(classified))
	}

	result.Parsed = len(result.Transactions)
	if result.Parsed == 0 {
		return result, errors.ErrNoTransactions
	}
	return result, nil
}

func allBlank(rows [][]string) bool {
	for _, r := range rows {
		if !isBlankRow(r) {
			return false
		}
	}
	return true
}
