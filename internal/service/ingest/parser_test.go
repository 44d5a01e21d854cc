package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/dumeirei/weekly-report-backend/internal/common/errors"
	"github.com/dumeirei/weekly-report-backend/internal/models"
)

// buildWorkbook 生成测试用 xlsx，rows 写入第一个工作表
func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

var weeklyHeader = []interface{}{"상태", "결제일", "환불일", "판매자", "구매자", "판매유형", "상품명", "결제금액", "환불금액"}

func TestReadSheet_Workbook(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		weeklyHeader,
		{"결", 45719, "", "S_김민수", "홍길동", "신규", "왕수학 26주 챌린지", 10000, ""},
	})

	sheet, err := ReadSheet(buf, "week.xlsx")
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "상태", sheet.Rows[0][0])
	assert.Equal(t, "45719", sheet.Rows[1][1])
}

func TestReadSheet_CSV(t *testing.T) {
	data := "\xEF\xBB\xBF상태,결제일,결제금액\n결,2025-03-03,\"10,000\"\n"

	sheet, err := ReadSheet(strings.NewReader(data), "week.CSV")
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "상태", sheet.Rows[0][0])
	assert.Equal(t, "10,000", sheet.Rows[1][2])
}

func TestReadSheet_Unsupported(t *testing.T) {
	_, err := ReadSheet(strings.NewReader("x"), "week.pdf")
	assert.ErrorIs(t, err, errors.ErrUnsupportedFile)

	_, err = ReadSheet(strings.NewReader("not a zip"), "week.xlsx")
	assert.ErrorIs(t, err, errors.ErrUnsupportedFile)

	assert.True(t, IsSupportedFile("a.XLSX"))
	assert.False(t, IsSupportedFile("a.xls"))
}

func TestParser_Parse(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{},
		weeklyHeader,
		{"결", 45719, "", "S_김민수", "홍길동", "신규", "왕수학 26주 챌린지", 10000, ""},
		{"미", "2025-02-20", "2025-03-05", "김운영", "이몽룡", "신규", "1타 특강", "", 150000},
		{"결", "미정", "", "김운영", "성춘향", "신규", "교재", 5000, ""},
		{"취소", "2025-03-03", "", "김운영", "변학도", "신규", "교재", 5000, ""},
		{"재", "2025-03-10", "", "김운영", "향단", "", "수학 8주", 30000, ""},
	})
	sheet, err := ReadSheet(buf, "week.xlsx")
	require.NoError(t, err)

	result, err := NewParser(DefaultRules(), zap.NewNop()).Parse(sheet, "")
	require.NoError(t, err)

	assert.Equal(t, models.UploadFormatWeekly, result.Format)
	assert.Equal(t, "상태", result.Headers[0])
	assert.Equal(t, 5, result.RowCount)
	assert.Equal(t, 3, result.Parsed)
	assert.Equal(t, 1, result.Dropped[DropBadDate])
	assert.Equal(t, 1, result.Dropped[DropUnknownStatus])
	assert.Equal(t, 2, result.DroppedTotal())

	require.Len(t, result.Transactions, 3)

	paid := result.Transactions[0]
	assert.Equal(t, "2025-03-03", paid.PaymentDate)
	assert.Equal(t, int64(10000), paid.FinalRevenue)

	unopened := result.Transactions[1]
	assert.Equal(t, models.TransactionStatusRefunded, unopened.Status)
	assert.Equal(t, "미개시환불", unopened.SalesType)
	assert.Equal(t, "2025-03-05", unopened.PaymentDate)
	assert.Equal(t, int64(150000), unopened.RefundAmount)
	assert.Zero(t, unopened.PaymentAmount)
	assert.Zero(t, unopened.PaymentCountRefined)
	assert.Equal(t, models.ProductTypeFlagship, unopened.ProductType)

	repay := result.Transactions[2]
	assert.Equal(t, models.TransactionStatusPaid, repay.Status)
	assert.Equal(t, "재결제", repay.SalesType)
	assert.Equal(t, 1, repay.PaymentCountRefined)

	// 金额不变式
	for _, tx := range result.Transactions {
		assert.Equal(t, tx.PaymentAmount-tx.RefundAmount, tx.FinalRevenue)
		if tx.Status == models.TransactionStatusRefunded {
			assert.Zero(t, tx.PaymentAmount)
		}
	}
}

func TestParser_MigrationFormatDetection(t *testing.T) {
	sheet := &Sheet{Rows: [][]string{
		{"상태", "결제일", "결제금액", "카테고리 코드", "상품코드"},
		{"결", "2024-05-06", "50,000", "ENG", "P-001"},
	}}

	result, err := NewParser(DefaultRules(), nil).Parse(sheet, "")
	require.NoError(t, err)
	assert.Equal(t, models.UploadFormatMigration, result.Format)
	require.NotNil(t, result.Transactions[0].ProductCode)
	assert.Equal(t, "P-001", *result.Transactions[0].ProductCode)

	result, err = NewParser(DefaultRules(), nil).Parse(sheet, models.UploadFormatWeekly)
	require.NoError(t, err)
	assert.Nil(t, result.Transactions[0].ProductCode)

	_, err = NewParser(DefaultRules(), nil).Parse(sheet, "daily")
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
}

func TestParser_BatchErrors(t *testing.T) {
	parser := NewParser(DefaultRules(), nil)

	t.Run("空表", func(t *testing.T) {
		_, err := parser.Parse(&Sheet{Rows: [][]string{{"", ""}, {}}}, "")
		assert.ErrorIs(t, err, errors.ErrEmptySheet)
	})

	t.Run("无可识别表头", func(t *testing.T) {
		result, err := parser.Parse(&Sheet{Rows: [][]string{{"foo", "bar"}, {"1", "2"}}}, "")
		assert.ErrorIs(t, err, errors.ErrHeaderNotFound)
		assert.Equal(t, []string{"foo", "bar"}, result.Headers)
		assert.Equal(t, 1, result.RowCount)
	})

	t.Run("没有有效流水", func(t *testing.T) {
		result, err := parser.Parse(&Sheet{Rows: [][]string{
			{"상태", "결제일"},
			{"취소", "2025-03-03"},
			{"결", ""},
		}}, "")
		assert.ErrorIs(t, err, errors.ErrNoTransactions)
		assert.Equal(t, 2, result.RowCount)
		assert.Equal(t, 1, result.Dropped[DropUnknownStatus])
		assert.Equal(t, 1, result.Dropped[DropBadDate])
	})
}
