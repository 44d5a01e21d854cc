package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dumeirei/weekly-report-backend/internal/common/errors"
)

// Sheet 表格第一个工作表的全部单元格
type Sheet struct {
	Name string
	Rows [][]string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IsSupportedFile 是否为支持的表格文件
func IsSupportedFile(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	default:
		return false
	}
}

// ReadSheet 读取上传文件的第一个工作表
func ReadSheet(r io.Reader, fileName string) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(r)
	case ".csv":
		return readCSV(r)
	default:
		return nil, errors.ErrUnsupportedFile.WithMessage(fmt.Sprintf("unsupported file type: %s", fileName))
	}
}

// readWorkbook 读取原始单元格值，日期保留为序列号
func readWorkbook(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.ErrUnsupportedFile.WithError(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ErrEmptySheet
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.ErrUnsupportedFile.WithError(err)
	}
	return &Sheet{Name: sheets[0], Rows: rows}, nil
}

func readCSV(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.ErrUnsupportedFile.WithError(err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.ErrUnsupportedFile.WithError(err)
	}
	return &Sheet{Name: "csv", Rows: rows}, nil
}
