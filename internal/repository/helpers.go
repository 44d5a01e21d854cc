package repository

import "fmt"

// dateWindow 将年/月过滤条件转换为 ISO 日期闭区间，未指定年份时返回空串
func dateWindow(year, month *int) (string, string) {
	if year == nil {
		return "", ""
	}
	if month == nil || *month < 1 || *month > 12 {
		return fmt.Sprintf("%04d-01-01", *year), fmt.Sprintf("%04d-12-31", *year)
	}
	return fmt.Sprintf("%04d-%02d-01", *year, *month), fmt.Sprintf("%04d-%02d-31", *year, *month)
}
