// Package report 按周汇总销售流水并维护周报统计
package report

import (
	"fmt"
	"time"
)

const isoDate = "2006-01-02"

// Week 周一至周日的 UTC 窗口
type Week struct {
	Start time.Time
	End   time.Time
}

// WeekOf 返回日期所在周，周一为起点
func WeekOf(t time.Time) Week {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return Week{Start: start, End: start.AddDate(0, 0, 6)}
}

// WeekOfDate 解析 ISO 日期并返回所在周
func WeekOfDate(date string) (Week, error) {
	t, err := time.Parse(isoDate, date)
	if err != nil {
		return Week{}, fmt.Errorf("parse week date %q: %w", date, err)
	}
	return WeekOf(t), nil
}

// StartDate 周一 ISO 日期
func (w Week) StartDate() string {
	return w.Start.Format(isoDate)
}

// EndDate 周日 ISO 日期
func (w Week) EndDate() string {
	return w.End.Format(isoDate)
}

// Contains 日期是否落在本周
func (w Week) Contains(date string) bool {
	return date >= w.StartDate() && date <= w.EndDate()
}

// WeekOfMonth 月内周序号 ⌈day/7⌉，历史标题依赖此算法
func WeekOfMonth(day int) int {
	return (day + 6) / 7
}

// Title 周报标题，按周一所在年月计算
func (w Week) Title() string {
	return formatTitle(w.Start.Year(), int(w.Start.Month()), WeekOfMonth(w.Start.Day()))
}

// YoYTitle 去年同月同周序号的周报标题
func (w Week) YoYTitle() string {
	return formatTitle(w.Start.Year()-1, int(w.Start.Month()), WeekOfMonth(w.Start.Day()))
}

// MonthWindow 周一所在自然月的首末日
func (w Week) MonthWindow() (string, string) {
	first := time.Date(w.Start.Year(), w.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.Format(isoDate), first.AddDate(0, 1, -1).Format(isoDate)
}

// YearWindow 周一所在自然年的首末日
func (w Week) YearWindow() (string, string) {
	return fmt.Sprintf("%04d-01-01", w.Start.Year()), fmt.Sprintf("%04d-12-31", w.Start.Year())
}

func formatTitle(year, month, n int) string {
	return fmt.Sprintf("%d년 %d월 %d주차", year, month, n)
}
