package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekOf_Boundary(t *testing.T) {
	// 覆盖跨月、跨年和闰年的连续日期
	day := time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 500; i++ {
		d := day.AddDate(0, 0, i)
		w := WeekOf(d)

		assert.Equal(t, time.Monday, w.Start.Weekday(), d)
		assert.False(t, w.Start.After(d), d)
		assert.True(t, d.Sub(w.Start) < 7*24*time.Hour, d)
		assert.Equal(t, w.Start.AddDate(0, 0, 6), w.End, d)
		assert.True(t, w.Contains(d.Format(isoDate)), d)
	}
}

func TestWeekOf_IgnoresTimeOfDay(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	w := WeekOf(time.Date(2025, 3, 9, 23, 59, 0, 0, seoul))
	assert.Equal(t, "2025-03-03", w.StartDate())
	assert.Equal(t, "2025-03-09", w.EndDate())
}

func TestWeekOfDate(t *testing.T) {
	tests := []struct {
		date  string
		start string
		end   string
	}{
		{"2025-03-03", "2025-03-03", "2025-03-09"},
		{"2025-03-09", "2025-03-03", "2025-03-09"},
		{"2025-01-01", "2024-12-30", "2025-01-05"},
		{"2024-02-29", "2024-02-26", "2024-03-03"},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			w, err := WeekOfDate(tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.start, w.StartDate())
			assert.Equal(t, tt.end, w.EndDate())
		})
	}

	_, err := WeekOfDate("2025/03/03")
	assert.Error(t, err)
}

func TestWeek_Titles(t *testing.T) {
	tests := []struct {
		date  string
		title string
		yoy   string
	}{
		{"2025-03-03", "2025년 3월 1주차", "2024년 3월 1주차"},
		{"2025-03-10", "2025년 3월 2주차", "2024년 3월 2주차"},
		{"2025-03-31", "2025년 3월 5주차", "2024년 3월 5주차"},
		// 周一在上一年，标题按周一所在年月
		{"2025-01-01", "2024년 12월 5주차", "2023년 12월 5주차"},
		{"2025-02-14", "2025년 2월 2주차", "2024년 2월 2주차"},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			w, err := WeekOfDate(tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.title, w.Title())
			assert.Equal(t, tt.yoy, w.YoYTitle())
		})
	}
}

func TestWeekOfMonth(t *testing.T) {
	assert.Equal(t, 1, WeekOfMonth(1))
	assert.Equal(t, 1, WeekOfMonth(7))
	assert.Equal(t, 2, WeekOfMonth(8))
	assert.Equal(t, 4, WeekOfMonth(28))
	assert.Equal(t, 5, WeekOfMonth(29))
	assert.Equal(t, 5, WeekOfMonth(31))
}

func TestWeek_Windows(t *testing.T) {
	w, err := WeekOfDate("2024-02-27")
	require.NoError(t, err)

	from, to := w.MonthWindow()
	assert.Equal(t, "2024-02-01", from)
	assert.Equal(t, "2024-02-29", to)

	from, to = w.YearWindow()
	assert.Equal(t, "2024-01-01", from)
	assert.Equal(t, "2024-12-31", to)
}
