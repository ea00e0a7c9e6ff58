package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d, h, m int) time.Time {
	return time.Date(2024, 3, d, h, m, 0, 0, time.UTC)
}

func TestDailySeries(t *testing.T) {
	samples := []Sample{
		{Timestamp: day(2, 9, 0)},
		{Timestamp: day(1, 9, 0)},
		{Timestamp: day(1, 9, 1), Idle: true},
		{Timestamp: day(1, 9, 2), Locked: true, Screenshot: true},
		{Timestamp: day(1, 9, 3)},
	}
	series := DailySeries(samples, time.UTC)
	require.Len(t, series, 2)

	first := series[0]
	assert.Equal(t, "2024-03-01", first.DisplayDate)
	assert.Equal(t, "Fri", first.DayName)
	assert.Equal(t, 4, first.ActivityCount)
	assert.Equal(t, 50.0, first.Productivity)
	assert.Equal(t, 1, first.ScreenshotCount)
	assert.Equal(t, Hours(20), first.ScreenHours)
	assert.Equal(t, Hours(10), first.IdleHours)

	assert.Equal(t, "2024-03-02", series[1].DisplayDate)
	assert.Equal(t, 100.0, series[1].Productivity)
}

func TestDailySeriesUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	series := DailySeries([]Sample{{Timestamp: day(2, 2, 0)}}, loc)
	require.Len(t, series, 1)
	assert.Equal(t, "2024-03-01", series[0].DisplayDate)
}

func TestHourlyTrendAndPeaks(t *testing.T) {
	samples := []Sample{
		{Timestamp: day(1, 10, 0)},
		{Timestamp: day(1, 10, 5), Idle: true},
		{Timestamp: day(1, 9, 0)},
		{Timestamp: day(2, 9, 0), Idle: true},
		{Timestamp: day(2, 11, 0)},
	}
	trend := HourlyTrend(samples, time.UTC)
	require.Len(t, trend, 4)
	assert.Equal(t, 9, trend[0].Hour)
	assert.Equal(t, "09:00", trend[0].DisplayHour)
	assert.Equal(t, 10, trend[1].Hour)
	assert.Equal(t, 2, trend[1].TotalActivities)
	assert.Equal(t, 1, trend[1].IdleActivities)
	assert.Equal(t, 50.0, trend[1].Productivity)
	assert.Equal(t, 0.2, trend[1].EstimatedMinutes)

	peaks := PeakHours(trend)
	require.Len(t, peaks, 3)
	assert.Equal(t, 11, peaks[0].Hour)
	assert.Equal(t, 100.0, peaks[0].AverageProductivity)
	// 09:00 and 10:00 both average 50.
	assert.Equal(t, 9, peaks[1].Hour)
	assert.Equal(t, 10, peaks[2].Hour)
}

func TestPeakHoursTopFive(t *testing.T) {
	var points []HourPoint
	for h := 0; h < 8; h++ {
		points = append(points, HourPoint{Hour: h, Productivity: float64(h * 10)})
	}
	peaks := PeakHours(points)
	require.Len(t, peaks, MaxPeakHours)
	assert.Equal(t, 7, peaks[0].Hour)
	assert.Equal(t, 3, peaks[4].Hour)
}

func TestDaySummaries(t *testing.T) {
	samples := []Sample{
		{Timestamp: day(1, 9, 0), Process: "code"},
		{Timestamp: day(1, 17, 30), Process: "chrome", Idle: true, Locked: true},
		{Timestamp: day(1, 12, 0), Process: "code", Locked: true},
		{Timestamp: day(3, 8, 0)},
	}
	sums := DaySummaries(samples, time.UTC)
	require.Len(t, sums, 2)
	assert.Equal(t, "2024-03-03", sums[0].DisplayDate)

	d := sums[1]
	assert.Equal(t, "Friday", d.DayName)
	assert.Equal(t, 3, d.TotalActivities)
	assert.Equal(t, 2, d.UniqueApps)
	assert.Equal(t, Hours(5), d.IdleHours)
	assert.Equal(t, Hours(10), d.LockedHours)
	assert.Equal(t, 33.3, d.Productivity)
	assert.Equal(t, 8.5, d.WorkDuration)
	assert.Equal(t, day(1, 9, 0), d.FirstActivity)
	assert.Equal(t, day(1, 17, 30), d.LastActivity)
}
