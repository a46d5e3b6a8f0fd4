package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func utc(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestFXWeekendWindow(t *testing.T) {
	cal := GetCalendar("fx")

	// 2024-01-05 is a Friday
	assert.True(t, cal.IsOpenOnMinute(utc(2024, 1, 5, 20, 59)))
	assert.False(t, cal.IsOpenOnMinute(utc(2024, 1, 5, 21, 0)))
	assert.False(t, cal.IsOpenOnMinute(utc(2024, 1, 6, 12, 0)))
	assert.False(t, cal.IsOpenOnMinute(utc(2024, 1, 7, 20, 59)))
	assert.True(t, cal.IsOpenOnMinute(utc(2024, 1, 7, 21, 0)))
	assert.True(t, cal.IsOpenOnMinute(utc(2024, 1, 9, 3, 0)))
}

func TestFXNextOpen(t *testing.T) {
	cal := GetCalendar("")
	reopen := utc(2024, 1, 7, 21, 0)

	assert.Equal(t, reopen, cal.NextOpen(utc(2024, 1, 5, 22, 0)))
	assert.Equal(t, reopen, cal.NextOpen(utc(2024, 1, 6, 0, 0)))
	assert.Equal(t, reopen, cal.NextOpen(utc(2024, 1, 7, 9, 30)))

	open := utc(2024, 1, 8, 10, 0)
	assert.Equal(t, open, cal.NextOpen(open))
}

func TestFallbackCalendarHours(t *testing.T) {
	cal := &TradingCalendar{Name: "test", Fallback: true, Timezone: time.UTC}

	assert.True(t, cal.IsOpenOnMinute(utc(2024, 1, 8, 9, 30)))
	assert.False(t, cal.IsOpenOnMinute(utc(2024, 1, 8, 9, 29)))
	assert.False(t, cal.IsOpenOnMinute(utc(2024, 1, 8, 16, 0)))
	assert.False(t, cal.IsTradingDay(utc(2024, 1, 6, 12, 0)))

	assert.Equal(t, utc(2024, 1, 8, 9, 30), cal.NextOpen(utc(2024, 1, 6, 12, 0)))
}

func TestMarketSchedulerStatus(t *testing.T) {
	ms := NewMarketScheduler("fx", nil)

	ms.Now = func() time.Time { return utc(2024, 1, 6, 12, 0) }
	open, reopens := ms.Status()
	assert.False(t, open)
	assert.Equal(t, utc(2024, 1, 7, 21, 0), reopens)

	ms.Now = func() time.Time { return utc(2024, 1, 10, 12, 0) }
	assert.True(t, ms.IsOpen())
}
