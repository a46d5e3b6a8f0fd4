package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Display time frames ("15M", "1H", "1D")
// -----------------------------------------------------------------------------

type TimeUnit string

const (
	TimeUnitMinute TimeUnit = "M"
	TimeUnitHour   TimeUnit = "H"
	TimeUnitDay    TimeUnit = "D"
)

var unitDurations = map[TimeUnit]time.Duration{
	TimeUnitMinute: time.Minute,
	TimeUnitHour:   time.Hour,
	TimeUnitDay:    24 * time.Hour,
}

// MTimeFrame drives both backfill granularity and resampler bucket width.
type MTimeFrame struct {
	Period int      `json:"period"`
	Unit   TimeUnit `json:"unit"`
}

// ParseTimeFrame parses the compact form, e.g. "15M".
func ParseTimeFrame(s string) (MTimeFrame, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if len(s) < 2 {
		return MTimeFrame{}, fmt.Errorf("invalid time frame %q", s)
	}

	unit := TimeUnit(s[len(s)-1:])
	if _, ok := unitDurations[unit]; !ok {
		return MTimeFrame{}, fmt.Errorf("invalid time frame unit in %q (expected M, H or D)", s)
	}

	period, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || period <= 0 {
		return MTimeFrame{}, fmt.Errorf("invalid time frame period in %q", s)
	}

	return MTimeFrame{Period: period, Unit: unit}, nil
}

// Duration returns the bucket width.
func (tf MTimeFrame) Duration() time.Duration {
	return time.Duration(tf.Period) * unitDurations[tf.Unit]
}

// Millis returns the bucket width in milliseconds.
func (tf MTimeFrame) Millis() int64 {
	return tf.Duration().Milliseconds()
}

// Seconds returns the bucket width in seconds.
func (tf MTimeFrame) Seconds() int64 {
	return int64(tf.Duration() / time.Second)
}

func (tf MTimeFrame) String() string {
	return fmt.Sprintf("%d%s", tf.Period, tf.Unit)
}

// -----------------------------------------------------------------------------
// Historical feed granularities
// -----------------------------------------------------------------------------

// HistoricalTimeFrame is one of the granularities the historical feed serves.
type HistoricalTimeFrame string

const (
	HistoricalTenSeconds HistoricalTimeFrame = "10sec"
	HistoricalMinute     HistoricalTimeFrame = "1min"
	HistoricalTenMinutes HistoricalTimeFrame = "10m"
	HistoricalHour       HistoricalTimeFrame = "1hour"
	HistoricalDay        HistoricalTimeFrame = "1day"
	HistoricalDayEET     HistoricalTimeFrame = "1day_eet"
	HistoricalTick       HistoricalTimeFrame = "tick"
)

var historicalPeriods = map[HistoricalTimeFrame]int64{
	HistoricalTenSeconds: 10,
	HistoricalMinute:     60,
	HistoricalTenMinutes: 600,
	HistoricalHour:       3600,
	HistoricalDay:        86400,
	HistoricalDayEET:     86400,
}

// SupportedHistoricalTimeFrames lists the candle granularities accepted by /historical.
func SupportedHistoricalTimeFrames() []HistoricalTimeFrame {
	return []HistoricalTimeFrame{
		HistoricalTenSeconds,
		HistoricalMinute,
		HistoricalTenMinutes,
		HistoricalHour,
		HistoricalDay,
		HistoricalDayEET,
	}
}

// IsSupported reports whether tf is a candle granularity (ticks excluded).
func (tf HistoricalTimeFrame) IsSupported() bool {
	_, ok := historicalPeriods[tf]
	return ok
}

// PeriodSeconds returns the candle period for tf, 0 for unsupported values.
func (tf HistoricalTimeFrame) PeriodSeconds() int64 {
	return historicalPeriods[tf]
}
