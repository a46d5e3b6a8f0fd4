package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeFrame(t *testing.T) {
	tests := []struct {
		in       string
		expected MTimeFrame
		width    time.Duration
	}{
		{"15M", MTimeFrame{Period: 15, Unit: TimeUnitMinute}, 15 * time.Minute},
		{"1H", MTimeFrame{Period: 1, Unit: TimeUnitHour}, time.Hour},
		{"1d", MTimeFrame{Period: 1, Unit: TimeUnitDay}, 24 * time.Hour},
		{" 4h ", MTimeFrame{Period: 4, Unit: TimeUnitHour}, 4 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tf, err := ParseTimeFrame(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tf)
			assert.Equal(t, tt.width, tf.Duration())
			assert.Equal(t, tt.width.Milliseconds(), tf.Millis())
		})
	}
}

func TestParseTimeFrameRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "M", "15", "0M", "-1H", "15W", "xH"} {
		_, err := ParseTimeFrame(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestTimeFrameString(t *testing.T) {
	tf, err := ParseTimeFrame("15m")
	require.NoError(t, err)
	assert.Equal(t, "15M", tf.String())
	assert.Equal(t, int64(900), tf.Seconds())
}

func TestHistoricalTimeFrames(t *testing.T) {
	for _, tf := range SupportedHistoricalTimeFrames() {
		assert.True(t, tf.IsSupported(), string(tf))
		assert.Positive(t, tf.PeriodSeconds(), string(tf))
	}

	assert.Equal(t, int64(10), HistoricalTenSeconds.PeriodSeconds())
	assert.Equal(t, int64(3600), HistoricalHour.PeriodSeconds())
	assert.False(t, HistoricalTick.IsSupported())
	assert.False(t, HistoricalTimeFrame("5min").IsSupported())
	assert.Zero(t, HistoricalTimeFrame("5min").PeriodSeconds())
}

func TestCandleIsConsistent(t *testing.T) {
	c := MCandle{BidOpen: 1, BidHigh: 2, BidLow: 0.5, BidClose: 1.5, AskOpen: 1.1, AskHigh: 2.1, AskLow: 0.6, AskClose: 1.6}
	assert.True(t, c.IsConsistent())

	c.BidClose = 3
	assert.False(t, c.IsConsistent())
}
