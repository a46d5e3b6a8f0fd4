package utils

import (
	"testing"

	"candle-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionStorePerInstrument(t *testing.T) {
	rs := NewRetentionStore(2, nil)

	rs.Append(models.MCandle{Instrument: "EUR/USD", Timestamp: 1})
	rs.Append(models.MCandle{Instrument: "EUR/USD", Timestamp: 2})
	rs.Append(models.MCandle{Instrument: "EUR/USD", Timestamp: 3})
	rs.Append(models.MCandle{Instrument: "USD/JPY", Timestamp: 1})

	assert.Equal(t, map[string]int{"EUR/USD": 2, "USD/JPY": 1}, rs.Sizes())
	assert.Equal(t, []string{"EUR/USD", "USD/JPY"}, rs.Instruments())

	snap := rs.Snapshot("EUR/USD")
	require.Len(t, snap, 2)
	assert.Equal(t, int64(2), snap[0].Timestamp)
}

func TestRetentionStoreSeedAndDrop(t *testing.T) {
	rs := NewRetentionStore(0, nil)
	assert.Equal(t, DefaultRetention, rs.Retention)

	rs.Seed("EUR/USD", []models.MCandle{{Timestamp: 2}, {Timestamp: 1}})
	assert.True(t, rs.HasInstrument("EUR/USD"))
	assert.Len(t, rs.Snapshot("EUR/USD"), 2)

	rs.Drop("EUR/USD")
	assert.False(t, rs.HasInstrument("EUR/USD"))
	assert.Nil(t, rs.Snapshot("EUR/USD"))
}

func TestFineBackfillCount(t *testing.T) {
	assert.Equal(t, 5000, FineBackfillCount(6000))
	assert.Equal(t, 5000, FineBackfillCount(20000))
	assert.Equal(t, 1000, FineBackfillCount(2000))
	assert.Equal(t, 1, FineBackfillCount(500))
}
