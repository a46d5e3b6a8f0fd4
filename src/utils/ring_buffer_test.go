package utils

import (
	"testing"

	"candle-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candleAt(ts int64, close float64) models.MCandle {
	return models.MCandle{Instrument: "EUR/USD", Period: 60, Timestamp: ts, BidClose: close}
}

func TestRingBufferReplacesOpenCandle(t *testing.T) {
	rb := NewRingBuffer(5)
	require.True(t, rb.Append(candleAt(0, 1)))
	require.True(t, rb.Append(candleAt(60, 2)))

	require.True(t, rb.Append(candleAt(60, 3)))
	assert.Equal(t, 2, rb.Size())

	last, ok := rb.Last()
	require.True(t, ok)
	assert.Equal(t, 3.0, last.BidClose)
}

func TestRingBufferEvictsOldest(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := int64(0); i < 3; i++ {
		rb.Append(candleAt(i, float64(i)))
		assert.Equal(t, int(i)+1, rb.Size())
	}

	rb.Append(candleAt(3, 3))
	rb.Append(candleAt(4, 4))
	assert.Equal(t, 3, rb.Size())

	snap := rb.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []int64{2, 3, 4}, []int64{snap[0].Timestamp, snap[1].Timestamp, snap[2].Timestamp})
}

func TestRingBufferRejectsOlderCandle(t *testing.T) {
	rb := NewRingBuffer(3)
	rb.Append(candleAt(10, 1))

	assert.False(t, rb.Append(candleAt(5, 2)))
	assert.Equal(t, 1, rb.Size())
}

func TestRingBufferSeed(t *testing.T) {
	rb := NewRingBuffer(3)
	rb.Append(candleAt(100, 9))

	rb.Seed([]models.MCandle{candleAt(3, 3), candleAt(1, 1), candleAt(2, 2), candleAt(4, 4), candleAt(4, 5)})

	snap := rb.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, int64(2), snap[0].Timestamp)
	assert.Equal(t, int64(4), snap[2].Timestamp)
	assert.Equal(t, 5.0, snap[2].BidClose, "later duplicate wins")
}

func TestRingBufferSnapshotIsIndependent(t *testing.T) {
	rb := NewRingBuffer(3)
	rb.Append(candleAt(1, 1))

	snap := rb.Snapshot()
	snap[0].BidClose = 42

	last, _ := rb.Last()
	assert.Equal(t, 1.0, last.BidClose)
}

func TestRingBufferGetLatest(t *testing.T) {
	rb := NewRingBuffer(4)
	for i := int64(0); i < 6; i++ {
		rb.Append(candleAt(i, float64(i)))
	}

	latest := rb.GetLatest(2)
	require.Len(t, latest, 2)
	assert.Equal(t, int64(4), latest[0].Timestamp)
	assert.Equal(t, int64(5), latest[1].Timestamp)
	assert.Empty(t, rb.GetLatest(0))

	rb.Clear()
	assert.Zero(t, rb.Size())
	_, ok := rb.Last()
	assert.False(t, ok)
}
