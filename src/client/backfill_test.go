package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"candle-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyCall struct {
	instruments []string
	tf          models.HistoricalTimeFrame
	end         int64
	count       int
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls []historyCall
	data  map[models.HistoricalTimeFrame]map[string][]models.MCandle
	err   error
}

func (f *fakeFetcher) Historical(ctx context.Context, instruments []string, tf models.HistoricalTimeFrame, end int64, count int) (map[string][]models.MCandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, historyCall{instruments: instruments, tf: tf, end: end, count: count})
	if f.err != nil {
		return nil, f.err
	}
	return f.data[tf], nil
}

func candleAt(instrument string, ts int64, price float64) models.MCandle {
	return models.MCandle{Instrument: instrument, Timestamp: ts, BidClose: price, AskClose: price}
}

func TestMergeBackfillFineWins(t *testing.T) {
	coarse := []models.MCandle{candleAt("EUR/USD", 7_200_000, 1), candleAt("EUR/USD", 3_600_000, 1)}
	fine := []models.MCandle{candleAt("EUR/USD", 7_260_000, 2), candleAt("EUR/USD", 7_200_000, 2)}

	merged := MergeBackfill(coarse, fine)

	require.Len(t, merged, 3)
	for i := 1; i < len(merged); i++ {
		assert.Less(t, merged[i-1].Timestamp, merged[i].Timestamp)
	}
	assert.Equal(t, 1.0, merged[0].BidClose)
	assert.Equal(t, 2.0, merged[1].BidClose)
	assert.Empty(t, MergeBackfill(nil, nil))
}

func TestBackfillRequestsTwoGranularities(t *testing.T) {
	fetcher := &fakeFetcher{data: map[models.HistoricalTimeFrame]map[string][]models.MCandle{
		models.HistoricalMinute: {"EUR/USD": {candleAt("EUR/USD", 7_260_000, 2)}},
		models.HistoricalHour:   {"EUR/USD": {candleAt("EUR/USD", 3_600_000, 1)}},
	}}
	now := time.UnixMilli(600_030_000)

	series, err := Backfill(context.Background(), fetcher, []string{"EUR/USD", "GBP/USD"}, 6000, now)
	require.NoError(t, err)

	require.Len(t, fetcher.calls, 2)
	fine, coarse := fetcher.calls[0], fetcher.calls[1]
	assert.Equal(t, models.HistoricalMinute, fine.tf)
	assert.Zero(t, fine.end)
	assert.Equal(t, 5000, fine.count)

	assert.Equal(t, models.HistoricalHour, coarse.tf)
	assert.Equal(t, int64(600_000_000-5000*60_000), coarse.end)
	assert.Equal(t, 1000, coarse.count)

	assert.Len(t, series["EUR/USD"], 2)
	assert.Empty(t, series["GBP/USD"])
}

func TestBackfillSmallRetention(t *testing.T) {
	fetcher := &fakeFetcher{}

	_, err := Backfill(context.Background(), fetcher, []string{"EUR/USD"}, 1500, time.UnixMilli(0))
	require.NoError(t, err)
	assert.Equal(t, 500, fetcher.calls[0].count)
}

func TestBackfillPropagatesErrors(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("down")}

	_, err := Backfill(context.Background(), fetcher, []string{"EUR/USD"}, 6000, time.Now())
	assert.Error(t, err)
	assert.Len(t, fetcher.calls, 1)

	series, err := Backfill(context.Background(), fetcher, nil, 6000, time.Now())
	require.NoError(t, err)
	assert.Empty(t, series)
}
