package client

import (
	"context"
	"sort"
	"time"

	"candle-stream/src/models"
	"candle-stream/src/utils"
)

// HistoryFetcher loads candles ending at end (epoch ms, zero for latest).
type HistoryFetcher interface {
	Historical(ctx context.Context, instruments []string, tf models.HistoricalTimeFrame, end int64, count int) (map[string][]models.MCandle, error)
}

// -----------------------------------------------------------------------------

// Backfill fetches the seed series of newly subscribed instruments at two
// granularities: the newest fine minute candles, and hourly candles for the
// span right before them. The result is already merged per instrument.
func Backfill(ctx context.Context, fetcher HistoryFetcher, instruments []string, retention int, now time.Time) (map[string][]models.MCandle, error) {
	if len(instruments) == 0 {
		return map[string][]models.MCandle{}, nil
	}

	fineCount := utils.FineBackfillCount(retention)
	fine, err := fetcher.Historical(ctx, instruments, models.HistoricalMinute, 0, fineCount)
	if err != nil {
		return nil, err
	}

	// Coarse history ends where the fine window begins
	minuteMs := int64(time.Minute / time.Millisecond)
	coarseEnd := (now.UnixMilli()/minuteMs)*minuteMs - int64(fineCount)*minuteMs
	coarse, err := fetcher.Historical(ctx, instruments, models.HistoricalHour, coarseEnd, utils.CoarseBackfillCount)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]models.MCandle, len(instruments))
	for _, inst := range instruments {
		out[inst] = MergeBackfill(coarse[inst], fine[inst])
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// MergeBackfill concatenates coarse then fine, sorts by timestamp and keeps
// one candle per timestamp. On a tie the fine candle wins.
func MergeBackfill(coarse, fine []models.MCandle) []models.MCandle {
	all := make([]models.MCandle, 0, len(coarse)+len(fine))
	all = append(all, coarse...)
	all = append(all, fine...)

	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp < all[j].Timestamp })

	out := all[:0]
	for _, c := range all {
		if n := len(out); n > 0 && out[n-1].Timestamp == c.Timestamp {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return out
}
