package analysis

import (
	"sort"

	"candle-stream/src/analysis/core"
	"candle-stream/src/models"
)

// -----------------------------------------------------------------------------

// Bucket is one non-empty group produced by Resample.
type Bucket[T any] struct {
	Start int64 // bucket start, epoch ms
	Items []T
}

// -----------------------------------------------------------------------------

// GroupByWindow buckets items by floor(timestamp / widthMs). Items whose own
// period (seconds) is coarser than the bucket are skipped. Buckets come back
// in ascending order and the input is left untouched.
func GroupByWindow[T any](items []T, widthMs int64, timestampOf func(T) int64, periodOf func(T) int64) []Bucket[T] {
	if widthMs <= 0 || len(items) == 0 {
		return nil
	}

	widthSec := widthMs / 1000
	groups := make(map[int64][]T)
	for _, item := range items {
		if periodOf != nil && periodOf(item) > widthSec {
			continue
		}
		key := floorDiv(timestampOf(item), widthMs)
		groups[key] = append(groups[key], item)
	}

	keys := make([]int64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	buckets := make([]Bucket[T], 0, len(keys))
	for _, k := range keys {
		buckets = append(buckets, Bucket[T]{Start: k * widthMs, Items: groups[k]})
	}
	return buckets
}

// -----------------------------------------------------------------------------

// Resample regroups items into tf sized buckets and applies agg to each one.
func Resample[T any, R any](
	items []T,
	tf models.MTimeFrame,
	timestampOf func(T) int64,
	periodOf func(T) int64,
	agg func(bucketStart int64, group []T) R,
) []R {
	buckets := GroupByWindow(items, tf.Millis(), timestampOf, periodOf)

	out := make([]R, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, agg(b.Start, b.Items))
	}
	return out
}

// -----------------------------------------------------------------------------

// ResampleCandles is Resample with the standard OHLC aggregation.
func ResampleCandles(candles []models.MCandle, tf models.MTimeFrame) []models.MCandle {
	widthSec := tf.Seconds()
	return Resample(candles, tf,
		func(c models.MCandle) int64 { return c.Timestamp },
		func(c models.MCandle) int64 { return c.Period },
		func(start int64, group []models.MCandle) models.MCandle {
			return AggregateCandles(start, widthSec, group)
		},
	)
}

// -----------------------------------------------------------------------------

// AggregateCandles folds time ordered candles into one: first open, max high,
// min low, last close, on each side.
func AggregateCandles(bucketStart, periodSeconds int64, group []models.MCandle) models.MCandle {
	var bid, ask core.OHLC
	instrument := ""
	for _, c := range group {
		bid.Merge(core.OHLC{Open: c.BidOpen, High: c.BidHigh, Low: c.BidLow, Close: c.BidClose, Count: 1})
		ask.Merge(core.OHLC{Open: c.AskOpen, High: c.AskHigh, Low: c.AskLow, Close: c.AskClose, Count: 1})
		if instrument == "" {
			instrument = c.Instrument
		}
	}

	return models.MCandle{
		Instrument: instrument,
		Period:     periodSeconds,
		Timestamp:  bucketStart,
		BidOpen:    bid.Open,
		BidHigh:    bid.High,
		BidLow:     bid.Low,
		BidClose:   bid.Close,
		AskOpen:    ask.Open,
		AskHigh:    ask.High,
		AskLow:     ask.Low,
		AskClose:   ask.Close,
	}
}
