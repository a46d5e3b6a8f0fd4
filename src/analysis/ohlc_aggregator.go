package analysis

import (
	"context"

	"candle-stream/src/analysis/core"
	"candle-stream/src/logger"
	"candle-stream/src/models"
)

// TickHistory supplies the ticks already printed in a bucket when the
// aggregator first sees an instrument mid-bucket.
type TickHistory interface {
	Ticks(ctx context.Context, instrument string, start, end int64) ([]models.MTick, error)
}

// bucketState is the open candle of one instrument.
type bucketState struct {
	start int64 // bucket start, epoch ms
	bid   core.OHLC
	ask   core.OHLC
}

func (b *bucketState) add(t models.MTick) {
	b.bid.Add(t.Bid)
	b.ask.Add(t.Ask)
}

// -----------------------------------------------------------------------------

// OHLCAggregator keeps one open candle per instrument and emits its refined
// state on every tick. It is owned by a single pipeline and is not safe for
// concurrent use.
type OHLCAggregator struct {
	Period  int64 // seconds
	History TickHistory
	Logger  *logger.Logger
	state   map[string]*bucketState
}

// -----------------------------------------------------------------------------

func NewOHLCAggregator(period int64, history TickHistory, log *logger.Logger) *OHLCAggregator {
	if period <= 0 {
		period = 60
	}
	return &OHLCAggregator{
		Period:  period,
		History: history,
		Logger:  log,
		state:   make(map[string]*bucketState),
	}
}

// -----------------------------------------------------------------------------

// BucketStart returns the aligned bucket start (ms) for an epoch ms timestamp,
// computed on whole seconds.
func (a *OHLCAggregator) BucketStart(ts int64) int64 {
	sec := floorDiv(ts, 1000)
	return (sec - mod(sec, a.Period)) * 1000
}

// -----------------------------------------------------------------------------

// Ingest folds a tick into its instrument's bucket and returns the candle.
// Exactly one candle is returned per tick. A failed seed fetch does not stop
// the candle; the error is returned next to it.
func (a *OHLCAggregator) Ingest(ctx context.Context, tick models.MTick) (models.MCandle, error) {
	var seedErr error

	st, ok := a.state[tick.Instrument]
	switch {
	case !ok:
		st = &bucketState{start: a.BucketStart(tick.Timestamp)}
		seedErr = a.seed(ctx, st, tick)
		a.state[tick.Instrument] = st

	case floorDiv(tick.Timestamp, 1000)*1000 >= st.start+a.Period*1000:
		// Rollover: the previous candle is sealed, this tick opens the next one
		st = &bucketState{start: a.BucketStart(tick.Timestamp)}
		a.state[tick.Instrument] = st
	}

	st.add(tick)
	return a.candle(tick.Instrument, st), seedErr
}

// -----------------------------------------------------------------------------

func (a *OHLCAggregator) seed(ctx context.Context, st *bucketState, tick models.MTick) error {
	if a.History == nil || tick.Timestamp <= st.start {
		return nil
	}

	ticks, err := a.History.Ticks(ctx, tick.Instrument, st.start, tick.Timestamp)
	if err != nil {
		if a.Logger != nil {
			a.Logger.Warning("Could not seed %s bucket %d: %v", tick.Instrument, st.start, err)
		}
		return err
	}

	for _, t := range ticks {
		if t.Timestamp >= st.start && t.Timestamp < tick.Timestamp {
			st.add(t)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (a *OHLCAggregator) candle(instrument string, st *bucketState) models.MCandle {
	return models.MCandle{
		Instrument: instrument,
		Period:     a.Period,
		Timestamp:  st.start,
		BidOpen:    st.bid.Open,
		BidHigh:    st.bid.High,
		BidLow:     st.bid.Low,
		BidClose:   st.bid.Close,
		AskOpen:    st.ask.Open,
		AskHigh:    st.ask.High,
		AskLow:     st.ask.Low,
		AskClose:   st.ask.Close,
	}
}

// -----------------------------------------------------------------------------

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
