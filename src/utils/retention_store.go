package utils

import (
	"sort"
	"sync"

	"candle-stream/src/logger"
	"candle-stream/src/models"
)

// -----------------------------------------------------------------------------
// RetentionStore holds one RingBuffer per instrument.
// -----------------------------------------------------------------------------

type RetentionStore struct {
	Buffers   map[string]*RingBuffer
	Retention int
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewRetentionStore(retention int, log *logger.Logger) *RetentionStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RetentionStore{
		Buffers:   make(map[string]*RingBuffer),
		Retention: retention,
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

// Append applies a live candle to its instrument's buffer.
func (rs *RetentionStore) Append(c models.MCandle) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	buf := rs.buffer(c.Instrument)
	ok := buf.Append(c)
	if !ok && rs.Logger != nil {
		rs.Logger.Debug("Dropped out-of-order candle %s@%d", c.Instrument, c.Timestamp)
	}
	return ok
}

// -----------------------------------------------------------------------------

// Seed replaces an instrument's buffer with a backfilled series.
func (rs *RetentionStore) Seed(instrument string, series []models.MCandle) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.buffer(instrument).Seed(series)
}

// -----------------------------------------------------------------------------

// Snapshot returns a copy of one instrument's candles, nil when unknown.
func (rs *RetentionStore) Snapshot(instrument string) []models.MCandle {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	buf, ok := rs.Buffers[instrument]
	if !ok {
		return nil
	}
	return buf.Snapshot()
}

// -----------------------------------------------------------------------------

// Drop forgets an instrument and its candles.
func (rs *RetentionStore) Drop(instrument string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	delete(rs.Buffers, instrument)
}

// -----------------------------------------------------------------------------

// HasInstrument checks if an instrument has a buffer
func (rs *RetentionStore) HasInstrument(instrument string) bool {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	_, ok := rs.Buffers[instrument]
	return ok
}

// -----------------------------------------------------------------------------

// Sizes returns the candle count per instrument
func (rs *RetentionStore) Sizes() map[string]int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	out := make(map[string]int, len(rs.Buffers))
	for name, buf := range rs.Buffers {
		out[name] = buf.Size()
	}
	return out
}

// -----------------------------------------------------------------------------

// Instruments returns the instruments holding a buffer, sorted
func (rs *RetentionStore) Instruments() []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	names := make([]string, 0, len(rs.Buffers))
	for name := range rs.Buffers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// -----------------------------------------------------------------------------

func (rs *RetentionStore) buffer(instrument string) *RingBuffer {
	buf, ok := rs.Buffers[instrument]
	if !ok {
		buf = NewRingBuffer(rs.Retention)
		rs.Buffers[instrument] = buf
	}
	return buf
}
