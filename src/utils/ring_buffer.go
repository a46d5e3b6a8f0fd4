package utils

import (
	"sort"

	"candle-stream/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of candles with strictly
// increasing timestamps. A candle for the bucket already at the tail replaces
// it; once full, the oldest candle is evicted.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []models.MCandle
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultRetention
	}

	return &RingBuffer{
		data:     make([]models.MCandle, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append replaces the tail when timestamps match, otherwise pushes. A candle
// older than the tail would break ordering and is rejected (returns false).
func (rb *RingBuffer) Append(c models.MCandle) bool {
	if last, ok := rb.Last(); ok {
		if last.Timestamp == c.Timestamp {
			rb.data[rb.lastIndex()] = c
			return true
		}
		if c.Timestamp < last.Timestamp {
			return false
		}
	}

	rb.data[rb.index] = c
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
	return true
}

// -----------------------------------------------------------------------------

// Seed replaces the contents with series, sorted ascending, one candle per
// timestamp (the later entry wins), trimmed to the newest capacity candles.
func (rb *RingBuffer) Seed(series []models.MCandle) {
	sorted := make([]models.MCandle, len(series))
	copy(sorted, series)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	rb.Clear()
	for _, c := range sorted {
		rb.Append(c)
	}
}

// -----------------------------------------------------------------------------

// Last returns the newest candle
func (rb *RingBuffer) Last() (models.MCandle, bool) {
	if rb.size == 0 {
		return models.MCandle{}, false
	}
	return rb.data[rb.lastIndex()], true
}

func (rb *RingBuffer) lastIndex() int {
	return (rb.index - 1 + rb.capacity) % rb.capacity
}

// -----------------------------------------------------------------------------

// GetLatest returns the n newest candles, oldest first
func (rb *RingBuffer) GetLatest(n int) []models.MCandle {
	if rb.size == 0 || n <= 0 {
		return []models.MCandle{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MCandle, count)
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}
	return result
}

// -----------------------------------------------------------------------------

// Snapshot returns an independent copy of all candles, oldest to newest
func (rb *RingBuffer) Snapshot() []models.MCandle {
	return rb.GetLatest(rb.size)
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *RingBuffer) Clear() {
	rb.index = 0
	rb.size = 0
}
