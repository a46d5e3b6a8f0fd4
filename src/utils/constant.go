package utils

// -----------------------------------------------------------------------------

// Constants for client-side retention.
// A week of one-minute candles with the hourly backfill prefix fits in 6000 entries.
const (
	DefaultRetention = 6000

	// FineBackfillCap is the most minute candles one historical request may return.
	FineBackfillCap = 5000

	// CoarseBackfillCount is the number of hourly candles fetched ahead of the minute window.
	CoarseBackfillCount = 1000
)

// -----------------------------------------------------------------------------

// FineBackfillCount returns min(5000, retention-1000), the minute candles requested for a new subscription.
func FineBackfillCount(retention int) int {
	n := retention - CoarseBackfillCount
	if n > FineBackfillCap {
		n = FineBackfillCap
	}
	if n < 1 {
		n = 1
	}
	return n
}
