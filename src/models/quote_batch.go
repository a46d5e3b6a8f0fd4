package models

// MQuoteResult is the outcome of one instrument fetch within a batch.
type MQuoteResult struct {
	Instrument string
	Tick       MTick
	Err        error
}

// MQuoteBatch holds one fetch result per subscribed instrument for one poll slot.
type MQuoteBatch struct {
	Timestamp int64 // slot time, epoch ms
	Results   []MQuoteResult
}
