package models

// MHistoricalRequest is one instrument/time-frame query against the historical feed.
// Start and End are epoch milliseconds, zero means unset.
type MHistoricalRequest struct {
	Instrument string
	TimeFrame  HistoricalTimeFrame
	Start      int64
	End        int64
	Count      int
}
