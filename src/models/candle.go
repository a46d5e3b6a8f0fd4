package models

// MCandle is the bid/ask OHLC aggregate of one bucket.
// Period is in seconds, Timestamp is the bucket start in epoch milliseconds.
type MCandle struct {
	Instrument string  `json:"instrument,omitempty"`
	Period     int64   `json:"period"`
	Timestamp  int64   `json:"timestamp"`
	BidOpen    float64 `json:"bid_open"`
	BidHigh    float64 `json:"bid_high"`
	BidLow     float64 `json:"bid_low"`
	BidClose   float64 `json:"bid_close"`
	AskOpen    float64 `json:"ask_open"`
	AskHigh    float64 `json:"ask_high"`
	AskLow     float64 `json:"ask_low"`
	AskClose   float64 `json:"ask_close"`
}

// -----------------------------------------------------------------------------

// IsConsistent reports whether open and close lie within [low, high] on both sides.
func (c MCandle) IsConsistent() bool {
	within := func(open, high, low, close float64) bool {
		return low <= high &&
			low <= open && open <= high &&
			low <= close && close <= high
	}
	return within(c.BidOpen, c.BidHigh, c.BidLow, c.BidClose) &&
		within(c.AskOpen, c.AskHigh, c.AskLow, c.AskClose)
}
