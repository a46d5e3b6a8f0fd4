package models

// MTick is a single bid/ask quote observation. Timestamp is epoch milliseconds.
type MTick struct {
	Instrument string  `json:"instrument,omitempty"`
	Timestamp  int64   `json:"timestamp"`
	Bid        float64 `json:"bid"`
	Ask        float64 `json:"ask"`
}
