package core

import "math"

// -----------------------------------------------------------------------------

// OHLC is a running open/high/low/close fold over a sequence of prices.
type OHLC struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
	Count int
}

// -----------------------------------------------------------------------------

// Add folds one price. The first price sets open; every price sets close.
func (o *OHLC) Add(price float64) {
	if o.Count == 0 {
		o.Open, o.High, o.Low = price, price, price
	}
	o.High = math.Max(o.High, price)
	o.Low = math.Min(o.Low, price)
	o.Close = price
	o.Count++
}

// -----------------------------------------------------------------------------

// Merge folds a later OHLC into o, keeping o's open.
func (o *OHLC) Merge(next OHLC) {
	if next.Count == 0 {
		return
	}
	if o.Count == 0 {
		*o = next
		return
	}
	o.High = math.Max(o.High, next.High)
	o.Low = math.Min(o.Low, next.Low)
	o.Close = next.Close
	o.Count += next.Count
}
