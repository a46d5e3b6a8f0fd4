package models

// MPoint is one value of an indicator line, keyed by the candle it belongs to.
type MPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// MIndicatorConfig is one configured overlay. Kind is "sma", "ema" or "boll";
// Source is "open", "high", "low" or "close"; Side is "bid" (default) or "ask".
type MIndicatorConfig struct {
	Name   string  `json:"name"`
	Kind   string  `json:"kind" validate:"required,oneof=sma ema boll"`
	Length int     `json:"length" validate:"required,min=1,max=1000"`
	N      float64 `json:"n,omitempty" validate:"gte=0"`
	Source string  `json:"source" validate:"omitempty,oneof=open high low close"`
	Side   string  `json:"side,omitempty" validate:"omitempty,oneof=bid ask"`
}

// MSeries is a resampled candle series with its indicator lines.
type MSeries struct {
	Instrument string              `json:"instrument"`
	TimeFrame  string              `json:"time_frame"`
	Candles    []MCandle           `json:"candles"`
	Indicators map[string][]MPoint `json:"indicators,omitempty"`
}
