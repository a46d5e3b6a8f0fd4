package analysis

import (
	"fmt"

	"candle-stream/src/analysis/core"
	"candle-stream/src/models"
)

// -----------------------------------------------------------------------------

// SourceValues extracts one price field ("open", "high", "low", "close") from
// one side ("bid" or "ask") of every candle.
func SourceValues(candles []models.MCandle, source, side string) ([]float64, error) {
	pick, err := sourcePicker(source, side)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(candles))
	for i, c := range candles {
		values[i] = pick(c)
	}
	return values, nil
}

func sourcePicker(source, side string) (func(models.MCandle) float64, error) {
	ask := side == "ask"
	switch source {
	case "open":
		if ask {
			return func(c models.MCandle) float64 { return c.AskOpen }, nil
		}
		return func(c models.MCandle) float64 { return c.BidOpen }, nil
	case "high":
		if ask {
			return func(c models.MCandle) float64 { return c.AskHigh }, nil
		}
		return func(c models.MCandle) float64 { return c.BidHigh }, nil
	case "low":
		if ask {
			return func(c models.MCandle) float64 { return c.AskLow }, nil
		}
		return func(c models.MCandle) float64 { return c.BidLow }, nil
	case "close", "":
		if ask {
			return func(c models.MCandle) float64 { return c.AskClose }, nil
		}
		return func(c models.MCandle) float64 { return c.BidClose }, nil
	}
	return nil, fmt.Errorf("unknown price source %q", source)
}

// -----------------------------------------------------------------------------

// SMA is the mean of the length values strictly before each index. The first
// length indices have no window and produce no point.
func SMA(timestamps []int64, values []float64, length int) []models.MPoint {
	if length <= 0 || len(values) <= length {
		return nil
	}

	out := make([]models.MPoint, 0, len(values)-length)
	for i := length; i < len(values); i++ {
		out = append(out, models.MPoint{
			Timestamp: timestamps[i],
			Value:     core.CalculateMean(values[i-length : i]),
		})
	}
	return out
}

// -----------------------------------------------------------------------------

// EMA seeds with the first value and smooths with k = 2/(length+1).
func EMA(timestamps []int64, values []float64, length int) []models.MPoint {
	if length <= 0 || len(values) == 0 {
		return nil
	}

	k := 2 / float64(length+1)
	out := make([]models.MPoint, len(values))
	prev := values[0]
	for i, v := range values {
		if i > 0 {
			prev = core.EMAStep(prev, v, k)
		}
		out[i] = models.MPoint{Timestamp: timestamps[i], Value: prev}
	}
	return out
}

// -----------------------------------------------------------------------------

// BollingerBands holds the three lines of a Bollinger overlay.
type BollingerBands struct {
	Upper  []models.MPoint
	Middle []models.MPoint
	Lower  []models.MPoint
}

// Bollinger is SMA ± n population standard deviations over the SMA window.
func Bollinger(timestamps []int64, values []float64, length int, n float64) BollingerBands {
	var bands BollingerBands
	if length <= 0 || len(values) <= length {
		return bands
	}

	for i := length; i < len(values); i++ {
		mean, std := core.CalculateMeanStd(values[i-length : i])
		ts := timestamps[i]
		bands.Middle = append(bands.Middle, models.MPoint{Timestamp: ts, Value: mean})
		bands.Upper = append(bands.Upper, models.MPoint{Timestamp: ts, Value: mean + n*std})
		bands.Lower = append(bands.Lower, models.MPoint{Timestamp: ts, Value: mean - n*std})
	}
	return bands
}
