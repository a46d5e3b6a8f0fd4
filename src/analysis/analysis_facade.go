package analysis

import (
	"fmt"

	"candle-stream/src/logger"
	"candle-stream/src/models"
)

// AnalysisFacade turns a retained candle series into what a chart reads:
// candles resampled to a display time frame plus indicator lines.
type AnalysisFacade struct {
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(log *logger.Logger) *AnalysisFacade {
	return &AnalysisFacade{Logger: log}
}

// -----------------------------------------------------------------------------

// BuildSeries resamples candles to timeFrame (e.g. "15M") and computes every
// configured indicator on the resampled series. A broken indicator is logged
// and skipped, it does not fail the series.
func (a *AnalysisFacade) BuildSeries(instrument string, candles []models.MCandle, timeFrame string, indicators []models.MIndicatorConfig) (models.MSeries, error) {
	tf, err := models.ParseTimeFrame(timeFrame)
	if err != nil {
		return models.MSeries{}, err
	}

	resampled := ResampleCandles(candles, tf)
	series := models.MSeries{
		Instrument: instrument,
		TimeFrame:  tf.String(),
		Candles:    resampled,
	}

	if len(indicators) == 0 || len(resampled) == 0 {
		return series, nil
	}

	timestamps := make([]int64, len(resampled))
	for i, c := range resampled {
		timestamps[i] = c.Timestamp
	}

	series.Indicators = make(map[string][]models.MPoint)
	for i, ind := range indicators {
		values, err := SourceValues(resampled, ind.Source, ind.Side)
		if err != nil {
			a.Logger.Warning("Skipping indicator %d for %s: %v", i, instrument, err)
			continue
		}

		name := ind.Name
		if name == "" {
			name = fmt.Sprintf("%s_%d", ind.Kind, ind.Length)
		}

		switch ind.Kind {
		case "sma":
			series.Indicators[name] = SMA(timestamps, values, ind.Length)
		case "ema":
			series.Indicators[name] = EMA(timestamps, values, ind.Length)
		case "boll":
			bands := Bollinger(timestamps, values, ind.Length, ind.N)
			series.Indicators[name+".upper"] = bands.Upper
			series.Indicators[name+".middle"] = bands.Middle
			series.Indicators[name+".lower"] = bands.Lower
		default:
			a.Logger.Warning("Skipping unknown indicator kind %q for %s", ind.Kind, instrument)
		}
	}

	return series, nil
}
