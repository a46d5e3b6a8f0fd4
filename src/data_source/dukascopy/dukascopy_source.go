package dukascopy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"

	datasource "candle-stream/src/data_source"
	"candle-stream/src/helpers"
	"candle-stream/src/interfaces"
	"candle-stream/src/logger"
	"candle-stream/src/models"
)

const (
	offerSideBid = "B"
	offerSideAsk = "A"
)

// DukascopySource serves historical candles and ticks. The feed keys
// instruments by an opaque id and answers bid and ask sides separately.
type DukascopySource struct {
	BaseURL        string
	Key            string
	WrongIDRetries int
	Network        interfaces.INetworkManager
	Registry       *datasource.InstrumentRegistry
	Cache          interfaces.IHistoricalCache
	Logger         *logger.Logger
}

// -----------------------------------------------------------------------------

func NewDukascopySource(cfg *models.MConfig, netMgr interfaces.INetworkManager, registry *datasource.InstrumentRegistry, cache interfaces.IHistoricalCache) *DukascopySource {
	return &DukascopySource{
		BaseURL:        cfg.Upstream.HistoricalBaseURL,
		Key:            cfg.Upstream.HistoricalKey,
		WrongIDRetries: cfg.Upstream.WrongIDRetries,
		Network:        netMgr,
		Registry:       registry,
		Cache:          cache,
		Logger:         logger.NewLogger(cfg, "DukascopySource"),
	}
}

// -----------------------------------------------------------------------------

// sideCandle decodes either side; the feed prefixes fields with bid_ or ask_.
type sideCandle struct {
	Timestamp int64   `json:"timestamp"`
	BidOpen   float64 `json:"bid_open"`
	BidHigh   float64 `json:"bid_high"`
	BidLow    float64 `json:"bid_low"`
	BidClose  float64 `json:"bid_close"`
	AskOpen   float64 `json:"ask_open"`
	AskHigh   float64 `json:"ask_high"`
	AskLow    float64 `json:"ask_low"`
	AskClose  float64 `json:"ask_close"`
}

type historicalResponse struct {
	ID      json.RawMessage `json:"id"`
	Candles []sideCandle    `json:"candles"`
	Ticks   []models.MTick  `json:"ticks"`
}

// -----------------------------------------------------------------------------

// Candles fetches the bid and ask sides concurrently and merges them on timestamp.
func (s *DukascopySource) Candles(ctx context.Context, req models.MHistoricalRequest) ([]models.MCandle, error) {
	inst, err := s.Registry.Lookup(req.Instrument)
	if err != nil {
		return nil, err
	}
	if !req.TimeFrame.IsSupported() {
		return nil, helpers.NewValidationError("unsupported timeFrame %q", req.TimeFrame)
	}

	var (
		wg             sync.WaitGroup
		bid, ask       []sideCandle
		bidErr, askErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		var resp *historicalResponse
		resp, bidErr = s.fetch(ctx, inst, string(req.TimeFrame), offerSideBid, req.Start, req.End, req.Count)
		if bidErr == nil {
			bid = resp.Candles
		}
	}()
	go func() {
		defer wg.Done()
		var resp *historicalResponse
		resp, askErr = s.fetch(ctx, inst, string(req.TimeFrame), offerSideAsk, req.Start, req.End, req.Count)
		if askErr == nil {
			ask = resp.Candles
		}
	}()
	wg.Wait()

	if bidErr != nil {
		return nil, bidErr
	}
	if askErr != nil {
		return nil, askErr
	}

	candles := MergeSides(req.Instrument, req.TimeFrame.PeriodSeconds(), bid, ask)
	s.Logger.Debug("Fetched %s %s: %d candles (bid %d, ask %d)", req.Instrument, req.TimeFrame, len(candles), len(bid), len(ask))
	return candles, nil
}

// -----------------------------------------------------------------------------

// Ticks returns raw ticks for [start, end].
func (s *DukascopySource) Ticks(ctx context.Context, instrument string, start, end int64) ([]models.MTick, error) {
	inst, err := s.Registry.Lookup(instrument)
	if err != nil {
		return nil, err
	}

	resp, err := s.fetch(ctx, inst, string(models.HistoricalTick), "", start, end, 0)
	if err != nil {
		return nil, err
	}

	ticks := make([]models.MTick, 0, len(resp.Ticks))
	for _, t := range resp.Ticks {
		ticks = append(ticks, models.MTick{Instrument: instrument, Timestamp: t.Timestamp, Bid: t.Bid, Ask: t.Ask})
	}
	sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].Timestamp < ticks[j].Timestamp })
	return ticks, nil
}

// -----------------------------------------------------------------------------

// MergeSides joins bid and ask candles that share a timestamp. Candles present
// on one side only are dropped.
func MergeSides(instrument string, period int64, bid, ask []sideCandle) []models.MCandle {
	bidByTs := make(map[int64]sideCandle, len(bid))
	for _, b := range bid {
		bidByTs[b.Timestamp] = b
	}

	out := make([]models.MCandle, 0, len(ask))
	for _, a := range ask {
		b, ok := bidByTs[a.Timestamp]
		if !ok {
			continue
		}
		out = append(out, models.MCandle{
			Instrument: instrument,
			Period:     period,
			Timestamp:  a.Timestamp,
			BidOpen:    b.BidOpen,
			BidHigh:    b.BidHigh,
			BidLow:     b.BidLow,
			BidClose:   b.BidClose,
			AskOpen:    a.AskOpen,
			AskHigh:    a.AskHigh,
			AskLow:     a.AskLow,
			AskClose:   a.AskClose,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// -----------------------------------------------------------------------------

// fetch performs one historicalPrices call, retrying when the feed answers for
// a different instrument id.
func (s *DukascopySource) fetch(ctx context.Context, inst models.MInstrument, timeFrame, offerSide string, start, end int64, count int) (*historicalResponse, error) {
	params := map[string]string{
		"instrument": inst.ID,
		"timeFrame":  timeFrame,
	}
	if s.Key != "" {
		params["key"] = s.Key
	}
	if offerSide != "" {
		params["offerSide"] = offerSide
	}
	if start > 0 {
		params["start"] = strconv.FormatInt(start, 10)
	}
	if end > 0 {
		params["end"] = strconv.FormatInt(end, 10)
	}
	if count > 0 {
		params["count"] = strconv.Itoa(count)
	}

	cacheKey := fmt.Sprintf("historical:%s:%s:%s:%d:%d:%d", inst.ID, timeFrame, offerSide, start, end, count)
	if s.Cache != nil {
		if cached, ok, err := s.Cache.Get(ctx, cacheKey); err == nil && ok {
			var resp historicalResponse
			if err := json.Unmarshal(cached, &resp); err == nil {
				return &resp, nil
			}
		} else if err != nil {
			s.Logger.Warning("Historical cache read failed: %v", err)
		}
	}

	attempts := s.WrongIDRetries + 1
	var gotID string
	for attempt := 0; attempt < attempts; attempt++ {
		body, err := s.Network.Get(ctx, s.BaseURL+"historicalPrices", params)
		if err != nil {
			return nil, err
		}

		var resp historicalResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, helpers.NewUpstreamError(http.StatusBadGateway, "malformed historical response", err)
		}

		gotID = normalizeID(resp.ID)
		if gotID != inst.ID {
			s.Logger.Warning("Historical feed answered id %s for %s (want %s), retrying", gotID, inst.Name, inst.ID)
			continue
		}

		if s.Cache != nil {
			if err := s.Cache.Set(ctx, cacheKey, body); err != nil {
				s.Logger.Warning("Historical cache write failed: %v", err)
			}
		}
		return &resp, nil
	}

	return nil, helpers.NewUpstreamError(http.StatusBadGateway,
		fmt.Sprintf("historical feed kept answering id %s instead of %s", gotID, inst.ID), nil)
}

// -----------------------------------------------------------------------------

// normalizeID accepts the id as either a JSON string or number.
func normalizeID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}
