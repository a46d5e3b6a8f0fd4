package swissquote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	datasource "candle-stream/src/data_source"
	"candle-stream/src/helpers"
	"candle-stream/src/interfaces"
	"candle-stream/src/logger"
	"candle-stream/src/models"
	"candle-stream/src/utils"
)

// SwissquoteSource reads the current best bid/ask from the public quote feed.
type SwissquoteSource struct {
	BaseURL         string
	Network         interfaces.INetworkManager
	Registry        *datasource.InstrumentRegistry
	MarketScheduler *utils.MarketScheduler
	Logger          *logger.Logger
	Now             func() time.Time
}

// -----------------------------------------------------------------------------

func NewSwissquoteSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, registry *datasource.InstrumentRegistry, scheduler *utils.MarketScheduler) *SwissquoteSource {
	return &SwissquoteSource{
		BaseURL:         cfg.Upstream.QuoteBaseURL,
		Network:         netMgr,
		Registry:        registry,
		MarketScheduler: scheduler,
		Logger:          logger.NewLogger(cfg, "SwissquoteSource"),
		Now:             time.Now,
	}
}

// -----------------------------------------------------------------------------

func (s *SwissquoteSource) Name() string {
	return "swissquote"
}

// -----------------------------------------------------------------------------

type quoteResponse []struct {
	SpreadProfilePrices []struct {
		SpreadProfile string   `json:"spreadProfile"`
		Bid           *float64 `json:"bid"`
		Ask           *float64 `json:"ask"`
	} `json:"spreadProfilePrices"`
}

// -----------------------------------------------------------------------------

// FetchQuote returns the first spread profile of the first platform entry.
func (s *SwissquoteSource) FetchQuote(ctx context.Context, instrument string) (models.MTick, error) {
	if open, reopensAt := s.MarketScheduler.Status(); !open {
		return models.MTick{}, helpers.NewMarketClosedError(reopensAt)
	}

	if _, err := s.Registry.Lookup(instrument); err != nil {
		return models.MTick{}, err
	}

	body, err := s.Network.Get(ctx, s.BaseURL+instrument, nil)
	if err != nil {
		return models.MTick{}, err
	}

	tick, err := parseQuote(body)
	if err != nil {
		s.Logger.Debug("Unusable quote for %s: %v", instrument, err)
		return models.MTick{}, helpers.NewUpstreamError(http.StatusBadGateway, "Data not available", err)
	}

	tick.Instrument = instrument
	tick.Timestamp = s.Now().UnixMilli()
	return tick, nil
}

// -----------------------------------------------------------------------------

func parseQuote(body []byte) (models.MTick, error) {
	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.MTick{}, fmt.Errorf("json unmarshal failed: %w", err)
	}

	if len(resp) == 0 || len(resp[0].SpreadProfilePrices) == 0 {
		return models.MTick{}, fmt.Errorf("no spread profile in response")
	}

	price := resp[0].SpreadProfilePrices[0]
	if price.Bid == nil || price.Ask == nil {
		return models.MTick{}, fmt.Errorf("spread profile without bid/ask")
	}

	return models.MTick{Bid: *price.Bid, Ask: *price.Ask}, nil
}
