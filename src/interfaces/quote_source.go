package interfaces

import (
	"context"

	"candle-stream/src/models"
)

// -----------------------------------------------------------------------------
// IQuoteSource fetches the current top-of-book quote for one instrument.
// -----------------------------------------------------------------------------

type IQuoteSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// FetchQuote returns the latest bid/ask. While the market is closed it
	// fails with a MarketClosedError without contacting the upstream.
	FetchQuote(ctx context.Context, instrument string) (models.MTick, error)
}

// -----------------------------------------------------------------------------
// IHistoricalSource serves past candles and ticks for one instrument.
// -----------------------------------------------------------------------------

type IHistoricalSource interface {

	// Candles returns bid/ask candles in ascending timestamp order.
	Candles(ctx context.Context, req models.MHistoricalRequest) ([]models.MCandle, error)

	// -----------------------------------------------------------------------------

	// Ticks returns raw ticks in [start, end], both epoch milliseconds.
	Ticks(ctx context.Context, instrument string, start, end int64) ([]models.MTick, error)
}
