package server

import (
	"context"
	"sync"
	"time"

	"candle-stream/src/analysis"
	datasource "candle-stream/src/data_source"
	"candle-stream/src/helpers"
	"candle-stream/src/logger"
	"candle-stream/src/models"
)

// -----------------------------------------------------------------------------
// Pipeline: Poller -> Aggregator -> connection
// -----------------------------------------------------------------------------

// Pipeline is the per-connection chain. The poller produces quote batches,
// the aggregator turns each batch into events, and the connection drains
// Events. Every channel holds at most one batch.
type Pipeline struct {
	ID          string
	Instruments []string
	Delay       time.Duration
	Period      int64

	poller     *datasource.Poller
	aggregator *analysis.OHLCAggregator
	events     chan []models.MStreamEvent
	cancel     context.CancelFunc
	done       chan struct{}
	logger     *logger.Logger
	stopOnce   sync.Once
	wg         sync.WaitGroup // poller goroutine
}

// -----------------------------------------------------------------------------

func (s *StreamServer) newPipeline(id string, instruments []string, delay time.Duration, period int64) *Pipeline {
	poller := datasource.NewPoller(s.Config, s.Quotes, instruments, delay)
	if s.Now != nil {
		poller.Now = s.Now
	}

	return &Pipeline{
		ID:          id,
		Instruments: instruments,
		Delay:       delay,
		Period:      period,
		poller:      poller,
		aggregator:  analysis.NewOHLCAggregator(period, s.History, s.Logger),
		events:      make(chan []models.MStreamEvent, 1),
		done:        make(chan struct{}),
		logger:      s.Logger,
	}
}

// -----------------------------------------------------------------------------

// Start launches the poller and aggregator stages. Cancelling parent or
// calling Stop tears both down; Events is closed once they have exited.
func (p *Pipeline) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel

	batches := make(chan models.MQuoteBatch, 1)
	if err := p.poller.Start(ctx, batches, &p.wg); err != nil {
		p.logger.Error("Pipeline %s: %v", p.ID, err)
		close(batches)
	}
	go p.aggregate(ctx, batches)
}

// -----------------------------------------------------------------------------

// Events yields one slice of events per quote batch.
func (p *Pipeline) Events() <-chan []models.MStreamEvent {
	return p.events
}

// -----------------------------------------------------------------------------

// Stop cancels the pipeline and waits for its stages to exit.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		_ = p.poller.Stop()
		if p.cancel != nil {
			p.cancel()
		}
	})
	<-p.done
	p.wg.Wait()
}

// -----------------------------------------------------------------------------

// Done is closed after both stages have exited.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// -----------------------------------------------------------------------------

func (p *Pipeline) aggregate(ctx context.Context, batches <-chan models.MQuoteBatch) {
	defer close(p.done)
	defer close(p.events)

	for batch := range batches {
		if ctx.Err() != nil {
			continue // drain until the poller closes the channel
		}

		out := p.process(ctx, batch)
		if len(out) == 0 || ctx.Err() != nil {
			continue
		}

		select {
		case p.events <- out:
		case <-ctx.Done():
		}
	}
}

// -----------------------------------------------------------------------------

// process turns a quote batch into stream events in instrument order.
// Fetch failures become error events; they never stop the other instruments.
func (p *Pipeline) process(ctx context.Context, batch models.MQuoteBatch) []models.MStreamEvent {
	out := make([]models.MStreamEvent, 0, len(batch.Results))

	for _, res := range batch.Results {
		if res.Err != nil {
			if helpers.IsTransportAbort(res.Err) {
				continue
			}
			out = append(out, ErrorEvent(res.Instrument, res.Err))
			continue
		}

		candle, seedErr := p.aggregator.Ingest(ctx, res.Tick)
		if seedErr != nil && !helpers.IsTransportAbort(seedErr) {
			out = append(out, ErrorEvent(res.Instrument, seedErr))
		}
		out = append(out, models.MStreamEvent{Event: res.Instrument, Data: candle})
	}
	return out
}

// -----------------------------------------------------------------------------

// ErrorEvent wraps err as an "error" event with its client facing status.
func ErrorEvent(instrument string, err error) models.MStreamEvent {
	payload := models.MErrorPayload{
		Message:    err.Error(),
		Status:     helpers.HTTPStatus(err),
		Instrument: instrument,
	}
	if closed, ok := helpers.IsMarketClosed(err); ok {
		payload.Message = closed.Message
		if !closed.ReopensAt.IsZero() {
			payload.ReopensAt = closed.ReopensAt.UnixMilli()
		}
	}
	return models.MStreamEvent{Event: models.EventError, Data: payload}
}
