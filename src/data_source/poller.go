package datasource

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"candle-stream/src/interfaces"
	"candle-stream/src/logger"
	"candle-stream/src/models"
)

// Poller fetches one quote per instrument on every wall-clock aligned slot of
// Interval and pushes the results as a single batch.
type Poller struct {
	Source      interfaces.IQuoteSource
	Interval    time.Duration
	Lead        time.Duration // fire this much before the aligned slot
	Tolerance   time.Duration // how late into a slot a batch may still start
	Recheck     time.Duration
	Concurrency int
	Logger      *logger.Logger
	Now         func() time.Time

	instruments atomic.Value // Stores []string safely
	cancelFunc  context.CancelFunc
	isRunning   atomic.Bool
	mu          sync.Mutex
}

// -----------------------------------------------------------------------------

func NewPoller(cfg *models.MConfig, source interfaces.IQuoteSource, instruments []string, interval time.Duration) *Poller {
	p := &Poller{
		Source:      source,
		Interval:    interval,
		Lead:        time.Duration(cfg.Stream.LeadMillis) * time.Millisecond,
		Tolerance:   time.Duration(cfg.Stream.ToleranceMillis) * time.Millisecond,
		Recheck:     time.Duration(cfg.Stream.RecheckMillis) * time.Millisecond,
		Concurrency: cfg.Network.ConcurrentRequests,
		Logger:      logger.NewLogger(cfg, "Poller"),
		Now:         time.Now,
	}
	p.UpdateInstruments(instruments)
	return p
}

// -----------------------------------------------------------------------------

// UpdateInstruments swaps the instrument set; the next batch uses it.
func (p *Poller) UpdateInstruments(instruments []string) {
	list := make([]string, len(instruments))
	copy(list, instruments)
	p.instruments.Store(list)
}

// -----------------------------------------------------------------------------

func (p *Poller) Instruments() []string {
	list, _ := p.instruments.Load().([]string)
	return list
}

// -----------------------------------------------------------------------------

// Start runs the poll loop in its own goroutine until Stop or ctx cancellation.
// The output channel is closed when the loop exits.
func (p *Poller) Start(parentCtx context.Context, outputChan chan<- models.MQuoteBatch, wg *sync.WaitGroup) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning.Load() {
		return fmt.Errorf("poller is already running")
	}

	ctx, cancel := context.WithCancel(parentCtx)
	p.cancelFunc = cancel
	p.isRunning.Store(true)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer p.isRunning.Store(false)
		p.Run(ctx, outputChan)
	}()
	return nil
}

// -----------------------------------------------------------------------------

// Stop signals the run loop to exit after the in-flight batch.
func (p *Poller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancelFunc != nil {
		p.cancelFunc()
		p.cancelFunc = nil
	}
	return nil
}

// -----------------------------------------------------------------------------

// Run is the blocking poll loop. It closes outputChan on return.
func (p *Poller) Run(ctx context.Context, outputChan chan<- models.MQuoteBatch) {
	defer close(outputChan)

	lastSlot := int64(-1)
	for {
		if ctx.Err() != nil {
			return
		}

		now := p.Now()
		slot, pos := p.slotOf(now)

		if pos <= p.Tolerance && slot != lastSlot {
			lastSlot = slot
			slotTime := slot*p.Interval.Milliseconds() - p.Lead.Milliseconds()

			batch := p.FetchBatch(ctx, p.Instruments(), slotTime)

			// A batch finished after cancellation is dropped whole
			if ctx.Err() != nil {
				return
			}

			select {
			case outputChan <- batch:
			case <-ctx.Done():
				return
			}
			continue
		}

		if !sleepContext(ctx, p.nextWait(pos)) {
			return
		}
	}
}

// -----------------------------------------------------------------------------

// slotOf returns the aligned slot index for now and how far into it now lies.
func (p *Poller) slotOf(now time.Time) (int64, time.Duration) {
	interval := p.Interval.Milliseconds()
	if interval <= 0 {
		interval = 1
	}
	shifted := now.UnixMilli() + p.Lead.Milliseconds()
	return shifted / interval, time.Duration(shifted%interval) * time.Millisecond
}

// -----------------------------------------------------------------------------

// nextWait sleeps up to Recheck short of the next slot so the final approach is a short recheck.
func (p *Poller) nextWait(pos time.Duration) time.Duration {
	wait := p.Interval - pos
	if wait > p.Recheck && p.Recheck > 0 {
		wait -= p.Recheck
	}
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait
}

// -----------------------------------------------------------------------------

// FetchBatch fetches every instrument concurrently. A failing instrument is
// reported in its own result and never aborts the batch.
func (p *Poller) FetchBatch(ctx context.Context, instruments []string, slotTime int64) models.MQuoteBatch {
	batch := models.MQuoteBatch{
		Timestamp: slotTime,
		Results:   make([]models.MQuoteResult, len(instruments)),
	}

	limit := p.Concurrency
	if limit <= 0 {
		limit = len(instruments)
	}
	sem := make(chan struct{}, max(limit, 1))

	var wg sync.WaitGroup
	for i, inst := range instruments {
		wg.Add(1)
		go func(i int, inst string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			tick, err := p.Source.FetchQuote(ctx, inst)
			if err != nil {
				p.Logger.Debug("Fetch failed for %s: %v", inst, err)
			}
			batch.Results[i] = models.MQuoteResult{Instrument: inst, Tick: tick, Err: err}
		}(i, inst)
	}
	wg.Wait()

	return batch
}

// -----------------------------------------------------------------------------

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
