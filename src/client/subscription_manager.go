package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	datasource "candle-stream/src/data_source"
	"candle-stream/src/helpers"
	"candle-stream/src/interfaces"
	"candle-stream/src/logger"
	"candle-stream/src/models"
	"candle-stream/src/utils"
)

var errStreamEnded = errors.New("stream ended")

// StreamOpener opens the live event stream for a set of instruments.
type StreamOpener interface {
	OpenStream(ctx context.Context, instruments []string) (io.ReadCloser, error)
}

// CandleServer is everything the manager needs from the server.
type CandleServer interface {
	HistoryFetcher
	StreamOpener
}

// connection is one opened stream. gen tags the events it produces so a
// replaced connection can no longer touch shared state.
type connection struct {
	gen    int64
	cancel context.CancelFunc
	done   chan struct{}
}

// -----------------------------------------------------------------------------
// SubscriptionManager
// -----------------------------------------------------------------------------

// SubscriptionManager owns the subscribed instrument set and the stream
// connection scoped to it. Newly added instruments are backfilled and seeded
// into the retention store before any of their live candles are applied.
type SubscriptionManager struct {
	Server    CandleServer
	Store     *utils.RetentionStore
	State     interfaces.IStateStore
	Registry  *datasource.InstrumentRegistry // optional, validates names when set
	Retention int
	Defaults  []string
	Logger    *logger.Logger
	Now       func() time.Time

	rootCtx context.Context
	connMu  sync.Mutex // serialises reconnects

	mu            sync.Mutex
	subscriptions []string
	connectedSet  []string
	awaiting      map[string][]models.MCandle // live candles queued until backfill lands
	conn          *connection
	generation    int64
	active        bool
	marketClosed  bool
	reopensAt     int64
	lastError     string
}

// -----------------------------------------------------------------------------

func NewSubscriptionManager(
	cfg *models.MConfig,
	server CandleServer,
	store *utils.RetentionStore,
	state interfaces.IStateStore,
	registry *datasource.InstrumentRegistry,
	log *logger.Logger,
) *SubscriptionManager {
	return &SubscriptionManager{
		Server:    server,
		Store:     store,
		State:     state,
		Registry:  registry,
		Retention: store.Retention,
		Defaults:  cfg.Client.DefaultSubscriptions,
		Logger:    log,
		Now:       time.Now,
		awaiting:  make(map[string][]models.MCandle),
	}
}

// -----------------------------------------------------------------------------

// Load restores the persisted subscription set, falling back to the defaults.
func (m *SubscriptionManager) Load() error {
	subs := append([]string(nil), m.Defaults...)

	if m.State != nil {
		raw, ok, err := m.State.Get(models.StateKeySubscriptions)
		if err != nil {
			return err
		}
		if ok {
			var stored []string
			if err := json.Unmarshal([]byte(raw), &stored); err != nil {
				m.Logger.Warning("Ignoring unreadable stored subscriptions: %v", err)
			} else {
				subs = stored
			}
		}
	}

	m.mu.Lock()
	m.subscriptions = datasource.SplitCSV(strings.Join(subs, ","))
	m.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------

// Start opens the first connection. ctx bounds every later connection too.
func (m *SubscriptionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.rootCtx = ctx
	m.mu.Unlock()
	return m.sync()
}

// -----------------------------------------------------------------------------

// Close tears down the current connection.
func (m *SubscriptionManager) Close() {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	m.mu.Lock()
	old := m.conn
	m.conn = nil
	m.generation++
	m.active = false
	m.mu.Unlock()

	if old != nil {
		old.cancel()
		<-old.done
	}
}

// -----------------------------------------------------------------------------

// Subscriptions returns the current set in order.
func (m *SubscriptionManager) Subscriptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.subscriptions...)
}

// -----------------------------------------------------------------------------

// Status returns the connection indicator.
func (m *SubscriptionManager) Status() models.MClientStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	return models.MClientStatus{
		Active:        m.active,
		MarketClosed:  m.marketClosed,
		ReopensAt:     m.reopensAt,
		Subscriptions: append([]string{}, m.subscriptions...),
		LastError:     m.lastError,
	}
}

// -----------------------------------------------------------------------------
// Mutations
// -----------------------------------------------------------------------------

// Add subscribes to an instrument. Adding a present instrument is a no-op.
func (m *SubscriptionManager) Add(instrument string) error {
	instrument, err := m.validate(instrument)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if indexOf(m.subscriptions, instrument) < 0 {
		m.subscriptions = append(m.subscriptions, instrument)
	}
	m.mu.Unlock()

	return m.commit()
}

// -----------------------------------------------------------------------------

// Remove unsubscribes and drops the instrument's buffered candles.
func (m *SubscriptionManager) Remove(instrument string) error {
	instrument = strings.TrimSpace(instrument)

	m.mu.Lock()
	if i := indexOf(m.subscriptions, instrument); i >= 0 {
		m.subscriptions = append(m.subscriptions[:i:i], m.subscriptions[i+1:]...)
		m.forget(instrument)
	}
	m.mu.Unlock()

	return m.commit()
}

// -----------------------------------------------------------------------------

// Replace swaps old for next in place, as when a chart slot changes
// instrument. The buffered candles of old are dropped.
func (m *SubscriptionManager) Replace(old, next string) error {
	old = strings.TrimSpace(old)
	next, err := m.validate(next)
	if err != nil {
		return err
	}

	m.mu.Lock()
	i := indexOf(m.subscriptions, old)
	if i < 0 {
		m.mu.Unlock()
		return helpers.NewValidationError("%s is not subscribed", old)
	}
	if old != next {
		if indexOf(m.subscriptions, next) >= 0 {
			m.subscriptions = append(m.subscriptions[:i:i], m.subscriptions[i+1:]...)
		} else {
			m.subscriptions[i] = next
		}
		m.forget(old)
	}
	m.mu.Unlock()

	return m.commit()
}

// -----------------------------------------------------------------------------

func (m *SubscriptionManager) validate(instrument string) (string, error) {
	instrument = strings.TrimSpace(instrument)
	if instrument == "" {
		return "", helpers.NewValidationError("instrument is required")
	}
	if m.Registry != nil {
		if _, err := m.Registry.Lookup(instrument); err != nil {
			return "", err
		}
	}
	return instrument, nil
}

// forget drops everything held for an instrument. Caller holds mu.
func (m *SubscriptionManager) forget(instrument string) {
	m.Store.Drop(instrument)
	delete(m.awaiting, instrument)
}

// -----------------------------------------------------------------------------

// commit persists the set and reconnects if it changed.
func (m *SubscriptionManager) commit() error {
	if err := m.persist(); err != nil {
		m.Logger.Error("Failed to persist subscriptions: %v", err)
	}
	return m.sync()
}

func (m *SubscriptionManager) persist() error {
	if m.State == nil {
		return nil
	}
	data, err := json.Marshal(m.Subscriptions())
	if err != nil {
		return err
	}
	return m.State.Set(models.StateKeySubscriptions, string(data))
}

// -----------------------------------------------------------------------------
// Connection handling
// -----------------------------------------------------------------------------

// sync reopens the stream when the subscription set differs from the set at
// the last connection open. Only the delta is backfilled.
func (m *SubscriptionManager) sync() error {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	m.mu.Lock()
	if m.rootCtx == nil {
		m.mu.Unlock()
		return nil
	}
	subs := append([]string(nil), m.subscriptions...)
	if m.conn != nil && sameSet(subs, m.connectedSet) {
		m.mu.Unlock()
		return nil
	}
	old := m.conn
	m.conn = nil
	m.generation++
	m.mu.Unlock()

	if old != nil {
		old.cancel()
		<-old.done
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delta := make([]string, 0, len(subs))
	for _, inst := range subs {
		_, pending := m.awaiting[inst]
		if pending || indexOf(m.connectedSet, inst) < 0 {
			delta = append(delta, inst)
			if !pending {
				m.awaiting[inst] = nil
			}
		}
	}

	m.connectedSet = subs
	if len(subs) == 0 {
		m.active = false
		return nil
	}

	m.generation++
	ctx, cancel := context.WithCancel(m.rootCtx)
	conn := &connection{gen: m.generation, cancel: cancel, done: make(chan struct{})}
	m.conn = conn

	m.Logger.Info("Opening stream for %v (backfill %v)", subs, delta)
	go m.run(ctx, conn, subs, delta)
	return nil
}

// -----------------------------------------------------------------------------

func (m *SubscriptionManager) run(ctx context.Context, conn *connection, subs, delta []string) {
	defer close(conn.done)

	var wg sync.WaitGroup
	defer wg.Wait()

	if len(delta) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.backfill(ctx, conn.gen, delta)
		}()
	}

	body, err := m.Server.OpenStream(ctx, subs)
	if err != nil {
		if ctx.Err() == nil {
			m.fail(conn.gen, err)
		}
		return
	}
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()
	defer body.Close()

	reader := NewStreamReader(body)
	for {
		ev, err := reader.Next()
		if err != nil {
			if ctx.Err() == nil {
				if errors.Is(err, io.EOF) {
					err = errStreamEnded
				}
				m.fail(conn.gen, err)
			}
			return
		}
		m.handle(conn.gen, ev)
	}
}

// -----------------------------------------------------------------------------

// backfill seeds the delta instruments, then replays their queued live candles.
func (m *SubscriptionManager) backfill(ctx context.Context, gen int64, delta []string) {
	series, err := Backfill(ctx, m.Server, delta, m.Retention, m.Now())
	if ctx.Err() != nil {
		return // superseded; the next connection backfills what is still awaiting
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return
	}
	if err != nil {
		m.Logger.Warning("Backfill failed for %v: %v", delta, err)
		m.lastError = err.Error()
	}

	for _, inst := range delta {
		queued, ok := m.awaiting[inst]
		if !ok {
			continue
		}
		m.Store.Seed(inst, series[inst])
		for _, c := range queued {
			m.Store.Append(c)
		}
		delete(m.awaiting, inst)
	}
}

// -----------------------------------------------------------------------------

// handle applies one stream event.
func (m *SubscriptionManager) handle(gen int64, ev RawEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return
	}

	switch ev.Event {
	case models.EventConnected:
		m.active = true
		m.lastError = ""

	case models.EventError:
		var payload models.MErrorPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			m.Logger.Warning("Unreadable error event: %v", err)
			return
		}
		m.lastError = payload.Message
		if payload.Status == http.StatusServiceUnavailable {
			m.marketClosed = true
			m.reopensAt = payload.ReopensAt
		}

	default:
		var c models.MCandle
		if err := json.Unmarshal(ev.Data, &c); err != nil {
			m.Logger.Warning("Unreadable candle for %s: %v", ev.Event, err)
			return
		}
		if c.Instrument == "" {
			c.Instrument = ev.Event
		}
		m.marketClosed = false
		m.reopensAt = 0

		if queued, ok := m.awaiting[c.Instrument]; ok {
			if len(queued) >= m.Retention {
				queued = queued[1:]
			}
			m.awaiting[c.Instrument] = append(queued, c)
			return
		}
		if indexOf(m.subscriptions, c.Instrument) < 0 {
			return
		}
		m.Store.Append(c)
	}
}

// -----------------------------------------------------------------------------

// fail marks the connection inactive. There is no automatic reconnect.
func (m *SubscriptionManager) fail(gen int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return
	}
	m.active = false
	m.lastError = err.Error()
	if closed, ok := helpers.IsMarketClosed(err); ok {
		m.marketClosed = true
		m.reopensAt = closed.ReopensAt.UnixMilli()
	}
	m.Logger.Warning("Stream inactive: %v", err)
}

// -----------------------------------------------------------------------------

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if indexOf(b, v) < 0 {
			return false
		}
	}
	return true
}
