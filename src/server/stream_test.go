package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"candle-stream/src/client"
	"candle-stream/src/helpers"
	"candle-stream/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamParamValidation(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/realtime", "/ws"} {
		for _, query := range []string{"", "instruments=,", "instruments=EUR/USD&delay=0", "instruments=EUR/USD&delay=abc", "instruments=EUR/USD&period=-60"} {
			w := get(s, path+"?"+query)
			assert.Equal(t, http.StatusBadRequest, w.Code, "%s?%s", path, query)
		}
	}
	assert.Zero(t, s.Hub().Count())
}

func TestParseStreamParamsDefaults(t *testing.T) {
	s, _ := newTestServer(t)

	var params streamParams
	var err error
	s.engine.GET("/probe", func(c *gin.Context) {
		params, err = s.parseStreamParams(c)
	})
	get(s, "/probe?instruments=GBP/USD,NOPE,EUR/USD,GBP/USD")

	require.NoError(t, err)
	assert.Equal(t, []string{"GBP/USD", "EUR/USD"}, params.Instruments)
	assert.Equal(t, []string{"NOPE"}, params.Unknown)
	assert.Equal(t, time.Second, params.Delay)
	assert.Equal(t, int64(60), params.Period)
}

func TestRealtimeStream(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/realtime?instruments=EUR/USD,NOPE&delay=1&period=60", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := client.NewStreamReader(resp.Body)

	ev, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, models.EventConnected, ev.Event)
	var connected models.MConnectedPayload
	require.NoError(t, json.Unmarshal(ev.Data, &connected))
	assert.NotEmpty(t, connected.ID)

	ev, err = reader.Next()
	require.NoError(t, err)
	assert.Equal(t, models.EventError, ev.Event)
	var unknown models.MErrorPayload
	require.NoError(t, json.Unmarshal(ev.Data, &unknown))
	assert.Equal(t, "NOPE", unknown.Instrument)
	assert.Equal(t, http.StatusBadRequest, unknown.Status)

	ev, err = reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "EUR/USD", ev.Event)
	var candle models.MCandle
	require.NoError(t, json.Unmarshal(ev.Data, &candle))
	assert.Equal(t, int64(120_000), candle.Timestamp)
	assert.Equal(t, int64(60), candle.Period)
	assert.Equal(t, 1.1, candle.BidClose)

	assert.Equal(t, 1, s.Hub().Count())
	assert.Equal(t, []string{"EUR/USD"}, s.Hub().Instruments())

	cancel()
	require.Eventually(t, func() bool { return s.Hub().Count() == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestRealtimeAfterStop(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	require.NoError(t, s.Stop(context.Background()))

	resp, err := http.Get(srv.URL + "/realtime?instruments=EUR/USD")
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := client.NewStreamReader(resp.Body)
	ev, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, models.EventConnected, ev.Event)

	ev, err = reader.Next()
	require.NoError(t, err)
	assert.Equal(t, models.EventError, ev.Event)
	assert.Contains(t, string(ev.Data), "shutting down")
	assert.Zero(t, s.Hub().Count())
}

func TestWebSocketStream(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?instruments=EUR/USD,NOPE"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var frame struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}

	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, models.EventConnected, frame.Event)

	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, models.EventError, frame.Event)

	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "EUR/USD", frame.Event)
	var candle models.MCandle
	require.NoError(t, json.Unmarshal(frame.Data, &candle))
	assert.Equal(t, "EUR/USD", candle.Instrument)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.Hub().Count() == 0 }, 3*time.Second, 20*time.Millisecond)
}

// -----------------------------------------------------------------------------

func TestErrorEventMarketClosed(t *testing.T) {
	reopens := time.Date(2024, 1, 7, 21, 0, 0, 0, time.UTC)
	ev := ErrorEvent("EUR/USD", helpers.NewMarketClosedError(reopens))

	assert.Equal(t, models.EventError, ev.Event)
	payload, ok := ev.Data.(models.MErrorPayload)
	require.True(t, ok)
	assert.Equal(t, "Data not available", payload.Message)
	assert.Equal(t, http.StatusServiceUnavailable, payload.Status)
	assert.Equal(t, "EUR/USD", payload.Instrument)
	assert.Equal(t, reopens.UnixMilli(), payload.ReopensAt)
}

func TestPipelineProcessOrdersEvents(t *testing.T) {
	s, _ := newTestServer(t)
	p := s.newPipeline("p1", []string{"EUR/USD", "GBP/USD"}, time.Second, 60)

	batch := models.MQuoteBatch{
		Timestamp: 120_000,
		Results: []models.MQuoteResult{
			{Instrument: "EUR/USD", Tick: models.MTick{Instrument: "EUR/USD", Timestamp: 120_000, Bid: 1, Ask: 2}},
			{Instrument: "GBP/USD", Err: helpers.NewUpstreamError(http.StatusBadGateway, "Data not available", nil)},
			{Instrument: "XAU/USD", Err: context.Canceled},
		},
	}

	events := p.process(context.Background(), batch)

	require.Len(t, events, 2)
	assert.Equal(t, "EUR/USD", events[0].Event)
	assert.Equal(t, models.EventError, events[1].Event)
	payload := events[1].Data.(models.MErrorPayload)
	assert.Equal(t, "GBP/USD", payload.Instrument)
	assert.Equal(t, http.StatusBadGateway, payload.Status)
}

func TestPipelineStopClosesEvents(t *testing.T) {
	s, _ := newTestServer(t)
	p := s.newPipeline("p1", []string{"EUR/USD"}, time.Second, 60)
	p.Start(context.Background())

	select {
	case events := <-p.Events():
		require.Len(t, events, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no events")
	}

	p.Stop()
	p.Stop()

	for range p.Events() {
	}
	select {
	case <-p.Done():
	default:
		t.Fatal("pipeline not done after Stop")
	}
}

func TestHubRefusesAfterStopAll(t *testing.T) {
	s, _ := newTestServer(t)
	hub := NewHub()

	p := s.newPipeline("p1", []string{"EUR/USD"}, time.Second, 60)
	p.Start(context.Background())
	require.True(t, hub.Register(p))

	hub.StopAll()
	assert.Zero(t, hub.Count())
	assert.False(t, hub.Register(s.newPipeline("p2", nil, time.Second, 60)))

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("registered pipeline not stopped")
	}
}

type failingSink struct{ sent int }

func (f *failingSink) Send(ev models.MStreamEvent) error {
	f.sent++
	if f.sent > 1 {
		return errors.New("gone")
	}
	return nil
}

func TestGreetStopsOnSinkFailure(t *testing.T) {
	sink := &failingSink{}

	err := greet(sink, "id", []string{"A", "B"})

	assert.Error(t, err)
	assert.Equal(t, 2, sink.sent)
}
