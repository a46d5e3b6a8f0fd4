package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	datasource "candle-stream/src/data_source"
	"candle-stream/src/helpers"
	"candle-stream/src/logger"
	"candle-stream/src/models"
	"candle-stream/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

type fakeQuotes struct{}

func (fakeQuotes) Name() string { return "fake" }

func (fakeQuotes) FetchQuote(ctx context.Context, instrument string) (models.MTick, error) {
	return models.MTick{Instrument: instrument, Timestamp: 120_000, Bid: 1.1, Ask: 1.2}, nil
}

type fakeHistory struct {
	mu       sync.Mutex
	requests []models.MHistoricalRequest
	err      error
}

func (f *fakeHistory) Candles(ctx context.Context, req models.MHistoricalRequest) ([]models.MCandle, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return []models.MCandle{{Instrument: req.Instrument, Period: 60, Timestamp: 60_000}}, nil
}

func (f *fakeHistory) Ticks(ctx context.Context, instrument string, start, end int64) ([]models.MTick, error) {
	return nil, nil
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) Candles(ctx context.Context, req models.MHistoricalRequest) ([]models.MCandle, error) {
	args := m.Called(req)
	candles, _ := args.Get(0).([]models.MCandle)
	return candles, args.Error(1)
}

func (m *mockHistory) Ticks(ctx context.Context, instrument string, start, end int64) ([]models.MTick, error) {
	args := m.Called(instrument, start, end)
	ticks, _ := args.Get(0).([]models.MTick)
	return ticks, args.Error(1)
}

func newTestServer(t *testing.T) (*StreamServer, *fakeHistory) {
	t.Helper()

	cfg := &models.MConfig{
		Name:    "candle-stream-test",
		Network: models.MNetworkConfig{ConcurrentRequests: 4},
		Stream: models.MStreamConfig{
			DelaySeconds:     1,
			PeriodSeconds:    60,
			ToleranceMillis:  1000,
			RecheckMillis:    50,
			KeepaliveSeconds: 15,
		},
	}
	registry := datasource.NewInstrumentRegistry([]models.MInstrument{
		{Name: "EUR/USD", ID: "1"},
		{Name: "GBP/USD", ID: "2"},
	})
	scheduler := utils.NewMarketScheduler("fx", nil)
	scheduler.Now = func() time.Time { return testNow }

	history := &fakeHistory{}
	s := NewStreamServer(cfg, logger.NewLogger(nil, "test"), fakeQuotes{}, history, registry, scheduler)
	s.Now = func() time.Time { return testNow }
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s, history
}

func get(s *StreamServer, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

// -----------------------------------------------------------------------------

func TestHistoricalSuccess(t *testing.T) {
	s, history := newTestServer(t)

	w := get(s, "/historical?instruments=EUR/USD,GBP/USD&timeFrame=1min&start=2024-01-10T10:00:00Z&end=1704884400000&count=10")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result map[string][]models.MCandle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Len(t, result, 2)
	assert.Equal(t, "GBP/USD", result["GBP/USD"][0].Instrument)

	require.Len(t, history.requests, 2)
	req := history.requests[0]
	assert.Equal(t, models.HistoricalMinute, req.TimeFrame)
	assert.Equal(t, int64(1704880800000), req.Start)
	assert.Equal(t, int64(1704884400000), req.End)
	assert.Equal(t, 10, req.Count)
}

func TestHistoricalValidation(t *testing.T) {
	cases := []struct {
		name    string
		query   string
		message string
	}{
		{"missing instruments", "timeFrame=1min", "instruments is required"},
		{"blank instruments", "instruments=,&timeFrame=1min", "comma separated"},
		{"missing timeFrame", "instruments=EUR/USD", "timeFrame is required"},
		{"unsupported timeFrame", "instruments=EUR/USD&timeFrame=5min", "unsupported timeFrame"},
		{"count too large", "instruments=EUR/USD&timeFrame=1min&count=6000", "count must be between"},
		{"future start", "instruments=EUR/USD&timeFrame=1min&start=1904880800000", "future"},
		{"start after end", "instruments=EUR/USD&timeFrame=1min&start=1704884400000&end=1704880800000", "before end"},
		{"bad start", "instruments=EUR/USD&timeFrame=1min&start=yesterday", "invalid start"},
		{"unknown instrument", "instruments=EUR/USD,NOPE&timeFrame=1min", "unknown instrument NOPE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, history := newTestServer(t)

			w := get(s, "/historical?"+tc.query)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, errorBody(t, w), tc.message)
			assert.Empty(t, history.requests)
		})
	}
}

func TestHistoricalUpstreamFailure(t *testing.T) {
	s, history := newTestServer(t)
	history.err = helpers.NewUpstreamError(http.StatusServiceUnavailable, "feed down", nil)

	w := get(s, "/historical?instruments=EUR/USD&timeFrame=1hour")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "feed down", errorBody(t, w))
}

func TestHistoricalOneRequestPerInstrument(t *testing.T) {
	s, _ := newTestServer(t)
	history := new(mockHistory)
	s.History = history

	history.On("Candles", models.MHistoricalRequest{Instrument: "EUR/USD", TimeFrame: models.HistoricalDay, Count: 3}).
		Return([]models.MCandle{{Instrument: "EUR/USD", Period: 86400}}, nil).Once()
	history.On("Candles", models.MHistoricalRequest{Instrument: "GBP/USD", TimeFrame: models.HistoricalDay, Count: 3}).
		Return(nil, nil).Once()

	w := get(s, "/historical?instruments=EUR/USD,GBP/USD,EUR/USD&timeFrame=1day&count=3")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"EUR/USD":[{"instrument":"EUR/USD","period":86400,"timestamp":0,
		"bid_open":0,"bid_high":0,"bid_low":0,"bid_close":0,
		"ask_open":0,"ask_high":0,"ask_low":0,"ask_close":0}],"GBP/USD":[]}`, w.Body.String())

	history.AssertExpectations(t)
}

func TestParseTimeParam(t *testing.T) {
	ms, err := parseTimeParam("")
	require.NoError(t, err)
	assert.Zero(t, ms)

	ms, err = parseTimeParam("1704880800000")
	require.NoError(t, err)
	assert.Equal(t, int64(1704880800000), ms)

	ms, err = parseTimeParam("2024-01-10T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, int64(1704873600000), ms)

	_, err = parseTimeParam("-5")
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestHealthAndConfig(t *testing.T) {
	s, _ := newTestServer(t)

	w := get(s, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Status      string   `json:"status"`
		Connections int      `json:"connections"`
		Instruments []string `json:"instruments"`
		MarketOpen  bool     `json:"market_open"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Zero(t, health.Connections)
	assert.Empty(t, health.Instruments)
	assert.True(t, health.MarketOpen)

	w = get(s, "/api/config")
	require.Equal(t, http.StatusOK, w.Code)
	var cfg struct {
		TimeFrames  []string             `json:"timeframes"`
		Instruments []models.MInstrument `json:"instruments"`
		Delay       int                  `json:"delay"`
		Period      int                  `json:"period"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Contains(t, cfg.TimeFrames, "1min")
	assert.Len(t, cfg.Instruments, 2)
	assert.Equal(t, 60, cfg.Period)
}

func TestRequestIDAndCORSHeaders(t *testing.T) {
	s, _ := newTestServer(t)

	w := get(s, "/api/health")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeaderKey))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/historical", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
