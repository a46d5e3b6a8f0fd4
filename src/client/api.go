package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"candle-stream/src/helpers"
	"candle-stream/src/interfaces"
	"candle-stream/src/models"
)

// APIClient talks to the candle server: bulk history through the shared
// network manager, the live stream over a plain long lived request.
type APIClient struct {
	BaseURL string
	Network interfaces.INetworkManager
	Stream  *http.Client
	Delay   int
	Period  int
}

// -----------------------------------------------------------------------------

func NewAPIClient(cfg *models.MConfig, netMgr interfaces.INetworkManager) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(cfg.Client.ServerURL, "/"),
		Network: netMgr,
		Stream:  &http.Client{}, // no timeout: the body stays open for the life of the stream
		Delay:   cfg.Stream.DelaySeconds,
		Period:  cfg.Stream.PeriodSeconds,
	}
}

// -----------------------------------------------------------------------------

// Historical loads count candles of tf per instrument ending at end (epoch ms,
// zero for "latest").
func (a *APIClient) Historical(ctx context.Context, instruments []string, tf models.HistoricalTimeFrame, end int64, count int) (map[string][]models.MCandle, error) {
	params := map[string]string{
		"instruments": strings.Join(instruments, ","),
		"timeFrame":   string(tf),
		"count":       strconv.Itoa(count),
	}
	if end > 0 {
		params["end"] = strconv.FormatInt(end, 10)
	}

	body, err := a.Network.Get(ctx, a.BaseURL+"/historical", params)
	if err != nil {
		return nil, err
	}

	var out map[string][]models.MCandle
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, helpers.NewUpstreamError(http.StatusBadGateway, "malformed historical response", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// OpenStream opens /realtime for the given instruments. The caller owns the
// returned body.
func (a *APIClient) OpenStream(ctx context.Context, instruments []string) (io.ReadCloser, error) {
	q := url.Values{}
	q.Set("instruments", strings.Join(instruments, ","))
	if a.Delay > 0 {
		q.Set("delay", strconv.Itoa(a.Delay))
	}
	if a.Period > 0 {
		q.Set("period", strconv.Itoa(a.Period))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/realtime?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := a.Stream.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
		return nil, helpers.NewUpstreamError(resp.StatusCode, fmt.Sprintf("stream refused: %s", payload.Error), nil)
	}
	return resp.Body, nil
}
