package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"candle-stream/src/helpers"
	"candle-stream/src/interfaces"
	"candle-stream/src/logger"
	"candle-stream/src/models"
)

const (
	maxBodyBytes    = 16 << 20 // upstream response bodies
	maxErrorSnippet = 256      // body text kept on a non-2xx answer
)

type AsyncNetworkManager struct {
	Config       *models.MConfig
	ProxyManager interfaces.IProxyManager
	Client       *http.Client
	Logger       *logger.Logger
	mu           sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	var proxies []string
	if cfg.Network.Enabled {
		proxies = cfg.Network.Proxies
	}

	nm := &AsyncNetworkManager{
		Config:       cfg,
		ProxyManager: helpers.NewProxyManager(proxies, cfg.Network.UserAgent),
		Logger:       log,
	}
	nm.Client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) createClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if nm.ProxyManager.HasProxies() {
		proxyStr, err := nm.ProxyManager.GetCurrentProxy()
		if err == nil && proxyStr != "" {
			proxyURL, err := url.Parse(proxyStr)
			if err == nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(nm.Config.Network.RequestTimeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) rotateProxy() {
	if !nm.ProxyManager.HasProxies() {
		return
	}

	nm.ProxyManager.RotateProxy()
	client := nm.createClient()

	nm.mu.Lock()
	nm.Client = client
	nm.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) client() *http.Client {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.Client
}

// -----------------------------------------------------------------------------

// Get performs a GET request. Transport failures are retried with backoff and
// proxy rotation; a non-2xx answer is returned at once as an UpstreamError.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqURL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	reqURL.RawQuery = q.Encode()
	finalURL := reqURL.String()

	maxRetries := nm.Config.Network.MaxRetries
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(time.Duration(i*i) * 250 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			nm.rotateProxy()
		}

		body, retry, err := nm.do(ctx, finalURL)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}

		lastErr = err
		nm.Logger.Info("Request failed (attempt %d/%d): %v", i+1, maxRetries+1, err)
	}

	return nil, helpers.NewUpstreamError(http.StatusBadGateway, "upstream unreachable", lastErr)
}

// -----------------------------------------------------------------------------

// do performs one attempt and reports whether the failure is worth retrying.
func (nm *AsyncNetworkManager) do(ctx context.Context, finalURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", nm.ProxyManager.GetUserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := nm.client().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorSnippet))
		msg := fmt.Sprintf("upstream answered %d", resp.StatusCode)
		if text := strings.TrimSpace(string(snippet)); text != "" {
			msg += ": " + text
		}
		return nil, false, helpers.NewUpstreamError(resp.StatusCode, msg, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, true, err
	}

	return body, false, nil
}
