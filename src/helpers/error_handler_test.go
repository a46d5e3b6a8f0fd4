package helpers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", NewValidationError("bad %s", "count"), http.StatusBadRequest},
		{"unknown instrument", NewUnknownInstrumentError("FOO/BAR"), http.StatusBadRequest},
		{"market closed", NewMarketClosedError(time.Now()), http.StatusServiceUnavailable},
		{"upstream", NewUpstreamError(http.StatusNotFound, "missing", nil), http.StatusNotFound},
		{"upstream default", NewUpstreamError(0, "broken", nil), http.StatusBadGateway},
		{"wrapped", fmt.Errorf("fetch: %w", NewValidationError("x")), http.StatusBadRequest},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestMarketClosedCarriesReopenTime(t *testing.T) {
	at := time.Date(2024, 1, 7, 21, 0, 0, 0, time.UTC)
	err := fmt.Errorf("quote: %w", NewMarketClosedError(at))

	closed, ok := IsMarketClosed(err)
	require.True(t, ok)
	assert.Equal(t, at, closed.ReopensAt)
	assert.Equal(t, "Data not available", closed.Message)

	_, ok = IsMarketClosed(errors.New("other"))
	assert.False(t, ok)
}

func TestStreamErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewUpstreamError(502, "upstream unreachable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "upstream unreachable: connection reset", err.Error())
}

func TestIsTransportAbort(t *testing.T) {
	assert.True(t, IsTransportAbort(context.Canceled))
	assert.True(t, IsTransportAbort(fmt.Errorf("read: %w", context.Canceled)))
	assert.False(t, IsTransportAbort(context.DeadlineExceeded))
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	v, err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("not yet")
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffGivesUp(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), 2, time.Millisecond, func() (string, error) {
		calls++
		return "", errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 2, calls)
}

func TestRetryWithBackoffHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetryWithBackoff(ctx, 5, time.Hour, func() (int, error) {
		return 0, errors.New("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
