package helpers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type StreamError struct {
	Message string
	Cause   error
}

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// ValidationError is a bad or missing request parameter. Always a 400, never retried.
type ValidationError struct{ StreamError }

// UpstreamError is a non-2xx or malformed response from an external feed.
type UpstreamError struct {
	StreamError
	Status int
}

// MarketClosedError is returned for every quote fetch while the market is closed.
type MarketClosedError struct {
	StreamError
	ReopensAt time.Time
}

// UnknownInstrumentError is a lookup of an instrument outside the registry.
type UnknownInstrumentError struct {
	StreamError
	Instrument string
}

type ConfigurationError struct{ StreamError }
type DatabaseError struct{ StreamError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{StreamError{Message: fmt.Sprintf(format, args...)}}
}

func NewUpstreamError(status int, message string, cause error) error {
	if status == 0 {
		status = http.StatusBadGateway
	}
	return &UpstreamError{StreamError: StreamError{Message: message, Cause: cause}, Status: status}
}

func NewMarketClosedError(reopensAt time.Time) error {
	return &MarketClosedError{StreamError: StreamError{Message: "Data not available"}, ReopensAt: reopensAt}
}

func NewUnknownInstrumentError(instrument string) error {
	return &UnknownInstrumentError{
		StreamError: StreamError{Message: fmt.Sprintf("unknown instrument %s", instrument)},
		Instrument:  instrument,
	}
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// HTTPStatus maps an error onto the status reported to clients.
func HTTPStatus(err error) int {
	var validationErr *ValidationError
	var unknownErr *UnknownInstrumentError
	var closedErr *MarketClosedError
	var upstreamErr *UpstreamError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr), errors.As(err, &unknownErr):
		return http.StatusBadRequest
	case errors.As(err, &closedErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &upstreamErr):
		return upstreamErr.Status
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// IsMarketClosed reports whether err carries a MarketClosedError.
func IsMarketClosed(err error) (*MarketClosedError, bool) {
	var closedErr *MarketClosedError
	if errors.As(err, &closedErr) {
		return closedErr, true
	}
	return nil, false
}

// IsTransportAbort reports whether err is a client-side teardown rather than a failure.
func IsTransportAbort(err error) bool {
	return errors.Is(err, context.Canceled)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff[T any](ctx context.Context, maxRetries int, baseDelay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if maxRetries <= 0 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}
