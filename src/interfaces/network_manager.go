package interfaces

import "context"

// -----------------------------------------------------------------------------
// INetworkManager defines the contract for HTTP requests with potential proxy/retry logic.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// -----------------------------------------------------------------------------

	// Get performs a GET request to the specified URL with parameters.
	// Non-2xx answers come back as an UpstreamError carrying the status.
	Get(ctx context.Context, url string, params map[string]string) ([]byte, error)
}
