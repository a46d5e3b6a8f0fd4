package interfaces

import "context"

// -----------------------------------------------------------------------------
// IStateStore persists small client-side values (subscriptions, preferences).
// -----------------------------------------------------------------------------

type IStateStore interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// Get returns the stored value and whether the key exists.
	Get(key string) (string, bool, error)

	// -----------------------------------------------------------------------------

	// Set upserts a value.
	Set(key, value string) error

	// -----------------------------------------------------------------------------

	// All returns every stored key/value pair.
	All() (map[string]string, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}

// -----------------------------------------------------------------------------
// IHistoricalCache memoises upstream historical responses.
// -----------------------------------------------------------------------------

type IHistoricalCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
