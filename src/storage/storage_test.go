package storage

import (
	"context"
	"path/filepath"
	"testing"

	"candle-stream/src/logger"
	"candle-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStateStore(t *testing.T) {
	cfg := &models.MConfig{
		Storage: models.MStorageConfig{DBType: "sqlite", DBPath: filepath.Join(t.TempDir(), "state.db")},
	}
	store, err := NewStateStore(cfg, logger.NewLogger(nil, "test"))
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get("theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("theme", "light"))
	require.NoError(t, store.Set("theme", "dark"))
	require.NoError(t, store.Set("subscriptions", `["EUR/USD"]`))

	value, ok, err := store.Get("theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", value)

	all, err := store.All()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"theme": "dark", "subscriptions": `["EUR/USD"]`}, all)
}

func TestSQLiteStateSurvivesReopen(t *testing.T) {
	cfg := &models.MConfig{
		Storage: models.MStorageConfig{DBType: "sqlite", DBPath: filepath.Join(t.TempDir(), "state.db")},
	}
	first, err := NewStateStore(cfg, logger.NewLogger(nil, "test"))
	require.NoError(t, err)
	require.NoError(t, first.Set("timezone", "120"))
	require.NoError(t, first.Close())

	second, err := NewStateStore(cfg, logger.NewLogger(nil, "test"))
	require.NoError(t, err)
	defer second.Close()

	value, ok, err := second.Get("timezone")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "120", value)
}

func TestNewStateStoreRejectsUnknownType(t *testing.T) {
	_, err := NewStateStore(&models.MConfig{Storage: models.MStorageConfig{DBType: "mongo"}}, logger.NewLogger(nil, "test"))
	assert.Error(t, err)
}

func TestPostgresSchemaName(t *testing.T) {
	db, err := NewPostgresDB(&models.MConfig{Name: "Candle Stream-Client"}, logger.NewLogger(nil, "test"))
	require.NoError(t, err)
	assert.Equal(t, "candle_stream_client", db.Schema)

	_, err = NewPostgresDB(&models.MConfig{Name: ""}, logger.NewLogger(nil, "test"))
	assert.Error(t, err)
}

func TestRedisCacheUnavailableIsAMiss(t *testing.T) {
	cfg := &models.MConfig{Cache: models.MCacheConfig{Enabled: true, Addr: "127.0.0.1:1", TTLSeconds: 60}}
	cache := NewRedisCache(cfg, logger.NewLogger(nil, "test"))
	defer cache.Close()

	require.NoError(t, cache.Set(context.Background(), "k", []byte("v")))

	_, ok, err := cache.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
