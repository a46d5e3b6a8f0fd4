package storage

import (
	"fmt"

	"candle-stream/src/interfaces"
	"candle-stream/src/logger"
	"candle-stream/src/models"
)

// NewStateStore opens the backend selected by storage.db_type.
func NewStateStore(cfg *models.MConfig, log *logger.Logger) (interfaces.IStateStore, error) {
	var store interfaces.IStateStore

	switch cfg.Storage.DBType {
	case "sqlite":
		db, err := NewAsyncSQLiteDB(cfg, log)
		if err != nil {
			return nil, err
		}
		store = db
	case "postgres":
		db, err := NewPostgresDB(cfg, log)
		if err != nil {
			return nil, err
		}
		store = db
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Storage.DBType)
	}

	if err := store.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize %s store: %w", cfg.Storage.DBType, err)
	}
	return store, nil
}
