package main

import (
	"candle-stream/src/client"
	datasource "candle-stream/src/data_source"
	"candle-stream/src/interfaces"
	"candle-stream/src/logger"
	"candle-stream/src/models"
	"candle-stream/src/network"
	"candle-stream/src/storage"
	"candle-stream/src/utils"
)

// -----------------------------------------------------------------------------

// setupStateStore opens the persisted client state based on config
func setupStateStore(config *models.MConfig, appLogger *logger.Logger) (interfaces.IStateStore, error) {
	dbLogger := logger.NewLogger(config, "StateStore")
	db, err := storage.NewStateStore(config, dbLogger)
	if err != nil {
		appLogger.Critical("Failed to init state store: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupPreferences loads theme, timezone and indicator settings
func setupPreferences(db interfaces.IStateStore, appLogger *logger.Logger) (*client.Preferences, error) {
	prefs := client.NewPreferences(db)
	if err := prefs.Load(); err != nil {
		appLogger.Critical("Failed to load preferences: %v", err)
		return nil, err
	}
	return prefs, nil
}

// -----------------------------------------------------------------------------

// setupRetention creates the per instrument candle buffers
func setupRetention(config *models.MConfig) *utils.RetentionStore {
	return utils.NewRetentionStore(config.Client.Retention, logger.NewLogger(config, "RetentionStore"))
}

// -----------------------------------------------------------------------------

// setupSubscriptions wires the server API and restores the subscription set
func setupSubscriptions(config *models.MConfig, store *utils.RetentionStore, db interfaces.IStateStore, appLogger *logger.Logger) (*client.SubscriptionManager, error) {
	networkManager := network.NewAsyncNetworkManager(config, logger.NewLogger(config, "NetworkManager"))
	api := client.NewAPIClient(config, networkManager)
	registry := datasource.NewInstrumentRegistry(config.Instruments)

	manager := client.NewSubscriptionManager(config, api, store, db, registry, logger.NewLogger(config, "Subscriptions"))
	if err := manager.Load(); err != nil {
		appLogger.Critical("Failed to restore subscriptions: %v", err)
		return nil, err
	}
	return manager, nil
}
