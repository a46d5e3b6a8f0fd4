package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"candle-stream/src/config"
	datasource "candle-stream/src/data_source"
	"candle-stream/src/data_source/dukascopy"
	"candle-stream/src/data_source/swissquote"
	"candle-stream/src/interfaces"
	"candle-stream/src/logger"
	"candle-stream/src/network"
	"candle-stream/src/server"
	"candle-stream/src/storage"
	"candle-stream/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config, config.Name)

	// 1. Shared components
	var networkManager interfaces.INetworkManager = network.NewAsyncNetworkManager(config.MConfig, logger.NewLogger(config, "NetworkManager"))
	registry := datasource.NewInstrumentRegistry(config.Instruments)
	scheduler := utils.NewMarketScheduler(config.Market.Calendar, logger.NewLogger(config, "MarketScheduler"))

	// 2. Optional historical response cache
	var cache interfaces.IHistoricalCache
	if config.Cache.Enabled {
		redisCache := storage.NewRedisCache(config.MConfig, logger.NewLogger(config, "RedisCache"))
		defer redisCache.Close()
		cache = redisCache
	}

	// 3. Upstream feeds
	quotes := swissquote.NewSwissquoteSource(config.MConfig, networkManager, registry, scheduler)
	history := dukascopy.NewDukascopySource(config.MConfig, networkManager, registry, cache)

	// 4. HTTP server
	srv := server.NewStreamServer(config.MConfig, logger.NewLogger(config, "StreamServer"), quotes, history, registry, scheduler)

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	appLogger.Info("Serving %d instruments (market open: %v)", len(registry.Names()), scheduler.IsOpen())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		appLogger.Error("Shutdown error: %v", err)
	}
	appLogger.Info("Shutdown complete.")
}
