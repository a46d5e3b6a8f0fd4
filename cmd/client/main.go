package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"candle-stream/src/config"
	"candle-stream/src/logger"
)

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf, conf.Name+"-client")

	// 4. Setup Components
	db, err := setupStateStore(conf.MConfig, appLogger)
	if err != nil {
		os.Exit(1)
	}
	defer db.Close()

	prefs, err := setupPreferences(db, appLogger)
	if err != nil {
		os.Exit(1)
	}

	store := setupRetention(conf.MConfig)
	manager, err := setupSubscriptions(conf.MConfig, store, db, appLogger)
	if err != nil {
		os.Exit(1)
	}

	// Lifecycle Management
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Open the stream for the restored subscriptions
	if err := manager.Start(ctx); err != nil {
		appLogger.Critical("Failed to start subscriptions: %v", err)
	}
	appLogger.Info("Subscribed to %v (%s)", manager.Subscriptions(), prefs)

	// 6. Start control server
	grpcServer := startServers(conf, *configPath, manager, prefs, store, appLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	grpcServer.GracefulStop()
	manager.Close()
	appLogger.Info("Shutdown complete.")
}
