package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	datasource "candle-stream/src/data_source"
	"candle-stream/src/interfaces"
	"candle-stream/src/logger"
	"candle-stream/src/models"
	"candle-stream/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// StreamServer
// -----------------------------------------------------------------------------

type StreamServer struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Quotes    interfaces.IQuoteSource
	History   interfaces.IHistoricalSource
	Registry  *datasource.InstrumentRegistry
	Scheduler *utils.MarketScheduler
	Now       func() time.Time

	engine     *gin.Engine
	httpServer *http.Server
	hub        *Hub
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewStreamServer(
	cfg *models.MConfig,
	log *logger.Logger,
	quotes interfaces.IQuoteSource,
	history interfaces.IHistoricalSource,
	registry *datasource.InstrumentRegistry,
	scheduler *utils.MarketScheduler,
) *StreamServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	registerValidations()

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &StreamServer{
		Config:     cfg,
		Logger:     log,
		Quotes:     quotes,
		History:    history,
		Registry:   registry,
		Scheduler:  scheduler,
		Now:        time.Now,
		engine:     gin.New(),
		hub:        NewHub(),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}

	s.engine.Use(gin.Recovery(), requestIDMiddleware(), requestLogMiddleware(log), corsMiddleware())

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *StreamServer) setupRoutes() {
	s.engine.GET("/historical", s.getHistorical)
	s.engine.GET("/realtime", s.handleRealtime)
	s.engine.GET("/ws", s.handleWebSocket)

	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/health", s.getHealth)
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mostly for tests.
func (s *StreamServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------

// Hub returns the registry of live stream pipelines
func (s *StreamServer) Hub() *Hub {
	return s.hub
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start blocks serving HTTP until Stop is called.
func (s *StreamServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop ends every stream pipeline, then shuts the listener down.
func (s *StreamServer) Stop(ctx context.Context) error {
	s.cancelBase()
	s.hub.StopAll()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *StreamServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timeframes":  models.SupportedHistoricalTimeFrames(),
		"instruments": s.Registry.Instruments(),
		"delay":       s.Config.Stream.DelaySeconds,
		"period":      s.Config.Stream.PeriodSeconds,
	})
}

// -----------------------------------------------------------------------------

func (s *StreamServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.hub.Count(),
		"instruments": s.hub.Instruments(),
		"market_open": s.Scheduler.IsOpen(),
	})
}
