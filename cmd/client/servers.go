package main

import (
	"fmt"
	"net"

	"candle-stream/src/analysis"
	"candle-stream/src/client"
	"candle-stream/src/config"
	pb "candle-stream/src/grpc_control"
	"candle-stream/src/logger"
	"candle-stream/src/utils"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// -----------------------------------------------------------------------------

// startServers starts the gRPC control server with the health service
func startServers(
	config *config.Config,
	configPath string,
	manager *client.SubscriptionManager,
	prefs *client.Preferences,
	store *utils.RetentionStore,
	appLogger *logger.Logger,
) *grpc.Server {
	grpcServer := grpc.NewServer()

	analyzer := analysis.NewAnalysisFacade(logger.NewLogger(config, "Analysis"))
	controlService := pb.NewControlService(config, configPath, manager, prefs, store, analyzer, logger.NewLogger(config, "ControlService"))
	pb.RegisterClientControlServer(grpcServer, controlService)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	go func() {
		port := config.GrpcPort
		if port == 0 {
			port = 50051 // Default fallback
		}
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", config.GrpcHost, port))
		if err != nil {
			appLogger.Critical("failed to listen for gRPC: %v", err)
			return
		}

		appLogger.Info("Starting gRPC Control Server on %s:%d", config.GrpcHost, port)
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Critical("failed to serve gRPC: %v", err)
		}
	}()

	return grpcServer
}
