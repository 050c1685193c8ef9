package main

import (
	"fmt"
	"net"

	"market-dashboard/src/dashboard"
	"market-dashboard/src/grpc_control"
	"market-dashboard/src/logger"
	"market-dashboard/src/models"
	"market-dashboard/src/server"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

// startServers starts the HTTP server and, when grpc_port is set, the
// control service.
func startServers(cfg *models.MConfig, dash *dashboard.Dashboard, p providers, appLogger *logger.Logger) (*server.Server, *grpc.Server) {
	// 1. HTTP + WebSocket
	srv := server.NewServer(cfg, dash, p.Music, appLogger.Named("Server"))
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	if cfg.GrpcPort == 0 {
		return srv, nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		appLogger.Critical("Failed to listen for gRPC on %s: %v", addr, err)
		return srv, nil
	}

	grpcServer := grpc.NewServer()
	grpc_control.RegisterControlServer(grpcServer, grpc_control.NewControlService(dash, appLogger.Named("ControlService")))
	go func() {
		appLogger.Info("Starting gRPC Control Server on %s", addr)
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Critical("Failed to serve gRPC: %v", err)
		}
	}()
	return srv, grpcServer
}
