package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-dashboard/src/config"
	"market-dashboard/src/logger"
	"market-dashboard/src/storage"

	"github.com/jonboulle/clockwork"
)

// -----------------------------------------------------------------------------

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf.LogLevel, conf.Name)
	defer appLogger.Sync()

	clock := clockwork.NewRealClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Setup Components
	db, err := setupDatabase(conf.MConfig, appLogger)
	if err != nil {
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		go storage.RunRetention(ctx, db, clock, appLogger.Named("Retention"))
	}

	dash, providers, err := setupDashboard(conf.MConfig, db, clock, appLogger)
	if err != nil {
		appLogger.Critical("Failed to set up dashboard: %v", err)
		os.Exit(1)
	}

	// 5. Start change detection and warm the cache
	if err := dash.Start(ctx); err != nil {
		appLogger.Critical("Failed to start dashboard: %v", err)
		os.Exit(1)
	}

	// 6. Start Servers
	srv, grpcServer := startServers(conf.MConfig, dash, providers, appLogger)

	// 7. Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown failed: %v", err)
	}
}
