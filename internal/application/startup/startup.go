// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bingocast/bingocast-go/internal/application/container"
	"github.com/bingocast/bingocast-go/internal/infrastructure/caching/cleanup"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/persistence/database"
	"github.com/bingocast/bingocast-go/internal/presentation/http/server"
	"github.com/bingocast/bingocast-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// Initialize performs the complete startup sequence and blocks until a
// shutdown signal arrives.
func Initialize() error {
	setupGin()
	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	logger, err := logging.NewChanneledLogger(nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()

	logger.Startup().Info("BingoCast starting")

	// Step 1: Dependency container (opens the database).
	appContainer, err := container.NewContainer(logger)
	if err != nil {
		return err
	}
	logger.Startup().Info("Database connected", "connection", appContainer.DB.GetConnectionInfo())

	// Step 2: Schema.
	if err := database.NewTableCreator().CreateSchema(appContainer.DB.Conn); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	logger.Startup().Info("Schema verified")

	// Step 3: Cache warming before traffic.
	warmStart := time.Now()
	if err := appContainer.CacheWarmer.WarmLiveEpisodes(ctx); err != nil {
		logger.Startup().Error("Cache warming failed", "error", err.Error(), "duration", time.Since(warmStart).String())
	}

	// Step 4: Background goroutines.
	go appContainer.Hub.Run()
	sweeper := cleanup.NewWorker(appContainer.Payments, logger)
	go sweeper.Start(ctx)

	// Step 5: HTTP server.
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start).String(), "port", config.Port)

	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	shutdownStart := time.Now()

	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped")
	}

	if err := appContainer.Close(); err != nil {
		logger.Shutdown().Error("Error closing database", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start).String(),
		"shutdownDuration", time.Since(shutdownStart).String())
	return nil
}

// setupGin configures framework logging behavior.
func setupGin() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
