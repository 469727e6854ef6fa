package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kbweb/infrastructure/config"
	"kbweb/infrastructure/di"

	"go.uber.org/zap"
)

// agents runs the knowledge base agents without the editor HTTP surface
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	logger := container.Logger
	logger.Info("Starting agents", zap.String("graphService", cfg.GraphService.URL))

	runErr := container.Runner.Run(ctx)
	if runErr != nil {
		logger.Error("Agents stopped", zap.Error(runErr))
	}

	cleanup()
	_ = logger.Sync()

	if runErr != nil {
		os.Exit(1)
	}
}
