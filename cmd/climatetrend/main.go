package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ClimateTrend/internal/app"
	"ClimateTrend/internal/config"
	"ClimateTrend/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if closeErr := application.Close(); closeErr != nil {
		logger.Error("shutdown", "error", closeErr)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("application stopped", "error", runErr)
		os.Exit(1)
	}
}
