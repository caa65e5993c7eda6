package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ReviewScanner/internal/app"
	"ReviewScanner/internal/config"
	"ReviewScanner/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		os.Exit(1)
	}

	err = application.Run(ctx)
	application.Close()
	if err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
