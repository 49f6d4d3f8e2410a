package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"aux_relay/internal/app"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	// 1. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx, configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	// 3. Serve subscribers, poll the feed and reap stale connections until signalled
	if err := bootstrap.Run(ctx); err != nil {
		slog.Error("❌ Relay stopped with error", slog.Any("error", err))
		bootstrap.Close()
		os.Exit(1)
	}
}
