// Command kvserver bootstraps the KV/pub-sub server: load config, build the
// logger, storage, broadcaster, and dispatcher, start the listener, and
// wait for a shutdown signal. Grounded in
// go-server-3/cmd/odin-ws/main.go's bootstrap/signal-handling shape.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"odin-kv-server/internal/bridge"
	"odin-kv-server/internal/broker"
	"odin-kv-server/internal/config"
	"odin-kv-server/internal/dispatch"
	"odin-kv-server/internal/logging"
	"odin-kv-server/internal/metrics"
	"odin-kv-server/internal/server"
	"odin-kv-server/internal/storage"
	"odin-kv-server/internal/sysmetrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() // nolint:errcheck

	registry := metrics.NewRegistry()
	store := storage.NewMemoryStore(cfg.Storage.ShardCount)
	broadcaster := broker.New()
	dispatcher := dispatch.New(store, broadcaster)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := sysmetrics.NewCollector(registry, broadcaster, 0)
	go collector.Run(ctx)

	var natsBridge *bridge.Bridge
	if cfg.BridgeEnabled() {
		natsBridge, err = bridge.Connect(cfg.Bridge, broadcaster, logger)
		if err != nil {
			logger.Fatal("nats bridge connect failed", zap.Error(err))
		}
		defer natsBridge.Close()
	}

	srv := server.New(cfg, logger, dispatcher, registry)
	if err := srv.Start(ctx); err != nil {
		logger.Fatal("server start failed", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")
	srv.Stop()
	logger.Info("server stopped")
}
