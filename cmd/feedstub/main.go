package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msto63/chainfeed/internal/stubserver"
	"github.com/msto63/chainfeed/internal/wire"
	coregrpc "github.com/msto63/chainfeed/pkg/core/grpc"
	"github.com/msto63/chainfeed/pkg/core/logging"
	"github.com/msto63/chainfeed/pkg/core/version"
)

type stubConfig struct {
	Server   coregrpc.ServerConfig
	Fixtures string
}

func main() {
	logger := logging.New("feedstub")
	logger.Info("Starting feed stub server", "version", version.Get("feedstub").String())

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	fx := stubserver.DefaultFixtures()
	if cfg.Fixtures != "" {
		fx, err = stubserver.LoadFixtures(cfg.Fixtures)
		if err != nil {
			logger.Error("Failed to load fixtures", "path", cfg.Fixtures, "error", err)
			os.Exit(1)
		}
	}

	srv := coregrpc.NewServer(cfg.Server)
	stubserver.New(fx).Register(srv.GRPCServer())
	for _, name := range stubserver.ServiceNames() {
		srv.SetServing(name, true)
	}

	if err := srv.StartAsync(); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}

	logger.Info("Feed stub server started",
		"address", srv.Address(),
		"blocks", len(fx.Blocks),
		"tickers", len(fx.Tickers),
		"ohlc", len(fx.Ohlc),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Stop(ctx)

	logger.Info("Feed stub server stopped")
	logging.CloseFiles()
}

func loadConfig() (stubConfig, error) {
	cfg := stubConfig{Server: coregrpc.DefaultServerConfig()}
	cfg.Server.Codec = wire.Codec{}

	if host := os.Getenv("FEEDSTUB_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("FEEDSTUB_PORT"); port != "" {
		if _, err := fmt.Sscanf(port, "%d", &cfg.Server.Port); err != nil {
			return cfg, fmt.Errorf("invalid FEEDSTUB_PORT %q: %w", port, err)
		}
	}
	cfg.Fixtures = os.Getenv("FEEDSTUB_FIXTURES")

	return cfg, nil
}
