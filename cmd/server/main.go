package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/vovakirdan/chatsync-server/internal/app"
	"github.com/vovakirdan/chatsync-server/internal/config"
	"github.com/vovakirdan/chatsync-server/internal/log"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "sqlite database path (overrides config)")
	flag.Parse()

	bootstrapLogger := log.New("info")

	cfg, resolvedPath, err := config.Load(bootstrapLogger, *configPath)
	if err != nil {
		bootstrapLogger.Fatal().Err(err).Str("path", resolvedPath).Msg("failed to load config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	logger := log.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build application")
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting chatsync server")
	if err := application.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("server stopped")
}
