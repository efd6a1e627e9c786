package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/self-ai-0084/selfailab-public/app"
	"github.com/self-ai-0084/selfailab-public/app/logger"
)

func main() {
	cfg, err := app.LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		l := logger.Get()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	if err := logger.Init(cfg.Log); err != nil {
		l := logger.Get()
		l.Fatal().Err(err).Msg("failed to initialize logger")
	}
	log := logger.WithComponent("main")

	server, err := app.Bootstrap(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("tcp", server.Collector.Addr().String()).
		Str("http", server.HTTPAddr().String()).
		Int("offline_after_seconds", cfg.OfflineAfterSeconds).
		Msg("monitor server started")

	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}
