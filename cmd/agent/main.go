package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/self-ai-0084/selfailab-public/agent"
	"github.com/self-ai-0084/selfailab-public/app/logger"
)

func main() {
	cfg, err := agent.LoadConfig(os.Args[1:])
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("server", cfg.ServerAddr()).
		Str("client_id", cfg.ClientID).
		Dur("interval", cfg.Interval()).
		Msg("reporting agent started")

	agent.Bootstrap(cfg).Run(ctx)
	log.Info().Msg("reporting agent stopped")
}
