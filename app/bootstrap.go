package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/self-ai-0084/selfailab-public/app/collector"
	"github.com/self-ai-0084/selfailab-public/app/handlers"
	"github.com/self-ai-0084/selfailab-public/app/logger"
	"github.com/self-ai-0084/selfailab-public/app/services"
)

const shutdownTimeout = 5 * time.Second

// App represents the monitor server
type App struct {
	Config    *Config
	Registry  *services.RegistryService
	Collector *collector.Listener
	Router    *gin.Engine

	server       *http.Server
	httpListener net.Listener
	logger       zerolog.Logger
}

// Bootstrap wires the server and binds both listeners. A bind failure is
// returned so the process never runs with only one of them.
func Bootstrap(cfg *Config) (*App, error) {
	gin.SetMode(gin.ReleaseMode)

	registry := services.NewRegistryService(cfg.OfflineAfterSeconds, nil)

	listener := collector.NewListener(collector.ListenerConfig{
		Addr:         cfg.TCPAddr(),
		MaxLineBytes: cfg.MaxLineBytes,
		IdleTimeout:  cfg.IdleTimeout(),
	}, registry, logger.WithComponent("collector"))

	router := handlers.NewRouter(handlers.RouterConfig{
		AllowOrigins: cfg.CORSOrigins,
	}, registry, logger.WithComponent("http"))

	if err := listener.Listen(); err != nil {
		return nil, fmt.Errorf("failed to start TCP collector: %w", err)
	}

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr())
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to start HTTP server on %s: %w", cfg.HTTPAddr(), err)
	}

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &App{
		Config:       cfg,
		Registry:     registry,
		Collector:    listener,
		Router:       router,
		server:       server,
		httpListener: httpListener,
		logger:       logger.WithComponent("server"),
	}, nil
}

// HTTPAddr returns the bound HTTP address
func (a *App) HTTPAddr() net.Addr {
	return a.httpListener.Addr()
}

// Run serves until ctx is cancelled or one of the servers fails
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Collector.Serve(ctx)
	})

	g.Go(func() error {
		a.logger.Info().Str("addr", a.httpListener.Addr().String()).Msg("HTTP dashboard listening")
		if err := a.server.Serve(a.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info().Msg("shutting down")
		a.Collector.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn().Err(err).Msg("http shutdown error")
		}
		return nil
	})

	if a.Config.StatsIntervalSec > 0 {
		g.Go(func() error {
			a.reportStats(ctx, time.Duration(a.Config.StatsIntervalSec)*time.Second)
			return nil
		})
	}

	return g.Wait()
}

// reportStats periodically logs fleet and collector counters
func (a *App) reportStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			view := a.Registry.View()
			stats := a.Collector.Stats()
			a.logger.Info().
				Int("clients", len(view.Clients)).
				Int("online", view.OnlineCount()).
				Int64("active_connections", stats.ActiveConnections).
				Int64("messages_accepted", stats.MessagesAccepted).
				Int64("messages_rejected", stats.MessagesRejected).
				Str("received", humanize.Bytes(uint64(stats.BytesReceived))).
				Msg("fleet stats")
		}
	}
}
