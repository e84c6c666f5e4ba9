package app

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/config"
	"github.com/roomcast/roomcast-server/internal/core"
	"github.com/roomcast/roomcast-server/internal/store/macrometa"
	transporthttp "github.com/roomcast/roomcast-server/internal/transport/http"
)

// App wires together the store client, core, and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	st := macrometa.New(macrometa.Options{
		BaseURL:        cfg.Store.BaseURL,
		APIKey:         cfg.Store.APIKey,
		Fabric:         cfg.Store.Fabric,
		RequestTimeout: cfg.Store.RequestTimeout,
		BatchSize:      cfg.Store.HistoryBatchSize,
		CursorTTL:      cfg.Store.CursorTTL,
	}, logger)

	logger.Info().
		Str("store_url", cfg.Store.BaseURL).
		Str("fabric", cfg.Store.Fabric).
		Msg("store client initialized")

	subs := core.NewSubscriptions()
	registry := core.NewRegistry(st, logger)
	relay := core.NewRelay(st, registry, subs, logger)
	server := transporthttp.NewServer(registry, relay, subs, st, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
