package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirestream/internal/activity"
	"github.com/vovakirdan/wirestream/internal/config"
	"github.com/vovakirdan/wirestream/internal/core"
	"github.com/vovakirdan/wirestream/internal/fanout"
	applog "github.com/vovakirdan/wirestream/internal/log"
	"github.com/vovakirdan/wirestream/internal/media"
	"github.com/vovakirdan/wirestream/internal/media/livekit"
	"github.com/vovakirdan/wirestream/internal/presence"
	"github.com/vovakirdan/wirestream/internal/rooms"
	"github.com/vovakirdan/wirestream/internal/store"
	"github.com/vovakirdan/wirestream/internal/store/memory"
	"github.com/vovakirdan/wirestream/internal/store/redis"
	"github.com/vovakirdan/wirestream/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirestream/internal/transport/http"
)

// App wires together store, fanout, coordinator and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	fanout          *fanout.Fanout
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("backend", cfg.Store.Backend).Str("key_prefix", cfg.Store.KeyPrefix).Msg("store initialized")

	fanoutLog := applog.Component(logger, "fanout")
	backbone, err := openBackbone(cfg.Fanout, fanoutLog)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init fanout: %w", err)
	}

	hub := fanout.NewHub(fanoutLog)
	fan := fanout.New(hub, backbone, fanoutLog)
	if err := fan.Start(ctx); err != nil {
		_ = fan.Close()
		_ = st.Close()
		return nil, fmt.Errorf("start fanout: %w", err)
	}
	logger.Info().Str("backend", cfg.Fanout.Backend).Msg("fanout started")

	var engine media.Engine
	if cfg.Media.Enabled {
		engine = livekit.New(cfg.Media.APIKey, cfg.Media.APISecret, cfg.Media.URL, cfg.Media.TokenTTL)
		logger.Info().Str("url", cfg.Media.URL).Msg("media credentials enabled")
	}

	keys := store.NewKeys(cfg.Store.KeyPrefix)
	registry := rooms.NewRegistry(st, keys)
	coord := core.NewCoordinator(core.Deps{
		Rooms:         registry,
		Presence:      presence.NewTracker(st, keys, registry),
		Activity:      activity.NewLog(st, keys),
		Notifier:      fan,
		Media:         engine,
		AnnounceLeave: cfg.Activity.AnnounceLeave,
		Logger:        applog.Component(logger, "coordinator"),
	})

	server := transporthttp.NewServer(coord, hub, st, cfg, applog.Component(logger, "http"))

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		fanout:          fan,
		store:           st,
		log:             logger,
	}, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreRedis:
		return redis.New(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case config.StoreSQLite:
		return sqlite.New(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func openBackbone(cfg config.FanoutConfig, logger *zerolog.Logger) (fanout.Backbone, error) {
	switch cfg.Backend {
	case config.FanoutLocal:
		return fanout.NewLocalBackbone(), nil
	case config.FanoutNATS:
		return fanout.DialNATS(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
	default:
		return nil, fmt.Errorf("unknown fanout backend %q", cfg.Backend)
	}
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the fanout backbone and the store.
func (a *App) cleanup() {
	if a.fanout != nil {
		if err := a.fanout.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close fanout")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
