package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/kiko-social-backend/api/routes"
	"github.com/angelmondragon/kiko-social-backend/internal/access"
	"github.com/angelmondragon/kiko-social-backend/internal/analytics"
	"github.com/angelmondragon/kiko-social-backend/internal/feed"
	"github.com/angelmondragon/kiko-social-backend/internal/profiles"
	"github.com/angelmondragon/kiko-social-backend/internal/session"
	"github.com/angelmondragon/kiko-social-backend/internal/users"
	"github.com/angelmondragon/kiko-social-backend/pkg/config"
	"github.com/angelmondragon/kiko-social-backend/pkg/db"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
	"github.com/angelmondragon/kiko-social-backend/pkg/metrics"
	"github.com/angelmondragon/kiko-social-backend/pkg/migrate"
	"github.com/angelmondragon/kiko-social-backend/pkg/redis"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
	"github.com/angelmondragon/kiko-social-backend/pkg/store/memory"
)

const shutdownTimeout = 10 * time.Second

type recordBackend struct {
	store   store.Store
	pinger  store.Pinger
	redis   *redis.Client
	closers []func() error
}

func (b *recordBackend) Close() error {
	var err error
	for _, closeFn := range b.closers {
		err = multierr.Append(err, closeFn())
	}
	return err
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap record store", err)
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logg.Error(context.Background(), "error closing record store", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	feedMetrics := metrics.NewFeedMetrics(reg)

	svcs, err := buildServices(cfg, logg, backend.store, feedMetrics)
	if err != nil {
		logg.Error(ctx, "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"addr":  addr,
		"store": cfg.Store.Backend,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, backend.pinger, backend.redis, reg, svcs),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(logCtx, "graceful shutdown failed", err)
	}
}

// openBackend selects the record store adapter. The redis client doubles as
// the post rate limiter when the redis backend is active.
func openBackend(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*recordBackend, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		st := memory.New()
		logg.Warn(ctx, "using in-memory record store; data is lost on restart")
		return &recordBackend{store: st, pinger: st}, nil

	case config.StoreBackendRedis:
		client, err := redis.New(ctx, cfg.Redis, cfg.Store.Namespace, logg)
		if err != nil {
			return nil, err
		}
		st := redis.NewRecordStore(client, nil)
		return &recordBackend{store: st, pinger: st, redis: client, closers: []func() error{client.Close}}, nil

	case config.StoreBackendSQL:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, err
		}
		if err := migrate.MaybeRun(ctx, cfg, logg, client, migrate.DefaultDir); err != nil {
			return nil, multierr.Append(err, client.Close())
		}
		st := db.NewRecordStore(client, nil)
		backend := &recordBackend{store: st, pinger: st, closers: []func() error{client.Close}}

		if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
			limiter, err := redis.New(ctx, cfg.Redis, cfg.Store.Namespace, logg)
			if err != nil {
				return nil, multierr.Append(err, backend.Close())
			}
			backend.redis = limiter
			backend.closers = append(backend.closers, limiter.Close)
		}
		return backend, nil
	}
	return nil, errors.New("unsupported store backend " + cfg.Store.Backend)
}

func buildServices(cfg *config.Config, logg *logger.Logger, st store.Store, feedMetrics *metrics.FeedMetrics) (routes.Services, error) {
	profileSvc, err := profiles.NewService(profiles.ServiceParams{
		Store:   st,
		Avatars: profiles.NewAvatars(cfg.Avatar),
		Logger:  logg,
		Metrics: feedMetrics,
	})
	if err != nil {
		return routes.Services{}, err
	}
	accessSvc, err := access.NewService(access.ServiceParams{
		Store:    st,
		Profiles: profileSvc,
		Logger:   logg,
		Metrics:  feedMetrics,
	})
	if err != nil {
		return routes.Services{}, err
	}
	feedSvc, err := feed.NewService(feed.ServiceParams{
		Store:    st,
		Profiles: profileSvc,
		Access:   accessSvc,
		Config:   cfg.Feed,
		Logger:   logg,
		Metrics:  feedMetrics,
	})
	if err != nil {
		return routes.Services{}, err
	}
	sessionSvc, err := session.NewService(session.ServiceParams{
		Access:   accessSvc,
		Profiles: profileSvc,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}
	usersSvc, err := users.NewService(users.ServiceParams{
		Repo:           users.NewRepository(st),
		Access:         accessSvc,
		Profiles:       profileSvc,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Services{}, err
	}
	analyticsSvc, err := analytics.NewService(analytics.ServiceParams{
		Store:    st,
		Access:   accessSvc,
		Profiles: profileSvc,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Access:    accessSvc,
		Profiles:  profileSvc,
		Feed:      feedSvc,
		Session:   sessionSvc,
		Users:     usersSvc,
		Analytics: analyticsSvc,
	}, nil
}
