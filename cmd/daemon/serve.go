// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ManuGH/mediablock/internal/api"
	"github.com/ManuGH/mediablock/internal/block"
	"github.com/ManuGH/mediablock/internal/cache"
	"github.com/ManuGH/mediablock/internal/config"
	"github.com/ManuGH/mediablock/internal/grade"
	"github.com/ManuGH/mediablock/internal/health"
	mblog "github.com/ManuGH/mediablock/internal/log"
	"github.com/ManuGH/mediablock/internal/mediacms"
	"github.com/ManuGH/mediablock/internal/ratelimit"
	"github.com/ManuGH/mediablock/internal/store"
	"github.com/ManuGH/mediablock/internal/telemetry"
)

// serve wires the block service and runs it until ctx is cancelled.
func serve(ctx context.Context, cfg config.AppConfig, loader *config.Loader) error {
	logger := mblog.WithComponent("daemon")

	if err := health.PerformStartupChecks(cfg); err != nil {
		return fmt.Errorf("startup checks: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer shutdownWith(cfg.Server.ShutdownTimeout, "telemetry", tp.Shutdown)

	hm := health.NewManager(cfg.Version)

	descCache, closeCache, err := newCache(ctx, cfg.Cache, hm)
	if err != nil {
		return err
	}
	defer closeCache()

	client := mediacms.NewClient(mediacms.Options{
		Timeout:          cfg.MediaCMS.Timeout,
		Limiter:          ratelimit.New(limiterConfig(cfg.MediaCMS)),
		BreakerThreshold: cfg.MediaCMS.BreakerThreshold,
		BreakerReset:     cfg.MediaCMS.BreakerReset,
	})
	resolver := mediacms.NewResolver(client, descCache, cfg.Cache.TTL)

	backend, err := store.NewBackend(ctx, cfg.Store.Backend, storeDir(cfg.Store))
	if err != nil {
		return fmt.Errorf("open block store: %w", err)
	}
	st := store.New(backend, store.Settings{
		DisplayName:          store.DefaultDisplayName,
		MediaURL:             cfg.Block.DefaultMediaURL,
		CompletionPercentage: cfg.Block.DefaultCompletionPercentage,
	})
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("block store close failed")
		}
	}()
	hm.RegisterChecker(health.NewPingChecker("store", true, st.Ping))

	grades, err := grade.New(cfg.Grade)
	if err != nil {
		return err
	}
	defer func() { _ = grades.Close() }()
	hm.RegisterChecker(health.NewPingChecker("grade", false, grades.HealthCheck))

	blk := block.New(resolver, grades, block.Options{
		DefaultMediaURL:             cfg.Block.DefaultMediaURL,
		DefaultCompletionPercentage: cfg.Block.DefaultCompletionPercentage,
		PlayerBaseURL:               cfg.Block.PlayerBaseURL,
	})

	holder := config.NewHolder(cfg, loader)
	holder.OnReload(func(next config.AppConfig) {
		mblog.Configure(mblog.Config{Level: next.LogLevel, Service: next.LogService, Version: next.Version})
	})
	if err := holder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Msg("config watcher disabled")
	}
	defer holder.Stop()

	srv := api.New(cfg, api.Deps{Block: blk, Store: st, Health: hm}).HTTPServer()

	logger.Info().
		Str(mblog.FieldEvent, "startup").
		Str("version", cfg.Version).
		Str("addr", cfg.Server.ListenAddr).
		Str("store", cfg.Store.Backend).
		Str("cache", cfg.Cache.Backend).
		Str("grade", cfg.Grade.Backend).
		Str("default_media_url", maskURL(cfg.Block.DefaultMediaURL)).
		Bool("jwt", cfg.Auth.JWTSecret != "").
		Msg("starting mediablock")
	if cfg.Auth.JWTSecret == "" {
		logger.Warn().
			Str("security", "weak").
			Msgf("JWT secret not configured; user identity is taken from %s", cfg.Auth.UserHeader)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Str(mblog.FieldEvent, "shutdown").Msg("shutting down")
	shutdownWith(cfg.Server.ShutdownTimeout, "http", srv.Shutdown)
	return nil
}

// newCache builds the descriptor cache; the returned func releases it.
func newCache(ctx context.Context, cfg config.CacheConfig, hm *health.Manager) (cache.Cache, func(), error) {
	switch cfg.Backend {
	case "memory":
		c := cache.NewMemoryCache(time.Minute)
		return c, c.Stop, nil
	case "redis":
		c, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, mblog.WithComponent("cache"))
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		hm.RegisterChecker(health.NewPingChecker("cache", false, c.HealthCheck))
		return c, func() { _ = c.Close() }, nil
	default:
		return cache.NewNoOpCache(), func() {}, nil
	}
}

// limiterConfig maps the MediaCMS limits onto the per-origin bucket.
func limiterConfig(cfg config.MediaCMSConfig) ratelimit.Config {
	lc := ratelimit.DefaultConfig()
	lc.PerOriginRate = rate.Limit(cfg.RequestsPerSecond)
	lc.PerOriginBurst = cfg.Burst
	return lc
}

func storeDir(cfg config.StoreConfig) string {
	if cfg.Backend == "memory" {
		return ""
	}
	return cfg.Dir
}

func shutdownWith(timeout time.Duration, name string, fn func(context.Context) error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger := mblog.WithComponent("daemon")
		logger.Warn().Err(err).Str("target", name).Msg("shutdown incomplete")
	}
}
