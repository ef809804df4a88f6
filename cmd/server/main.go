// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

// Package main is the entry point for the Habitus server.
//
// Habitus is a self-hosted engagement and retention analytics engine for
// learning platforms. It aggregates user-exercise interaction events stored
// in DuckDB into a point-in-time dashboard: activity KPIs, retention
// cohorts, content performance, and user segments.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 loading (defaults, YAML file, env vars)
//  2. Logging: global zerolog logger
//  3. Database: DuckDB event store, schema creation, optional demo seed
//  4. Analytics engine: pure aggregation over the event store with an
//     optional TTL cache for whole overview payloads
//  5. HTTP server: Chi router exposing the dashboard API and /metrics
//
// # Configuration
//
// Settings load via environment variables (see internal/config), e.g.:
//
//	export DUCKDB_PATH=/data/habitus.duckdb
//	export HTTP_PORT=8470
//	export SEED_DEMO_DATA=true   # demo dashboard on a fresh install
//	./habitus
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops accepting
// new connections, waits for in-flight requests up to the configured
// timeout, then closes the database.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/habitus-analytics/habitus/internal/analytics"
	"github.com/habitus-analytics/habitus/internal/api"
	"github.com/habitus-analytics/habitus/internal/cache"
	"github.com/habitus-analytics/habitus/internal/config"
	"github.com/habitus-analytics/habitus/internal/database"
	"github.com/habitus-analytics/habitus/internal/logging"
	"github.com/habitus-analytics/habitus/internal/metrics"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Habitus")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close database")
		}
	}()

	store := database.NewStore(db)

	opts := []analytics.Option{}
	if cfg.Cache.Enabled {
		opts = append(opts, analytics.WithCache(cache.New(cfg.Cache.TTL), cfg.Cache.TTL))
	}
	engine := analytics.NewEngine(store, opts...)

	handler := api.NewHandler(engine, db, version)
	router := api.NewRouter(handler, &cfg.API)

	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
	startedAt := time.Now()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			metrics.AppUptime.Set(time.Since(startedAt).Seconds())
		}
	}()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown incomplete")
	}
	logging.Info().Msg("Habitus stopped")
}
