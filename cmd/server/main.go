// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

// Package main is the entry point for the CardVault server.
//
// CardVault replicates an upstream trading-card catalog (sets and cards)
// into a local PostgreSQL store so the storefront can query it without
// depending on the upstream API's availability, rate limits, or latency.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered loading (env > config.yaml > defaults)
//  2. Logging: zerolog, JSON by default
//  3. Database: PostgreSQL pool (lib/pq) with idempotent schema bootstrap
//  4. Catalog client: upstream API reader with request pacing
//  5. Orchestrator: the step/cursor sync state machine
//  6. HTTP server: Chi router with the sync trigger, ledger, health, and
//     Prometheus metrics endpoints
//
// # Configuration
//
// Required:
//   - DATABASE_URL: postgres:// DSN (privileged, server-side only)
//
// Common:
//   - UPSTREAM_API_URL: catalog API base URL (default pokemontcg.io v2)
//   - UPSTREAM_API_KEY: optional upstream API key (X-Api-Key)
//   - SYNC_SECRET: shared secret gating POST /api/v1/sync
//   - SYNC_PAGE_SIZE: card page size, 1..250 (default 250)
//   - LOG_LEVEL, LOG_FORMAT: logging configuration
//
// # Sync invocation modes
//
// POST /api/v1/sync with no body runs the whole import in one call (driver
// mode). POST with {"step": "...", "page": n, "pageSize": n} performs one
// step and returns the next cursor (continuation mode) for hosts with a hard
// per-call time limit; the caller replays the returned cursor until done.
//
// # Signal Handling
//
// Graceful shutdown on SIGINT and SIGTERM: stop accepting connections, drain
// in-flight requests (10s budget), then close the database pool.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfreitag/cardvault/internal/api"
	"github.com/mfreitag/cardvault/internal/catalog"
	"github.com/mfreitag/cardvault/internal/config"
	"github.com/mfreitag/cardvault/internal/database"
	"github.com/mfreitag/cardvault/internal/logging"
	"github.com/mfreitag/cardvault/internal/syncer"
)

// shutdownTimeout bounds how long in-flight requests may drain on shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Default logger; configured logging is not available yet.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	client := catalog.NewClient(&cfg.Upstream)
	orchestrator := syncer.New(client, db, db, syncer.WithPageSize(cfg.Sync.PageSize))

	handler := api.NewHandler(orchestrator, db, db)
	router := api.NewRouter(cfg, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("CardVault server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logging.Error().Err(err).Msg("HTTP server failed")
		os.Exit(1)
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("HTTP server shutdown incomplete")
	}
	logging.Info().Msg("CardVault server stopped")
}
