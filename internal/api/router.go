// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

// Package api provides the HTTP surface of the sync service: the sync
// trigger endpoint, run ledger listing, health checks, and Prometheus
// metrics, routed with Chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mfreitag/cardvault/internal/config"
	"github.com/mfreitag/cardvault/internal/middleware"
)

// Router builds the HTTP handler tree.
type Router struct {
	cfg     *config.Config
	handler *Handler
}

// NewRouter creates a Router serving the given handler under the given
// configuration.
func NewRouter(cfg *config.Config, handler *Handler) *Router {
	return &Router{cfg: cfg, handler: handler}
}

// Setup configures all routes and middleware and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware: request ids, real client IPs, panic recovery, and
	// CORS. CORS is global so OPTIONS preflight always succeeds, before any
	// auth or rate limiting runs.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.Security.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", syncSecretHeader},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.Route("/health", func(r chi.Router) {
			r.Get("/live", router.handler.HealthLive)
			r.Get("/ready", router.handler.HealthReady)
		})

		// The sync trigger and ledger routes sit behind the shared-secret
		// gate and, unless disabled, per-IP rate limiting.
		r.Group(func(r chi.Router) {
			if !router.cfg.Security.RateLimitDisabled {
				r.Use(httprate.LimitByIP(
					router.cfg.Security.RateLimitReqs,
					router.cfg.Security.RateLimitWindow,
				))
			}
			r.Use(RequireSyncSecret(router.cfg.Security.SyncSecret))

			r.Post("/sync", router.handler.Sync)
			r.Options("/sync", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
			r.Get("/runs", router.handler.Runs)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
