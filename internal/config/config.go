// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

// Package config defines CardVault's configuration model and loads it with
// Koanf v2 from layered sources: built-in defaults, an optional YAML file,
// and environment variables (highest priority).
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root configuration for the CardVault server.
type Config struct {
	Upstream UpstreamConfig `koanf:"upstream"`
	Database DatabaseConfig `koanf:"database"`
	Sync     SyncConfig     `koanf:"sync"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// UpstreamConfig configures the upstream trading-card catalog API.
type UpstreamConfig struct {
	BaseURL string        `koanf:"base_url"` // e.g. https://api.pokemontcg.io/v2
	APIKey  string        `koanf:"api_key"`  // optional; sent as X-Api-Key when set
	Timeout time.Duration `koanf:"timeout"`  // per-request HTTP timeout

	// RequestsPerSecond paces outbound requests to stay under the upstream
	// rate limit. Zero disables pacing.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// SetsPageSize is the page size requested for the sets collection, which
	// is small enough upstream to fit in a single large page.
	SetsPageSize int `koanf:"sets_page_size"`
}

// DatabaseConfig configures the PostgreSQL store. The DSN carries a
// privileged credential and is used only server-side; it must never be
// exposed to a browser-facing caller.
type DatabaseConfig struct {
	URL             string        `koanf:"url"` // postgres:// DSN
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// SyncConfig configures the sync pipeline.
type SyncConfig struct {
	// PageSize is the default card page size when a trigger request does not
	// carry one. Bounded by the upstream maximum of 250.
	PageSize int `koanf:"page_size"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"` // read/write timeout
}

// SecurityConfig configures access to the sync trigger endpoint.
type SecurityConfig struct {
	// SyncSecret gates POST /api/v1/sync via the X-Sync-Secret header.
	// Empty means the endpoint is open (development only).
	SyncSecret string `koanf:"sync_secret"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig configures the logging package.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// maxCardPageSize is the largest page the upstream cards endpoint serves.
const maxCardPageSize = 250

// Validate checks the configuration for values that would make the server
// unusable at runtime. It is called by Load after all layers are merged.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if _, err := url.Parse(c.Upstream.BaseURL); err != nil {
		return fmt.Errorf("upstream.base_url is not a valid URL: %w", err)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive, got %s", c.Upstream.Timeout)
	}
	if c.Upstream.SetsPageSize < 1 || c.Upstream.SetsPageSize > maxCardPageSize {
		return fmt.Errorf("upstream.sets_page_size must be in 1..%d, got %d", maxCardPageSize, c.Upstream.SetsPageSize)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Sync.PageSize < 1 || c.Sync.PageSize > maxCardPageSize {
		return fmt.Errorf("sync.page_size must be in 1..%d, got %d", maxCardPageSize, c.Sync.PageSize)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	return nil
}

// Load loads the configuration from defaults, an optional config file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	return loadWithKoanf()
}
