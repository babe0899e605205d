// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

// Package database is the PostgreSQL data access layer: the idempotent
// conflict-resolving writer for the replicated catalog tables and the
// append-only run ledger.
//
// The storefront application owns the real schema migrations; this package
// only bootstraps the tables it writes to so a fresh deployment is usable,
// and otherwise treats the store as a write target with known columns and a
// conflict key.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/mfreitag/cardvault/internal/config"
)

// DB wraps the PostgreSQL connection and provides data access methods. It is
// constructed once at process start (or per request where the host demands
// it) and passed down explicitly to the components that need it.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens a PostgreSQL connection pool, verifies connectivity, and
// bootstraps the schema.
func New(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	conn, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	db := &DB{conn: conn, cfg: cfg}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.createTables(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Conn returns the underlying SQL connection pool for callers that need
// direct access.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping checks that the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close closes the connection pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// closeQuietly closes a connection where the caller is already returning a
// more useful error.
func closeQuietly(conn *sql.DB) {
	_ = conn.Close()
}
