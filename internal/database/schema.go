// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

package database

import (
	"context"
	"fmt"
)

// schemaStatements bootstraps the three tables this service writes. The
// external id is the primary key and conflict target on both catalog tables.
// cards.set_id deliberately carries no foreign key: upstream cards may
// reference a set not yet written, or never written, and that is accepted.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS card_sets (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT '',
		series        TEXT NOT NULL DEFAULT '',
		release_date  TEXT NOT NULL DEFAULT '',
		printed_total DOUBLE PRECISION,
		total         DOUBLE PRECISION,
		images        JSONB,
		legalities    JSONB,
		raw           JSONB,
		synced_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cards (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		number     DOUBLE PRECISION,
		set_id     TEXT NOT NULL DEFAULT '',
		rarity     TEXT NOT NULL DEFAULT '',
		supertype  TEXT NOT NULL DEFAULT '',
		subtypes   TEXT[],
		types      TEXT[],
		images     JSONB,
		legalities JSONB,
		tcgplayer  JSONB,
		cardmarket JSONB,
		raw        JSONB,
		synced_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sync_runs (
		id          BIGSERIAL PRIMARY KEY,
		uid         TEXT NOT NULL,
		job         TEXT NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		ok          BOOLEAN,
		notes       JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cards_set_id ON cards (set_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs (started_at DESC)`,
}

// createTables runs the idempotent schema bootstrap.
func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
