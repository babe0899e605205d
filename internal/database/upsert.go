// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"github.com/mfreitag/cardvault/internal/metrics"
	"github.com/mfreitag/cardvault/internal/models"
)

// maxStatementParams caps the bind parameters per statement, comfortably
// under PostgreSQL's 65535 limit. Larger batches are split.
const maxStatementParams = 60000

const setColumnCount = 10
const cardColumnCount = 14

// UpsertSets writes a batch of set rows with conflict-resolving semantics:
// rows whose id already exists are fully overwritten, new ids are inserted.
// Writing the same batch twice yields the same final state and is not an
// error. An empty batch is a no-op returning zero without touching the store.
func (db *DB) UpsertSets(ctx context.Context, rows []models.SetRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	maxRows := maxStatementParams / setColumnCount
	for start := 0; start < len(rows); start += maxRows {
		end := min(start+maxRows, len(rows))
		if err := db.upsertSetChunk(ctx, rows[start:end]); err != nil {
			return 0, err
		}
	}

	metrics.RecordRowsUpserted("card_sets", len(rows))
	return len(rows), nil
}

func (db *DB) upsertSetChunk(ctx context.Context, rows []models.SetRow) error {
	valuePlaceholders := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*setColumnCount)

	for i, row := range rows {
		valuePlaceholders = append(valuePlaceholders, rowPlaceholders(i, setColumnCount))

		images, err := documentArg(row.Images)
		if err != nil {
			return fmt.Errorf("failed to encode images for set %s: %w", row.ID, err)
		}
		legalities, err := documentArg(row.Legalities)
		if err != nil {
			return fmt.Errorf("failed to encode legalities for set %s: %w", row.ID, err)
		}
		raw, err := documentArg(row.Raw)
		if err != nil {
			return fmt.Errorf("failed to encode raw payload for set %s: %w", row.ID, err)
		}

		args = append(args,
			row.ID, row.Name, row.Series, row.ReleaseDate,
			row.PrintedTotal, row.Total,
			images, legalities, raw, row.SyncedAt,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO card_sets (id, name, series, release_date, printed_total, total, images, legalities, raw, synced_at)
		VALUES %s
		ON CONFLICT (id) DO UPDATE SET
			name          = EXCLUDED.name,
			series        = EXCLUDED.series,
			release_date  = EXCLUDED.release_date,
			printed_total = EXCLUDED.printed_total,
			total         = EXCLUDED.total,
			images        = EXCLUDED.images,
			legalities    = EXCLUDED.legalities,
			raw           = EXCLUDED.raw,
			synced_at     = EXCLUDED.synced_at`,
		strings.Join(valuePlaceholders, ", "))

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert %d sets: %w", len(rows), err)
	}
	return nil
}

// UpsertCards writes a batch of card rows with the same conflict-resolving,
// idempotent semantics as UpsertSets. set_id is written as-is, without
// validating that the referenced set exists.
func (db *DB) UpsertCards(ctx context.Context, rows []models.CardRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	maxRows := maxStatementParams / cardColumnCount
	for start := 0; start < len(rows); start += maxRows {
		end := min(start+maxRows, len(rows))
		if err := db.upsertCardChunk(ctx, rows[start:end]); err != nil {
			return 0, err
		}
	}

	metrics.RecordRowsUpserted("cards", len(rows))
	return len(rows), nil
}

func (db *DB) upsertCardChunk(ctx context.Context, rows []models.CardRow) error {
	valuePlaceholders := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*cardColumnCount)

	for i, row := range rows {
		valuePlaceholders = append(valuePlaceholders, rowPlaceholders(i, cardColumnCount))

		images, err := documentArg(row.Images)
		if err != nil {
			return fmt.Errorf("failed to encode images for card %s: %w", row.ID, err)
		}
		legalities, err := documentArg(row.Legalities)
		if err != nil {
			return fmt.Errorf("failed to encode legalities for card %s: %w", row.ID, err)
		}
		tcgplayer, err := documentArg(row.TCGPlayer)
		if err != nil {
			return fmt.Errorf("failed to encode tcgplayer for card %s: %w", row.ID, err)
		}
		cardmarket, err := documentArg(row.Cardmarket)
		if err != nil {
			return fmt.Errorf("failed to encode cardmarket for card %s: %w", row.ID, err)
		}
		raw, err := documentArg(row.Raw)
		if err != nil {
			return fmt.Errorf("failed to encode raw payload for card %s: %w", row.ID, err)
		}

		args = append(args,
			row.ID, row.Name, row.Number, row.SetID, row.Rarity, row.Supertype,
			pq.Array(row.Subtypes), pq.Array(row.Types),
			images, legalities, tcgplayer, cardmarket, raw, row.SyncedAt,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO cards (id, name, number, set_id, rarity, supertype, subtypes, types, images, legalities, tcgplayer, cardmarket, raw, synced_at)
		VALUES %s
		ON CONFLICT (id) DO UPDATE SET
			name       = EXCLUDED.name,
			number     = EXCLUDED.number,
			set_id     = EXCLUDED.set_id,
			rarity     = EXCLUDED.rarity,
			supertype  = EXCLUDED.supertype,
			subtypes   = EXCLUDED.subtypes,
			types      = EXCLUDED.types,
			images     = EXCLUDED.images,
			legalities = EXCLUDED.legalities,
			tcgplayer  = EXCLUDED.tcgplayer,
			cardmarket = EXCLUDED.cardmarket,
			raw        = EXCLUDED.raw,
			synced_at  = EXCLUDED.synced_at`,
		strings.Join(valuePlaceholders, ", "))

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert %d cards: %w", len(rows), err)
	}
	return nil
}

// rowPlaceholders builds "($1, $2, ...)" for row index i with the given
// column count.
func rowPlaceholders(i, columns int) string {
	parts := make([]string, columns)
	for c := 0; c < columns; c++ {
		parts[c] = fmt.Sprintf("$%d", i*columns+c+1)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// documentArg converts an opaque Document into a JSONB bind argument. A nil
// document becomes SQL NULL.
func documentArg(doc models.Document) (any, error) {
	if doc == nil {
		return nil, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return data, nil
}
