// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mfreitag/cardvault/internal/models"
)

// ErrRunAlreadyClosed indicates a second terminal write was attempted on a
// run record. The ledger is append-only with exactly one terminal update per
// run.
var ErrRunAlreadyClosed = errors.New("sync run already closed")

// BeginRun creates an open run record, capturing the start time, and returns
// its id. Each run also gets a UUID correlation id for log threading.
func (db *DB) BeginRun(ctx context.Context, job string) (int64, error) {
	uid := uuid.New().String()

	var id int64
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO sync_runs (uid, job, started_at) VALUES ($1, $2, $3) RETURNING id`,
		uid, job, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to begin run for job %s: %w", job, err)
	}
	return id, nil
}

// CompleteRun closes a run record exactly once, capturing the finish time,
// the success flag, and the structured notes. A second call for the same run
// returns ErrRunAlreadyClosed; the record is never mutated again.
func (db *DB) CompleteRun(ctx context.Context, runID int64, ok bool, notes models.RunNotes) error {
	var notesArg any
	if notes != nil {
		data, err := json.Marshal(notes)
		if err != nil {
			return fmt.Errorf("failed to encode run notes: %w", err)
		}
		notesArg = data
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE sync_runs SET finished_at = $1, ok = $2, notes = $3
		 WHERE id = $4 AND finished_at IS NULL`,
		time.Now().UTC(), ok, notesArg, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run %d: %w", runID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check run completion: %w", err)
	}
	if affected == 0 {
		return ErrRunAlreadyClosed
	}
	return nil
}

// ListRuns returns the most recent run records, newest first, for the admin
// dashboard.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, uid, job, started_at, finished_at, ok, notes
		 FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []models.RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return records, nil
}

func scanRun(rows *sql.Rows) (models.RunRecord, error) {
	var (
		record     models.RunRecord
		finishedAt sql.NullTime
		ok         sql.NullBool
		notesData  []byte
	)
	if err := rows.Scan(&record.ID, &record.UID, &record.Job, &record.StartedAt, &finishedAt, &ok, &notesData); err != nil {
		return models.RunRecord{}, fmt.Errorf("failed to scan run record: %w", err)
	}
	if finishedAt.Valid {
		record.FinishedAt = &finishedAt.Time
	}
	if ok.Valid {
		record.OK = &ok.Bool
	}
	if len(notesData) > 0 {
		if err := json.Unmarshal(notesData, &record.Notes); err != nil {
			return models.RunRecord{}, fmt.Errorf("failed to decode run notes: %w", err)
		}
	}
	return record, nil
}
