// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

package models

import "time"

// RunNotes carries the structured notes attached to a terminal run record.
// On success it holds processed counts (e.g. {"sets": 2, "cards": 5}); on
// failure a short human-readable message under "error". Kept as a free-form
// map so the admin dashboard can render whatever the pipeline recorded.
type RunNotes map[string]any

// RunRecord is one row of the append-only sync run ledger.
//
// Lifecycle: created at the start of a logical run, closed exactly once at
// its end (success or failure), never mutated again and never deleted by the
// pipeline. FinishedAt and OK are null while the run is in flight.
type RunRecord struct {
	ID         int64      `json:"id"`
	UID        string     `json:"uid"` // correlation id, threaded through logs
	Job        string     `json:"job"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	OK         *bool      `json:"ok,omitempty"`
	Notes      RunNotes   `json:"notes,omitempty"`
}
