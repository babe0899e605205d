// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

/*
Package models defines the data structures shared across the service.

Model Categories:

 1. Catalog rows: SetRow and CardRow, the normalized relational shapes the
    store writer persists. Their Document fields hold opaque JSON subtrees
    (images, legalities, price blocks, the verbatim upstream record) that are
    stored as JSONB without further interpretation.

 2. Run ledger: RunRecord, one row per sync run with start/finish timestamps,
    outcome, and free-form notes.

 3. API envelope: APIResponse, Metadata, and APIError, the standard response
    wrapper every HTTP handler returns.

All models are plain data structures with no internal synchronization; they
are safe for concurrent reads after construction.
*/
package models
