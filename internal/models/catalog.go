// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

package models

import "time"

// Document is an arbitrary structured value received from the upstream
// catalog: nil, bool, float64, string, []any, or map[string]any (the shapes
// produced by decoding JSON into any). Raw payloads, legality maps, image
// references, and marketplace references are stored as Documents verbatim so
// upstream schema changes never break ingestion.
type Document any

// SetRow is the normalized storage row for an upstream card set.
//
// ID is the upstream external identifier and the conflict key: it is globally
// unique and stable across re-syncs, so re-syncing overwrites mutable fields
// but never duplicates rows.
type SetRow struct {
	ID           string
	Name         string
	Series       string
	ReleaseDate  string
	PrintedTotal *float64 // null unless upstream sent a real number
	Total        *float64
	Images       Document
	Legalities   Document
	Raw          Document // full upstream record, verbatim
	SyncedAt     time.Time
}

// CardRow is the normalized storage row for an upstream card.
//
// SetID references the owning set by external id. Upstream occasionally omits
// it or references a set that has not been written yet; both are accepted
// as-is (no FK constraint, no validation at write time).
type CardRow struct {
	ID         string
	Name       string
	Number     *float64 // null unless upstream sent a real number
	SetID      string   // empty string when upstream omits the set
	Rarity     string
	Supertype  string
	Subtypes   []string
	Types      []string
	Images     Document
	Legalities Document
	TCGPlayer  Document // opaque marketplace reference
	Cardmarket Document // opaque marketplace reference
	Raw        Document // full upstream record, verbatim
	SyncedAt   time.Time
}
