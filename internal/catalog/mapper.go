// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

package catalog

import (
	"time"

	"github.com/mfreitag/cardvault/internal/models"
)

// MapSet transforms a raw upstream set record into a storage row.
//
// Pure function, no I/O, no error return: malformed or missing fields map to
// explicit empty values rather than failing the sync. The full record is
// preserved verbatim under Raw for forward compatibility with upstream
// schema changes. syncedAt is stamped here, at mapping time.
func MapSet(raw map[string]any, syncedAt time.Time) models.SetRow {
	return models.SetRow{
		ID:           stringField(raw, "id"),
		Name:         stringField(raw, "name"),
		Series:       stringField(raw, "series"),
		ReleaseDate:  stringField(raw, "releaseDate"),
		PrintedTotal: numberField(raw, "printedTotal"),
		Total:        numberField(raw, "total"),
		Images:       documentField(raw, "images"),
		Legalities:   documentField(raw, "legalities"),
		Raw:          sanitizeDocument(raw),
		SyncedAt:     syncedAt,
	}
}

// MapCard transforms a raw upstream card record into a storage row.
//
// The owning set id may be empty when upstream omits it (a known upstream
// data-quality gap, carried through as-is) and is never validated against
// the sets table.
func MapCard(raw map[string]any, syncedAt time.Time) models.CardRow {
	return models.CardRow{
		ID:         stringField(raw, "id"),
		Name:       stringField(raw, "name"),
		Number:     numberField(raw, "number"),
		SetID:      setID(raw),
		Rarity:     stringField(raw, "rarity"),
		Supertype:  stringField(raw, "supertype"),
		Subtypes:   stringSliceField(raw, "subtypes"),
		Types:      stringSliceField(raw, "types"),
		Images:     documentField(raw, "images"),
		Legalities: documentField(raw, "legalities"),
		TCGPlayer:  documentField(raw, "tcgplayer"),
		Cardmarket: documentField(raw, "cardmarket"),
		Raw:        sanitizeDocument(raw),
		SyncedAt:   syncedAt,
	}
}

// setID extracts the owning set's external id from the nested set object.
func setID(raw map[string]any) string {
	set, ok := raw["set"].(map[string]any)
	if !ok {
		return ""
	}
	return stringField(set, "id")
}

// stringField returns the field as a string, or "" when absent or not a
// string.
func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

// numberField returns the field as a number, or nil when absent or not a
// real number. Integer-typed values (from hand-built test fixtures or
// non-JSON decoders) are widened; strings that merely look numeric are not.
func numberField(raw map[string]any, key string) *float64 {
	f, ok := asNumber(raw[key])
	if !ok {
		return nil
	}
	return &f
}

// stringSliceField returns the field as a string slice, dropping non-string
// elements. Absent or malformed fields map to nil.
func stringSliceField(raw map[string]any, key string) []string {
	items, ok := raw[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// documentField returns the field sanitized to a storable Document, or nil
// when absent or unrepresentable.
func documentField(raw map[string]any, key string) models.Document {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	return sanitizeValue(v)
}

// sanitizeDocument sanitizes a whole record for the raw-payload column.
func sanitizeDocument(raw map[string]any) models.Document {
	if raw == nil {
		return nil
	}
	return sanitizeValue(raw)
}

// sanitizeValue restricts a value to the shapes the opaque storage columns
// accept: null, bool, number, string, array, or plain object. Anything else
// (a function, a channel, an exotic struct) maps to nil rather than erroring;
// the mapper never fails on malformed upstream shape.
func sanitizeValue(v any) models.Document {
	switch val := v.(type) {
	case nil:
		return nil
	case bool, string, float64:
		return val
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, sanitizeValue(item))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = sanitizeValue(item)
		}
		return out
	default:
		if f, ok := asNumber(v); ok {
			return f
		}
		return nil
	}
}

// asNumber widens any numeric type to float64. JSON decoding only produces
// float64, but mapper inputs built in tests or by future code paths may
// carry other numeric types.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
