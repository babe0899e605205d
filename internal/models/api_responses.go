// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

package models

import "time"

// APIResponse is the envelope for every JSON response served by the API.
//
// Status is "ok" or "error". Data carries the endpoint-specific payload and
// is null on errors. Error is populated only when Status is "error".
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// APIError represents an error response with structured error details.
//
// Code is a machine-readable error code (e.g. "UNAUTHORIZED", "SYNC_FAILED");
// Message is a short human-readable description safe to show to an operator.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
