// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/mfreitag/cardvault/internal/logging"
	"github.com/mfreitag/cardvault/internal/models"
)

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondOK sends a success envelope around the payload.
func respondOK(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "ok",
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// respondError sends an error envelope. err is logged server-side; only code
// and message reach the caller.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Err(err).Msg("API error")
	}
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Data:     nil,
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}
