// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

package api

import (
	"crypto/subtle"
	"net/http"
)

// syncSecretHeader carries the static shared secret that gates the sync
// trigger. This is operational access control for one privileged endpoint,
// not end-user authentication.
const syncSecretHeader = "X-Sync-Secret"

// RequireSyncSecret rejects requests whose shared secret is missing or wrong
// before any upstream or store work begins. An empty configured secret
// leaves the route open (development only). OPTIONS passes through so CORS
// preflight always succeeds.
func RequireSyncSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(syncSecretHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid sync secret", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
