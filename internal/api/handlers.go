// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/mfreitag/cardvault/internal/models"
	"github.com/mfreitag/cardvault/internal/syncer"
)

// maxSyncBodySize bounds the trigger request body; cursors are tiny.
const maxSyncBodySize = 4 * 1024

// Syncer is the pipeline contract the handlers drive, implemented by
// syncer.Orchestrator.
type Syncer interface {
	RunAll(ctx context.Context) (syncer.Summary, error)
	Advance(ctx context.Context, cur syncer.Cursor) (syncer.Result, error)
}

// HealthChecker reports store connectivity for the readiness probe.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RunLister reads recent run records for the admin dashboard.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error)
}

// Handler holds the HTTP handlers and their collaborators.
type Handler struct {
	syncer   Syncer
	health   HealthChecker
	runs     RunLister
	validate *validator.Validate
}

// NewHandler creates a Handler. database.DB satisfies both HealthChecker and
// RunLister.
func NewHandler(s Syncer, health HealthChecker, runs RunLister) *Handler {
	return &Handler{
		syncer:   s,
		health:   health,
		runs:     runs,
		validate: validator.New(),
	}
}

// syncRequest is the optional trigger body. An absent or empty body selects
// driver mode; a body with a step selects continuation mode.
type syncRequest struct {
	Step     string `json:"step" validate:"omitempty,oneof=sets cards"`
	Page     int    `json:"page" validate:"omitempty,min=1"`
	PageSize int    `json:"pageSize" validate:"omitempty,min=1,max=250"`
}

// syncResponse describes the outcome of a trigger call: final counts in
// driver mode, or the next cursor plus hasMore in continuation mode.
type syncResponse struct {
	Done          bool           `json:"done"`
	HasMore       bool           `json:"hasMore"`
	Next          *syncer.Cursor `json:"next,omitempty"`
	SetsUpserted  int            `json:"setsUpserted"`
	CardsUpserted int            `json:"cardsUpserted"`
	Pages         int            `json:"pages,omitempty"`
}

// Sync triggers the pipeline. POST with no body (or an empty object) runs
// everything in driver mode; a body carrying {step, page, pageSize} performs
// exactly one step and returns the next cursor for the caller to replay.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSyncBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "failed to read request body", err)
		return
	}

	var req syncRequest
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, http.StatusBadRequest, "BAD_REQUEST", "request body is not valid JSON", err)
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), err)
			return
		}
	}

	// A body that carries no cursor at all is the same as no body.
	if req == (syncRequest{}) {
		h.syncAll(w, r)
		return
	}
	h.syncStep(w, r, req)
}

// syncAll runs the pipeline to completion in this invocation (driver mode).
func (h *Handler) syncAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.syncer.RunAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SYNC_FAILED", err.Error(), err)
		return
	}
	respondOK(w, syncResponse{
		Done:          true,
		SetsUpserted:  summary.Sets,
		CardsUpserted: summary.Cards,
		Pages:         summary.Pages,
	})
}

// syncStep performs one step and hands the next cursor back to the caller
// (continuation mode, for hosts with a per-call compute ceiling).
func (h *Handler) syncStep(w http.ResponseWriter, r *http.Request, req syncRequest) {
	cur := syncer.Cursor{
		Step:     syncer.Step(req.Step),
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	result, err := h.syncer.Advance(r.Context(), cur)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SYNC_FAILED", err.Error(), err)
		return
	}
	respondOK(w, syncResponse{
		Done:          result.Done,
		HasMore:       result.HasMore,
		Next:          result.Next,
		SetsUpserted:  result.SetsUpserted,
		CardsUpserted: result.CardsUpserted,
	})
}

// Runs lists recent sync run records, newest first.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be in 1..200", err)
			return
		}
		limit = n
	}

	records, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list runs", err)
		return
	}
	if records == nil {
		records = []models.RunRecord{}
	}
	respondOK(w, records)
}

// HealthLive reports that the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, map[string]string{"state": "live"})
}

// HealthReady reports whether the store is reachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "store is unreachable", err)
		return
	}
	respondOK(w, map[string]string{"state": "ready"})
}
