// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

// Package syncer drives the catalog sync pipeline: a small step/cursor state
// machine over the catalog client, the row mapper, and the store writer,
// with an auditable run ledger on the side.
//
// States: sets -> cards(1) -> cards(2) -> ... -> done, with error terminal
// from any state. Two drivers share identical per-step semantics and differ
// only in who owns the loop:
//
//   - RunAll loops through every step and page itself, for hosts without a
//     tight compute-time ceiling.
//   - Advance performs exactly one step (or one card page) and returns the
//     next cursor; the caller replays the cursor in a fresh invocation. Every
//     invocation is stateless and total: no server-side session or lock is
//     held between calls.
//
// The orchestrator never retries anything. Fatal errors abort the current
// invocation, are recorded in the ledger, and surface to the caller, who
// owns retry policy; the store writer's idempotent upserts make replaying a
// step safe.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/mfreitag/cardvault/internal/catalog"
	"github.com/mfreitag/cardvault/internal/logging"
	"github.com/mfreitag/cardvault/internal/metrics"
	"github.com/mfreitag/cardvault/internal/models"
)

// Step identifies a pipeline state.
type Step string

// Pipeline steps.
const (
	StepSets  Step = "sets"
	StepCards Step = "cards"
)

// Ledger job tags. Driver-mode runs get one record for the whole run;
// continuation-mode invocations get one record each, tagged by step.
const (
	JobFull  = "catalog_sync"
	JobSets  = "catalog_sync_sets"
	JobCards = "catalog_sync_cards"
)

// maxErrorNoteLen bounds the error message stored in run notes. Operators
// get a short description, never a full dump of internals.
const maxErrorNoteLen = 500

// Cursor is the minimal state needed to resume a paginated sync from an
// arbitrary point. It exists only for the single exchange it represents:
// produced by Advance as a return value and replayed by the caller as the
// next input.
type Cursor struct {
	Step     Step `json:"step"`
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
}

// Result describes the outcome of a single Advance invocation.
type Result struct {
	// Done is true when the state machine reached its terminal state.
	Done bool

	// HasMore is true when the caller must issue another invocation with
	// Next to make progress.
	HasMore bool

	// Next is the cursor for the following invocation; nil when Done.
	Next *Cursor

	SetsUpserted  int
	CardsUpserted int
}

// Summary reports the totals of a full driver-mode run.
type Summary struct {
	Sets  int `json:"sets"`
	Cards int `json:"cards"`
	Pages int `json:"pages"`
}

// CatalogSource is the upstream fetch contract, implemented by
// catalog.Client.
type CatalogSource interface {
	FetchSets(ctx context.Context) ([]map[string]any, error)
	FetchCardsPage(ctx context.Context, page, pageSize int) ([]map[string]any, error)
}

// Store is the idempotent conflict-resolving writer contract, implemented by
// database.DB.
type Store interface {
	UpsertSets(ctx context.Context, rows []models.SetRow) (int, error)
	UpsertCards(ctx context.Context, rows []models.CardRow) (int, error)
}

// Ledger is the append-only run record contract, implemented by database.DB.
// Ledger writes are an observability side channel: the orchestrator logs and
// ignores their failures rather than failing the run they describe.
type Ledger interface {
	BeginRun(ctx context.Context, job string) (int64, error)
	CompleteRun(ctx context.Context, runID int64, ok bool, notes models.RunNotes) error
}

// Orchestrator wires the pipeline components together. Each invocation runs
// single-threaded: at most one outstanding upstream fetch and one store
// write, sequentially. Mutual exclusion across concurrent invocations is the
// caller's job; overlapping runs are safe (idempotent writes) but wasteful.
type Orchestrator struct {
	catalog  CatalogSource
	store    Store
	ledger   Ledger
	pageSize int
	now      func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithPageSize sets the card page size used when a cursor does not carry one.
func WithPageSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithClock overrides the time source used to stamp synced_at, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an Orchestrator over the given components.
func New(source CatalogSource, store Store, ledger Ledger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:  source,
		store:    store,
		ledger:   ledger,
		pageSize: 250,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunAll executes the whole pipeline in one call: sets, then card pages
// until a short page signals the end of data. One ledger record covers the
// run; it is closed ok with the final counts, or failed with a short error
// note by whichever step broke.
func (o *Orchestrator) RunAll(ctx context.Context) (Summary, error) {
	runID := o.beginRun(ctx, JobFull)
	var summary Summary

	setsCount, err := o.syncSets(ctx)
	if err != nil {
		o.finishRun(ctx, JobFull, runID, false, errorNotes(err))
		return summary, err
	}
	summary.Sets = setsCount

	pageSize := o.pageSize
	for page := 1; ; page++ {
		count, hasMore, err := o.syncCardsPage(ctx, page, pageSize)
		if err != nil {
			o.finishRun(ctx, JobFull, runID, false, errorNotes(err))
			return summary, err
		}
		summary.Cards += count
		summary.Pages++
		if !hasMore {
			break
		}
	}

	o.finishRun(ctx, JobFull, runID, true, models.RunNotes{
		"sets":  summary.Sets,
		"cards": summary.Cards,
	})
	logging.Info().
		Int("sets", summary.Sets).
		Int("cards", summary.Cards).
		Int("pages", summary.Pages).
		Msg("Catalog sync complete")
	return summary, nil
}

// Advance executes exactly one step of the state machine and returns the
// cursor the caller must replay to continue. Each invocation writes its own
// ledger record tagged by step, so the audit trail stays consistent even
// though no state is held between calls.
func (o *Orchestrator) Advance(ctx context.Context, cur Cursor) (Result, error) {
	cur = o.normalize(cur)

	switch cur.Step {
	case StepSets:
		return o.advanceSets(ctx, cur)
	case StepCards:
		return o.advanceCards(ctx, cur)
	default:
		return Result{}, fmt.Errorf("unknown sync step %q", cur.Step)
	}
}

func (o *Orchestrator) advanceSets(ctx context.Context, cur Cursor) (Result, error) {
	runID := o.beginRun(ctx, JobSets)

	count, err := o.syncSets(ctx)
	if err != nil {
		o.finishRun(ctx, JobSets, runID, false, errorNotes(err))
		return Result{}, err
	}

	o.finishRun(ctx, JobSets, runID, true, models.RunNotes{"sets": count})
	return Result{
		HasMore:      true,
		Next:         &Cursor{Step: StepCards, Page: 1, PageSize: cur.PageSize},
		SetsUpserted: count,
	}, nil
}

func (o *Orchestrator) advanceCards(ctx context.Context, cur Cursor) (Result, error) {
	runID := o.beginRun(ctx, JobCards)

	count, hasMore, err := o.syncCardsPage(ctx, cur.Page, cur.PageSize)
	if err != nil {
		o.finishRun(ctx, JobCards, runID, false, errorNotes(err))
		return Result{}, err
	}

	o.finishRun(ctx, JobCards, runID, true, models.RunNotes{
		"cards": count,
		"page":  cur.Page,
	})

	if hasMore {
		return Result{
			HasMore:       true,
			Next:          &Cursor{Step: StepCards, Page: cur.Page + 1, PageSize: cur.PageSize},
			CardsUpserted: count,
		}, nil
	}
	return Result{Done: true, CardsUpserted: count}, nil
}

// syncSets fetches the whole sets collection, maps it, and writes it.
func (o *Orchestrator) syncSets(ctx context.Context) (int, error) {
	raws, err := o.catalog.FetchSets(ctx)
	if err != nil {
		return 0, fmt.Errorf("sets step failed: %w", err)
	}

	syncedAt := o.now().UTC()
	rows := make([]models.SetRow, 0, len(raws))
	for _, raw := range raws {
		rows = append(rows, catalog.MapSet(raw, syncedAt))
	}

	count, err := o.store.UpsertSets(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("sets step failed: %w", err)
	}
	logging.Debug().Int("sets", count).Msg("Sets page written")
	return count, nil
}

// syncCardsPage fetches one card page, maps it, and writes it. hasMore
// reports whether the returned page filled the requested page size — the
// end-of-data rule is strictly this length comparison, never an upstream
// total count, so a partial final page is never skipped on a boundary
// mismatch.
func (o *Orchestrator) syncCardsPage(ctx context.Context, page, pageSize int) (int, bool, error) {
	raws, err := o.catalog.FetchCardsPage(ctx, page, pageSize)
	if err != nil {
		return 0, false, fmt.Errorf("cards step failed at page %d: %w", page, err)
	}
	hasMore := len(raws) == pageSize

	syncedAt := o.now().UTC()
	rows := make([]models.CardRow, 0, len(raws))
	for _, raw := range raws {
		rows = append(rows, catalog.MapCard(raw, syncedAt))
	}

	count, err := o.store.UpsertCards(ctx, rows)
	if err != nil {
		return 0, false, fmt.Errorf("cards step failed at page %d: %w", page, err)
	}
	logging.Debug().Int("cards", count).Int("page", page).Bool("has_more", hasMore).Msg("Card page written")
	return count, hasMore, nil
}

// normalize fills cursor defaults so every invocation is total: page numbers
// start at 1 and a missing page size falls back to the configured default.
func (o *Orchestrator) normalize(cur Cursor) Cursor {
	if cur.Step == "" {
		cur.Step = StepSets
	}
	if cur.Page < 1 {
		cur.Page = 1
	}
	if cur.PageSize < 1 {
		cur.PageSize = o.pageSize
	}
	return cur
}

// beginRun opens a ledger record, best-effort. A ledger failure is logged
// and ignored; it never blocks the sync it would have described. Returns 0
// when no record could be opened.
func (o *Orchestrator) beginRun(ctx context.Context, job string) int64 {
	runID, err := o.ledger.BeginRun(ctx, job)
	if err != nil {
		logging.Warn().Err(err).Str("job", job).Msg("Failed to open run record")
		return 0
	}
	return runID
}

// finishRun closes a ledger record, best-effort, and records run metrics.
func (o *Orchestrator) finishRun(ctx context.Context, job string, runID int64, ok bool, notes models.RunNotes) {
	metrics.RecordSyncRun(job, ok)
	if runID == 0 {
		return
	}
	if err := o.ledger.CompleteRun(ctx, runID, ok, notes); err != nil {
		logging.Warn().Err(err).Str("job", job).Int64("run_id", runID).Msg("Failed to close run record")
	}
}

// errorNotes builds failure notes with a bounded, human-readable message.
func errorNotes(err error) models.RunNotes {
	msg := err.Error()
	if len(msg) > maxErrorNoteLen {
		msg = msg[:maxErrorNoteLen] + "..."
	}
	return models.RunNotes{"error": msg}
}
