// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

package syncer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/mfreitag/cardvault/internal/models"
)

// fakeCatalog serves canned raw records and records every fetch.
type fakeCatalog struct {
	sets      []map[string]any
	pages     [][]map[string]any // card pages, indexed by page-1
	setsErr   error
	cardsErr  map[int]error // per-page failures
	setsCalls int
	cardCalls []int // page numbers fetched, in order
}

func (f *fakeCatalog) FetchSets(_ context.Context) ([]map[string]any, error) {
	if f.setsErr != nil {
		return nil, f.setsErr
	}
	f.setsCalls++
	return f.sets, nil
}

func (f *fakeCatalog) FetchCardsPage(_ context.Context, page, _ int) ([]map[string]any, error) {
	f.cardCalls = append(f.cardCalls, page)
	if err := f.cardsErr[page]; err != nil {
		return nil, err
	}
	if page-1 < len(f.pages) {
		return f.pages[page-1], nil
	}
	return nil, nil
}

// fakeStore emulates the conflict-resolving writer with in-memory maps keyed
// by external id, which makes idempotence directly observable.
type fakeStore struct {
	sets     map[string]models.SetRow
	cards    map[string]models.CardRow
	setsErr  error
	cardsErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sets:  make(map[string]models.SetRow),
		cards: make(map[string]models.CardRow),
	}
}

func (f *fakeStore) UpsertSets(_ context.Context, rows []models.SetRow) (int, error) {
	if f.setsErr != nil {
		return 0, f.setsErr
	}
	for _, row := range rows {
		f.sets[row.ID] = row
	}
	return len(rows), nil
}

func (f *fakeStore) UpsertCards(_ context.Context, rows []models.CardRow) (int, error) {
	if f.cardsErr != nil {
		return 0, f.cardsErr
	}
	for _, row := range rows {
		f.cards[row.ID] = row
	}
	return len(rows), nil
}

type completion struct {
	runID int64
	ok    bool
	notes models.RunNotes
}

// fakeLedger records begin/complete calls and can simulate ledger failures.
type fakeLedger struct {
	nextID      int64
	begun       []string // job names
	completions []completion
	beginErr    error
	completeErr error
}

func (f *fakeLedger) BeginRun(_ context.Context, job string) (int64, error) {
	if f.beginErr != nil {
		return 0, f.beginErr
	}
	f.nextID++
	f.begun = append(f.begun, job)
	return f.nextID, nil
}

func (f *fakeLedger) CompleteRun(_ context.Context, runID int64, ok bool, notes models.RunNotes) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completions = append(f.completions, completion{runID: runID, ok: ok, notes: notes})
	return nil
}

func cardRecords(ids ...string) []map[string]any {
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, map[string]any{"id": id, "name": "card " + id})
	}
	return out
}

func setRecords(ids ...string) []map[string]any {
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, map[string]any{"id": id, "name": "set " + id})
	}
	return out
}

func TestRunAllEndToEnd(t *testing.T) {
	// 2 sets; card pages of size 2: [A,B], [C,D], [E] (short page 3 ends it).
	source := &fakeCatalog{
		sets: setRecords("s1", "s2"),
		pages: [][]map[string]any{
			cardRecords("A", "B"),
			cardRecords("C", "D"),
			cardRecords("E"),
		},
	}
	store := newFakeStore()
	ledger := &fakeLedger{}
	o := New(source, store, ledger, WithPageSize(2))

	summary, err := o.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll() error: %v", err)
	}

	if summary.Sets != 2 || summary.Cards != 5 || summary.Pages != 3 {
		t.Errorf("summary = %+v, want sets=2 cards=5 pages=3", summary)
	}
	// Exactly k+1 card fetches for k full pages, in order.
	if !reflect.DeepEqual(source.cardCalls, []int{1, 2, 3}) {
		t.Errorf("card fetches = %v, want [1 2 3]", source.cardCalls)
	}
	if len(store.cards) != 5 || len(store.sets) != 2 {
		t.Errorf("store state: %d sets, %d cards; want 2, 5", len(store.sets), len(store.cards))
	}

	// One ledger record for the whole driver-mode run.
	if !reflect.DeepEqual(ledger.begun, []string{JobFull}) {
		t.Errorf("begun runs = %v, want [%s]", ledger.begun, JobFull)
	}
	if len(ledger.completions) != 1 {
		t.Fatalf("completions = %d, want 1", len(ledger.completions))
	}
	got := ledger.completions[0]
	if !got.ok {
		t.Error("run completion ok = false, want true")
	}
	want := models.RunNotes{"sets": 2, "cards": 5}
	if !reflect.DeepEqual(got.notes, want) {
		t.Errorf("run notes = %v, want %v", got.notes, want)
	}
}

func TestRunAllReplayIsIdempotent(t *testing.T) {
	source := &fakeCatalog{
		sets: setRecords("s1"),
		pages: [][]map[string]any{
			cardRecords("A", "B"),
			cardRecords("C"),
		},
	}
	store := newFakeStore()
	o := New(source, store, &fakeLedger{}, WithPageSize(2))

	if _, err := o.RunAll(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstCards := len(store.cards)

	summary, err := o.RunAll(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(store.cards) != firstCards {
		t.Errorf("replay changed store: %d cards, want %d", len(store.cards), firstCards)
	}
	if summary.Cards != 3 {
		t.Errorf("replay summary cards = %d, want 3", summary.Cards)
	}
}

func TestRunAllExactBoundaryFetchesTrailingPage(t *testing.T) {
	// The last data page is exactly pageSize long, so one more fetch is
	// needed to observe the short (empty) page. The termination rule is the
	// length heuristic, never an upstream total count.
	source := &fakeCatalog{
		sets:  setRecords("s1"),
		pages: [][]map[string]any{cardRecords("A", "B")},
	}
	store := newFakeStore()
	o := New(source, store, &fakeLedger{}, WithPageSize(2))

	summary, err := o.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll() error: %v", err)
	}
	if !reflect.DeepEqual(source.cardCalls, []int{1, 2}) {
		t.Errorf("card fetches = %v, want [1 2]", source.cardCalls)
	}
	if summary.Cards != 2 {
		t.Errorf("cards = %d, want 2", summary.Cards)
	}
}

func TestRunAllSetsFetchFailure(t *testing.T) {
	source := &fakeCatalog{setsErr: errors.New("upstream sets request failed with status 502")}
	ledger := &fakeLedger{}
	o := New(source, newFakeStore(), ledger, WithPageSize(2))

	_, err := o.RunAll(context.Background())
	if err == nil {
		t.Fatal("expected error from sets fetch failure")
	}
	if len(source.cardCalls) != 0 {
		t.Errorf("card fetches after sets failure = %v, want none", source.cardCalls)
	}
	if len(ledger.completions) != 1 {
		t.Fatalf("completions = %d, want exactly 1", len(ledger.completions))
	}
	got := ledger.completions[0]
	if got.ok {
		t.Error("failed run recorded ok = true")
	}
	msg, _ := got.notes["error"].(string)
	if msg == "" {
		t.Error("failed run notes carry no error message")
	}
}

func TestAdvanceSetsStep(t *testing.T) {
	source := &fakeCatalog{sets: setRecords("s1", "s2")}
	ledger := &fakeLedger{}
	o := New(source, newFakeStore(), ledger, WithPageSize(2))

	result, err := o.Advance(context.Background(), Cursor{Step: StepSets, PageSize: 2})
	if err != nil {
		t.Fatalf("Advance() error: %v", err)
	}

	if result.Done {
		t.Error("sets step reported done")
	}
	if !result.HasMore {
		t.Error("sets step must signal more work")
	}
	wantNext := &Cursor{Step: StepCards, Page: 1, PageSize: 2}
	if !reflect.DeepEqual(result.Next, wantNext) {
		t.Errorf("next cursor = %+v, want %+v", result.Next, wantNext)
	}
	if result.SetsUpserted != 2 {
		t.Errorf("setsUpserted = %d, want 2", result.SetsUpserted)
	}
	if !reflect.DeepEqual(ledger.begun, []string{JobSets}) {
		t.Errorf("begun = %v, want [%s]", ledger.begun, JobSets)
	}
}

func TestAdvanceCardsCursorProgression(t *testing.T) {
	source := &fakeCatalog{
		pages: [][]map[string]any{
			cardRecords("A", "B"), // full page -> hasMore, next page 2
			cardRecords("C"),      // short page -> done
		},
	}
	o := New(source, newFakeStore(), &fakeLedger{}, WithPageSize(2))

	full, err := o.Advance(context.Background(), Cursor{Step: StepCards, Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if !full.HasMore || full.Done {
		t.Errorf("full page: hasMore=%v done=%v, want true/false", full.HasMore, full.Done)
	}
	if full.Next == nil || full.Next.Page != 2 {
		t.Fatalf("full page next = %+v, want page 2", full.Next)
	}
	if full.CardsUpserted != 2 {
		t.Errorf("cardsUpserted = %d, want 2", full.CardsUpserted)
	}

	short, err := o.Advance(context.Background(), *full.Next)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if !short.Done || short.HasMore || short.Next != nil {
		t.Errorf("short page: done=%v hasMore=%v next=%v, want terminal", short.Done, short.HasMore, short.Next)
	}
	if short.CardsUpserted != 1 {
		t.Errorf("cardsUpserted = %d, want 1", short.CardsUpserted)
	}
}

func TestAdvanceStoreFailureIsRecorded(t *testing.T) {
	source := &fakeCatalog{pages: [][]map[string]any{cardRecords("A", "B")}}
	store := newFakeStore()
	store.cardsErr = errors.New("pq: connection refused")
	ledger := &fakeLedger{}
	o := New(source, store, ledger, WithPageSize(2))

	_, err := o.Advance(context.Background(), Cursor{Step: StepCards, Page: 1, PageSize: 2})
	if err == nil {
		t.Fatal("expected store failure to surface")
	}
	if !strings.Contains(err.Error(), "cards step failed") {
		t.Errorf("error = %v, want step context", err)
	}

	if len(ledger.completions) != 1 {
		t.Fatalf("completions = %d, want exactly 1", len(ledger.completions))
	}
	got := ledger.completions[0]
	if got.ok {
		t.Error("failed step recorded ok = true")
	}
	msg, _ := got.notes["error"].(string)
	if msg == "" {
		t.Error("failure notes missing error message")
	}
	if strings.Contains(msg, "goroutine") {
		t.Error("failure notes must not carry a stack trace")
	}
}

func TestAdvanceDefaultsEmptyCursorToSets(t *testing.T) {
	source := &fakeCatalog{sets: setRecords("s1")}
	o := New(source, newFakeStore(), &fakeLedger{}, WithPageSize(2))

	result, err := o.Advance(context.Background(), Cursor{})
	if err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if result.Next == nil || result.Next.Step != StepCards {
		t.Errorf("next = %+v, want cards step", result.Next)
	}
	if result.Next.PageSize != 2 {
		t.Errorf("next pageSize = %d, want configured default 2", result.Next.PageSize)
	}
}

func TestAdvanceUnknownStep(t *testing.T) {
	o := New(&fakeCatalog{}, newFakeStore(), &fakeLedger{}, WithPageSize(2))
	if _, err := o.Advance(context.Background(), Cursor{Step: "prices"}); err == nil {
		t.Fatal("expected error for unknown step")
	}
}

func TestLedgerFailuresNeverFailTheRun(t *testing.T) {
	source := &fakeCatalog{
		sets:  setRecords("s1"),
		pages: [][]map[string]any{cardRecords("A")},
	}
	ledger := &fakeLedger{
		beginErr:    errors.New("ledger insert failed"),
		completeErr: errors.New("ledger update failed"),
	}
	o := New(source, newFakeStore(), ledger, WithPageSize(2))

	summary, err := o.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll() must not fail on ledger errors, got: %v", err)
	}
	if summary.Sets != 1 || summary.Cards != 1 {
		t.Errorf("summary = %+v, want sets=1 cards=1", summary)
	}
}

func TestErrorNotesBounded(t *testing.T) {
	long := errors.New(strings.Repeat("x", 2*maxErrorNoteLen))
	notes := errorNotes(long)
	msg, _ := notes["error"].(string)
	if len(msg) > maxErrorNoteLen+3 {
		t.Errorf("error note length = %d, want <= %d", len(msg), maxErrorNoteLen+3)
	}
	if !strings.HasSuffix(msg, "...") {
		t.Error("truncated note should end with ellipsis")
	}
}

func TestAdvanceEmptyFirstPage(t *testing.T) {
	// An upstream with no cards at all: the very first page is short (empty),
	// so the machine goes straight to done without writing anything.
	source := &fakeCatalog{}
	store := newFakeStore()
	o := New(source, store, &fakeLedger{}, WithPageSize(2))

	result, err := o.Advance(context.Background(), Cursor{Step: StepCards, Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if !result.Done || result.CardsUpserted != 0 {
		t.Errorf("result = %+v, want done with zero cards", result)
	}
	if len(store.cards) != 0 {
		t.Errorf("store cards = %d, want 0", len(store.cards))
	}
}

func TestRunAllWrapsStepErrors(t *testing.T) {
	source := &fakeCatalog{
		sets:     setRecords("s1"),
		pages:    [][]map[string]any{cardRecords("A", "B")},
		cardsErr: map[int]error{2: fmt.Errorf("upstream cards request failed with status 500")},
	}
	o := New(source, newFakeStore(), &fakeLedger{}, WithPageSize(2))

	_, err := o.RunAll(context.Background())
	if err == nil {
		t.Fatal("expected page 2 failure to surface")
	}
	if !strings.Contains(err.Error(), "page 2") {
		t.Errorf("error = %v, want page context", err)
	}
}
