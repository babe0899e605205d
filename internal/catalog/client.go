// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

// Package catalog talks to the upstream trading-card catalog API and
// normalizes its records into storage rows.
//
// The client is deliberately retry-free: a non-success response is fatal for
// the current call and is surfaced upward. Retry policy belongs to whoever
// drives the sync (the writes it leads to are idempotent, so caller-initiated
// retries are always safe). The only resilience the client carries is
// request pacing, which spaces calls to stay under the upstream rate limit.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/mfreitag/cardvault/internal/config"
	"github.com/mfreitag/cardvault/internal/metrics"
)

// maxErrorBodySize bounds how much of an error response body is read for
// diagnostics, preventing unbounded allocation on large upstream errors.
const maxErrorBodySize = 64 * 1024 // 64KB

// apiKeyHeader is the header the upstream API reads the key from.
const apiKeyHeader = "X-Api-Key"

// StatusError is returned when the upstream API answers with a non-success
// HTTP status. It carries the status code and a bounded slice of the
// response body so operators can see what the upstream actually said.
type StatusError struct {
	Resource string // "sets" or "cards"
	Status   int
	Body     string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s request failed with status %d: %s", e.Resource, e.Status, e.Body)
}

// listEnvelope is the upstream list response wrapper. Records are decoded as
// raw maps so the mapper can preserve them verbatim; the envelope's count
// fields are intentionally unused for pagination termination (the short-page
// heuristic in the orchestrator is the termination rule).
type listEnvelope struct {
	Data []map[string]any `json:"data"`
}

// Client reads the upstream catalog's sets and cards collections.
//
// Thread safety: safe for concurrent use; each call builds its own request.
// The pipeline itself keeps at most one fetch outstanding per invocation,
// but overlapping invocations may share a client.
type Client struct {
	baseURL      string
	apiKey       string
	setsPageSize int
	client       *http.Client
	limiter      *rate.Limiter
}

// NewClient creates an upstream catalog client from configuration.
func NewClient(cfg *config.UpstreamConfig) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	setsPageSize := cfg.SetsPageSize
	if setsPageSize <= 0 {
		setsPageSize = 250
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		setsPageSize: setsPageSize,
		client:       &http.Client{Timeout: timeout},
		limiter:      limiter,
	}
}

// FetchSets fetches the whole sets collection in one request. The upstream
// sets collection is small enough to fit the maximum page size in practice.
func (c *Client) FetchSets(ctx context.Context) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("pageSize", strconv.Itoa(c.setsPageSize))
	return c.fetchList(ctx, "sets", params)
}

// FetchCardsPage fetches exactly one page of the cards collection. A page
// shorter than pageSize signals the last page to the caller.
func (c *Client) FetchCardsPage(ctx context.Context, page, pageSize int) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	return c.fetchList(ctx, "cards", params)
}

// fetchList issues a single GET against a list resource and decodes the
// envelope. No retries: any transport error or non-2xx status is fatal for
// the current call.
func (c *Client) fetchList(ctx context.Context, resource string, params url.Values) ([]map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait canceled: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, resource, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", resource, err)
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(resource, "transport_error", time.Since(start))
		return nil, fmt.Errorf("upstream %s request failed: %w", resource, err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstreamRequest(resource, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Resource: resource,
			Status:   resp.StatusCode,
			Body:     string(readBodyForError(resp.Body)),
		}
	}

	var envelope listEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", resource, err)
	}
	return envelope.Data, nil
}

// readBodyForError reads at most maxErrorBodySize bytes of a response body
// for error reporting. Uses io.LimitReader so a huge upstream error page
// cannot blow up memory.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}
