// Package domain provides domain models and business logic for the Scholar Harvest Service.
package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Paper is one normalized Google Scholar result record. It is a value record:
// once constructed by the normalizer it is never mutated. Every field defaults
// to its zero value when the upstream response omits the data.
type Paper struct {
	Title           string `json:"title"`
	Authors         string `json:"authors"`
	PublicationInfo string `json:"publication_info"`
	Link            string `json:"link"`
	PDFLink         string `json:"pdf_link"`
	CitedBy         int    `json:"cited_by"`
	Type            string `json:"type"`
	Snippet         string `json:"snippet"`
}

// MaxResultsCeiling is the hard upper bound on records a single harvest may
// collect, regardless of what the caller requests.
const MaxResultsCeiling = 1000

// PageSize is the number of results per upstream page. Google Scholar paginates
// in fixed batches of 10 and the offset advances by this amount per fetch.
const PageSize = 10

// HarvestRequest describes one harvest submission.
type HarvestRequest struct {
	// APIKey is the caller-supplied SerpAPI key used for every upstream call.
	APIKey string `json:"api_key" validate:"required"`
	// Query is the Google Scholar search query.
	Query string `json:"query" validate:"required"`
	// MaxResults is the requested record cap. It is clamped to
	// MaxResultsCeiling before use; zero or negative selects the ceiling.
	MaxResults int `json:"max_results"`
}

// Limit returns the effective record cap for the request.
func (r HarvestRequest) Limit() int {
	if r.MaxResults <= 0 || r.MaxResults > MaxResultsCeiling {
		return MaxResultsCeiling
	}
	return r.MaxResults
}

// Validate checks the request invariants that must hold before any upstream
// call is made.
func (r HarvestRequest) Validate() error {
	if strings.TrimSpace(r.APIKey) == "" {
		return NewValidationError("api_key", "is required")
	}
	if strings.TrimSpace(r.Query) == "" {
		return NewValidationError("query", "is required")
	}
	return nil
}

// TerminationReason classifies why a harvest run's pagination loop stopped.
type TerminationReason string

const (
	// TerminationExhausted means the upstream returned an empty page: the
	// normal "no more results" end condition.
	TerminationExhausted TerminationReason = "exhausted"
	// TerminationLimitReached means the offset reached the bound derived from
	// the requested record cap.
	TerminationLimitReached TerminationReason = "limit_reached"
	// TerminationUpstreamError means a page fetch failed for a reason other
	// than an invalid credential. Partial results are retained.
	TerminationUpstreamError TerminationReason = "upstream_error"
	// TerminationCancelled means the caller cancelled mid-run. Partial
	// results are retained and exported, same as exhaustion.
	TerminationCancelled TerminationReason = "cancelled"
)

// IsError reports whether the reason represents a failure rather than a
// normal stop.
func (r TerminationReason) IsError() bool {
	return r == TerminationUpstreamError
}

// HarvestRun is the transient state of one harvest execution. It is created
// at request start, mutated only by the pagination engine, and discarded after
// the final event is emitted; its only durable trace is the CSV artifact.
type HarvestRun struct {
	ID          uuid.UUID
	Query       string
	Limit       int
	PageIndex   int
	Accumulated []Paper
	Terminated  bool
	Reason      TerminationReason
}

// NewHarvestRun creates run state for a validated request.
func NewHarvestRun(req HarvestRequest) *HarvestRun {
	return &HarvestRun{
		ID:    uuid.New(),
		Query: req.Query,
		Limit: req.Limit(),
	}
}

// Append records one page worth of normalized papers in upstream order.
func (h *HarvestRun) Append(papers []Paper) {
	h.Accumulated = append(h.Accumulated, papers...)
}

// Terminate marks the run as stopped with the given reason. Only the first
// termination is recorded.
func (h *HarvestRun) Terminate(reason TerminationReason) {
	if h.Terminated {
		return
	}
	h.Terminated = true
	h.Reason = reason
}

// LatestTitle returns the title of the most recently accumulated paper, or
// the empty string when nothing has been collected yet.
func (h *HarvestRun) LatestTitle() string {
	if len(h.Accumulated) == 0 {
		return ""
	}
	return h.Accumulated[len(h.Accumulated)-1].Title
}
