package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// ─────────────────────────────────────────────────────────────────────────────
// DTOs — request / response
// ─────────────────────────────────────────────────────────────────────────────

// SkippedCompound is a batch entry that could not be resolved, with the
// reason it was left out.
type SkippedCompound struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// StateBucket is the compounds occupying one physical-state slot of a group.
type StateBucket struct {
	State     string               `json:"state"`
	Compounds []ctypes.CompoundDTO `json:"compounds"`
}

// GroupBuckets is one storage group's occupied state slots after a sort.
type GroupBuckets struct {
	Group  string        `json:"group"`
	States []StateBucket `json:"states"`
}

// SortResult is the outcome of a synchronous sort.
type SortResult struct {
	RunID           string            `json:"run_id"`
	Status          string            `json:"status"`
	Trigger         string            `json:"trigger"`
	Groups          []GroupBuckets    `json:"groups"`
	Skipped         []SkippedCompound `json:"skipped,omitempty"`
	Placed          int               `json:"placed"`
	OverflowCreated int               `json:"overflow_created"`
	RejectionCount  int               `json:"rejection_count"`
	DurationMs      int64             `json:"duration_ms"`
}

// EnqueueReceipt acknowledges an asynchronous sort request.
type EnqueueReceipt struct {
	RunID     string `json:"run_id"`
	Requested int    `json:"requested"`
}

// PlacementRecord is one compound's final position in a run.
type PlacementRecord struct {
	CompoundName string `json:"compound_name"`
	CID          string `json:"cid,omitempty"`
	Group        string `json:"group"`
	State        string `json:"state"`
	Forced       bool   `json:"forced,omitempty"`
	Fallback     bool   `json:"fallback,omitempty"`
}

// BucketSummary is one non-empty (group, state) slot of a run's final
// registry.
type BucketSummary struct {
	Group     string   `json:"group"`
	State     string   `json:"state"`
	Compounds []string `json:"compounds"`
}

// SortRun is a recorded sorting run.
type SortRun struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`

	Status  string `json:"status"`
	Trigger string `json:"trigger"`

	RequestedNames []string `json:"requested_names"`
	SkippedNames   []string `json:"skipped_names"`

	Placements      []PlacementRecord `json:"placements"`
	Buckets         []BucketSummary   `json:"buckets"`
	OverflowCreated int               `json:"overflow_created"`
	RejectionCount  int               `json:"rejection_count"`

	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// RunDetail is a run with its archived report link when one exists.
type RunDetail struct {
	Run       *SortRun `json:"run"`
	ReportURL string   `json:"report_url,omitempty"`
}

// Pagination echoes the page window of a list response.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// RunPage is one page of run history, newest first.
type RunPage struct {
	Runs       []*SortRun `json:"runs"`
	Pagination Pagination `json:"pagination"`
}

// GroupOverview describes one storage group's schema and current occupancy.
type GroupOverview struct {
	Name      string         `json:"name"`
	States    []string       `json:"states"`
	Overflow  bool           `json:"overflow,omitempty"`
	Occupancy map[string]int `json:"occupancy,omitempty"`
}

// GroupsResult is the response for Groups.
type GroupsResult struct {
	Groups []GroupOverview `json:"groups"`
}

// ResidentsResult is the response for GroupResidents.
type ResidentsResult struct {
	Group     string   `json:"group"`
	Residents []string `json:"residents"`
}

// ─────────────────────────────────────────────────────────────────────────────
// SortingClient
// ─────────────────────────────────────────────────────────────────────────────

// SortingClient provides access to sort execution, run history, and
// storage-group endpoints.
type SortingClient struct {
	client *Client
}

type sortRequest struct {
	Names []string `json:"names"`
}

// Sort resolves and places the named compounds synchronously and returns
// the full placement result.
//
// POST /api/v1/sort
func (sc *SortingClient) Sort(ctx context.Context, names []string) (*SortResult, error) {
	if len(names) == 0 {
		return nil, invalidArg("at least one compound name is required")
	}

	var result SortResult
	if err := sc.client.post(ctx, "/api/v1/sort", sortRequest{Names: names}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SortAsync enqueues the batch for a worker and returns the run identity to
// poll with Run.
//
// POST /api/v1/sort/async
func (sc *SortingClient) SortAsync(ctx context.Context, names []string) (*EnqueueReceipt, error) {
	if len(names) == 0 {
		return nil, invalidArg("at least one compound name is required")
	}

	var receipt EnqueueReceipt
	if err := sc.client.post(ctx, "/api/v1/sort/async", sortRequest{Names: names}, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Runs lists run history, newest first.  Zero page values take defaults.
//
// GET /api/v1/sort/runs
func (sc *SortingClient) Runs(ctx context.Context, page, pageSize int) (*RunPage, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	q := url.Values{}
	q.Set("page", fmt.Sprintf("%d", page))
	q.Set("page_size", fmt.Sprintf("%d", pageSize))

	var result RunPage
	if err := sc.client.get(ctx, "/api/v1/sort/runs?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Run fetches one run by its identifier.
//
// GET /api/v1/sort/runs/{runID}
func (sc *SortingClient) Run(ctx context.Context, runID string) (*RunDetail, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, invalidArg("run id is required")
	}

	var detail RunDetail
	path := fmt.Sprintf("/api/v1/sort/runs/%s", url.PathEscape(runID))
	if err := sc.client.get(ctx, path, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// LatestRun fetches the most recent completed run.
//
// GET /api/v1/sort/runs/latest
func (sc *SortingClient) LatestRun(ctx context.Context) (*RunDetail, error) {
	var detail RunDetail
	if err := sc.client.get(ctx, "/api/v1/sort/runs/latest", &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Groups lists every storage group with its allowed states and, when a run
// has executed in the serving process, current occupancy.
//
// GET /api/v1/storage-groups
func (sc *SortingClient) Groups(ctx context.Context) (*GroupsResult, error) {
	var result GroupsResult
	if err := sc.client.get(ctx, "/api/v1/storage-groups", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GroupResidents lists the compounds stored in the named group according to
// the last mirrored run.
//
// GET /api/v1/storage-groups/{group}/residents
func (sc *SortingClient) GroupResidents(ctx context.Context, group string) (*ResidentsResult, error) {
	group = strings.TrimSpace(group)
	if group == "" {
		return nil, invalidArg("group name is required")
	}

	var result ResidentsResult
	path := fmt.Sprintf("/api/v1/storage-groups/%s/residents", url.PathEscape(group))
	if err := sc.client.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

//Personal.AI order the ending
