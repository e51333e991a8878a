package sorting

import (
	"time"

	"github.com/turtacn/ChemStor-Intelligence/internal/domain/storage"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// RunStatus is the lifecycle state of a sort run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run triggers, recorded for metrics labelling.
const (
	TriggerAPI    = "api"
	TriggerCLI    = "cli"
	TriggerWorker = "worker"
)

// ─────────────────────────────────────────────────────────────────────────────
// Domain Events
// ─────────────────────────────────────────────────────────────────────────────

// DomainEvent is a marker interface for sort-run events.
type DomainEvent interface {
	EventType() string
}

// SortRunStartedEvent is published when a run begins executing.
type SortRunStartedEvent struct {
	RunID     common.ID
	Requested int
}

func (e SortRunStartedEvent) EventType() string { return "sortrun.started" }

// SortRunCompletedEvent is published when a run finishes successfully.
type SortRunCompletedEvent struct {
	RunID           common.ID
	Placed          int
	Skipped         int
	OverflowCreated int
}

func (e SortRunCompletedEvent) EventType() string { return "sortrun.completed" }

// SortRunFailedEvent is published when a run aborts.
type SortRunFailedEvent struct {
	RunID  common.ID
	Reason string
}

func (e SortRunFailedEvent) EventType() string { return "sortrun.failed" }

// ─────────────────────────────────────────────────────────────────────────────
// SortRun Aggregate
// ─────────────────────────────────────────────────────────────────────────────

// PlacementRecord is the persisted form of one placement.
type PlacementRecord struct {
	CompoundName string          `json:"compound_name"`
	CID          string          `json:"cid,omitempty"`
	Group        string          `json:"group"`
	State        ctypes.StateKey `json:"state"`
	Forced       bool            `json:"forced,omitempty"`
	Fallback     bool            `json:"fallback,omitempty"`
}

// BucketSummary is one non-empty (group, state) slot of the final registry.
type BucketSummary struct {
	Group     string          `json:"group"`
	State     ctypes.StateKey `json:"state"`
	Compounds []string        `json:"compounds"`
}

// SortRun is one invocation of the sorting pipeline over a list of compound
// names: what was asked for, what resolved, where everything landed.
type SortRun struct {
	common.BaseEntity

	Status  RunStatus `json:"status"`
	Trigger string    `json:"trigger"`

	RequestedNames []string `json:"requested_names"`
	SkippedNames   []string `json:"skipped_names"`

	Placements      []PlacementRecord `json:"placements"`
	Buckets         []BucketSummary   `json:"buckets"`
	OverflowCreated int               `json:"overflow_created"`
	RejectionCount  int               `json:"rejection_count"`

	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`

	events []DomainEvent
}

// NewSortRun creates a pending run for the given compound names.
func NewSortRun(names []string, trigger string) (*SortRun, error) {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			cleaned = append(cleaned, n)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New(errors.ErrCodeSortBatchEmpty, "sort batch contains no compound names")
	}
	if trigger == "" {
		trigger = TriggerAPI
	}

	return &SortRun{
		BaseEntity: common.BaseEntity{
			ID: common.NewID(),
		},
		Status:         RunStatusPending,
		Trigger:        trigger,
		RequestedNames: cleaned,
		SkippedNames:   []string{},
		Placements:     []PlacementRecord{},
		Buckets:        []BucketSummary{},
	}, nil
}

// Start marks the run as executing.
func (r *SortRun) Start() {
	now := time.Now().UTC()
	r.StartedAt = &now
	r.Status = RunStatusRunning
	r.events = append(r.events, SortRunStartedEvent{
		RunID:     r.ID,
		Requested: len(r.RequestedNames),
	})
}

// RecordSkip notes a name that could not be resolved and never entered the
// engine.
func (r *SortRun) RecordSkip(name string) {
	r.SkippedNames = append(r.SkippedNames, name)
}

// Complete stores the engine outcome and the final registry shape.
func (r *SortRun) Complete(result *Result, registry *storage.Registry) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	r.Status = RunStatusCompleted
	r.OverflowCreated = result.OverflowCreated
	r.RejectionCount = result.TotalRejections()

	r.Placements = make([]PlacementRecord, 0, len(result.Placements))
	for _, p := range result.Placements {
		r.Placements = append(r.Placements, PlacementRecord{
			CompoundName: p.Compound.Name,
			CID:          p.Compound.CID,
			Group:        p.Group,
			State:        p.State,
			Forced:       p.Forced,
			Fallback:     p.Fallback,
		})
	}

	buckets := registry.NonEmptyBuckets()
	r.Buckets = make([]BucketSummary, 0, len(buckets))
	for _, b := range buckets {
		names := make([]string, 0, len(b.Compounds))
		for _, c := range b.Compounds {
			names = append(names, c.Name)
		}
		r.Buckets = append(r.Buckets, BucketSummary{
			Group:     b.Group,
			State:     b.State,
			Compounds: names,
		})
	}

	r.events = append(r.events, SortRunCompletedEvent{
		RunID:           r.ID,
		Placed:          len(r.Placements),
		Skipped:         len(r.SkippedNames),
		OverflowCreated: r.OverflowCreated,
	})
}

// Fail marks the run as aborted with a reason.
func (r *SortRun) Fail(reason string) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	r.Status = RunStatusFailed
	r.ErrorMessage = reason
	r.events = append(r.events, SortRunFailedEvent{
		RunID:  r.ID,
		Reason: reason,
	})
}

// Duration returns the wall time of the run, zero while it is still running.
func (r *SortRun) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// PlacedCount returns the number of compounds the run placed.
func (r *SortRun) PlacedCount() int { return len(r.Placements) }

// Events returns all unpublished domain events and clears the internal list.
func (r *SortRun) Events() []DomainEvent {
	events := r.events
	r.events = nil
	return events
}

//Personal.AI order the ending
