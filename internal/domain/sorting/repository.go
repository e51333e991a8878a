package sorting

import (
	"context"

	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
)

// Repository defines the persistence contract for sort runs.  Placements and
// bucket summaries are stored with the run; the registry itself is transient
// engine state and is reconstructed from placements when needed.
type Repository interface {
	// Create persists a new run (normally in pending or running state).
	Create(ctx context.Context, run *SortRun) error

	// Update persists status transitions and the engine outcome.
	// Returns CodeSortRunNotFound when the run does not exist.
	Update(ctx context.Context, run *SortRun) error

	// GetByID retrieves a run with its placements and buckets.
	// Returns CodeSortRunNotFound when no run exists.
	GetByID(ctx context.Context, id common.ID) (*SortRun, error)

	// List returns one page of runs ordered by creation time descending,
	// together with the total count.
	List(ctx context.Context, page common.Pagination) ([]*SortRun, int64, error)

	// LatestCompleted returns the most recent successfully completed run.
	// Returns CodeSortRunNotFound when none exists.
	LatestCompleted(ctx context.Context) (*SortRun, error)
}

//Personal.AI order the ending
