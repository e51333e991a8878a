package compound

import (
	"context"

	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// Repository defines the persistence contract for compound aggregates.
// Implementations live in the infrastructure layer (PostgreSQL, optionally
// wrapped by the Redis cache decorator); domain and application code depend
// only on this interface.
type Repository interface {
	// Create persists a new compound record.
	// Returns ErrCodeCompoundAlreadyExists when a record with the same
	// normalised name is already stored.
	Create(ctx context.Context, c *Compound) error

	// GetByID retrieves a compound by its internal identifier.
	// Returns CodeCompoundNotFound when no record exists.
	GetByID(ctx context.Context, id common.ID) (*Compound, error)

	// GetByName retrieves a compound by display name, matched
	// case-insensitively against the normalised name column.
	// Returns CodeCompoundNotFound when no record exists.
	GetByName(ctx context.Context, name string) (*Compound, error)

	// GetByCID retrieves a compound by its PubChem compound identifier.
	// Returns CodeCompoundNotFound when no record exists.
	GetByCID(ctx context.Context, cid string) (*Compound, error)

	// Update persists modifications to an existing compound using optimistic
	// locking on the version field.
	// Returns CodeCompoundNotFound when the record does not exist and
	// CodeConflict when the stored version has moved on.
	Update(ctx context.Context, c *Compound) error

	// Delete removes a compound record.
	// Returns CodeCompoundNotFound when no record exists.
	Delete(ctx context.Context, id common.ID) error

	// List returns one page of compounds ordered by creation time, together
	// with the total record count.
	List(ctx context.Context, page common.Pagination) ([]*Compound, int64, error)

	// ListByPictogram returns one page of compounds whose hazard profile
	// carries the given pictogram, together with the total matching count.
	ListByPictogram(ctx context.Context, p ctypes.Pictogram, page common.Pagination) ([]*Compound, int64, error)

	// ListByState returns one page of compounds in the given physical state,
	// together with the total matching count.
	ListByState(ctx context.Context, state ctypes.PhysicalState, page common.Pagination) ([]*Compound, int64, error)

	// BatchCreate persists many compounds in a single round trip.  Records
	// whose names already exist are skipped; the returned count is the number
	// actually inserted.
	BatchCreate(ctx context.Context, cs []*Compound) (int64, error)

	// Count returns the total number of stored compounds.
	Count(ctx context.Context) (int64, error)
}

//Personal.AI order the ending
