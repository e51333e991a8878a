package compatibility

import (
	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	"github.com/turtacn/ChemStor-Intelligence/internal/domain/storage"
)

// CheckGroup evaluates whether a candidate may join the given storage group.
// An empty group runs the rule sequence once with no occupant, so only the
// group-specific override applies.  A populated group requires the candidate
// to be compatible with EVERY occupant across ALL state buckets — not only
// the bucket the candidate itself would land in, which is what makes the
// solid/liquid segregation rule observable at group level.  The first
// rejecting occupant decides the verdict.
func CheckGroup(g *storage.StorageGroup, candidate *compound.Compound) Verdict {
	occupants := g.Occupants()
	if len(occupants) == 0 {
		return Check(nil, candidate, g.Name)
	}

	for _, occupant := range occupants {
		if v := Check(occupant, candidate, g.Name); !v.Compatible {
			return v
		}
	}
	return accept()
}

// GroupAccepts reports whether the group-level check passes.
func GroupAccepts(g *storage.StorageGroup, candidate *compound.Compound) bool {
	return CheckGroup(g, candidate).Compatible
}

//Personal.AI order the ending
