package sorting

import (
	"sort"

	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compatibility"
	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	"github.com/turtacn/ChemStor-Intelligence/internal/domain/storage"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// Rejection records one compatibility refusal encountered while looking for a
// home for a compound.  Rule carries the failing rule's name for metrics.
type Rejection struct {
	Group string
	Rule  string
}

// Placement records where one compound landed and how it got there.
type Placement struct {
	Compound *compound.Compound
	Group    string
	State    ctypes.StateKey

	// Forced marks the bypass routes (nitric acid by name, compressed gas
	// and explosives by dominant pictogram) that skip compatibility.
	Forced bool

	// Fallback marks placements that went through the overflow scan instead
	// of the primary candidate group.
	Fallback bool

	// Rejections lists every group that refused the compound on the way.
	Rejections []Rejection
}

// Result is the outcome of one full sorting pass.
type Result struct {
	Placements      []Placement
	OverflowCreated int
}

// TotalRejections counts compatibility refusals across all placements.
func (r *Result) TotalRejections() int {
	n := 0
	for _, p := range r.Placements {
		n += len(p.Rejections)
	}
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Sorter
// ─────────────────────────────────────────────────────────────────────────────

// Sorter runs the storage assignment pass.  It is stateless between calls;
// all mutable state lives in the registry, which must not be shared between
// concurrent passes.
type Sorter struct {
	logger logging.Logger
}

// NewSorter creates a sorter.
func NewSorter(logger logging.Logger) *Sorter {
	return &Sorter{logger: logger}
}

// SortAll places every compound into exactly one (group, state) slot of the
// registry, mutating it in place, and returns the placement trail.
//
// The pass has four steps per the storage policy: a global severity ordering,
// a routing decision per compound from its dominant pictogram and statement
// phrases, an overflow fallback scan on rejection, and unconditional overflow
// creation so that no compound is ever dropped.
func (s *Sorter) SortAll(compounds []*compound.Compound, registry *storage.Registry) *Result {
	ordered := orderBySeverity(compounds)

	result := &Result{Placements: make([]Placement, 0, len(ordered))}
	for _, c := range ordered {
		placement := s.place(c, registry, result)
		result.Placements = append(result.Placements, placement)

		s.logger.Debug("compound placed",
			logging.String("name", c.Name),
			logging.String("group", placement.Group),
			logging.String("state", string(placement.State)),
			logging.Bool("fallback", placement.Fallback))
	}

	return result
}

// orderBySeverity stable-sorts a copy of the input by dominant-pictogram
// rank.  Compounds without pictograms rank last; ties keep input order so the
// pass stays deterministic.
func orderBySeverity(compounds []*compound.Compound) []*compound.Compound {
	ordered := make([]*compound.Compound, len(compounds))
	copy(ordered, compounds)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DominantRank() < ordered[j].DominantRank()
	})
	return ordered
}

// place routes one compound: forced overrides first, then the primary
// candidate with a compatibility check, then the overflow scan, and finally a
// fresh overflow group.
func (s *Sorter) place(c *compound.Compound, registry *storage.Registry, result *Result) Placement {
	// Name override: nitric acid always goes to its dedicated group, no
	// compatibility check, regardless of pictograms.
	if c.NameEquals(NitricAcidName) {
		return s.placeInto(c, registry.MustGroup(storage.GroupNitricAcid), Placement{Forced: true})
	}

	candidate, forced, ok := routeByHazard(c)
	if forced {
		return s.placeInto(c, registry.MustGroup(candidate), Placement{Forced: true})
	}

	placement := Placement{}

	if ok {
		g := registry.MustGroup(candidate)
		verdict := compatibility.CheckGroup(g, c)
		if verdict.Compatible {
			return s.placeInto(c, g, placement)
		}
		placement.Rejections = append(placement.Rejections, Rejection{Group: g.Name, Rule: verdict.Rule})
	}

	// Overflow scan: first existing overflow group that accepts, in creation
	// order.  No-pictogram compounds fall back here like everyone else.
	for _, g := range registry.OverflowGroups() {
		verdict := compatibility.CheckGroup(g, c)
		if verdict.Compatible {
			placement.Fallback = true
			return s.placeInto(c, g, placement)
		}
		placement.Rejections = append(placement.Rejections, Rejection{Group: g.Name, Rule: verdict.Rule})
	}

	// A brand-new overflow group never rejects its first occupant.
	g := registry.CreateOverflow()
	result.OverflowCreated++
	placement.Fallback = true

	s.logger.Info("created overflow storage group",
		logging.String("group", g.Name),
		logging.String("compound", c.Name))

	return s.placeInto(c, g, placement)
}

// placeInto appends the compound to the group's bucket and fills the
// placement record.
func (s *Sorter) placeInto(c *compound.Compound, g *storage.StorageGroup, placement Placement) Placement {
	key, err := g.Place(c)
	if err != nil {
		// Unreachable with the registry's schemas: every routed group either
		// carries the full schema or clamps to gas.
		s.logger.Warn("placement fell outside group schema",
			logging.String("group", g.Name),
			logging.String("compound", c.Name),
			logging.Err(err))
	}

	placement.Compound = c
	placement.Group = g.Name
	placement.State = key
	return placement
}

// routeByHazard picks the primary candidate group from the dominant pictogram
// and the statement phrases.  forced marks the bypass routes; ok is false
// when no candidate exists (a Corrosive-dominant compound with neither acid
// nor base tags) and the compound goes straight to the overflow scan.
func routeByHazard(c *compound.Compound) (candidate string, forced, ok bool) {
	dominant, has := c.DominantPictogram()
	if !has {
		return storage.GroupNone, false, true
	}

	switch dominant {
	case ctypes.PictogramCompressedGas:
		return storage.GroupCompressedGas, true, true

	case ctypes.PictogramExplosive:
		return storage.GroupExplosive, true, true

	case ctypes.PictogramOxidizer:
		return storage.GroupOxidizer, false, true

	case ctypes.PictogramFlammable:
		if isPyrophoric(c) {
			return storage.GroupPyrophoric, false, true
		}
		return storage.GroupFlammable, false, true

	case ctypes.PictogramCorrosive:
		severe := hasSevereCorrosion(c)
		switch {
		case c.IsBase() && severe:
			return storage.GroupBaseCorrosive1, false, true
		case c.IsBase():
			return storage.GroupBaseIrritant, false, true
		case c.IsAcid() && severe:
			return storage.GroupAcidCorrosive1, false, true
		case c.IsAcid():
			return storage.GroupAcidIrritant, false, true
		default:
			return "", false, false
		}

	case ctypes.PictogramAcuteToxic, ctypes.PictogramHealthHazard:
		if isAcutelyToxic(c) {
			return storage.GroupAcuteToxicity, false, true
		}
		if isCMR(c) {
			return storage.GroupCMRSTOT, false, true
		}
		return storage.GroupToxicity23, false, true

	case ctypes.PictogramIrritant, ctypes.PictogramEnvironmentalHazard:
		if isAquaticHazard(c) {
			return storage.GroupHazardousEnvironment, false, true
		}
		return storage.GroupNone, false, true
	}

	// Unrecognized dominant pictogram: treated like the harmless route.
	return storage.GroupNone, false, true
}

//Personal.AI order the ending
