package storage

import (
	"fmt"

	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// fixedGroupOrder is the canonical creation and display order of the fixed
// groups.
var fixedGroupOrder = []string{
	GroupNone,
	GroupHazardousEnvironment,
	GroupAcuteToxicity,
	GroupCMRSTOT,
	GroupToxicity23,
	GroupAcidCorrosive1,
	GroupAcidIrritant,
	GroupBaseCorrosive1,
	GroupBaseIrritant,
	GroupPyrophoric,
	GroupFlammable,
	GroupOxidizer,
	GroupExplosive,
	GroupCompressedGas,
	GroupNitricAcid,
}

// FixedGroupNames returns the canonical fixed-group order.
func FixedGroupNames() []string {
	out := make([]string, len(fixedGroupOrder))
	copy(out, fixedGroupOrder)
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Registry
// ─────────────────────────────────────────────────────────────────────────────

// Registry owns all storage groups for one sorting lifetime: the fixed set
// created up front plus overflow groups created on demand.  The sorter is the
// sole mutator; a registry must not be shared between concurrent sort passes.
type Registry struct {
	groups        map[string]*StorageGroup
	overflowOrder []string
}

// NewRegistry creates a registry holding the fifteen fixed groups, all empty.
// Every fixed group carries the full solid/liquid/gas schema except
// compressed_gas, which is gas-only.
func NewRegistry() *Registry {
	r := &Registry{
		groups: make(map[string]*StorageGroup, len(fixedGroupOrder)),
	}
	for _, name := range fixedGroupOrder {
		if name == GroupCompressedGas {
			r.groups[name] = NewStorageGroup(name, gasOnlyKeys...)
			continue
		}
		r.groups[name] = NewStorageGroup(name)
	}
	return r
}

// Group returns the named group, or false when it does not exist.
func (r *Registry) Group(name string) (*StorageGroup, bool) {
	g, ok := r.groups[name]
	return g, ok
}

// MustGroup returns the named group; it is for the fixed names the sorter
// routes to and panics on a name outside the registry.
func (r *Registry) MustGroup(name string) *StorageGroup {
	g, ok := r.groups[name]
	if !ok {
		panic(fmt.Sprintf("storage: unknown group %q", name))
	}
	return g
}

// Has reports whether a group with the given name exists.
func (r *Registry) Has(name string) bool {
	_, ok := r.groups[name]
	return ok
}

// Len returns the total number of groups, fixed plus overflow.
func (r *Registry) Len() int {
	return len(r.groups)
}

// CreateOverflow creates the next overflow group, named with the smallest
// positive integer not already used as a group name, carrying the full
// three-key schema.  Creation order is remembered for the sorter's fallback
// scan.
func (r *Registry) CreateOverflow() *StorageGroup {
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s%d", OverflowPrefix, n)
		if _, exists := r.groups[name]; exists {
			continue
		}
		g := NewStorageGroup(name)
		r.groups[name] = g
		r.overflowOrder = append(r.overflowOrder, name)
		return g
	}
}

// OverflowGroups returns the overflow groups in creation order.
func (r *Registry) OverflowGroups() []*StorageGroup {
	out := make([]*StorageGroup, 0, len(r.overflowOrder))
	for _, name := range r.overflowOrder {
		out = append(out, r.groups[name])
	}
	return out
}

// AllGroups returns every group in stable order: the fixed groups in
// canonical order, then overflow groups in creation order.
func (r *Registry) AllGroups() []*StorageGroup {
	out := make([]*StorageGroup, 0, len(r.groups))
	for _, name := range fixedGroupOrder {
		out = append(out, r.groups[name])
	}
	for _, name := range r.overflowOrder {
		out = append(out, r.groups[name])
	}
	return out
}

// TotalCompounds returns the number of compounds placed across all groups.
func (r *Registry) TotalCompounds() int {
	n := 0
	for _, g := range r.groups {
		n += g.Size()
	}
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Bucket Enumeration
// ─────────────────────────────────────────────────────────────────────────────

// BucketView is one non-empty (group, state) slot for display.
type BucketView struct {
	Group     string
	State     ctypes.StateKey
	Compounds []*compound.Compound
}

// NonEmptyBuckets lists every occupied (group, state) bucket in stable order:
// groups as AllGroups orders them, states in solid/liquid/gas order within
// each group.
func (r *Registry) NonEmptyBuckets() []BucketView {
	var out []BucketView
	for _, g := range r.AllGroups() {
		for _, key := range g.Keys() {
			occupants := g.OccupantsIn(key)
			if len(occupants) == 0 {
				continue
			}
			view := BucketView{
				Group:     g.Name,
				State:     key,
				Compounds: make([]*compound.Compound, len(occupants)),
			}
			copy(view.Compounds, occupants)
			out = append(out, view)
		}
	}
	return out
}

// FindCompound returns the (group, state) slot holding the compound with the
// given name, matched case-insensitively.
func (r *Registry) FindCompound(name string) (string, ctypes.StateKey, bool) {
	for _, g := range r.AllGroups() {
		for _, key := range g.Keys() {
			for _, c := range g.OccupantsIn(key) {
				if c.NameEquals(name) {
					return g.Name, key, true
				}
			}
		}
	}
	return "", "", false
}

// Validate checks registry integrity: all fixed groups present with their
// schema, overflow names well-formed.  It exists for tests and for restoring
// a registry from a persisted run.
func (r *Registry) Validate() error {
	for _, name := range fixedGroupOrder {
		g, ok := r.groups[name]
		if !ok {
			return errors.New(errors.ErrCodeStorageGroupNotFound,
				"fixed group missing from registry").
				WithDetail(fmt.Sprintf("group=%s", name))
		}
		if name == GroupCompressedGas && !g.IsGasOnly() {
			return errors.New(errors.ErrCodeStorageStateUnsupported,
				"compressed_gas group must be gas-only")
		}
	}
	for _, name := range r.overflowOrder {
		if _, ok := r.groups[name]; !ok {
			return errors.New(errors.ErrCodeStorageGroupNotFound,
				"overflow group missing from registry").
				WithDetail(fmt.Sprintf("group=%s", name))
		}
	}
	return nil
}

//Personal.AI order the ending
