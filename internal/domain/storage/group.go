// Package storage provides the storage-group registry the sorting engine
// mutates: fifteen fixed hazard groups plus lazily created overflow groups,
// each holding per-state sub-buckets of placed compounds.
package storage

import (
	"fmt"

	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// Fixed group names.  The registry creates these once at initialization;
// compatibility rule 5 and the sorter's routing table key off them.
const (
	GroupNone                 = "none"
	GroupHazardousEnvironment = "hazardous_environment"
	GroupAcuteToxicity        = "acute_toxicity"
	GroupCMRSTOT              = "cmr_stot"
	GroupToxicity23           = "toxicity_2_3"
	GroupAcidCorrosive1       = "acid_corrosive_1"
	GroupAcidIrritant         = "acid_irritant"
	GroupBaseCorrosive1       = "base_corrosive_1"
	GroupBaseIrritant         = "base_irritant"
	GroupPyrophoric           = "pyrophoric"
	GroupFlammable            = "flammable"
	GroupOxidizer             = "oxidizer"
	GroupExplosive            = "explosive"
	GroupCompressedGas        = "compressed_gas"
	GroupNitricAcid           = "nitric_acid"
)

// OverflowPrefix is the name prefix of dynamically created overflow groups;
// the suffix is the smallest positive integer not yet used as a group name.
const OverflowPrefix = "custom_storage_"

// allStateKeys is the full schema in display order.
var allStateKeys = []ctypes.StateKey{
	ctypes.StateKeySolid,
	ctypes.StateKeyLiquid,
	ctypes.StateKeyGas,
}

// gasOnlyKeys is the reduced schema of the compressed_gas group.
var gasOnlyKeys = []ctypes.StateKey{ctypes.StateKeyGas}

// ─────────────────────────────────────────────────────────────────────────────
// StorageGroup
// ─────────────────────────────────────────────────────────────────────────────

// StorageGroup is one named bucket with state-keyed sub-lists.  The schema —
// which state keys exist — is fixed at construction: every group carries
// solid/liquid/gas except compressed_gas, which carries only gas.  Buckets
// absent from the schema cannot be addressed.
type StorageGroup struct {
	// Name is the group's registry key, e.g. "flammable" or "custom_storage_2".
	Name string

	keys    []ctypes.StateKey
	buckets map[ctypes.StateKey][]*compound.Compound
}

// NewStorageGroup creates an empty group with the given state-key schema.
// Passing no keys yields the full solid/liquid/gas schema.
func NewStorageGroup(name string, keys ...ctypes.StateKey) *StorageGroup {
	if len(keys) == 0 {
		keys = allStateKeys
	}
	schema := make([]ctypes.StateKey, len(keys))
	copy(schema, keys)

	buckets := make(map[ctypes.StateKey][]*compound.Compound, len(schema))
	for _, k := range schema {
		buckets[k] = []*compound.Compound{}
	}

	return &StorageGroup{
		Name:    name,
		keys:    schema,
		buckets: buckets,
	}
}

// Keys returns the group's state-key schema in display order.
func (g *StorageGroup) Keys() []ctypes.StateKey {
	out := make([]ctypes.StateKey, len(g.keys))
	copy(out, g.keys)
	return out
}

// HasKey reports whether the schema includes the given state key.
func (g *StorageGroup) HasKey(key ctypes.StateKey) bool {
	_, ok := g.buckets[key]
	return ok
}

// IsGasOnly reports whether the group stores only gaseous compounds.
func (g *StorageGroup) IsGasOnly() bool {
	return len(g.keys) == 1 && g.keys[0] == ctypes.StateKeyGas
}

// BucketFor maps a compound onto the state key it would occupy in this group.
// A gas-only group clamps every placement to its gas bucket; all other groups
// use the compound's own state bucket.
func (g *StorageGroup) BucketFor(c *compound.Compound) (ctypes.StateKey, error) {
	key := c.StateBucket()
	if g.HasKey(key) {
		return key, nil
	}
	if g.IsGasOnly() {
		return ctypes.StateKeyGas, nil
	}
	return "", errors.New(errors.ErrCodeStorageStateUnsupported,
		"state key not in group schema").
		WithDetail(fmt.Sprintf("group=%s key=%s", g.Name, key))
}

// Place appends the compound to its state bucket and returns the key used.
func (g *StorageGroup) Place(c *compound.Compound) (ctypes.StateKey, error) {
	key, err := g.BucketFor(c)
	if err != nil {
		return "", err
	}
	g.buckets[key] = append(g.buckets[key], c)
	return key, nil
}

// OccupantsIn returns the compounds in one state bucket, or nil when the key
// is outside the schema.
func (g *StorageGroup) OccupantsIn(key ctypes.StateKey) []*compound.Compound {
	return g.buckets[key]
}

// Occupants returns every compound in the group across all state buckets, in
// schema order.  The compatibility engine's group-level check iterates this —
// a candidate must coexist with occupants of every state, not only its own.
func (g *StorageGroup) Occupants() []*compound.Compound {
	var out []*compound.Compound
	for _, k := range g.keys {
		out = append(out, g.buckets[k]...)
	}
	return out
}

// IsEmpty reports whether no bucket holds a compound.
func (g *StorageGroup) IsEmpty() bool {
	for _, k := range g.keys {
		if len(g.buckets[k]) > 0 {
			return false
		}
	}
	return true
}

// Size returns the total number of placed compounds.
func (g *StorageGroup) Size() int {
	n := 0
	for _, k := range g.keys {
		n += len(g.buckets[k])
	}
	return n
}

// Counts returns the per-state occupancy.
func (g *StorageGroup) Counts() map[ctypes.StateKey]int {
	counts := make(map[ctypes.StateKey]int, len(g.keys))
	for _, k := range g.keys {
		counts[k] = len(g.buckets[k])
	}
	return counts
}

// IsOverflow reports whether this is a dynamically created overflow group.
func (g *StorageGroup) IsOverflow() bool {
	return len(g.Name) > len(OverflowPrefix) && g.Name[:len(OverflowPrefix)] == OverflowPrefix
}

//Personal.AI order the ending
