package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

func testCompound(t *testing.T, name string, state ctypes.PhysicalState) *compound.Compound {
	t.Helper()
	c, err := compound.NewCompound(name)
	require.NoError(t, err)
	c.State = state
	return c
}

func TestNewStorageGroup_DefaultSchema(t *testing.T) {
	g := NewStorageGroup("flammable")

	assert.Equal(t, []ctypes.StateKey{
		ctypes.StateKeySolid,
		ctypes.StateKeyLiquid,
		ctypes.StateKeyGas,
	}, g.Keys())
	assert.True(t, g.HasKey(ctypes.StateKeySolid))
	assert.True(t, g.IsEmpty())
	assert.False(t, g.IsGasOnly())
}

func TestNewStorageGroup_GasOnlySchema(t *testing.T) {
	g := NewStorageGroup("compressed_gas", ctypes.StateKeyGas)

	assert.Equal(t, []ctypes.StateKey{ctypes.StateKeyGas}, g.Keys())
	assert.False(t, g.HasKey(ctypes.StateKeySolid))
	assert.False(t, g.HasKey(ctypes.StateKeyLiquid))
	assert.True(t, g.IsGasOnly())
}

func TestStorageGroup_Place(t *testing.T) {
	g := NewStorageGroup("flammable")

	key, err := g.Place(testCompound(t, "ethanol", ctypes.StateLiquid))

	require.NoError(t, err)
	assert.Equal(t, ctypes.StateKeyLiquid, key)
	assert.Equal(t, 1, g.Size())
	assert.Len(t, g.OccupantsIn(ctypes.StateKeyLiquid), 1)
	assert.Empty(t, g.OccupantsIn(ctypes.StateKeySolid))
}

func TestStorageGroup_PlaceUnknownStateGoesToGasBucket(t *testing.T) {
	g := NewStorageGroup("none")

	key, err := g.Place(testCompound(t, "mystery", ctypes.StateUnknown))

	require.NoError(t, err)
	assert.Equal(t, ctypes.StateKeyGas, key)
}

func TestStorageGroup_GasOnlyClampsOtherStates(t *testing.T) {
	g := NewStorageGroup("compressed_gas", ctypes.StateKeyGas)

	// A liquefied gas record still lands in the group's single gas bucket.
	key, err := g.Place(testCompound(t, "liquid nitrogen", ctypes.StateLiquid))

	require.NoError(t, err)
	assert.Equal(t, ctypes.StateKeyGas, key)
	assert.Len(t, g.OccupantsIn(ctypes.StateKeyGas), 1)
}

func TestStorageGroup_PlaceOutsideSchema(t *testing.T) {
	g := NewStorageGroup("solids-only", ctypes.StateKeySolid)

	_, err := g.Place(testCompound(t, "ethanol", ctypes.StateLiquid))

	assert.Error(t, err)
	assert.True(t, g.IsEmpty())
}

func TestStorageGroup_OccupantsSpansAllBuckets(t *testing.T) {
	g := NewStorageGroup("none")
	solid := testCompound(t, "salt", ctypes.StateSolid)
	liquid := testCompound(t, "water", ctypes.StateLiquid)
	gas := testCompound(t, "helium", ctypes.StateGas)

	for _, c := range []*compound.Compound{liquid, gas, solid} {
		_, err := g.Place(c)
		require.NoError(t, err)
	}

	occupants := g.Occupants()
	require.Len(t, occupants, 3)
	// Schema order, not insertion order: solid, then liquid, then gas.
	assert.Equal(t, "salt", occupants[0].Name)
	assert.Equal(t, "water", occupants[1].Name)
	assert.Equal(t, "helium", occupants[2].Name)
}

func TestStorageGroup_Counts(t *testing.T) {
	g := NewStorageGroup("none")
	_, err := g.Place(testCompound(t, "salt", ctypes.StateSolid))
	require.NoError(t, err)
	_, err = g.Place(testCompound(t, "sugar", ctypes.StateSolid))
	require.NoError(t, err)

	counts := g.Counts()
	assert.Equal(t, 2, counts[ctypes.StateKeySolid])
	assert.Equal(t, 0, counts[ctypes.StateKeyLiquid])
	assert.Equal(t, 2, g.Size())
	assert.False(t, g.IsEmpty())
}

func TestStorageGroup_IsOverflow(t *testing.T) {
	assert.True(t, NewStorageGroup("custom_storage_1").IsOverflow())
	assert.True(t, NewStorageGroup("custom_storage_12").IsOverflow())
	assert.False(t, NewStorageGroup("flammable").IsOverflow())
	assert.False(t, NewStorageGroup("custom_storage_").IsOverflow())
}
//Personal.AI order the ending
