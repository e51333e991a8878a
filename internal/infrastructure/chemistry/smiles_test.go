package chemistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

func TestParseSMILES_LinearChain(t *testing.T) {
	m, err := ParseSMILES("CCO")
	require.NoError(t, err)

	require.Equal(t, 3, m.AtomCount())
	assert.Equal(t, "C", m.Atom(0).Element)
	assert.Equal(t, "O", m.Atom(2).Element)

	assert.Equal(t, 1, m.Degree(0))
	assert.Equal(t, 2, m.Degree(1))
	assert.Equal(t, 1, m.Degree(2))

	// Implicit hydrogens from default valence.
	assert.Equal(t, 3, m.HydrogenCount(0))
	assert.Equal(t, 2, m.HydrogenCount(1))
	assert.Equal(t, 1, m.HydrogenCount(2))
}

func TestParseSMILES_AromaticRing(t *testing.T) {
	m, err := ParseSMILES("c1ccccc1")
	require.NoError(t, err)

	require.Equal(t, 6, m.AtomCount())
	for i := 0; i < 6; i++ {
		assert.True(t, m.Atom(i).Aromatic)
		assert.Equal(t, 2, m.Degree(i), "ring atom %d", i)
		assert.Equal(t, 1, m.HydrogenCount(i), "ring atom %d", i)
		for _, n := range m.Neighbors(i) {
			assert.Equal(t, BondAromatic, n.Order)
		}
	}
}

func TestParseSMILES_Branches(t *testing.T) {
	m, err := ParseSMILES("CC(C)(C)C")
	require.NoError(t, err)

	require.Equal(t, 5, m.AtomCount())
	assert.Equal(t, 4, m.Degree(1))
	assert.Equal(t, 0, m.HydrogenCount(1))
}

func TestParseSMILES_BondOrders(t *testing.T) {
	m, err := ParseSMILES("C=C")
	require.NoError(t, err)
	require.Equal(t, 2, m.AtomCount())
	assert.Equal(t, BondDouble, m.Neighbors(0)[0].Order)
	assert.Equal(t, 2, m.HydrogenCount(0))

	m, err = ParseSMILES("C#N")
	require.NoError(t, err)
	assert.Equal(t, BondTriple, m.Neighbors(0)[0].Order)
	assert.Equal(t, 1, m.HydrogenCount(0))
	assert.Equal(t, 0, m.HydrogenCount(1))
}

func TestParseSMILES_BracketAtoms(t *testing.T) {
	m, err := ParseSMILES("[NH4+]")
	require.NoError(t, err)
	require.Equal(t, 1, m.AtomCount())
	assert.Equal(t, "N", m.Atom(0).Element)
	assert.Equal(t, 4, m.HydrogenCount(0))
	assert.Equal(t, 1, m.Atom(0).Charge)

	m, err = ParseSMILES("[O-]")
	require.NoError(t, err)
	assert.Equal(t, -1, m.Atom(0).Charge)
	assert.Equal(t, 0, m.HydrogenCount(0))

	m, err = ParseSMILES("[13CH4]")
	require.NoError(t, err)
	assert.Equal(t, "C", m.Atom(0).Element)
	assert.Equal(t, 4, m.HydrogenCount(0))

	m, err = ParseSMILES("[C@@H](N)O")
	require.NoError(t, err)
	assert.Equal(t, 1, m.HydrogenCount(0))
	assert.Equal(t, 2, m.Degree(0))

	m, err = ParseSMILES("[Fe+2]")
	require.NoError(t, err)
	assert.Equal(t, "Fe", m.Atom(0).Element)
	assert.Equal(t, 2, m.Atom(0).Charge)
}

func TestParseSMILES_DisconnectedFragments(t *testing.T) {
	m, err := ParseSMILES("[Na+].[OH-]")
	require.NoError(t, err)
	require.Equal(t, 2, m.AtomCount())
	assert.Equal(t, 0, m.Degree(0))
	assert.Equal(t, 0, m.Degree(1))
	assert.Equal(t, 1, m.HydrogenCount(1))
}

func TestParseSMILES_PercentRingClosure(t *testing.T) {
	m, err := ParseSMILES("C%10CC%10")
	require.NoError(t, err)
	require.Equal(t, 3, m.AtomCount())
	for i := 0; i < 3; i++ {
		assert.Equal(t, 2, m.Degree(i))
	}
}

func TestParseSMILES_TwoLetterElements(t *testing.T) {
	m, err := ParseSMILES("ClCCl")
	require.NoError(t, err)
	require.Equal(t, 3, m.AtomCount())
	assert.Equal(t, "Cl", m.Atom(0).Element)
	assert.Equal(t, "C", m.Atom(1).Element)
	assert.Equal(t, "Cl", m.Atom(2).Element)
}

func TestParseSMILES_RejectsInvalidNotation(t *testing.T) {
	invalid := []string{
		"",
		"   ",
		"Unknown", // upstream placeholder for a missing structure
		"C(",
		"C)",
		"C1CC",
		"[Xx]",
		"[]",
		"[C",
		"C?",
		"%1C",
		"1CC",
	}
	for _, notation := range invalid {
		_, err := ParseSMILES(notation)
		require.Error(t, err, "notation %q", notation)
		assert.True(t, errors.IsCode(err, errors.ErrCodeCompoundInvalidSMILES), "notation %q", notation)
	}
}

func TestParseSMILES_ExplicitBondToRingClosure(t *testing.T) {
	m, err := ParseSMILES("C=1CCCCC=1")
	require.NoError(t, err)
	require.Equal(t, 6, m.AtomCount())

	var ringBond BondOrder
	for _, n := range m.Neighbors(0) {
		if n.Atom == 5 {
			ringBond = n.Order
		}
	}
	assert.Equal(t, BondDouble, ringBond)
}
//Personal.AI order the ending
