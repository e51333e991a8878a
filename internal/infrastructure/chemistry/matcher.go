package chemistry

import (
	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
)

// PatternMatcher parses SMILES into probe-able structures.  It implements
// compound.StructureMatcher for the classifier's fixed pattern tables; a
// SMARTS string outside those tables never matches.
type PatternMatcher struct {
	logger logging.Logger
}

// NewPatternMatcher creates a matcher.
func NewPatternMatcher(logger logging.Logger) *PatternMatcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PatternMatcher{logger: logger}
}

// Parse reads the notation into a molecular graph.
func (pm *PatternMatcher) Parse(notation string) (compound.Structure, error) {
	mol, err := ParseSMILES(notation)
	if err != nil {
		pm.logger.Debug("structure notation rejected", logging.Err(err))
		return nil, err
	}
	return &structure{mol: mol}, nil
}

type structure struct {
	mol *Molecule
}

// Matches reports whether the parsed graph contains the named pattern.
func (s *structure) Matches(pattern compound.SubstructurePattern) bool {
	predicate, ok := patternPredicates[pattern.SMARTS]
	if !ok {
		return false
	}
	return predicate(s.mol)
}

// patternPredicates maps each supported SMARTS string to a graph predicate.
// The keys mirror compound.AcidPatterns and compound.BasePatterns exactly;
// each predicate encodes the motif the SMARTS describes on the parsed graph.
var patternPredicates = map[string]func(*Molecule) bool{
	"[CX3](=O)[OX2H1]":    hasCarboxylicAcid,
	"S(=O)(=O)[OH]":       hasSulfonicAcid,
	"c[OH]":               hasPhenol,
	"[NX3;H3]":            hasAmmonia,
	"[NX3][CX3](=O)[#6]":  hasAmide,
	"[NX3][CX3](=O)[NX3]": hasUreaLike,
	"[NX3;H2][CX4]":       hasPrimaryAmine,
	"[NX3;H1][CX4][CX4]":  hasSecondaryAmine,
	"[NX3]([CX4])([CX4])": hasTertiaryAmine,
	"n1cncc1":             hasImidazoleMotif,
	"c1ccc(cc1)[NH2]":     hasAniline,
}

func isAliphaticCarbon(a Atom) bool { return a.Element == "C" && !a.Aromatic }

func isAmineNitrogen(a Atom) bool { return a.Element == "N" && !a.Aromatic && a.Charge == 0 }

// saturatedCarbon reports an sp3 carbon: aliphatic with only single bonds.
func saturatedCarbon(m *Molecule, i int) bool {
	if !isAliphaticCarbon(m.Atom(i)) {
		return false
	}
	for _, n := range m.Neighbors(i) {
		if n.Order != BondSingle {
			return false
		}
	}
	return true
}

func doubleBondedOxygens(m *Molecule, i int) int {
	count := 0
	for _, n := range m.Neighbors(i) {
		if n.Order == BondDouble && m.Atom(n.Atom).Element == "O" {
			count++
		}
	}
	return count
}

// hydroxylNeighbor reports a single-bonded neutral oxygen carrying at least
// one hydrogen.
func hydroxylNeighbor(m *Molecule, i int) bool {
	for _, n := range m.Neighbors(i) {
		o := m.Atom(n.Atom)
		if n.Order == BondSingle && o.Element == "O" && o.Charge == 0 && m.HydrogenCount(n.Atom) >= 1 {
			return true
		}
	}
	return false
}

func hasCarboxylicAcid(m *Molecule) bool {
	for i := 0; i < m.AtomCount(); i++ {
		if !isAliphaticCarbon(m.Atom(i)) {
			continue
		}
		if doubleBondedOxygens(m, i) >= 1 && hydroxylNeighbor(m, i) {
			return true
		}
	}
	return false
}

func hasSulfonicAcid(m *Molecule) bool {
	for i := 0; i < m.AtomCount(); i++ {
		if m.Atom(i).Element != "S" {
			continue
		}
		if doubleBondedOxygens(m, i) >= 2 && hydroxylNeighbor(m, i) {
			return true
		}
	}
	return false
}

func hasPhenol(m *Molecule) bool {
	for i := 0; i < m.AtomCount(); i++ {
		a := m.Atom(i)
		if a.Element == "C" && a.Aromatic && hydroxylNeighbor(m, i) {
			return true
		}
	}
	return false
}

func hasAmmonia(m *Molecule) bool {
	for i := 0; i < m.AtomCount(); i++ {
		if isAmineNitrogen(m.Atom(i)) && m.HydrogenCount(i) == 3 {
			return true
		}
	}
	return false
}

// carbonylWithNitrogens returns the number of single-bonded amine nitrogens
// and whether a carbon neighbor exists, for the carbonyl carbon at i.
func carbonylWithNitrogens(m *Molecule, i int) (nitrogens int, hasCarbon bool) {
	if !isAliphaticCarbon(m.Atom(i)) || doubleBondedOxygens(m, i) == 0 {
		return 0, false
	}
	for _, n := range m.Neighbors(i) {
		if n.Order != BondSingle {
			continue
		}
		switch m.Atom(n.Atom).Element {
		case "N":
			if isAmineNitrogen(m.Atom(n.Atom)) {
				nitrogens++
			}
		case "C":
			hasCarbon = true
		}
	}
	return nitrogens, hasCarbon
}

func hasAmide(m *Molecule) bool {
	for i := 0; i < m.AtomCount(); i++ {
		nitrogens, hasCarbon := carbonylWithNitrogens(m, i)
		if nitrogens >= 1 && hasCarbon {
			return true
		}
	}
	return false
}

func hasUreaLike(m *Molecule) bool {
	for i := 0; i < m.AtomCount(); i++ {
		nitrogens, _ := carbonylWithNitrogens(m, i)
		if nitrogens >= 2 {
			return true
		}
	}
	return false
}

// amineWith reports a neutral aliphatic nitrogen with the given hydrogen
// count whose heavy neighbors are all saturated carbons, at least minCarbons
// of them.
func amineWith(m *Molecule, hydrogens, minCarbons int) bool {
	for i := 0; i < m.AtomCount(); i++ {
		if !isAmineNitrogen(m.Atom(i)) || m.HydrogenCount(i) != hydrogens {
			continue
		}
		carbons := 0
		allSaturated := true
		for _, n := range m.Neighbors(i) {
			if !saturatedCarbon(m, n.Atom) {
				allSaturated = false
				break
			}
			carbons++
		}
		if allSaturated && carbons >= minCarbons {
			return true
		}
	}
	return false
}

func hasPrimaryAmine(m *Molecule) bool { return amineWith(m, 2, 1) }

func hasSecondaryAmine(m *Molecule) bool { return amineWith(m, 1, 2) }

func hasTertiaryAmine(m *Molecule) bool { return amineWith(m, 0, 2) }

// hasImidazoleMotif looks for the aromatic n-c-n arrangement at the core of
// imidazole and related azoles.
func hasImidazoleMotif(m *Molecule) bool {
	for i := 0; i < m.AtomCount(); i++ {
		a := m.Atom(i)
		if a.Element != "C" || !a.Aromatic {
			continue
		}
		aromaticN := 0
		for _, n := range m.Neighbors(i) {
			nb := m.Atom(n.Atom)
			if nb.Element == "N" && nb.Aromatic {
				aromaticN++
			}
		}
		if aromaticN >= 2 {
			return true
		}
	}
	return false
}

func hasAniline(m *Molecule) bool {
	for i := 0; i < m.AtomCount(); i++ {
		a := m.Atom(i)
		if a.Element != "C" || !a.Aromatic {
			continue
		}
		for _, n := range m.Neighbors(i) {
			nb := m.Atom(n.Atom)
			if nb.Element == "N" && !nb.Aromatic && nb.Charge == 0 && m.HydrogenCount(n.Atom) == 2 {
				return true
			}
		}
	}
	return false
}

//Personal.AI order the ending
