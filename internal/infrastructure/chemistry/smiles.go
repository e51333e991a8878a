// Package chemistry provides a lightweight structural engine over SMILES
// notation: a reader that builds an atom/bond graph and a pattern matcher
// covering the classifier's fixed acid and base tables.  It is deliberately
// not a general cheminformatics toolkit; anything it cannot read is reported
// as an invalid structure rather than guessed at.
package chemistry

import (
	"fmt"
	"strings"

	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

// BondOrder is the bond multiplicity between two atoms.
type BondOrder int

const (
	BondSingle   BondOrder = 1
	BondDouble   BondOrder = 2
	BondTriple   BondOrder = 3
	BondAromatic BondOrder = 4
)

// Atom is one node of the parsed molecular graph.
type Atom struct {
	Element  string
	Aromatic bool
	Charge   int

	// Hydrogens is the explicit H count for bracket atoms; for organic-subset
	// atoms the implicit count is derived from valence on demand.
	Hydrogens    int
	HydrogensSet bool
}

// Neighbor is one edge of the adjacency list.
type Neighbor struct {
	Atom  int
	Order BondOrder
}

// Molecule is the parsed graph.  Indices into Atoms are stable and used as
// atom identifiers throughout the package.
type Molecule struct {
	atoms []Atom
	adj   [][]Neighbor
}

// AtomCount returns the number of atoms in the graph.
func (m *Molecule) AtomCount() int { return len(m.atoms) }

// Atom returns the atom at index i.
func (m *Molecule) Atom(i int) Atom { return m.atoms[i] }

// Neighbors returns the adjacency list of atom i.
func (m *Molecule) Neighbors(i int) []Neighbor { return m.adj[i] }

// Degree returns the number of explicit connections of atom i.
func (m *Molecule) Degree(i int) int { return len(m.adj[i]) }

// defaultValence covers the organic subset; bracket atoms carry their
// hydrogen count explicitly and never consult this table.
var defaultValence = map[string]int{
	"B": 3, "C": 4, "N": 3, "O": 2, "P": 3, "S": 2,
	"F": 1, "Cl": 1, "Br": 1, "I": 1,
}

// HydrogenCount returns the hydrogen count of atom i: the explicit bracket
// count when present, otherwise the implicit count from default valence.
// Aromatic subset atoms follow the SMILES convention that ring participation
// consumes one valence (bare aromatic n is pyridine-like with no hydrogen).
func (m *Molecule) HydrogenCount(i int) int {
	a := m.atoms[i]
	if a.HydrogensSet {
		return a.Hydrogens
	}
	valence, ok := defaultValence[a.Element]
	if !ok {
		return 0
	}
	used := 0
	for _, n := range m.adj[i] {
		switch n.Order {
		case BondDouble:
			used += 2
		case BondTriple:
			used += 3
		default:
			used++
		}
	}
	if a.Aromatic {
		used++
	}
	if h := valence - used; h > 0 {
		return h
	}
	return 0
}

// organicSubset lists the atoms that may appear outside brackets, keyed by
// symbol.  Two-letter symbols are tried before single letters while scanning.
var organicSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
	"F": true, "Cl": true, "Br": true, "I": true,
}

var aromaticSubset = map[byte]string{
	'b': "B", 'c': "C", 'n': "N", 'o': "O", 'p': "P", 's': "S",
}

// bracketElements is the accepted symbol set inside brackets.  It covers the
// organic subset plus the ions and metals that show up in salt notations.
var bracketElements = map[string]bool{
	"H": true, "He": true, "Li": true, "Be": true, "B": true, "C": true,
	"N": true, "O": true, "F": true, "Na": true, "Mg": true, "Al": true,
	"Si": true, "P": true, "S": true, "Cl": true, "K": true, "Ca": true,
	"Ti": true, "Cr": true, "Mn": true, "Fe": true, "Co": true, "Ni": true,
	"Cu": true, "Zn": true, "As": true, "Se": true, "Br": true, "Mo": true,
	"Ag": true, "Cd": true, "Sn": true, "Sb": true, "I": true, "Ba": true,
	"W": true, "Pt": true, "Au": true, "Hg": true, "Pb": true, "Bi": true,
}

var aromaticBracket = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
	"se": "Se", "as": "As",
}

func invalidSMILES(notation, reason string, pos int) error {
	return errors.New(errors.ErrCodeCompoundInvalidSMILES,
		fmt.Sprintf("cannot read structure notation: %s", reason)).
		WithDetail(fmt.Sprintf("notation %q position %d", notation, pos))
}

type ringClosure struct {
	atom  int
	order BondOrder
}

// ParseSMILES reads a SMILES string into a molecular graph.  Branches, ring
// closures (including %nn), bracket atoms with isotope, chirality, hydrogen
// count, charge and atom maps, and dot-separated fragments are supported.
// Anything outside that grammar is an error.
func ParseSMILES(notation string) (*Molecule, error) {
	s := strings.TrimSpace(notation)
	if s == "" {
		return nil, errors.New(errors.ErrCodeCompoundInvalidSMILES, "empty structure notation")
	}

	m := &Molecule{}
	prev := -1
	pending := BondOrder(0)
	var branch []int
	rings := map[int]ringClosure{}

	addAtom := func(a Atom) {
		m.atoms = append(m.atoms, a)
		m.adj = append(m.adj, nil)
		idx := len(m.atoms) - 1
		if prev >= 0 {
			order := pending
			if order == 0 {
				order = BondSingle
				if m.atoms[prev].Aromatic && a.Aromatic {
					order = BondAromatic
				}
			}
			m.adj[prev] = append(m.adj[prev], Neighbor{Atom: idx, Order: order})
			m.adj[idx] = append(m.adj[idx], Neighbor{Atom: prev, Order: order})
		}
		prev = idx
		pending = 0
	}

	closeRing := func(num, pos int) error {
		if prev < 0 {
			return invalidSMILES(notation, "ring closure before any atom", pos)
		}
		open, ok := rings[num]
		if !ok {
			rings[num] = ringClosure{atom: prev, order: pending}
			pending = 0
			return nil
		}
		delete(rings, num)
		order := pending
		if order == 0 {
			order = open.order
		}
		if order == 0 {
			order = BondSingle
			if m.atoms[open.atom].Aromatic && m.atoms[prev].Aromatic {
				order = BondAromatic
			}
		}
		m.adj[open.atom] = append(m.adj[open.atom], Neighbor{Atom: prev, Order: order})
		m.adj[prev] = append(m.adj[prev], Neighbor{Atom: open.atom, Order: order})
		pending = 0
		return nil
	}

	i := 0
	for i < len(s) {
		ch := s[i]
		switch {
		case ch == '(':
			if prev < 0 {
				return nil, invalidSMILES(notation, "branch opens before any atom", i)
			}
			branch = append(branch, prev)
			i++
		case ch == ')':
			if len(branch) == 0 {
				return nil, invalidSMILES(notation, "unbalanced branch close", i)
			}
			prev = branch[len(branch)-1]
			branch = branch[:len(branch)-1]
			i++
		case ch == '-' || ch == '/' || ch == '\\':
			pending = BondSingle
			i++
		case ch == '=':
			pending = BondDouble
			i++
		case ch == '#':
			pending = BondTriple
			i++
		case ch == ':':
			pending = BondAromatic
			i++
		case ch == '.':
			prev = -1
			pending = 0
			i++
		case ch >= '0' && ch <= '9':
			if err := closeRing(int(ch-'0'), i); err != nil {
				return nil, err
			}
			i++
		case ch == '%':
			if i+2 >= len(s) || !isDigit(s[i+1]) || !isDigit(s[i+2]) {
				return nil, invalidSMILES(notation, "malformed %nn ring closure", i)
			}
			num := int(s[i+1]-'0')*10 + int(s[i+2]-'0')
			if err := closeRing(num, i); err != nil {
				return nil, err
			}
			i += 3
		case ch == '[':
			atom, width, err := parseBracketAtom(notation, s, i)
			if err != nil {
				return nil, err
			}
			addAtom(atom)
			i += width
		case ch >= 'A' && ch <= 'Z':
			symbol := string(ch)
			if i+1 < len(s) {
				two := s[i : i+2]
				if two == "Cl" || two == "Br" {
					symbol = two
				}
			}
			if !organicSubset[symbol] {
				return nil, invalidSMILES(notation, fmt.Sprintf("atom %q needs brackets or is not an element", symbol), i)
			}
			addAtom(Atom{Element: symbol})
			i += len(symbol)
		case ch >= 'a' && ch <= 'z':
			element, ok := aromaticSubset[ch]
			if !ok {
				return nil, invalidSMILES(notation, fmt.Sprintf("unknown aromatic atom %q", string(ch)), i)
			}
			addAtom(Atom{Element: element, Aromatic: true})
			i++
		default:
			return nil, invalidSMILES(notation, fmt.Sprintf("unexpected character %q", string(ch)), i)
		}
	}

	if len(branch) != 0 {
		return nil, invalidSMILES(notation, "unbalanced branch open", len(s))
	}
	if len(rings) != 0 {
		return nil, invalidSMILES(notation, "unclosed ring bond", len(s))
	}
	if len(m.atoms) == 0 {
		return nil, invalidSMILES(notation, "no atoms", 0)
	}
	return m, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// parseBracketAtom reads one [ ... ] atom starting at s[start] and returns the
// atom plus the number of bytes consumed.
func parseBracketAtom(notation, s string, start int) (Atom, int, error) {
	end := strings.IndexByte(s[start:], ']')
	if end < 0 {
		return Atom{}, 0, invalidSMILES(notation, "unclosed bracket atom", start)
	}
	body := s[start+1 : start+end]
	if body == "" {
		return Atom{}, 0, invalidSMILES(notation, "empty bracket atom", start)
	}

	a := Atom{HydrogensSet: true}
	j := 0

	// Isotope prefix.
	for j < len(body) && isDigit(body[j]) {
		j++
	}
	if j >= len(body) {
		return Atom{}, 0, invalidSMILES(notation, "bracket atom has no element symbol", start)
	}

	// Element symbol: uppercase with optional lowercase, or an aromatic
	// lowercase symbol.
	if body[j] >= 'A' && body[j] <= 'Z' {
		symbol := string(body[j])
		if j+1 < len(body) && body[j+1] >= 'a' && body[j+1] <= 'z' {
			if bracketElements[body[j:j+2]] {
				symbol = body[j : j+2]
			}
		}
		if !bracketElements[symbol] {
			return Atom{}, 0, invalidSMILES(notation, fmt.Sprintf("unknown element %q", symbol), start)
		}
		a.Element = symbol
		j += len(symbol)
	} else if body[j] >= 'a' && body[j] <= 'z' {
		symbol := string(body[j])
		if j+1 < len(body) && body[j+1] >= 'a' && body[j+1] <= 'z' {
			if _, ok := aromaticBracket[body[j:j+2]]; ok {
				symbol = body[j : j+2]
			}
		}
		element, ok := aromaticBracket[symbol]
		if !ok {
			return Atom{}, 0, invalidSMILES(notation, fmt.Sprintf("unknown aromatic element %q", symbol), start)
		}
		a.Element = element
		a.Aromatic = true
		j += len(symbol)
	} else {
		return Atom{}, 0, invalidSMILES(notation, "bracket atom has no element symbol", start)
	}

	for j < len(body) {
		switch {
		case body[j] == '@':
			j++
		case body[j] == 'H':
			a.Hydrogens = 1
			j++
			if j < len(body) && isDigit(body[j]) {
				a.Hydrogens = int(body[j] - '0')
				j++
			}
		case body[j] == '+' || body[j] == '-':
			sign := 1
			if body[j] == '-' {
				sign = -1
			}
			count := 1
			j++
			if j < len(body) && isDigit(body[j]) {
				count = int(body[j] - '0')
				j++
			} else {
				for j < len(body) && (body[j] == '+' || body[j] == '-') {
					count++
					j++
				}
			}
			a.Charge = sign * count
		case body[j] == ':':
			j++
			for j < len(body) && isDigit(body[j]) {
				j++
			}
		default:
			return Atom{}, 0, invalidSMILES(notation, fmt.Sprintf("unexpected %q in bracket atom", string(body[j])), start)
		}
	}

	return a, end + 1, nil
}

//Personal.AI order the ending
