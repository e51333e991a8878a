package compound

import (
	"fmt"
	"hash/fnv"
	"math/bits"
	"strings"

	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// Fingerprint defaults.  Morgan radius 2 over 2048 bits corresponds to the
// ECFP4 convention and matches the Milvus collection dimension.
const (
	DefaultMorganRadius    = 2
	DefaultFingerprintBits = 2048
	MACCSFingerprintBits   = 166
)

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprint Structure
// ─────────────────────────────────────────────────────────────────────────────

// Fingerprint is a structure fingerprint as a packed bit vector.  Bit i is
// stored in byte i/8 at bit position i%8.
type Fingerprint struct {
	// Type identifies which fingerprint algorithm was used.
	Type ctypes.FingerprintType `json:"type"`

	// Bits is the packed bit vector.
	Bits []byte `json:"bits"`

	// Length is the total number of bits.
	Length int `json:"length"`

	// OnBits is the count of set bits.
	OnBits int `json:"on_bits"`
}

// NewFingerprint constructs a Fingerprint from packed bit data.
func NewFingerprint(fpType ctypes.FingerprintType, data []byte, length int) *Fingerprint {
	on := 0
	for _, b := range data {
		on += bits.OnesCount8(b)
	}
	return &Fingerprint{
		Type:   fpType,
		Bits:   data,
		Length: length,
		OnBits: on,
	}
}

// GetBit returns true if the bit at the given index is set.
func (fp *Fingerprint) GetBit(index int) bool {
	if index < 0 || index >= fp.Length {
		return false
	}
	return fp.Bits[index/8]&(1<<uint(index%8)) != 0
}

// SetBit sets the bit at the given index.
func (fp *Fingerprint) SetBit(index int) {
	if index < 0 || index >= fp.Length {
		return
	}
	old := fp.Bits[index/8]
	fp.Bits[index/8] |= 1 << uint(index%8)
	if old != fp.Bits[index/8] {
		fp.OnBits++
	}
}

// ToBytes returns the packed bit vector for storage or vector-DB indexing.
func (fp *Fingerprint) ToBytes() []byte {
	return fp.Bits
}

// ToFloat32Vector expands the bit vector into a dense 0/1 float vector of
// Length elements, the encoding the Milvus collection indexes.
func (fp *Fingerprint) ToFloat32Vector() []float32 {
	vec := make([]float32, fp.Length)
	for i := 0; i < fp.Length; i++ {
		if fp.GetBit(i) {
			vec[i] = 1
		}
	}
	return vec
}

// FingerprintFromBytes reconstructs a fingerprint from packed bit data.
func FingerprintFromBytes(fpType ctypes.FingerprintType, data []byte, length int) *Fingerprint {
	return NewFingerprint(fpType, data, length)
}

// ─────────────────────────────────────────────────────────────────────────────
// SMILES Atom Tokenisation
// ─────────────────────────────────────────────────────────────────────────────

// twoLetterElements are the organic-subset elements written with two letters
// outside brackets.
var twoLetterElements = map[string]bool{"Cl": true, "Br": true}

// atomTokens extracts the atom symbol sequence from a SMILES string, in
// notation order.  Bracket atoms contribute their element symbol; aromatic
// atoms keep their lower-case form so aromatic and aliphatic environments
// hash differently.  Bonds, ring-closure digits, and branch parentheses are
// skipped — the token sequence is a linear approximation of the molecular
// graph, which is all the hashed fingerprints need.
func atomTokens(smiles string) []string {
	var atoms []string

	for i := 0; i < len(smiles); i++ {
		ch := smiles[i]
		switch {
		case ch == '[':
			end := strings.IndexByte(smiles[i:], ']')
			if end < 0 {
				return atoms
			}
			if sym := bracketSymbol(smiles[i+1 : i+end]); sym != "" {
				atoms = append(atoms, sym)
			}
			i += end
		case ch >= 'A' && ch <= 'Z':
			if i+1 < len(smiles) && twoLetterElements[smiles[i:i+2]] {
				atoms = append(atoms, smiles[i:i+2])
				i++
			} else {
				atoms = append(atoms, string(ch))
			}
		case ch >= 'a' && ch <= 'z':
			atoms = append(atoms, string(ch))
		default:
			// bond symbol, digit, branch, or charge — not an atom
		}
	}

	return atoms
}

// bracketSymbol extracts the element symbol from bracket-atom content such as
// "NH4+", "13CH3", or "nH".
func bracketSymbol(content string) string {
	// Skip isotope digits.
	start := 0
	for start < len(content) && content[start] >= '0' && content[start] <= '9' {
		start++
	}
	if start >= len(content) {
		return ""
	}

	first := content[start]
	if first >= 'A' && first <= 'Z' {
		if start+1 < len(content) && content[start+1] >= 'a' && content[start+1] <= 'z' {
			// Two-letter element; "H" suffixes like "NH" are hydrogen counts,
			// not part of the symbol, so only extend for real elements.
			candidate := content[start : start+2]
			if candidate != "NH" && candidate != "OH" && candidate != "CH" && candidate != "SH" && candidate != "PH" && candidate != "BH" {
				return candidate
			}
		}
		return string(first)
	}
	if first >= 'a' && first <= 'z' {
		return string(first)
	}
	return ""
}

// ─────────────────────────────────────────────────────────────────────────────
// Morgan (Circular) Fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// CalculateMorganFingerprint computes a hashed circular fingerprint over the
// atom token sequence.  For each atom and each radius 0..radius, the window
// of neighbouring tokens is hashed into the bit vector, so shared local
// environments between two structures produce shared bits regardless of
// where in the notation they appear.
func CalculateMorganFingerprint(smiles string, radius, nBits int) (*Fingerprint, error) {
	if strings.TrimSpace(smiles) == "" {
		return nil, errors.InvalidParam("SMILES string cannot be empty")
	}
	if radius < 0 {
		radius = DefaultMorganRadius
	}
	if nBits <= 0 {
		nBits = DefaultFingerprintBits
	}

	atoms := atomTokens(smiles)
	if len(atoms) == 0 {
		return nil, errors.New(errors.CodeCompoundInvalidSMILES, "no atoms found in SMILES").
			WithDetail(fmt.Sprintf("smiles=%s", smiles))
	}

	packed := make([]byte, (nBits+7)/8)
	for i := range atoms {
		for r := 0; r <= radius; r++ {
			lo := i - r
			if lo < 0 {
				lo = 0
			}
			hi := i + r + 1
			if hi > len(atoms) {
				hi = len(atoms)
			}
			env := fmt.Sprintf("%d|%s", r, strings.Join(atoms[lo:hi], "."))
			setPackedBit(packed, int(hashString(env)%uint64(nBits)))
		}
	}

	return NewFingerprint(ctypes.FPMorgan, packed, nBits), nil
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func setPackedBit(packed []byte, index int) {
	packed[index/8] |= 1 << uint(index%8)
}

// ─────────────────────────────────────────────────────────────────────────────
// MACCS Keys Fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// maccsKeys maps bit positions to notation fragments whose presence sets the
// bit.  The selection favours the functional groups that matter for hazard
// classification: acidic and basic groups, oxidising and energetic moieties,
// halogens, and aromatic systems.
var maccsKeys = []struct {
	bit      int
	fragment string
}{
	{10, "c1ccccc1"},      // benzene ring
	{20, "N"},             // nitrogen
	{21, "O"},             // oxygen
	{22, "S"},             // sulfur
	{23, "F"},             // fluorine
	{24, "Cl"},            // chlorine
	{25, "Br"},            // bromine
	{26, "I"},             // iodine
	{30, "C(=O)O"},        // carboxylic acid / ester
	{31, "C(=O)N"},        // amide
	{32, "C=O"},           // carbonyl
	{33, "C#N"},           // nitrile
	{34, "[NH2]"},         // primary amine
	{35, "[N+](=O)[O-]"},  // nitro
	{36, "S(=O)(=O)"},     // sulfonyl
	{37, "C=C"},           // alkene
	{38, "C#C"},           // alkyne
	{39, "[OH]"},          // explicit hydroxyl
	{40, "("},             // branching
}

// CalculateMACCSFingerprint computes a reduced MACCS-style key fingerprint by
// probing the notation for characteristic fragments, plus size keys based on
// the atom count.
func CalculateMACCSFingerprint(smiles string) (*Fingerprint, error) {
	if strings.TrimSpace(smiles) == "" {
		return nil, errors.InvalidParam("SMILES string cannot be empty")
	}

	packed := make([]byte, (MACCSFingerprintBits+7)/8)
	for _, key := range maccsKeys {
		if key.bit < MACCSFingerprintBits && strings.Contains(smiles, key.fragment) {
			setPackedBit(packed, key.bit)
		}
	}

	atomCount := len(atomTokens(smiles))
	if atomCount == 0 {
		return nil, errors.New(errors.CodeCompoundInvalidSMILES, "no atoms found in SMILES").
			WithDetail(fmt.Sprintf("smiles=%s", smiles))
	}
	if atomCount > 5 {
		setPackedBit(packed, 50)
	}
	if atomCount > 10 {
		setPackedBit(packed, 51)
	}
	if atomCount > 20 {
		setPackedBit(packed, 52)
	}

	return NewFingerprint(ctypes.FPMACCS, packed, MACCSFingerprintBits), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Topological Fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// CalculateTopologicalFingerprint enumerates linear atom paths of length
// minPath..maxPath through the token sequence and hashes each into the bit
// vector.
func CalculateTopologicalFingerprint(smiles string, minPath, maxPath, nBits int) (*Fingerprint, error) {
	if strings.TrimSpace(smiles) == "" {
		return nil, errors.InvalidParam("SMILES string cannot be empty")
	}
	if minPath < 1 {
		minPath = 1
	}
	if maxPath < minPath {
		maxPath = 7
	}
	if nBits <= 0 {
		nBits = DefaultFingerprintBits
	}

	atoms := atomTokens(smiles)
	if len(atoms) == 0 {
		return nil, errors.New(errors.CodeCompoundInvalidSMILES, "no atoms found in SMILES").
			WithDetail(fmt.Sprintf("smiles=%s", smiles))
	}

	packed := make([]byte, (nBits+7)/8)
	for pathLen := minPath; pathLen <= maxPath && pathLen <= len(atoms); pathLen++ {
		for i := 0; i+pathLen <= len(atoms); i++ {
			path := strings.Join(atoms[i:i+pathLen], "-")
			setPackedBit(packed, int(hashString(path)%uint64(nBits)))
		}
	}

	return NewFingerprint(ctypes.FPTopological, packed, nBits), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Similarity
// ─────────────────────────────────────────────────────────────────────────────

// TanimotoSimilarity computes the Tanimoto coefficient (Jaccard index) of two
// fingerprints of the same type and length.  Returns a value in [0, 1] where
// 1 indicates identical bit vectors; two empty vectors score 0.
func TanimotoSimilarity(fp1, fp2 *Fingerprint) (float64, error) {
	if fp1 == nil || fp2 == nil {
		return 0, errors.InvalidParam("fingerprints must be non-nil")
	}
	if fp1.Type != fp2.Type || fp1.Length != fp2.Length {
		return 0, errors.InvalidParam("fingerprints must have the same type and length").
			WithDetail(fmt.Sprintf("%s/%d vs %s/%d", fp1.Type, fp1.Length, fp2.Type, fp2.Length))
	}

	intersection, union := 0, 0
	for i := range fp1.Bits {
		intersection += bits.OnesCount8(fp1.Bits[i] & fp2.Bits[i])
		union += bits.OnesCount8(fp1.Bits[i] | fp2.Bits[i])
	}
	if union == 0 {
		return 0, nil
	}
	return float64(intersection) / float64(union), nil
}

// DiceSimilarity computes the Dice coefficient of two fingerprints of the
// same type and length.
func DiceSimilarity(fp1, fp2 *Fingerprint) (float64, error) {
	if fp1 == nil || fp2 == nil {
		return 0, errors.InvalidParam("fingerprints must be non-nil")
	}
	if fp1.Type != fp2.Type || fp1.Length != fp2.Length {
		return 0, errors.InvalidParam("fingerprints must have the same type and length")
	}

	intersection := 0
	for i := range fp1.Bits {
		intersection += bits.OnesCount8(fp1.Bits[i] & fp2.Bits[i])
	}
	denom := fp1.OnBits + fp2.OnBits
	if denom == 0 {
		return 0, nil
	}
	return 2 * float64(intersection) / float64(denom), nil
}

//Personal.AI order the ending
