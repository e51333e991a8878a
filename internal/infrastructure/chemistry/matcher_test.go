package chemistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

func patternByName(t *testing.T, name string) compound.SubstructurePattern {
	t.Helper()
	for _, p := range compound.AcidPatterns {
		if p.Name == name {
			return p
		}
	}
	for _, p := range compound.BasePatterns {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("no pattern named %q", name)
	return compound.SubstructurePattern{}
}

func parseStructure(t *testing.T, smiles string) compound.Structure {
	t.Helper()
	s, err := NewPatternMatcher(logging.NewNopLogger()).Parse(smiles)
	require.NoError(t, err)
	return s
}

func TestPatternMatcher_AcidPatterns(t *testing.T) {
	tests := []struct {
		name    string
		smiles  string
		pattern string
		want    bool
	}{
		{"acetic acid carboxyl", "CC(=O)O", "Carboxylic acid", true},
		{"benzoic acid carboxyl", "OC(=O)c1ccccc1", "Carboxylic acid", true},
		{"ethyl acetate is an ester", "CC(=O)OCC", "Carboxylic acid", false},
		{"acetate anion has no hydroxyl", "CC(=O)[O-]", "Carboxylic acid", false},
		{"ethanol is not an acid", "CCO", "Carboxylic acid", false},
		{"methanesulfonic acid", "CS(=O)(=O)O", "Sulfonic acid", true},
		{"sulfuric acid matches too", "OS(=O)(=O)O", "Sulfonic acid", true},
		{"dimethyl sulfoxide", "CS(=O)C", "Sulfonic acid", false},
		{"phenol hydroxyl on ring", "Oc1ccccc1", "Phenol", true},
		{"anisole is an ether", "COc1ccccc1", "Phenol", false},
		{"cyclohexanol is aliphatic", "OC1CCCCC1", "Phenol", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parseStructure(t, tt.smiles)
			assert.Equal(t, tt.want, s.Matches(patternByName(t, tt.pattern)))
		})
	}
}

func TestPatternMatcher_BasePatterns(t *testing.T) {
	tests := []struct {
		name    string
		smiles  string
		pattern string
		want    bool
	}{
		{"ammonia", "N", "Ammonia", true},
		{"ammonium cation is charged", "[NH4+]", "Ammonia", false},
		{"methylamine primary", "CN", "Primary amine", true},
		{"dimethylamine secondary", "CNC", "Secondary amine", true},
		{"trimethylamine tertiary", "CN(C)C", "Tertiary amine", true},
		{"triethylamine tertiary", "CCN(CC)CC", "Tertiary amine", true},
		{"acetamide amide", "CC(N)=O", "Amide", true},
		{"acetamide nitrogen is not an amine", "CC(N)=O", "Primary amine", false},
		{"urea", "NC(=O)N", "Urea-like", true},
		{"urea is not a plain amide", "NC(=O)N", "Amide", false},
		{"imidazole", "c1cnc[nH]1", "Imidazole-like", true},
		{"pyridine lacks the n-c-n motif", "c1ccncc1", "Imidazole-like", false},
		{"aniline", "Nc1ccccc1", "Aniline", true},
		{"aniline nitrogen is not aliphatic primary", "Nc1ccccc1", "Primary amine", false},
		{"nitromethane nitrogen is charged", "C[N+](=O)[O-]", "Primary amine", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parseStructure(t, tt.smiles)
			assert.Equal(t, tt.want, s.Matches(patternByName(t, tt.pattern)))
		})
	}
}

func TestPatternMatcher_UnknownSMARTSNeverMatches(t *testing.T) {
	s := parseStructure(t, "CCO")
	assert.False(t, s.Matches(compound.SubstructurePattern{Name: "Custom", SMARTS: "[Si]"}))
}

func TestPatternMatcher_ParseRejectsPlaceholder(t *testing.T) {
	_, err := NewPatternMatcher(nil).Parse(compound.UnknownValue)
	require.Error(t, err)

	_, err = NewPatternMatcher(nil).Parse("")
	require.Error(t, err)
}

func TestPatternMatcher_DrivesClassifier(t *testing.T) {
	classifier := compound.NewClassifier(NewPatternMatcher(logging.NewNopLogger()), logging.NewNopLogger())

	tags := classifier.Classify("Benzoic acid", "benzoic acid", "OC(=O)c1ccccc1", nil)
	assert.True(t, tags.IsAcid())

	tags = classifier.Classify("Ethylamine", "ethanamine", "CCN", nil)
	assert.True(t, tags.IsBase())
	assert.True(t, tags.Contains(ctypes.TagBasic))

	tags = classifier.Classify("Mystery compound", "", compound.UnknownValue, nil)
	assert.Equal(t, ctypes.TagSet{ctypes.TagInvalidStructure}, tags)

	tags = classifier.Classify("Water", "oxidane", "O", nil)
	assert.Equal(t, ctypes.TagSet{ctypes.TagUnknown}, tags)
}
//Personal.AI order the ending
