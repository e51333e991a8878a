package compound

import (
	"strings"

	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// ─────────────────────────────────────────────────────────────────────────────
// Substructure Pattern Tables
// ─────────────────────────────────────────────────────────────────────────────

// AcidPatterns is the fixed set of substructure patterns whose presence tags
// a compound acid.
var AcidPatterns = []SubstructurePattern{
	{Name: "Carboxylic acid", SMARTS: "[CX3](=O)[OX2H1]"},
	{Name: "Sulfonic acid", SMARTS: "S(=O)(=O)[OH]"},
	{Name: "Phenol", SMARTS: "c[OH]"},
}

// BasePatterns is the fixed set of substructure patterns whose presence tags
// a compound basic.
var BasePatterns = []SubstructurePattern{
	{Name: "Ammonia", SMARTS: "[NX3;H3]"},
	{Name: "Amide", SMARTS: "[NX3][CX3](=O)[#6]"},
	{Name: "Urea-like", SMARTS: "[NX3][CX3](=O)[NX3]"},
	{Name: "Primary amine", SMARTS: "[NX3;H2][CX4]"},
	{Name: "Secondary amine", SMARTS: "[NX3;H1][CX4][CX4]"},
	{Name: "Tertiary amine", SMARTS: "[NX3]([CX4])([CX4])"},
	{Name: "Imidazole-like", SMARTS: "n1cncc1"},
	{Name: "Aniline", SMARTS: "c1ccc(cc1)[NH2]"},
}

// baseNameTerms are the name fragments that tag a compound base on textual
// evidence alone.
var baseNameTerms = []string{"hydroxide", "amine", "ammonia", "amide"}

// ─────────────────────────────────────────────────────────────────────────────
// Classifier
// ─────────────────────────────────────────────────────────────────────────────

// Classifier derives a compound's acid/base tag set by combining textual
// heuristics over its names with structural substructure matches over its
// structure notation.
type Classifier struct {
	matcher StructureMatcher
	logger  logging.Logger
}

// NewClassifier constructs a Classifier backed by the given structure
// matcher.
func NewClassifier(matcher StructureMatcher, logger logging.Logger) *Classifier {
	return &Classifier{
		matcher: matcher,
		logger:  logger,
	}
}

// Classify produces the acid/base tag set for a compound:
//
//  1. any hazard statement mentioning H290 or "corrosive to metals" adds
//     uncertain-H290;
//  2. "acid" anywhere in the lower-cased concatenation of name and formal
//     name adds acid;
//  3. any base name fragment (hydroxide, amine, ammonia, amide) adds base;
//  4. an unparseable structure notation replaces everything with the single
//     invalid-structure sentinel — textual tags gathered so far are
//     discarded because they cannot be cross-checked;
//  5. a match against any acid pattern adds acid, against any base pattern
//     adds basic.
//
// A compound matching nothing at all is tagged unknown.  Tags are not
// mutually exclusive: an amphoteric compound can carry acid and basic
// together, plus the H290 uncertainty marker.
func (cl *Classifier) Classify(name, formalName, notation string, hazardStatements []string) ctypes.TagSet {
	tags := ctypes.TagSet{}

	for _, statement := range hazardStatements {
		lower := strings.ToLower(statement)
		if strings.Contains(lower, "h290") || strings.Contains(lower, "corrosive to metals") {
			tags = tags.Add(ctypes.TagUncertainH290)
			break
		}
	}

	text := strings.ToLower(name + formalName)
	if strings.Contains(text, "acid") {
		tags = tags.Add(ctypes.TagAcid)
	}
	for _, term := range baseNameTerms {
		if strings.Contains(text, term) {
			tags = tags.Add(ctypes.TagBase)
			break
		}
	}

	structure, err := cl.matcher.Parse(notation)
	if err != nil {
		cl.logger.Debug("structure notation failed to parse, classification degraded",
			logging.String("compound", name),
			logging.Err(err))
		return ctypes.TagSet{ctypes.TagInvalidStructure}
	}

	if matchesAny(structure, AcidPatterns) {
		tags = tags.Add(ctypes.TagAcid)
	}
	if matchesAny(structure, BasePatterns) {
		tags = tags.Add(ctypes.TagBasic)
	}

	if len(tags) == 0 {
		return ctypes.TagSet{ctypes.TagUnknown}
	}
	return tags
}

// ClassifyCompound runs Classify over an assembled compound record and stores
// the resulting tag set on it.
func (cl *Classifier) ClassifyCompound(c *Compound) ctypes.TagSet {
	tags := cl.Classify(c.Name, c.IUPACName, c.SMILES, c.HazardStatements)
	c.SetClassification(tags)
	return tags
}

func matchesAny(structure Structure, patterns []SubstructurePattern) bool {
	for _, pattern := range patterns {
		if structure.Matches(pattern) {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
