// Package sorting implements the storage-group assignment engine: a
// deterministic pass that routes priority-ordered compounds into hazard
// groups, verifies co-storage compatibility, and spills rejected compounds
// into overflow groups.
package sorting

import (
	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
)

// NitricAcidName is the display name that forces a compound into the
// dedicated nitric_acid group, matched case-insensitively, regardless of its
// pictograms.
const NitricAcidName = "nitric acid"

// Routing trigger phrases.  All matching is case-insensitive substring search
// over the compound's joined hazard-statement text; each table backs exactly
// one routing decision.
var (
	// pyrophoricPhrases divert a Flammable-dominant compound into the
	// pyrophoric group instead of flammable.
	pyrophoricPhrases = []string{
		"catches fire spontaneously",
		"in contact with water emits",
		"may react explosively",
	}

	// severeCorrosionPhrase splits the Corrosive branch between the
	// corrosive_1 and irritant variants of the acid/base groups.
	severeCorrosionPhrase = "causes severe skin burns and eye damage"

	// acuteToxicityPhrases route a toxic-dominant compound into
	// acute_toxicity.
	acuteToxicityPhrases = []string{"fatal", "toxic"}

	// cmrPhrases route a toxic-dominant compound into cmr_stot when the
	// acute phrases are absent.
	cmrPhrases = []string{
		"may cause genetic defects",
		"cancer",
		"may damage fertility",
		"causes damage to organs",
	}

	// aquaticHazardPhrase routes an Irritant- or Environmental-dominant
	// compound into hazardous_environment instead of none.
	aquaticHazardPhrase = "toxic to aquatic life"
)

// isPyrophoric reports whether the statements mark spontaneous ignition,
// water reactivity, or explosive reaction.
func isPyrophoric(c *compound.Compound) bool {
	return c.HasAnyStatementContaining(pyrophoricPhrases...)
}

// hasSevereCorrosion reports whether the statements carry the severe
// skin-burn phrase.
func hasSevereCorrosion(c *compound.Compound) bool {
	return c.HasStatementContaining(severeCorrosionPhrase)
}

// isAcutelyToxic reports whether the statements mention fatality or
// toxicity.
func isAcutelyToxic(c *compound.Compound) bool {
	return c.HasAnyStatementContaining(acuteToxicityPhrases...)
}

// isCMR reports whether the statements carry a carcinogenicity, mutagenicity,
// reproductive-toxicity, or organ-damage phrase.
func isCMR(c *compound.Compound) bool {
	return c.HasAnyStatementContaining(cmrPhrases...)
}

// isAquaticHazard reports whether the statements mention aquatic toxicity.
func isAquaticHazard(c *compound.Compound) bool {
	return c.HasStatementContaining(aquaticHazardPhrase)
}

//Personal.AI order the ending
