// Package compatibility implements the chemical co-storage rule engine: an
// ordered sequence of named predicates deciding whether a candidate compound
// may share a storage group with an existing occupant.
package compatibility

import (
	"strings"

	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// Rule names, in evaluation order.  Surfaced in verdicts so rejection metrics
// can be labelled per rule.
const (
	RuleAcidBaseClash      = "acid_base_clash"
	RulePictogramClash     = "pictogram_clash"
	RuleAcidCorrosiveToxic = "acid_corrosive_toxic"
	RuleStateSegregation   = "state_segregation"
	RuleGroupOverride      = "group_override"
)

// Verdict is the outcome of a compatibility check.  Rule names the first
// failing rule and is empty when the candidate is compatible.
type Verdict struct {
	Compatible bool
	Rule       string
}

func accept() Verdict { return Verdict{Compatible: true} }

func reject(rule string) Verdict { return Verdict{Rule: rule} }

// Check evaluates the ordered rule sequence for placing candidate next to
// existing inside targetGroup, short-circuiting on the first failure.  A nil
// existing stands for an empty group: rules 1–4 have nothing to clash with
// and pass trivially, leaving the group-specific override as the only rule
// that can reject an empty-group placement.
func Check(existing, candidate *compound.Compound, targetGroup string) Verdict {
	if existing != nil {
		if acidBaseClash(existing, candidate) {
			return reject(RuleAcidBaseClash)
		}
		if pictogramClash(existing, candidate) {
			return reject(RulePictogramClash)
		}
		if acidCorrosiveToxic(existing, candidate) {
			return reject(RuleAcidCorrosiveToxic)
		}
		if stateSegregation(existing, candidate) {
			return reject(RuleStateSegregation)
		}
	}
	if groupOverride(candidate, targetGroup) {
		return reject(RuleGroupOverride)
	}
	return accept()
}

// Compatible reports whether all rules pass.
func Compatible(existing, candidate *compound.Compound, targetGroup string) bool {
	return Check(existing, candidate, targetGroup).Compatible
}

// ─────────────────────────────────────────────────────────────────────────────
// Rule 1: acid/base clash
// ─────────────────────────────────────────────────────────────────────────────

// acidBaseClash rejects an acid-tagged compound next to a base-tagged one in
// either direction.  The structural tag "basic" participates exactly as
// "base" does.
func acidBaseClash(a, b *compound.Compound) bool {
	return (a.IsAcid() && b.IsBase()) || (a.IsBase() && b.IsAcid())
}

// ─────────────────────────────────────────────────────────────────────────────
// Rule 2: pictogram clash
// ─────────────────────────────────────────────────────────────────────────────

// forbiddenPairs are the pictogram combinations that must never share a
// group, order-independent.
var forbiddenPairs = [][2]ctypes.Pictogram{
	{ctypes.PictogramFlammable, ctypes.PictogramOxidizer},
	{ctypes.PictogramFlammable, ctypes.PictogramCorrosive},
	{ctypes.PictogramCorrosive, ctypes.PictogramOxidizer},
}

// pictogramClash rejects when any pictogram of one side pairs with any
// pictogram of the other to form a forbidden combination.
func pictogramClash(a, b *compound.Compound) bool {
	for _, pa := range a.Pictograms {
		for _, pb := range b.Pictograms {
			if pairForbidden(pa, pb) {
				return true
			}
		}
	}
	return false
}

func pairForbidden(pa, pb ctypes.Pictogram) bool {
	for _, pair := range forbiddenPairs {
		if (pa == pair[0] && pb == pair[1]) || (pa == pair[1] && pb == pair[0]) {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Rule 3: acid + corrosive vs toxic
// ─────────────────────────────────────────────────────────────────────────────

// acidCorrosiveToxic rejects an acid-tagged corrosive next to a compound
// carrying Acute Toxic or Health Hazard, in either direction.
func acidCorrosiveToxic(a, b *compound.Compound) bool {
	return (isAcidCorrosive(a) && hasToxicPictogram(b)) ||
		(isAcidCorrosive(b) && hasToxicPictogram(a))
}

func isAcidCorrosive(c *compound.Compound) bool {
	return c.IsAcid() && c.HasPictogram(ctypes.PictogramCorrosive)
}

func hasToxicPictogram(c *compound.Compound) bool {
	return c.HasPictogram(ctypes.PictogramAcuteToxic) ||
		c.HasPictogram(ctypes.PictogramHealthHazard)
}

// ─────────────────────────────────────────────────────────────────────────────
// Rule 4: state segregation
// ─────────────────────────────────────────────────────────────────────────────

// stateSegregation rejects a solid next to a liquid.  Gas and unknown states
// mix freely under this rule.
func stateSegregation(a, b *compound.Compound) bool {
	return (a.State == ctypes.StateSolid && b.State == ctypes.StateLiquid) ||
		(a.State == ctypes.StateLiquid && b.State == ctypes.StateSolid)
}

// ─────────────────────────────────────────────────────────────────────────────
// Rule 5: group-specific override
// ─────────────────────────────────────────────────────────────────────────────

// groupOverride rejects candidates whose hazard profile contradicts the
// character of the target group itself, independent of any occupant.  The
// clauses are parallel — a group name matching several of them (such as
// acid_corrosive_1) applies all of their restrictions.  An empty group name
// skips the rule.
func groupOverride(candidate *compound.Compound, targetGroup string) bool {
	name := strings.ToLower(targetGroup)
	if name == "" {
		return false
	}

	if name == "oxidizer" &&
		(candidate.HasPictogram(ctypes.PictogramFlammable) || candidate.HasPictogram(ctypes.PictogramCorrosive)) {
		return true
	}
	if (name == "flammable" || name == "pyrophoric") &&
		(candidate.HasPictogram(ctypes.PictogramOxidizer) || candidate.HasPictogram(ctypes.PictogramCorrosive)) {
		return true
	}
	if (strings.Contains(name, "corrosive") || strings.Contains(name, "irritant")) &&
		(candidate.HasPictogram(ctypes.PictogramOxidizer) || candidate.HasPictogram(ctypes.PictogramFlammable)) {
		return true
	}
	if (strings.Contains(name, "toxicity") || name == "cmr_stot") && candidate.IsAcid() {
		return true
	}
	if strings.Contains(name, "acid") && hasToxicPictogram(candidate) {
		return true
	}
	return false
}

//Personal.AI order the ending
