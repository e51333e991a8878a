// Package compound defines all compound-domain Data Transfer Objects,
// enumerations, and request/response structures used across every layer of the
// ChemStor-Intelligence platform.  No domain logic lives here — only plain
// data types that are safe to import from any layer without creating circular
// dependencies.
package compound

import (
	"strings"

	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Pictogram — GHS hazard pictogram category label
// ─────────────────────────────────────────────────────────────────────────────

// Pictogram is a GHS hazard pictogram category as reported by the safety-data
// resolver (PubChem pug_view markup).  The label set is open: resolvers may
// return labels outside the known constants, which the severity table ranks
// last.
type Pictogram string

const (
	PictogramExplosive           Pictogram = "Explosive"
	PictogramCompressedGas       Pictogram = "Compressed Gas"
	PictogramOxidizer            Pictogram = "Oxidizer"
	PictogramFlammable           Pictogram = "Flammable"
	PictogramCorrosive           Pictogram = "Corrosive"
	PictogramHealthHazard        Pictogram = "Health Hazard"
	PictogramAcuteToxic          Pictogram = "Acute Toxic"
	PictogramIrritant            Pictogram = "Irritant"
	PictogramEnvironmentalHazard Pictogram = "Environmental Hazard"
)

// KnownPictograms lists every pictogram category with an assigned severity
// rank, in rank order.
func KnownPictograms() []Pictogram {
	return []Pictogram{
		PictogramExplosive,
		PictogramCompressedGas,
		PictogramOxidizer,
		PictogramFlammable,
		PictogramCorrosive,
		PictogramHealthHazard,
		PictogramAcuteToxic,
		PictogramIrritant,
		PictogramEnvironmentalHazard,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// PhysicalState — state of matter at the 25 °C reference temperature
// ─────────────────────────────────────────────────────────────────────────────

// PhysicalState is a compound's state of matter at the 25 °C reference
// temperature, derived from melting and boiling points.  StateUnknown is an
// explicit value recorded when thermal data is missing; it is never silently
// replaced by a guess on the record itself.
type PhysicalState string

const (
	StateSolid   PhysicalState = "solid"
	StateLiquid  PhysicalState = "liquid"
	StateGas     PhysicalState = "gas"
	StateUnknown PhysicalState = "unknown"
)

// StateKey identifies one of the per-state sub-buckets inside a storage group.
type StateKey string

const (
	StateKeySolid  StateKey = "solid"
	StateKeyLiquid StateKey = "liquid"
	StateKeyGas    StateKey = "gas"
)

// BucketKey maps a physical state onto the storage-group sub-bucket holding
// it: liquid → liquid, solid → solid, everything else (gas and unknown) →
// gas.  The record keeps its explicit state; only the bucket choice collapses
// unknown into the gas key.
func (s PhysicalState) BucketKey() StateKey {
	str := string(s)
	switch {
	case strings.Contains(str, "liquid"):
		return StateKeyLiquid
	case strings.Contains(str, "solid"):
		return StateKeySolid
	default:
		return StateKeyGas
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// AcidBaseTag — classification tags emitted by the acid/base classifier
// ─────────────────────────────────────────────────────────────────────────────

// AcidBaseTag is one classification signal from the acid/base classifier.
// TagAcid and TagBase come from name heuristics; TagBasic comes from
// structural substructure matches; TagUncertainH290 marks the "corrosive to
// metals" GHS ambiguity.  TagInvalidStructure is terminal (sole member of the
// set) and TagUnknown appears only alone.
type AcidBaseTag string

const (
	TagAcid             AcidBaseTag = "acid"
	TagBase             AcidBaseTag = "base"
	TagBasic            AcidBaseTag = "basic"
	TagUnknown          AcidBaseTag = "unknown"
	TagUncertainH290    AcidBaseTag = "uncertain-H290"
	TagInvalidStructure AcidBaseTag = "invalid-structure"
)

// TagSet is an ordered, duplicate-free set of acid/base classification tags.
// Order is insertion order, which keeps classifier output deterministic.
type TagSet []AcidBaseTag

// Contains reports whether the set holds the given tag.
func (ts TagSet) Contains(tag AcidBaseTag) bool {
	for _, t := range ts {
		if t == tag {
			return true
		}
	}
	return false
}

// Add appends a tag unless it is already present and returns the set.
func (ts TagSet) Add(tag AcidBaseTag) TagSet {
	if ts.Contains(tag) {
		return ts
	}
	return append(ts, tag)
}

// IsAcid reports whether the compound carries the acid tag.
func (ts TagSet) IsAcid() bool {
	return ts.Contains(TagAcid)
}

// IsBase reports whether the compound carries a base-side tag.  The
// structural tag "basic" participates exactly as the textual tag "base";
// they differ only in provenance.
func (ts TagSet) IsBase() bool {
	return ts.Contains(TagBase) || ts.Contains(TagBasic)
}

// Strings returns the tags as plain strings, preserving order.
func (ts TagSet) Strings() []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// FingerprintType — structure fingerprint algorithm identifier
// ─────────────────────────────────────────────────────────────────────────────

// FingerprintType identifies which fingerprint algorithm was used to generate
// a particular bit-vector for a compound structure.
type FingerprintType string

const (
	// FPMorgan is the circular Morgan / ECFP fingerprint (default radius 2 → ECFP4).
	FPMorgan FingerprintType = "morgan"

	// FPMACCS is the 166-bit MACCS structural keys fingerprint.
	FPMACCS FingerprintType = "maccs"

	// FPTopological is the path-based topological fingerprint.
	FPTopological FingerprintType = "topological"
)

// ─────────────────────────────────────────────────────────────────────────────
// CompoundDTO — cross-layer data transfer object for a compound record
// ─────────────────────────────────────────────────────────────────────────────

// CompoundDTO is the canonical compound representation passed between the
// application, interface, and client layers.
//
// Pictograms are severity-ordered (most severe first) by the time a DTO is
// produced, so index 0 is the dominant hazard.  Fingerprints are keyed by
// FingerprintType so the transport layer can include or omit them per use
// case (HTTP responses omit them; Milvus indexing includes them).
type CompoundDTO struct {
	common.BaseEntity

	// Name is the display name the record was requested under.
	Name string `json:"name"`

	// CID is the PubChem compound identifier; empty when resolution failed.
	CID string `json:"cid,omitempty"`

	// CanonicalName is the resolver's record title for the compound.
	CanonicalName string `json:"canonical_name,omitempty"`

	// IUPACName is the systematic name; "Unknown" when the resolver has none.
	IUPACName string `json:"iupac_name,omitempty"`

	// SMILES is the structure notation string; "Unknown" when unavailable.
	SMILES string `json:"smiles,omitempty"`

	// Pictograms is the severity-ordered GHS pictogram list (may be empty).
	Pictograms []Pictogram `json:"pictograms"`

	// HazardStatements lists the GHS hazard phrases (may be empty).
	HazardStatements []string `json:"hazard_statements"`

	// AcidBase is the classifier's tag set.
	AcidBase TagSet `json:"acid_base"`

	// State is the physical state at 25 °C; "unknown" when thermal data is
	// missing.
	State PhysicalState `json:"state"`

	// MeltingC and BoilingC are the looked-up phase-change points in Celsius;
	// nil when the source had no parseable value.
	MeltingC *float64 `json:"melting_c,omitempty"`
	BoilingC *float64 `json:"boiling_c,omitempty"`

	// Fingerprints maps each computed fingerprint algorithm to its
	// byte-encoded bit-vector.
	Fingerprints map[FingerprintType][]byte `json:"fingerprints,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Search request / response types
// ─────────────────────────────────────────────────────────────────────────────

// StatementSearchRequest is the input DTO for hazard-statement text searches
// executed against the OpenSearch compound index.
type StatementSearchRequest struct {
	// Statement is the free-text hazard phrase to match (e.g. "causes severe
	// skin burns").
	Statement string `json:"statement"`

	// MaxResults caps the number of matching compounds returned.  Defaults to
	// 20 when zero; the service layer enforces an upper bound of 500.
	MaxResults int `json:"max_results,omitempty"`
}

// StatementSearchResponse is the output DTO for hazard-statement searches.
type StatementSearchResponse struct {
	Results []CompoundDTO `json:"results"`
	Total   int64         `json:"total"`
}

// SimilarSearchRequest is the input DTO for fingerprint-similarity lookups
// against the Milvus vector store.
type SimilarSearchRequest struct {
	// CID identifies the query compound whose stored fingerprint seeds the
	// search.
	CID string `json:"cid"`

	// Limit caps the number of neighbours returned.  Defaults to 10 when
	// zero.
	Limit int `json:"limit,omitempty"`
}

// SimilarCompound is one similarity-search hit.
type SimilarCompound struct {
	CID   string  `json:"cid"`
	Name  string  `json:"name,omitempty"`
	Score float64 `json:"score"`
}

// SimilarSearchResponse is the output DTO for similarity lookups.
type SimilarSearchResponse struct {
	Results []SimilarCompound `json:"results"`
}

//Personal.AI order the ending
