package compound

import (
	"context"

	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// SafetyProfile is the identity and GHS safety data the resolver returns for
// one compound name.
type SafetyProfile struct {
	CID              string
	Pictograms       []ctypes.Pictogram
	HazardStatements []string
}

// CompoundNames holds the name and structure lookups for a resolved CID.
// Fields the upstream source has no value for carry the UnknownValue
// placeholder.
type CompoundNames struct {
	CanonicalName string
	IUPACName     string
	SMILES        string
}

// ThermalProperties holds the melting and boiling points in Celsius; either
// may be nil when the source had no parseable value.
type ThermalProperties struct {
	MeltingC *float64
	BoilingC *float64
}

// SafetyDataResolver resolves a compound display name into its upstream
// identifier and GHS safety profile.
type SafetyDataResolver interface {
	// Resolve returns the compound's CID, pictogram labels, and hazard
	// statements.  Returns an error carrying ErrCodeResolverCompoundNotFound
	// when no identifier matches the name.
	Resolve(ctx context.Context, name string) (*SafetyProfile, error)
}

// NameResolver looks up display and formal names plus structure notation for
// an already-resolved identifier.
type NameResolver interface {
	LookupNames(ctx context.Context, cid string) (*CompoundNames, error)
}

// ThermalResolver looks up phase-change temperatures by compound name.
type ThermalResolver interface {
	LookupThermalProperties(ctx context.Context, name string) (*ThermalProperties, error)
}

// SubstructurePattern is one named structural pattern in SMARTS notation.
// The classifier's acid and base tables are fixed lists of these.
type SubstructurePattern struct {
	Name   string
	SMARTS string
}

// Structure is a parsed chemical structure that can be probed for
// substructure patterns.
type Structure interface {
	// Matches reports whether the structure contains the given pattern.
	Matches(pattern SubstructurePattern) bool
}

// StructureMatcher parses structure notation into a probe-able Structure.
// Implementations live in the infrastructure layer; the classifier only
// depends on this contract.
type StructureMatcher interface {
	// Parse returns an error when the notation is not a valid structure, in
	// which case classification degrades to the invalid-structure sentinel.
	Parse(notation string) (Structure, error)
}

//Personal.AI order the ending
