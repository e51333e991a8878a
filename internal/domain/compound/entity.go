// Package compound provides the core domain model for chemical compound
// records in the ChemStor-Intelligence platform.  The Compound aggregate root
// carries everything the storage-sorting engine needs: the severity-ordered
// GHS pictograms, the hazard statements, the acid/base tag set, and the
// physical state at the 25 °C reference temperature.
package compound

import (
	"fmt"
	"strings"

	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// ─────────────────────────────────────────────────────────────────────────────
// Domain Events
// ─────────────────────────────────────────────────────────────────────────────

// DomainEvent is a marker interface for all compound-related domain events.
type DomainEvent interface {
	EventType() string
}

// CompoundCreatedEvent is published when a new compound record is created.
type CompoundCreatedEvent struct {
	CompoundID common.ID
	Name       string
}

func (e CompoundCreatedEvent) EventType() string { return "compound.created" }

// CompoundClassifiedEvent is published when the acid/base classifier has
// produced a tag set for the compound.
type CompoundClassifiedEvent struct {
	CompoundID common.ID
	Name       string
	Tags       ctypes.TagSet
}

func (e CompoundClassifiedEvent) EventType() string { return "compound.classified" }

// FingerprintCalculatedEvent is published when a structure fingerprint is
// computed.
type FingerprintCalculatedEvent struct {
	CompoundID      common.ID
	FingerprintType ctypes.FingerprintType
}

func (e FingerprintCalculatedEvent) EventType() string { return "compound.fingerprint_calculated" }

// ─────────────────────────────────────────────────────────────────────────────
// Compound Aggregate Root
// ─────────────────────────────────────────────────────────────────────────────

// UnknownValue is the placeholder the resolver layer stores when PubChem has
// no IUPAC name or structure notation for a compound.  A placeholder notation
// never parses, so classification degrades to the invalid-structure sentinel
// exactly as a genuinely malformed SMILES would.
const UnknownValue = "Unknown"

// Compound is the aggregate root for one chemical's full hazard profile.
// Identity fields come from the external resolver; the safety profile and
// thermal bounds are recorded afterwards, and classification fills the
// acid/base tag set.  By the time a Compound reaches the Sorter its
// Pictograms slice is severity-ordered with index 0 holding the dominant
// hazard.
type Compound struct {
	common.BaseEntity

	// Name is the display name the record was requested under.
	Name string `json:"name"`

	// Resolver identity (may hold UnknownValue placeholders on partial failure)
	CID           string `json:"cid,omitempty"`
	CanonicalName string `json:"canonical_name,omitempty"`
	IUPACName     string `json:"iupac_name,omitempty"`
	SMILES        string `json:"smiles,omitempty"`

	// Safety profile
	Pictograms       []ctypes.Pictogram `json:"pictograms"`
	HazardStatements []string           `json:"hazard_statements"`

	// Classification
	AcidBase ctypes.TagSet `json:"acid_base"`

	// Thermal bounds and derived state at 25 °C
	MeltingC *float64             `json:"melting_c,omitempty"`
	BoilingC *float64             `json:"boiling_c,omitempty"`
	State    ctypes.PhysicalState `json:"state"`

	// Structure fingerprints for similarity search (keyed by algorithm)
	Fingerprints map[ctypes.FingerprintType]*Fingerprint `json:"fingerprints,omitempty"`

	// Domain events (not persisted, cleared after publishing)
	events []DomainEvent
}

// NewCompound constructs a new Compound record for the given display name.
// The record starts with an unknown physical state and an empty safety
// profile; resolver and classifier results are attached afterwards.
func NewCompound(name string) (*Compound, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.InvalidParam("compound name cannot be empty")
	}

	c := &Compound{
		BaseEntity: common.BaseEntity{
			ID: common.NewID(),
		},
		Name:             name,
		Pictograms:       []ctypes.Pictogram{},
		HazardStatements: []string{},
		AcidBase:         ctypes.TagSet{},
		State:            ctypes.StateUnknown,
		Fingerprints:     make(map[ctypes.FingerprintType]*Fingerprint),
	}

	c.events = append(c.events, CompoundCreatedEvent{
		CompoundID: c.ID,
		Name:       c.Name,
	})

	return c, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Profile Construction
// ─────────────────────────────────────────────────────────────────────────────

// AttachIdentity records the resolver's identity fields.  Empty values are
// normalised to the UnknownValue placeholder so downstream text heuristics
// and structure parsing behave identically for "missing" and "unparseable".
func (c *Compound) AttachIdentity(cid, canonicalName, iupacName, smiles string) {
	c.CID = cid
	c.CanonicalName = orUnknown(canonicalName)
	c.IUPACName = orUnknown(iupacName)
	c.SMILES = orUnknown(smiles)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return UnknownValue
	}
	return s
}

// RecordSafetyProfile stores the GHS pictograms and hazard statements for the
// compound.  Pictograms are severity-sorted on the way in so that index 0 is
// always the dominant hazard.
func (c *Compound) RecordSafetyProfile(pictograms []ctypes.Pictogram, statements []string) {
	c.Pictograms = PrioritizePictograms(pictograms)
	if statements == nil {
		statements = []string{}
	}
	c.HazardStatements = statements
}

// RecordThermalProperties stores the melting and boiling points (°C, either
// may be nil) and derives the physical state at the 25 °C reference
// temperature.  Missing data yields the explicit StateUnknown value.
func (c *Compound) RecordThermalProperties(meltingC, boilingC *float64) {
	c.MeltingC = meltingC
	c.BoilingC = boilingC
	c.State = DeriveState(meltingC, boilingC)
}

// SetClassification stores the acid/base tag set produced by the classifier
// and publishes a CompoundClassifiedEvent.
func (c *Compound) SetClassification(tags ctypes.TagSet) {
	c.AcidBase = tags
	c.events = append(c.events, CompoundClassifiedEvent{
		CompoundID: c.ID,
		Name:       c.Name,
		Tags:       tags,
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Hazard Profile Queries
// ─────────────────────────────────────────────────────────────────────────────

// DominantPictogram returns the highest-severity pictogram, or false when the
// compound has none.
func (c *Compound) DominantPictogram() (ctypes.Pictogram, bool) {
	if len(c.Pictograms) == 0 {
		return "", false
	}
	return c.Pictograms[0], true
}

// DominantRank returns the severity rank of the dominant pictogram, or
// RankUnranked when the compound has no pictograms.  Lower means more severe.
func (c *Compound) DominantRank() int {
	if len(c.Pictograms) == 0 {
		return RankUnranked
	}
	return PriorityRank(c.Pictograms[0])
}

// HasPictogram reports whether the compound carries the given pictogram
// anywhere in its profile, not only at the dominant position.
func (c *Compound) HasPictogram(p ctypes.Pictogram) bool {
	for _, have := range c.Pictograms {
		if have == p {
			return true
		}
	}
	return false
}

// StatementText returns all hazard statements joined and lower-cased, the
// canonical form every phrase heuristic scans.
func (c *Compound) StatementText() string {
	return strings.ToLower(strings.Join(c.HazardStatements, " "))
}

// HasStatementContaining reports whether any hazard statement contains the
// given phrase, case-insensitively.
func (c *Compound) HasStatementContaining(phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(c.StatementText(), strings.ToLower(phrase))
}

// HasAnyStatementContaining reports whether any hazard statement contains at
// least one of the given phrases.
func (c *Compound) HasAnyStatementContaining(phrases ...string) bool {
	text := c.StatementText()
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(text, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// NameEquals reports whether the compound's display name equals the given
// name, ignoring case and surrounding whitespace.
func (c *Compound) NameEquals(name string) bool {
	return strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(name))
}

// StateBucket maps the compound's physical state onto the storage sub-bucket
// key used by storage groups.
func (c *Compound) StateBucket() ctypes.StateKey {
	return c.State.BucketKey()
}

// IsAcid reports whether the classifier tagged the compound acid-side.
func (c *Compound) IsAcid() bool { return c.AcidBase.IsAcid() }

// IsBase reports whether the classifier tagged the compound base-side.
func (c *Compound) IsBase() bool { return c.AcidBase.IsBase() }

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprint Calculation
// ─────────────────────────────────────────────────────────────────────────────

// CalculateFingerprint computes and stores the specified fingerprint type for
// this compound's structure notation.  Placeholder notations fail with an
// invalid-SMILES error.
func (c *Compound) CalculateFingerprint(fpType ctypes.FingerprintType) error {
	if c.SMILES == "" || c.SMILES == UnknownValue {
		return errors.New(errors.CodeCompoundInvalidSMILES, "no structure notation available").
			WithDetail(fmt.Sprintf("compound=%s", c.Name))
	}

	var fp *Fingerprint
	var err error

	switch fpType {
	case ctypes.FPMorgan:
		fp, err = CalculateMorganFingerprint(c.SMILES, DefaultMorganRadius, DefaultFingerprintBits)
	case ctypes.FPMACCS:
		fp, err = CalculateMACCSFingerprint(c.SMILES)
	case ctypes.FPTopological:
		fp, err = CalculateTopologicalFingerprint(c.SMILES, 1, 7, DefaultFingerprintBits)
	default:
		return errors.New(errors.ErrCodeFingerprintTypeUnsupported, "unknown fingerprint type").
			WithDetail(fmt.Sprintf("type=%s", fpType))
	}

	if err != nil {
		return errors.Wrap(err, errors.ErrCodeFingerprintGenerationFailed, "fingerprint calculation failed")
	}

	if c.Fingerprints == nil {
		c.Fingerprints = make(map[ctypes.FingerprintType]*Fingerprint)
	}
	c.Fingerprints[fpType] = fp

	c.events = append(c.events, FingerprintCalculatedEvent{
		CompoundID:      c.ID,
		FingerprintType: fpType,
	})

	return nil
}

// SimilarityTo computes the Tanimoto similarity between this compound and
// another using the specified fingerprint type.  Both compounds must have the
// requested fingerprint already computed.
func (c *Compound) SimilarityTo(other *Compound, fpType ctypes.FingerprintType) (float64, error) {
	fp1, ok := c.Fingerprints[fpType]
	if !ok {
		return 0, errors.New(errors.ErrCodeFingerprintGenerationFailed,
			"fingerprint not computed for source compound").
			WithDetail(fmt.Sprintf("type=%s", fpType))
	}

	fp2, ok := other.Fingerprints[fpType]
	if !ok {
		return 0, errors.New(errors.ErrCodeFingerprintGenerationFailed,
			"fingerprint not computed for target compound").
			WithDetail(fmt.Sprintf("type=%s", fpType))
	}

	return TanimotoSimilarity(fp1, fp2)
}

// ─────────────────────────────────────────────────────────────────────────────
// DTO Conversion
// ─────────────────────────────────────────────────────────────────────────────

// ToDTO converts the domain entity to a data transfer object suitable for
// cross-layer communication.
func (c *Compound) ToDTO() ctypes.CompoundDTO {
	dto := ctypes.CompoundDTO{
		BaseEntity:       c.BaseEntity,
		Name:             c.Name,
		CID:              c.CID,
		CanonicalName:    c.CanonicalName,
		IUPACName:        c.IUPACName,
		SMILES:           c.SMILES,
		Pictograms:       c.Pictograms,
		HazardStatements: c.HazardStatements,
		AcidBase:         c.AcidBase,
		State:            c.State,
		MeltingC:         c.MeltingC,
		BoilingC:         c.BoilingC,
	}

	if len(c.Fingerprints) > 0 {
		dto.Fingerprints = make(map[ctypes.FingerprintType][]byte)
		for fpType, fp := range c.Fingerprints {
			dto.Fingerprints[fpType] = fp.ToBytes()
		}
	}

	return dto
}

// FromDTO reconstructs a domain entity from a DTO.
func FromDTO(dto ctypes.CompoundDTO) *Compound {
	c := &Compound{
		BaseEntity:       dto.BaseEntity,
		Name:             dto.Name,
		CID:              dto.CID,
		CanonicalName:    dto.CanonicalName,
		IUPACName:        dto.IUPACName,
		SMILES:           dto.SMILES,
		Pictograms:       dto.Pictograms,
		HazardStatements: dto.HazardStatements,
		AcidBase:         dto.AcidBase,
		MeltingC:         dto.MeltingC,
		BoilingC:         dto.BoilingC,
		State:            dto.State,
		Fingerprints:     make(map[ctypes.FingerprintType]*Fingerprint),
	}

	if c.Pictograms == nil {
		c.Pictograms = []ctypes.Pictogram{}
	}
	if c.HazardStatements == nil {
		c.HazardStatements = []string{}
	}
	if c.AcidBase == nil {
		c.AcidBase = ctypes.TagSet{}
	}
	if c.State == "" {
		c.State = ctypes.StateUnknown
	}

	for fpType, bits := range dto.Fingerprints {
		var length int
		switch fpType {
		case ctypes.FPMorgan, ctypes.FPTopological:
			length = DefaultFingerprintBits
		case ctypes.FPMACCS:
			length = MACCSFingerprintBits
		default:
			length = len(bits) * 8
		}
		c.Fingerprints[fpType] = FingerprintFromBytes(fpType, bits, length)
	}

	return c
}

// ─────────────────────────────────────────────────────────────────────────────
// Domain Event Management
// ─────────────────────────────────────────────────────────────────────────────

// Events returns all unpublished domain events and clears the internal event
// list.
func (c *Compound) Events() []DomainEvent {
	events := c.events
	c.events = nil
	return events
}

//Personal.AI order the ending
