package compound

import (
	"context"

	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// Service provides domain operations over compound records.  It owns no
// orchestration — resolving names against PubChem and running the sorter are
// application-layer concerns — but every persistence-adjacent rule (name
// validation, fingerprint upkeep, optimistic updates) funnels through here.
type Service struct {
	repo   Repository
	logger logging.Logger
}

// NewService creates a compound domain service.
func NewService(repo Repository, logger logging.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// CreateCompound persists a new compound record.
func (s *Service) CreateCompound(ctx context.Context, c *Compound) error {
	if c == nil {
		return errors.InvalidParam("compound cannot be nil")
	}

	if err := s.repo.Create(ctx, c); err != nil {
		s.logger.Error("failed to create compound",
			logging.String("name", c.Name),
			logging.Err(err))
		return err
	}

	s.logger.Info("compound created",
		logging.String("id", string(c.ID)),
		logging.String("name", c.Name),
		logging.Int("pictograms", len(c.Pictograms)))
	return nil
}

// GetCompound retrieves a compound by its internal identifier.
func (s *Service) GetCompound(ctx context.Context, id common.ID) (*Compound, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// GetCompoundByName retrieves a compound by display name.
func (s *Service) GetCompoundByName(ctx context.Context, name string) (*Compound, error) {
	if name == "" {
		return nil, errors.InvalidParam("compound name cannot be empty")
	}
	return s.repo.GetByName(ctx, name)
}

// GetCompoundByCID retrieves a compound by its PubChem identifier.
func (s *Service) GetCompoundByCID(ctx context.Context, cid string) (*Compound, error) {
	if cid == "" {
		return nil, errors.InvalidParam("CID cannot be empty")
	}
	return s.repo.GetByCID(ctx, cid)
}

// UpdateCompound persists modifications to an existing compound.
func (s *Service) UpdateCompound(ctx context.Context, c *Compound) error {
	if c == nil {
		return errors.InvalidParam("compound cannot be nil")
	}

	if err := s.repo.Update(ctx, c); err != nil {
		s.logger.Error("failed to update compound",
			logging.String("id", string(c.ID)),
			logging.Err(err))
		return err
	}

	s.logger.Info("compound updated",
		logging.String("id", string(c.ID)),
		logging.String("name", c.Name))
	return nil
}

// DeleteCompound removes a compound record.
func (s *Service) DeleteCompound(ctx context.Context, id common.ID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete compound",
			logging.String("id", string(id)),
			logging.Err(err))
		return err
	}

	s.logger.Info("compound deleted", logging.String("id", string(id)))
	return nil
}

// ListCompounds returns one page of compounds plus the total count.
func (s *Service) ListCompounds(ctx context.Context, page common.Pagination) ([]*Compound, int64, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, page)
}

// ListByPictogram returns one page of compounds carrying the given pictogram.
func (s *Service) ListByPictogram(ctx context.Context, p ctypes.Pictogram, page common.Pagination) ([]*Compound, int64, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPictogram(ctx, p, page)
}

// ListByState returns one page of compounds in the given physical state.
func (s *Service) ListByState(ctx context.Context, state ctypes.PhysicalState, page common.Pagination) ([]*Compound, int64, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByState(ctx, state, page)
}

// EnsureFingerprints computes any of the requested fingerprint types the
// compound does not yet carry and persists the updated record.  Compounds
// without a usable structure notation are skipped without error, since only a
// subset of records resolve to a SMILES string.
func (s *Service) EnsureFingerprints(ctx context.Context, c *Compound, fpTypes ...ctypes.FingerprintType) error {
	if c == nil {
		return errors.InvalidParam("compound cannot be nil")
	}
	if c.SMILES == "" || c.SMILES == UnknownValue {
		s.logger.Debug("skipping fingerprints, no structure notation",
			logging.String("name", c.Name))
		return nil
	}

	if len(fpTypes) == 0 {
		fpTypes = []ctypes.FingerprintType{ctypes.FPMorgan}
	}

	computed := 0
	for _, fpType := range fpTypes {
		if _, ok := c.Fingerprints[fpType]; ok {
			continue
		}
		if err := c.CalculateFingerprint(fpType); err != nil {
			s.logger.Error("fingerprint calculation failed",
				logging.String("name", c.Name),
				logging.String("type", string(fpType)),
				logging.Err(err))
			return err
		}
		computed++
	}

	if computed == 0 {
		return nil
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return err
	}

	s.logger.Debug("fingerprints computed",
		logging.String("name", c.Name),
		logging.Int("count", computed))
	return nil
}

// Similarity computes the Tanimoto similarity between two stored compounds,
// computing any missing fingerprints on the fly.
func (s *Service) Similarity(ctx context.Context, id1, id2 common.ID, fpType ctypes.FingerprintType) (float64, error) {
	c1, err := s.GetCompound(ctx, id1)
	if err != nil {
		return 0, err
	}
	c2, err := s.GetCompound(ctx, id2)
	if err != nil {
		return 0, err
	}

	if err := s.EnsureFingerprints(ctx, c1, fpType); err != nil {
		return 0, err
	}
	if err := s.EnsureFingerprints(ctx, c2, fpType); err != nil {
		return 0, err
	}

	return c1.SimilarityTo(c2, fpType)
}

// BatchImport persists many compounds in one round trip, returning the number
// actually inserted.
func (s *Service) BatchImport(ctx context.Context, cs []*Compound) (int64, error) {
	if len(cs) == 0 {
		return 0, nil
	}

	inserted, err := s.repo.BatchCreate(ctx, cs)
	if err != nil {
		s.logger.Error("batch import failed",
			logging.Int("requested", len(cs)),
			logging.Err(err))
		return 0, err
	}

	s.logger.Info("batch import finished",
		logging.Int("requested", len(cs)),
		logging.Int64("inserted", inserted))
	return inserted, nil
}

// Count returns the total number of stored compounds.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

//Personal.AI order the ending
