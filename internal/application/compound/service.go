// Package compound provides the application-level lookup pipeline that turns
// a bare compound name into a fully assembled hazard record: external
// identity resolution, name and thermal lookups, acid/base classification,
// pictogram prioritization, and fingerprint computation.  This package serves
// as the interface between HTTP/CLI handlers and the domain model.
package compound

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	domainCompound "github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// resolveConcurrency bounds the lookup fan-out for a batch.  The upstream
// rate limiter is the real throttle; this only keeps goroutine count sane.
const resolveConcurrency = 4

const eventSource = "chemstor.compound"

// Skip reasons recorded for batch entries that never reached the engine.
const (
	SkipReasonNotFound = "not_found"
	SkipReasonResolver = "resolver_error"
)

// EventPublisher is the slice of the Kafka producer the pipeline announces
// classifications through.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, env *kafka.EventEnvelope) error
}

// ClassifyInput feeds the classifier directly, without upstream lookups.
// Leaving Structure empty degrades the verdict to the invalid-structure
// sentinel, exactly as an unresolvable notation does in the full pipeline.
type ClassifyInput struct {
	Name       string   `json:"name"`
	FormalName string   `json:"formal_name,omitempty"`
	Structure  string   `json:"structure,omitempty"`
	Statements []string `json:"statements,omitempty"`
}

// Classification is the classifier verdict DTO.
type Classification struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
	Acid bool     `json:"acid"`
	Base bool     `json:"base"`
}

// SkippedCompound records one batch entry that could not be resolved.
type SkippedCompound struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Service defines the compound pipeline operations.
type Service interface {
	// Resolve runs the full lookup pipeline for one name.  A resolver miss
	// surfaces as ErrCodeResolverCompoundNotFound; partial lookups past the
	// identity step degrade the record instead of failing it.
	Resolve(ctx context.Context, name string) (*domainCompound.Compound, error)

	// ResolveBatch resolves many names with a bounded fan-out, collecting
	// unresolvable entries as skips.  Only context cancellation aborts the
	// batch; per-name failures never do.
	ResolveBatch(ctx context.Context, names []string) ([]*domainCompound.Compound, []SkippedCompound, error)

	// Classify runs the acid/base classifier over caller-supplied inputs.
	Classify(ctx context.Context, input ClassifyInput) (*Classification, error)
}

type service struct {
	safety     domainCompound.SafetyDataResolver
	names      domainCompound.NameResolver
	thermal    domainCompound.ThermalResolver
	classifier *domainCompound.Classifier
	publisher  EventPublisher
	metrics    *prometheus.AppMetrics
	logger     logging.Logger
}

// NewService creates the compound pipeline service.  publisher and metrics
// may be nil; the pipeline then skips event publishing and instrumentation.
func NewService(
	safety domainCompound.SafetyDataResolver,
	names domainCompound.NameResolver,
	thermal domainCompound.ThermalResolver,
	classifier *domainCompound.Classifier,
	publisher EventPublisher,
	metrics *prometheus.AppMetrics,
	logger logging.Logger,
) (Service, error) {
	if safety == nil || names == nil || thermal == nil {
		return nil, errors.New(errors.ErrCodeValidation, "pipeline requires all three resolver lookups")
	}
	if classifier == nil {
		return nil, errors.New(errors.ErrCodeValidation, "pipeline requires a classifier")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &service{
		safety:     safety,
		names:      names,
		thermal:    thermal,
		classifier: classifier,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger.Named("pipeline"),
	}, nil
}

func (s *service) Resolve(ctx context.Context, name string) (*domainCompound.Compound, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.InvalidParam("compound name cannot be empty")
	}

	profile, err := s.safety.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	c, err := domainCompound.NewCompound(name)
	if err != nil {
		return nil, err
	}

	// Identity lookups past this point degrade rather than fail: a record
	// with Unknown placeholders is still sortable.
	ident := &domainCompound.CompoundNames{}
	if got, lerr := s.names.LookupNames(ctx, profile.CID); lerr != nil {
		s.logger.Warn("name lookup failed, keeping placeholders",
			logging.String("name", name),
			logging.String("cid", profile.CID),
			logging.Err(lerr))
	} else {
		ident = got
	}
	c.AttachIdentity(profile.CID, ident.CanonicalName, ident.IUPACName, ident.SMILES)
	c.RecordSafetyProfile(profile.Pictograms, profile.HazardStatements)

	start := time.Now()
	tags := s.classifier.ClassifyCompound(c)
	s.recordClassification(tags, time.Since(start))

	props := &domainCompound.ThermalProperties{}
	if got, lerr := s.thermal.LookupThermalProperties(ctx, name); lerr != nil {
		s.logger.Warn("thermal lookup failed, state stays unknown",
			logging.String("name", name),
			logging.Err(lerr))
	} else {
		props = got
	}
	c.RecordThermalProperties(props.MeltingC, props.BoilingC)

	if ferr := c.CalculateFingerprint(ctypes.FPMorgan); ferr != nil {
		s.logger.Debug("fingerprint not computed",
			logging.String("name", name),
			logging.Err(ferr))
	}

	s.publishClassified(ctx, c)

	s.logger.Debug("compound resolved",
		logging.String("name", name),
		logging.String("cid", c.CID),
		logging.Int("pictograms", len(c.Pictograms)),
		logging.String("state", string(c.State)),
		logging.Strings("tags", tags.Strings()))

	return c, nil
}

func (s *service) ResolveBatch(ctx context.Context, names []string) ([]*domainCompound.Compound, []SkippedCompound, error) {
	if len(names) == 0 {
		return nil, nil, errors.New(errors.ErrCodeSortBatchEmpty, "batch contains no compound names")
	}

	type outcome struct {
		compound *domainCompound.Compound
		skip     *SkippedCompound
	}
	outcomes := make([]outcome, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, name := range names {
		g.Go(func() error {
			c, err := s.Resolve(gctx, name)
			switch {
			case err == nil:
				outcomes[i].compound = c
			case errors.IsCode(err, errors.ErrCodeResolverCompoundNotFound):
				s.logger.Info("compound not found, skipping",
					logging.String("name", name))
				outcomes[i].skip = &SkippedCompound{Name: name, Reason: SkipReasonNotFound}
			default:
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("resolution failed, skipping",
					logging.String("name", name),
					logging.Err(err))
				outcomes[i].skip = &SkippedCompound{Name: name, Reason: SkipReasonResolver}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeInternal, "batch resolution aborted")
	}

	resolved := make([]*domainCompound.Compound, 0, len(names))
	var skipped []SkippedCompound
	for _, o := range outcomes {
		if o.compound != nil {
			resolved = append(resolved, o.compound)
		} else if o.skip != nil {
			skipped = append(skipped, *o.skip)
		}
	}
	return resolved, skipped, nil
}

func (s *service) Classify(ctx context.Context, input ClassifyInput) (*Classification, error) {
	if strings.TrimSpace(input.Name) == "" && strings.TrimSpace(input.Structure) == "" {
		return nil, errors.InvalidParam("classification needs a name or a structure")
	}

	start := time.Now()
	tags := s.classifier.Classify(input.Name, input.FormalName, input.Structure, input.Statements)
	s.recordClassification(tags, time.Since(start))

	return &Classification{
		Name: input.Name,
		Tags: tags.Strings(),
		Acid: tags.IsAcid(),
		Base: tags.IsBase(),
	}, nil
}

func (s *service) publishClassified(ctx context.Context, c *domainCompound.Compound) {
	if s.publisher == nil {
		return
	}

	pictograms := make([]string, 0, len(c.Pictograms))
	for _, p := range c.Pictograms {
		pictograms = append(pictograms, string(p))
	}
	payload := kafka.CompoundClassifiedPayload{
		CID:          c.CID,
		Name:         c.Name,
		Pictograms:   pictograms,
		AcidBase:     c.AcidBase.Strings(),
		ClassifiedAt: time.Now().UTC(),
	}

	env, err := kafka.NewEventEnvelope(kafka.TopicCompoundClassified, eventSource, payload)
	if err == nil {
		err = s.publisher.PublishEvent(ctx, kafka.TopicCompoundClassified, c.CID, env)
	}
	if err != nil {
		s.logger.Warn("classification event not published",
			logging.String("name", c.Name),
			logging.Err(err))
	}
}

func (s *service) recordClassification(tags ctypes.TagSet, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	prometheus.RecordClassification(s.metrics, classificationLabel(tags), duration)
}

// classificationLabel collapses a tag set into one metric label.
func classificationLabel(tags ctypes.TagSet) string {
	switch {
	case tags.Contains(ctypes.TagInvalidStructure):
		return string(ctypes.TagInvalidStructure)
	case tags.IsAcid() && tags.IsBase():
		return "amphoteric"
	case tags.IsAcid():
		return "acid"
	case tags.IsBase():
		return "base"
	default:
		return "unknown"
	}
}

//Personal.AI order the ending
