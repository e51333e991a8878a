// Package sorting runs sort batches end to end: batch resolution through the
// compound pipeline, the placement engine, and the platform side channels
// that record the outcome.  The engine result is authoritative; every side
// channel is best-effort and a failure there degrades observability, never
// the placement.
package sorting

import (
	"context"
	"sync"
	"time"

	appCompound "github.com/turtacn/ChemStor-Intelligence/internal/application/compound"
	domainCompound "github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	domainSorting "github.com/turtacn/ChemStor-Intelligence/internal/domain/sorting"
	"github.com/turtacn/ChemStor-Intelligence/internal/domain/storage"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/search/milvus"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/search/opensearch"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

const eventSource = "chemstor.sorting"

// ─────────────────────────────────────────────────────────────────────────────
// Ports
// ─────────────────────────────────────────────────────────────────────────────

// Resolver is the slice of the compound pipeline a batch needs.
type Resolver interface {
	ResolveBatch(ctx context.Context, names []string) ([]*domainCompound.Compound, []appCompound.SkippedCompound, error)
}

// CompoundWriter persists resolved compound records.
type CompoundWriter interface {
	BatchCreate(ctx context.Context, cs []*domainCompound.Compound) (int64, error)
}

// GraphMirror writes placements and refusal edges into the compatibility
// graph.
type GraphMirror interface {
	MirrorRun(ctx context.Context, runID common.ID, result *domainSorting.Result) error
}

// SearchIndexer feeds the hazard-statement full-text index.
type SearchIndexer interface {
	BulkIndex(ctx context.Context, docs []opensearch.CompoundDocument) (*opensearch.BulkResult, error)
}

// VectorStore keeps the fingerprint collection current.
type VectorStore interface {
	Upsert(ctx context.Context, records []milvus.FingerprintRecord) (int, error)
}

// ReportArchiver writes the JSON run report to object storage.
type ReportArchiver interface {
	Save(ctx context.Context, run *domainSorting.SortRun) (*minio.ReportRef, error)
}

// EventPublisher is the slice of the Kafka producer run events go through.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, env *kafka.EventEnvelope) error
}

// ─────────────────────────────────────────────────────────────────────────────
// DTOs
// ─────────────────────────────────────────────────────────────────────────────

// SortInput names one batch to sort.  RunID carries a pre-assigned identity
// when the batch was enqueued earlier; a fresh one is generated otherwise.
type SortInput struct {
	Names   []string `json:"names"`
	Trigger string   `json:"trigger,omitempty"`
	RunID   string   `json:"run_id,omitempty"`
}

// StateBucket is one occupied state slot of a storage group.
type StateBucket struct {
	State     string               `json:"state"`
	Compounds []ctypes.CompoundDTO `json:"compounds"`
}

// GroupBuckets collects the occupied state slots of one group.
type GroupBuckets struct {
	Group  string        `json:"group"`
	States []StateBucket `json:"states"`
}

// SortResult is the outcome of one batch, shaped for transport.
type SortResult struct {
	RunID           string                       `json:"run_id"`
	Status          string                       `json:"status"`
	Trigger         string                       `json:"trigger"`
	Groups          []GroupBuckets               `json:"groups"`
	Skipped         []appCompound.SkippedCompound `json:"skipped,omitempty"`
	Placed          int                          `json:"placed"`
	OverflowCreated int                          `json:"overflow_created"`
	RejectionCount  int                          `json:"rejection_count"`
	DurationMs      int64                        `json:"duration_ms"`
}

// EnqueueReceipt acknowledges an asynchronous sort request.
type EnqueueReceipt struct {
	RunID     string `json:"run_id"`
	Requested int    `json:"requested"`
}

// GroupOverview describes one storage group for display: its state schema
// and, when a run has executed in this process, its current occupancy.
type GroupOverview struct {
	Name      string         `json:"name"`
	States    []string       `json:"states"`
	Overflow  bool           `json:"overflow,omitempty"`
	Occupancy map[string]int `json:"occupancy,omitempty"`
}

// Service defines the sort-run operations.
type Service interface {
	// SortBatch resolves, sorts, and records one batch synchronously.
	SortBatch(ctx context.Context, input SortInput) (*SortResult, error)

	// EnqueueBatch registers a pending run and hands it to the worker via
	// the event bus.
	EnqueueBatch(ctx context.Context, names []string, trigger string) (*EnqueueReceipt, error)

	// GroupsOverview lists the storage groups with their schemas, including
	// occupancy from the most recent run executed in this process.
	GroupsOverview() []GroupOverview
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Deps carries the collaborators a sort run records its outcome through.
// Resolver and Sorter are required.  Every other field may be nil, in which
// case its side channel is skipped.
type Deps struct {
	Resolver  Resolver
	Sorter    *domainSorting.Sorter
	Runs      domainSorting.Repository
	Compounds CompoundWriter
	Graph     GraphMirror
	Search    SearchIndexer
	Vectors   VectorStore
	Reports   ReportArchiver
	Events    EventPublisher
	Metrics   *prometheus.AppMetrics
	Logger    logging.Logger
}

type service struct {
	deps   Deps
	logger logging.Logger

	mu           sync.RWMutex
	lastRegistry *storage.Registry
}

// NewService creates the sort-run service.
func NewService(deps Deps) (Service, error) {
	if deps.Resolver == nil {
		return nil, errors.New(errors.ErrCodeValidation, "sort service requires the compound pipeline")
	}
	if deps.Sorter == nil {
		return nil, errors.New(errors.ErrCodeValidation, "sort service requires the placement engine")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &service{
		deps:   deps,
		logger: logger.Named("sortruns"),
	}, nil
}

func (s *service) SortBatch(ctx context.Context, input SortInput) (*SortResult, error) {
	run, err := domainSorting.NewSortRun(input.Names, input.Trigger)
	if err != nil {
		return nil, err
	}
	preAssigned := input.RunID != ""
	if preAssigned {
		run.ID = common.ID(input.RunID)
	}
	run.Start()

	resolved, skipped, err := s.deps.Resolver.ResolveBatch(ctx, run.RequestedNames)
	if err != nil {
		run.Fail(err.Error())
		s.persistRun(ctx, run, preAssigned)
		s.recordRunMetrics(run, nil)
		return nil, errors.Wrap(err, errors.ErrCodeSortRunFailed, "sort run aborted during resolution")
	}
	for _, skip := range skipped {
		run.RecordSkip(skip.Name)
	}

	registry := storage.NewRegistry()
	result := s.deps.Sorter.SortAll(resolved, registry)
	run.Complete(result, registry)

	s.rememberRegistry(registry)

	s.persistRun(ctx, run, preAssigned)
	s.persistCompounds(ctx, resolved)
	s.mirrorGraph(ctx, run.ID, result)
	s.indexCompounds(ctx, result)
	s.upsertFingerprints(ctx, result)
	s.archiveReport(ctx, run)
	s.publishCompleted(ctx, run)
	s.recordRunMetrics(run, result)

	s.logger.Info("sort run completed",
		logging.String("run_id", string(run.ID)),
		logging.String("trigger", run.Trigger),
		logging.Int("placed", run.PlacedCount()),
		logging.Int("skipped", len(run.SkippedNames)),
		logging.Int("overflow_created", run.OverflowCreated),
		logging.Int("rejections", run.RejectionCount),
		logging.Duration("duration", run.Duration()))

	return buildSortResult(run, registry, skipped), nil
}

func (s *service) EnqueueBatch(ctx context.Context, names []string, trigger string) (*EnqueueReceipt, error) {
	if s.deps.Events == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "asynchronous sorting requires the event bus")
	}

	run, err := domainSorting.NewSortRun(names, trigger)
	if err != nil {
		return nil, err
	}

	// A pending row makes the run visible before the worker picks it up;
	// the payload carries the names so execution survives a failed write.
	if s.deps.Runs != nil {
		if cerr := s.deps.Runs.Create(ctx, run); cerr != nil {
			s.logger.Warn("pending run row not persisted",
				logging.String("run_id", string(run.ID)),
				logging.Err(cerr))
		}
	}

	payload := kafka.SortRequestedPayload{
		RunID:       string(run.ID),
		Names:       run.RequestedNames,
		Trigger:     run.Trigger,
		RequestedAt: time.Now().UTC(),
	}
	env, err := kafka.NewEventEnvelope(kafka.TopicSortRequested, eventSource, payload)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Events.PublishEvent(ctx, kafka.TopicSortRequested, string(run.ID), env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSortRunFailed, "sort request not enqueued")
	}

	s.logger.Info("sort run enqueued",
		logging.String("run_id", string(run.ID)),
		logging.Int("requested", len(run.RequestedNames)))

	return &EnqueueReceipt{RunID: string(run.ID), Requested: len(run.RequestedNames)}, nil
}

func (s *service) GroupsOverview() []GroupOverview {
	s.mu.RLock()
	registry := s.lastRegistry
	s.mu.RUnlock()

	occupied := registry != nil
	if registry == nil {
		registry = storage.NewRegistry()
	}

	groups := registry.AllGroups()
	out := make([]GroupOverview, 0, len(groups))
	for _, g := range groups {
		overview := GroupOverview{
			Name:     g.Name,
			Overflow: g.IsOverflow(),
		}
		for _, key := range g.Keys() {
			overview.States = append(overview.States, string(key))
		}
		if occupied {
			counts := g.Counts()
			occupancy := make(map[string]int, len(counts))
			for key, n := range counts {
				if n > 0 {
					occupancy[string(key)] = n
				}
			}
			if len(occupancy) > 0 {
				overview.Occupancy = occupancy
			}
		}
		out = append(out, overview)
	}
	return out
}

// EnumerateBuckets renders the occupied (group, state) slots of a registry in
// stable display order, grouping states under their group.
func EnumerateBuckets(registry *storage.Registry) []GroupBuckets {
	views := registry.NonEmptyBuckets()
	out := make([]GroupBuckets, 0, len(views))
	for _, v := range views {
		if len(out) == 0 || out[len(out)-1].Group != v.Group {
			out = append(out, GroupBuckets{Group: v.Group})
		}
		dtos := make([]ctypes.CompoundDTO, 0, len(v.Compounds))
		for _, c := range v.Compounds {
			dtos = append(dtos, c.ToDTO())
		}
		last := len(out) - 1
		out[last].States = append(out[last].States, StateBucket{
			State:     string(v.State),
			Compounds: dtos,
		})
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Side channels
// ─────────────────────────────────────────────────────────────────────────────

func (s *service) persistRun(ctx context.Context, run *domainSorting.SortRun, preAssigned bool) {
	if s.deps.Runs == nil {
		return
	}
	var err error
	if preAssigned {
		// The enqueue path created a pending row under this ID.
		err = s.deps.Runs.Update(ctx, run)
		if err != nil && errors.IsCode(err, errors.ErrCodeSortRunNotFound) {
			err = s.deps.Runs.Create(ctx, run)
		}
	} else {
		err = s.deps.Runs.Create(ctx, run)
	}
	if err != nil {
		s.logger.Warn("sort run not persisted",
			logging.String("run_id", string(run.ID)),
			logging.Err(err))
	}
}

func (s *service) persistCompounds(ctx context.Context, resolved []*domainCompound.Compound) {
	if s.deps.Compounds == nil || len(resolved) == 0 {
		return
	}
	inserted, err := s.deps.Compounds.BatchCreate(ctx, resolved)
	if err != nil {
		s.logger.Warn("compound records not persisted",
			logging.Int("count", len(resolved)),
			logging.Err(err))
		return
	}
	s.logger.Debug("compound records persisted",
		logging.Int("resolved", len(resolved)),
		logging.Int64("inserted", inserted))
}

func (s *service) mirrorGraph(ctx context.Context, runID common.ID, result *domainSorting.Result) {
	if s.deps.Graph == nil {
		return
	}
	if err := s.deps.Graph.MirrorRun(ctx, runID, result); err != nil {
		s.logger.Warn("compatibility graph not updated",
			logging.String("run_id", string(runID)),
			logging.Err(err))
	}
}

func (s *service) indexCompounds(ctx context.Context, result *domainSorting.Result) {
	if s.deps.Search == nil || len(result.Placements) == 0 {
		return
	}
	docs := make([]opensearch.CompoundDocument, 0, len(result.Placements))
	for _, p := range result.Placements {
		docs = append(docs, opensearch.NewCompoundDocument(p.Compound, p.Group))
	}
	res, err := s.deps.Search.BulkIndex(ctx, docs)
	if err != nil {
		s.logger.Warn("compounds not indexed",
			logging.Int("count", len(docs)),
			logging.Err(err))
		return
	}
	if res.Failed > 0 {
		s.logger.Warn("some compounds not indexed",
			logging.Int("failed", res.Failed),
			logging.Int("succeeded", res.Succeeded))
	}
}

func (s *service) upsertFingerprints(ctx context.Context, result *domainSorting.Result) {
	if s.deps.Vectors == nil {
		return
	}
	records := make([]milvus.FingerprintRecord, 0, len(result.Placements))
	for _, p := range result.Placements {
		// Records without a CID or a computed fingerprint are expected for
		// partially resolved compounds.
		rec, err := milvus.NewFingerprintRecord(p.Compound, p.Group)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return
	}
	n, err := s.deps.Vectors.Upsert(ctx, records)
	if err != nil {
		s.logger.Warn("fingerprints not upserted",
			logging.Int("count", len(records)),
			logging.Err(err))
		return
	}
	s.logger.Debug("fingerprints upserted", logging.Int("count", n))
}

func (s *service) archiveReport(ctx context.Context, run *domainSorting.SortRun) {
	if s.deps.Reports == nil {
		return
	}
	ref, err := s.deps.Reports.Save(ctx, run)
	if err != nil {
		s.logger.Warn("run report not archived",
			logging.String("run_id", string(run.ID)),
			logging.Err(err))
		return
	}
	s.logger.Debug("run report archived",
		logging.String("run_id", string(run.ID)),
		logging.String("key", ref.Key))
}

func (s *service) publishCompleted(ctx context.Context, run *domainSorting.SortRun) {
	if s.deps.Events == nil {
		return
	}
	finishedAt := time.Now().UTC()
	if run.FinishedAt != nil {
		finishedAt = *run.FinishedAt
	}
	payload := kafka.SortCompletedPayload{
		RunID:           string(run.ID),
		Status:          string(run.Status),
		Placed:          run.PlacedCount(),
		Skipped:         len(run.SkippedNames),
		OverflowCreated: run.OverflowCreated,
		RejectionCount:  run.RejectionCount,
		FinishedAt:      finishedAt,
	}
	env, err := kafka.NewEventEnvelope(kafka.TopicSortCompleted, eventSource, payload)
	if err == nil {
		err = s.deps.Events.PublishEvent(ctx, kafka.TopicSortCompleted, string(run.ID), env)
	}
	if err != nil {
		s.logger.Warn("completion event not published",
			logging.String("run_id", string(run.ID)),
			logging.Err(err))
	}
}

func (s *service) recordRunMetrics(run *domainSorting.SortRun, result *domainSorting.Result) {
	if s.deps.Metrics == nil {
		return
	}
	success := run.Status == domainSorting.RunStatusCompleted
	prometheus.RecordSortRun(s.deps.Metrics, run.Trigger, success,
		len(run.RequestedNames), run.OverflowCreated, run.Duration())
	if result == nil {
		return
	}
	for _, p := range result.Placements {
		prometheus.RecordPlacement(s.deps.Metrics, p.Group, string(p.State))
		for _, rej := range p.Rejections {
			prometheus.RecordCompatibilityRejection(s.deps.Metrics, rej.Rule)
		}
	}
}

func (s *service) rememberRegistry(registry *storage.Registry) {
	s.mu.Lock()
	s.lastRegistry = registry
	s.mu.Unlock()
}

func buildSortResult(run *domainSorting.SortRun, registry *storage.Registry, skipped []appCompound.SkippedCompound) *SortResult {
	return &SortResult{
		RunID:           string(run.ID),
		Status:          string(run.Status),
		Trigger:         run.Trigger,
		Groups:          EnumerateBuckets(registry),
		Skipped:         skipped,
		Placed:          run.PlacedCount(),
		OverflowCreated: run.OverflowCreated,
		RejectionCount:  run.RejectionCount,
		DurationMs:      run.Duration().Milliseconds(),
	}
}

//Personal.AI order the ending
