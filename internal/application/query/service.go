// Package query answers the read-side questions: hazard-statement search,
// fingerprint similarity, sort-run history, and storage audits against the
// compatibility graph.  Each backend is optional; a missing one disables its
// operations instead of failing service construction.
package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	domainSorting "github.com/turtacn/ChemStor-Intelligence/internal/domain/sorting"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/search/milvus"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/search/opensearch"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	defaultSimilarLimit = 10
	maxSimilarLimit     = 50

	statementCacheTTL = 5 * time.Minute

	cacheKeyPrefix = "chemstor:query:"
)

// ─────────────────────────────────────────────────────────────────────────────
// Ports
// ─────────────────────────────────────────────────────────────────────────────

// StatementSearcher is the hazard-statement full-text backend.
type StatementSearcher interface {
	SearchByStatement(ctx context.Context, statement string, page common.Pagination) ([]opensearch.StatementMatch, int64, error)
}

// SimilarityIndex is the fingerprint nearest-neighbour backend.
type SimilarityIndex interface {
	SimilarByCID(ctx context.Context, cid string, limit int) ([]milvus.SimilarHit, error)
}

// StorageAuditor answers co-storage questions from the compatibility graph.
type StorageAuditor interface {
	CoStored(ctx context.Context, name string) ([]string, error)
	RejectionsFor(ctx context.Context, name string) ([]repositories.GroupRejection, error)
	GroupResidents(ctx context.Context, group string) ([]string, error)
}

// ReportLinker issues download links for archived run reports.
type ReportLinker interface {
	PresignedURL(ctx context.Context, runID string, expiry time.Duration) (string, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// DTOs
// ─────────────────────────────────────────────────────────────────────────────

// StatementHit is one scored match of a hazard-statement search.
type StatementHit struct {
	Score    float64                     `json:"score"`
	Compound opensearch.CompoundDocument `json:"compound"`
}

// StatementSearchResult is one page of hazard-statement matches.
type StatementSearchResult struct {
	Query    string         `json:"query"`
	Hits     []StatementHit `json:"hits"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// RunDetail is a sort run with its report link when one is archived.
type RunDetail struct {
	Run       *domainSorting.SortRun `json:"run"`
	ReportURL string                 `json:"report_url,omitempty"`
}

// RunPage is one page of sort-run history, newest first.
type RunPage struct {
	Runs       []*domainSorting.SortRun `json:"runs"`
	Pagination common.Pagination        `json:"pagination"`
}

// AuditRejection is one group that refused a compound during its run.
type AuditRejection struct {
	Group string `json:"group"`
	Rule  string `json:"rule"`
}

// StorageAudit reports where a compound sits: its shelf neighbours and the
// groups that turned it away on the way there.
type StorageAudit struct {
	Name       string           `json:"name"`
	CoStored   []string         `json:"co_stored"`
	Rejections []AuditRejection `json:"rejections"`
}

// Service defines the read-side operations.
type Service interface {
	// SearchByStatement finds compounds whose hazard statements match the
	// query text.
	SearchByStatement(ctx context.Context, statement string, page common.Pagination) (*StatementSearchResult, error)

	// SimilarCompounds returns the nearest fingerprint neighbours of a
	// compound by CID.
	SimilarCompounds(ctx context.Context, cid string, limit int) ([]milvus.SimilarHit, error)

	// GetRun fetches one sort run with its report link.
	GetRun(ctx context.Context, runID string) (*RunDetail, error)

	// LatestRun fetches the most recent completed sort run.
	LatestRun(ctx context.Context) (*RunDetail, error)

	// ListRuns pages through run history, newest first.
	ListRuns(ctx context.Context, page common.Pagination) (*RunPage, error)

	// AuditCompound reports a compound's shelf neighbours and refusals.
	AuditCompound(ctx context.Context, name string) (*StorageAudit, error)

	// GroupResidents lists the compounds currently recorded in a group.
	GroupResidents(ctx context.Context, group string) ([]string, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Deps carries the query backends.  Runs is required; every other backend is
// optional and its operations answer with a feature-disabled error when it is
// absent.
type Deps struct {
	Runs       domainSorting.Repository
	Search     StatementSearcher
	Similarity SimilarityIndex
	Audit      StorageAuditor
	Reports    ReportLinker
	Cache      redis.Cache
	Metrics    *prometheus.AppMetrics
	Logger     logging.Logger
}

type service struct {
	deps   Deps
	logger logging.Logger
}

// NewService creates the read-side service.
func NewService(deps Deps) (Service, error) {
	if deps.Runs == nil {
		return nil, errors.New(errors.ErrCodeValidation, "query service requires the run repository")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &service{
		deps:   deps,
		logger: logger.Named("query"),
	}, nil
}

func (s *service) SearchByStatement(ctx context.Context, statement string, page common.Pagination) (*StatementSearchResult, error) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return nil, errors.InvalidParam("statement must not be empty")
	}
	if s.deps.Search == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "statement search requires the search index")
	}
	page = normalizePage(page)

	key := cacheKey("statement", struct {
		Statement string `json:"statement"`
		Page      int    `json:"page"`
		PageSize  int    `json:"page_size"`
	}{statement, page.Page, page.PageSize})

	if s.deps.Cache != nil {
		var cached StatementSearchResult
		if err := s.deps.Cache.Get(ctx, key, &cached); err == nil {
			s.recordCacheAccess("query_statement", true)
			return &cached, nil
		}
		s.recordCacheAccess("query_statement", false)
	}

	matches, total, err := s.deps.Search.SearchByStatement(ctx, statement, page)
	if err != nil {
		return nil, err
	}

	hits := make([]StatementHit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, StatementHit{Score: m.Score, Compound: m.Document})
	}
	result := &StatementSearchResult{
		Query:    statement,
		Hits:     hits,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, key, result, statementCacheTTL); err != nil {
			s.logger.Debug("statement result not cached", logging.Err(err))
		}
	}
	return result, nil
}

func (s *service) SimilarCompounds(ctx context.Context, cid string, limit int) ([]milvus.SimilarHit, error) {
	cid = strings.TrimSpace(cid)
	if cid == "" {
		return nil, errors.InvalidParam("cid must not be empty")
	}
	if s.deps.Similarity == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "similarity search requires the vector index")
	}
	if limit <= 0 {
		limit = defaultSimilarLimit
	}
	if limit > maxSimilarLimit {
		limit = maxSimilarLimit
	}
	return s.deps.Similarity.SimilarByCID(ctx, cid, limit)
}

func (s *service) GetRun(ctx context.Context, runID string) (*RunDetail, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, errors.InvalidParam("run id must not be empty")
	}
	run, err := s.deps.Runs.GetByID(ctx, common.ID(runID))
	if err != nil {
		return nil, err
	}
	return s.buildRunDetail(ctx, run), nil
}

func (s *service) LatestRun(ctx context.Context) (*RunDetail, error) {
	run, err := s.deps.Runs.LatestCompleted(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildRunDetail(ctx, run), nil
}

func (s *service) ListRuns(ctx context.Context, page common.Pagination) (*RunPage, error) {
	page = normalizePage(page)
	runs, total, err := s.deps.Runs.List(ctx, page)
	if err != nil {
		return nil, err
	}
	page.Total = total
	return &RunPage{Runs: runs, Pagination: page}, nil
}

func (s *service) AuditCompound(ctx context.Context, name string) (*StorageAudit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.InvalidParam("compound name must not be empty")
	}
	if s.deps.Audit == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "storage audit requires the compatibility graph")
	}

	neighbours, err := s.deps.Audit.CoStored(ctx, name)
	if err != nil {
		return nil, err
	}
	refusals, err := s.deps.Audit.RejectionsFor(ctx, name)
	if err != nil {
		return nil, err
	}

	rejections := make([]AuditRejection, 0, len(refusals))
	for _, r := range refusals {
		rejections = append(rejections, AuditRejection{Group: r.Group, Rule: r.Rule})
	}
	return &StorageAudit{Name: name, CoStored: neighbours, Rejections: rejections}, nil
}

func (s *service) GroupResidents(ctx context.Context, group string) ([]string, error) {
	group = strings.TrimSpace(group)
	if group == "" {
		return nil, errors.InvalidParam("group name must not be empty")
	}
	if s.deps.Audit == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "storage audit requires the compatibility graph")
	}
	return s.deps.Audit.GroupResidents(ctx, group)
}

// buildRunDetail attaches the report link when the run completed and a report
// store is wired.  A missing report is routine, not an error.
func (s *service) buildRunDetail(ctx context.Context, run *domainSorting.SortRun) *RunDetail {
	detail := &RunDetail{Run: run}
	if s.deps.Reports == nil || run.Status != domainSorting.RunStatusCompleted {
		return detail
	}
	url, err := s.deps.Reports.PresignedURL(ctx, string(run.ID), 0)
	if err != nil {
		s.logger.Debug("report link unavailable",
			logging.String("run_id", string(run.ID)),
			logging.Err(err))
		return detail
	}
	detail.ReportURL = url
	return detail
}

func (s *service) recordCacheAccess(cache string, hit bool) {
	if s.deps.Metrics == nil {
		return
	}
	prometheus.RecordCacheAccess(s.deps.Metrics, cache, hit)
}

func normalizePage(page common.Pagination) common.Pagination {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.PageSize < 1 {
		page.PageSize = defaultPageSize
	}
	if page.PageSize > maxPageSize {
		page.PageSize = maxPageSize
	}
	return page
}

func cacheKey(op string, payload interface{}) string {
	b, _ := json.Marshal(payload)
	sum := sha256.Sum256(b)
	return cacheKeyPrefix + op + ":" + hex.EncodeToString(sum[:])
}

//Personal.AI order the ending
