package milvus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

const (
	defaultSearchEf = 64
	ivfNProbe       = 16
	maxSimilarLimit = 100
)

// FingerprintRecord is one row of the fingerprint collection.
type FingerprintRecord struct {
	CID    string
	Name   string
	Group  string
	Vector []float32
}

// NewFingerprintRecord builds a record from a resolved compound.  The
// compound must carry a CID and a computed Morgan fingerprint; group may be
// empty when the compound has not been placed yet.
func NewFingerprintRecord(c *compound.Compound, group string) (FingerprintRecord, error) {
	if c == nil {
		return FingerprintRecord{}, errors.New(errors.ErrCodeValidation, "compound is nil")
	}
	if c.CID == "" || c.CID == compound.UnknownValue {
		return FingerprintRecord{}, errors.New(errors.ErrCodeValidation, "compound has no CID").
			WithDetail("compound=" + c.Name)
	}
	fp, ok := c.Fingerprints[ctypes.FPMorgan]
	if !ok || fp == nil {
		return FingerprintRecord{}, errors.New(errors.ErrCodeFingerprintGenerationFailed,
			"morgan fingerprint not computed").
			WithDetail("compound=" + c.Name)
	}
	return FingerprintRecord{
		CID:    c.CID,
		Name:   c.Name,
		Group:  group,
		Vector: fp.ToFloat32Vector(),
	}, nil
}

// SimilarHit is one neighbour from a similarity search, scored by cosine
// distance over the fingerprint vectors.
type SimilarHit struct {
	CID          string  `json:"cid"`
	Name         string  `json:"name"`
	StorageGroup string  `json:"storage_group,omitempty"`
	Score        float32 `json:"score"`
}

// FingerprintStore writes fingerprint rows and answers nearest-neighbour
// queries against the loaded collection.
type FingerprintStore struct {
	client *Client
	mgr    *CollectionManager
	logger logging.Logger
}

// NewFingerprintStore creates a store over the managed collection.
func NewFingerprintStore(client *Client, mgr *CollectionManager, log logging.Logger) *FingerprintStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &FingerprintStore{
		client: client,
		mgr:    mgr,
		logger: log.Named("milvus.fingerprints"),
	}
}

// Upsert writes records keyed by CID, replacing existing rows.  Records with
// a missing CID or a vector that does not match the collection dimension are
// skipped with a warning; the returned count covers only what was written.
func (s *FingerprintStore) Upsert(ctx context.Context, records []FingerprintRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	dim := s.client.cfg.EmbeddingDim
	cids := make([]string, 0, len(records))
	names := make([]string, 0, len(records))
	groups := make([]string, 0, len(records))
	vectors := make([][]float32, 0, len(records))

	for _, rec := range records {
		if rec.CID == "" || len(rec.Vector) != dim {
			s.logger.Warn("Skipping fingerprint record",
				logging.String("cid", rec.CID),
				logging.Int("vector_len", len(rec.Vector)),
				logging.Int("expected_dim", dim))
			continue
		}
		cids = append(cids, rec.CID)
		names = append(names, rec.Name)
		groups = append(groups, rec.Group)
		vectors = append(vectors, rec.Vector)
	}
	if len(cids) == 0 {
		return 0, nil
	}

	columns := []entity.Column{
		entity.NewColumnVarChar("cid", cids),
		entity.NewColumnVarChar("name", names),
		entity.NewColumnVarChar("storage_group", groups),
		entity.NewColumnFloatVector(vectorFieldName, dim, vectors),
	}

	if _, err := s.client.API().Upsert(ctx, s.mgr.Name(), "", columns...); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeExternalService, "failed to upsert fingerprints")
	}

	s.logger.Debug("Fingerprints upserted",
		logging.String("collection", s.mgr.Name()),
		logging.Int("count", len(cids)))
	return len(cids), nil
}

// DeleteByCIDs removes the rows for the given compounds.
func (s *FingerprintStore) DeleteByCIDs(ctx context.Context, cids []string) error {
	if len(cids) == 0 {
		return nil
	}

	quoted := make([]string, len(cids))
	for i, cid := range cids {
		quoted[i] = strconv.Quote(cid)
	}
	expr := fmt.Sprintf("cid in [%s]", strings.Join(quoted, ","))

	if err := s.client.API().Delete(ctx, s.mgr.Name(), "", expr); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to delete fingerprints")
	}
	return nil
}

// SimilarByCID returns the stored compounds most similar to the one
// identified by cid, excluding the compound itself.  Limit falls back to the
// configured top-K and is capped at 100.
func (s *FingerprintStore) SimilarByCID(ctx context.Context, cid string, limit int) ([]SimilarHit, error) {
	if cid == "" {
		return nil, errors.New(errors.ErrCodeValidation, "cid is required")
	}
	limit = s.clampLimit(limit)

	vec, err := s.fetchVector(ctx, cid)
	if err != nil {
		return nil, err
	}

	sp, err := s.searchParam(limit)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := s.client.API().Search(ctx,
		s.mgr.Name(),
		nil,
		fmt.Sprintf("cid != %s", strconv.Quote(cid)),
		[]string{"cid", "name", "storage_group"},
		[]entity.Vector{entity.FloatVector(vec)},
		vectorFieldName,
		entity.COSINE,
		limit,
		sp,
		client.WithSearchQueryConsistencyLevel(entity.ClBounded),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSimilaritySearchFailed, "similarity search failed").
			WithDetail("cid=" + cid)
	}

	hits := make([]SimilarHit, 0, limit)
	for _, res := range results {
		if res.Err != nil {
			return nil, errors.Wrap(res.Err, errors.ErrCodeSimilaritySearchFailed, "similarity search failed").
				WithDetail("cid=" + cid)
		}

		nameCol := res.Fields.GetColumn("name")
		groupCol := res.Fields.GetColumn("storage_group")

		count := res.ResultCount
		if len(res.Scores) < count {
			count = len(res.Scores)
		}
		for j := 0; j < count; j++ {
			hitCID, err := res.IDs.GetAsString(j)
			if err != nil {
				continue
			}
			hit := SimilarHit{CID: hitCID, Score: res.Scores[j]}
			if nameCol != nil {
				hit.Name, _ = nameCol.GetAsString(j)
			}
			if groupCol != nil {
				hit.StorageGroup, _ = groupCol.GetAsString(j)
			}
			hits = append(hits, hit)
		}
	}

	s.logger.Debug("Similarity search completed",
		logging.String("cid", cid),
		logging.Int("hits", len(hits)),
		logging.Duration("took", time.Since(start)))
	return hits, nil
}

// fetchVector reads the stored fingerprint for the source compound.
func (s *FingerprintStore) fetchVector(ctx context.Context, cid string) ([]float32, error) {
	res, err := s.client.API().QueryByPks(ctx,
		s.mgr.Name(),
		nil,
		entity.NewColumnVarChar("cid", []string{cid}),
		[]string{vectorFieldName},
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to fetch source fingerprint")
	}

	col := res.GetColumn(vectorFieldName)
	if col == nil || col.Len() == 0 {
		return nil, errors.New(errors.ErrCodeCompoundNotFound, "no fingerprint stored for compound").
			WithDetail("cid=" + cid)
	}

	fvc, ok := col.(*entity.ColumnFloatVector)
	if !ok {
		return nil, errors.New(errors.ErrCodeSerialization, "unexpected vector column type")
	}
	return fvc.Data()[0], nil
}

func (s *FingerprintStore) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.client.cfg.DefaultTopK
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > maxSimilarLimit {
		limit = maxSimilarLimit
	}
	return limit
}

// searchParam builds index-appropriate search parameters.  HNSW requires
// ef >= limit.
func (s *FingerprintStore) searchParam(limit int) (entity.SearchParam, error) {
	switch s.client.cfg.IndexType {
	case "", "HNSW":
		ef := defaultSearchEf
		if limit > ef {
			ef = limit
		}
		sp, err := entity.NewIndexHNSWSearchParam(ef)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid HNSW search parameters")
		}
		return sp, nil
	case "IVF_FLAT":
		sp, err := entity.NewIndexIvfFlatSearchParam(ivfNProbe)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid IVF_FLAT search parameters")
		}
		return sp, nil
	default:
		return nil, errors.New(errors.ErrCodeValidation, "unsupported milvus index type").
			WithDetail("index_type=" + s.client.cfg.IndexType)
	}
}

//Personal.AI order the ending
