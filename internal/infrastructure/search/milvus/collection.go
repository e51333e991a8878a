package milvus

import (
	"context"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

var ErrCollectionNotFound = errors.New(errors.ErrCodeNotFound, "collection not found")

const (
	fingerprintCollectionBase = "fingerprints"
	vectorFieldName           = "fingerprint"

	cidMaxLength   = 64
	nameMaxLength  = 512
	groupMaxLength = 64

	ivfNList = 1024
)

// CollectionManager owns the lifecycle of the fingerprint collection: schema
// creation, vector index build, and memory load.
type CollectionManager struct {
	client *Client
	logger logging.Logger
}

// NewCollectionManager creates a manager bound to the configured collection.
func NewCollectionManager(client *Client, log logging.Logger) *CollectionManager {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CollectionManager{
		client: client,
		logger: log.Named("milvus.collection"),
	}
}

// Name returns the fully prefixed collection name.
func (m *CollectionManager) Name() string {
	return m.client.CollectionName(fingerprintCollectionBase)
}

// schema builds the collection schema.  CID is the primary key so repeated
// sort runs upsert rather than duplicate; the vector dimension follows the
// configured fingerprint width.
func (m *CollectionManager) schema() *entity.Schema {
	dim := m.client.cfg.EmbeddingDim
	return &entity.Schema{
		CollectionName: m.Name(),
		Description:    "Compound structure fingerprints for similarity lookup",
		Fields: []*entity.Field{
			{Name: "cid", DataType: entity.FieldTypeVarChar, PrimaryKey: true,
				TypeParams: map[string]string{"max_length": strconv.Itoa(cidMaxLength)}},
			{Name: "name", DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(nameMaxLength)}},
			{Name: "storage_group", DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(groupMaxLength)}},
			{Name: vectorFieldName, DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dim)}},
		},
	}
}

// buildIndex constructs the vector index named by configuration.  Cosine
// distance over 0/1 vectors ranks by shared substructure bits, which tracks
// Tanimoto ordering closely enough for a top-K neighbour list.
func (m *CollectionManager) buildIndex() (entity.Index, error) {
	cfg := m.client.cfg
	switch cfg.IndexType {
	case "", "HNSW":
		idx, err := entity.NewIndexHNSW(entity.COSINE, cfg.HNSWM, cfg.HNSWEfConstruction)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid HNSW index parameters")
		}
		return idx, nil
	case "IVF_FLAT":
		idx, err := entity.NewIndexIvfFlat(entity.COSINE, ivfNList)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid IVF_FLAT index parameters")
		}
		return idx, nil
	default:
		return nil, errors.New(errors.ErrCodeValidation, "unsupported milvus index type").
			WithDetail("index_type=" + cfg.IndexType)
	}
}

// Exists reports whether the fingerprint collection is present.
func (m *CollectionManager) Exists(ctx context.Context) (bool, error) {
	has, err := m.client.API().HasCollection(ctx, m.Name())
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeExternalService, "failed to check collection existence")
	}
	return has, nil
}

// Ensure creates the collection, builds the vector index, and loads it into
// memory.  Idempotent: an existing collection is indexed and loaded as-is.
func (m *CollectionManager) Ensure(ctx context.Context) error {
	name := m.Name()

	exists, err := m.Exists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		if err := m.client.API().CreateCollection(ctx, m.schema(), 2); err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService, "failed to create collection")
		}

		idx, err := m.buildIndex()
		if err != nil {
			return err
		}
		if err := m.client.API().CreateIndex(ctx, name, vectorFieldName, idx, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService, "failed to create vector index")
		}

		m.logger.Info("Fingerprint collection created",
			logging.String("collection", name),
			logging.Int("dim", m.client.cfg.EmbeddingDim))
	}

	if err := m.client.API().LoadCollection(ctx, name, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to load collection")
	}
	return nil
}

// Drop removes the collection and its data.
func (m *CollectionManager) Drop(ctx context.Context) error {
	exists, err := m.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return ErrCollectionNotFound
	}

	if err := m.client.API().DropCollection(ctx, m.Name()); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to drop collection")
	}

	m.logger.Warn("Fingerprint collection dropped", logging.String("collection", m.Name()))
	return nil
}

// RowCount returns the stored entity count.  A missing statistic reads as
// zero; Milvus reports counts as strings.
func (m *CollectionManager) RowCount(ctx context.Context) (int64, error) {
	stats, err := m.client.API().GetCollectionStatistics(ctx, m.Name())
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeExternalService, "failed to fetch collection statistics")
	}

	raw, ok := stats["row_count"]
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSerialization, "malformed row_count statistic").
			WithDetail("row_count=" + raw)
	}
	return n, nil
}

//Personal.AI order the ending
