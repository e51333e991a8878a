package milvus

import (
	"context"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemStor-Intelligence/internal/config"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

type mockCollectionClient struct {
	client.Client

	hasCollectionFunc           func(ctx context.Context, name string) (bool, error)
	createCollectionFunc        func(ctx context.Context, schema *entity.Schema, shardsNum int32) error
	createIndexFunc             func(ctx context.Context, collName, fieldName string, idx entity.Index, async bool) error
	loadCollectionFunc          func(ctx context.Context, name string, async bool) error
	dropCollectionFunc          func(ctx context.Context, name string) error
	getCollectionStatisticsFunc func(ctx context.Context, name string) (map[string]string, error)
}

func (m *mockCollectionClient) HasCollection(ctx context.Context, name string) (bool, error) {
	if m.hasCollectionFunc != nil {
		return m.hasCollectionFunc(ctx, name)
	}
	return false, nil
}

func (m *mockCollectionClient) CreateCollection(ctx context.Context, schema *entity.Schema, shardsNum int32, opts ...client.CreateCollectionOption) error {
	if m.createCollectionFunc != nil {
		return m.createCollectionFunc(ctx, schema, shardsNum)
	}
	return nil
}

func (m *mockCollectionClient) CreateIndex(ctx context.Context, collName, fieldName string, idx entity.Index, async bool, opts ...client.IndexOption) error {
	if m.createIndexFunc != nil {
		return m.createIndexFunc(ctx, collName, fieldName, idx, async)
	}
	return nil
}

func (m *mockCollectionClient) LoadCollection(ctx context.Context, name string, async bool, opts ...client.LoadCollectionOption) error {
	if m.loadCollectionFunc != nil {
		return m.loadCollectionFunc(ctx, name, async)
	}
	return nil
}

func (m *mockCollectionClient) DropCollection(ctx context.Context, name string, opts ...client.DropCollectionOption) error {
	if m.dropCollectionFunc != nil {
		return m.dropCollectionFunc(ctx, name)
	}
	return nil
}

func (m *mockCollectionClient) GetCollectionStatistics(ctx context.Context, name string) (map[string]string, error) {
	if m.getCollectionStatisticsFunc != nil {
		return m.getCollectionStatisticsFunc(ctx, name)
	}
	return map[string]string{}, nil
}

func newTestManager(mock client.Client, cfg config.MilvusConfig) *CollectionManager {
	return NewCollectionManager(bareClient(mock, cfg), nil)
}

func TestCollectionManager_Name(t *testing.T) {
	mgr := newTestManager(&mockCollectionClient{}, testClientConfig())
	assert.Equal(t, "test_fingerprints", mgr.Name())
}

func TestCollectionManager_Ensure_CreatesMissingCollection(t *testing.T) {
	var createdSchema *entity.Schema
	var indexField string
	var indexType entity.IndexType
	loaded := false

	mock := &mockCollectionClient{
		hasCollectionFunc: func(ctx context.Context, name string) (bool, error) {
			assert.Equal(t, "test_fingerprints", name)
			return false, nil
		},
		createCollectionFunc: func(ctx context.Context, schema *entity.Schema, shardsNum int32) error {
			createdSchema = schema
			return nil
		},
		createIndexFunc: func(ctx context.Context, collName, fieldName string, idx entity.Index, async bool) error {
			assert.Equal(t, "test_fingerprints", collName)
			assert.False(t, async)
			indexField = fieldName
			indexType = idx.IndexType()
			return nil
		},
		loadCollectionFunc: func(ctx context.Context, name string, async bool) error {
			assert.False(t, async)
			loaded = true
			return nil
		},
	}

	cfg := testClientConfig()
	cfg.EmbeddingDim = 8
	mgr := newTestManager(mock, cfg)

	require.NoError(t, mgr.Ensure(context.Background()))

	require.NotNil(t, createdSchema)
	assert.Equal(t, "test_fingerprints", createdSchema.CollectionName)
	require.Len(t, createdSchema.Fields, 4)
	assert.Equal(t, "cid", createdSchema.Fields[0].Name)
	assert.True(t, createdSchema.Fields[0].PrimaryKey)
	assert.Equal(t, entity.FieldTypeVarChar, createdSchema.Fields[0].DataType)
	assert.Equal(t, "fingerprint", createdSchema.Fields[3].Name)
	assert.Equal(t, entity.FieldTypeFloatVector, createdSchema.Fields[3].DataType)
	assert.Equal(t, "8", createdSchema.Fields[3].TypeParams["dim"])

	assert.Equal(t, "fingerprint", indexField)
	assert.Equal(t, entity.HNSW, indexType)
	assert.True(t, loaded)
}

func TestCollectionManager_Ensure_SkipsExisting(t *testing.T) {
	created := false
	loaded := false

	mock := &mockCollectionClient{
		hasCollectionFunc: func(ctx context.Context, name string) (bool, error) {
			return true, nil
		},
		createCollectionFunc: func(ctx context.Context, schema *entity.Schema, shardsNum int32) error {
			created = true
			return nil
		},
		loadCollectionFunc: func(ctx context.Context, name string, async bool) error {
			loaded = true
			return nil
		},
	}
	mgr := newTestManager(mock, testClientConfig())

	require.NoError(t, mgr.Ensure(context.Background()))
	assert.False(t, created)
	assert.True(t, loaded)
}

func TestCollectionManager_Ensure_PropagatesCreateFailure(t *testing.T) {
	mock := &mockCollectionClient{
		createCollectionFunc: func(ctx context.Context, schema *entity.Schema, shardsNum int32) error {
			return assert.AnError
		},
	}
	mgr := newTestManager(mock, testClientConfig())

	err := mgr.Ensure(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeExternalService))
}

func TestCollectionManager_Ensure_RejectsUnknownIndexType(t *testing.T) {
	cfg := testClientConfig()
	cfg.IndexType = "ANNOY"
	mgr := newTestManager(&mockCollectionClient{}, cfg)

	err := mgr.Ensure(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestCollectionManager_BuildIndex_IvfFlat(t *testing.T) {
	cfg := testClientConfig()
	cfg.IndexType = "IVF_FLAT"
	mgr := newTestManager(&mockCollectionClient{}, cfg)

	idx, err := mgr.buildIndex()
	require.NoError(t, err)
	assert.Equal(t, entity.IvfFlat, idx.IndexType())
}

func TestCollectionManager_Drop(t *testing.T) {
	dropped := false
	mock := &mockCollectionClient{
		hasCollectionFunc: func(ctx context.Context, name string) (bool, error) {
			return true, nil
		},
		dropCollectionFunc: func(ctx context.Context, name string) error {
			assert.Equal(t, "test_fingerprints", name)
			dropped = true
			return nil
		},
	}
	mgr := newTestManager(mock, testClientConfig())

	require.NoError(t, mgr.Drop(context.Background()))
	assert.True(t, dropped)
}

func TestCollectionManager_Drop_NotFound(t *testing.T) {
	mgr := newTestManager(&mockCollectionClient{}, testClientConfig())

	err := mgr.Drop(context.Background())
	assert.Equal(t, ErrCollectionNotFound, err)
}

func TestCollectionManager_RowCount(t *testing.T) {
	mock := &mockCollectionClient{
		getCollectionStatisticsFunc: func(ctx context.Context, name string) (map[string]string, error) {
			return map[string]string{"row_count": "42"}, nil
		},
	}
	mgr := newTestManager(mock, testClientConfig())

	n, err := mgr.RowCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestCollectionManager_RowCount_MissingStatistic(t *testing.T) {
	mgr := newTestManager(&mockCollectionClient{}, testClientConfig())

	n, err := mgr.RowCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCollectionManager_RowCount_Malformed(t *testing.T) {
	mock := &mockCollectionClient{
		getCollectionStatisticsFunc: func(ctx context.Context, name string) (map[string]string, error) {
			return map[string]string{"row_count": "not a number"}, nil
		},
	}
	mgr := newTestManager(mock, testClientConfig())

	_, err := mgr.RowCount(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

//Personal.AI order the ending
