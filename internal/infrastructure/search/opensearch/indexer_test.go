package opensearch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemStor-Intelligence/internal/config"
	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

func newTestIndexer(t *testing.T, handler http.HandlerFunc, batchSize int) *Indexer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := newTestClient(t, server.URL)
	return NewIndexer(client, config.OpenSearchConfig{BulkBatchSize: batchSize}, nil)
}

func indexedCompound(t *testing.T) *compound.Compound {
	t.Helper()
	c, err := compound.NewCompound("acetone")
	require.NoError(t, err)
	c.AttachIdentity("180", "Acetone", "propan-2-one", "CC(=O)C")
	c.RecordSafetyProfile(
		[]ctypes.Pictogram{ctypes.PictogramFlammable, ctypes.PictogramIrritant},
		[]string{"H225: Highly flammable liquid and vapour", "H319: Causes serious eye irritation"},
	)
	c.SetClassification(ctypes.TagSet{ctypes.TagUnknown})
	c.State = ctypes.StateLiquid
	return c
}

func TestNewCompoundDocument(t *testing.T) {
	doc := NewCompoundDocument(indexedCompound(t), "flammable")

	assert.Equal(t, "180", doc.CID)
	assert.Equal(t, "acetone", doc.Name)
	assert.Equal(t, "propan-2-one", doc.IUPACName)
	assert.Equal(t, "CC(=O)C", doc.SMILES)
	assert.Equal(t, []string{"Flammable", "Irritant"}, doc.Pictograms)
	assert.Len(t, doc.HazardStatements, 2)
	assert.Equal(t, []string{"unknown"}, doc.Tags)
	assert.Equal(t, "liquid", doc.State)
	assert.Equal(t, "flammable", doc.StorageGroup)
	assert.False(t, doc.IndexedAt.IsZero())
}

func TestNewCompoundDocument_UnknownIdentityOmitted(t *testing.T) {
	c, err := compound.NewCompound("mystery")
	require.NoError(t, err)
	c.AttachIdentity("999", "mystery", compound.UnknownValue, compound.UnknownValue)

	doc := NewCompoundDocument(c, "")
	assert.Empty(t, doc.IUPACName)
	assert.Empty(t, doc.SMILES)
	assert.Empty(t, doc.StorageGroup)
}

func TestCompoundDocument_DocID(t *testing.T) {
	assert.Equal(t, "180", CompoundDocument{CID: "180", Name: "Acetone"}.DocID())
	assert.Equal(t, "acetone", CompoundDocument{Name: "Acetone"}.DocID())
	assert.Equal(t, "acetone", CompoundDocument{CID: compound.UnknownValue, Name: "Acetone"}.DocID())
}

func TestIndexer_EnsureIndex_CreatesWhenMissing(t *testing.T) {
	var createBody string
	indexer := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "test-compounds"):
			body, _ := io.ReadAll(r.Body)
			createBody = string(body)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"acknowledged": true, "index": "test-compounds"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}, 0)

	require.NoError(t, indexer.EnsureIndex(context.Background()))
	assert.Contains(t, createBody, "hazard_statements")
	assert.Contains(t, createBody, "english")
	assert.Contains(t, createBody, "storage_group")
}

func TestIndexer_EnsureIndex_SkipsWhenPresent(t *testing.T) {
	indexer := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
	}, 0)

	require.NoError(t, indexer.EnsureIndex(context.Background()))
}

func TestIndexer_IndexCompound(t *testing.T) {
	var gotPath, gotBody string
	indexer := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "_doc") {
			gotPath = r.URL.Path
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"_index":"test-compounds","_id":"180","_version":1,"result":"created"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}, 0)

	doc := NewCompoundDocument(indexedCompound(t), "flammable")
	require.NoError(t, indexer.IndexCompound(context.Background(), doc))

	assert.Contains(t, gotPath, "test-compounds")
	assert.Contains(t, gotPath, "/180")
	assert.Contains(t, gotBody, `"name":"acetone"`)
	assert.Contains(t, gotBody, "Highly flammable")
}

func TestIndexer_BulkIndex_BatchesAndCounts(t *testing.T) {
	responses := []string{
		`{"took":5,"errors":false,"items":[
			{"index":{"_index":"test-compounds","_id":"1","status":201}},
			{"index":{"_index":"test-compounds","_id":"2","status":201}}]}`,
		`{"took":5,"errors":true,"items":[
			{"index":{"_index":"test-compounds","_id":"3","status":400}}]}`,
	}
	var bulkCalls int
	indexer := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "_bulk") {
			resp := responses[bulkCalls]
			bulkCalls++
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(resp))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}, 2)

	docs := []CompoundDocument{
		{CID: "1", Name: "one"},
		{CID: "2", Name: "two"},
		{CID: "3", Name: "three"},
	}
	result, err := indexer.BulkIndex(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, 2, bulkCalls, "three docs with batch size two need two requests")
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "3", result.Errors[0].DocID)
	assert.Equal(t, 400, result.Errors[0].Status)
}

func TestIndexer_BulkIndex_Empty(t *testing.T) {
	indexer := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty batch")
	}, 0)

	result, err := indexer.BulkIndex(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.Succeeded)
	assert.Zero(t, result.Failed)
}

func TestIndexer_DeleteCompound(t *testing.T) {
	var gotPath string
	indexer := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			gotPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"_index":"test-compounds","_id":"180","result":"deleted"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}, 0)

	require.NoError(t, indexer.DeleteCompound(context.Background(), "180"))
	assert.Contains(t, gotPath, "/180")
}

//Personal.AI order the ending
