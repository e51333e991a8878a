package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/turtacn/ChemStor-Intelligence/internal/config"
	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

var (
	ErrIndexCreationFailed = errors.New(errors.ErrCodeExternalService, "index creation failed")
	ErrDocumentIndexFailed = errors.New(errors.ErrCodeExternalService, "document index failed")
)

// compoundIndexBase is prefixed with config.IndexPrefix by Client.IndexName.
const compoundIndexBase = "compounds"

// CompoundDocument is the indexed shape of one compound.  Hazard statements
// carry the english analyzer so phrase fragments match across plural and
// tense variants.
type CompoundDocument struct {
	CID              string    `json:"cid"`
	Name             string    `json:"name"`
	IUPACName        string    `json:"iupac_name,omitempty"`
	SMILES           string    `json:"smiles,omitempty"`
	Pictograms       []string  `json:"pictograms"`
	HazardStatements []string  `json:"hazard_statements"`
	Tags             []string  `json:"tags,omitempty"`
	State            string    `json:"state"`
	StorageGroup     string    `json:"storage_group,omitempty"`
	IndexedAt        time.Time `json:"indexed_at"`
}

// NewCompoundDocument flattens a compound into its indexed form.  The storage
// group is supplied by the caller because placement happens after resolution.
func NewCompoundDocument(c *compound.Compound, storageGroup string) CompoundDocument {
	pictograms := make([]string, 0, len(c.Pictograms))
	for _, p := range c.Pictograms {
		pictograms = append(pictograms, string(p))
	}
	tags := make([]string, 0, len(c.AcidBase))
	for _, t := range c.AcidBase {
		tags = append(tags, string(t))
	}

	doc := CompoundDocument{
		CID:              c.CID,
		Name:             c.Name,
		Pictograms:       pictograms,
		HazardStatements: c.HazardStatements,
		Tags:             tags,
		State:            string(c.State),
		StorageGroup:     storageGroup,
		IndexedAt:        time.Now().UTC(),
	}
	if c.IUPACName != compound.UnknownValue {
		doc.IUPACName = c.IUPACName
	}
	if c.SMILES != compound.UnknownValue {
		doc.SMILES = c.SMILES
	}
	return doc
}

// DocID returns the document identity: the CID when resolution produced one,
// else the lowercased display name.
func (d CompoundDocument) DocID() string {
	if d.CID != "" && d.CID != compound.UnknownValue {
		return d.CID
	}
	return strings.ToLower(d.Name)
}

func compoundIndexMapping() map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"cid":        map[string]any{"type": "keyword"},
				"name":       map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
				"iupac_name": map[string]any{"type": "text"},
				"smiles":     map[string]any{"type": "keyword"},
				"pictograms": map[string]any{"type": "keyword"},
				"hazard_statements": map[string]any{
					"type":     "text",
					"analyzer": "english",
				},
				"tags":          map[string]any{"type": "keyword"},
				"state":         map[string]any{"type": "keyword"},
				"storage_group": map[string]any{"type": "keyword"},
				"indexed_at":    map[string]any{"type": "date"},
			},
		},
	}
}

// BulkItemError records one rejected document from a bulk request.
type BulkItemError struct {
	DocID  string
	Status int
}

// BulkResult accounts for a bulk indexing call.
type BulkResult struct {
	Succeeded int
	Failed    int
	Errors    []BulkItemError
}

// Indexer manages the compound index and document ingestion.
type Indexer struct {
	client    *Client
	index     string
	batchSize int
	logger    logging.Logger
}

// NewIndexer builds an Indexer over the shared client.
func NewIndexer(client *Client, cfg config.OpenSearchConfig, logger logging.Logger) *Indexer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	batchSize := cfg.BulkBatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Indexer{
		client:    client,
		index:     client.IndexName(compoundIndexBase),
		batchSize: batchSize,
		logger:    logger.Named("opensearch.indexer"),
	}
}

// Index returns the fully prefixed index name.
func (i *Indexer) Index() string { return i.index }

// IndexExists reports whether the compound index is present.
func (i *Indexer) IndexExists(ctx context.Context) (bool, error) {
	resp, err := i.client.API().Indices.Exists(ctx, opensearchapi.IndicesExistsReq{
		Indices: []string{i.index},
	})
	if resp != nil {
		if resp.Body != nil {
			defer resp.Body.Close()
		}
		switch resp.StatusCode {
		case http.StatusOK:
			return true, nil
		case http.StatusNotFound:
			return false, nil
		}
	}
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeExternalService, "failed to check index existence")
	}
	return false, errors.New(errors.ErrCodeExternalService, "unexpected status checking index existence")
}

// EnsureIndex creates the compound index with its mapping if it is missing.
// Safe to call on every startup.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	exists, err := i.IndexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body, err := json.Marshal(compoundIndexMapping())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal index mapping")
	}

	_, err = i.client.API().Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: i.index,
		Body:  bytes.NewReader(body),
	})
	if err != nil {
		return errors.Wrap(err, ErrIndexCreationFailed.Code, "failed to create compound index")
	}

	i.logger.Info("Compound index created", logging.String("index", i.index))
	return nil
}

// IndexCompound writes or replaces one document.
func (i *Indexer) IndexCompound(ctx context.Context, doc CompoundDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal compound document")
	}

	_, err = i.client.API().Index(ctx, opensearchapi.IndexReq{
		Index:      i.index,
		DocumentID: doc.DocID(),
		Body:       bytes.NewReader(body),
	})
	if err != nil {
		return errors.Wrap(err, ErrDocumentIndexFailed.Code, "failed to index compound").
			WithDetail("doc_id=" + doc.DocID())
	}
	return nil
}

// BulkIndex writes documents in batches and accounts per-item outcomes.
func (i *Indexer) BulkIndex(ctx context.Context, docs []CompoundDocument) (*BulkResult, error) {
	result := &BulkResult{}
	if len(docs) == 0 {
		return result, nil
	}

	for start := 0; start < len(docs); start += i.batchSize {
		end := start + i.batchSize
		if end > len(docs) {
			end = len(docs)
		}

		var buf bytes.Buffer
		for _, doc := range docs[start:end] {
			meta, err := json.Marshal(map[string]any{
				"index": map[string]any{"_index": i.index, "_id": doc.DocID()},
			})
			if err != nil {
				result.Failed++
				continue
			}
			src, err := json.Marshal(doc)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, BulkItemError{DocID: doc.DocID()})
				continue
			}
			buf.Write(meta)
			buf.WriteByte('\n')
			buf.Write(src)
			buf.WriteByte('\n')
		}
		if buf.Len() == 0 {
			continue
		}

		resp, err := i.client.API().Bulk(ctx, opensearchapi.BulkReq{
			Body: bytes.NewReader(buf.Bytes()),
		})
		if err != nil {
			return result, errors.Wrap(err, errors.ErrCodeExternalService, "bulk index request failed")
		}

		for _, item := range resp.Items {
			// One key per item: index/create/update/delete.
			for _, v := range item {
				if v.Status >= 200 && v.Status < 300 {
					result.Succeeded++
				} else {
					result.Failed++
					result.Errors = append(result.Errors, BulkItemError{DocID: v.ID, Status: v.Status})
				}
				break
			}
		}
	}

	i.logger.Info("Bulk index completed",
		logging.Int("total", len(docs)),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
	)
	return result, nil
}

// DeleteCompound removes a document.  Deleting an absent document is not an
// error.
func (i *Indexer) DeleteCompound(ctx context.Context, docID string) error {
	resp, err := i.client.API().Document.Delete(ctx, opensearchapi.DocumentDeleteReq{
		Index:      i.index,
		DocumentID: docID,
	})
	if err != nil {
		if resp != nil && resp.Inspect().Response != nil &&
			resp.Inspect().Response.StatusCode == http.StatusNotFound {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to delete compound document").
			WithDetail("doc_id=" + docID)
	}
	return nil
}

//Personal.AI order the ending
