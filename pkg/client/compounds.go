package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// ─────────────────────────────────────────────────────────────────────────────
// DTOs — request / response
// ─────────────────────────────────────────────────────────────────────────────

// ClassifyRequest asks for an acid/base classification of a compound that
// may not exist upstream.  Name is required; the structure and hazard
// statements refine the verdict when present.
type ClassifyRequest struct {
	Name       string   `json:"name"`
	FormalName string   `json:"formal_name,omitempty"`
	Structure  string   `json:"structure,omitempty"`
	Statements []string `json:"statements,omitempty"`
}

// Classification is the acid/base verdict for one compound.
type Classification struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
	Acid bool     `json:"acid"`
	Base bool     `json:"base"`
}

// CompoundDocument is a compound as indexed for hazard-statement search.
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

// StatementHit is one scored match from a hazard-statement search.
type StatementHit struct {
	Score    float64          `json:"score"`
	Compound CompoundDocument `json:"compound"`
}

// StatementSearchResult is the response for Search.
type StatementSearchResult struct {
	Query    string         `json:"query"`
	Hits     []StatementHit `json:"hits"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// SimilarHit is one neighbour from a fingerprint similarity search.
type SimilarHit struct {
	CID          string  `json:"cid"`
	Name         string  `json:"name"`
	StorageGroup string  `json:"storage_group,omitempty"`
	Score        float32 `json:"score"`
}

// SimilarResult is the response for Similar.
type SimilarResult struct {
	CID  string       `json:"cid"`
	Hits []SimilarHit `json:"hits"`
}

// AuditRejection is one storage group that refused a compound during its
// sort run, with the compatibility rule that fired.
type AuditRejection struct {
	Group string `json:"group"`
	Rule  string `json:"rule"`
}

// StorageAudit reports where a compound sits and who turned it away.
type StorageAudit struct {
	Name       string           `json:"name"`
	CoStored   []string         `json:"co_stored"`
	Rejections []AuditRejection `json:"rejections"`
}

// ─────────────────────────────────────────────────────────────────────────────
// CompoundsClient
// ─────────────────────────────────────────────────────────────────────────────

// CompoundsClient provides access to compound lookup, classification, and
// search endpoints.
type CompoundsClient struct {
	client *Client
}

// Resolve looks a compound up by name, returning its full enriched record:
// identity, GHS safety profile, classification tags, physical state, and
// fingerprints.
//
// POST /api/v1/compounds/resolve
func (cc *CompoundsClient) Resolve(ctx context.Context, name string) (*ctypes.CompoundDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidArg("compound name is required")
	}

	var dto ctypes.CompoundDTO
	body := map[string]string{"name": name}
	if err := cc.client.post(ctx, "/api/v1/compounds/resolve", body, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// Classify runs the acid/base classifier over the supplied compound data
// without requiring an upstream lookup.
//
// POST /api/v1/compounds/classify
func (cc *CompoundsClient) Classify(ctx context.Context, req *ClassifyRequest) (*Classification, error) {
	if req == nil || strings.TrimSpace(req.Name) == "" {
		return nil, invalidArg("compound name is required")
	}

	var verdict Classification
	if err := cc.client.post(ctx, "/api/v1/compounds/classify", req, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// Search finds compounds whose hazard statements match the given phrase.
// Page and pageSize are clamped to the server limits; zero values take the
// defaults.
//
// GET /api/v1/compounds/search
func (cc *CompoundsClient) Search(ctx context.Context, statement string, page, pageSize int) (*StatementSearchResult, error) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return nil, invalidArg("statement is required")
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	q := url.Values{}
	q.Set("statement", statement)
	q.Set("page", fmt.Sprintf("%d", page))
	q.Set("page_size", fmt.Sprintf("%d", pageSize))

	var result StatementSearchResult
	if err := cc.client.get(ctx, "/api/v1/compounds/search?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Similar returns compounds with fingerprints closest to the one identified
// by cid.  A non-positive limit takes the server default.
//
// GET /api/v1/compounds/{cid}/similar
func (cc *CompoundsClient) Similar(ctx context.Context, cid string, limit int) (*SimilarResult, error) {
	cid = strings.TrimSpace(cid)
	if cid == "" {
		return nil, invalidArg("cid is required")
	}

	path := fmt.Sprintf("/api/v1/compounds/%s/similar", url.PathEscape(cid))
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var result SimilarResult
	if err := cc.client.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Audit reports a compound's current placement: its shelf neighbours from
// the last completed run, and the groups whose compatibility rules refused
// it on the way there.
//
// GET /api/v1/compounds/audit
func (cc *CompoundsClient) Audit(ctx context.Context, name string) (*StorageAudit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidArg("compound name is required")
	}

	q := url.Values{}
	q.Set("name", name)

	var audit StorageAudit
	if err := cc.client.get(ctx, "/api/v1/compounds/audit?"+q.Encode(), &audit); err != nil {
		return nil, err
	}
	return &audit, nil
}

//Personal.AI order the ending
