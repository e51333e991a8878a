package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// StatementMatch is one compound matching a hazard-statement query.
type StatementMatch struct {
	Score    float64
	Document CompoundDocument
}

// Searcher answers hazard-statement queries against the compound index.
type Searcher struct {
	client *Client
	index  string
	logger logging.Logger
}

// NewSearcher builds a Searcher over the shared client.
func NewSearcher(client *Client, logger logging.Logger) *Searcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Searcher{
		client: client,
		index:  client.IndexName(compoundIndexBase),
		logger: logger.Named("opensearch.searcher"),
	}
}

// SearchByStatement finds compounds whose hazard statements contain the given
// phrase fragment, best match first.  GHS statements are fixed sentences, so
// a contiguous phrase match keeps fragments like "toxic to aquatic life" from
// drowning in single-word noise.
func (s *Searcher) SearchByStatement(ctx context.Context, statement string, page common.Pagination) ([]StatementMatch, int64, error) {
	if statement == "" {
		return nil, 0, errors.New(errors.ErrCodeValidation, "statement query must not be empty")
	}
	page = clampPage(page)

	dsl := map[string]any{
		"query": map[string]any{
			"match_phrase": map[string]any{
				"hazard_statements": statement,
			},
		},
		"from": page.Offset(),
		"size": page.PageSize,
	}

	body, err := json.Marshal(dsl)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal search query")
	}

	start := time.Now()
	resp, err := s.client.API().Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{s.index},
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, 0, errors.New(errors.ErrCodeTimeout, "statement search timed out")
		}
		return nil, 0, errors.Wrap(err, errors.ErrCodeStatementSearchFailed, "statement search failed").
			WithDetail("statement=" + statement)
	}

	matches := make([]StatementMatch, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		var doc CompoundDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			s.logger.Warn("Skipping malformed search hit",
				logging.String("doc_id", hit.ID),
				logging.Err(err),
			)
			continue
		}
		matches = append(matches, StatementMatch{
			Score:    float64(hit.Score),
			Document: doc,
		})
	}

	total := int64(resp.Hits.Total.Value)
	s.logger.Debug("Statement search executed",
		logging.String("statement", statement),
		logging.Int64("total", total),
		logging.Duration("took", time.Since(start)),
	)
	return matches, total, nil
}

func clampPage(page common.Pagination) common.Pagination {
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

//Personal.AI order the ending
