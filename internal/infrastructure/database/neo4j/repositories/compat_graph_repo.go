// Package repositories mirrors sort outcomes into the Neo4j compatibility
// graph.  Compounds and storage groups become nodes; STORED_IN edges record
// placements per run and INCOMPATIBLE_WITH edges record which group refused
// which compound under which rule.  The graph is an audit channel: writes are
// idempotent per run and reads answer "what has shared a shelf with X".
package repositories

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/ChemStor-Intelligence/internal/domain/sorting"
	driver "github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/neo4j"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
)

// GroupRejection is one refusal edge read back from the graph.
type GroupRejection struct {
	Group string
	Rule  string
}

type CompatGraphRepository struct {
	exec   driver.Executor
	logger logging.Logger
}

func NewCompatGraphRepository(exec driver.Executor, log logging.Logger) *CompatGraphRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CompatGraphRepository{exec: exec, logger: log}
}

const mirrorPlacementsCypher = `
UNWIND $placements AS row
MERGE (c:Compound {name: row.name})
  ON CREATE SET c.created_at = datetime()
SET c.cid = row.cid
MERGE (g:StorageGroup {name: row.group})
MERGE (c)-[s:STORED_IN {run_id: $runId}]->(g)
SET s.state = row.state, s.forced = row.forced, s.fallback = row.fallback, s.at = datetime()`

const mirrorRejectionsCypher = `
UNWIND $rejections AS row
MERGE (c:Compound {name: row.name})
MERGE (g:StorageGroup {name: row.group})
MERGE (c)-[x:INCOMPATIBLE_WITH {rule: row.rule}]->(g)
  ON CREATE SET x.first_seen = datetime()
SET x.last_run = $runId, x.at = datetime()`

// MirrorRun writes one engine outcome into the graph.  Re-running the same
// run ID overwrites its own edges rather than duplicating them.
func (r *CompatGraphRepository) MirrorRun(ctx context.Context, runID common.ID, result *sorting.Result) error {
	if result == nil || len(result.Placements) == 0 {
		return nil
	}

	placements := make([]map[string]any, 0, len(result.Placements))
	var rejections []map[string]any
	for _, p := range result.Placements {
		placements = append(placements, map[string]any{
			"name":     p.Compound.Name,
			"cid":      p.Compound.CID,
			"group":    p.Group,
			"state":    string(p.State),
			"forced":   p.Forced,
			"fallback": p.Fallback,
		})
		for _, rej := range p.Rejections {
			rejections = append(rejections, map[string]any{
				"name":  p.Compound.Name,
				"group": rej.Group,
				"rule":  rej.Rule,
			})
		}
	}

	r.logger.Debug("Mirroring sort run into compatibility graph",
		logging.String("run_id", string(runID)),
		logging.Int("placements", len(placements)),
		logging.Int("rejections", len(rejections)),
	)

	_, err := r.exec.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		if _, err := tx.Run(ctx, mirrorPlacementsCypher, map[string]any{
			"runId":      string(runID),
			"placements": placements,
		}); err != nil {
			return nil, err
		}
		if len(rejections) == 0 {
			return nil, nil
		}
		_, err := tx.Run(ctx, mirrorRejectionsCypher, map[string]any{
			"runId":      string(runID),
			"rejections": rejections,
		})
		return nil, err
	})
	return err
}

// CoStored returns the names of compounds that have shared a storage group
// with the given compound in any recorded run.
func (r *CompatGraphRepository) CoStored(ctx context.Context, name string) ([]string, error) {
	query := `
MATCH (a:Compound {name: $name})-[:STORED_IN]->(:StorageGroup)<-[:STORED_IN]-(b:Compound)
WHERE b.name <> a.name
RETURN DISTINCT b.name AS name
ORDER BY name`

	out, err := r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"name": name})
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, result, stringAt(0))
	})
	if err != nil {
		return nil, err
	}
	return out.([]string), nil
}

// RejectionsFor returns every group refusal recorded for the compound.
func (r *CompatGraphRepository) RejectionsFor(ctx context.Context, name string) ([]GroupRejection, error) {
	query := `
MATCH (c:Compound {name: $name})-[x:INCOMPATIBLE_WITH]->(g:StorageGroup)
RETURN g.name AS grp, x.rule AS rule
ORDER BY grp, rule`

	out, err := r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"name": name})
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, result, func(rec *neo4j.Record) (GroupRejection, error) {
			group, ok1 := rec.Values[0].(string)
			rule, ok2 := rec.Values[1].(string)
			if !ok1 || !ok2 {
				return GroupRejection{}, errors.New(errors.ErrCodeDatabaseError, "unexpected record shape")
			}
			return GroupRejection{Group: group, Rule: rule}, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out.([]GroupRejection), nil
}

// GroupResidents returns every compound ever placed in the given group.
func (r *CompatGraphRepository) GroupResidents(ctx context.Context, group string) ([]string, error) {
	query := `
MATCH (c:Compound)-[:STORED_IN]->(:StorageGroup {name: $group})
RETURN DISTINCT c.name AS name
ORDER BY name`

	out, err := r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"group": group})
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, result, stringAt(0))
	})
	if err != nil {
		return nil, err
	}
	return out.([]string), nil
}

func stringAt(idx int) func(*neo4j.Record) (string, error) {
	return func(rec *neo4j.Record) (string, error) {
		s, ok := rec.Values[idx].(string)
		if !ok {
			return "", errors.New(errors.ErrCodeDatabaseError, "unexpected record shape")
		}
		return s, nil
	}
}
//Personal.AI order the ending
