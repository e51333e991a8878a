//go:build e2e

package e2e_test

import (
	"context"
	"strings"
	"testing"
	"time"
)

// benignBatch holds names every deployment can resolve; both compounds carry
// no GHS hazards and land in the "none" group.
var benignBatch = []string{"water", "sodium chloride"}

func TestSort_SynchronousBatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := env.sdk.Sorting().Sort(ctx, benignBatch)
	skipIfUnavailable(t, err)

	if result.RunID == "" {
		t.Fatal("sort result must carry a run id")
	}
	if result.Status != "completed" {
		t.Fatalf("expected a completed run, got status %q", result.Status)
	}
	if got := result.Placed + len(result.Skipped); got != len(benignBatch) {
		t.Fatalf("placed (%d) + skipped (%d) must account for all %d requested names",
			result.Placed, len(result.Skipped), len(benignBatch))
	}

	bucketed := 0
	for _, group := range result.Groups {
		for _, bucket := range group.States {
			bucketed += len(bucket.Compounds)
		}
	}
	if bucketed != result.Placed {
		t.Fatalf("group buckets hold %d compounds but the run placed %d", bucketed, result.Placed)
	}
}

func TestSort_RunHistoryRoundtrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := env.sdk.Sorting().Sort(ctx, []string{"water"})
	skipIfUnavailable(t, err)

	detail, err := env.sdk.Sorting().Run(ctx, result.RunID)
	if err != nil {
		t.Fatalf("fetch run %s: %v", result.RunID, err)
	}
	run := detail.Run
	if run.ID != result.RunID {
		t.Fatalf("run id mismatch: asked for %s, got %s", result.RunID, run.ID)
	}
	if run.Status != "completed" {
		t.Fatalf("persisted run must be completed, got %q", run.Status)
	}
	if len(run.Placements) != result.Placed {
		t.Fatalf("persisted run has %d placements, sort reported %d", len(run.Placements), result.Placed)
	}
	if len(run.RequestedNames) != 1 || run.RequestedNames[0] != "water" {
		t.Fatalf("requested names not preserved: %v", run.RequestedNames)
	}
	if run.FinishedAt == nil {
		t.Fatal("completed run must record a finish time")
	}

	latest, err := env.sdk.Sorting().LatestRun(ctx)
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if latest.Run.Status != "completed" {
		t.Fatalf("latest run must be a completed one, got %q", latest.Run.Status)
	}
}

func TestGroups_FixedSchemaComplete(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := env.sdk.Sorting().Groups(ctx)
	if err != nil {
		t.Fatalf("groups: %v", err)
	}

	fixed := []string{
		"none", "hazardous_environment", "acute_toxicity", "cmr_stot",
		"toxicity_2_3", "acid_corrosive_1", "acid_irritant",
		"base_corrosive_1", "base_irritant", "pyrophoric", "flammable",
		"oxidizer", "explosive", "compressed_gas", "nitric_acid",
	}

	byName := make(map[string][]string, len(result.Groups))
	for _, g := range result.Groups {
		byName[g.Name] = g.States
	}
	for _, name := range fixed {
		states, ok := byName[name]
		if !ok {
			t.Fatalf("fixed group %q missing from schema", name)
		}
		if name == "compressed_gas" {
			if len(states) != 1 || states[0] != "gas" {
				t.Fatalf("compressed_gas must hold only gases, got states %v", states)
			}
			continue
		}
		if len(states) != 3 {
			t.Fatalf("group %q must expose solid, liquid and gas slots, got %v", name, states)
		}
	}

	// Dynamic overflow groups, when present, must be flagged as such.
	for _, g := range result.Groups {
		if strings.HasPrefix(g.Name, "custom_storage_") && !g.Overflow {
			t.Fatalf("overflow group %q not flagged", g.Name)
		}
	}
}

func TestRuns_PaginationShape(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	page, err := env.sdk.Sorting().Runs(ctx, 1, 5)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}

	if page.Pagination.Page != 1 || page.Pagination.PageSize != 5 {
		t.Fatalf("pagination echo wrong: %+v", page.Pagination)
	}
	if len(page.Runs) > 5 {
		t.Fatalf("page holds %d runs, asked for at most 5", len(page.Runs))
	}
	if int64(len(page.Runs)) > page.Pagination.Total {
		t.Fatalf("page holds %d runs but total claims %d", len(page.Runs), page.Pagination.Total)
	}
	for i := 1; i < len(page.Runs); i++ {
		if page.Runs[i].CreatedAt.After(page.Runs[i-1].CreatedAt) {
			t.Fatal("run history must be newest first")
		}
	}
}

func TestSortAsync_EnqueueVisibleAsRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	receipt, err := env.sdk.Sorting().SortAsync(ctx, []string{"water"})
	skipIfUnavailable(t, err)

	if receipt.RunID == "" {
		t.Fatal("enqueue receipt must carry a run id")
	}
	if receipt.Requested != 1 {
		t.Fatalf("receipt claims %d requested names, sent 1", receipt.Requested)
	}

	// The run row exists as soon as the enqueue returns.
	detail, err := env.sdk.Sorting().Run(ctx, receipt.RunID)
	if err != nil {
		t.Fatalf("queued run not visible: %v", err)
	}
	switch detail.Run.Status {
	case "pending", "running", "completed":
	default:
		t.Fatalf("queued run in unexpected status %q", detail.Run.Status)
	}

	// A worker may or may not be deployed alongside the API; poll briefly and
	// skip rather than fail when nobody picks the run up.
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		detail, err = env.sdk.Sorting().Run(ctx, receipt.RunID)
		if err != nil {
			t.Fatalf("poll run: %v", err)
		}
		if detail.Run.Status == "completed" || detail.Run.Status == "failed" {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if detail.Run.Status != "completed" {
		t.Skipf("run %s still %q after 30s; no worker in this deployment", receipt.RunID, detail.Run.Status)
	}
	if len(detail.Run.Placements) == 0 && len(detail.Run.SkippedNames) == 0 {
		t.Fatal("completed async run accounted for no compounds")
	}
}

func TestAudit_AfterSortReportsCoStorage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	_, err := env.sdk.Sorting().Sort(ctx, benignBatch)
	skipIfUnavailable(t, err)

	audit, err := env.sdk.Compounds().Audit(ctx, "water")
	skipIfUnavailable(t, err)
	if !strings.EqualFold(audit.Name, "water") {
		t.Fatalf("audit answered for %q, asked about water", audit.Name)
	}
	// Water carries no hazards, so no group can have turned it away.
	if len(audit.Rejections) != 0 {
		t.Fatalf("benign compound has rejections: %+v", audit.Rejections)
	}
	for _, name := range audit.CoStored {
		if strings.EqualFold(name, "water") {
			t.Fatal("a compound must not be listed as its own co-resident")
		}
	}
}

func TestGroupResidents_TracksPlacements(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	_, err := env.sdk.Sorting().Sort(ctx, benignBatch)
	skipIfUnavailable(t, err)

	result, err := env.sdk.Sorting().GroupResidents(ctx, "none")
	skipIfUnavailable(t, err)

	if result.Group != "none" {
		t.Fatalf("residents answered for group %q", result.Group)
	}
	found := false
	for _, name := range result.Residents {
		if strings.EqualFold(name, "water") {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("water missing from the none group residents: %v", result.Residents)
	}
}

func TestStatementSearch_FindsIndexedCompounds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Indexing rides the event pipeline, so give a freshly resolved compound
	// a moment to land before searching.
	_, err := env.sdk.Compounds().Resolve(ctx, "hydrochloric acid")
	skipIfUnavailable(t, err)
	time.Sleep(2 * time.Second)

	result, err := env.sdk.Compounds().Search(ctx, "causes severe skin burns", 1, 10)
	skipIfUnavailable(t, err)

	if result.Page != 1 {
		t.Fatalf("page echo wrong: %d", result.Page)
	}
	if int64(len(result.Hits)) > result.Total {
		t.Fatalf("%d hits on page but total claims %d", len(result.Hits), result.Total)
	}
	for _, hit := range result.Hits {
		if hit.Compound.CID == "" {
			t.Fatalf("search hit without a CID: %+v", hit)
		}
	}
}

//Personal.AI order the ending
