//go:build integration

package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	"github.com/turtacn/ChemStor-Intelligence/internal/domain/sorting"
	"github.com/turtacn/ChemStor-Intelligence/internal/domain/storage"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// completedRun drives a real sorting pass so the persisted run carries
// engine-shaped placements and buckets.
func completedRun(t *testing.T, names ...string) *sorting.SortRun {
	t.Helper()

	run, err := sorting.NewSortRun(names, sorting.TriggerCLI)
	require.NoError(t, err)
	run.Start()

	compounds := make([]*compound.Compound, 0, len(names))
	for _, name := range names {
		c := seedCompound(t, name, "", []ctypes.Pictogram{ctypes.PictogramFlammable}, ctypes.StateLiquid)
		compounds = append(compounds, c)
	}

	registry := storage.NewRegistry()
	result := sorting.NewSorter(logging.NewNopLogger()).SortAll(compounds, registry)
	run.Complete(result, registry)
	return run
}

func TestSortRunRepository_CreateAndGet(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewSortRunRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	run := completedRun(t, "acetone", "ethanol", "toluene")
	run.RecordSkip("unobtainium")
	require.NoError(t, repo.Create(ctx, run))
	assert.Equal(t, 1, run.Version)

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, sorting.RunStatusCompleted, got.Status)
	assert.Equal(t, sorting.TriggerCLI, got.Trigger)
	assert.Equal(t, []string{"acetone", "ethanol", "toluene"}, got.RequestedNames)
	assert.Equal(t, []string{"unobtainium"}, got.SkippedNames)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.FinishedAt)

	// Placements and buckets come back in their original order.
	require.Len(t, got.Placements, 3)
	assert.Equal(t, run.Placements, got.Placements)
	require.NotEmpty(t, got.Buckets)
	assert.Equal(t, run.Buckets, got.Buckets)

	_, err = repo.GetByID(ctx, common.NewID())
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeSortRunNotFound))
}

func TestSortRunRepository_UpdateReplacesOutcome(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewSortRunRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	run, err := sorting.NewSortRun([]string{"acetone", "ethanol"}, sorting.TriggerAPI)
	require.NoError(t, err)
	run.Start()
	require.NoError(t, repo.Create(ctx, run))

	compounds := []*compound.Compound{
		seedCompound(t, "acetone", "", []ctypes.Pictogram{ctypes.PictogramFlammable}, ctypes.StateLiquid),
		seedCompound(t, "ethanol", "", []ctypes.Pictogram{ctypes.PictogramFlammable}, ctypes.StateLiquid),
	}
	registry := storage.NewRegistry()
	result := sorting.NewSorter(logging.NewNopLogger()).SortAll(compounds, registry)
	run.Complete(result, registry)

	require.NoError(t, repo.Update(ctx, run))
	assert.Equal(t, 2, run.Version)

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, sorting.RunStatusCompleted, got.Status)
	assert.Len(t, got.Placements, 2)
	assert.Equal(t, 2, got.Version)
}

func TestSortRunRepository_UpdateUnknownRun(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewSortRunRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	run, err := sorting.NewSortRun([]string{"acetone"}, sorting.TriggerWorker)
	require.NoError(t, err)
	run.Fail("engine unavailable")

	err = repo.Update(ctx, run)
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeSortRunNotFound))
}

func TestSortRunRepository_LatestCompleted(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewSortRunRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	_, err := repo.LatestCompleted(ctx)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeSortRunNotFound))

	older := completedRun(t, "acetone")
	require.NoError(t, repo.Create(ctx, older))

	failed, err := sorting.NewSortRun([]string{"ethanol"}, sorting.TriggerAPI)
	require.NoError(t, err)
	failed.Start()
	failed.Fail("upstream outage")
	require.NoError(t, repo.Create(ctx, failed))

	time.Sleep(10 * time.Millisecond)
	newer := completedRun(t, "toluene")
	require.NoError(t, repo.Create(ctx, newer))

	got, err := repo.LatestCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
	assert.Len(t, got.Placements, 1, "latest run is fully hydrated")
}

func TestSortRunRepository_ListNewestFirst(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewSortRunRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	var ids []common.ID
	for _, name := range []string{"acetone", "ethanol", "toluene"} {
		run := completedRun(t, name)
		require.NoError(t, repo.Create(ctx, run))
		ids = append(ids, run.ID)
		time.Sleep(5 * time.Millisecond)
	}

	page1, total, err := repo.List(ctx, common.Pagination{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page1, 2)
	assert.Equal(t, ids[2], page1[0].ID)
	assert.Equal(t, ids[1], page1[1].ID)

	// List returns run rows without hydrating children.
	assert.Empty(t, page1[0].Placements)

	page2, _, err := repo.List(ctx, common.Pagination{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, ids[0], page2[0].ID)
}
//Personal.AI order the ending
