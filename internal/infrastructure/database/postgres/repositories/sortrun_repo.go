package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/ChemStor-Intelligence/internal/domain/sorting"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// ─────────────────────────────────────────────────────────────────────────────
// SortRunRepository
// ─────────────────────────────────────────────────────────────────────────────

// SortRunRepository is the PostgreSQL implementation of the sorting domain's
// Repository interface.  A run spans three tables: the run row itself plus
// child tables for placements and bucket summaries, replaced wholesale on
// every update.  List returns run rows only; GetByID loads full detail.
type SortRunRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

var _ sorting.Repository = (*SortRunRepository)(nil)

// NewSortRunRepository constructs a ready-to-use SortRunRepository.
func NewSortRunRepository(pool *pgxpool.Pool, logger logging.Logger) *SortRunRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SortRunRepository{pool: pool, logger: logger}
}

// ─────────────────────────────────────────────────────────────────────────────
// Create
// ─────────────────────────────────────────────────────────────────────────────

func (r *SortRunRepository) Create(ctx context.Context, run *sorting.SortRun) error {
	r.logger.Debug("SortRunRepository.Create", logging.String("id", string(run.ID)))

	stampRun(run)

	return postgres.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO sort_runs (
				id, status, trigger_source, requested_names, skipped_names,
				overflow_created, rejection_count, started_at, finished_at,
				error_message, created_at, updated_at, version
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			run.ID, string(run.Status), run.Trigger, run.RequestedNames, run.SkippedNames,
			run.OverflowCreated, run.RejectionCount, run.StartedAt, run.FinishedAt,
			run.ErrorMessage, run.CreatedAt, run.UpdatedAt, run.Version,
		)
		if err != nil {
			r.logger.Error("SortRunRepository.Create", logging.Err(err))
			return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to insert sort run")
		}

		if err := copyPlacements(ctx, tx, run); err != nil {
			return err
		}
		return copyBuckets(ctx, tx, run)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────────────────────────────────────

func (r *SortRunRepository) Update(ctx context.Context, run *sorting.SortRun) error {
	r.logger.Debug("SortRunRepository.Update",
		logging.String("id", string(run.ID)), logging.String("status", string(run.Status)))

	return postgres.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		var version int
		err := tx.QueryRow(ctx, `
			UPDATE sort_runs SET
				status=$1, trigger_source=$2, requested_names=$3, skipped_names=$4,
				overflow_created=$5, rejection_count=$6, started_at=$7, finished_at=$8,
				error_message=$9, updated_at=$10, version=version+1
			WHERE id=$11
			RETURNING version`,
			string(run.Status), run.Trigger, run.RequestedNames, run.SkippedNames,
			run.OverflowCreated, run.RejectionCount, run.StartedAt, run.FinishedAt,
			run.ErrorMessage, time.Now().UTC(),
			run.ID,
		).Scan(&version)
		if err != nil {
			if err == pgx.ErrNoRows {
				return appErrors.New(appErrors.CodeSortRunNotFound, "sort run not found")
			}
			r.logger.Error("SortRunRepository.Update", logging.Err(err))
			return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to update sort run")
		}
		run.Version = version

		// Placements and buckets are immutable once written by the engine, so
		// a full replace is simpler than diffing.
		if _, err := tx.Exec(ctx, `DELETE FROM sort_run_placements WHERE run_id = $1`, run.ID); err != nil {
			return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to clear placements")
		}
		if _, err := tx.Exec(ctx, `DELETE FROM sort_run_buckets WHERE run_id = $1`, run.ID); err != nil {
			return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to clear buckets")
		}

		if err := copyPlacements(ctx, tx, run); err != nil {
			return err
		}
		return copyBuckets(ctx, tx, run)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID / LatestCompleted
// ─────────────────────────────────────────────────────────────────────────────

func (r *SortRunRepository) GetByID(ctx context.Context, id common.ID) (*sorting.SortRun, error) {
	r.logger.Debug("SortRunRepository.GetByID", logging.String("id", string(id)))

	return r.loadRun(ctx, `
		SELECT id, status, trigger_source, requested_names, skipped_names,
		       overflow_created, rejection_count, started_at, finished_at,
		       error_message, created_at, updated_at, version
		FROM sort_runs WHERE id = $1`, id)
}

// LatestCompleted returns the most recent successfully completed run with
// full placement detail, for rebuilding the current storage layout.
func (r *SortRunRepository) LatestCompleted(ctx context.Context) (*sorting.SortRun, error) {
	r.logger.Debug("SortRunRepository.LatestCompleted")

	return r.loadRun(ctx, `
		SELECT id, status, trigger_source, requested_names, skipped_names,
		       overflow_created, rejection_count, started_at, finished_at,
		       error_message, created_at, updated_at, version
		FROM sort_runs WHERE status = $1
		ORDER BY finished_at DESC NULLS LAST LIMIT 1`, string(sorting.RunStatusCompleted))
}

func (r *SortRunRepository) loadRun(ctx context.Context, runSQL string, args ...any) (*sorting.SortRun, error) {
	run, err := scanRun(r.pool.QueryRow(ctx, runSQL, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, appErrors.New(appErrors.CodeSortRunNotFound, "sort run not found")
		}
		r.logger.Error("SortRunRepository.loadRun", logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to scan sort run")
	}

	if err := r.attachPlacements(ctx, r.pool, run); err != nil {
		return nil, err
	}
	if err := r.attachBuckets(ctx, r.pool, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// List
// ─────────────────────────────────────────────────────────────────────────────

func (r *SortRunRepository) List(ctx context.Context, page common.Pagination) ([]*sorting.SortRun, int64, error) {
	r.logger.Debug("SortRunRepository.List")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sort_runs`).Scan(&total); err != nil {
		r.logger.Error("SortRunRepository.List: count", logging.Err(err))
		return nil, 0, appErrors.Wrap(err, appErrors.CodeDBQueryError, "count failed")
	}

	pageNum, pageSize := normalizePage(page)

	rows, err := r.pool.Query(ctx, `
		SELECT id, status, trigger_source, requested_names, skipped_names,
		       overflow_created, rejection_count, started_at, finished_at,
		       error_message, created_at, updated_at, version
		FROM sort_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, pageSize, (pageNum-1)*pageSize)
	if err != nil {
		r.logger.Error("SortRunRepository.List: query", logging.Err(err))
		return nil, 0, appErrors.Wrap(err, appErrors.CodeDBQueryError, "list query failed")
	}
	defer rows.Close()

	var runs []*sorting.SortRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			r.logger.Error("SortRunRepository.List: scan", logging.Err(err))
			return nil, 0, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to scan sort run row")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.CodeDBQueryError, "row iteration error")
	}
	return runs, total, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Child-table plumbing
// ─────────────────────────────────────────────────────────────────────────────

// copyPlacements bulk-inserts the run's placements through the COPY protocol.
// Placement rows are always fresh (the parent rows were just inserted or
// cleared), so COPY never conflicts.
func copyPlacements(ctx context.Context, tx pgx.Tx, run *sorting.SortRun) error {
	if len(run.Placements) == 0 {
		return nil
	}

	rows := make([][]any, len(run.Placements))
	for i, p := range run.Placements {
		rows[i] = []any{run.ID, i, p.CompoundName, p.CID, p.Group, string(p.State), p.Forced, p.Fallback}
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"sort_run_placements"},
		[]string{"run_id", "position", "compound_name", "cid", "group_name", "state", "forced", "fallback"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to copy placements")
	}
	return nil
}

func copyBuckets(ctx context.Context, tx pgx.Tx, run *sorting.SortRun) error {
	if len(run.Buckets) == 0 {
		return nil
	}

	rows := make([][]any, len(run.Buckets))
	for i, b := range run.Buckets {
		rows[i] = []any{run.ID, i, b.Group, string(b.State), b.Compounds}
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"sort_run_buckets"},
		[]string{"run_id", "position", "group_name", "state", "compounds"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to copy buckets")
	}
	return nil
}

func (r *SortRunRepository) attachPlacements(ctx context.Context, q querier, run *sorting.SortRun) error {
	rows, err := q.Query(ctx, `
		SELECT compound_name, cid, group_name, state, forced, fallback
		FROM sort_run_placements
		WHERE run_id = $1
		ORDER BY position`, run.ID)
	if err != nil {
		r.logger.Error("SortRunRepository.attachPlacements", logging.Err(err))
		return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to load placements")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p     sorting.PlacementRecord
			state string
		)
		if err := rows.Scan(&p.CompoundName, &p.CID, &p.Group, &state, &p.Forced, &p.Fallback); err != nil {
			return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to scan placement row")
		}
		p.State = ctypes.StateKey(state)
		run.Placements = append(run.Placements, p)
	}
	if err := rows.Err(); err != nil {
		return appErrors.Wrap(err, appErrors.CodeDBQueryError, "row iteration error")
	}
	return nil
}

func (r *SortRunRepository) attachBuckets(ctx context.Context, q querier, run *sorting.SortRun) error {
	rows, err := q.Query(ctx, `
		SELECT group_name, state, compounds
		FROM sort_run_buckets
		WHERE run_id = $1
		ORDER BY position`, run.ID)
	if err != nil {
		r.logger.Error("SortRunRepository.attachBuckets", logging.Err(err))
		return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to load buckets")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			b     sorting.BucketSummary
			state string
		)
		if err := rows.Scan(&b.Group, &state, &b.Compounds); err != nil {
			return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to scan bucket row")
		}
		b.State = ctypes.StateKey(state)
		run.Buckets = append(run.Buckets, b)
	}
	if err := rows.Err(); err != nil {
		return appErrors.Wrap(err, appErrors.CodeDBQueryError, "row iteration error")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanRun(row pgx.Row) (*sorting.SortRun, error) {
	var (
		run    sorting.SortRun
		status string
	)
	err := row.Scan(
		&run.ID, &status, &run.Trigger, &run.RequestedNames, &run.SkippedNames,
		&run.OverflowCreated, &run.RejectionCount, &run.StartedAt, &run.FinishedAt,
		&run.ErrorMessage, &run.CreatedAt, &run.UpdatedAt, &run.Version,
	)
	if err != nil {
		return nil, err
	}
	run.Status = sorting.RunStatus(status)
	return &run, nil
}

// stampRun fills audit fields the domain constructor leaves zero.
func stampRun(run *sorting.SortRun) {
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now
	if run.Version == 0 {
		run.Version = 1
	}
}

//Personal.AI order the ending
