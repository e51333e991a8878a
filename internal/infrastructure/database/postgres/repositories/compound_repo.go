package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// ─────────────────────────────────────────────────────────────────────────────
// CompoundRepository
// ─────────────────────────────────────────────────────────────────────────────

// CompoundRepository is the PostgreSQL implementation of the compound
// domain's Repository interface.  Pictograms, hazard statements, and the
// acid/base tag set are stored as TEXT[] columns; fingerprints as JSONB.
type CompoundRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

var _ compound.Repository = (*CompoundRepository)(nil)

// NewCompoundRepository constructs a ready-to-use CompoundRepository.
func NewCompoundRepository(pool *pgxpool.Pool, logger logging.Logger) *CompoundRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CompoundRepository{pool: pool, logger: logger}
}

// ─────────────────────────────────────────────────────────────────────────────
// Create
// ─────────────────────────────────────────────────────────────────────────────

// Create persists a new compound.  The repository owns audit fields: zero
// timestamps are stamped with the current time and version starts at 1.
func (r *CompoundRepository) Create(ctx context.Context, c *compound.Compound) error {
	r.logger.Debug("CompoundRepository.Create", logging.String("name", c.Name))

	stampNew(c)
	fpJSON, _ := json.Marshal(c.Fingerprints)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO compounds (
			id, name, name_key, cid, canonical_name, iupac_name, smiles,
			pictograms, hazard_statements, acid_base,
			melting_c, boiling_c, state, fingerprints,
			created_at, updated_at, version
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,
			$8,$9,$10,
			$11,$12,$13,$14,
			$15,$16,$17
		)`,
		c.ID, c.Name, nameKey(c.Name), c.CID, c.CanonicalName, c.IUPACName, c.SMILES,
		pictogramStrings(c.Pictograms), c.HazardStatements, tagStrings(c.AcidBase),
		c.MeltingC, c.BoilingC, string(c.State), fpJSON,
		c.CreatedAt, c.UpdatedAt, c.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.New(appErrors.ErrCodeCompoundAlreadyExists,
				fmt.Sprintf("compound %q is already stored", c.Name))
		}
		r.logger.Error("CompoundRepository.Create", logging.Err(err))
		return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to insert compound")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// BatchCreate
// ─────────────────────────────────────────────────────────────────────────────

// BatchCreate inserts many compounds in one round trip using a pgx batch.
// Names that are already stored are skipped via ON CONFLICT DO NOTHING; the
// return value counts the rows actually inserted.
func (r *CompoundRepository) BatchCreate(ctx context.Context, cs []*compound.Compound) (int64, error) {
	r.logger.Debug("CompoundRepository.BatchCreate", logging.Int("count", len(cs)))

	if len(cs) == 0 {
		return 0, nil
	}

	b := &pgx.Batch{}
	for _, c := range cs {
		stampNew(c)
		fpJSON, _ := json.Marshal(c.Fingerprints)
		b.Queue(`
			INSERT INTO compounds (
				id, name, name_key, cid, canonical_name, iupac_name, smiles,
				pictograms, hazard_statements, acid_base,
				melting_c, boiling_c, state, fingerprints,
				created_at, updated_at, version
			) VALUES (
				$1,$2,$3,$4,$5,$6,$7,
				$8,$9,$10,
				$11,$12,$13,$14,
				$15,$16,$17
			) ON CONFLICT (name_key) DO NOTHING`,
			c.ID, c.Name, nameKey(c.Name), c.CID, c.CanonicalName, c.IUPACName, c.SMILES,
			pictogramStrings(c.Pictograms), c.HazardStatements, tagStrings(c.AcidBase),
			c.MeltingC, c.BoilingC, string(c.State), fpJSON,
			c.CreatedAt, c.UpdatedAt, c.Version,
		)
	}

	br := r.pool.SendBatch(ctx, b)
	var inserted int64
	for range cs {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			r.logger.Error("CompoundRepository.BatchCreate", logging.Err(err))
			return inserted, appErrors.Wrap(err, appErrors.CodeDBQueryError, "batch insert failed")
		}
		inserted += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return inserted, appErrors.Wrap(err, appErrors.CodeDBQueryError, "batch close failed")
	}

	r.logger.Debug("CompoundRepository.BatchCreate: done", logging.Int("inserted", int(inserted)))
	return inserted, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookups
// ─────────────────────────────────────────────────────────────────────────────

func (r *CompoundRepository) GetByID(ctx context.Context, id common.ID) (*compound.Compound, error) {
	r.logger.Debug("CompoundRepository.GetByID", logging.String("id", string(id)))

	return r.scanCompound(r.pool.QueryRow(ctx, `
		SELECT id, name, cid, canonical_name, iupac_name, smiles,
		       pictograms, hazard_statements, acid_base,
		       melting_c, boiling_c, state, fingerprints,
		       created_at, updated_at, version
		FROM compounds WHERE id = $1`, id))
}

func (r *CompoundRepository) GetByName(ctx context.Context, name string) (*compound.Compound, error) {
	r.logger.Debug("CompoundRepository.GetByName", logging.String("name", name))

	return r.scanCompound(r.pool.QueryRow(ctx, `
		SELECT id, name, cid, canonical_name, iupac_name, smiles,
		       pictograms, hazard_statements, acid_base,
		       melting_c, boiling_c, state, fingerprints,
		       created_at, updated_at, version
		FROM compounds WHERE name_key = $1`, nameKey(name)))
}

func (r *CompoundRepository) GetByCID(ctx context.Context, cid string) (*compound.Compound, error) {
	r.logger.Debug("CompoundRepository.GetByCID", logging.String("cid", cid))

	return r.scanCompound(r.pool.QueryRow(ctx, `
		SELECT id, name, cid, canonical_name, iupac_name, smiles,
		       pictograms, hazard_statements, acid_base,
		       melting_c, boiling_c, state, fingerprints,
		       created_at, updated_at, version
		FROM compounds WHERE cid = $1
		ORDER BY created_at LIMIT 1`, cid))
}

// ─────────────────────────────────────────────────────────────────────────────
// Listing
// ─────────────────────────────────────────────────────────────────────────────

// List returns one page of compounds, newest first.
func (r *CompoundRepository) List(ctx context.Context, page common.Pagination) ([]*compound.Compound, int64, error) {
	return r.listWhere(ctx, "", nil, page)
}

// ListByPictogram returns one page of compounds whose hazard profile carries
// the given pictogram, using the GIN index on the pictograms column.
func (r *CompoundRepository) ListByPictogram(ctx context.Context, p ctypes.Pictogram, page common.Pagination) ([]*compound.Compound, int64, error) {
	return r.listWhere(ctx, "WHERE pictograms @> ARRAY[$1]::TEXT[]", []any{string(p)}, page)
}

// ListByState returns one page of compounds in the given physical state.
func (r *CompoundRepository) ListByState(ctx context.Context, state ctypes.PhysicalState, page common.Pagination) ([]*compound.Compound, int64, error) {
	return r.listWhere(ctx, "WHERE state = $1", []any{string(state)}, page)
}

func (r *CompoundRepository) listWhere(ctx context.Context, whereClause string, args []any, page common.Pagination) ([]*compound.Compound, int64, error) {
	r.logger.Debug("CompoundRepository.listWhere", logging.String("where", whereClause))

	var total int64
	if err := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM compounds %s", whereClause), args...,
	).Scan(&total); err != nil {
		r.logger.Error("CompoundRepository.listWhere: count", logging.Err(err))
		return nil, 0, appErrors.Wrap(err, appErrors.CodeDBQueryError, "count failed")
	}

	pageNum, pageSize := normalizePage(page)
	offset := (pageNum - 1) * pageSize

	dataSQL := fmt.Sprintf(`
		SELECT id, name, cid, canonical_name, iupac_name, smiles,
		       pictograms, hazard_statements, acid_base,
		       melting_c, boiling_c, state, fingerprints,
		       created_at, updated_at, version
		FROM compounds %s
		ORDER BY created_at DESC, name
		LIMIT %d OFFSET %d`, whereClause, pageSize, offset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		r.logger.Error("CompoundRepository.listWhere: query", logging.Err(err))
		return nil, 0, appErrors.Wrap(err, appErrors.CodeDBQueryError, "list query failed")
	}
	defer rows.Close()

	compounds, err := r.scanCompounds(rows)
	return compounds, total, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────────────────────────────────────

// Update persists changes with optimistic locking on the version column.
func (r *CompoundRepository) Update(ctx context.Context, c *compound.Compound) error {
	r.logger.Debug("CompoundRepository.Update",
		logging.String("id", string(c.ID)), logging.Int("version", c.Version))

	fpJSON, _ := json.Marshal(c.Fingerprints)
	newVersion := c.Version + 1

	tag, err := r.pool.Exec(ctx, `
		UPDATE compounds SET
			name=$1, name_key=$2, cid=$3, canonical_name=$4, iupac_name=$5, smiles=$6,
			pictograms=$7, hazard_statements=$8, acid_base=$9,
			melting_c=$10, boiling_c=$11, state=$12, fingerprints=$13,
			updated_at=$14, version=$15
		WHERE id=$16 AND version=$17`,
		c.Name, nameKey(c.Name), c.CID, c.CanonicalName, c.IUPACName, c.SMILES,
		pictogramStrings(c.Pictograms), c.HazardStatements, tagStrings(c.AcidBase),
		c.MeltingC, c.BoilingC, string(c.State), fpJSON,
		time.Now().UTC(), newVersion,
		c.ID, c.Version,
	)
	if err != nil {
		r.logger.Error("CompoundRepository.Update", logging.Err(err))
		return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to update compound")
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM compounds WHERE id = $1)`, c.ID,
		).Scan(&exists); err == nil && !exists {
			return appErrors.New(appErrors.CodeCompoundNotFound, "compound not found")
		}
		return appErrors.New(appErrors.CodeConflict, "compound version mismatch")
	}
	c.Version = newVersion
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete
// ─────────────────────────────────────────────────────────────────────────────

func (r *CompoundRepository) Delete(ctx context.Context, id common.ID) error {
	r.logger.Debug("CompoundRepository.Delete", logging.String("id", string(id)))

	tag, err := r.pool.Exec(ctx, `DELETE FROM compounds WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("CompoundRepository.Delete", logging.Err(err))
		return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to delete compound")
	}
	if tag.RowsAffected() == 0 {
		return appErrors.New(appErrors.CodeCompoundNotFound, "compound not found")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Count
// ─────────────────────────────────────────────────────────────────────────────

func (r *CompoundRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM compounds`).Scan(&count); err != nil {
		r.logger.Error("CompoundRepository.Count", logging.Err(err))
		return 0, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to count compounds")
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal scanners
// ─────────────────────────────────────────────────────────────────────────────

// stampNew fills audit fields the domain constructor leaves zero.
func stampNew(c *compound.Compound) {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Version == 0 {
		c.Version = 1
	}
}

func (r *CompoundRepository) scanCompound(row pgx.Row) (*compound.Compound, error) {
	var (
		c          compound.Compound
		pictograms []string
		tags       []string
		state      string
		fpJSON     []byte
	)

	err := row.Scan(
		&c.ID, &c.Name, &c.CID, &c.CanonicalName, &c.IUPACName, &c.SMILES,
		&pictograms, &c.HazardStatements, &tags,
		&c.MeltingC, &c.BoilingC, &state, &fpJSON,
		&c.CreatedAt, &c.UpdatedAt, &c.Version,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, appErrors.New(appErrors.CodeCompoundNotFound, "compound not found")
		}
		r.logger.Error("scanCompound", logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to scan compound")
	}

	c.Pictograms = parsePictograms(pictograms)
	c.AcidBase = parseTags(tags)
	c.State = ctypes.PhysicalState(state)
	if len(fpJSON) > 0 {
		_ = json.Unmarshal(fpJSON, &c.Fingerprints)
	}
	return &c, nil
}

func (r *CompoundRepository) scanCompounds(rows pgx.Rows) ([]*compound.Compound, error) {
	var compounds []*compound.Compound
	for rows.Next() {
		var (
			c          compound.Compound
			pictograms []string
			tags       []string
			state      string
			fpJSON     []byte
		)

		err := rows.Scan(
			&c.ID, &c.Name, &c.CID, &c.CanonicalName, &c.IUPACName, &c.SMILES,
			&pictograms, &c.HazardStatements, &tags,
			&c.MeltingC, &c.BoilingC, &state, &fpJSON,
			&c.CreatedAt, &c.UpdatedAt, &c.Version,
		)
		if err != nil {
			r.logger.Error("scanCompounds", logging.Err(err))
			return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to scan compound row")
		}

		c.Pictograms = parsePictograms(pictograms)
		c.AcidBase = parseTags(tags)
		c.State = ctypes.PhysicalState(state)
		if len(fpJSON) > 0 {
			_ = json.Unmarshal(fpJSON, &c.Fingerprints)
		}
		compounds = append(compounds, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "row iteration error")
	}
	return compounds, nil
}

//Personal.AI order the ending
