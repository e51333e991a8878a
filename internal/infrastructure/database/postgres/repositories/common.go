// Package repositories contains the PostgreSQL implementations of the
// compound and sorting domain repository contracts.
package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// querier abstracts pgxpool.Pool and pgx.Tx so repository methods can run
// inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// nameKey normalises a display name for uniqueness and case-insensitive
// lookup.
func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// normalizePage clamps pagination to sane bounds.
func normalizePage(p common.Pagination) (page, size int) {
	page = p.Page
	if page < 1 {
		page = 1
	}
	size = p.PageSize
	if size <= 0 {
		size = 20
	}
	return page, size
}

// TEXT[] columns carry string-kinded domain slices; pgx handles []string
// natively, so conversion happens at the repository boundary.

func pictogramStrings(ps []ctypes.Pictogram) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}

func parsePictograms(ss []string) []ctypes.Pictogram {
	out := make([]ctypes.Pictogram, len(ss))
	for i, s := range ss {
		out[i] = ctypes.Pictogram(s)
	}
	return out
}

func tagStrings(ts ctypes.TagSet) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}

func parseTags(ss []string) ctypes.TagSet {
	out := make(ctypes.TagSet, len(ss))
	for i, s := range ss {
		out[i] = ctypes.AcidBaseTag(s)
	}
	return out
}

//Personal.AI order the ending
