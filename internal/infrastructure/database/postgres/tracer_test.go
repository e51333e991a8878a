package postgres

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryTracer_CarriesStatementThroughContext(t *testing.T) {
	tracer := newQueryTracer(nil)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{
		SQL: "SELECT 1",
	})

	td, ok := ctx.Value(traceKey{}).(traceData)
	require.True(t, ok)
	assert.Equal(t, "SELECT 1", td.sql)
	assert.False(t, td.started.IsZero())

	// Must not panic with a nop logger regardless of outcome.
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: pgx.ErrNoRows})
}

func TestQueryTracer_IgnoresForeignContext(t *testing.T) {
	tracer := newQueryTracer(nil)

	// An end call without a matching start has nothing to report.
	tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
}

func TestCondenseSQL(t *testing.T) {
	multiline := `
		SELECT id, name
		FROM compounds
		WHERE state = $1`
	assert.Equal(t, "SELECT id, name FROM compounds WHERE state = $1", condenseSQL(multiline))

	long := "SELECT " + strings.Repeat("x", 200)
	condensed := condenseSQL(long)
	assert.Len(t, condensed, 143)
	assert.True(t, strings.HasSuffix(condensed, "..."))
}
//Personal.AI order the ending
