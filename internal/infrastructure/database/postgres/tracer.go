package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
)

// slowQueryThreshold marks the point where a statement is logged at WARN
// instead of DEBUG.
const slowQueryThreshold = 200 * time.Millisecond

// queryTracer logs every statement issued through the pool.  Routine queries
// go to DEBUG so production noise is controlled by log level alone.
type queryTracer struct {
	logger logging.Logger
}

type traceKey struct{}

type traceData struct {
	sql     string
	started time.Time
}

func newQueryTracer(logger logging.Logger) *queryTracer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &queryTracer{logger: logger.Named("postgres")}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceData{
		sql:     data.SQL,
		started: time.Now(),
	})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	td, ok := ctx.Value(traceKey{}).(traceData)
	if !ok {
		return
	}
	elapsed := time.Since(td.started)

	switch {
	case data.Err != nil && data.Err != pgx.ErrNoRows:
		t.logger.Warn("query failed",
			logging.String("sql", condenseSQL(td.sql)),
			logging.Duration("elapsed", elapsed),
			logging.Err(data.Err),
		)
	case elapsed >= slowQueryThreshold:
		t.logger.Warn("slow query",
			logging.String("sql", condenseSQL(td.sql)),
			logging.Duration("elapsed", elapsed),
		)
	default:
		t.logger.Debug("query",
			logging.String("sql", condenseSQL(td.sql)),
			logging.Duration("elapsed", elapsed),
		)
	}
}

// condenseSQL collapses whitespace and truncates long statements so a single
// log line stays readable.
func condenseSQL(sql string) string {
	condensed := strings.Join(strings.Fields(sql), " ")
	if len(condensed) > 140 {
		condensed = condensed[:140] + "..."
	}
	return condensed
}

//Personal.AI order the ending
