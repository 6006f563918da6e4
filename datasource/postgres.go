package datasource

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/vizql"
)

// pgxQuerier is the slice of *pgxpool.Pool this data source needs,
// abstracted so tests can substitute pgxmock.PgxPoolIface without either
// type depending on the other.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresDataSource executes CapabilitySQL pushdown queries against a
// Postgres table via pgx, grounded on the teacher's
// internal/postgres_repository.go connection-pool pattern and
// internal/postgres_health.go's pgxpool usage, generalized from the EAV
// read path to a single flat SELECT built from a splitter pushdown Query.
type PostgresDataSource struct {
	Pool   pgxQuerier
	Table  string
	Schema []vizql.ColumnDescription

	breaker *CircuitBreaker
}

// NewPostgresDataSource wires a connection pool to a table and its column
// schema (needed to type-check aggregations and filters during SQL
// generation, since a Query alone carries no type information). pool is
// typically a *pgxpool.Pool in production and a pgxmock pool in tests.
func NewPostgresDataSource(pool pgxQuerier, table string, schema []vizql.ColumnDescription) *PostgresDataSource {
	return &PostgresDataSource{Pool: pool, Table: table, Schema: schema, breaker: NewCircuitBreaker(5, time.Minute, 30*time.Second)}
}

func (p *PostgresDataSource) Capability() vizql.Capability { return vizql.CapabilitySQL }

func (p *PostgresDataSource) Execute(ctx context.Context, pushdown *vizql.Query) (*vizql.DataTable, error) {
	if p.breaker.IsOpen() {
		return nil, vizql.NewDataSourceError("postgres circuit breaker open", nil)
	}

	built, err := buildSelectSQL(postgresDialect, p.Table, p.Schema, pushdown)
	if err != nil {
		return nil, err
	}

	rows, err := p.Pool.Query(ctx, built.SQL, built.Args...)
	if err != nil {
		p.breaker.RecordFailure()
		return nil, vizql.NewDataSourceError(fmt.Sprintf("postgres query failed: %s", built.SQL), err)
	}
	defer rows.Close()

	table := vizql.NewDataTable(built.Columns)
	for rows.Next() {
		raw, err := rows.Values()
		if err != nil {
			p.breaker.RecordFailure()
			return nil, vizql.NewDataSourceError("postgres row scan failed", err)
		}
		values, err := rowToValues(built.Columns, raw)
		if err != nil {
			return nil, err
		}
		if err := table.AddRow(values...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		p.breaker.RecordFailure()
		return nil, vizql.NewDataSourceError("postgres row iteration failed", err)
	}
	p.breaker.RecordSuccess()
	return table, nil
}

// rowToValues converts one raw pgx/duckdb row (already typed by the
// driver) into the canonical Value per column.
func rowToValues(cols []vizql.ColumnDescription, raw []any) ([]vizql.Value, error) {
	out := make([]vizql.Value, len(cols))
	for i, col := range cols {
		v, err := nativeToValue(col.Type, raw[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func nativeToValue(typ vizql.ValueType, raw any) (vizql.Value, error) {
	if raw == nil {
		return vizql.NullValue(typ), nil
	}
	// database/sql drivers that, unlike pgx, have no concept of a
	// caller-declared destination type (lib/pq included) hand back numeric
	// and text columns as []byte when scanned into a bare interface{}; fold
	// that in alongside the typed forms pgx itself returns.
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	switch typ {
	case vizql.TypeBoolean:
		if b, ok := raw.(bool); ok {
			return vizql.BoolValue(b), nil
		}
	case vizql.TypeNumber:
		switch n := raw.(type) {
		case float64:
			return vizql.NumberValue(n), nil
		case float32:
			return vizql.NumberValue(float64(n)), nil
		case int64:
			return vizql.NumberValue(float64(n)), nil
		case int32:
			return vizql.NumberValue(float64(n)), nil
		case int:
			return vizql.NumberValue(float64(n)), nil
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return vizql.NumberValue(f), nil
			}
		}
	case vizql.TypeText:
		if s, ok := raw.(string); ok {
			return vizql.TextValue(s), nil
		}
	case vizql.TypeDate:
		if t, ok := raw.(time.Time); ok {
			return vizql.DateValue(t), nil
		}
	case vizql.TypeDateTime:
		if t, ok := raw.(time.Time); ok {
			return vizql.DateTimeValue(t), nil
		}
	case vizql.TypeTimeOfDay:
		if t, ok := raw.(time.Time); ok {
			return vizql.TimeOfDayValue(t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e6), nil
		}
	}
	return vizql.Value{}, vizql.NewEngineError(vizql.ErrorTypeExecution, vizql.ErrCodeUnsupportedValue,
		fmt.Sprintf("cannot convert driver value %v (%T) to %s", raw, raw, typ))
}
