package datasource

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/lychee-technology/vizql"
)

// LibPQDataSource is the database/sql counterpart to PostgresDataSource,
// for callers whose connection management already standardized on
// database/sql + lib/pq rather than pgx (the Query-mode health check in
// internal/postgres_health.go shows the teacher carrying a similar
// stdlib-or-driver split rather than forcing one client library on every
// caller). It shares the same sqlDialect/buildSelectSQL/rowToValues plumbing
// as PostgresDataSource; only the row-fetching loop differs, since
// database/sql.Rows has no Values() method analogous to pgx.Rows.
type LibPQDataSource struct {
	DB     *sql.DB
	Table  string
	Schema []vizql.ColumnDescription

	breaker *CircuitBreaker
}

// NewLibPQDataSource wires a *sql.DB (typically opened with
// sql.Open("postgres", dsn), which registers lib/pq's driver via this
// file's blank import) to a table and its column schema.
func NewLibPQDataSource(db *sql.DB, table string, schema []vizql.ColumnDescription) *LibPQDataSource {
	return &LibPQDataSource{DB: db, Table: table, Schema: schema, breaker: NewCircuitBreaker(5, time.Minute, 30*time.Second)}
}

func (p *LibPQDataSource) Capability() vizql.Capability { return vizql.CapabilitySQL }

func (p *LibPQDataSource) Execute(ctx context.Context, pushdown *vizql.Query) (*vizql.DataTable, error) {
	if p.breaker.IsOpen() {
		return nil, vizql.NewDataSourceError("postgres (lib/pq) circuit breaker open", nil)
	}

	built, err := buildSelectSQL(postgresDialect, p.Table, p.Schema, pushdown)
	if err != nil {
		return nil, err
	}

	rows, err := p.DB.QueryContext(ctx, built.SQL, built.Args...)
	if err != nil {
		p.breaker.RecordFailure()
		return nil, vizql.NewDataSourceError("postgres (lib/pq) query failed: "+built.SQL, err)
	}
	defer rows.Close()

	table := vizql.NewDataTable(built.Columns)
	scanned := make([]any, len(built.Columns))
	ptrs := make([]any, len(built.Columns))
	for i := range scanned {
		ptrs[i] = &scanned[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			p.breaker.RecordFailure()
			return nil, vizql.NewDataSourceError("postgres (lib/pq) row scan failed", err)
		}
		values, err := rowToValues(built.Columns, scanned)
		if err != nil {
			return nil, err
		}
		if err := table.AddRow(values...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		p.breaker.RecordFailure()
		return nil, vizql.NewDataSourceError("postgres (lib/pq) row iteration failed", err)
	}
	p.breaker.RecordSuccess()
	return table, nil
}
