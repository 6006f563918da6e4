package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/lychee-technology/vizql"
)

// DuckDBDataSource executes pushdown queries against an in-process DuckDB
// database opened via database/sql, grounded on the teacher's
// internal/duckdb_conn.go (DuckDBClient wrapping *sql.DB, extension
// install, S3 PRAGMA setup). Reused both for the SQL capability and, when
// the caller configures it to claim ALL, as an "entire query" pushdown
// executor over columnar/parquet-backed tables (e.g. cold-tier exports
// registered by datasource/s3parquet.go).
type DuckDBDataSource struct {
	DB     *sql.DB
	Table  string
	Schema []vizql.ColumnDescription
	Claims vizql.Capability // CapabilitySQL or CapabilityAll

	breaker *CircuitBreaker
}

// NewDuckDBDataSource opens (or reuses) a DuckDB database/sql handle. dsn
// may be ":memory:" or a file path; callers that already manage a *sql.DB
// should construct the struct literal directly instead.
func NewDuckDBDataSource(dsn, table string, schema []vizql.ColumnDescription, claims vizql.Capability) (*DuckDBDataSource, error) {
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, vizql.NewDataSourceError("open duckdb", err)
	}
	db.SetMaxOpenConns(1) // DuckDB's Go driver serializes access per connection
	return &DuckDBDataSource{DB: db, Table: table, Schema: schema, Claims: claims, breaker: NewCircuitBreaker(5, time.Minute, 30*time.Second)}, nil
}

func (d *DuckDBDataSource) Capability() vizql.Capability { return d.Claims }

func (d *DuckDBDataSource) Execute(ctx context.Context, pushdown *vizql.Query) (*vizql.DataTable, error) {
	if d.breaker.IsOpen() {
		return nil, vizql.NewDataSourceError("duckdb circuit breaker open", nil)
	}

	built, err := buildSelectSQL(duckdbDialect, d.Table, d.Schema, pushdown)
	if err != nil {
		return nil, err
	}

	rows, err := d.DB.QueryContext(ctx, built.SQL, built.Args...)
	if err != nil {
		d.breaker.RecordFailure()
		return nil, vizql.NewDataSourceError(fmt.Sprintf("duckdb query failed: %s", built.SQL), err)
	}
	defer rows.Close()

	table := vizql.NewDataTable(built.Columns)
	dest := make([]any, len(built.Columns))
	for i := range dest {
		dest[i] = new(any)
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			d.breaker.RecordFailure()
			return nil, vizql.NewDataSourceError("duckdb row scan failed", err)
		}
		raw := make([]any, len(dest))
		for i, p := range dest {
			raw[i] = *(p.(*any))
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
		d.breaker.RecordFailure()
		return nil, vizql.NewDataSourceError("duckdb row iteration failed", err)
	}
	d.breaker.RecordSuccess()
	return table, nil
}

// RegisterParquetView creates or replaces a view over an external parquet
// path (local or s3://) so subsequent pushdown queries can target it as if
// it were a native table — used by s3parquet.go for cold-tier access.
func (d *DuckDBDataSource) RegisterParquetView(ctx context.Context, viewName, parquetPath string) error {
	stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)", quoteIdent(viewName), quoteStringLiteralDuckDB(parquetPath))
	_, err := d.DB.ExecContext(ctx, stmt)
	if err != nil {
		return vizql.NewDataSourceError("duckdb register parquet view failed", err)
	}
	return nil
}

func quoteStringLiteralDuckDB(s string) string {
	escaped := ""
	for _, r := range s {
		if r == '\'' {
			escaped += "''"
			continue
		}
		escaped += string(r)
	}
	return "'" + escaped + "'"
}
