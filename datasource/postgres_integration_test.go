//go:build integration

package datasource

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/lychee-technology/vizql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestPostgresDataSourceAgainstRealContainer exercises PostgresDataSource
// against an actual Postgres server, grounded on the teacher's
// internal/e2e_harness/harness.go testcontainers usage (generalized from
// its ContainerRequest/wait.ForLog pattern to the modules/postgres helper).
// Run with `go test -tags=integration ./datasource/...`.
func TestPostgresDataSourceAgainstRealContainer(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("vizql_test"),
		postgres.WithUsername("vizql"),
		postgres.WithPassword("vizql"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()
	require.NoError(t, wait.ForListeningPort("5432/tcp").WaitUntilReady(ctx, container))

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `CREATE TABLE "band_sales" ("Year" TEXT, "Band" TEXT, "Sales" DOUBLE PRECISION)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO "band_sales" VALUES ('1994','Contraband',24.0), ('1995','Contraband',10.0)`)
	require.NoError(t, err)

	ds := NewPostgresDataSource(pool, "band_sales", schema())
	q := vizql.NewQuery()
	q.Select = []vizql.AbstractColumn{
		&vizql.SimpleColumn{ColumnID: "Year"},
		&vizql.AggregationColumn{Aggregation: vizql.AggSum, Column: &vizql.SimpleColumn{ColumnID: "Sales"}},
	}
	q.GroupBy = []vizql.AbstractColumn{&vizql.SimpleColumn{ColumnID: "Year"}}

	out, err := ds.Execute(ctx, q)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
}

// TestLibPQDataSourceAgainstRealContainer exercises the database/sql +
// lib/pq path against the same real Postgres server, confirming the
// driver-registration and []byte-folding handling in nativeToValue.
func TestLibPQDataSourceAgainstRealContainer(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("vizql_test"),
		postgres.WithUsername("vizql"),
		postgres.WithPassword("vizql"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()
	require.NoError(t, wait.ForListeningPort("5432/tcp").WaitUntilReady(ctx, container))

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, `CREATE TABLE "band_sales" ("Year" TEXT, "Band" TEXT, "Sales" DOUBLE PRECISION)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO "band_sales" VALUES ('1994','Contraband',24.0), ('1995','Contraband',10.0)`)
	require.NoError(t, err)

	ds := NewLibPQDataSource(db, "band_sales", schema())
	q := vizql.NewQuery()
	q.Select = []vizql.AbstractColumn{
		&vizql.SimpleColumn{ColumnID: "Year"},
		&vizql.AggregationColumn{Aggregation: vizql.AggSum, Column: &vizql.SimpleColumn{ColumnID: "Sales"}},
	}
	q.GroupBy = []vizql.AbstractColumn{&vizql.SimpleColumn{ColumnID: "Year"}}

	out, err := ds.Execute(ctx, q)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
}
