package datasource

import (
	"context"
	"testing"

	"github.com/lychee-technology/vizql"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestPostgresDataSourceExecute(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"Year", "sum-Sales"}).
		AddRow("1994", 24.0).
		AddRow("1995", 10.0)
	mock.ExpectQuery(`SELECT .* FROM "band_sales" GROUP BY "Year"`).WillReturnRows(rows)

	ds := NewPostgresDataSource(mock, "band_sales", schema())
	q := vizql.NewQuery()
	q.Select = []vizql.AbstractColumn{
		&vizql.SimpleColumn{ColumnID: "Year"},
		&vizql.AggregationColumn{Aggregation: vizql.AggSum, Column: &vizql.SimpleColumn{ColumnID: "Sales"}},
	}
	q.GroupBy = []vizql.AbstractColumn{&vizql.SimpleColumn{ColumnID: "Year"}}

	out, err := ds.Execute(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDataSourceCircuitBreakerOpensOnFailures(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ds := NewPostgresDataSource(mock, "band_sales", schema())
	q := vizql.NewQuery()

	for i := 0; i < 5; i++ {
		mock.ExpectQuery(`SELECT`).WillReturnError(assertErr)
		_, _ = ds.Execute(context.Background(), q)
	}
	require.True(t, ds.breaker.IsOpen())

	_, err = ds.Execute(context.Background(), q)
	require.Error(t, err)
}

var assertErr = errTestQuery{}

type errTestQuery struct{}

func (errTestQuery) Error() string { return "mock query failure" }
