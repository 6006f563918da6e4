package datasource

import (
	"context"
	"testing"

	"github.com/lychee-technology/vizql"
	"github.com/stretchr/testify/require"
)

func TestDuckDBDataSourceExecuteAgainstInMemoryTable(t *testing.T) {
	ds, err := NewDuckDBDataSource(":memory:", "band_sales", schema(), vizql.CapabilitySQL)
	require.NoError(t, err)
	defer ds.DB.Close()

	_, err = ds.DB.Exec(`CREATE TABLE "band_sales" ("Year" VARCHAR, "Band" VARCHAR, "Sales" DOUBLE)`)
	require.NoError(t, err)
	_, err = ds.DB.Exec(`INSERT INTO "band_sales" VALUES ('1994','Contraband',24.0), ('1995','Contraband',10.0)`)
	require.NoError(t, err)

	q := vizql.NewQuery()
	q.Select = []vizql.AbstractColumn{
		&vizql.SimpleColumn{ColumnID: "Year"},
		&vizql.AggregationColumn{Aggregation: vizql.AggSum, Column: &vizql.SimpleColumn{ColumnID: "Sales"}},
	}
	q.GroupBy = []vizql.AbstractColumn{&vizql.SimpleColumn{ColumnID: "Year"}}
	q.OrderBy = []vizql.SortColumn{{Column: &vizql.SimpleColumn{ColumnID: "Year"}, Order: vizql.SortAscending}}

	out, err := ds.Execute(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	v, _ := out.Rows[0].Cells[1].Value.Number()
	require.Equal(t, 24.0, v)
}
