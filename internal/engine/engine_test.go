package engine_test

import (
	"context"
	"math"
	"testing"

	"github.com/lychee-technology/vizql"
	"github.com/lychee-technology/vizql/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func bandSalesTable() *vizql.DataTable {
	t := vizql.NewDataTable([]vizql.ColumnDescription{
		{ID: "Year", Type: vizql.TypeText},
		{ID: "Band", Type: vizql.TypeText},
		{ID: "Songs", Type: vizql.TypeNumber},
		{ID: "Sales", Type: vizql.TypeNumber},
	})
	rows := [][4]any{
		{"1994", "Contraband", 2.0, 4.0},
		{"1994", "Contraband", 2.0, 4.0},
		{"1994", "Contraband", 4.0, 4.0},
		{"1994", "Contraband", 4.0, 4.0},
		{"1994", "Contraband", 2.0, 4.0},
		{"1994", "Contraband", 2.0, 4.0},
	}
	for _, r := range rows {
		_ = t.AddRow(
			vizql.TextValue(r[0].(string)),
			vizql.TextValue(r[1].(string)),
			vizql.NumberValue(r[2].(float64)),
			vizql.NumberValue(r[3].(float64)),
		)
	}
	return t
}

func TestExecuteSortAscendingByNumber(t *testing.T) {
	table := vizql.NewDataTable([]vizql.ColumnDescription{
		{ID: "c1", Type: vizql.TypeText},
		{ID: "c2", Type: vizql.TypeNumber},
		{ID: "c3", Type: vizql.TypeBoolean},
	})
	require.NoError(t, table.AddRow(vizql.TextValue("aaa"), vizql.NumberValue(222), vizql.BoolValue(true)))
	require.NoError(t, table.AddRow(vizql.TextValue("ccc"), vizql.NumberValue(111), vizql.BoolValue(true)))
	require.NoError(t, table.AddRow(vizql.TextValue("bbb"), vizql.NumberValue(333), vizql.BoolValue(false)))

	q := vizql.NewQuery()
	q.OrderBy = []vizql.SortColumn{{Column: &vizql.SimpleColumn{ColumnID: "c2"}, Order: vizql.SortAscending}}

	out, err := engine.New(nil).Execute(context.Background(), q, table, language.English)
	require.NoError(t, err)
	require.Len(t, out.Rows, 3)
	v0, _ := out.Rows[0].Cells[1].Value.Number()
	v1, _ := out.Rows[1].Cells[1].Value.Number()
	v2, _ := out.Rows[2].Cells[1].Value.Number()
	assert.Equal(t, []float64{111, 222, 333}, []float64{v0, v1, v2})
}

func TestExecuteFilterColumnColumn(t *testing.T) {
	table := vizql.NewDataTable([]vizql.ColumnDescription{
		{ID: "name", Type: vizql.TypeText},
		{ID: "c1", Type: vizql.TypeNumber},
		{ID: "c3", Type: vizql.TypeText},
	})
	require.NoError(t, table.AddRow(vizql.TextValue("a"), vizql.NumberValue(123), vizql.TextValue("a")))

	q := vizql.NewQuery()
	q.Select = []vizql.AbstractColumn{&vizql.SimpleColumn{ColumnID: "name"}}
	q.Where = &vizql.ColumnColumnFilter{
		Left:  &vizql.SimpleColumn{ColumnID: "name"},
		Op:    vizql.OpEQ,
		Right: &vizql.SimpleColumn{ColumnID: "c3"},
	}

	out, err := engine.New(nil).Execute(context.Background(), q, table, language.English)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)

	table2 := vizql.NewDataTable(append([]vizql.ColumnDescription{}, table.Columns...))
	require.NoError(t, table2.AddRow(vizql.TextValue("a"), vizql.NumberValue(123), vizql.TextValue("b")))
	out2, err := engine.New(nil).Execute(context.Background(), q, table2, language.English)
	require.NoError(t, err)
	assert.Len(t, out2.Rows, 0)
}

func TestExecuteGroupByWithAggregations(t *testing.T) {
	table := bandSalesTable()
	q := vizql.NewQuery()
	maxSongs := &vizql.AggregationColumn{Aggregation: vizql.AggMax, Column: &vizql.SimpleColumn{ColumnID: "Songs"}}
	minSongs := &vizql.AggregationColumn{Aggregation: vizql.AggMin, Column: &vizql.SimpleColumn{ColumnID: "Songs"}}
	avgSongs := &vizql.AggregationColumn{Aggregation: vizql.AggAvg, Column: &vizql.SimpleColumn{ColumnID: "Songs"}}
	sumSales := &vizql.AggregationColumn{Aggregation: vizql.AggSum, Column: &vizql.SimpleColumn{ColumnID: "Sales"}}
	year := &vizql.SimpleColumn{ColumnID: "Year"}
	q.Select = []vizql.AbstractColumn{maxSongs, minSongs, year, avgSongs, sumSales}
	q.GroupBy = []vizql.AbstractColumn{year, &vizql.SimpleColumn{ColumnID: "Band"}}

	out, err := engine.New(nil).Execute(context.Background(), q, table, language.English)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	row := out.Rows[0]
	maxV, _ := row.Cells[0].Value.Number()
	minV, _ := row.Cells[1].Value.Number()
	yearV, _ := row.Cells[2].Value.Text()
	avgV, _ := row.Cells[3].Value.Number()
	sumV, _ := row.Cells[4].Value.Number()
	assert.Equal(t, 4.0, maxV)
	assert.Equal(t, 2.0, minV)
	assert.Equal(t, "1994", yearV)
	assert.InDelta(t, 2.666666, avgV, 0.0001)
	assert.Equal(t, 24.0, sumV)
}

func TestExecutePaginationTruncationWarning(t *testing.T) {
	table := vizql.NewDataTable([]vizql.ColumnDescription{{ID: "n", Type: vizql.TypeNumber}})
	for i := 0; i < 50; i++ {
		require.NoError(t, table.AddRow(vizql.NumberValue(float64(i))))
	}

	q1 := vizql.NewQuery()
	q1.Limit = 100
	q1.Offset = 10
	out1, err := engine.New(nil).Execute(context.Background(), q1, table, language.English)
	require.NoError(t, err)
	assert.Len(t, out1.Rows, 40)
	assert.Empty(t, out1.Warnings)

	q2 := vizql.NewQuery()
	q2.Limit = 20
	out2, err := engine.New(nil).Execute(context.Background(), q2, table, language.English)
	require.NoError(t, err)
	assert.Len(t, out2.Rows, 20)
	require.Len(t, out2.Warnings, 1)
	assert.Equal(t, vizql.WarnDataTruncated, out2.Warnings[0].Reason)
}

func TestExecuteSumSkipsNaN(t *testing.T) {
	table := vizql.NewDataTable([]vizql.ColumnDescription{
		{ID: "grp", Type: vizql.TypeText},
		{ID: "amount", Type: vizql.TypeNumber},
	})
	require.NoError(t, table.AddRow(vizql.TextValue("a"), vizql.NumberValue(10)))
	require.NoError(t, table.AddRow(vizql.TextValue("a"), vizql.NumberValue(math.NaN())))
	require.NoError(t, table.AddRow(vizql.TextValue("a"), vizql.NumberValue(5)))

	q := vizql.NewQuery()
	grp := &vizql.SimpleColumn{ColumnID: "grp"}
	sumAmount := &vizql.AggregationColumn{Aggregation: vizql.AggSum, Column: &vizql.SimpleColumn{ColumnID: "amount"}}
	q.Select = []vizql.AbstractColumn{grp, sumAmount}
	q.GroupBy = []vizql.AbstractColumn{grp}

	out, err := engine.New(nil).Execute(context.Background(), q, table, language.English)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	sum, _ := out.Rows[0].Cells[1].Value.Number()
	assert.Equal(t, 15.0, sum)
}

func TestExecuteReversedLiteralFilter(t *testing.T) {
	table := vizql.NewDataTable([]vizql.ColumnDescription{{ID: "age", Type: vizql.TypeNumber}})
	require.NoError(t, table.AddRow(vizql.NumberValue(10)))
	require.NoError(t, table.AddRow(vizql.NumberValue(30)))

	q := vizql.NewQuery()
	// "18 < age" i.e. age must be greater than 18.
	q.Where = &vizql.ColumnValueFilter{
		Column: &vizql.SimpleColumn{ColumnID: "age"}, Op: vizql.OpLT, Value: vizql.NumberValue(18), Reversed: true,
	}
	out, err := engine.New(nil).Execute(context.Background(), q, table, language.English)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	v, _ := out.Rows[0].Cells[0].Value.Number()
	assert.Equal(t, 30.0, v)
}

func TestExecuteLikeWildcards(t *testing.T) {
	table := vizql.NewDataTable([]vizql.ColumnDescription{{ID: "col", Type: vizql.TypeText}})
	for _, s := range []string{"foo bar", "foobar", "fooXYZbar", "nope"} {
		require.NoError(t, table.AddRow(vizql.TextValue(s)))
	}
	q := vizql.NewQuery()
	q.Where = &vizql.ColumnValueFilter{Column: &vizql.SimpleColumn{ColumnID: "col"}, Op: vizql.OpLike, Value: vizql.TextValue("foo%bar")}
	out, err := engine.New(nil).Execute(context.Background(), q, table, language.English)
	require.NoError(t, err)
	assert.Len(t, out.Rows, 3)

	table2 := vizql.NewDataTable([]vizql.ColumnDescription{{ID: "col", Type: vizql.TypeText}})
	require.NoError(t, table2.AddRow(vizql.TextValue("foo%bar")))
	require.NoError(t, table2.AddRow(vizql.TextValue("fooXbar")))
	q2 := vizql.NewQuery()
	q2.Where = &vizql.ColumnValueFilter{Column: &vizql.SimpleColumn{ColumnID: "col"}, Op: vizql.OpLike, Value: vizql.TextValue("foo_bar")}
	out2, err := engine.New(nil).Execute(context.Background(), q2, table2, language.English)
	require.NoError(t, err)
	require.Len(t, out2.Rows, 2)
	v, _ := out2.Rows[0].Cells[0].Value.Text()
	assert.Equal(t, "foo%bar", v)
}

func TestExecuteMatchesIsWholeStringNotSubstring(t *testing.T) {
	table := vizql.NewDataTable([]vizql.ColumnDescription{{ID: "col", Type: vizql.TypeText}})
	for _, s := range []string{"bar", "foobar", "barfoo"} {
		require.NoError(t, table.AddRow(vizql.TextValue(s)))
	}
	q := vizql.NewQuery()
	q.Where = &vizql.ColumnValueFilter{Column: &vizql.SimpleColumn{ColumnID: "col"}, Op: vizql.OpMatches, Value: vizql.TextValue("bar")}
	out, err := engine.New(nil).Execute(context.Background(), q, table, language.English)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	got, _ := out.Rows[0].Cells[0].Value.Text()
	assert.Equal(t, "bar", got)
}

// TestExecuteGrandTotalAggregationWithoutGroupBy covers §4.8's "no GROUP BY"
// aggregation case: SELECT sum(Sales) with no GroupBy/PivotBy is a valid
// query (validate.go has no non-aggregated selected column to reject) and
// must still run through the aggregation tree, producing one row with the
// grand total, rather than erroring on an unresolved AggregationColumn.
func TestExecuteGrandTotalAggregationWithoutGroupBy(t *testing.T) {
	table := bandSalesTable()
	q := vizql.NewQuery()
	q.Select = []vizql.AbstractColumn{
		&vizql.AggregationColumn{Aggregation: vizql.AggSum, Column: &vizql.SimpleColumn{ColumnID: "Sales"}},
	}

	out, err := engine.New(nil).Execute(context.Background(), q, table, language.English)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	require.Len(t, out.Columns, 1)
	sum, _ := out.Rows[0].Cells[0].Value.Number()
	assert.Equal(t, 24.0, sum)
}
