package splitter_test

import (
	"testing"

	"github.com/lychee-technology/vizql"
	"github.com/lychee-technology/vizql/internal/splitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAllPushesEverything(t *testing.T) {
	q := vizql.NewQuery()
	q.Select = []vizql.AbstractColumn{&vizql.SimpleColumn{ColumnID: "a"}}
	pushdown, completion, err := splitter.Split(vizql.CapabilityAll, q)
	require.NoError(t, err)
	require.NotNil(t, pushdown)
	assert.Len(t, pushdown.Select, 1)
	assert.Empty(t, completion.Select)
}

func TestSplitNonePushesNothing(t *testing.T) {
	q := vizql.NewQuery()
	q.Select = []vizql.AbstractColumn{&vizql.SimpleColumn{ColumnID: "a"}}
	pushdown, completion, err := splitter.Split(vizql.CapabilityNone, q)
	require.NoError(t, err)
	assert.Nil(t, pushdown)
	require.Len(t, completion.Select, 1)
}

func TestSplitSelectPushesReferencedColumns(t *testing.T) {
	q := vizql.NewQuery()
	q.Select = []vizql.AbstractColumn{&vizql.SimpleColumn{ColumnID: "name"}}
	q.Where = &vizql.ColumnValueFilter{Column: &vizql.SimpleColumn{ColumnID: "age"}, Op: vizql.OpGT, Value: vizql.NumberValue(18)}
	q.OrderBy = []vizql.SortColumn{{Column: &vizql.SimpleColumn{ColumnID: "rank"}, Order: vizql.SortAscending}}

	pushdown, completion, err := splitter.Split(vizql.CapabilitySelect, q)
	require.NoError(t, err)
	require.NotNil(t, pushdown)
	ids := map[string]bool{}
	for _, c := range pushdown.Select {
		ids[c.ID()] = true
	}
	assert.True(t, ids["name"])
	assert.True(t, ids["age"])
	assert.True(t, ids["rank"])
	require.NotNil(t, completion.Where)
}

func TestSplitSortAndPaginationFallsBackOnFilter(t *testing.T) {
	q := vizql.NewQuery()
	q.Where = &vizql.ColumnIsNullFilter{Column: &vizql.SimpleColumn{ColumnID: "a"}}
	pushdown, completion, err := splitter.Split(vizql.CapabilitySortAndPagination, q)
	require.NoError(t, err)
	assert.Nil(t, pushdown)
	assert.NotNil(t, completion.Where)
}

func TestSplitSortAndPaginationPushesSortAndLimit(t *testing.T) {
	q := vizql.NewQuery()
	q.OrderBy = []vizql.SortColumn{{Column: &vizql.SimpleColumn{ColumnID: "a"}, Order: vizql.SortDescending}}
	q.Limit = 10
	q.Offset = 5

	pushdown, completion, err := splitter.Split(vizql.CapabilitySortAndPagination, q)
	require.NoError(t, err)
	require.NotNil(t, pushdown)
	require.Len(t, pushdown.OrderBy, 1)
	assert.Equal(t, 10, pushdown.Limit)
	assert.Equal(t, 5, pushdown.Offset)
	assert.Empty(t, completion.OrderBy)
	assert.Equal(t, -1, completion.Limit)
}

func TestSplitSortAndPaginationKeepsLimitInCompletionWhenSkipping(t *testing.T) {
	q := vizql.NewQuery()
	q.Skip = 2
	q.Limit = 10

	pushdown, completion, err := splitter.Split(vizql.CapabilitySortAndPagination, q)
	require.NoError(t, err)
	require.NotNil(t, pushdown)
	assert.Equal(t, -1, pushdown.Limit)
	assert.Equal(t, 10, completion.Limit)
	assert.Equal(t, 2, completion.Skip)
}

func TestSplitSQLFlatPushesSelectionFilterGroupByAndPagination(t *testing.T) {
	sumSales := &vizql.AggregationColumn{Aggregation: vizql.AggSum, Column: &vizql.SimpleColumn{ColumnID: "Sales"}}
	year := &vizql.SimpleColumn{ColumnID: "Year"}
	q := vizql.NewQuery()
	q.Select = []vizql.AbstractColumn{year, sumSales}
	q.GroupBy = []vizql.AbstractColumn{year}
	q.Limit = 5

	pushdown, completion, err := splitter.Split(vizql.CapabilitySQL, q)
	require.NoError(t, err)
	require.NotNil(t, pushdown)
	require.Len(t, pushdown.Select, 2)
	require.Len(t, pushdown.GroupBy, 1)
	assert.Equal(t, 5, pushdown.Limit)

	require.Len(t, completion.Select, 2)
	assert.Equal(t, "sum-Sales", completion.Select[1].ID())
}

func TestSplitSQLFallsBackOnScalarFunction(t *testing.T) {
	q := vizql.NewQuery()
	q.Select = []vizql.AbstractColumn{&vizql.ScalarFunctionColumn{
		Function: vizql.FnAdd,
		Args:     []vizql.AbstractColumn{&vizql.SimpleColumn{ColumnID: "a"}, &vizql.SimpleColumn{ColumnID: "b"}},
	}}
	pushdown, _, err := splitter.Split(vizql.CapabilitySQL, q)
	require.NoError(t, err)
	assert.Nil(t, pushdown)
}

func TestSplitSQLPivotUnpivotsAndDegeneratesAggregation(t *testing.T) {
	maxSales := &vizql.AggregationColumn{Aggregation: vizql.AggMax, Column: &vizql.SimpleColumn{ColumnID: "Sales"}}
	year := &vizql.SimpleColumn{ColumnID: "Year"}
	band := &vizql.SimpleColumn{ColumnID: "Band"}
	q := vizql.NewQuery()
	q.Select = []vizql.AbstractColumn{maxSales, year}
	q.GroupBy = []vizql.AbstractColumn{year}
	q.PivotBy = []vizql.AbstractColumn{band}
	q.Labels = []vizql.ColumnLabel{{ColumnID: maxSales.ID(), Label: "Top Sales"}}

	pushdown, completion, err := splitter.Split(vizql.CapabilitySQL, q)
	require.NoError(t, err)
	require.NotNil(t, pushdown)
	require.Len(t, pushdown.GroupBy, 2) // Year + Band, unpivoted

	require.Len(t, completion.GroupBy, 1)
	require.Len(t, completion.PivotBy, 1)
	degenerate, ok := completion.Select[0].(*vizql.AggregationColumn)
	require.True(t, ok)
	assert.Equal(t, vizql.AggMin, degenerate.Aggregation)
	assert.Equal(t, maxSales.ID(), degenerate.Column.ID())

	require.Len(t, completion.Labels, 1)
	assert.Equal(t, degenerate.ID(), completion.Labels[0].ColumnID)
}

func TestSplitUnknownCapabilityIsFatal(t *testing.T) {
	_, _, err := splitter.Split(vizql.Capability("BOGUS"), vizql.NewQuery())
	assert.Error(t, err)
}
