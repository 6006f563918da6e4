package querylang_test

import (
	"testing"

	"github.com/lychee-technology/vizql"
	"github.com/lychee-technology/vizql/querylang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectSimpleColumns(t *testing.T) {
	q, err := querylang.Parse("SELECT name, age")
	require.NoError(t, err)
	require.Len(t, q.Select, 2)
	assert.Equal(t, "name", q.Select[0].ID())
	assert.Equal(t, "age", q.Select[1].ID())
}

func TestParseAggregationAndGroupBy(t *testing.T) {
	q, err := querylang.Parse("SELECT max(Songs), min(Songs), Year, avg(Songs), sum(Sales) GROUP BY Year, Band")
	require.NoError(t, err)
	require.Len(t, q.Select, 5)
	agg, ok := q.Select[0].(*vizql.AggregationColumn)
	require.True(t, ok)
	assert.Equal(t, vizql.AggMax, agg.Aggregation)
	assert.Equal(t, "max-Songs", q.Select[0].ID())
	require.Len(t, q.GroupBy, 2)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	q, err := querylang.Parse("SELECT a + b * c")
	require.NoError(t, err)
	fn, ok := q.Select[0].(*vizql.ScalarFunctionColumn)
	require.True(t, ok)
	assert.Equal(t, vizql.FnAdd, fn.Function)
	rhs, ok := fn.Args[1].(*vizql.ScalarFunctionColumn)
	require.True(t, ok)
	assert.Equal(t, vizql.FnMultiply, rhs.Function)
}

func TestParseWhereComparisonAndLogic(t *testing.T) {
	q, err := querylang.Parse("SELECT name WHERE age > 18 AND name LIKE 'A%' OR NOT active IS NULL")
	require.NoError(t, err)
	require.NotNil(t, q.Where)
	cf, ok := q.Where.(*vizql.CompoundFilter)
	require.True(t, ok)
	assert.Equal(t, vizql.LogicOr, cf.Logic)
}

func TestParsePivotSortSkipLimitOffset(t *testing.T) {
	q, err := querylang.Parse("SELECT sum(Sales) GROUP BY Year PIVOT Band ORDER BY Year DESC SKIPPING 2 LIMIT 10 OFFSET 5")
	require.NoError(t, err)
	require.Len(t, q.PivotBy, 1)
	require.Len(t, q.OrderBy, 1)
	assert.Equal(t, vizql.SortDescending, q.OrderBy[0].Order)
	assert.Equal(t, 2, q.Skip)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 5, q.Offset)
}

func TestParseLabelAndFormat(t *testing.T) {
	q, err := querylang.Parse(`SELECT amount LABEL amount 'Total Amount' FORMAT amount '#,##0.00'`)
	require.NoError(t, err)
	require.Len(t, q.Labels, 1)
	assert.Equal(t, "Total Amount", q.Labels[0].Label)
	require.Len(t, q.Formats, 1)
	assert.Equal(t, "#,##0.00", q.Formats[0].Pattern)
}

func TestParseDateLiteral(t *testing.T) {
	q, err := querylang.Parse("SELECT name WHERE createdAt = DATE '2020-01-15'")
	require.NoError(t, err)
	cvf, ok := q.Where.(*vizql.ColumnValueFilter)
	require.True(t, ok)
	assert.Equal(t, vizql.TypeDate, cvf.Value.Type())
}

func TestParseReversedLiteralComparison(t *testing.T) {
	q, err := querylang.Parse("SELECT name WHERE 18 < age")
	require.NoError(t, err)
	cvf, ok := q.Where.(*vizql.ColumnValueFilter)
	require.True(t, ok)
	assert.True(t, cvf.Reversed)
	assert.Equal(t, "age", cvf.Column.ID())
	assert.Equal(t, vizql.OpLT, cvf.Op)
	n, err := cvf.Value.Number()
	require.NoError(t, err)
	assert.Equal(t, 18.0, n)
}

func TestRoundTripSerializeParse(t *testing.T) {
	q, err := querylang.Parse("SELECT max(Songs), Year GROUP BY Year ORDER BY Year ASC LIMIT 5 OFFSET 1")
	require.NoError(t, err)
	s, err := q.ToQueryString()
	require.NoError(t, err)
	reparsed, err := querylang.Parse(s)
	require.NoError(t, err)
	s2, err := reparsed.ToQueryString()
	require.NoError(t, err)
	assert.Equal(t, s, s2)
}
