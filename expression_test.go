package vizql_test

import (
	"testing"
	"time"

	"github.com/lychee-technology/vizql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalSimpleColumn(t *testing.T) {
	table := vizql.NewDataTable([]vizql.ColumnDescription{{ID: "x", Type: vizql.TypeNumber}})
	require.NoError(t, table.AddRow(vizql.NumberValue(7)))

	v, err := vizql.Eval(&vizql.SimpleColumn{ColumnID: "x"}, table, 0)
	require.NoError(t, err)
	n, _ := v.Number()
	assert.Equal(t, 7.0, n)
}

func TestEvalScalarFunctionArithmetic(t *testing.T) {
	table := vizql.NewDataTable([]vizql.ColumnDescription{
		{ID: "a", Type: vizql.TypeNumber},
		{ID: "b", Type: vizql.TypeNumber},
	})
	require.NoError(t, table.AddRow(vizql.NumberValue(3), vizql.NumberValue(4)))

	fn := &vizql.ScalarFunctionColumn{
		Function: vizql.FnAdd,
		Args:     []vizql.AbstractColumn{&vizql.SimpleColumn{ColumnID: "a"}, &vizql.SimpleColumn{ColumnID: "b"}},
	}
	v, err := vizql.Eval(fn, table, 0)
	require.NoError(t, err)
	n, _ := v.Number()
	assert.Equal(t, 7.0, n)
}

func TestApplyScalarFunctionNullPropagation(t *testing.T) {
	v, err := vizql.ApplyScalarFunction(vizql.FnAdd, []vizql.Value{vizql.NullValue(vizql.TypeNumber), vizql.NumberValue(1)})
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestApplyScalarFunctionTimeComponents(t *testing.T) {
	d := vizql.DateValue(time.Date(2021, time.March, 15, 0, 0, 0, 0, time.UTC))
	v, err := vizql.ApplyScalarFunction(vizql.FnYear, []vizql.Value{d})
	require.NoError(t, err)
	n, _ := v.Number()
	assert.Equal(t, 2021.0, n)

	v, err = vizql.ApplyScalarFunction(vizql.FnQuarter, []vizql.Value{d})
	require.NoError(t, err)
	n, _ = v.Number()
	assert.Equal(t, 1.0, n)
}

func TestApplyScalarFunctionDateDiff(t *testing.T) {
	a := vizql.DateValue(time.Date(2021, time.March, 20, 0, 0, 0, 0, time.UTC))
	b := vizql.DateValue(time.Date(2021, time.March, 15, 0, 0, 0, 0, time.UTC))
	v, err := vizql.ApplyScalarFunction(vizql.FnDateDiff, []vizql.Value{a, b})
	require.NoError(t, err)
	n, _ := v.Number()
	assert.Equal(t, 5.0, n)
}

func TestApplyScalarFunctionTextCase(t *testing.T) {
	v, err := vizql.ApplyScalarFunction(vizql.FnUpper, []vizql.Value{vizql.TextValue("abc")})
	require.NoError(t, err)
	s, _ := v.Text()
	assert.Equal(t, "ABC", s)
}
