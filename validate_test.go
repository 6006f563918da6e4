package vizql_test

import (
	"testing"

	"github.com/lychee-technology/vizql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validateSampleTable() *vizql.DataTable {
	return vizql.NewDataTable([]vizql.ColumnDescription{
		{ID: "name", Type: vizql.TypeText},
		{ID: "amount", Type: vizql.TypeNumber},
	})
}

func TestValidateReportsFirstOffenceOnly(t *testing.T) {
	q := vizql.NewQuery()
	name := &vizql.SimpleColumn{ColumnID: "name"}
	q.Select = []vizql.AbstractColumn{name, name}
	q.Skip = -1

	err := q.Validate(validateSampleTable())
	require.Error(t, err)
	ve, ok := err.(*vizql.ValidationErrors)
	require.True(t, ok)
	require.Len(t, ve.Errors, 1)
	assert.Equal(t, vizql.ErrCodeDuplicateColumn, ve.Errors[0].Code)
}

func TestValidateSumRequiresNumericColumn(t *testing.T) {
	q := vizql.NewQuery()
	q.Select = []vizql.AbstractColumn{
		&vizql.AggregationColumn{Aggregation: vizql.AggSum, Column: &vizql.SimpleColumn{ColumnID: "name"}},
	}
	err := q.Validate(validateSampleTable())
	require.Error(t, err)
	ve, ok := err.(*vizql.ValidationErrors)
	require.True(t, ok)
	require.Len(t, ve.Errors, 1)
	assert.Equal(t, vizql.ErrCodeTypeMismatch, ve.Errors[0].Code)
}

func TestValidateGroupAndPivotCannotShareColumn(t *testing.T) {
	q := vizql.NewQuery()
	col := &vizql.SimpleColumn{ColumnID: "name"}
	q.GroupBy = []vizql.AbstractColumn{col}
	q.PivotBy = []vizql.AbstractColumn{col}

	err := q.Validate(validateSampleTable())
	require.Error(t, err)
}
