package vizql_test

import (
	"testing"

	"github.com/lychee-technology/vizql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *vizql.DataTable {
	return vizql.NewDataTable([]vizql.ColumnDescription{
		{ID: "name", Type: vizql.TypeText},
		{ID: "age", Type: vizql.TypeNumber},
	})
}

func TestAddRowArityMismatch(t *testing.T) {
	table := sampleTable()
	err := table.AddRow(vizql.TextValue("a"))
	require.Error(t, err)
	ee, ok := err.(*vizql.EngineError)
	require.True(t, ok)
	assert.Equal(t, vizql.ErrCodeRowArityMismatch, ee.Code)
}

func TestAddRowTypeMismatch(t *testing.T) {
	table := sampleTable()
	err := table.AddRow(vizql.TextValue("a"), vizql.TextValue("not a number"))
	require.Error(t, err)
	ee, ok := err.(*vizql.EngineError)
	require.True(t, ok)
	assert.Equal(t, vizql.ErrCodeTypeMismatch, ee.Code)
}

func TestAddRowAllowsNullRegardlessOfColumnType(t *testing.T) {
	table := sampleTable()
	require.NoError(t, table.AddRow(vizql.TextValue("a"), vizql.NullValue(vizql.TypeNumber)))
	assert.Len(t, table.Rows, 1)
}

func TestCloneIsIndependent(t *testing.T) {
	table := sampleTable()
	require.NoError(t, table.AddRow(vizql.TextValue("a"), vizql.NumberValue(1)))

	clone := table.Clone()
	clone.Rows[0].Cells[0].Value = vizql.TextValue("mutated")

	v, _ := table.Rows[0].Cells[0].Value.Text()
	assert.Equal(t, "a", v)
}

func TestColumnLookup(t *testing.T) {
	table := sampleTable()
	assert.Equal(t, 1, table.ColumnIndex("age"))
	assert.Equal(t, -1, table.ColumnIndex("missing"))

	desc, ok := table.ColumnByID("name")
	require.True(t, ok)
	assert.Equal(t, vizql.TypeText, desc.Type)

	_, ok = table.ColumnByID("missing")
	assert.False(t, ok)
}

func TestCellAccessor(t *testing.T) {
	table := sampleTable()
	require.NoError(t, table.AddRow(vizql.TextValue("a"), vizql.NumberValue(30)))

	cell, ok := table.Cell(0, "age")
	require.True(t, ok)
	n, _ := cell.Value.Number()
	assert.Equal(t, 30.0, n)

	_, ok = table.Cell(5, "age")
	assert.False(t, ok)
}

func TestSchemaExport(t *testing.T) {
	table := sampleTable()
	schema := table.Schema()
	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Properties, "name")
	assert.Contains(t, schema.Properties, "age")
	assert.Equal(t, "string", schema.Properties["name"].Type)
	assert.Equal(t, "number", schema.Properties["age"].Type)
}

func TestAddColumnRejectsDuplicateID(t *testing.T) {
	table := sampleTable()
	err := table.AddColumn(vizql.ColumnDescription{ID: "age", Type: vizql.TypeText})
	require.Error(t, err)
	ee, ok := err.(*vizql.EngineError)
	require.True(t, ok)
	assert.Equal(t, vizql.ErrCodeDuplicateColumn, ee.Code)
	assert.Len(t, table.Columns, 2)
}

func TestAddColumnExtendsExistingRowsWithNull(t *testing.T) {
	table := sampleTable()
	require.NoError(t, table.AddRow(vizql.TextValue("a"), vizql.NumberValue(30)))

	require.NoError(t, table.AddColumn(vizql.ColumnDescription{ID: "active", Type: vizql.TypeBoolean}))
	assert.Equal(t, 3, table.ColumnIndex("active")+1)

	cell, ok := table.Cell(0, "active")
	require.True(t, ok)
	assert.True(t, cell.Value.IsNull())
}

func TestNewDataTableDropsDuplicateColumnID(t *testing.T) {
	table := vizql.NewDataTable([]vizql.ColumnDescription{
		{ID: "name", Type: vizql.TypeText},
		{ID: "name", Type: vizql.TypeNumber},
	})
	assert.Len(t, table.Columns, 1)
	desc, ok := table.ColumnByID("name")
	require.True(t, ok)
	assert.Equal(t, vizql.TypeText, desc.Type)
}

func TestWarnAppendsWarning(t *testing.T) {
	table := sampleTable()
	table.Warn(vizql.WarnDataTruncated, "truncated")
	require.Len(t, table.Warnings, 1)
	assert.Equal(t, vizql.WarnDataTruncated, table.Warnings[0].Reason)
}
