package vizql

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// ColumnDescription is the static metadata for one column of a DataTable
// (§3/§4.2): a stable id, its declared ValueType, and an optional display
// label and format pattern supplied by the data source.
type ColumnDescription struct {
	ID      string
	Type    ValueType
	Label   string
	Pattern string
}

// TableCell is one (value, formatted-string) pair. FormattedValue is filled
// in by the labels/format stage (§4.11); it starts empty for cells produced
// upstream of formatting.
type TableCell struct {
	Value          Value
	FormattedValue string
	CustomProps    map[string]string
}

// TableRow is a fixed-arity slice of cells, one per ColumnDescription of the
// owning DataTable.
type TableRow struct {
	Cells []TableCell
}

// DataTable is the tabular dataset the whole engine operates on (§3): an
// ordered list of ColumnDescriptions plus rows of matching arity. It plays
// the role the teacher's DataRecord collection plays for entity query
// results, but is a plain in-memory grid rather than an EAV projection.
type DataTable struct {
	Columns        []ColumnDescription
	Rows           []TableRow
	Warnings       []Warning
	CustomProperties map[string]string

	byID map[string]int
}

// Warn appends a non-fatal condition to the table's warning sink (§6, §7).
func (t *DataTable) Warn(reason WarningReason, message string) {
	t.Warnings = append(t.Warnings, Warning{Reason: reason, Message: message})
}

// NewDataTable constructs an empty table with the given column descriptions.
// Columns are added one at a time through AddColumn so a caller-supplied
// duplicate id is rejected the same way a later AddColumn call would reject
// one — rather than silently colliding in byID with the later column
// winning, as a bare struct-literal assignment would.
func NewDataTable(columns []ColumnDescription) *DataTable {
	t := &DataTable{Columns: make([]ColumnDescription, 0, len(columns)), byID: make(map[string]int, len(columns))}
	for _, c := range columns {
		if err := t.AddColumn(c); err != nil {
			continue
		}
	}
	return t
}

func (t *DataTable) reindex() {
	t.byID = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.byID[c.ID] = i
	}
}

// AddColumn appends a new column description to the table, rejecting a
// duplicate id (spec.md §4.2: "A DataTable supports: add-column (rejects
// duplicate id)..."). Existing rows are extended with a typed-null cell for
// the new column so the row-arity invariant (§3: "every row has len(columns)
// cells in column order") holds immediately rather than only after the next
// AddRow.
func (t *DataTable) AddColumn(col ColumnDescription) error {
	if t.byID == nil {
		t.reindex()
	}
	if _, exists := t.byID[col.ID]; exists {
		return NewEngineError(ErrorTypeValidation, ErrCodeDuplicateColumn,
			"duplicate column id").WithDetail("id", col.ID)
	}
	t.byID[col.ID] = len(t.Columns)
	t.Columns = append(t.Columns, col)
	for i := range t.Rows {
		t.Rows[i].Cells = append(t.Rows[i].Cells, TableCell{Value: NullValue(col.Type)})
	}
	return nil
}

// ColumnIndex returns the position of columnID, or -1 if absent.
func (t *DataTable) ColumnIndex(columnID string) int {
	if t.byID == nil {
		t.reindex()
	}
	if i, ok := t.byID[columnID]; ok {
		return i
	}
	return -1
}

// ColumnByID returns the ColumnDescription for columnID and whether it exists.
func (t *DataTable) ColumnByID(columnID string) (ColumnDescription, bool) {
	i := t.ColumnIndex(columnID)
	if i < 0 {
		return ColumnDescription{}, false
	}
	return t.Columns[i], true
}

// AddRow appends a row after checking arity and per-cell type against the
// table's ColumnDescriptions — the DataTable-model analog of the teacher's
// TypeMismatchError on write (internal/attribute_converter.go).
func (t *DataTable) AddRow(values ...Value) error {
	if len(values) != len(t.Columns) {
		return NewEngineError(ErrorTypeValidation, ErrCodeRowArityMismatch,
			"row has wrong number of cells").WithDetail("expected", len(t.Columns)).WithDetail("got", len(values))
	}
	row := TableRow{Cells: make([]TableCell, len(values))}
	for i, v := range values {
		if !v.IsNull() && v.Type() != t.Columns[i].Type {
			return NewTypeMismatchError(t.Columns[i].ID, t.Columns[i].Type, v.Type())
		}
		row.Cells[i] = TableCell{Value: v}
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Clone deep-copies the table so transformation stages (§4.6-§4.11) never
// mutate the caller's input — grounded on the teacher's copy-before-mutate
// repository discipline.
func (t *DataTable) Clone() *DataTable {
	cols := make([]ColumnDescription, len(t.Columns))
	copy(cols, t.Columns)
	clone := &DataTable{Columns: cols}
	clone.Rows = make([]TableRow, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]TableCell, len(row.Cells))
		copy(cells, row.Cells)
		clone.Rows[i] = TableRow{Cells: cells}
	}
	clone.reindex()
	return clone
}

// Cell returns the cell at (row, columnID).
func (t *DataTable) Cell(row int, columnID string) (TableCell, bool) {
	i := t.ColumnIndex(columnID)
	if i < 0 || row < 0 || row >= len(t.Rows) {
		return TableCell{}, false
	}
	return t.Rows[row].Cells[i], true
}

// Schema exports the column set as a JSON Schema document (expansion, §B):
// one property per column named by its id, typed per ValueType, so callers
// embedding this engine behind an HTTP layer can publish a machine-readable
// description of a result table without the engine depending on any web
// framework.
func (t *DataTable) Schema() *jsonschema.Schema {
	props := make(map[string]*jsonschema.Schema, len(t.Columns))
	order := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		props[c.ID] = &jsonschema.Schema{Type: jsonSchemaType(c.Type), Title: c.Label}
		order[i] = c.ID
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   order,
	}
}

func jsonSchemaType(t ValueType) string {
	switch t {
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	default:
		return "string"
	}
}
