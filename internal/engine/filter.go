package engine

import "github.com/lychee-technology/vizql"

// FilterTable applies query's WHERE clause against source, returning a new
// table with the same columns and only the matching rows — the first stage
// of the fixed execution order (§4.10: "filter -> group+pivot -> sort ->
// skip -> paginate -> select -> label -> format").
func FilterTable(query *vizql.Query, source *vizql.DataTable) (*vizql.DataTable, error) {
	if query.Where == nil {
		return source.Clone(), nil
	}
	out := vizql.NewDataTable(append([]vizql.ColumnDescription{}, source.Columns...))
	for r, row := range source.Rows {
		ok, err := query.Where.Evaluate(source, r, vizql.DefaultRegexEngine)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		values := make([]vizql.Value, len(row.Cells))
		for i, cell := range row.Cells {
			values[i] = cell.Value
		}
		if err := out.AddRow(values...); err != nil {
			return nil, err
		}
	}
	return out, nil
}
