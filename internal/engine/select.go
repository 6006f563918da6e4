package engine

import "github.com/lychee-technology/vizql"

// projectedColumn records, for one output column, which AbstractColumn (by
// canonical id) it was produced from — §4.11's labels/format stage needs
// this to find a selected column's output position(s) again.
type projectedColumn struct {
	desc     vizql.ColumnDescription
	sourceID string
}

// Project implements §4.8: when derived is non-nil (the query grouped or
// pivoted), selected columns are read back from the derived wide table via
// its columnIndices positions, emitting every position a pivoted
// aggregation/scalar-function column occupies and a single position for a
// group-by column; columns absent from positions are scalar-function
// columns with no aggregation inside, computed fresh per row. When derived
// is nil, selection projects directly from the (already filtered, sorted,
// paginated) table.
func Project(query *vizql.Query, derived *vizql.DataTable, positions map[string][]int, passthrough *vizql.DataTable) (*vizql.DataTable, []projectedColumn, error) {
	source := derived
	if source == nil {
		source = passthrough
	}

	selected := query.Select
	if len(selected) == 0 {
		// No explicit selection: project every column of source unchanged.
		out := vizql.NewDataTable(append([]vizql.ColumnDescription{}, source.Columns...))
		meta := make([]projectedColumn, len(source.Columns))
		for i, c := range source.Columns {
			meta[i] = projectedColumn{desc: c, sourceID: c.ID}
		}
		for _, row := range source.Rows {
			values := make([]vizql.Value, len(row.Cells))
			for i, cell := range row.Cells {
				values[i] = cell.Value
			}
			if err := out.AddRow(values...); err != nil {
				return nil, nil, err
			}
		}
		return out, meta, nil
	}

	var cols []vizql.ColumnDescription
	var meta []projectedColumn
	type plan struct {
		sourcePos int // >= 0 when read back directly from source; -1 if computed fresh
		col       vizql.AbstractColumn
	}
	var plans []plan

	for _, c := range selected {
		if positions != nil {
			if pos, ok := positions[c.ID()]; ok {
				for _, p := range pos {
					desc := source.Columns[p]
					cols = append(cols, desc)
					meta = append(meta, projectedColumn{desc: desc, sourceID: c.ID()})
					plans = append(plans, plan{sourcePos: p})
				}
				continue
			}
		}
		typ, err := c.ValueType(source)
		if err != nil {
			return nil, nil, err
		}
		label := ""
		if sc, ok := c.(*vizql.SimpleColumn); ok {
			if desc, ok := source.ColumnByID(sc.ColumnID); ok {
				label = desc.Label
			}
		}
		desc := vizql.ColumnDescription{ID: c.ID(), Type: typ, Label: label}
		cols = append(cols, desc)
		meta = append(meta, projectedColumn{desc: desc, sourceID: c.ID()})
		plans = append(plans, plan{sourcePos: -1, col: c})
	}

	out := vizql.NewDataTable(cols)
	for r := range source.Rows {
		values := make([]vizql.Value, len(plans))
		for i, p := range plans {
			if p.sourcePos >= 0 {
				values[i] = source.Rows[r].Cells[p.sourcePos].Value
				continue
			}
			v, err := vizql.Eval(p.col, source, r)
			if err != nil {
				return nil, nil, err
			}
			values[i] = v
		}
		if err := out.AddRow(values...); err != nil {
			return nil, nil, err
		}
	}
	return out, meta, nil
}
