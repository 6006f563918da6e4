// Package engine orchestrates the full query pipeline described in §4.7
// through §4.11: grouping/pivoting assembly, sort, skip/pagination,
// projection, and labels/format — grounded on the teacher's sequential,
// zap-logged orchestration style (internal/entity_manager_query.go's
// Query method), generalized from an EAV entity query to this engine's
// column-expression pipeline.
package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lychee-technology/vizql"
	"github.com/lychee-technology/vizql/internal/aggregate"
)

// groupResult carries the wide derived table produced by §4.7 alongside
// the lookup structures §4.8 projection needs: for each AbstractColumn id
// that the derived table materializes, the list of column positions it
// occupies (one for a group column, one per pivot-tuple for an aggregation
// or scalar-function-over-aggregation column).
type groupResult struct {
	table     *vizql.DataTable
	positions map[string][]int
}

// dedupAggregations returns the AggregationColumns referenced anywhere in
// cols (selection + any aggregated sort keys), in first-occurrence order,
// per §4.6 "Tie-breaks & determinism" / §9 ordered-set pattern.
func dedupAggregations(cols []vizql.AbstractColumn) []*vizql.AggregationColumn {
	seen := make(map[string]bool)
	var out []*vizql.AggregationColumn
	var walk func(c vizql.AbstractColumn)
	walk = func(c vizql.AbstractColumn) {
		switch cc := c.(type) {
		case *vizql.AggregationColumn:
			if !seen[cc.ID()] {
				seen[cc.ID()] = true
				out = append(out, cc)
			}
		case *vizql.ScalarFunctionColumn:
			for _, a := range cc.Args {
				walk(a)
			}
		}
	}
	for _, c := range cols {
		walk(c)
	}
	return out
}

// scalarFunctionsOverAggregation returns the top-level ScalarFunctionColumns
// in the selection that transitively reference an aggregation (§4.7 item 3).
func scalarFunctionsOverAggregation(cols []vizql.AbstractColumn) []*vizql.ScalarFunctionColumn {
	var out []*vizql.ScalarFunctionColumn
	for _, c := range cols {
		if sfn, ok := c.(*vizql.ScalarFunctionColumn); ok && containsAggregation(sfn) {
			out = append(out, sfn)
		}
	}
	return out
}

func containsAggregation(c vizql.AbstractColumn) bool {
	switch cc := c.(type) {
	case *vizql.AggregationColumn:
		return true
	case *vizql.ScalarFunctionColumn:
		for _, a := range cc.Args {
			if containsAggregation(a) {
				return true
			}
		}
	}
	return false
}

// GroupAndPivot builds the aggregation tree over filtered, then assembles
// the wide output table per §4.7, returning it together with the position
// lookups §4.8's projection stage needs. Callers must check
// query.HasGrouping() || query.HasAggregation() first; this function
// assumes at least one holds. A query with an aggregation but no GroupBy/
// PivotBy (a grand total) still works here: keyCols is then empty and the
// aggregation tree (internal/aggregate.Tree) materializes a single
// root-only bucket instead of a per-key trie.
func GroupAndPivot(query *vizql.Query, filtered *vizql.DataTable) (*groupResult, error) {
	keyCols := append(append([]vizql.AbstractColumn{}, query.GroupBy...), query.PivotBy...)
	groupLen := len(query.GroupBy)

	aggCols := dedupAggregations(append(append([]vizql.AbstractColumn{}, query.Select...), sortColumnsAsAbstract(query.OrderBy)...))
	sfnCols := scalarFunctionsOverAggregation(query.Select)

	tree := aggregate.New(len(keyCols), aggCols)

	for r := range filtered.Rows {
		keys := make([]vizql.Value, len(keyCols))
		for i, kc := range keyCols {
			v, err := vizql.Eval(kc, filtered, r)
			if err != nil {
				return nil, err
			}
			keys[i] = v
		}
		aggValues := make([]vizql.Value, len(aggCols))
		for i, ac := range aggCols {
			v, err := vizql.Eval(ac.Column, filtered, r)
			if err != nil {
				return nil, err
			}
			aggValues[i] = v
		}
		tree.Insert(keys, aggValues)
	}

	leaves := tree.Leaves()

	// Distinct pivot-value tuples, in lex order, deduped by content.
	pivotTuples := distinctPivotTuples(leaves, groupLen)

	// Distinct group-value tuples, in lex order.
	groupTuples := distinctGroupTuples(leaves, groupLen)

	innerTypeOf := func(ac *vizql.AggregationColumn) vizql.ValueType {
		t, err := ac.Column.ValueType(filtered)
		if err != nil {
			return vizql.TypeText
		}
		return t
	}

	// Build output schema (§4.7 left to right).
	var cols []vizql.ColumnDescription
	positions := make(map[string][]int)

	for _, gc := range query.GroupBy {
		sc, _ := gc.(*vizql.SimpleColumn)
		desc, _ := filtered.ColumnByID(sc.ColumnID)
		positions[gc.ID()] = []int{len(cols)}
		cols = append(cols, desc)
	}

	// pivot-tuple x aggregation blocks.
	pivotColBase := make(map[string]map[string]int) // pivotTupleKey -> aggID -> column index
	for _, pt := range pivotTuples {
		ptKey := pivotTupleKey(pt)
		pivotColBase[ptKey] = make(map[string]int)
		prefix := pivotColumnPrefix(pt)
		for _, ac := range aggCols {
			colID := prefix + ac.ID()
			typ := TypeForAggregation(ac, innerTypeOf(ac))
			label := pivotLabel(pt) + " " + string(ac.Aggregation) + "-" + innerColumnLabel(ac, filtered)
			pivotColBase[ptKey][ac.ID()] = len(cols)
			positions[ac.ID()] = append(positions[ac.ID()], len(cols))
			cols = append(cols, vizql.ColumnDescription{ID: colID, Type: typ, Label: label})
		}
	}

	// scalar-function-over-aggregation columns, one per pivot tuple.
	sfnBase := make(map[string]map[string]int)
	for _, pt := range pivotTuples {
		ptKey := pivotTupleKey(pt)
		sfnBase[ptKey] = make(map[string]int)
		prefix := pivotColumnPrefix(pt)
		for _, sfn := range sfnCols {
			typ, _ := sfn.ValueType(filtered)
			colID := prefix + sfn.ID()
			sfnBase[ptKey][sfn.ID()] = len(cols)
			positions[sfn.ID()] = append(positions[sfn.ID()], len(cols))
			cols = append(cols, vizql.ColumnDescription{ID: colID, Type: typ})
		}
	}

	out := vizql.NewDataTable(cols)

	// Materialize a (rowTitle=groupTuple, columnTitle=pivotTuple) -> leaf
	// map for O(1) lookups while building rows, per §4.7 item 2.
	leafByRowCol := make(map[string]map[string]aggregate.Leaf)
	for _, lf := range leaves {
		groupKey := valueListKey(lf.Keys[:groupLen])
		pivotKey := valueListKey(lf.Keys[groupLen:])
		if leafByRowCol[groupKey] == nil {
			leafByRowCol[groupKey] = make(map[string]aggregate.Leaf)
		}
		leafByRowCol[groupKey][pivotKey] = lf
	}

	for _, gt := range groupTuples {
		rowCells := make([]vizql.Value, len(cols))
		for i, v := range gt {
			rowCells[i] = v
		}
		groupKey := valueListKey(gt)

		// Build a per-row column lookup table (simpleColumnID/aggID/sfnID
		// -> Value) per pivot tuple, populated group-columns-first then
		// aggregation-columns then scalar-function-columns, matching the
		// three-pass order in §4.7.
		for _, pt := range pivotTuples {
			ptKey := pivotTupleKey(pt)
			lf, ok := leafByRowCol[groupKey][ptKey]
			lookup := make(map[string]vizql.Value, len(query.GroupBy)+len(aggCols))
			for i, gc := range query.GroupBy {
				lookup[gc.ID()] = gt[i]
			}
			for _, ac := range aggCols {
				pos := pivotColBase[ptKey][ac.ID()]
				var v vizql.Value
				if ok {
					var err error
					v, err = tree.Result(lf, ac, innerTypeOf(ac))
					if err != nil {
						return nil, err
					}
				} else {
					v = vizql.NullValue(cols[pos].Type)
				}
				rowCells[pos] = v
				lookup[ac.ID()] = v
			}
			for _, sfn := range sfnCols {
				pos := sfnBase[ptKey][sfn.ID()]
				v, err := evalScalarFunctionFromLookup(sfn, lookup)
				if err != nil {
					return nil, err
				}
				rowCells[pos] = v
				lookup[sfn.ID()] = v
			}
		}

		if err := out.AddRow(rowCells...); err != nil {
			return nil, err
		}
	}

	return &groupResult{table: out, positions: positions}, nil
}

// TypeForAggregation applies §4.7's numeric-aggregation-preserves-type
// rule: COUNT always yields number; SUM/AVG yield number; MIN/MAX preserve
// the inner column's type.
func TypeForAggregation(ac *vizql.AggregationColumn, innerType vizql.ValueType) vizql.ValueType {
	switch ac.Aggregation {
	case vizql.AggCount, vizql.AggSum, vizql.AggAvg:
		return vizql.TypeNumber
	default:
		return innerType
	}
}

func innerColumnLabel(ac *vizql.AggregationColumn, source *vizql.DataTable) string {
	if sc, ok := ac.Column.(*vizql.SimpleColumn); ok {
		if desc, ok := source.ColumnByID(sc.ColumnID); ok {
			if desc.Label != "" {
				return desc.Label
			}
			return desc.ID
		}
	}
	return ac.Column.ID()
}

func evalScalarFunctionFromLookup(sfn *vizql.ScalarFunctionColumn, lookup map[string]vizql.Value) (vizql.Value, error) {
	args := make([]vizql.Value, len(sfn.Args))
	for i, a := range sfn.Args {
		v, ok := lookup[a.ID()]
		if !ok {
			return vizql.Value{}, vizql.NewInvalidQueryError(vizql.ErrCodeUngroupedColumn,
				"scalar function argument not resolvable post-grouping").WithColumn(a.ID())
		}
		args[i] = v
	}
	return vizql.ApplyScalarFunction(sfn.Function, args)
}

func sortColumnsAsAbstract(order []vizql.SortColumn) []vizql.AbstractColumn {
	out := make([]vizql.AbstractColumn, len(order))
	for i, sc := range order {
		out[i] = sc.Column
	}
	return out
}

func distinctPivotTuples(leaves []aggregate.Leaf, groupLen int) [][]vizql.Value {
	seen := make(map[string]bool)
	var out [][]vizql.Value
	for _, lf := range leaves {
		pt := lf.Keys[groupLen:]
		k := valueListKey(pt)
		if !seen[k] {
			seen[k] = true
			out = append(out, pt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		c, _ := aggregate.CompareValueList(out[i], out[j])
		return c < 0
	})
	return out
}

func distinctGroupTuples(leaves []aggregate.Leaf, groupLen int) [][]vizql.Value {
	seen := make(map[string]bool)
	var out [][]vizql.Value
	for _, lf := range leaves {
		gt := lf.Keys[:groupLen]
		k := valueListKey(gt)
		if !seen[k] {
			seen[k] = true
			out = append(out, gt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		c, _ := aggregate.CompareValueList(out[i], out[j])
		return c < 0
	})
	return out
}

func valueListKey(vs []vizql.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%s:%s:%v", v.Type(), v.String(), v.IsNull())
	}
	return strings.Join(parts, "\x1f")
}

func pivotTupleKey(pt []vizql.Value) string { return valueListKey(pt) }

// pivotColumnPrefix renders the "pivotvals " id prefix described in §4.3:
// comma-separated values, trailing space before the column id.
func pivotColumnPrefix(pt []vizql.Value) string {
	if len(pt) == 0 {
		return ""
	}
	parts := make([]string, len(pt))
	for i, v := range pt {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",") + " "
}

func pivotLabel(pt []vizql.Value) string {
	parts := make([]string, len(pt))
	for i, v := range pt {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
