package vizql

// Validate checks q against source's column shape and the structural
// invariants listed in §3/§4.5. Per §4.5 ("reports the first offence"),
// checks run in the order the invariants are enumerated in §3 and Validate
// returns as soon as one fails; ValidationErrors (grounded on the teacher's
// errors.go accumulate-don't-abort BatchErrors) is kept as the carrier type
// purely for its uniform EngineError formatting, holding exactly one error
// by the time Validate returns.
func (q *Query) Validate(source *DataTable) error {
	ve := NewValidationErrors()
	done := func() bool { return ve.HasErrors() }

	groupIDs := columnIDSet(q.GroupBy)
	pivotIDs := columnIDSet(q.PivotBy)
	for id := range groupIDs {
		if pivotIDs[id] {
			ve.Add(NewInvalidQueryError(ErrCodeDuplicateColumn,
				"column appears in both GROUP BY and PIVOT").WithColumn(id))
			return ve.ToError()
		}
	}

	checkNoDuplicates(ve, "SELECT", q.Select)
	if done() {
		return ve.ToError()
	}
	checkNoDuplicates(ve, "GROUP BY", q.GroupBy)
	if done() {
		return ve.ToError()
	}
	checkNoDuplicates(ve, "PIVOT", q.PivotBy)
	if done() {
		return ve.ToError()
	}

	WalkFilterColumns(q.Where, func(c AbstractColumn) {
		if !done() && containsAggregation(c) {
			ve.Add(NewInvalidQueryError(ErrCodeAggregationMisplaced,
				"aggregation not allowed in WHERE").WithColumn(c.ID()))
		}
	})
	if done() {
		return ve.ToError()
	}
	checkNoAggregationInList(ve, "GROUP BY", q.GroupBy)
	if done() {
		return ve.ToError()
	}
	checkNoAggregationInList(ve, "PIVOT", q.PivotBy)
	if done() {
		return ve.ToError()
	}

	checkNumericAggregations(ve, source, q.Select)
	if done() {
		return ve.ToError()
	}

	groupable := groupIDs
	hasAggregation := false
	for _, c := range q.Select {
		if containsAggregation(c) {
			hasAggregation = true
			break
		}
	}
	if hasAggregation {
		for _, c := range q.Select {
			if containsAggregation(c) {
				continue
			}
			if !allLeavesGroupable(c, groupable) {
				ve.Add(NewInvalidQueryError(ErrCodeUngroupedColumn,
					"selected column is neither aggregated nor part of GROUP BY").WithColumn(c.ID()))
				return ve.ToError()
			}
		}
	}

	for _, sc := range q.OrderBy {
		if containsAggregation(sc.Column) && !selectionContains(q.Select, sc.Column) {
			ve.Add(NewInvalidQueryError(ErrCodeInvalidSort,
				"sort by an aggregated column requires that aggregation to be selected").WithColumn(sc.Column.ID()))
			return ve.ToError()
		}
		if len(q.PivotBy) > 0 && containsAggregation(sc.Column) {
			ve.Add(NewInvalidQueryError(ErrCodeInvalidSort,
				"pivoting disallows sorting by an aggregation column").WithColumn(sc.Column.ID()))
			return ve.ToError()
		}
	}

	if len(q.Select) > 0 {
		for _, l := range q.Labels {
			if !selectionContainsID(q.Select, l.ColumnID) {
				ve.Add(NewInvalidQueryError(ErrCodeInvalidLabel,
					"label references a column not in the selection").WithColumn(l.ColumnID))
				return ve.ToError()
			}
		}
		for _, f := range q.Formats {
			if !selectionContainsID(q.Select, f.ColumnID) {
				ve.Add(NewInvalidQueryError(ErrCodeInvalidFormat,
					"format references a column not in the selection").WithColumn(f.ColumnID))
				return ve.ToError()
			}
		}
	}

	for _, c := range q.Select {
		for _, sc := range c.Columns() {
			if _, ok := source.ColumnByID(sc.ColumnID); !ok {
				ve.Add(NewInvalidQueryError(ErrCodeUnknownColumn, "unknown column").WithColumn(sc.ColumnID))
				return ve.ToError()
			}
		}
	}

	if q.Skip < 0 {
		ve.Add(NewInvalidQueryError(ErrCodeInvalidPagination, "row_skipping must be >= 0"))
		return ve.ToError()
	}
	if q.Limit < -1 {
		ve.Add(NewInvalidQueryError(ErrCodeInvalidPagination, "row_limit must be >= -1"))
		return ve.ToError()
	}
	if q.Offset < 0 {
		ve.Add(NewInvalidQueryError(ErrCodeInvalidPagination, "row_offset must be >= 0"))
		return ve.ToError()
	}

	return ve.ToError()
}

func columnIDSet(cols []AbstractColumn) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		if sc, ok := c.(*SimpleColumn); ok {
			set[sc.ColumnID] = true
		}
	}
	return set
}

// checkNoDuplicates stops at the first duplicate found, per §4.5's
// first-offence contract.
func checkNoDuplicates(ve *ValidationErrors, clause string, cols []AbstractColumn) {
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if ve.HasErrors() {
			return
		}
		id := c.ID()
		if seen[id] {
			ve.Add(NewInvalidQueryError(ErrCodeDuplicateColumn, "duplicate column in "+clause).WithColumn(id))
			return
		}
		seen[id] = true
	}
}

func checkNoAggregationInList(ve *ValidationErrors, clause string, cols []AbstractColumn) {
	for _, c := range cols {
		if ve.HasErrors() {
			return
		}
		if containsAggregation(c) {
			ve.Add(NewInvalidQueryError(ErrCodeAggregationMisplaced,
				"aggregation not allowed in "+clause).WithColumn(c.ID()))
			return
		}
	}
}

func checkNumericAggregations(ve *ValidationErrors, source *DataTable, cols []AbstractColumn) {
	for _, c := range cols {
		if ve.HasErrors() {
			return
		}
		walkAggregations(c, func(a *AggregationColumn) {
			if ve.HasErrors() || (a.Aggregation != AggSum && a.Aggregation != AggAvg) {
				return
			}
			t, err := a.Column.ValueType(source)
			if err != nil {
				return // reported separately as unknown column
			}
			if t != TypeNumber {
				ve.Add(NewInvalidQueryError(ErrCodeTypeMismatch,
					string(a.Aggregation)+" requires a numeric inner column").WithColumn(a.ID()))
			}
		})
	}
}

func containsAggregation(c AbstractColumn) bool {
	found := false
	walkAggregations(c, func(*AggregationColumn) { found = true })
	return found
}

func walkAggregations(c AbstractColumn, visit func(*AggregationColumn)) {
	switch cc := c.(type) {
	case *AggregationColumn:
		visit(cc)
	case *ScalarFunctionColumn:
		for _, a := range cc.Args {
			walkAggregations(a, visit)
		}
	}
}

// allLeavesGroupable reports whether every SimpleColumn leaf of c is in the
// group set — required for non-aggregated columns selected alongside
// aggregations (§3).
func allLeavesGroupable(c AbstractColumn, groupable map[string]bool) bool {
	for _, sc := range c.Columns() {
		if !groupable[sc.ColumnID] {
			return false
		}
	}
	return true
}

func selectionContains(cols []AbstractColumn, target AbstractColumn) bool {
	return selectionContainsID(cols, target.ID())
}

func selectionContainsID(cols []AbstractColumn, id string) bool {
	for _, c := range cols {
		if c.ID() == id {
			return true
		}
	}
	return false
}

