// Package splitter implements the query splitter of spec §4.12: given a
// data source's declared Capability, it divides a Query into a pushdown
// query (executed by the data source) and a completion query (executed by
// the engine on the table the data source returns). Grounded stylistically
// on internal/federated_routing.go's RoutingDecision (a decision struct
// carrying a Reason string alongside the routed tiers) — that file's actual
// EAV tier-routing logic does not transfer, only its shape: a plan value
// that explains itself.
package splitter

import (
	"github.com/google/uuid"
	"github.com/lychee-technology/vizql"
	"go.uber.org/zap"
)

// Plan stamps a Split result with a PlanID, letting a log line emitted while
// the pushdown query runs against the data source be correlated with the
// log line emitted later when the engine runs the completion query against
// the returned table — the two executions otherwise share no common field.
// Grounded on federated_routing.go's RoutingDecision: a plan value that
// explains itself, here carrying an id instead of a Reason string.
type Plan struct {
	ID         uuid.UUID
	Pushdown   *vizql.Query
	Completion *vizql.Query
}

// NewPlan calls Split and wraps its result in a Plan, logging the stamped
// PlanID at debug level so it can be grepped out of both the data source's
// and the engine's logs.
func NewPlan(capability vizql.Capability, query *vizql.Query) (*Plan, error) {
	pushdown, completion, err := Split(capability, query)
	if err != nil {
		return nil, err
	}
	plan := &Plan{ID: uuid.New(), Pushdown: pushdown, Completion: completion}
	zap.S().Debugw("splitter: plan", "planID", plan.ID, "capability", string(capability))
	return plan, nil
}

// Split divides query according to capability, returning the pushdown
// query (nil when the data source does nothing) and the completion query
// (never nil: the engine always runs at least the identity query). Callers
// that need a correlation id for logging across the pushdown/completion
// boundary should use NewPlan instead.
func Split(capability vizql.Capability, query *vizql.Query) (pushdown *vizql.Query, completion *vizql.Query, err error) {
	switch capability {
	case vizql.CapabilityAll:
		return splitAll(query)
	case vizql.CapabilityNone:
		return splitNone(query)
	case vizql.CapabilitySelect:
		return splitSelect(query)
	case vizql.CapabilitySortAndPagination:
		return splitSortAndPagination(query)
	case vizql.CapabilitySQL:
		return splitSQL(query)
	default:
		return nil, nil, vizql.NewEngineError(vizql.ErrorTypeSplitter, vizql.ErrCodeUnsplittableQuery,
			"unknown capability").WithDetail("capability", string(capability))
	}
}

func splitAll(query *vizql.Query) (*vizql.Query, *vizql.Query, error) {
	return query.Clone(), vizql.NewQuery(), nil
}

func splitNone(query *vizql.Query) (*vizql.Query, *vizql.Query, error) {
	return nil, query.Clone(), nil
}

// splitSelect pushes only column selection: the data source narrows the
// table to the simple columns Q actually touches anywhere (select, filter,
// group, pivot, sort, label, format), and the engine does everything else
// against that narrowed table.
func splitSelect(query *vizql.Query) (*vizql.Query, *vizql.Query, error) {
	pushdown := vizql.NewQuery()
	pushdown.Select = simpleColumnsReferenced(query)
	return pushdown, query.Clone(), nil
}

// simpleColumnsReferenced collects, in first-occurrence order, every
// SimpleColumn reachable from any clause of query.
func simpleColumnsReferenced(query *vizql.Query) []vizql.AbstractColumn {
	seen := map[string]bool{}
	var out []vizql.AbstractColumn
	add := func(cols []*vizql.SimpleColumn) {
		for _, c := range cols {
			if !seen[c.ColumnID] {
				seen[c.ColumnID] = true
				out = append(out, &vizql.SimpleColumn{ColumnID: c.ColumnID})
			}
		}
	}
	for _, c := range query.Select {
		add(c.Columns())
	}
	if query.Where != nil {
		vizql.WalkFilterColumns(query.Where, func(c vizql.AbstractColumn) {
			add(c.Columns())
		})
	}
	for _, c := range query.GroupBy {
		add(c.Columns())
	}
	for _, c := range query.PivotBy {
		add(c.Columns())
	}
	for _, sc := range query.OrderBy {
		add(sc.Column.Columns())
	}
	for _, l := range query.Labels {
		add([]*vizql.SimpleColumn{{ColumnID: l.ColumnID}})
	}
	for _, f := range query.Formats {
		add([]*vizql.SimpleColumn{{ColumnID: f.ColumnID}})
	}
	return out
}

// hasScalarFunction reports whether any selected, filtered, grouped,
// pivoted or sorted column expression contains a ScalarFunctionColumn.
func hasScalarFunction(query *vizql.Query) bool {
	check := func(c vizql.AbstractColumn) bool { return containsScalarFunction(c) }
	for _, c := range query.Select {
		if check(c) {
			return true
		}
	}
	for _, c := range query.GroupBy {
		if check(c) {
			return true
		}
	}
	for _, c := range query.PivotBy {
		if check(c) {
			return true
		}
	}
	for _, sc := range query.OrderBy {
		if check(sc.Column) {
			return true
		}
	}
	if query.Where != nil {
		found := false
		vizql.WalkFilterColumns(query.Where, func(c vizql.AbstractColumn) {
			if containsScalarFunction(c) {
				found = true
			}
		})
		if found {
			return true
		}
	}
	return false
}

func containsScalarFunction(c vizql.AbstractColumn) bool {
	switch col := c.(type) {
	case *vizql.ScalarFunctionColumn:
		return true
	case *vizql.AggregationColumn:
		return containsScalarFunction(col.Column)
	default:
		return false
	}
}

// splitSortAndPagination implements §4.12's SORT_AND_PAGINATION behavior.
func splitSortAndPagination(query *vizql.Query) (*vizql.Query, *vizql.Query, error) {
	if query.Where != nil || query.HasGrouping() || hasScalarFunction(query) {
		return splitNone(query)
	}

	pushdown := vizql.NewQuery()
	pushdown.OrderBy = append([]vizql.SortColumn{}, query.OrderBy...)

	completion := query.Clone()
	completion.OrderBy = nil

	if query.Skip > 1 {
		// Skipping forces limit/offset to stay in the completion query,
		// since the data source's own row numbering would not line up
		// with the skip stride once rows are dropped afterward.
		pushdown.Limit = -1
		pushdown.Offset = 0
	} else {
		pushdown.Limit = query.Limit
		pushdown.Offset = query.Offset
		completion.Limit = -1
		completion.Offset = 0
	}
	return pushdown, completion, nil
}

// splitSQL implements §4.12's SQL behavior, including the pivot special
// case (unpivot into a tall table at the data source, re-pivot with a
// degenerate MIN aggregation at completion).
func splitSQL(query *vizql.Query) (*vizql.Query, *vizql.Query, error) {
	if hasScalarFunction(query) {
		return splitNone(query)
	}
	if len(query.PivotBy) > 0 && labelsOrFormatsReferenceAggregation(query) {
		return splitNone(query)
	}

	if len(query.PivotBy) == 0 {
		return splitSQLFlat(query)
	}
	return splitSQLPivot(query)
}

func labelsOrFormatsReferenceAggregation(query *vizql.Query) bool {
	aggIDs := map[string]bool{}
	for _, c := range query.Select {
		if agg, ok := c.(*vizql.AggregationColumn); ok {
			aggIDs[agg.ID()] = true
		}
	}
	for _, l := range query.Labels {
		if aggIDs[l.ColumnID] {
			return true
		}
	}
	for _, f := range query.Formats {
		if aggIDs[f.ColumnID] {
			return true
		}
	}
	return false
}

// splitSQLFlat handles the non-pivot SQL case: selection, filter, group-by
// and pagination push down as-is; the data source is expected to emit
// columns under their canonical AbstractColumn ids (e.g. "sum-amount"), so
// the completion query can reselect them by plain SimpleColumn reference.
func splitSQLFlat(query *vizql.Query) (*vizql.Query, *vizql.Query, error) {
	pushdown := vizql.NewQuery()
	pushdown.Select = append([]vizql.AbstractColumn{}, query.Select...)
	pushdown.Where = query.Where
	pushdown.GroupBy = append([]vizql.AbstractColumn{}, query.GroupBy...)
	pushdown.Limit = query.Limit
	pushdown.Offset = query.Offset

	completion := vizql.NewQuery()
	completion.Select = passthroughSelection(query.Select)
	completion.OrderBy = append([]vizql.SortColumn{}, query.OrderBy...)
	completion.Skip = query.Skip
	completion.Labels = append([]vizql.ColumnLabel{}, query.Labels...)
	completion.Formats = append([]vizql.ColumnFormat{}, query.Formats...)
	completion.Options = append([]vizql.QueryOption{}, query.Options...)
	return pushdown, completion, nil
}

// passthroughSelection builds a completion-side select list that refers to
// each original column expression's emitted id as a plain SimpleColumn,
// since the data source has already computed it.
func passthroughSelection(cols []vizql.AbstractColumn) []vizql.AbstractColumn {
	out := make([]vizql.AbstractColumn, len(cols))
	for i, c := range cols {
		out[i] = &vizql.SimpleColumn{ColumnID: c.ID()}
	}
	return out
}

// splitSQLPivot implements the pivot special case: pivot columns are
// promoted to additional group-by AND selection columns in the pushdown
// query (unpivoting into a tall table); the completion query re-groups by
// the original keys, re-pivots, and replaces each original aggregation
// with a degenerate MIN(<aggregation-output-id>) over the already-reduced
// data source output.
func splitSQLPivot(query *vizql.Query) (*vizql.Query, *vizql.Query, error) {
	pushdown := vizql.NewQuery()
	pushdown.Where = query.Where
	pushdown.GroupBy = append(append([]vizql.AbstractColumn{}, query.GroupBy...), query.PivotBy...)
	pushdown.Limit = -1 // unpivoting changes row count; pagination cannot push down here
	pushdown.Offset = 0

	seen := map[string]bool{}
	var pushSelect []vizql.AbstractColumn
	addSelect := func(c vizql.AbstractColumn) {
		if !seen[c.ID()] {
			seen[c.ID()] = true
			pushSelect = append(pushSelect, c)
		}
	}
	for _, c := range query.GroupBy {
		addSelect(c)
	}
	for _, c := range query.PivotBy {
		addSelect(c)
	}
	for _, c := range query.Select {
		addSelect(c)
	}
	pushdown.Select = pushSelect

	completion := vizql.NewQuery()
	completion.GroupBy = append([]vizql.AbstractColumn{}, query.GroupBy...)
	completion.PivotBy = append([]vizql.AbstractColumn{}, query.PivotBy...)
	completion.OrderBy = append([]vizql.SortColumn{}, query.OrderBy...)
	completion.Skip = query.Skip
	completion.Limit = query.Limit
	completion.Offset = query.Offset
	completion.Options = append([]vizql.QueryOption{}, query.Options...)

	labelRewrite := map[string]string{}
	formatRewrite := map[string]string{}
	completion.Select = make([]vizql.AbstractColumn, len(query.Select))
	for i, c := range query.Select {
		if agg, ok := c.(*vizql.AggregationColumn); ok {
			degenerate := &vizql.AggregationColumn{
				Aggregation: vizql.AggMin,
				Column:      &vizql.SimpleColumn{ColumnID: agg.ID()},
			}
			completion.Select[i] = degenerate
			labelRewrite[agg.ID()] = degenerate.ID()
			formatRewrite[agg.ID()] = degenerate.ID()
			continue
		}
		completion.Select[i] = &vizql.SimpleColumn{ColumnID: c.ID()}
	}

	for _, l := range query.Labels {
		id := l.ColumnID
		if rewritten, ok := labelRewrite[id]; ok {
			id = rewritten
		}
		completion.Labels = append(completion.Labels, vizql.ColumnLabel{ColumnID: id, Label: l.Label})
	}
	for _, f := range query.Formats {
		id := f.ColumnID
		if rewritten, ok := formatRewrite[id]; ok {
			id = rewritten
		}
		completion.Formats = append(completion.Formats, vizql.ColumnFormat{ColumnID: id, Pattern: f.Pattern})
	}

	return pushdown, completion, nil
}
