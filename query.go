package vizql

// SortOrder enumerates ascending/descending (§4.9).
type SortOrder string

const (
	SortAscending  SortOrder = "ASC"
	SortDescending SortOrder = "DESC"
)

// SortColumn pairs a column expression with its sort direction.
type SortColumn struct {
	Column AbstractColumn
	Order  SortOrder
}

// ColumnLabel overrides the display label for a column expression in the
// output table (§4.11).
type ColumnLabel struct {
	ColumnID string
	Label    string
}

// ColumnFormat overrides the format pattern for a column expression (§4.11).
type ColumnFormat struct {
	ColumnID string
	Pattern  string
}

// QueryOption is one entry of the opaque key/value pairs carried by the
// OPTIONS clause (§3's QueryOptions, §6 grammar). The engine never
// interprets these itself — they are passed through untouched so a caller
// (or a data source under the splitter, §4.12) can consult them — but they
// must still round-trip through to_query_string/Parse per §8 property 5.
type QueryOption struct {
	Key   string
	Value string
}

// Query is the full query tree described in §3: a list of selected
// columns, an optional filter, group-by/pivot column lists, aggregated
// columns, a sort order, and skip/pagination parameters, plus the label
// and format overrides applied in the final stage and the opaque OPTIONS
// key/value pairs (§3's QueryOptions).
type Query struct {
	Select  []AbstractColumn
	Where   QueryFilter
	GroupBy []AbstractColumn
	PivotBy []AbstractColumn
	OrderBy []SortColumn
	Skip   int // row_skipping >= 0; k>1 retains rows at indices 0, k, 2k, ...
	Limit  int // row_limit >= -1; -1 means unlimited
	Offset int // row_offset >= 0; applied together with Limit after Skip (§4.10)

	Labels  []ColumnLabel
	Formats []ColumnFormat
	Options []QueryOption
}

// NewQuery returns an empty, valid Query (select-all, no filter, no
// grouping) — the identity query.
func NewQuery() *Query {
	return &Query{Limit: -1}
}

// HasGrouping reports whether the query performs grouping or pivoting,
// which changes validation rules for Select (§4.5, §4.8).
func (q *Query) HasGrouping() bool {
	return len(q.GroupBy) > 0 || len(q.PivotBy) > 0
}

// HasAggregation reports whether the selection or an aggregated sort key
// contains an AggregationColumn. Per §4.8 ("When there is no aggregation in
// the query, grouping/pivoting is skipped entirely"), this — not GroupBy/
// PivotBy alone — is what must gate the grouping pipeline: a grand-total
// query like "SELECT sum(Sales)" with no GROUP BY is valid (validate.go has
// no non-aggregated selected columns to reject) and still needs the
// aggregation tree, which already materializes a single root-only bucket
// when its key count is zero (internal/aggregate.Tree).
func (q *Query) HasAggregation() bool {
	for _, c := range q.Select {
		if containsAggregation(c) {
			return true
		}
	}
	for _, sc := range q.OrderBy {
		if containsAggregation(sc.Column) {
			return true
		}
	}
	return false
}

// Clone returns a shallow copy of the query with independent slices, so the
// splitter (§4.12) can build a pushdown/completion pair without either one
// aliasing the other's slice backing arrays.
func (q *Query) Clone() *Query {
	clone := *q
	clone.Select = append([]AbstractColumn{}, q.Select...)
	clone.GroupBy = append([]AbstractColumn{}, q.GroupBy...)
	clone.PivotBy = append([]AbstractColumn{}, q.PivotBy...)
	clone.OrderBy = append([]SortColumn{}, q.OrderBy...)
	clone.Labels = append([]ColumnLabel{}, q.Labels...)
	clone.Formats = append([]ColumnFormat{}, q.Formats...)
	clone.Options = append([]QueryOption{}, q.Options...)
	return &clone
}
