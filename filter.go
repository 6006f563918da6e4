package vizql

import (
	"regexp"
	"strings"
)

// ComparisonOp enumerates the relational/string operators a
// ColumnValueFilter or ColumnColumnFilter can apply (§4.4).
type ComparisonOp string

const (
	OpEQ         ComparisonOp = "EQ"
	OpNE         ComparisonOp = "NE"
	OpLT         ComparisonOp = "LT"
	OpGT         ComparisonOp = "GT"
	OpLE         ComparisonOp = "LE"
	OpGE         ComparisonOp = "GE"
	OpContains   ComparisonOp = "CONTAINS"
	OpStartsWith ComparisonOp = "STARTS_WITH"
	OpEndsWith   ComparisonOp = "ENDS_WITH"
	OpMatches    ComparisonOp = "MATCHES"
	OpLike       ComparisonOp = "LIKE"
)

func (o ComparisonOp) isStringOnly() bool {
	switch o {
	case OpContains, OpStartsWith, OpEndsWith, OpMatches, OpLike:
		return true
	}
	return false
}

// RegexEngine abstracts the regular-expression flavor used by MATCHES and
// the LIKE-to-regexp translation, so a DataSource with its own regex
// dialect (e.g. a SQL engine's own LIKE) can be substituted. DefaultRegexEngine
// below uses Go's RE2 engine (package regexp) — see DESIGN.md for why this
// resolves the spec's open regex-flavor question.
type RegexEngine interface {
	MatchString(pattern, s string) (bool, error)
}

type reEngine struct{}

func (reEngine) MatchString(pattern, s string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, NewEngineError(ErrorTypeValidation, ErrCodeUnsupportedRegexp, err.Error())
	}
	return re.MatchString(s), nil
}

// DefaultRegexEngine is the RE2-backed RegexEngine used unless a filter
// evaluation context supplies another.
var DefaultRegexEngine RegexEngine = reEngine{}

// anchorWholeString wraps a MATCHES pattern so RE2's ordinarily-unanchored
// MatchString requires a whole-string match, per §6's regex-engine contract
// ("test whole-string match") — the same anchoring likeToRegexp applies to
// its own translated pattern below, just expressed as a wrapper instead of
// being built in directly, since the MATCHES pattern is user-supplied.
func anchorWholeString(pattern string) string {
	return "^(?:" + pattern + ")$"
}

// likeToRegexp translates a SQL-style LIKE pattern (% and _ wildcards, no
// escape character per §4.4) into an RE2 pattern anchored at both ends.
func likeToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return b.String()
}

// QueryFilter is the sum type from §3/§4.4, modeled directly on the
// teacher's Condition interface (types.go): IsLeaf()/Evaluate() rather than
// Condition's IsLeaf()/ToSqlClauses(), since this engine evaluates filters
// against in-memory rows instead of compiling them to SQL.
type QueryFilter interface {
	IsLeaf() bool
	Evaluate(table *DataTable, row int, re RegexEngine) (bool, error)
	Columns() []*SimpleColumn
	isQueryFilter()
}

// ColumnValueFilter compares a column expression against a literal Value.
// Reversed evaluates the comparison as (Value Op Column) instead of
// (Column Op Value) — needed for non-symmetric operators (LT/GT/.../
// STARTS_WITH/CONTAINS) when the query writes the literal on the left,
// e.g. `5 > col` or `'foo' STARTS WITH col` (§3, §6 grammar).
type ColumnValueFilter struct {
	Column   AbstractColumn
	Op       ComparisonOp
	Value    Value
	Reversed bool
}

func (f *ColumnValueFilter) IsLeaf() bool { return true }

func (f *ColumnValueFilter) Columns() []*SimpleColumn { return f.Column.Columns() }

func (f *ColumnValueFilter) Evaluate(table *DataTable, row int, re RegexEngine) (bool, error) {
	left, err := evalColumnAsValue(f.Column, table, row)
	if err != nil {
		return false, err
	}
	if f.Reversed {
		return evaluateComparison(f.Value, f.Op, left, re)
	}
	return evaluateComparison(left, f.Op, f.Value, re)
}

func (f *ColumnValueFilter) isQueryFilter() {}

// ColumnColumnFilter compares two column expressions row-wise.
type ColumnColumnFilter struct {
	Left  AbstractColumn
	Op    ComparisonOp
	Right AbstractColumn
}

func (f *ColumnColumnFilter) IsLeaf() bool { return true }

func (f *ColumnColumnFilter) Columns() []*SimpleColumn {
	return append(append([]*SimpleColumn{}, f.Left.Columns()...), f.Right.Columns()...)
}

func (f *ColumnColumnFilter) Evaluate(table *DataTable, row int, re RegexEngine) (bool, error) {
	left, err := evalColumnAsValue(f.Left, table, row)
	if err != nil {
		return false, err
	}
	right, err := evalColumnAsValue(f.Right, table, row)
	if err != nil {
		return false, err
	}
	return evaluateComparison(left, f.Op, right, re)
}

func (f *ColumnColumnFilter) isQueryFilter() {}

// ColumnIsNullFilter tests nullity of a column expression.
type ColumnIsNullFilter struct {
	Column AbstractColumn
	Negate bool // IS NOT NULL when true
}

func (f *ColumnIsNullFilter) IsLeaf() bool { return true }

func (f *ColumnIsNullFilter) Columns() []*SimpleColumn { return f.Column.Columns() }

func (f *ColumnIsNullFilter) Evaluate(table *DataTable, row int, re RegexEngine) (bool, error) {
	v, err := evalColumnAsValue(f.Column, table, row)
	if err != nil {
		return false, err
	}
	if f.Negate {
		return !v.IsNull(), nil
	}
	return v.IsNull(), nil
}

func (f *ColumnIsNullFilter) isQueryFilter() {}

// NegationFilter wraps another filter and inverts its result.
type NegationFilter struct {
	Inner QueryFilter
}

func (f *NegationFilter) IsLeaf() bool              { return false }
func (f *NegationFilter) Columns() []*SimpleColumn  { return f.Inner.Columns() }
func (f *NegationFilter) Evaluate(table *DataTable, row int, re RegexEngine) (bool, error) {
	v, err := f.Inner.Evaluate(table, row, re)
	if err != nil {
		return false, err
	}
	return !v, nil
}
func (f *NegationFilter) isQueryFilter() {}

// LogicOp enumerates the boolean combinator of a CompoundFilter.
type LogicOp string

const (
	LogicAnd LogicOp = "AND"
	LogicOr  LogicOp = "OR"
)

// CompoundFilter combines child filters with AND/OR, mirroring the
// teacher's CompositeCondition (types.go/condition.go) but evaluated
// in-memory instead of compiled to an INTERSECT/UNION SQL subquery.
type CompoundFilter struct {
	Logic    LogicOp
	Children []QueryFilter
}

func (f *CompoundFilter) IsLeaf() bool { return false }

func (f *CompoundFilter) Columns() []*SimpleColumn {
	var out []*SimpleColumn
	for _, c := range f.Children {
		out = append(out, c.Columns()...)
	}
	return out
}

func (f *CompoundFilter) Evaluate(table *DataTable, row int, re RegexEngine) (bool, error) {
	if len(f.Children) == 0 {
		// §4.4: a CompoundFilter with no sub-filters is a programmer error,
		// not a vacuous AND/OR — the engine must refuse rather than pick a
		// default truth value.
		return false, NewEngineError(ErrorTypeInternal, ErrCodeInternalError, "empty compound filter")
	}
	for _, c := range f.Children {
		ok, err := c.Evaluate(table, row, re)
		if err != nil {
			return false, err
		}
		if f.Logic == LogicAnd && !ok {
			return false, nil
		}
		if f.Logic == LogicOr && ok {
			return true, nil
		}
	}
	return f.Logic == LogicAnd, nil
}

func (f *CompoundFilter) isQueryFilter() {}

// WalkFilterColumns visits every AbstractColumn operand referenced directly
// by f (not reduced to SimpleColumn leaves), used by validation to check
// that no aggregation appears inside a filter (§3).
func WalkFilterColumns(f QueryFilter, visit func(AbstractColumn)) {
	if f == nil {
		return
	}
	switch ff := f.(type) {
	case *ColumnValueFilter:
		visit(ff.Column)
	case *ColumnColumnFilter:
		visit(ff.Left)
		visit(ff.Right)
	case *ColumnIsNullFilter:
		visit(ff.Column)
	case *NegationFilter:
		WalkFilterColumns(ff.Inner, visit)
	case *CompoundFilter:
		for _, c := range ff.Children {
			WalkFilterColumns(c, visit)
		}
	}
}

func evalColumnAsValue(col AbstractColumn, table *DataTable, row int) (Value, error) {
	return Eval(col, table, row)
}

// evaluateComparison implements §3/§4.4: ordering operators (EQ..GE) return
// non-match, not an error, when the operand types differ; string operators
// coerce both sides via Value.String() rather than requiring TypeText;
// MATCHES with an uncompilable pattern is non-match, not an error.
func evaluateComparison(left Value, op ComparisonOp, right Value, re RegexEngine) (bool, error) {
	if op.isStringOnly() {
		if left.IsNull() || right.IsNull() {
			return false, nil
		}
		l, r := left.String(), right.String()
		switch op {
		case OpContains:
			return strings.Contains(l, r), nil
		case OpStartsWith:
			return strings.HasPrefix(l, r), nil
		case OpEndsWith:
			return strings.HasSuffix(l, r), nil
		case OpMatches:
			ok, err := re.MatchString(anchorWholeString(r), l)
			if err != nil {
				return false, nil
			}
			return ok, nil
		case OpLike:
			ok, err := re.MatchString(likeToRegexp(r), l)
			if err != nil {
				return false, nil
			}
			return ok, nil
		}
	}
	if left.IsNull() || right.IsNull() {
		// Three-valued logic: any comparison against null is false for
		// the purposes of row inclusion (ColumnIsNullFilter is the
		// dedicated way to test nullity).
		return false, nil
	}
	cmp, err := left.Compare(right)
	if err != nil {
		// Equal-type requirement failed (§3): ordering ops report
		// non-match rather than propagating an error.
		return false, nil
	}
	switch op {
	case OpEQ:
		return cmp == 0, nil
	case OpNE:
		return cmp != 0, nil
	case OpLT:
		return cmp < 0, nil
	case OpGT:
		return cmp > 0, nil
	case OpLE:
		return cmp <= 0, nil
	case OpGE:
		return cmp >= 0, nil
	}
	return false, NewInvalidQueryError(ErrCodeInvalidFilter, "unknown comparison operator: "+string(op))
}
