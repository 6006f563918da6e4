package datasource

import (
	"fmt"
	"strings"
	"time"

	"github.com/lychee-technology/vizql"
)

// sqlDialect customizes the small set of SQL spellings that differ between
// Postgres and DuckDB pushdown (placeholder style, quoting, regex
// operator). Both data sources in this package build the same clause
// shapes and differ only here, mirroring the teacher's dual-path
// sql_generator.go/duckdb_sql_generator.go split collapsed into one
// parameterized builder instead of two near-duplicate files.
type sqlDialect struct {
	placeholder func(n int) string
	regexOp     string // binary operator used for MATCHES
}

var postgresDialect = sqlDialect{
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	regexOp:     "~",
}

var duckdbDialect = sqlDialect{
	placeholder: func(int) string { return "?" },
	regexOp:     "~",
}

// builtQuery is the SQL text plus positional arguments and the output
// column descriptions the query is expected to produce, in select order.
type builtQuery struct {
	SQL     string
	Args    []any
	Columns []vizql.ColumnDescription
}

// buildSelectSQL renders pushdown into a SELECT statement against table,
// given the source's full column schema (used to resolve SimpleColumn
// types inside aggregations and filters).
func buildSelectSQL(dialect sqlDialect, table string, schema []vizql.ColumnDescription, pushdown *vizql.Query) (*builtQuery, error) {
	b := &sqlBuilder{dialect: dialect, schema: columnTypeIndex(schema)}

	selectList := pushdown.Select
	if len(selectList) == 0 {
		for _, c := range schema {
			selectList = append(selectList, &vizql.SimpleColumn{ColumnID: c.ID})
		}
	}

	var selectParts []string
	var outCols []vizql.ColumnDescription
	for _, c := range selectList {
		expr, err := b.columnExpr(c)
		if err != nil {
			return nil, err
		}
		typ, err := c.ValueType(&vizql.DataTable{Columns: schema})
		if err != nil {
			return nil, err
		}
		id := c.ID()
		selectParts = append(selectParts, fmt.Sprintf("%s AS %s", expr, quoteIdent(id)))
		outCols = append(outCols, vizql.ColumnDescription{ID: id, Type: typ})
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selectParts, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(table))

	if pushdown.Where != nil {
		whereExpr, err := b.filterExpr(pushdown.Where)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(whereExpr)
	}

	if len(pushdown.GroupBy) > 0 {
		var parts []string
		for _, c := range pushdown.GroupBy {
			expr, err := b.columnExpr(c)
			if err != nil {
				return nil, err
			}
			parts = append(parts, expr)
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if len(pushdown.OrderBy) > 0 {
		var parts []string
		for _, sc := range pushdown.OrderBy {
			expr, err := b.columnExpr(sc.Column)
			if err != nil {
				return nil, err
			}
			dir := "ASC"
			if sc.Order == vizql.SortDescending {
				dir = "DESC"
			}
			parts = append(parts, expr+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if pushdown.Limit >= 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", pushdown.Limit))
	}
	if pushdown.Offset > 0 {
		sb.WriteString(fmt.Sprintf(" OFFSET %d", pushdown.Offset))
	}

	return &builtQuery{SQL: sb.String(), Args: b.args, Columns: outCols}, nil
}

func columnTypeIndex(schema []vizql.ColumnDescription) map[string]vizql.ValueType {
	idx := make(map[string]vizql.ValueType, len(schema))
	for _, c := range schema {
		idx[c.ID] = c.Type
	}
	return idx
}

type sqlBuilder struct {
	dialect sqlDialect
	schema  map[string]vizql.ValueType
	args    []any
}

func (b *sqlBuilder) nextPlaceholder(v any) string {
	b.args = append(b.args, v)
	return b.dialect.placeholder(len(b.args))
}

func (b *sqlBuilder) columnExpr(c vizql.AbstractColumn) (string, error) {
	switch col := c.(type) {
	case *vizql.SimpleColumn:
		return quoteIdent(col.ColumnID), nil
	case *vizql.AggregationColumn:
		inner, err := b.columnExpr(col.Column)
		if err != nil {
			return "", err
		}
		switch col.Aggregation {
		case vizql.AggCount:
			return "COUNT(" + inner + ")", nil
		default:
			return strings.ToUpper(string(col.Aggregation)) + "(" + inner + ")", nil
		}
	case *vizql.ScalarFunctionColumn:
		return "", vizql.NewNotSupportedError("scalar function pushdown: " + string(col.Function))
	default:
		return "", vizql.NewInternalError("unrecognized column expression in pushdown", nil)
	}
}

func (b *sqlBuilder) filterExpr(f vizql.QueryFilter) (string, error) {
	switch flt := f.(type) {
	case *vizql.ColumnValueFilter:
		col, err := b.columnExpr(flt.Column)
		if err != nil {
			return "", err
		}
		if flt.Reversed {
			// Reversed means the filter's own semantics are "Value Op
			// Column" (e.g. source text "5 > col"); rendering keeps the
			// operator as-is and only swaps operand order to match.
			sqlOp, err := sqlComparisonOp(flt.Op)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s %s %s", b.nextPlaceholder(literalArg(flt.Value)), sqlOp, col), nil
		}
		return b.comparisonExpr(col, flt.Op, flt.Value)
	case *vizql.ColumnColumnFilter:
		left, err := b.columnExpr(flt.Left)
		if err != nil {
			return "", err
		}
		right, err := b.columnExpr(flt.Right)
		if err != nil {
			return "", err
		}
		op, err := sqlComparisonOp(flt.Op)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", left, op, right), nil
	case *vizql.ColumnIsNullFilter:
		expr, err := b.columnExpr(flt.Column)
		if err != nil {
			return "", err
		}
		if flt.Negate {
			return expr + " IS NOT NULL", nil
		}
		return expr + " IS NULL", nil
	case *vizql.NegationFilter:
		inner, err := b.filterExpr(flt.Inner)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case *vizql.CompoundFilter:
		if len(flt.Children) == 0 {
			return "", vizql.NewInternalError("empty compound filter", nil)
		}
		joiner := " AND "
		if flt.Logic == vizql.LogicOr {
			joiner = " OR "
		}
		var parts []string
		for _, child := range flt.Children {
			expr, err := b.filterExpr(child)
			if err != nil {
				return "", err
			}
			parts = append(parts, "("+expr+")")
		}
		return strings.Join(parts, joiner), nil
	default:
		return "", vizql.NewInternalError("unrecognized filter in pushdown", nil)
	}
}

func (b *sqlBuilder) comparisonExpr(left string, op vizql.ComparisonOp, value vizql.Value) (string, error) {
	if value.IsNull() {
		switch op {
		case vizql.OpEQ:
			return left + " IS NULL", nil
		case vizql.OpNE:
			return left + " IS NOT NULL", nil
		}
	}

	switch op {
	case vizql.OpContains:
		return fmt.Sprintf("%s LIKE %s", left, b.nextPlaceholder("%"+literalText(value)+"%")), nil
	case vizql.OpStartsWith:
		return fmt.Sprintf("%s LIKE %s", left, b.nextPlaceholder(literalText(value)+"%")), nil
	case vizql.OpEndsWith:
		return fmt.Sprintf("%s LIKE %s", left, b.nextPlaceholder("%"+literalText(value))), nil
	case vizql.OpMatches:
		// Anchored so the pushed-down MATCHES is a whole-string match, like
		// the engine's own evaluation in filter.go.
		return fmt.Sprintf("%s %s %s", left, b.dialect.regexOp, b.nextPlaceholder("^(?:"+literalText(value)+")$")), nil
	case vizql.OpLike:
		return fmt.Sprintf("%s LIKE %s", left, b.nextPlaceholder(literalText(value))), nil
	}

	sqlOp, err := sqlComparisonOp(op)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", left, sqlOp, b.nextPlaceholder(literalArg(value))), nil
}

func sqlComparisonOp(op vizql.ComparisonOp) (string, error) {
	switch op {
	case vizql.OpEQ:
		return "=", nil
	case vizql.OpNE:
		return "!=", nil
	case vizql.OpLT:
		return "<", nil
	case vizql.OpGT:
		return ">", nil
	case vizql.OpLE:
		return "<=", nil
	case vizql.OpGE:
		return ">=", nil
	default:
		return "", vizql.NewNotSupportedError("comparison operator pushdown: " + string(op))
	}
}

func literalText(v vizql.Value) string {
	s, _ := v.Text()
	return s
}

func literalArg(v vizql.Value) any {
	switch v.Type() {
	case vizql.TypeBoolean:
		b, _ := v.Bool()
		return b
	case vizql.TypeNumber:
		n, _ := v.Number()
		return n
	case vizql.TypeText:
		s, _ := v.Text()
		return s
	case vizql.TypeDate, vizql.TypeDateTime:
		t, _ := v.Time()
		return t
	case vizql.TypeTimeOfDay:
		h, m, s, ms, _ := v.TimeOfDayParts()
		return time.Date(0, 1, 1, h, m, s, ms*1e6, time.UTC)
	default:
		return nil
	}
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
