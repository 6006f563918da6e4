package vizql

import (
	"fmt"
	"strconv"
	"strings"
)

// ToQueryString renders q using the canonical grammar from §6: ordered
// clauses SELECT/WHERE/GROUP BY/PIVOT/ORDER BY/SKIPPING/LIMIT/OFFSET/
// LABEL/FORMAT/OPTIONS. It is the engine-side half of the round-trip
// property (§8 property 5); the querylang package provides the other half.
func (q *Query) ToQueryString() (string, error) {
	var parts []string

	var literals []string
	for _, l := range q.Labels {
		literals = append(literals, l.Label)
	}
	for _, f := range q.Formats {
		literals = append(literals, f.Pattern)
	}
	for _, o := range q.Options {
		literals = append(literals, o.Value)
	}
	for _, s := range literals {
		if strings.Contains(s, "'") && strings.Contains(s, "\"") {
			return "", NewInvalidQueryError(ErrCodeInvalidFormat, "string literal contains both quote styles and is unrepresentable")
		}
	}

	if len(q.Select) > 0 {
		ids := make([]string, len(q.Select))
		for i, c := range q.Select {
			s, err := columnToQueryString(c)
			if err != nil {
				return "", err
			}
			ids[i] = s
		}
		parts = append(parts, "SELECT "+strings.Join(ids, ", "))
	}

	if q.Where != nil {
		s, err := filterToQueryString(q.Where)
		if err != nil {
			return "", err
		}
		parts = append(parts, "WHERE "+s)
	}

	if len(q.GroupBy) > 0 {
		parts = append(parts, "GROUP BY "+joinColumns(q.GroupBy))
	}
	if len(q.PivotBy) > 0 {
		parts = append(parts, "PIVOT "+joinColumns(q.PivotBy))
	}
	if len(q.OrderBy) > 0 {
		items := make([]string, len(q.OrderBy))
		for i, sc := range q.OrderBy {
			id, err := columnToQueryString(sc.Column)
			if err != nil {
				return "", err
			}
			items[i] = id + " " + string(sc.Order)
		}
		parts = append(parts, "ORDER BY "+strings.Join(items, ", "))
	}
	if q.Skip > 0 {
		parts = append(parts, "SKIPPING "+strconv.Itoa(q.Skip))
	}
	if q.Limit != -1 {
		parts = append(parts, "LIMIT "+strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		parts = append(parts, "OFFSET "+strconv.Itoa(q.Offset))
	}
	if len(q.Labels) > 0 {
		items := make([]string, len(q.Labels))
		for i, l := range q.Labels {
			items[i] = quoteIdentifier(l.ColumnID) + " " + quoteStringLiteral(l.Label)
		}
		parts = append(parts, "LABEL "+strings.Join(items, ", "))
	}
	if len(q.Formats) > 0 {
		items := make([]string, len(q.Formats))
		for i, f := range q.Formats {
			items[i] = quoteIdentifier(f.ColumnID) + " " + quoteStringLiteral(f.Pattern)
		}
		parts = append(parts, "FORMAT "+strings.Join(items, ", "))
	}
	if len(q.Options) > 0 {
		items := make([]string, len(q.Options))
		for i, o := range q.Options {
			items[i] = quoteIdentifier(o.Key) + " " + quoteStringLiteral(o.Value)
		}
		parts = append(parts, "OPTIONS "+strings.Join(items, ", "))
	}

	return strings.Join(parts, " "), nil
}

func joinColumns(cols []AbstractColumn) string {
	ids := make([]string, len(cols))
	for i, c := range cols {
		s, _ := columnToQueryString(c)
		ids[i] = s
	}
	return strings.Join(ids, ", ")
}

func columnToQueryString(c AbstractColumn) (string, error) {
	switch cc := c.(type) {
	case *SimpleColumn:
		return quoteIdentifier(cc.ColumnID), nil
	case *AggregationColumn:
		inner, err := columnToQueryString(cc.Column)
		if err != nil {
			return "", err
		}
		return strings.ToUpper(string(cc.Aggregation)) + "(" + inner + ")", nil
	case *ScalarFunctionColumn:
		args := make([]string, len(cc.Args))
		for i, a := range cc.Args {
			s, err := columnToQueryString(a)
			if err != nil {
				return "", err
			}
			args[i] = s
		}
		// Arithmetic is written infix, the form the querylang parser reads.
		infix := map[ScalarFunctionName]string{FnAdd: "+", FnSubtract: "-", FnMultiply: "*", FnDivide: "/"}
		if op, ok := infix[cc.Function]; ok && len(args) == 2 {
			return "(" + args[0] + " " + op + " " + args[1] + ")", nil
		}
		return string(cc.Function) + "(" + strings.Join(args, ", ") + ")", nil
	}
	return "", NewInternalError("unknown AbstractColumn implementation", nil)
}

func filterToQueryString(f QueryFilter) (string, error) {
	switch ff := f.(type) {
	case *ColumnValueFilter:
		col, err := columnToQueryString(ff.Column)
		if err != nil {
			return "", err
		}
		val, err := valueToQueryLiteral(ff.Value)
		if err != nil {
			return "", err
		}
		if ff.Reversed {
			return fmt.Sprintf("%s %s %s", val, opToQueryString(ff.Op), col), nil
		}
		return fmt.Sprintf("%s %s %s", col, opToQueryString(ff.Op), val), nil
	case *ColumnColumnFilter:
		left, err := columnToQueryString(ff.Left)
		if err != nil {
			return "", err
		}
		right, err := columnToQueryString(ff.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", left, opToQueryString(ff.Op), right), nil
	case *ColumnIsNullFilter:
		col, err := columnToQueryString(ff.Column)
		if err != nil {
			return "", err
		}
		if ff.Negate {
			return col + " IS NOT NULL", nil
		}
		return col + " IS NULL", nil
	case *NegationFilter:
		inner, err := filterToQueryString(ff.Inner)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case *CompoundFilter:
		if len(ff.Children) == 0 {
			return "", NewEngineError(ErrorTypeInternal, ErrCodeInternalError, "empty compound filter")
		}
		items := make([]string, len(ff.Children))
		for i, c := range ff.Children {
			s, err := filterToQueryString(c)
			if err != nil {
				return "", err
			}
			items[i] = s
		}
		return "(" + strings.Join(items, " "+string(ff.Logic)+" ") + ")", nil
	}
	return "", NewInternalError("unknown QueryFilter implementation", nil)
}

func opToQueryString(op ComparisonOp) string {
	switch op {
	case OpEQ:
		return "="
	case OpNE:
		return "!="
	case OpLT:
		return "<"
	case OpGT:
		return ">"
	case OpLE:
		return "<="
	case OpGE:
		return ">="
	case OpContains:
		return "CONTAINS"
	case OpStartsWith:
		return "STARTS WITH"
	case OpEndsWith:
		return "ENDS WITH"
	case OpMatches:
		return "MATCHES"
	case OpLike:
		return "LIKE"
	}
	return string(op)
}

// quoteIdentifier backtick-quotes ids that collide with a reserved word or
// contain whitespace (§6).
func quoteIdentifier(id string) string {
	if id == "" || strings.ContainsAny(id, " \t`") || isReservedWord(id) {
		return "`" + strings.ReplaceAll(id, "`", "``") + "`"
	}
	return id
}

var reservedWords = map[string]bool{
	"SELECT": true, "WHERE": true, "GROUP": true, "BY": true, "PIVOT": true,
	"ORDER": true, "SKIPPING": true, "LIMIT": true, "OFFSET": true,
	"LABEL": true, "FORMAT": true, "OPTIONS": true, "AND": true, "OR": true,
	"NOT": true, "ASC": true, "DESC": true, "IS": true, "NULL": true,
	"CONTAINS": true, "STARTS": true, "WITH": true, "ENDS": true,
	"MATCHES": true, "LIKE": true, "DATE": true, "DATETIME": true,
	"TIMESTAMP": true, "TIMEOFDAY": true, "TRUE": true, "FALSE": true,
}

func isReservedWord(id string) bool {
	return reservedWords[strings.ToUpper(id)]
}

// quoteStringLiteral picks single or double quotes per §6 ("a string
// containing both is unrepresentable and causes a to-string error" — the
// caller of ToQueryString must check for this via the returned error).
func quoteStringLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	return "\"" + s + "\""
}

func valueToQueryLiteral(v Value) (string, error) {
	if v.IsNull() {
		return "NULL", nil
	}
	switch v.Type() {
	case TypeBoolean:
		b, _ := v.Bool()
		return strconv.FormatBool(b), nil
	case TypeNumber:
		n, _ := v.Number()
		return strconv.FormatFloat(n, 'g', -1, 64), nil
	case TypeText:
		s, _ := v.Text()
		if strings.Contains(s, "'") && strings.Contains(s, "\"") {
			return "", NewInvalidQueryError(ErrCodeInvalidFormat,
				"string literal contains both quote styles and is unrepresentable")
		}
		return quoteStringLiteral(s), nil
	case TypeDate:
		return "DATE '" + v.String() + "'", nil
	case TypeDateTime:
		return "DATETIME '" + v.String() + "'", nil
	case TypeTimeOfDay:
		return "TIMEOFDAY '" + v.String() + "'", nil
	}
	return "", NewInternalError("unknown value type", nil)
}
