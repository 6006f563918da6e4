package querylang

import (
	"strconv"
	"strings"
	"time"

	"github.com/lychee-technology/vizql"
)

// scalarFnNames maps the uppercased surface spelling of a scalar function
// to its vizql.ScalarFunctionName, grounded on column.go's ScalarFunctionName
// constants.
var scalarFnNames = map[string]vizql.ScalarFunctionName{
	"YEAR": vizql.FnYear, "MONTH": vizql.FnMonth, "DAY": vizql.FnDay,
	"HOUR": vizql.FnHour, "MINUTE": vizql.FnMinute, "SECOND": vizql.FnSecond,
	"QUARTER": vizql.FnQuarter, "DAYOFWEEK": vizql.FnDayOfWeek,
	"DATEDIFF": vizql.FnDateDiff, "UPPER": vizql.FnUpper, "LOWER": vizql.FnLower,
	"TODATE": vizql.FnToDate, "NOW": vizql.FnNow, "TODAY": vizql.FnToday,
}

var aggregationNames = map[string]vizql.AggregationType{
	"MIN": vizql.AggMin, "MAX": vizql.AggMax, "SUM": vizql.AggSum,
	"AVG": vizql.AggAvg, "COUNT": vizql.AggCount,
}

type parser struct {
	tokens []Token
	pos    int
}

// Parse lexes and parses a full canonical query string (§6 grammar) into a
// *vizql.Query. Clauses must appear in the canonical order; any clause may
// be omitted.
func Parse(input string) (*vizql.Query, error) {
	toks, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: toks}
	return p.parseQuery()
}

func (p *parser) peek() Token  { return p.tokens[p.pos] }
func (p *parser) advance() Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) isKeyword(kw string) bool {
	t := p.peek()
	return t.Kind == TokenKeyword && t.Text == kw
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return &ParseError{Message: "expected keyword " + kw, Pos: p.peek().Pos}
	}
	p.advance()
	return nil
}

func (p *parser) parseQuery() (*vizql.Query, error) {
	q := vizql.NewQuery()

	if p.isKeyword("SELECT") {
		p.advance()
		cols, err := p.parseColumnList()
		if err != nil {
			return nil, err
		}
		q.Select = cols
	}

	if p.isKeyword("WHERE") {
		p.advance()
		f, err := p.parseOrExpr()
		if err != nil {
			return nil, err
		}
		q.Where = f
	}

	if p.isKeyword("GROUP") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		cols, err := p.parseColumnList()
		if err != nil {
			return nil, err
		}
		q.GroupBy = cols
	}

	if p.isKeyword("PIVOT") {
		p.advance()
		cols, err := p.parseColumnList()
		if err != nil {
			return nil, err
		}
		q.PivotBy = cols
	}

	if p.isKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		var order []vizql.SortColumn
		for {
			col, err := p.parseAddExpr()
			if err != nil {
				return nil, err
			}
			dir := vizql.SortAscending
			if p.isKeyword("ASC") {
				p.advance()
			} else if p.isKeyword("DESC") {
				p.advance()
				dir = vizql.SortDescending
			}
			order = append(order, vizql.SortColumn{Column: col, Order: dir})
			if p.peek().Kind == TokenComma {
				p.advance()
				continue
			}
			break
		}
		q.OrderBy = order
	}

	if p.isKeyword("SKIPPING") {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		q.Skip = n
	}

	if p.isKeyword("LIMIT") {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		q.Limit = n
	}

	if p.isKeyword("OFFSET") {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		q.Offset = n
	}

	if p.isKeyword("LABEL") {
		p.advance()
		labels, err := p.parseIdentStringPairs()
		if err != nil {
			return nil, err
		}
		for _, kv := range labels {
			q.Labels = append(q.Labels, vizql.ColumnLabel{ColumnID: kv[0], Label: kv[1]})
		}
	}

	if p.isKeyword("FORMAT") {
		p.advance()
		formats, err := p.parseIdentStringPairs()
		if err != nil {
			return nil, err
		}
		for _, kv := range formats {
			q.Formats = append(q.Formats, vizql.ColumnFormat{ColumnID: kv[0], Pattern: kv[1]})
		}
	}

	if p.isKeyword("OPTIONS") {
		p.advance()
		// Options are opaque key/value pairs outside this engine's
		// concern (§3's QueryOptions), but they still round-trip through
		// to_query_string/Parse (§8 property 5), so they are captured
		// rather than discarded.
		opts, err := p.parseIdentStringPairs()
		if err != nil {
			return nil, err
		}
		for _, kv := range opts {
			q.Options = append(q.Options, vizql.QueryOption{Key: kv[0], Value: kv[1]})
		}
	}

	if p.peek().Kind != TokenEOF {
		return nil, &ParseError{Message: "unexpected trailing input", Pos: p.peek().Pos}
	}
	return q, nil
}

func (p *parser) parseIdentStringPairs() ([][2]string, error) {
	var out [][2]string
	for {
		if p.peek().Kind != TokenIdent {
			return nil, &ParseError{Message: "expected column identifier", Pos: p.peek().Pos}
		}
		id := p.advance().Text
		if p.peek().Kind != TokenString {
			return nil, &ParseError{Message: "expected string literal", Pos: p.peek().Pos}
		}
		val := p.advance().Text
		out = append(out, [2]string{id, val})
		if p.peek().Kind == TokenComma {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

func (p *parser) parseIntLiteral() (int, error) {
	neg := false
	if p.peek().Kind == TokenOp && p.peek().Text == "-" {
		neg = true
		p.advance()
	}
	if p.peek().Kind != TokenNumber {
		return 0, &ParseError{Message: "expected integer literal", Pos: p.peek().Pos}
	}
	tok := p.advance()
	n, err := strconv.Atoi(tok.Text)
	if err != nil {
		return 0, &ParseError{Message: "invalid integer literal " + tok.Text, Pos: tok.Pos}
	}
	if neg {
		n = -n
	}
	return n, nil
}

func (p *parser) parseColumnList() ([]vizql.AbstractColumn, error) {
	var out []vizql.AbstractColumn
	for {
		c, err := p.parseAddExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		if p.peek().Kind == TokenComma {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

// parseAddExpr implements the §6 arithmetic grammar: '+'/'-' bind looser
// than '*'/'/' , left-to-right, surfacing as ScalarFunctionColumn(FnAdd/...).
func (p *parser) parseAddExpr() (vizql.AbstractColumn, error) {
	left, err := p.parseMulExpr()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == TokenOp && (p.peek().Text == "+" || p.peek().Text == "-") {
		op := p.advance().Text
		right, err := p.parseMulExpr()
		if err != nil {
			return nil, err
		}
		fn := vizql.FnAdd
		if op == "-" {
			fn = vizql.FnSubtract
		}
		left = &vizql.ScalarFunctionColumn{Function: fn, Args: []vizql.AbstractColumn{left, right}}
	}
	return left, nil
}

func (p *parser) parseMulExpr() (vizql.AbstractColumn, error) {
	left, err := p.parsePrimaryColumn()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == TokenOp && (p.peek().Text == "*" || p.peek().Text == "/") {
		op := p.advance().Text
		right, err := p.parsePrimaryColumn()
		if err != nil {
			return nil, err
		}
		fn := vizql.FnMultiply
		if op == "/" {
			fn = vizql.FnDivide
		}
		left = &vizql.ScalarFunctionColumn{Function: fn, Args: []vizql.AbstractColumn{left, right}}
	}
	return left, nil
}

func (p *parser) parsePrimaryColumn() (vizql.AbstractColumn, error) {
	tok := p.peek()
	if tok.Kind == TokenLParen {
		p.advance()
		inner, err := p.parseAddExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().Kind != TokenRParen {
			return nil, &ParseError{Message: "expected )", Pos: p.peek().Pos}
		}
		p.advance()
		return inner, nil
	}
	if tok.Kind != TokenIdent {
		return nil, &ParseError{Message: "expected column expression", Pos: tok.Pos}
	}
	name := p.advance().Text

	if p.peek().Kind != TokenLParen {
		return &vizql.SimpleColumn{ColumnID: name}, nil
	}
	p.advance() // consume (
	var args []vizql.AbstractColumn
	if p.peek().Kind != TokenRParen {
		for {
			a, err := p.parseAddExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.peek().Kind == TokenComma {
				p.advance()
				continue
			}
			break
		}
	}
	if p.peek().Kind != TokenRParen {
		return nil, &ParseError{Message: "expected )", Pos: p.peek().Pos}
	}
	p.advance()

	upper := strings.ToUpper(name)
	if agg, ok := aggregationNames[upper]; ok {
		if len(args) != 1 {
			return nil, &ParseError{Message: upper + " takes exactly one argument", Pos: tok.Pos}
		}
		return &vizql.AggregationColumn{Aggregation: agg, Column: args[0]}, nil
	}
	if fn, ok := scalarFnNames[upper]; ok {
		return &vizql.ScalarFunctionColumn{Function: fn, Args: args}, nil
	}
	return nil, &ParseError{Message: "unknown function " + name, Pos: tok.Pos}
}

// parseOrExpr / parseAndExpr / parseNotExpr implement the §6 precedence
// NOT > AND > OR.
func (p *parser) parseOrExpr() (vizql.QueryFilter, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	children := []vizql.QueryFilter{left}
	for p.isKeyword("OR") {
		p.advance()
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &vizql.CompoundFilter{Logic: vizql.LogicOr, Children: children}, nil
}

func (p *parser) parseAndExpr() (vizql.QueryFilter, error) {
	left, err := p.parseNotExpr()
	if err != nil {
		return nil, err
	}
	children := []vizql.QueryFilter{left}
	for p.isKeyword("AND") {
		p.advance()
		right, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &vizql.CompoundFilter{Logic: vizql.LogicAnd, Children: children}, nil
}

func (p *parser) parseNotExpr() (vizql.QueryFilter, error) {
	if p.isKeyword("NOT") {
		p.advance()
		inner, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		return &vizql.NegationFilter{Inner: inner}, nil
	}
	return p.parsePredicate()
}

// parsePredicate handles a parenthesized boolean sub-expression (with
// backtracking, since "(" also opens a parenthesized arithmetic
// sub-expression on a comparison's left side) or a single comparison.
func (p *parser) parsePredicate() (vizql.QueryFilter, error) {
	if p.peek().Kind == TokenLParen {
		save := p.pos
		p.advance()
		inner, err := p.parseOrExpr()
		if err == nil && p.peek().Kind == TokenRParen {
			p.advance()
			return inner, nil
		}
		p.pos = save
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (vizql.QueryFilter, error) {
	// A literal on the left (e.g. `5 > col`, `'x' STARTS WITH col`) produces
	// a Reversed ColumnValueFilter (§3) instead of the usual column-first
	// form; try it before falling back to a column expression.
	if lit, ok, err := p.tryParseLiteral(); err != nil {
		return nil, err
	} else if ok {
		op, err := p.parseComparisonOp()
		if err != nil {
			return nil, err
		}
		col, err := p.parseAddExpr()
		if err != nil {
			return nil, err
		}
		return &vizql.ColumnValueFilter{Column: col, Op: op, Value: lit, Reversed: true}, nil
	}

	left, err := p.parseAddExpr()
	if err != nil {
		return nil, err
	}

	if p.isKeyword("IS") {
		p.advance()
		negate := false
		if p.isKeyword("NOT") {
			negate = true
			p.advance()
		}
		if err := p.expectKeyword("NULL"); err != nil {
			return nil, err
		}
		return &vizql.ColumnIsNullFilter{Column: left, Negate: negate}, nil
	}

	op, err := p.parseComparisonOp()
	if err != nil {
		return nil, err
	}

	if lit, ok, err := p.tryParseLiteral(); err != nil {
		return nil, err
	} else if ok {
		return &vizql.ColumnValueFilter{Column: left, Op: op, Value: lit}, nil
	}

	right, err := p.parseAddExpr()
	if err != nil {
		return nil, err
	}
	return &vizql.ColumnColumnFilter{Left: left, Op: op, Right: right}, nil
}

func (p *parser) parseComparisonOp() (vizql.ComparisonOp, error) {
	tok := p.peek()
	if tok.Kind == TokenOp {
		p.advance()
		switch tok.Text {
		case "=":
			return vizql.OpEQ, nil
		case "!=":
			return vizql.OpNE, nil
		case "<":
			return vizql.OpLT, nil
		case ">":
			return vizql.OpGT, nil
		case "<=":
			return vizql.OpLE, nil
		case ">=":
			return vizql.OpGE, nil
		}
	}
	if tok.Kind == TokenKeyword {
		switch tok.Text {
		case "CONTAINS":
			p.advance()
			return vizql.OpContains, nil
		case "MATCHES":
			p.advance()
			return vizql.OpMatches, nil
		case "LIKE":
			p.advance()
			return vizql.OpLike, nil
		case "STARTS":
			p.advance()
			if err := p.expectKeyword("WITH"); err != nil {
				return "", err
			}
			return vizql.OpStartsWith, nil
		case "ENDS":
			p.advance()
			if err := p.expectKeyword("WITH"); err != nil {
				return "", err
			}
			return vizql.OpEndsWith, nil
		}
	}
	return "", &ParseError{Message: "expected comparison operator", Pos: tok.Pos}
}

// tryParseLiteral consumes a literal value token if present (number,
// string, boolean, or a typed DATE/DATETIME/TIMESTAMP/TIMEOFDAY literal),
// reporting ok=false without consuming input when the next token is not a
// literal (so the caller falls back to parsing a column-column comparison).
func (p *parser) tryParseLiteral() (vizql.Value, bool, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokenNumber:
		p.advance()
		n, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return vizql.Value{}, false, &ParseError{Message: "invalid number literal " + tok.Text, Pos: tok.Pos}
		}
		return vizql.NumberValue(n), true, nil
	case TokenString:
		p.advance()
		return vizql.TextValue(tok.Text), true, nil
	case TokenOp:
		if tok.Text == "-" && p.tokens[p.pos+1].Kind == TokenNumber {
			p.advance()
			numTok := p.advance()
			n, err := strconv.ParseFloat(numTok.Text, 64)
			if err != nil {
				return vizql.Value{}, false, &ParseError{Message: "invalid number literal " + numTok.Text, Pos: numTok.Pos}
			}
			return vizql.NumberValue(-n), true, nil
		}
	case TokenKeyword:
		switch tok.Text {
		case "TRUE":
			p.advance()
			return vizql.BoolValue(true), true, nil
		case "FALSE":
			p.advance()
			return vizql.BoolValue(false), true, nil
		case "DATE", "DATETIME", "TIMESTAMP", "TIMEOFDAY":
			return p.parseTypedLiteral(tok.Text)
		}
	}
	return vizql.Value{}, false, nil
}

func (p *parser) parseTypedLiteral(kind string) (vizql.Value, bool, error) {
	p.advance() // consume DATE/DATETIME/TIMESTAMP/TIMEOFDAY
	if p.peek().Kind != TokenString {
		return vizql.Value{}, false, &ParseError{Message: "expected string literal after " + kind, Pos: p.peek().Pos}
	}
	raw := p.advance().Text
	switch kind {
	case "DATE":
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return vizql.Value{}, false, &ParseError{Message: "invalid DATE literal " + raw, Pos: p.pos}
		}
		return vizql.DateValue(t), true, nil
	case "DATETIME", "TIMESTAMP":
		t, err := time.Parse("2006-01-02 15:04:05", raw)
		if err != nil {
			return vizql.Value{}, false, &ParseError{Message: "invalid " + kind + " literal " + raw, Pos: p.pos}
		}
		return vizql.DateTimeValue(t), true, nil
	case "TIMEOFDAY":
		parts := strings.Split(raw, ":")
		if len(parts) != 3 {
			return vizql.Value{}, false, &ParseError{Message: "invalid TIMEOFDAY literal " + raw, Pos: p.pos}
		}
		h, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		s, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return vizql.Value{}, false, &ParseError{Message: "invalid TIMEOFDAY literal " + raw, Pos: p.pos}
		}
		return vizql.TimeOfDayValue(h, m, s, 0), true, nil
	}
	return vizql.Value{}, false, nil
}
