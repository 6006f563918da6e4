package vizql

import (
	"fmt"
	"strings"
)

// AggregationType enumerates the value aggregators (§4.6).
type AggregationType string

const (
	AggMin   AggregationType = "min"
	AggMax   AggregationType = "max"
	AggSum   AggregationType = "sum"
	AggAvg   AggregationType = "avg"
	AggCount AggregationType = "count"
)

func (a AggregationType) valid() bool {
	switch a {
	case AggMin, AggMax, AggSum, AggAvg, AggCount:
		return true
	}
	return false
}

// AbstractColumn is the sum type described in §3/§4.3: every column that
// can appear in a select/group/pivot/sort/filter list is one of
// SimpleColumn, AggregationColumn, or ScalarFunctionColumn. It mirrors the
// Condition sum-type-via-interface pattern the teacher uses for query
// filters (types.go's Condition/CompositeCondition/KvCondition).
type AbstractColumn interface {
	// ID is the canonical, content-derived identifier for this column
	// expression (e.g. "sum-amount", "year(orderdate)").
	ID() string
	// ValueType returns the type this column expression evaluates to,
	// given the table whose columns it draws from.
	ValueType(source *DataTable) (ValueType, error)
	// Columns returns the SimpleColumns this expression transitively
	// depends on (used by validation and by the splitter to decide which
	// source columns must be selected for pushdown).
	Columns() []*SimpleColumn
	isAbstractColumn()
}

// SimpleColumn references a column of the source table by id, unchanged.
type SimpleColumn struct {
	ColumnID string
}

func (c *SimpleColumn) ID() string { return c.ColumnID }

func (c *SimpleColumn) ValueType(source *DataTable) (ValueType, error) {
	desc, ok := source.ColumnByID(c.ColumnID)
	if !ok {
		return "", NewInvalidQueryError(ErrCodeUnknownColumn, "unknown column").WithColumn(c.ColumnID)
	}
	return desc.Type, nil
}

func (c *SimpleColumn) Columns() []*SimpleColumn { return []*SimpleColumn{c} }
func (c *SimpleColumn) isAbstractColumn()        {}

// AggregationColumn applies a ValueAggregator to a nested column expression;
// it is resolved by the grouping stage, which also runs without GROUP BY and
// then yields a single grand-total row (§4.3, §4.6).
type AggregationColumn struct {
	Aggregation AggregationType
	Column      AbstractColumn
}

func (c *AggregationColumn) ID() string {
	return fmt.Sprintf("%s-%s", c.Aggregation, c.Column.ID())
}

func (c *AggregationColumn) ValueType(source *DataTable) (ValueType, error) {
	if c.Aggregation == AggCount {
		return TypeNumber, nil
	}
	inner, err := c.Column.ValueType(source)
	if err != nil {
		return "", err
	}
	if c.Aggregation == AggAvg || c.Aggregation == AggSum {
		return TypeNumber, nil
	}
	return inner, nil // MIN/MAX preserve the operand's type
}

func (c *AggregationColumn) Columns() []*SimpleColumn { return c.Column.Columns() }
func (c *AggregationColumn) isAbstractColumn()        {}

// ScalarFunctionName enumerates the functions implemented by
// applyScalarFunction in expression.go (§4.3, §I).
type ScalarFunctionName string

const (
	FnAdd       ScalarFunctionName = "add"
	FnSubtract  ScalarFunctionName = "subtract"
	FnMultiply  ScalarFunctionName = "multiply"
	FnDivide    ScalarFunctionName = "divide"
	FnYear      ScalarFunctionName = "year"
	FnMonth     ScalarFunctionName = "month"
	FnDay       ScalarFunctionName = "day"
	FnHour      ScalarFunctionName = "hour"
	FnMinute    ScalarFunctionName = "minute"
	FnSecond    ScalarFunctionName = "second"
	FnQuarter   ScalarFunctionName = "quarter"
	FnDayOfWeek ScalarFunctionName = "dayOfWeek"
	FnDateDiff  ScalarFunctionName = "dateDiff"
	FnUpper     ScalarFunctionName = "upper"
	FnLower     ScalarFunctionName = "lower"
	FnToDate    ScalarFunctionName = "toDate"
	FnNow       ScalarFunctionName = "now"
	FnToday     ScalarFunctionName = "today"
)

// ScalarFunctionColumn applies a named scalar function to zero or more
// nested column expressions (§4.3).
type ScalarFunctionColumn struct {
	Function ScalarFunctionName
	Args     []AbstractColumn
}

func (c *ScalarFunctionColumn) ID() string {
	ids := make([]string, len(c.Args))
	for i, a := range c.Args {
		ids[i] = a.ID()
	}
	return fmt.Sprintf("%s(%s)", c.Function, strings.Join(ids, ","))
}

func (c *ScalarFunctionColumn) ValueType(source *DataTable) (ValueType, error) {
	switch c.Function {
	case FnYear, FnMonth, FnDay, FnHour, FnMinute, FnSecond, FnQuarter, FnDayOfWeek, FnDateDiff:
		return TypeNumber, nil
	case FnAdd, FnSubtract, FnMultiply, FnDivide:
		return TypeNumber, nil
	case FnUpper, FnLower:
		return TypeText, nil
	case FnToDate:
		return TypeDate, nil
	case FnNow:
		return TypeDateTime, nil
	case FnToday:
		return TypeDate, nil
	}
	return "", NewInvalidQueryError(ErrCodeUnknownColumn, "unknown scalar function: "+string(c.Function))
}

func (c *ScalarFunctionColumn) Columns() []*SimpleColumn {
	var out []*SimpleColumn
	for _, a := range c.Args {
		out = append(out, a.Columns()...)
	}
	return out
}

func (c *ScalarFunctionColumn) isAbstractColumn() {}
