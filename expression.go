package vizql

import (
	"strings"
	"time"
)

// Eval evaluates col against one row of table, dispatching on the concrete
// AbstractColumn implementation. AggregationColumn can only be evaluated
// against a table already produced by the grouping stage (§4.7-§4.8), where
// the aggregated value has been materialized into a plain cell under the
// AggregationColumn's own ID — so Eval for it is just a SimpleColumn lookup
// by that canonical id.
func Eval(col AbstractColumn, table *DataTable, row int) (Value, error) {
	switch c := col.(type) {
	case *SimpleColumn:
		cell, ok := table.Cell(row, c.ColumnID)
		if !ok {
			return Value{}, NewInvalidQueryError(ErrCodeUnknownColumn, "unknown column").WithColumn(c.ColumnID)
		}
		return cell.Value, nil
	case *AggregationColumn:
		cell, ok := table.Cell(row, c.ID())
		if !ok {
			return Value{}, NewInvalidQueryError(ErrCodeUngroupedColumn, "aggregation not materialized").WithColumn(c.ID())
		}
		return cell.Value, nil
	case *ScalarFunctionColumn:
		return evalScalarFunction(c, table, row)
	}
	return Value{}, NewInternalError("unknown AbstractColumn implementation", nil)
}

// ApplyScalarFunction evaluates fn over already-resolved argument values.
// It is exported for internal/engine's post-grouping scalar-function
// evaluation (§4.7), where arguments come from a per-pivot-tuple column
// lookup rather than directly from a table row.
func ApplyScalarFunction(fn ScalarFunctionName, args []Value) (Value, error) {
	return applyScalarFunction(fn, args)
}

func evalScalarFunction(c *ScalarFunctionColumn, table *DataTable, row int) (Value, error) {
	args := make([]Value, len(c.Args))
	for i, a := range c.Args {
		v, err := Eval(a, table, row)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	return applyScalarFunction(c.Function, args)
}

func applyScalarFunction(fn ScalarFunctionName, args []Value) (Value, error) {
	arith := func(op func(a, b float64) float64) (Value, error) {
		if len(args) != 2 {
			return Value{}, NewEngineError(ErrorTypeValidation, ErrCodeScalarFnFailed, "expected 2 arguments")
		}
		if args[0].IsNull() || args[1].IsNull() {
			return NullValue(TypeNumber), nil
		}
		a, err := args[0].Number()
		if err != nil {
			return Value{}, err
		}
		b, err := args[1].Number()
		if err != nil {
			return Value{}, err
		}
		return NumberValue(op(a, b)), nil
	}
	switch fn {
	case FnAdd:
		return arith(func(a, b float64) float64 { return a + b })
	case FnSubtract:
		return arith(func(a, b float64) float64 { return a - b })
	case FnMultiply:
		return arith(func(a, b float64) float64 { return a * b })
	case FnDivide:
		return arith(func(a, b float64) float64 { return a / b })
	case FnYear, FnMonth, FnDay, FnHour, FnMinute, FnSecond, FnQuarter, FnDayOfWeek:
		return timeComponent(fn, args)
	case FnDateDiff:
		return dateDiff(args)
	case FnUpper, FnLower:
		return textCase(fn, args)
	case FnToDate:
		return toDate(args)
	case FnNow:
		return DateTimeValue(currentTime()), nil
	case FnToday:
		t := currentTime()
		return DateValue(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())), nil
	}
	return Value{}, NewEngineError(ErrorTypeValidation, ErrCodeScalarFnFailed, "unknown function: "+string(fn))
}

// currentTime is a seam so tests can stub "now" without reaching for
// monkey-patching; production code always calls time.Now.
var currentTime = time.Now

func timeComponent(fn ScalarFunctionName, args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, NewEngineError(ErrorTypeValidation, ErrCodeScalarFnFailed, "expected 1 argument")
	}
	if args[0].IsNull() {
		return NullValue(TypeNumber), nil
	}
	t, err := args[0].Time()
	if err != nil {
		return Value{}, err
	}
	switch fn {
	case FnYear:
		return NumberValue(float64(t.Year())), nil
	case FnMonth:
		return NumberValue(float64(t.Month())), nil
	case FnDay:
		return NumberValue(float64(t.Day())), nil
	case FnHour:
		return NumberValue(float64(t.Hour())), nil
	case FnMinute:
		return NumberValue(float64(t.Minute())), nil
	case FnSecond:
		return NumberValue(float64(t.Second())), nil
	case FnQuarter:
		return NumberValue(float64((int(t.Month())-1)/3 + 1)), nil
	case FnDayOfWeek:
		return NumberValue(float64(t.Weekday())), nil
	}
	return Value{}, NewInternalError("unreachable time component function", nil)
}

func dateDiff(args []Value) (Value, error) {
	if len(args) != 2 {
		return Value{}, NewEngineError(ErrorTypeValidation, ErrCodeScalarFnFailed, "expected 2 arguments")
	}
	if args[0].IsNull() || args[1].IsNull() {
		return NullValue(TypeNumber), nil
	}
	a, err := args[0].Time()
	if err != nil {
		return Value{}, err
	}
	b, err := args[1].Time()
	if err != nil {
		return Value{}, err
	}
	days := a.Truncate(24 * time.Hour).Sub(b.Truncate(24 * time.Hour)).Hours() / 24
	return NumberValue(days), nil
}

func textCase(fn ScalarFunctionName, args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, NewEngineError(ErrorTypeValidation, ErrCodeScalarFnFailed, "expected 1 argument")
	}
	if args[0].IsNull() {
		return NullValue(TypeText), nil
	}
	s, err := args[0].Text()
	if err != nil {
		return Value{}, err
	}
	if fn == FnUpper {
		return TextValue(strings.ToUpper(s)), nil
	}
	return TextValue(strings.ToLower(s)), nil
}

func toDate(args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, NewEngineError(ErrorTypeValidation, ErrCodeScalarFnFailed, "expected 1 argument")
	}
	if args[0].IsNull() {
		return NullValue(TypeDate), nil
	}
	t, err := args[0].Time()
	if err != nil {
		return Value{}, err
	}
	return DateValue(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())), nil
}
