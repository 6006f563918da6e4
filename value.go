package vizql

import (
	"fmt"
	"math"
	"time"
)

// ValueType enumerates the six scalar types a cell, column, or filter
// operand can carry.
type ValueType string

const (
	TypeBoolean  ValueType = "boolean"
	TypeNumber   ValueType = "number"
	TypeText     ValueType = "string"
	TypeDate     ValueType = "date"
	TypeDateTime ValueType = "datetime"
	TypeTimeOfDay ValueType = "timeofday"
)

func (t ValueType) String() string { return string(t) }

func (t ValueType) valid() bool {
	switch t {
	case TypeBoolean, TypeNumber, TypeText, TypeDate, TypeDateTime, TypeTimeOfDay:
		return true
	}
	return false
}

// Value is a single typed cell value. It is a comparable struct, not an
// interface. The aggregation tree (internal/aggregate) and the grouping
// assembly (§4.7) do not key maps on Value itself, since Go map equality
// treats NaN != NaN; they key on strings built from each value's type,
// String() rendering and null flag.
type Value struct {
	typ     ValueType
	num     float64
	str     string
	boolean bool
	t       time.Time
	isNull  bool
}

// NullValue returns the null value of the given type. A null keeps its
// type: two nulls are equal only when their types match, Compare rejects a
// null of another type like any other type mismatch, and the grouping keys
// include the type. typ also lets formatting/labels report a column's
// declared type for an all-null column.
func NullValue(typ ValueType) Value {
	return Value{typ: typ, isNull: true}
}

func BoolValue(b bool) Value {
	return Value{typ: TypeBoolean, boolean: b}
}

func NumberValue(n float64) Value {
	return Value{typ: TypeNumber, num: n}
}

func TextValue(s string) Value {
	return Value{typ: TypeText, str: s}
}

func DateValue(t time.Time) Value {
	return Value{typ: TypeDate, t: t}
}

func DateTimeValue(t time.Time) Value {
	return Value{typ: TypeDateTime, t: t}
}

// TimeOfDayValue stores hour/minute/second/millisecond packed into a
// duration-since-midnight float in num, keeping Value a flat comparable
// struct instead of growing a fourth numeric field.
func TimeOfDayValue(hour, minute, second, millis int) Value {
	total := float64(hour)*3600000 + float64(minute)*60000 + float64(second)*1000 + float64(millis)
	return Value{typ: TypeTimeOfDay, num: total}
}

func (v Value) Type() ValueType { return v.typ }
func (v Value) IsNull() bool    { return v.isNull }

func (v Value) Bool() (bool, error) {
	if v.typ != TypeBoolean {
		return false, NewTypeMismatchError("", TypeBoolean, v.typ)
	}
	return v.boolean, nil
}

func (v Value) Number() (float64, error) {
	if v.typ != TypeNumber {
		return 0, NewTypeMismatchError("", TypeNumber, v.typ)
	}
	return v.num, nil
}

func (v Value) Text() (string, error) {
	if v.typ != TypeText {
		return "", NewTypeMismatchError("", TypeText, v.typ)
	}
	return v.str, nil
}

func (v Value) Time() (time.Time, error) {
	if v.typ != TypeDate && v.typ != TypeDateTime {
		return time.Time{}, NewTypeMismatchError("", TypeDateTime, v.typ)
	}
	return v.t, nil
}

// TimeOfDayParts decodes the packed millis-since-midnight representation.
func (v Value) TimeOfDayParts() (hour, minute, second, millis int, err error) {
	if v.typ != TypeTimeOfDay {
		return 0, 0, 0, 0, NewTypeMismatchError("", TypeTimeOfDay, v.typ)
	}
	ms := int64(v.num)
	millis = int(ms % 1000)
	ms /= 1000
	second = int(ms % 60)
	ms /= 60
	minute = int(ms % 60)
	ms /= 60
	hour = int(ms)
	return hour, minute, second, millis, nil
}

// Compare orders two values of the same ValueType. Per §4.1, null sorts
// last within a type, and two nulls compare equal; this also governs the
// value-list lex order used for aggregation leaves and pivot-tuple ordering
// (§4.6, §9) — see DESIGN.md for why the same rule is applied uniformly
// instead of giving pivot tuples a separate null rule.
func (v Value) Compare(other Value) (int, error) {
	if v.typ != other.typ {
		return 0, NewTypeMismatchError("", v.typ, other.typ)
	}
	if v.isNull && other.isNull {
		return 0, nil
	}
	if v.isNull {
		return 1, nil
	}
	if other.isNull {
		return -1, nil
	}
	switch v.typ {
	case TypeBoolean:
		if v.boolean == other.boolean {
			return 0, nil
		}
		if !v.boolean {
			return -1, nil
		}
		return 1, nil
	case TypeNumber, TypeTimeOfDay:
		// NaN compares equal to NaN and greater than every non-NaN value
		// (§4.1), so it remains a well-defined sort key.
		if math.IsNaN(v.num) && math.IsNaN(other.num) {
			return 0, nil
		}
		if math.IsNaN(v.num) {
			return 1, nil
		}
		if math.IsNaN(other.num) {
			return -1, nil
		}
		switch {
		case v.num < other.num:
			return -1, nil
		case v.num > other.num:
			return 1, nil
		default:
			return 0, nil
		}
	case TypeText:
		switch {
		case v.str < other.str:
			return -1, nil
		case v.str > other.str:
			return 1, nil
		default:
			return 0, nil
		}
	case TypeDate, TypeDateTime:
		if v.t.Before(other.t) {
			return -1, nil
		}
		if v.t.After(other.t) {
			return 1, nil
		}
		return 0, nil
	}
	return 0, NewEngineError(ErrorTypeInternal, ErrCodeUnsupportedValue, "unreachable value type")
}

// Equal reports value equality, treating two nulls of the same type as
// equal — used by filters (§4.4) and grouping (§4.7) alike.
func (v Value) Equal(other Value) bool {
	cmp, err := v.Compare(other)
	return err == nil && cmp == 0
}

// String renders a value for diagnostics/labels; it is not the formatting
// pipeline (§4.11), which applies locale- and pattern-aware rendering.
func (v Value) String() string {
	if v.isNull {
		return "null"
	}
	switch v.typ {
	case TypeBoolean:
		return fmt.Sprintf("%t", v.boolean)
	case TypeNumber:
		if math.Trunc(v.num) == v.num {
			return fmt.Sprintf("%.0f", v.num)
		}
		return fmt.Sprintf("%g", v.num)
	case TypeText:
		return v.str
	case TypeDate:
		return v.t.Format("2006-01-02")
	case TypeDateTime:
		return v.t.Format("2006-01-02 15:04:05")
	case TypeTimeOfDay:
		h, m, s, ms, _ := v.TimeOfDayParts()
		if ms != 0 {
			return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
		}
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return ""
}
