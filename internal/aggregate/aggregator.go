package aggregate

import (
	"math"

	"github.com/lychee-technology/vizql"
)

// ValueAggregator accumulates one aggregated column's running state at a
// single tree node (§4.6): count of non-nulls, running sum (numeric only),
// and typed running min/max. Null inputs are skipped by every aggregator.
type ValueAggregator struct {
	count int
	sum   float64
	min   vizql.Value
	max   vizql.Value
	seen  bool
}

// NewValueAggregator creates an aggregator; kind only affects which state
// Result reads back, not what Add tracks — every aggregator tracks all four
// pieces of state so one ValueAggregator instance can serve any of
// MIN/MAX/SUM/AVG/COUNT over the same inner column without recomputation.
func NewValueAggregator(kind vizql.AggregationType) *ValueAggregator {
	return &ValueAggregator{}
}

// Add feeds one row's value for this aggregator's inner column. Nulls are
// skipped entirely, per §4.6.
func (a *ValueAggregator) Add(v vizql.Value) {
	if v.IsNull() {
		return
	}
	a.count++
	if v.Type() == vizql.TypeNumber {
		if n, err := v.Number(); err == nil && !math.IsNaN(n) {
			a.sum += n
		}
	}
	if !a.seen {
		a.min = v
		a.max = v
		a.seen = true
		return
	}
	if cmp, err := v.Compare(a.min); err == nil && cmp < 0 {
		a.min = v
	}
	if cmp, err := v.Compare(a.max); err == nil && cmp > 0 {
		a.max = v
	}
}

// Result renders the accumulated state as the requested aggregation kind.
// innerType supplies the typed-null representation when the bucket has no
// non-null inputs, per §4.6 ("typed null if empty").
func (a *ValueAggregator) Result(kind vizql.AggregationType, innerType vizql.ValueType) (vizql.Value, error) {
	switch kind {
	case vizql.AggCount:
		return vizql.NumberValue(float64(a.count)), nil
	case vizql.AggSum:
		if innerType != vizql.TypeNumber {
			return vizql.Value{}, vizql.NewEngineError(vizql.ErrorTypeInternal, vizql.ErrCodeAggregationFailed,
				"SUM requires a numeric inner column")
		}
		if a.count == 0 {
			return vizql.NullValue(vizql.TypeNumber), nil
		}
		return vizql.NumberValue(a.sum), nil
	case vizql.AggAvg:
		if innerType != vizql.TypeNumber {
			return vizql.Value{}, vizql.NewEngineError(vizql.ErrorTypeInternal, vizql.ErrCodeAggregationFailed,
				"AVG requires a numeric inner column")
		}
		if a.count == 0 {
			return vizql.NullValue(vizql.TypeNumber), nil
		}
		return vizql.NumberValue(a.sum / float64(a.count)), nil
	case vizql.AggMin:
		if !a.seen {
			return vizql.NullValue(innerType), nil
		}
		return a.min, nil
	case vizql.AggMax:
		if !a.seen {
			return vizql.NullValue(innerType), nil
		}
		return a.max, nil
	}
	return vizql.Value{}, vizql.NewEngineError(vizql.ErrorTypeInternal, vizql.ErrCodeAggregationFailed, "unknown aggregation kind")
}
