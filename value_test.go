package vizql_test

import (
	"math"
	"testing"
	"time"

	"github.com/lychee-technology/vizql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueAccessorsTypeMismatch(t *testing.T) {
	v := vizql.TextValue("hi")
	_, err := v.Number()
	require.Error(t, err)
	ee, ok := err.(*vizql.EngineError)
	require.True(t, ok)
	assert.Equal(t, vizql.ErrCodeTypeMismatch, ee.Code)
}

func TestValueCompareNullSortsLast(t *testing.T) {
	n := vizql.NullValue(vizql.TypeNumber)
	five := vizql.NumberValue(5)

	cmp, err := five.Compare(n)
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)

	cmp, err = n.Compare(five)
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)

	cmp, err = n.Compare(vizql.NullValue(vizql.TypeNumber))
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)
}

func TestValueCompareNaN(t *testing.T) {
	nan := vizql.NumberValue(math.NaN())
	five := vizql.NumberValue(5)

	cmp, err := nan.Compare(nan)
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)

	cmp, err = nan.Compare(five)
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)
}

func TestValueCompareTypeMismatchErrors(t *testing.T) {
	_, err := vizql.NumberValue(1).Compare(vizql.TextValue("a"))
	assert.Error(t, err)
}

func TestTimeOfDayRoundTrip(t *testing.T) {
	v := vizql.TimeOfDayValue(13, 45, 30, 250)
	h, m, s, ms, err := v.TimeOfDayParts()
	require.NoError(t, err)
	assert.Equal(t, 13, h)
	assert.Equal(t, 45, m)
	assert.Equal(t, 30, s)
	assert.Equal(t, 250, ms)
}

func TestValueStringFormatting(t *testing.T) {
	assert.Equal(t, "null", vizql.NullValue(vizql.TypeText).String())
	assert.Equal(t, "true", vizql.BoolValue(true).String())
	assert.Equal(t, "42", vizql.NumberValue(42).String())
	assert.Equal(t, "3.5", vizql.NumberValue(3.5).String())
	assert.Equal(t, "hello", vizql.TextValue("hello").String())
	d := vizql.DateValue(time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2020-01-15", d.String())
	assert.Equal(t, "13:45:30", vizql.TimeOfDayValue(13, 45, 30, 0).String())
}

func TestValueEqualTreatsSameTypeNullsEqual(t *testing.T) {
	assert.True(t, vizql.NullValue(vizql.TypeNumber).Equal(vizql.NullValue(vizql.TypeNumber)))
	assert.False(t, vizql.NullValue(vizql.TypeNumber).Equal(vizql.NumberValue(0)))
}
