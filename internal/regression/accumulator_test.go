package regression

import (
	"testing"

	"EventStudy/internal/mathctx"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func points(pairs ...string) []Point {
	out := make([]Point, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Point{X: dec(pairs[i]), Y: dec(pairs[i+1])})
	}
	return out
}

func TestFit_KnownLines(t *testing.T) {
	tests := []struct {
		name      string
		pts       []Point
		slope     string
		intercept string
	}{
		{"identity", points("1", "1", "2", "2", "3", "3"), "1", "0"},
		{"y = 2x + 1", points("0", "1", "1", "3", "2", "5", "3", "7"), "2", "1"},
		{"negative slope", points("1", "4", "2", "2", "3", "0"), "-2", "6"},
		{"noisy", points("1", "2", "2", "4", "3", "5", "4", "4", "5", "5"), "0.6", "2.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Fit(tt.pts, mathctx.Default)
			require.NoError(t, err)
			assert.True(t, res.Slope.Equal(dec(tt.slope)), "slope %s", res.Slope)
			assert.True(t, res.Intercept.Equal(dec(tt.intercept)), "intercept %s", res.Intercept)
			assert.Equal(t, len(tt.pts), res.N)
		})
	}
}

func TestFit_ConstantY(t *testing.T) {
	res, err := Fit(points("0.01", "0.5", "-0.02", "0.5", "0.03", "0.5", "0.07", "0.5"), mathctx.Default)
	require.NoError(t, err)
	assert.True(t, res.Slope.IsZero())
	assert.True(t, res.Intercept.Equal(dec("0.5")))
}

func TestFit_Idempotent(t *testing.T) {
	pts := points("0.0123", "0.0311", "-0.0071", "-0.0102", "0.0044", "0.0019", "0.0201", "0.0377", "-0.0150", "-0.0211")
	first, err := Fit(pts, mathctx.Default)
	require.NoError(t, err)
	second, err := Fit(pts, mathctx.Default)
	require.NoError(t, err)
	assert.Equal(t, first.Slope.String(), second.Slope.String())
	assert.Equal(t, first.Intercept.String(), second.Intercept.String())
}

func TestFit_Degenerate(t *testing.T) {
	_, err := Fit(points("1", "2", "1", "3", "1", "4"), mathctx.Default)
	assert.ErrorIs(t, err, ErrDegenerate)

	_, err = Fit(points("1", "2"), mathctx.Default)
	assert.ErrorIs(t, err, ErrDegenerate)

	_, err = Fit(nil, mathctx.Default)
	assert.ErrorIs(t, err, ErrDegenerate)

	// More significant digits than the context keeps: the rounded mean
	// differs from x, but the series is still constant.
	_, err = Fit(points("1.23456789012", "1", "1.23456789012", "2", "1.23456789012", "3"), mathctx.Default)
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestAccumulator_StateMachine(t *testing.T) {
	acc, err := NewAccumulator(2, mathctx.Default)
	require.NoError(t, err)

	_, err = acc.Slope()
	assert.ErrorIs(t, err, ErrNotFinalized)

	require.NoError(t, acc.Add(dec("1"), dec("2")))
	_, err = acc.Calculate()
	assert.ErrorIs(t, err, ErrSampleCount)

	require.NoError(t, acc.Add(dec("2"), dec("4")))
	assert.ErrorIs(t, acc.Add(dec("3"), dec("6")), ErrCapacityExceeded)

	res, err := acc.Calculate()
	require.NoError(t, err)
	assert.True(t, res.Slope.Equal(dec("2")))

	slope, err := acc.Slope()
	require.NoError(t, err)
	assert.True(t, slope.Equal(dec("2")))
	icpt, err := acc.Intercept()
	require.NoError(t, err)
	assert.True(t, icpt.IsZero())

	assert.ErrorIs(t, acc.Add(dec("3"), dec("6")), ErrFinalized)
	_, err = acc.Calculate()
	assert.ErrorIs(t, err, ErrFinalized)
}

func TestNewAccumulator_InvalidCapacity(t *testing.T) {
	_, err := NewAccumulator(0, mathctx.Default)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestFit_LowPrecisionContext(t *testing.T) {
	// means round to 1.333 and 0.3333, slope -0.33332331 / 4.666667
	res, err := Fit(points("0", "0", "1", "1", "3", "0"), mathctx.Context{Precision: 4, Rounding: mathctx.HalfUp})
	require.NoError(t, err)
	assert.True(t, res.Slope.Equal(dec("-0.07143")), "slope %s", res.Slope)
}
