// Package regression fits a univariate least-squares line y = b1*x + b0 with
// fixed-precision decimal arithmetic.
package regression

import (
	"errors"
	"fmt"

	"EventStudy/internal/mathctx"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCapacity  = errors.New("capacity must be positive")
	ErrCapacityExceeded = errors.New("sample capacity exceeded")
	ErrFinalized        = errors.New("accumulator already finalized")
	ErrNotFinalized     = errors.New("accumulator not finalized")
	ErrSampleCount      = errors.New("sample count does not match capacity")
	ErrDegenerate       = errors.New("degenerate regression: zero variance in x")
)

type state int

const (
	building state = iota
	finalized
)

// Result is the fitted line.
type Result struct {
	Slope     decimal.Decimal // b1
	Intercept decimal.Decimal // b0
	N         int
}

// Accumulator collects exactly capacity samples, is finalized once by
// Calculate, and only then exposes the fitted coefficients.
type Accumulator struct {
	mc     mathctx.Context
	xs, ys []decimal.Decimal
	sumX   decimal.Decimal
	sumY   decimal.Decimal
	state  state
	result Result
}

// NewAccumulator preallocates room for capacity samples.
func NewAccumulator(capacity int, mc mathctx.Context) (*Accumulator, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Accumulator{
		mc: mc,
		xs: make([]decimal.Decimal, 0, capacity),
		ys: make([]decimal.Decimal, 0, capacity),
	}, nil
}

// Add appends one (x, y) sample.
func (a *Accumulator) Add(x, y decimal.Decimal) error {
	if a.state == finalized {
		return ErrFinalized
	}
	if len(a.xs) == cap(a.xs) {
		return fmt.Errorf("%w: capacity %d", ErrCapacityExceeded, cap(a.xs))
	}
	a.xs = append(a.xs, x)
	a.ys = append(a.ys, y)
	a.sumX = a.sumX.Add(x)
	a.sumY = a.sumY.Add(y)
	return nil
}

// Len is the number of samples added so far.
func (a *Accumulator) Len() int { return len(a.xs) }

// Calculate fits the line. Means are rounded by the precision context; the
// centred sums of squares and cross products are exact, and the slope is one
// more rounded division. It fails when fewer samples than the declared
// capacity were added, or when every x is identical.
func (a *Accumulator) Calculate() (Result, error) {
	if a.state == finalized {
		return Result{}, ErrFinalized
	}
	n := len(a.xs)
	if n != cap(a.xs) {
		return Result{}, fmt.Errorf("%w: have %d, declared %d", ErrSampleCount, n, cap(a.xs))
	}
	if constant(a.xs) {
		return Result{}, fmt.Errorf("%w: every x is %s (n=%d)", ErrDegenerate, a.xs[0], n)
	}

	count := decimal.NewFromInt(int64(n))
	barX, err := a.mc.Div(a.sumX, count)
	if err != nil {
		return Result{}, err
	}
	barY, err := a.mc.Div(a.sumY, count)
	if err != nil {
		return Result{}, err
	}

	var barXX, barXY decimal.Decimal
	for i := range a.xs {
		dx := a.xs[i].Sub(barX)
		dy := a.ys[i].Sub(barY)
		barXX = barXX.Add(dx.Mul(dx))
		barXY = barXY.Add(dx.Mul(dy))
	}
	if barXX.IsZero() {
		return Result{}, fmt.Errorf("%w (n=%d)", ErrDegenerate, n)
	}

	beta1, err := a.mc.Div(barXY, barXX)
	if err != nil {
		return Result{}, err
	}
	beta0 := barY.Sub(beta1.Mul(barX))

	a.result = Result{Slope: beta1, Intercept: beta0, N: n}
	a.state = finalized
	return a.result, nil
}

// constant reports whether xs has no spread. It compares exact values, since
// a rounded mean leaves nonzero residuals around a constant series.
func constant(xs []decimal.Decimal) bool {
	for _, x := range xs[1:] {
		if !x.Equal(xs[0]) {
			return false
		}
	}
	return true
}

// Slope returns b1 after Calculate.
func (a *Accumulator) Slope() (decimal.Decimal, error) {
	if a.state != finalized {
		return decimal.Zero, ErrNotFinalized
	}
	return a.result.Slope, nil
}

// Intercept returns b0 after Calculate.
func (a *Accumulator) Intercept() (decimal.Decimal, error) {
	if a.state != finalized {
		return decimal.Zero, ErrNotFinalized
	}
	return a.result.Intercept, nil
}

// Point is one regression sample.
type Point struct {
	X, Y decimal.Decimal
}

// Fit runs a full declare, fill and finalize cycle over points. An empty
// input is reported as ErrDegenerate.
func Fit(points []Point, mc mathctx.Context) (Result, error) {
	if len(points) == 0 {
		return Result{}, fmt.Errorf("%w (n=0)", ErrDegenerate)
	}
	acc, err := NewAccumulator(len(points), mc)
	if err != nil {
		return Result{}, err
	}
	for _, p := range points {
		if err := acc.Add(p.X, p.Y); err != nil {
			return Result{}, err
		}
	}
	return acc.Calculate()
}
