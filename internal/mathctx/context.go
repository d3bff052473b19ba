// Package mathctx carries the decimal precision policy used by every
// division in the engine. A Context is a plain value passed explicitly to the
// components that divide; there is no package-level mutable state.
package mathctx

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrDivisionByZero is returned by Div when the divisor is zero.
var ErrDivisionByZero = errors.New("division by zero")

// Rounding selects how a result is reduced to Precision significant digits.
type Rounding int

const (
	// HalfUp rounds ties away from zero.
	HalfUp Rounding = iota
	// HalfEven rounds ties to the even neighbour.
	HalfEven
	// Down truncates towards zero.
	Down
)

func (r Rounding) String() string {
	switch r {
	case HalfUp:
		return "half_up"
	case HalfEven:
		return "half_even"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// ParseRounding maps a config name to a Rounding mode.
func ParseRounding(name string) (Rounding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "half_up":
		return HalfUp, nil
	case "half_even":
		return HalfEven, nil
	case "down":
		return Down, nil
	default:
		return HalfUp, fmt.Errorf("unknown rounding mode %q", name)
	}
}

// Context is a significant-digit precision plus a rounding mode.
type Context struct {
	Precision int32
	Rounding  Rounding
}

// Default is 10 significant digits, round half up.
var Default = Context{Precision: 10, Rounding: HalfUp}

// New builds a Context, rejecting non-positive precision.
func New(precision int, rounding Rounding) (Context, error) {
	if precision <= 0 {
		return Context{}, fmt.Errorf("precision must be positive, got %d", precision)
	}
	return Context{Precision: int32(precision), Rounding: rounding}, nil
}

// Round reduces d to at most c.Precision significant digits.
func (c Context) Round(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return d
	}
	n := numDigits(d)
	if n <= int(c.Precision) {
		return d
	}
	places := c.Precision - 1 - adjustedExponent(d, n)
	switch c.Rounding {
	case HalfEven:
		return d.RoundBank(places)
	case Down:
		return d.RoundDown(places)
	default:
		return d.Round(places)
	}
}

// Div returns a/b rounded to c.Precision significant digits. The quotient is
// computed exactly to one digit past the precision boundary, with a sticky
// digit appended when the division leaves a remainder, so the single rounding
// step sees the true position of the value relative to the tie.
func (c Context) Div(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	if a.IsZero() {
		return decimal.Zero, nil
	}
	adjA := adjustedExponent(a, numDigits(a))
	adjB := adjustedExponent(b, numDigits(b))
	places := c.Precision - (adjA - adjB - 1) + 1

	q, r := a.QuoRem(b, places)
	if !r.IsZero() {
		sticky := decimal.New(int64(a.Sign()*b.Sign()), -(places + 1))
		q = q.Add(sticky)
	}
	return c.Round(q), nil
}

// MustDiv is Div for divisors known to be non-zero constants.
func (c Context) MustDiv(a, b decimal.Decimal) decimal.Decimal {
	q, err := c.Div(a, b)
	if err != nil {
		panic(fmt.Sprintf("mathctx: %s / %s: %v", a, b, err))
	}
	return q
}

func numDigits(d decimal.Decimal) int {
	return len(new(big.Int).Abs(d.Coefficient()).String())
}

// adjustedExponent is the power of ten of the most significant digit.
func adjustedExponent(d decimal.Decimal, digits int) int32 {
	return d.Exponent() + int32(digits) - 1
}
