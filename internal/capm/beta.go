// Package capm estimates market beta and evaluates CAPM expected and
// abnormal returns.
package capm

import (
	"errors"
	"fmt"
	"time"

	"EventStudy/internal/mathctx"
	"EventStudy/internal/model"
	"EventStudy/internal/regression"
	"EventStudy/internal/timeseries"

	"github.com/shopspring/decimal"
)

// ErrDegenerateBeta is returned when the estimation window cannot support a
// regression. It wraps regression.ErrDegenerate.
var ErrDegenerateBeta = fmt.Errorf("beta estimation: %w", regression.ErrDegenerate)

// BetaOptions configures the estimation window.
type BetaOptions struct {
	// LookbackYears is the length of the window ending the day before the event.
	LookbackYears int
	// Field is the price series the returns are computed on.
	Field timeseries.Field
	MC    mathctx.Context
}

// DefaultBetaOptions is a one-year window on adjusted close.
func DefaultBetaOptions() BetaOptions {
	return BetaOptions{LookbackYears: 1, Field: timeseries.AdjClose, MC: mathctx.Default}
}

// BetaEstimate is the outcome of EstimateBeta.
type BetaEstimate struct {
	Raw          decimal.Decimal
	Adjusted     decimal.Decimal
	Intercept    decimal.Decimal
	Observations int
	From, To     time.Time
}

// EstimationWindow returns [event - years, event). The start is clamped to
// the end of its month, so Feb 29 minus one year is Feb 28.
func EstimationWindow(event time.Time, years int) (from, to time.Time) {
	to = model.Day(event)
	return subtractYears(to, years), to
}

func subtractYears(d time.Time, years int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y-years, m, 1, 0, 0, 0, 0, time.UTC)
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(y-years, m, day, 0, 0, 0, 0, time.UTC)
}

// EstimateBeta regresses the company's daily returns on the market's over the
// estimation window, walking the market calendar, and shrinks the slope
// towards one.
func EstimateBeta(company, market *timeseries.Store, event time.Time, opts BetaOptions) (BetaEstimate, error) {
	from, to := EstimationWindow(event, opts.LookbackYears)
	est := BetaEstimate{From: from, To: to}

	rs, err := timeseries.BuildReturns(timeseries.NewWalker(market, from, to), company, market, opts.Field, opts.MC)
	if err != nil {
		return est, fmt.Errorf("build returns: %w", err)
	}
	est.Observations = len(rs.Pairs)
	if len(rs.Pairs) == 0 {
		return est, fmt.Errorf("%w: no return pairs between %s and %s",
			ErrDegenerateBeta, from.Format(timeseries.DateLayout), to.Format(timeseries.DateLayout))
	}

	acc, err := regression.NewAccumulator(len(rs.Pairs), opts.MC)
	if err != nil {
		return est, err
	}
	for _, p := range rs.Pairs {
		if err := acc.Add(p.Market, p.Company); err != nil {
			return est, err
		}
	}
	res, err := acc.Calculate()
	if err != nil {
		if errors.Is(err, regression.ErrDegenerate) {
			return est, fmt.Errorf("%w: %d observations", ErrDegenerateBeta, len(rs.Pairs))
		}
		return est, err
	}

	est.Raw = res.Slope
	est.Intercept = res.Intercept
	est.Adjusted = Shrink(res.Slope, opts.MC)
	return est, nil
}

// Shrink pulls a raw beta towards the market average of one:
// 2/3 * raw + 1/3.
func Shrink(raw decimal.Decimal, mc mathctx.Context) decimal.Decimal {
	oneThird := mc.MustDiv(decimal.NewFromInt(1), decimal.NewFromInt(3))
	twoThirds := mc.MustDiv(decimal.NewFromInt(2), decimal.NewFromInt(3))
	return twoThirds.Mul(raw).Add(oneThird)
}
