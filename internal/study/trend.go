package study

import (
	"fmt"
	"time"

	"EventStudy/internal/mathctx"
	"EventStudy/internal/model"
	"EventStudy/internal/regression"
	"EventStudy/internal/timeseries"

	"github.com/shopspring/decimal"
)

// TrendOptions configures the linear-trend comparison.
type TrendOptions struct {
	DaysBefore      int
	DaysAfter       int
	SearchLimitDays int
	MC              mathctx.Context
}

// DefaultTrendOptions compares 120 days before the event with 5 days after.
func DefaultTrendOptions() TrendOptions {
	return TrendOptions{DaysBefore: 120, DaysAfter: 5, SearchLimitDays: 10, MC: mathctx.Default}
}

// Trend fits the adjusted close against the trading-day index before and
// from the event, and expresses the change in slope as a percentage of the
// first open on or after the event date.
func Trend(s *timeseries.Store, event time.Time, opts TrendOptions) (*model.TrendReport, error) {
	event = model.Day(event)

	before, err := trendSlope(s, event.AddDate(0, 0, -opts.DaysBefore), event, opts.MC)
	if err != nil {
		return nil, fmt.Errorf("trend before event: %w", err)
	}
	during, err := trendSlope(s, event, event.AddDate(0, 0, opts.DaysAfter), opts.MC)
	if err != nil {
		return nil, fmt.Errorf("trend during event: %w", err)
	}
	_, open, err := timeseries.FirstOnOrAfter(s, timeseries.Open, event, opts.SearchLimitDays)
	if err != nil {
		return nil, fmt.Errorf("event open: %w", err)
	}

	diff := during.Sub(before)
	pct, err := opts.MC.Div(diff, open)
	if err != nil {
		return nil, fmt.Errorf("percent difference: %w", err)
	}
	return &model.TrendReport{
		Company:           s.Symbol(),
		EventDate:         event,
		DaysBefore:        opts.DaysBefore,
		DaysAfter:         opts.DaysAfter,
		SlopeBefore:       before,
		SlopeDuring:       during,
		Difference:        diff,
		EventOpen:         open,
		PercentDifference: pct.Mul(decimal.NewFromInt(100)),
	}, nil
}

func trendSlope(s *timeseries.Store, from, to time.Time, mc mathctx.Context) (decimal.Decimal, error) {
	var pts []regression.Point
	for d := range timeseries.NewWalker(s, from, to).All() {
		v, _ := s.ValueAt(timeseries.AdjClose, d)
		pts = append(pts, regression.Point{X: decimal.NewFromInt(int64(len(pts))), Y: v})
	}
	res, err := regression.Fit(pts, mc)
	if err != nil {
		return decimal.Zero, err
	}
	return res.Slope, nil
}
