package capm

import (
	"fmt"
	"time"

	"EventStudy/internal/mathctx"
	"EventStudy/internal/model"
	"EventStudy/internal/timeseries"

	"github.com/shopspring/decimal"
)

// DefaultSearchLimitDays bounds the open-price searches of MarketPremium.
const DefaultSearchLimitDays = 10

// Evaluator computes CAPM expected returns and abnormal returns.
type Evaluator struct {
	rf       RiskFreeSource
	fallback decimal.Decimal
	mc       mathctx.Context
	limit    int
}

// Option customises an Evaluator.
type Option func(*Evaluator)

// WithFallback sets the rate used when the table has no exact date match.
// The default is zero.
func WithFallback(rate decimal.Decimal) Option {
	return func(e *Evaluator) { e.fallback = rate }
}

// WithSearchLimit bounds the forward/backward open-price search in days.
func WithSearchLimit(days int) Option {
	return func(e *Evaluator) {
		if days > 0 {
			e.limit = days
		}
	}
}

// NewEvaluator builds an evaluator over rf. A nil rf behaves as an empty table.
func NewEvaluator(rf RiskFreeSource, mc mathctx.Context, opts ...Option) *Evaluator {
	if rf == nil {
		rf = NewRiskFreeTable(DefaultTenor, nil)
	}
	e := &Evaluator{rf: rf, fallback: decimal.Zero, mc: mc, limit: DefaultSearchLimitDays}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Expected is the CAPM expectation for one day.
type Expected struct {
	Return   decimal.Decimal
	RiskFree decimal.Decimal
	Found    bool
}

// ExpectedReturn computes ER = RF + beta*(ERM - RF) with RF taken from the
// exact date, or the fallback when that date is missing from the table.
func (e *Evaluator) ExpectedReturn(date time.Time, beta, erm decimal.Decimal) Expected {
	rf, ok := e.rf.Rate(date)
	if !ok {
		rf = e.fallback
	}
	return Expected{
		Return:   rf.Add(beta.Mul(erm.Sub(rf))),
		RiskFree: rf,
		Found:    ok,
	}
}

// MarketPremium is the simple return of the market between the first open on
// or after from and the last open on or before event.
func (e *Evaluator) MarketPremium(market *timeseries.Store, from, event time.Time) (decimal.Decimal, error) {
	_, startOpen, err := timeseries.FirstOnOrAfter(market, timeseries.Open, from, e.limit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("window start open: %w", err)
	}
	_, eventOpen, err := timeseries.LastOnOrBefore(market, timeseries.Open, event, e.limit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("event open: %w", err)
	}
	if startOpen.IsZero() {
		return decimal.Zero, fmt.Errorf("window start open: %w", timeseries.ErrZeroPrice)
	}
	return e.mc.Div(eventOpen.Sub(startOpen), startOpen)
}

// ObservedReturn is the intraday return (adjClose - open) / open. ok is false
// when the instrument did not trade on date.
func (e *Evaluator) ObservedReturn(s *timeseries.Store, date time.Time) (r decimal.Decimal, ok bool, err error) {
	open, ok := s.ValueAt(timeseries.Open, date)
	if !ok {
		return decimal.Zero, false, nil
	}
	adj, ok := s.ValueAt(timeseries.AdjClose, date)
	if !ok {
		return decimal.Zero, false, nil
	}
	if open.IsZero() {
		return decimal.Zero, true, fmt.Errorf("%s open on %s: %w", s.Symbol(), date.Format(timeseries.DateLayout), timeseries.ErrZeroPrice)
	}
	r, err = e.mc.Div(adj.Sub(open), open)
	return r, true, err
}

// Abnormal evaluates one event-window day. ok is false for a non-trading day,
// which callers skip rather than treat as a zero return.
func (e *Evaluator) Abnormal(s *timeseries.Store, date time.Time, beta, erm decimal.Decimal) (model.DayResult, bool, error) {
	observed, ok, err := e.ObservedReturn(s, date)
	if err != nil || !ok {
		return model.DayResult{}, ok, err
	}
	exp := e.ExpectedReturn(date, beta, erm)
	return model.DayResult{
		Date:          model.Day(date),
		RiskFree:      exp.RiskFree,
		RiskFreeFound: exp.Found,
		Expected:      exp.Return,
		Observed:      observed,
		Abnormal:      observed.Sub(exp.Return),
	}, true, nil
}
