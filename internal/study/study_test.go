package study

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"EventStudy/internal/capm"
	"EventStudy/internal/mathctx"
	"EventStudy/internal/model"
	"EventStudy/internal/regression"
	"EventStudy/internal/timeseries"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type mapLoader map[string]*timeseries.Store

func (m mapLoader) Load(_ context.Context, symbol string, _, _ time.Time) (*timeseries.Store, error) {
	s, ok := m[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	return s, nil
}

// weekdays returns every Monday-Friday date in [from, to).
func weekdays(from, to time.Time) []time.Time {
	var out []time.Time
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

// fixture builds a market alternating +1%/-1% moves and a company moving
// exactly twice as much, with intraday returns of +2% in the event window.
func fixture(event time.Time) (company, market *timeseries.Store) {
	dates := weekdays(event.AddDate(-1, 0, -5), event.AddDate(0, 0, 10))
	mkt := decimal.NewFromInt(1000)
	comp := decimal.NewFromInt(50)
	var mRows, cRows []model.PriceRow
	for i, d := range dates {
		if i > 0 {
			r := dec("0.01")
			if i%2 == 0 {
				r = dec("-0.01")
			}
			mkt = mkt.Mul(decimal.NewFromInt(1).Add(r))
			comp = comp.Mul(decimal.NewFromInt(1).Add(r.Mul(decimal.NewFromInt(2))))
		}
		mRows = append(mRows, model.PriceRow{Date: d, Open: mkt, High: mkt, Low: mkt, Close: mkt, AdjClose: mkt, Volume: 1})
		open, adj := comp, comp
		if !d.Before(event) {
			adj = comp.Mul(dec("1.02"))
		}
		cRows = append(cRows, model.PriceRow{Date: d, Open: open, High: adj, Low: open, Close: adj, AdjClose: adj, Volume: 1})
	}
	return timeseries.New("ACME", cRows), timeseries.New("IDX", mRows)
}

func TestDriver_Run(t *testing.T) {
	event := day(2020, 3, 4) // Wednesday
	company, market := fixture(event)
	table := capm.NewRiskFreeTable(capm.DefaultTenor, []model.RiskFreeRow{
		{Date: event, Tenor: capm.DefaultTenor, Rate: dec("0.01")},
	})
	drv := NewDriver(mapLoader{"ACME": company, "IDX": market}, capm.NewEvaluator(table, mathctx.Default), DefaultOptions(), nil)

	rep, err := drv.Run(context.Background(), model.EventRequest{Company: "ACME", Market: "IDX", EventDate: event})
	require.NoError(t, err)
	require.NotNil(t, rep)

	assert.NotEmpty(t, rep.RunID)
	assert.True(t, rep.RawBeta.Sub(dec("2")).Abs().LessThan(dec("0.0001")), "raw beta %s", rep.RawBeta)
	assert.True(t, rep.Beta.Sub(dec("1.6666666667")).Abs().LessThan(dec("0.0001")), "beta %s", rep.Beta)

	// Wed 4, Thu 5, Fri 6 March; the weekend is skipped.
	require.Len(t, rep.Days, 3)
	assert.Equal(t, event, rep.Days[0].Date)
	assert.True(t, rep.Days[0].RiskFreeFound)
	assert.False(t, rep.Days[1].RiskFreeFound)
	for _, d := range rep.Days {
		assert.True(t, d.Observed.Equal(dec("0.02")), "observed %s", d.Observed)
		assert.True(t, d.Abnormal.Equal(d.Observed.Sub(d.Expected)))
	}
	want := capm.NewEvaluator(table, mathctx.Default).ExpectedReturn(event, rep.Beta, rep.ERM)
	assert.True(t, rep.Days[0].Expected.Equal(want.Return))
}

func TestDriver_DegenerateEstimationProducesNoReport(t *testing.T) {
	event := day(2020, 3, 4)
	company, _ := fixture(event)
	flat := make([]model.PriceRow, 0)
	for _, d := range weekdays(event.AddDate(-1, 0, 0), event.AddDate(0, 0, 10)) {
		flat = append(flat, model.PriceRow{Date: d, Open: dec("100"), AdjClose: dec("100"), Close: dec("100"), Volume: 1})
	}
	market := timeseries.New("IDX", flat)
	drv := NewDriver(mapLoader{"ACME": company, "IDX": market}, capm.NewEvaluator(nil, mathctx.Default), DefaultOptions(), nil)

	rep, err := drv.Run(context.Background(), model.EventRequest{Company: "ACME", Market: "IDX", EventDate: event})
	assert.Nil(t, rep)
	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseEstimation, pe.Phase)
	assert.ErrorIs(t, err, regression.ErrDegenerate)
}

func TestDriver_LoadFailure(t *testing.T) {
	drv := NewDriver(mapLoader{}, capm.NewEvaluator(nil, mathctx.Default), DefaultOptions(), nil)
	_, err := drv.Run(context.Background(), model.EventRequest{Company: "ACME", Market: "IDX", EventDate: day(2020, 3, 4)})
	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseLoad, pe.Phase)
}

type fakeRunner struct {
	calls atomic.Int32
}

func (f *fakeRunner) Run(_ context.Context, req model.EventRequest) (*model.Report, error) {
	f.calls.Add(1)
	if req.Company == "BAD" {
		return nil, errors.New("boom")
	}
	return &model.Report{Request: req}, nil
}

func TestBatch_IndependentEventsInOrder(t *testing.T) {
	reqs := []model.EventRequest{
		{Company: "A", Market: "IDX", EventDate: day(2020, 1, 2)},
		{Company: "BAD", Market: "IDX", EventDate: day(2020, 1, 3)},
		{Company: "C", Market: "IDX", EventDate: day(2020, 1, 6)},
	}
	r := &fakeRunner{}
	out, err := NewBatch(r, 2, nil).Run(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, int32(3), r.calls.Load())

	assert.NoError(t, out[0].Err)
	assert.Equal(t, "A", out[0].Report.Request.Company)
	assert.Error(t, out[1].Err)
	assert.Nil(t, out[1].Report)
	assert.Equal(t, "BAD", out[1].Request.Company)
	assert.Equal(t, "C", out[2].Report.Request.Company)
}

func TestBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &fakeRunner{}
	_, err := NewBatch(r, 1, nil).Run(ctx, []model.EventRequest{{Company: "A"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), r.calls.Load())
}

func TestTrend(t *testing.T) {
	event := day(2020, 3, 2) // Monday
	var rows []model.PriceRow
	for i, d := range weekdays(event.AddDate(0, 0, -30), event.AddDate(0, 0, 7)) {
		v := decimal.NewFromInt(int64(100 + i))
		if !d.Before(event) {
			v = decimal.NewFromInt(int64(100 + 4*i))
		}
		rows = append(rows, model.PriceRow{Date: d, Open: dec("200"), AdjClose: v, Close: v, Volume: 1})
	}
	s := timeseries.New("ACME", rows)

	rep, err := Trend(s, event, TrendOptions{DaysBefore: 30, DaysAfter: 5, SearchLimitDays: 5, MC: mathctx.Default})
	require.NoError(t, err)
	assert.True(t, rep.SlopeBefore.Equal(dec("1")), "before %s", rep.SlopeBefore)
	assert.True(t, rep.SlopeDuring.Equal(dec("4")), "during %s", rep.SlopeDuring)
	assert.True(t, rep.Difference.Equal(dec("3")))
	assert.True(t, rep.EventOpen.Equal(dec("200")))
	assert.True(t, rep.PercentDifference.Equal(dec("1.5")), "pct %s", rep.PercentDifference)
}

func TestTrend_NoDataAfterEvent(t *testing.T) {
	rows := []model.PriceRow{
		{Date: day(2020, 1, 2), Open: dec("1"), AdjClose: dec("1")},
		{Date: day(2020, 1, 3), Open: dec("1"), AdjClose: dec("2")},
	}
	_, err := Trend(timeseries.New("ACME", rows), day(2020, 6, 1), DefaultTrendOptions())
	assert.ErrorIs(t, err, regression.ErrDegenerate)
}
