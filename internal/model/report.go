package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayResult is one row of the event-window comparison table.
type DayResult struct {
	Date     time.Time
	RiskFree decimal.Decimal
	// RiskFreeFound is false when the risk-free table had no exact match and
	// the configured fallback was used.
	RiskFreeFound bool
	Expected      decimal.Decimal // CAPM expected return ("CAR")
	Observed      decimal.Decimal // (adjClose - open) / open
	Abnormal      decimal.Decimal // Observed - Expected
}

// Report is the complete, immutable result of one event study.
type Report struct {
	RunID        string
	Request      EventRequest
	Beta         decimal.Decimal
	RawBeta      decimal.Decimal
	Observations int
	ERM          decimal.Decimal
	WindowStart  time.Time
	WindowEnd    time.Time
	Days         []DayResult
	CreatedAt    time.Time
}

// TrendReport is the result of the linear-trend comparison around an event.
type TrendReport struct {
	Company           string
	EventDate         time.Time
	DaysBefore        int
	DaysAfter         int
	SlopeBefore       decimal.Decimal
	SlopeDuring       decimal.Decimal
	Difference        decimal.Decimal
	EventOpen         decimal.Decimal
	PercentDifference decimal.Decimal
}

// CumulativeAbnormal sums the abnormal returns over the event window.
func (r *Report) CumulativeAbnormal() decimal.Decimal {
	sum := decimal.Zero
	for _, d := range r.Days {
		sum = sum.Add(d.Abnormal)
	}
	return sum
}
