package capm

import (
	"time"

	"EventStudy/internal/model"

	"github.com/shopspring/decimal"
)

// DefaultTenor is the tenor label of the long-dated government rate.
const DefaultTenor = "Over_10_Years"

// RiskFreeSource looks up the risk-free rate for an exact date.
type RiskFreeSource interface {
	Rate(date time.Time) (decimal.Decimal, bool)
}

// RiskFreeTable is an immutable date -> rate lookup for one tenor. It is safe
// for concurrent reads.
type RiskFreeTable struct {
	tenor string
	rates map[time.Time]decimal.Decimal
}

// NewRiskFreeTable keeps the rows matching tenor. Later rows win on duplicate dates.
func NewRiskFreeTable(tenor string, rows []model.RiskFreeRow) *RiskFreeTable {
	t := &RiskFreeTable{tenor: tenor, rates: make(map[time.Time]decimal.Decimal)}
	for _, r := range rows {
		if r.Tenor != tenor {
			continue
		}
		t.rates[model.Day(r.Date)] = r.Rate
	}
	return t
}

// Rate returns the rate recorded for exactly date.
func (t *RiskFreeTable) Rate(date time.Time) (decimal.Decimal, bool) {
	r, ok := t.rates[model.Day(date)]
	return r, ok
}

// Tenor returns the tenor label this table was built for.
func (t *RiskFreeTable) Tenor() string { return t.tenor }

// Len is the number of dated rates.
func (t *RiskFreeTable) Len() int { return len(t.rates) }

// ConstantRate is a RiskFreeSource returning the same rate for every date.
type ConstantRate decimal.Decimal

func (c ConstantRate) Rate(time.Time) (decimal.Decimal, bool) {
	return decimal.Decimal(c), true
}
