package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRow is one canonical daily observation for an instrument.
type PriceRow struct {
	Date     time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   int64
	AdjClose decimal.Decimal
}

// RiskFreeRow is one entry of the risk-free rate table.
type RiskFreeRow struct {
	Date  time.Time
	Tenor string
	Rate  decimal.Decimal
}

// Day truncates t to its calendar date in UTC. Every date used as a series
// key passes through Day so that equal dates compare equal as map keys.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
