package collector

import (
	"context"
	"sync/atomic"
	"time"

	"EventStudy/internal/model"

	"github.com/shopspring/decimal"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price decimal.Decimal
	Rows  map[string][]model.PriceRow
	Err   error

	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls reports how many times FetchDaily was invoked.
func (m *MockFetcher) Calls() int { return int(m.calls.Load()) }

// FetchDaily returns the configured rows for symbol, or a generated weekday
// series around Price when none are configured.
func (m *MockFetcher) FetchDaily(_ context.Context, symbol string, from, to time.Time) ([]model.PriceRow, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if rows, ok := m.Rows[symbol]; ok {
		return inRange(rows, from, to), nil
	}
	price := m.Price
	if price.IsZero() {
		price = decimal.NewFromInt(100)
	}
	return generateMockBars(price, from, to), nil
}

// generateMockBars produces a deterministic zig-zag series on weekdays.
func generateMockBars(base decimal.Decimal, from, to time.Time) []model.PriceRow {
	var rows []model.PriceRow
	step := decimal.RequireFromString("0.001")
	for d, i := model.Day(from), 0; d.Before(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		drift := step.Mul(decimal.NewFromInt(int64(i%7 - 3)))
		p := base.Mul(decimal.NewFromInt(1).Add(drift))
		rows = append(rows, model.PriceRow{
			Date:     d,
			Open:     p.Mul(decimal.RequireFromString("0.999")),
			High:     p.Mul(decimal.RequireFromString("1.005")),
			Low:      p.Mul(decimal.RequireFromString("0.995")),
			Close:    p,
			Volume:   1000000,
			AdjClose: p,
		})
		i++
	}
	return rows
}
