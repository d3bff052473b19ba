package collector

import (
	"context"
	"time"

	"EventStudy/internal/model"
)

// Fetcher defines the interface for fetching daily price history.
type Fetcher interface {
	// FetchDaily returns the rows dated in [from, to), oldest first.
	FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceRow, error)
	Name() string
}

func inRange(rows []model.PriceRow, from, to time.Time) []model.PriceRow {
	out := rows[:0:0]
	for _, r := range rows {
		if !r.Date.Before(from) && r.Date.Before(to) {
			out = append(out, r)
		}
	}
	return out
}
