package timeseries

import (
	"errors"
	"fmt"
	"time"

	"EventStudy/internal/model"

	"github.com/shopspring/decimal"
)

// ErrNoObservation is returned when a bounded search finds no trading day.
var ErrNoObservation = errors.New("no observation found")

// FirstOnOrAfter returns the first date in [date, date+limitDays) on which
// field is present, together with its value.
func FirstOnOrAfter(s *Store, field Field, date time.Time, limitDays int) (time.Time, decimal.Decimal, error) {
	start := model.Day(date)
	w := NewWalker(s, start, start.AddDate(0, 0, limitDays))
	for d := range w.All() {
		if v, ok := s.ValueAt(field, d); ok {
			return d, v, nil
		}
	}
	return time.Time{}, decimal.Zero, fmt.Errorf("%s %s on or after %s within %d days: %w",
		s.Symbol(), field, start.Format(DateLayout), limitDays, ErrNoObservation)
}

// LastOnOrBefore returns the last date in (date-limitDays, date] on which
// field is present, together with its value.
func LastOnOrBefore(s *Store, field Field, date time.Time, limitDays int) (time.Time, decimal.Decimal, error) {
	end := model.Day(date).AddDate(0, 0, 1)
	w := NewWalker(s, end.AddDate(0, 0, -limitDays), end)
	var (
		found bool
		day   time.Time
		value decimal.Decimal
	)
	for d := range w.All() {
		if v, ok := s.ValueAt(field, d); ok {
			found, day, value = true, d, v
		}
	}
	if !found {
		return time.Time{}, decimal.Zero, fmt.Errorf("%s %s on or before %s within %d days: %w",
			s.Symbol(), field, model.Day(date).Format(DateLayout), limitDays, ErrNoObservation)
	}
	return day, value, nil
}
