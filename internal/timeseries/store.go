// Package timeseries holds per-instrument daily price series and the
// date-walking primitives built on them.
package timeseries

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"EventStudy/internal/model"

	"github.com/shopspring/decimal"
)

// Field selects one of the decimal price series of a Store.
type Field int

const (
	Open Field = iota
	High
	Low
	Close
	AdjClose
	numFields
)

func (f Field) String() string {
	switch f {
	case Open:
		return "open"
	case High:
		return "high"
	case Low:
		return "low"
	case Close:
		return "close"
	case AdjClose:
		return "adj_close"
	default:
		return "unknown"
	}
}

// DateLayout is the canonical date format of ingested rows.
const DateLayout = "2006-01-02"

// HeaderSentinel is the date cell of a header row.
const HeaderSentinel = "Date"

// Store is an immutable set of date-keyed series for one instrument. Every
// field map is built from the same rows, so a date present in one field is
// present in all of them.
type Store struct {
	symbol string
	dates  []time.Time
	prices [numFields]map[time.Time]decimal.Decimal
	volume map[time.Time]int64
}

// New builds a Store from typed rows. Dates are truncated to the day; when two
// rows share a date the later row wins.
func New(symbol string, rows []model.PriceRow) *Store {
	s := &Store{
		symbol: symbol,
		volume: make(map[time.Time]int64, len(rows)),
	}
	for f := range s.prices {
		s.prices[f] = make(map[time.Time]decimal.Decimal, len(rows))
	}
	for _, r := range rows {
		day := model.Day(r.Date)
		if _, seen := s.volume[day]; !seen {
			s.dates = append(s.dates, day)
		}
		s.prices[Open][day] = r.Open
		s.prices[High][day] = r.High
		s.prices[Low][day] = r.Low
		s.prices[Close][day] = r.Close
		s.prices[AdjClose][day] = r.AdjClose
		s.volume[day] = r.Volume
	}
	sort.Slice(s.dates, func(i, j int) bool { return s.dates[i].Before(s.dates[j]) })
	return s
}

// RowError describes a record dropped during parsing.
type RowError struct {
	Line   int
	Date   string
	Reason error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d (date %q): %v", e.Line, e.Date, e.Reason)
}

func (e *RowError) Unwrap() error { return e.Reason }

// ParseRecords converts canonical string records
// (date, open, high, low, close, volume, adjClose) into rows. Records with an
// empty date or the header sentinel are skipped silently. A record with any
// unparseable cell is dropped as a whole and reported in the returned
// warnings; parsing continues with the next record.
func ParseRecords(records [][]string, layout string) ([]model.PriceRow, []error) {
	if layout == "" {
		layout = DateLayout
	}
	rows := make([]model.PriceRow, 0, len(records))
	var warnings []error
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		date := strings.TrimSpace(rec[0])
		if date == "" || date == HeaderSentinel {
			continue
		}
		row, err := parseRecord(rec, layout)
		if err != nil {
			warnings = append(warnings, &RowError{Line: i + 1, Date: date, Reason: err})
			continue
		}
		rows = append(rows, row)
	}
	return rows, warnings
}

// Parse is ParseRecords followed by New.
func Parse(symbol string, records [][]string, layout string) (*Store, []error) {
	rows, warnings := ParseRecords(records, layout)
	return New(symbol, rows), warnings
}

func parseRecord(rec []string, layout string) (model.PriceRow, error) {
	if len(rec) < 7 {
		return model.PriceRow{}, fmt.Errorf("expected 7 fields, got %d", len(rec))
	}
	date, err := time.Parse(layout, strings.TrimSpace(rec[0]))
	if err != nil {
		return model.PriceRow{}, fmt.Errorf("parse date: %w", err)
	}
	var prices [5]decimal.Decimal
	for i, idx := range []int{1, 2, 3, 4, 6} {
		p, err := decimal.NewFromString(strings.TrimSpace(rec[idx]))
		if err != nil {
			return model.PriceRow{}, fmt.Errorf("parse field %d: %w", idx, err)
		}
		prices[i] = p
	}
	volume, err := strconv.ParseInt(strings.TrimSpace(rec[5]), 10, 64)
	if err != nil {
		return model.PriceRow{}, fmt.Errorf("parse volume: %w", err)
	}
	return model.PriceRow{
		Date:     model.Day(date),
		Open:     prices[0],
		High:     prices[1],
		Low:      prices[2],
		Close:    prices[3],
		Volume:   volume,
		AdjClose: prices[4],
	}, nil
}

// Symbol returns the instrument handle the store was built for.
func (s *Store) Symbol() string { return s.symbol }

// Len is the number of distinct trading dates.
func (s *Store) Len() int { return len(s.dates) }

// ValueAt returns the value of field on date. ok is false when the instrument
// did not trade that day; the zero decimal is never a stand-in for absence.
func (s *Store) ValueAt(field Field, date time.Time) (v decimal.Decimal, ok bool) {
	if field < 0 || field >= numFields {
		return decimal.Zero, false
	}
	v, ok = s.prices[field][model.Day(date)]
	return v, ok
}

// Volume returns the traded volume on date.
func (s *Store) Volume(date time.Time) (int64, bool) {
	v, ok := s.volume[model.Day(date)]
	return v, ok
}

// Has reports whether date is a trading day for this instrument.
func (s *Store) Has(date time.Time) bool {
	_, ok := s.volume[model.Day(date)]
	return ok
}

// Dates returns a copy of the trading dates in ascending order.
func (s *Store) Dates() []time.Time {
	out := make([]time.Time, len(s.dates))
	copy(out, s.dates)
	return out
}

// Rows reconstructs the store's rows in date order.
func (s *Store) Rows() []model.PriceRow {
	rows := make([]model.PriceRow, 0, len(s.dates))
	for _, d := range s.dates {
		rows = append(rows, model.PriceRow{
			Date:     d,
			Open:     s.prices[Open][d],
			High:     s.prices[High][d],
			Low:      s.prices[Low][d],
			Close:    s.prices[Close][d],
			Volume:   s.volume[d],
			AdjClose: s.prices[AdjClose][d],
		})
	}
	return rows
}

// First and Last return the date bounds of the series.
func (s *Store) First() (time.Time, bool) {
	if len(s.dates) == 0 {
		return time.Time{}, false
	}
	return s.dates[0], true
}

func (s *Store) Last() (time.Time, bool) {
	if len(s.dates) == 0 {
		return time.Time{}, false
	}
	return s.dates[len(s.dates)-1], true
}
