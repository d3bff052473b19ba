package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"EventStudy/internal/model"

	"github.com/shopspring/decimal"
)

// EventDateLayout is dd-MM-yyyy, used by the risk-free table, event lists and
// command-line dates.
const EventDateLayout = "02-01-2006"

// ParseEventDate parses a dd-MM-yyyy date.
func ParseEventDate(s string) (time.Time, error) {
	t, err := time.Parse(EventDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not in dd-mm-yyyy format: %w", s, err)
	}
	return t, nil
}

// ReadRiskFree parses "date;tenor;rate" rows, with dd-MM-yyyy dates and ','
// decimals. Rows that fail to parse are skipped and returned as warnings.
func ReadRiskFree(r io.Reader) ([]model.RiskFreeRow, []error, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		rows     []model.RiskFreeRow
		warnings []error
		line     int
	)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read risk-free table: %w", err)
		}
		line++
		if len(rec) < 3 {
			warnings = append(warnings, fmt.Errorf("risk-free line %d: expected 3 fields, got %d", line, len(rec)))
			continue
		}
		date, err := time.Parse(EventDateLayout, strings.TrimSpace(rec[0]))
		if err != nil {
			warnings = append(warnings, fmt.Errorf("risk-free line %d: %w", line, err))
			continue
		}
		rate, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(rec[2]), ",", "."))
		if err != nil {
			warnings = append(warnings, fmt.Errorf("risk-free line %d: %w", line, err))
			continue
		}
		rows = append(rows, model.RiskFreeRow{
			Date:  model.Day(date),
			Tenor: strings.TrimSpace(rec[1]),
			Rate:  rate,
		})
	}
	return rows, warnings, nil
}
