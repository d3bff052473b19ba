package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"EventStudy/internal/model"
)

// ReadEvents parses "company;market;dd-MM-yyyy" rows. Blank lines are
// ignored; rows with a bad date are skipped and returned as warnings.
func ReadEvents(r io.Reader) ([]model.EventRequest, []error, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		events   []model.EventRequest
		warnings []error
		line     int
	)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read events: %w", err)
		}
		line++
		if len(rec) < 3 {
			warnings = append(warnings, fmt.Errorf("events line %d: expected 3 fields, got %d", line, len(rec)))
			continue
		}
		date, err := ParseEventDate(rec[2])
		if err != nil {
			warnings = append(warnings, fmt.Errorf("events line %d: %w", line, err))
			continue
		}
		events = append(events, model.EventRequest{
			Company:   strings.TrimSpace(rec[0]),
			Market:    strings.TrimSpace(rec[1]),
			EventDate: model.Day(date),
		})
	}
	return events, warnings, nil
}
