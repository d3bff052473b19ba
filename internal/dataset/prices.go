// Package dataset reads and writes the file formats exchanged with the
// outside world: price histories, the risk-free rate table and event lists.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"EventStudy/internal/model"
	"EventStudy/internal/timeseries"
)

// Format describes the separators of a delimited price file.
type Format struct {
	Comma   rune
	Decimal string
}

var (
	// Canonical is comma-separated with '.' decimals, as served by price feeds.
	Canonical = Format{Comma: ',', Decimal: "."}
	// Dutch is semicolon-separated with ',' decimals, as written by Dutch-locale spreadsheets.
	Dutch = Format{Comma: ';', Decimal: ","}
)

// ParseFormat maps a config name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "canonical", "csv":
		return Canonical, nil
	case "dutch", "nl":
		return Dutch, nil
	default:
		return Format{}, fmt.Errorf("unknown file format %q", name)
	}
}

var priceHeader = []string{timeseries.HeaderSentinel, "Open", "High", "Low", "Close", "Volume", "Adj Close"}

// ReadPriceCSV reads all records of a price file and normalises them to the
// canonical '.' decimal separator. Row validation is left to the time series
// parser so that malformed rows are dropped individually.
func ReadPriceCSV(r io.Reader, f Format) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = f.Comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read price csv: %w", err)
		}
		if f.Decimal != "." {
			for i := range rec {
				rec[i] = strings.ReplaceAll(rec[i], f.Decimal, ".")
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Localize replaces the '.' decimal separator of a canonical number with sep.
func Localize(s, sep string) string {
	if sep == "" || sep == "." {
		return s
	}
	return strings.Replace(s, ".", sep, 1)
}

// WritePriceCSV writes rows with a header in the given format.
func WritePriceCSV(w io.Writer, rows []model.PriceRow, f Format) error {
	writer := csv.NewWriter(w)
	writer.Comma = f.Comma
	if err := writer.Write(priceHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	localise := func(s string) string { return Localize(s, f.Decimal) }
	for _, r := range rows {
		rec := []string{
			r.Date.Format(timeseries.DateLayout),
			localise(r.Open.String()),
			localise(r.High.String()),
			localise(r.Low.String()),
			localise(r.Close.String()),
			fmt.Sprintf("%d", r.Volume),
			localise(r.AdjClose.String()),
		}
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("write row %s: %w", rec[0], err)
		}
	}
	writer.Flush()
	return writer.Error()
}
