package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"EventStudy/internal/dataset"
	"EventStudy/internal/model"
	"EventStudy/internal/timeseries"

	"go.uber.org/zap"
)

// ArchiveDateLayout is the date format used in archive file names.
const ArchiveDateLayout = "20060102"

// ArchivePath names the archive file of symbol for [from, to).
func ArchivePath(dir, symbol string, from, to time.Time) string {
	name := fmt.Sprintf("%s_%s-%s.csv", symbol, from.Format(ArchiveDateLayout), to.Format(ArchiveDateLayout))
	return filepath.Join(dir, name)
}

// CSVFetcher reads price files from a local directory. It looks for the
// archive written for the exact range first and falls back to {symbol}.csv.
type CSVFetcher struct {
	Dir    string
	Format dataset.Format
	Logger *zap.Logger
}

// NewCSVFetcher creates a local file source.
func NewCSVFetcher(dir string, format dataset.Format, logger *zap.Logger) *CSVFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVFetcher{Dir: dir, Format: format, Logger: logger}
}

func (f *CSVFetcher) Name() string { return "csv" }

// FetchDaily reads the file for symbol and keeps the rows in [from, to).
// Malformed rows are logged and skipped.
func (f *CSVFetcher) FetchDaily(_ context.Context, symbol string, from, to time.Time) ([]model.PriceRow, error) {
	candidates := []string{
		ArchivePath(f.Dir, symbol, from, to),
		filepath.Join(f.Dir, symbol+".csv"),
	}
	for _, path := range candidates {
		file, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		records, err := dataset.ReadPriceCSV(file, f.Format)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		rows, warnings := timeseries.ParseRecords(records, timeseries.DateLayout)
		for _, w := range warnings {
			f.Logger.Warn("skipping price row", zap.String("symbol", symbol), zap.String("file", path), zap.Error(w))
		}
		return inRange(rows, from, to), nil
	}
	return nil, fmt.Errorf("no price file for %s in %s: %w", symbol, f.Dir, ErrNoData)
}
