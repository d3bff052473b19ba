// Package collector loads daily price series from a Fetcher, caching them
// per symbol and range and optionally archiving each download to disk.
package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"EventStudy/internal/dataset"
	"EventStudy/internal/timeseries"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrNoData is returned when a source has no rows for the requested range.
var ErrNoData = errors.New("no price data")

// Collector orchestrates fetching, caching and archiving of price series.
type Collector struct {
	Fetcher Fetcher
	// ArchiveDir, when set, receives a copy of every fresh download.
	ArchiveDir    string
	ArchiveFormat dataset.Format
	Logger        *zap.Logger

	cache  *cache.Cache
	flight singleflight.Group
}

// NewCollector creates a Collector whose cache entries live for ttl.
func NewCollector(fetcher Fetcher, ttl time.Duration, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		Fetcher:       fetcher,
		ArchiveFormat: dataset.Dutch,
		Logger:        logger,
		cache:         cache.New(ttl, 2*ttl),
	}
}

func cacheKey(symbol string, from, to time.Time) string {
	return fmt.Sprintf("%s|%s|%s", symbol, from.Format(timeseries.DateLayout), to.Format(timeseries.DateLayout))
}

// Load returns the series of symbol covering [from, to). Stores are
// immutable, so one cached store is shared by every caller, and concurrent
// misses for the same key share a single fetch. The shared fetch ignores
// cancellation of whichever caller started it; a cancelled caller stops
// waiting and gets its context error.
func (c *Collector) Load(ctx context.Context, symbol string, from, to time.Time) (*timeseries.Store, error) {
	key := cacheKey(symbol, from, to)
	if cached, found := c.cache.Get(key); found {
		return cached.(*timeseries.Store), nil
	}
	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		if cached, found := c.cache.Get(key); found {
			return cached, nil
		}
		store, err := c.fetch(shared, symbol, from, to)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, store, cache.DefaultExpiration)
		return store, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*timeseries.Store), nil
	}
}

func (c *Collector) fetch(ctx context.Context, symbol string, from, to time.Time) (*timeseries.Store, error) {
	rows, err := c.Fetcher.FetchDaily(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch %s from %s: %w", symbol, c.Fetcher.Name(), err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s between %s and %s: %w", symbol,
			from.Format(timeseries.DateLayout), to.Format(timeseries.DateLayout), ErrNoData)
	}
	store := timeseries.New(symbol, rows)
	c.Logger.Debug("loaded price series",
		zap.String("symbol", symbol), zap.String("source", c.Fetcher.Name()), zap.Int("rows", store.Len()))

	if c.ArchiveDir != "" && c.Fetcher.Name() != "csv" {
		if err := c.archive(store, from, to); err != nil {
			c.Logger.Warn("archive failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return store, nil
}

func (c *Collector) archive(s *timeseries.Store, from, to time.Time) error {
	if err := os.MkdirAll(c.ArchiveDir, 0o755); err != nil {
		return err
	}
	path := ArchivePath(c.ArchiveDir, s.Symbol(), from, to)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.WritePriceCSV(f, s.Rows(), c.ArchiveFormat); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
