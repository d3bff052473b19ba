package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"EventStudy/internal/capm"
	"EventStudy/internal/collector"
	"EventStudy/internal/config"
	"EventStudy/internal/dataset"
	"EventStudy/internal/model"
	"EventStudy/internal/notifier"
	"EventStudy/internal/recorder"
	"EventStudy/internal/scheduler"
	"EventStudy/internal/study"

	"go.uber.org/zap"
)

// app wires the components shared by every command.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *collector.Collector
	driver    *study.Driver
	recorder  recorder.Recorder
	notifier  *notifier.TelegramNotifier
	sched     *scheduler.Scheduler
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	mc, err := cfg.MathContext()
	if err != nil {
		return nil, err
	}

	var fetcher collector.Fetcher
	switch cfg.Source.Provider {
	case "csv":
		fetcher = collector.NewCSVFetcher(cfg.Data.Dir, cfg.PriceFormat(), logger)
	case "mock":
		fetcher = &collector.MockFetcher{}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Source.BaseURL, cfg.Source.Proxy, cfg.Source.Timeout)
	}
	logger.Info("data source", zap.String("provider", fetcher.Name()))

	col := collector.NewCollector(fetcher, cfg.Source.CacheTTL, logger)
	if cfg.Data.ArchiveDownloads {
		col.ArchiveDir = cfg.Data.Dir
		col.ArchiveFormat = cfg.PriceFormat()
	}

	table, err := loadRiskFree(cfg, logger)
	if err != nil {
		return nil, err
	}
	fallback, err := cfg.RiskFreeFallback()
	if err != nil {
		return nil, err
	}
	ev := capm.NewEvaluator(table, mc,
		capm.WithFallback(fallback),
		capm.WithSearchLimit(cfg.Analysis.SearchLimitDays))

	drv := study.NewDriver(col, ev, study.Options{
		EstimationYears: cfg.Analysis.EstimationYears,
		EventWindowDays: cfg.Analysis.EventWindowDays,
		MC:              mc,
	}, logger)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		collector: col,
		driver:    drv,
		recorder:  newRecorder(cfg, logger),
	}

	var sender scheduler.Sender
	if cfg.TelegramEnabled() {
		a.notifier = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Source.Proxy, logger)
		sender = a.notifier
	}
	batch := study.NewBatch(drv, cfg.Analysis.Workers, logger)
	a.sched = scheduler.NewScheduler(ctx, batch, cfg.Data.EventsFile, a.recorder, sender, logger)
	a.sched.DecimalSep = cfg.Output.DecimalSeparator
	return a, nil
}

// loadRiskFree reads the risk-free table. A missing file leaves every date
// on the fallback rate.
func loadRiskFree(cfg *config.Config, logger *zap.Logger) (*capm.RiskFreeTable, error) {
	f, err := os.Open(cfg.Data.RiskFreeFile)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("risk-free file not found, using fallback rate",
			zap.String("path", cfg.Data.RiskFreeFile), zap.String("fallback", cfg.Analysis.RiskFreeFallback))
		return capm.NewRiskFreeTable(cfg.Analysis.RiskFreeTenor, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open risk-free file: %w", err)
	}
	defer f.Close()

	rows, warnings, err := dataset.ReadRiskFree(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cfg.Data.RiskFreeFile, err)
	}
	for _, w := range warnings {
		logger.Warn("skipping risk-free row", zap.Error(w))
	}
	table := capm.NewRiskFreeTable(cfg.Analysis.RiskFreeTenor, rows)
	logger.Info("risk-free table loaded",
		zap.String("tenor", table.Tenor()), zap.Int("dates", table.Len()))
	return table, nil
}

func newRecorder(cfg *config.Config, logger *zap.Logger) recorder.Recorder {
	var multi recorder.Multi
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, skipping", zap.Error(err))
		} else {
			multi = append(multi, sr)
		}
	}
	if cfg.Output.LogFile != "" {
		lf, err := recorder.NewLogFileRecorder(cfg.Output.LogFile, cfg.Output.DecimalSeparator)
		if err != nil {
			logger.Warn("open result log failed, skipping", zap.Error(err))
		} else {
			multi = append(multi, lf)
		}
	}
	if len(multi) == 0 {
		return recorder.NewNoopRecorder()
	}
	return multi
}

func (a *app) send(ctx context.Context, text string) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.SendWithRetry(ctx, text, 3); err != nil {
		a.logger.Error("send notification", zap.Error(err))
	}
}

func (a *app) recordTrend(t *model.TrendReport) {
	if err := a.recorder.RecordTrend(t); err != nil {
		a.logger.Error("record trend", zap.String("company", t.Company), zap.Error(err))
	}
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.logger.Warn("close recorder", zap.Error(err))
	}
}
