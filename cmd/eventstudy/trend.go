package main

import (
	"fmt"

	"EventStudy/internal/dataset"
	"EventStudy/internal/notifier"
	"EventStudy/internal/study"

	"github.com/spf13/cobra"
)

var trendCmd = &cobra.Command{
	Use:   "trend COMPANY DD-MM-YYYY",
	Short: "Compare the price trend before and after an event",
	Args:  cobra.ExactArgs(2),
	RunE:  runTrend,
}

func runTrend(cmd *cobra.Command, args []string) error {
	event, err := dataset.ParseEventDate(args[1])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	mc, err := cfg.MathContext()
	if err != nil {
		return err
	}
	opts := study.TrendOptions{
		DaysBefore:      cfg.Analysis.TrendDaysBefore,
		DaysAfter:       cfg.Analysis.EventWindowDays,
		SearchLimitDays: cfg.Analysis.SearchLimitDays,
		MC:              mc,
	}
	from := event.AddDate(0, 0, -opts.DaysBefore)
	to := event.AddDate(0, 0, max(opts.DaysAfter, opts.SearchLimitDays))
	series, err := a.collector.Load(ctx, args[0], from, to)
	if err != nil {
		return err
	}

	rep, err := study.Trend(series, event, opts)
	if err != nil {
		return fmt.Errorf("trend %s: %w", args[0], err)
	}
	a.recordTrend(rep)
	msg := notifier.FormatTrend(rep, cfg.Output.DecimalSeparator)
	a.send(ctx, msg)
	fmt.Fprint(cmd.OutOrStdout(), notifier.PlainText(msg))
	return nil
}
