package main

import (
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Re-run the events file on the configured cron schedule",
	Args:  cobra.NoArgs,
	RunE:  runSchedule,
}

var runOnStart bool

func init() {
	scheduleCmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "Run the batch once before waiting for the schedule")
}

func runSchedule(*cobra.Command, []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sched.Register(cfg.Schedule.Cron); err != nil {
		return err
	}
	a.sched.Start()
	// Runs before a.Close, so recorders outlive any batch still publishing.
	defer a.sched.Stop()

	if runOnStart {
		logger.Info("run-on-start enabled, executing batch now")
		a.sched.RunAsync(ctx)
	}

	logger.Info("eventstudy scheduler is running, press Ctrl+C to stop")
	<-ctx.Done()
	logger.Info("shutdown signal received, stopping")
	return nil
}
