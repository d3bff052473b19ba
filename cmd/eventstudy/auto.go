package main

import (
	"fmt"

	"EventStudy/internal/notifier"

	"github.com/spf13/cobra"
)

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Run every event listed in the events file",
	Long:  `Reads company;market;dd-mm-yyyy rows from the events file and studies them in parallel.`,
	Args:  cobra.NoArgs,
	RunE:  runAuto,
}

var autoEventsFile string

func init() {
	autoCmd.Flags().StringVar(&autoEventsFile, "events", "", "Events file (overrides data.events_file)")
}

func runAuto(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	if autoEventsFile != "" {
		a.sched.EventsFile = autoEventsFile
	}

	outcomes, err := a.sched.RunNow(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintln(out, notifier.PlainText(notifier.FormatFailure(o.Request, o.Err)))
			continue
		}
		fmt.Fprintln(out, notifier.PlainText(notifier.FormatReport(o.Report, cfg.Output.DecimalSeparator)))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d events failed", failed, len(outcomes))
	}
	return nil
}
