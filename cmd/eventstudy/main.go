package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"EventStudy/internal/config"
	"EventStudy/internal/dataset"
	"EventStudy/internal/model"
	"EventStudy/internal/notifier"
	"EventStudy/internal/study"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "eventstudy COMPANY MARKET DD-MM-YYYY",
	Short: "Measure abnormal returns of a company around an event",
	Long: `Estimates the company's beta against its market over the year before the
event, then compares CAPM expected returns with observed intraday returns for
the trading days of the event window.`,
	Args:              cobra.ExactArgs(3),
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
	RunE:         runSingle,
}

func init() {
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultPath, "Configuration file path")
	rootCmd.AddCommand(autoCmd, trendCmd, scheduleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(*cobra.Command, []string) error {
	var err error
	cfg, err = config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	logger, err = newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.Debug("configuration loaded",
		zap.String("path", cfgPath),
		zap.String("provider", cfg.Source.Provider),
		zap.String("data_dir", cfg.Data.Dir))
	return nil
}

func newLogger(c *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runSingle(cmd *cobra.Command, args []string) error {
	date, err := dataset.ParseEventDate(args[2])
	if err != nil {
		return err
	}
	req := model.EventRequest{Company: args[0], Market: args[1], EventDate: date}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.driver.Run(ctx, req)
	a.sched.Publish(ctx, study.Outcome{Request: req, Report: report, Err: err})
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), notifier.PlainText(notifier.FormatReport(report, cfg.Output.DecimalSeparator)))
	return nil
}
