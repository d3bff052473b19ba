// Package study runs event studies: beta estimation over a lookback window,
// then CAPM expected versus observed returns over the event window.
package study

import (
	"context"
	"fmt"
	"time"

	"EventStudy/internal/capm"
	"EventStudy/internal/mathctx"
	"EventStudy/internal/model"
	"EventStudy/internal/timeseries"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Loader supplies a price series covering [from, to).
type Loader interface {
	Load(ctx context.Context, symbol string, from, to time.Time) (*timeseries.Store, error)
}

// Phase names a step of the event-study state machine.
type Phase string

const (
	PhaseLoad        Phase = "load"
	PhaseEstimation  Phase = "estimation"
	PhaseEventWindow Phase = "event-window"
)

// PhaseError reports the phase in which an event study failed. A failed study
// never produces a partial report.
type PhaseError struct {
	Phase   Phase
	Request model.EventRequest
	Err     error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %s phase: %v", e.Request, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Options configures the windows of a study.
type Options struct {
	EstimationYears int
	EventWindowDays int
	MC              mathctx.Context
}

// DefaultOptions is a one-year estimation window and a five-day event window.
func DefaultOptions() Options {
	return Options{EstimationYears: 1, EventWindowDays: 5, MC: mathctx.Default}
}

// Driver runs one event study per call and keeps no state between calls, so
// a single Driver may serve concurrent studies.
type Driver struct {
	Loader    Loader
	Evaluator *capm.Evaluator
	Opts      Options
	Logger    *zap.Logger
}

// NewDriver creates a Driver.
func NewDriver(loader Loader, ev *capm.Evaluator, opts Options, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{Loader: loader, Evaluator: ev, Opts: opts, Logger: logger}
}

// Run loads the data for req and evaluates it.
func (d *Driver) Run(ctx context.Context, req model.EventRequest) (*model.Report, error) {
	event := model.Day(req.EventDate)
	from, _ := capm.EstimationWindow(event, d.Opts.EstimationYears)
	end := event.AddDate(0, 0, d.Opts.EventWindowDays)

	company, err := d.Loader.Load(ctx, req.Company, from, end)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseLoad, Request: req, Err: err}
	}
	market, err := d.Loader.Load(ctx, req.Market, from, end)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseLoad, Request: req, Err: err}
	}
	return d.Evaluate(req, company, market)
}

// Evaluate runs the estimation and event-window phases over already loaded
// series and assembles the report. Days on which the company did not trade
// are absent from the report.
func (d *Driver) Evaluate(req model.EventRequest, company, market *timeseries.Store) (*model.Report, error) {
	log := d.Logger.With(zap.String("event", req.String()))
	event := model.Day(req.EventDate)

	beta, err := capm.EstimateBeta(company, market, event, capm.BetaOptions{
		LookbackYears: d.Opts.EstimationYears,
		Field:         timeseries.AdjClose,
		MC:            d.Opts.MC,
	})
	if err != nil {
		return nil, &PhaseError{Phase: PhaseEstimation, Request: req, Err: err}
	}
	erm, err := d.Evaluator.MarketPremium(market, beta.From, event)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseEstimation, Request: req, Err: err}
	}
	log.Info("estimation complete",
		zap.String("beta", beta.Adjusted.String()),
		zap.String("raw_beta", beta.Raw.String()),
		zap.String("erm", erm.String()),
		zap.Int("observations", beta.Observations))

	end := event.AddDate(0, 0, d.Opts.EventWindowDays)
	var days []model.DayResult
	for cur := range timeseries.NewWalker(company, event, end).All() {
		res, ok, err := d.Evaluator.Abnormal(company, cur, beta.Adjusted, erm)
		if err != nil {
			return nil, &PhaseError{Phase: PhaseEventWindow, Request: req, Err: err}
		}
		if !ok {
			continue
		}
		if !res.RiskFreeFound {
			log.Warn("no risk-free rate for date, using fallback",
				zap.Time("date", cur), zap.String("rate", res.RiskFree.String()))
		}
		days = append(days, res)
	}

	report := &model.Report{
		RunID:        uuid.NewString(),
		Request:      req,
		Beta:         beta.Adjusted,
		RawBeta:      beta.Raw,
		Observations: beta.Observations,
		ERM:          erm,
		WindowStart:  beta.From,
		WindowEnd:    beta.To,
		Days:         days,
		CreatedAt:    time.Now(),
	}
	log.Info("report ready", zap.Int("days", len(days)), zap.String("run_id", report.RunID))
	return report, nil
}
