// Package recorder persists event-study results.
package recorder

import (
	"errors"

	"EventStudy/internal/model"
)

// Recorder persists reports and failures for later analysis.
// Implementations must be safe for concurrent use by batch workers.
type Recorder interface {
	RecordReport(r *model.Report) error
	RecordTrend(t *model.TrendReport) error
	RecordFailure(req model.EventRequest, cause error) error
	Close() error
}

// NoopRecorder is a no-op implementation used when no sink is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordReport(_ *model.Report) error                { return nil }
func (n *NoopRecorder) RecordTrend(_ *model.TrendReport) error            { return nil }
func (n *NoopRecorder) RecordFailure(_ model.EventRequest, _ error) error { return nil }
func (n *NoopRecorder) Close() error                                      { return nil }

// Multi fans every record out to all of its recorders and joins their errors.
type Multi []Recorder

func (m Multi) RecordReport(r *model.Report) error {
	var errs []error
	for _, rec := range m {
		errs = append(errs, rec.RecordReport(r))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordTrend(t *model.TrendReport) error {
	var errs []error
	for _, rec := range m {
		errs = append(errs, rec.RecordTrend(t))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordFailure(req model.EventRequest, cause error) error {
	var errs []error
	for _, rec := range m {
		errs = append(errs, rec.RecordFailure(req, cause))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, rec := range m {
		errs = append(errs, rec.Close())
	}
	return errors.Join(errs...)
}
