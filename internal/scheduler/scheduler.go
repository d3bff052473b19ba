// Package scheduler re-runs the batch event list on a cron schedule and
// publishes every outcome.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"

	"EventStudy/internal/dataset"
	"EventStudy/internal/notifier"
	"EventStudy/internal/recorder"
	"EventStudy/internal/study"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the cron-driven batch task.
type Scheduler struct {
	Cron       *cron.Cron
	Batch      *study.Batch
	EventsFile string
	Recorder   recorder.Recorder
	Notifier   Sender // optional
	DecimalSep string
	Logger     *zap.Logger
	Ctx        context.Context

	running    sync.Mutex
	background sync.WaitGroup
}

// NewScheduler creates a new Scheduler. A nil notifier disables delivery.
func NewScheduler(ctx context.Context, batch *study.Batch, eventsFile string, rec recorder.Recorder, n Sender, logger *zap.Logger) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Batch:      batch,
		EventsFile: eventsFile,
		Recorder:   rec,
		Notifier:   n,
		DecimalSep: ".",
		Logger:     logger,
		Ctx:        ctx,
	}
}

// Register schedules the batch task with a six-field cron spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.batchTask); err != nil {
		return fmt.Errorf("register batch task: %w", err)
	}
	s.Logger.Info("batch task registered", zap.String("cron", spec))
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running cron tasks and
// RunAsync batches to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.background.Wait()
	s.Logger.Info("scheduler stopped")
}

// RunAsync starts RunNow in the background. Stop waits for it.
func (s *Scheduler) RunAsync(ctx context.Context) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.RunNow(ctx); err != nil {
			s.Logger.Error("background batch failed", zap.Error(err))
		}
	}()
}

func (s *Scheduler) batchTask() {
	if _, err := s.RunNow(s.Ctx); err != nil {
		s.Logger.Error("scheduled batch failed", zap.Error(err))
	}
}

// RunNow reads the event list, studies every event and publishes each
// outcome. Overlapping runs are serialised.
func (s *Scheduler) RunNow(ctx context.Context) ([]study.Outcome, error) {
	s.running.Lock()
	defer s.running.Unlock()

	f, err := os.Open(s.EventsFile)
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	reqs, warnings, err := dataset.ReadEvents(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("read events %s: %w", s.EventsFile, err)
	}
	for _, w := range warnings {
		s.Logger.Warn("skipping event row", zap.String("file", s.EventsFile), zap.Error(w))
	}
	s.Logger.Info("running batch", zap.String("file", s.EventsFile), zap.Int("events", len(reqs)))

	outcomes, err := s.Batch.Run(ctx, reqs)
	if err != nil {
		return outcomes, err
	}
	for _, o := range outcomes {
		s.Publish(ctx, o)
	}
	return outcomes, nil
}

// Publish records an outcome and sends it to the notifier if one is set.
// Delivery failures are logged, never returned.
func (s *Scheduler) Publish(ctx context.Context, o study.Outcome) {
	var text string
	if o.Err != nil {
		if err := s.Recorder.RecordFailure(o.Request, o.Err); err != nil {
			s.Logger.Error("record failure", zap.String("event", o.Request.String()), zap.Error(err))
		}
		text = notifier.FormatFailure(o.Request, o.Err)
	} else {
		if err := s.Recorder.RecordReport(o.Report); err != nil {
			s.Logger.Error("record report", zap.String("event", o.Request.String()), zap.Error(err))
		}
		text = notifier.FormatReport(o.Report, s.DecimalSep)
	}
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		s.Logger.Error("send notification", zap.String("event", o.Request.String()), zap.Error(err))
	}
}
