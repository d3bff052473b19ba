package study

import (
	"context"

	"EventStudy/internal/model"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one event in a batch: either a report or an error.
type Outcome struct {
	Request model.EventRequest
	Report  *model.Report
	Err     error
}

// Runner is the single-event operation a Batch fans out over.
type Runner interface {
	Run(ctx context.Context, req model.EventRequest) (*model.Report, error)
}

// Batch runs independent event studies with bounded parallelism. Events share
// only read-only data, so no coordination is needed between workers.
type Batch struct {
	Runner  Runner
	Workers int
	Logger  *zap.Logger
}

// NewBatch creates a Batch with at least one worker.
func NewBatch(r Runner, workers int, logger *zap.Logger) *Batch {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batch{Runner: r, Workers: workers, Logger: logger}
}

// Run studies every request and returns outcomes in request order. A failing
// event does not stop the others; only context cancellation does.
func (b *Batch) Run(ctx context.Context, reqs []model.EventRequest) ([]Outcome, error) {
	outcomes := make([]Outcome, len(reqs))
	for i, req := range reqs {
		outcomes[i].Request = req
	}
	g := new(errgroup.Group)
	g.SetLimit(b.Workers)

	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Request: req, Err: err}
				return err
			}
			report, err := b.Runner.Run(ctx, req)
			if err != nil {
				b.Logger.Error("event study failed", zap.String("event", req.String()), zap.Error(err))
			}
			outcomes[i] = Outcome{Request: req, Report: report, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	b.Logger.Info("batch complete", zap.Int("events", len(reqs)), zap.Int("failed", failed))
	return outcomes, nil
}
