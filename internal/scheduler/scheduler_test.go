package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"EventStudy/internal/model"
	"EventStudy/internal/study"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct{}

func (stubRunner) Run(_ context.Context, req model.EventRequest) (*model.Report, error) {
	if req.Company == "BAD" {
		return nil, errors.New("no data")
	}
	return &model.Report{Request: req, Beta: decimal.RequireFromString("1.5")}, nil
}

// gatedRunner blocks every Run until release is closed.
type gatedRunner struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedRunner) Run(ctx context.Context, req model.EventRequest) (*model.Report, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return stubRunner{}.Run(ctx, req)
}

type memRecorder struct {
	mu       sync.Mutex
	reports  []string
	failures []string
}

func (m *memRecorder) RecordReport(r *model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r.Request.Company)
	return nil
}

func (m *memRecorder) RecordTrend(*model.TrendReport) error { return nil }

func (m *memRecorder) RecordFailure(req model.EventRequest, _ error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, req.Company)
	return nil
}

func (m *memRecorder) Close() error { return nil }

type memSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *memSender) SendWithRetry(_ context.Context, text string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	return m.err
}

func eventsFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attacks.csv")
	body := "ACME;AEX;04-03-2020\nBAD;AEX;05-03-2020\nBROKEN;AEX;2020-03-06\nZETA;AEX;06-03-2020\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunNow(t *testing.T) {
	rec := &memRecorder{}
	snd := &memSender{}
	s := NewScheduler(context.Background(), study.NewBatch(stubRunner{}, 2, nil), eventsFile(t), rec, snd, nil)
	s.DecimalSep = ","

	outcomes, err := s.RunNow(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 3, "row with bad date skipped")

	assert.Equal(t, []string{"ACME", "ZETA"}, rec.reports)
	assert.Equal(t, []string{"BAD"}, rec.failures)
	require.Len(t, snd.sent, 3)
	assert.Contains(t, snd.sent[0], "Beta: 1,5")
	assert.Contains(t, snd.sent[1], "failed")
}

func TestRunNow_NoNotifierAndSendErrors(t *testing.T) {
	rec := &memRecorder{}
	s := NewScheduler(context.Background(), study.NewBatch(stubRunner{}, 1, nil), eventsFile(t), rec, nil, nil)
	_, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Len(t, rec.reports, 2)

	snd := &memSender{err: errors.New("offline")}
	s.Notifier = snd
	_, err = s.RunNow(context.Background())
	assert.NoError(t, err, "delivery failures are not fatal")
	assert.Len(t, snd.sent, 3)
}

func TestRunNow_MissingFile(t *testing.T) {
	s := NewScheduler(context.Background(), study.NewBatch(stubRunner{}, 1, nil), filepath.Join(t.TempDir(), "none.csv"), nil, nil, nil)
	_, err := s.RunNow(context.Background())
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), study.NewBatch(stubRunner{}, 1, nil), "", nil, nil, nil)
	require.NoError(t, s.Register("0 0 7 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("not a spec"))

	s.Start()
	s.Stop()
}

func TestRunAsync_StopWaitsForBatch(t *testing.T) {
	runner := &gatedRunner{started: make(chan struct{}), release: make(chan struct{})}
	rec := &memRecorder{}
	s := NewScheduler(context.Background(), study.NewBatch(runner, 1, nil), eventsFile(t), rec, nil, nil)
	s.Start()
	s.RunAsync(context.Background())
	<-runner.started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a batch was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.release)
	<-stopped
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.ElementsMatch(t, []string{"ACME", "ZETA"}, rec.reports)
	assert.Equal(t, []string{"BAD"}, rec.failures)
}
