package recorder

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"EventStudy/internal/dataset"
	"EventStudy/internal/model"
)

// LogFileRecorder appends one tab-separated line per result to a text file.
type LogFileRecorder struct {
	mu  sync.Mutex
	f   *os.File
	sep string
}

// NewLogFileRecorder opens path for appending. decimalSep selects the decimal
// separator written for every number.
func NewLogFileRecorder(path, decimalSep string) (*LogFileRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &LogFileRecorder{f: f, sep: decimalSep}, nil
}

func (l *LogFileRecorder) num(s string) string { return dataset.Localize(s, l.sep) }

func (l *LogFileRecorder) writeLine(fields ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintln(l.f, strings.Join(fields, "\t"))
	return err
}

// RecordReport writes company, market, event date, beta, ERM and the
// cumulative abnormal return.
func (l *LogFileRecorder) RecordReport(r *model.Report) error {
	return l.writeLine(
		r.Request.Company,
		r.Request.Market,
		dateText(r.Request.EventDate),
		l.num(r.Beta.String()),
		l.num(r.ERM.String()),
		l.num(r.CumulativeAbnormal().String()),
	)
}

// RecordTrend writes company, slope before, slope during, their difference
// and the percent difference.
func (l *LogFileRecorder) RecordTrend(t *model.TrendReport) error {
	return l.writeLine(
		t.Company,
		l.num(t.SlopeBefore.String()),
		l.num(t.SlopeDuring.String()),
		l.num(t.Difference.String()),
		l.num(t.PercentDifference.String())+"%",
	)
}

func (l *LogFileRecorder) RecordFailure(req model.EventRequest, cause error) error {
	msg := ""
	if cause != nil {
		msg = strings.NewReplacer("\n", " ", "\t", " ").Replace(cause.Error())
	}
	return l.writeLine(req.Company, req.Market, dateText(req.EventDate), "FAILED", msg)
}

func (l *LogFileRecorder) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
