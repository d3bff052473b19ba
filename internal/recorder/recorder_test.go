package recorder

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"EventStudy/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleReport() *model.Report {
	return &model.Report{
		RunID:        "run-1",
		Request:      model.EventRequest{Company: "ACME", Market: "AEX", EventDate: day(2020, 3, 4)},
		Beta:         dec("1.2"),
		RawBeta:      dec("1.3"),
		Observations: 250,
		ERM:          dec("0.05"),
		WindowStart:  day(2019, 3, 4),
		WindowEnd:    day(2020, 3, 4),
		Days: []model.DayResult{
			{Date: day(2020, 3, 4), RiskFree: dec("0.01"), RiskFreeFound: true, Expected: dec("0.058"), Observed: dec("0.02"), Abnormal: dec("-0.038")},
			{Date: day(2020, 3, 5), RiskFree: dec("0"), Expected: dec("0.06"), Observed: dec("0.01"), Abnormal: dec("-0.05")},
		},
		CreatedAt: time.Unix(1583300000, 0),
	}
}

func sampleTrend() *model.TrendReport {
	return &model.TrendReport{
		Company: "ACME", EventDate: day(2020, 3, 2), DaysBefore: 120, DaysAfter: 5,
		SlopeBefore: dec("1"), SlopeDuring: dec("4"), Difference: dec("3"),
		EventOpen: dec("200"), PercentDifference: dec("1.5"),
	}
}

func TestCumulativeAbnormal(t *testing.T) {
	assert.True(t, sampleReport().CumulativeAbnormal().Equal(dec("-0.088")))
}

func TestSQLiteRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	r, err := NewSQLiteRecorder(path, nil)
	require.NoError(t, err)

	require.NoError(t, r.RecordReport(sampleReport()))
	require.NoError(t, r.RecordTrend(sampleTrend()))
	require.NoError(t, r.RecordFailure(model.EventRequest{Company: "BAD", Market: "AEX", EventDate: day(2020, 1, 2)}, errors.New("estimation phase: degenerate")))

	// A duplicate run id rolls back without leaving orphan day rows.
	assert.Error(t, r.RecordReport(sampleReport()))
	require.NoError(t, r.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var beta, cumAbnormal string
	require.NoError(t, db.QueryRow(`SELECT beta, cum_abnormal FROM event_reports WHERE run_id = ?`, "run-1").Scan(&beta, &cumAbnormal))
	assert.Equal(t, "1.2", beta)
	assert.Equal(t, "-0.088", cumAbnormal)

	var days int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM event_days WHERE run_id = ?`, "run-1").Scan(&days))
	assert.Equal(t, 2, days)

	var pct string
	require.NoError(t, db.QueryRow(`SELECT pct_diff FROM trend_reports`).Scan(&pct))
	assert.Equal(t, "1.5", pct)

	var msg string
	require.NoError(t, db.QueryRow(`SELECT error FROM event_failures WHERE company = 'BAD'`).Scan(&msg))
	assert.Contains(t, msg, "degenerate")
}

func TestLogFileRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	r, err := NewLogFileRecorder(path, ",")
	require.NoError(t, err)

	require.NoError(t, r.RecordTrend(sampleTrend()))
	require.NoError(t, r.RecordReport(sampleReport()))
	require.NoError(t, r.RecordFailure(model.EventRequest{Company: "BAD", Market: "AEX", EventDate: day(2020, 1, 2)}, errors.New("line one\nline two")))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ACME\t1\t4\t3\t1,5%", lines[0])
	assert.Equal(t, "ACME\tAEX\t2020-03-04\t1,2\t0,05\t-0,088", lines[1])
	assert.Equal(t, "BAD\tAEX\t2020-01-02\tFAILED\tline one line two", lines[2])

	// Reopening appends.
	r, err = NewLogFileRecorder(path, ".")
	require.NoError(t, err)
	require.NoError(t, r.RecordTrend(sampleTrend()))
	require.NoError(t, r.Close())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "ACME\t1\t4\t3\t1.5%\n"))
}

type failing struct{ NoopRecorder }

func (failing) RecordReport(*model.Report) error { return errors.New("disk full") }

func TestMulti(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	lf, err := NewLogFileRecorder(path, ".")
	require.NoError(t, err)

	m := Multi{NewNoopRecorder(), &failing{}, lf}
	err = m.RecordReport(sampleReport())
	assert.ErrorContains(t, err, "disk full")
	require.NoError(t, m.RecordTrend(sampleTrend()))
	require.NoError(t, m.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"), "later recorders still run after a failure")
}
