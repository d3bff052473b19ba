package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"EventStudy/internal/model"
	"EventStudy/internal/timeseries"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists reports to a SQLite database. Decimal values are
// stored as TEXT to keep them exact.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS event_reports (
			run_id       TEXT PRIMARY KEY,
			created_at   INTEGER NOT NULL,
			company      TEXT NOT NULL,
			market       TEXT NOT NULL,
			event_date   TEXT NOT NULL,
			beta         TEXT,
			raw_beta     TEXT,
			observations INTEGER,
			erm          TEXT,
			window_start TEXT,
			window_end   TEXT,
			cum_abnormal TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_event ON event_reports(company, event_date)`,

		`CREATE TABLE IF NOT EXISTS event_days (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL REFERENCES event_reports(run_id),
			date      TEXT NOT NULL,
			risk_free TEXT,
			rf_found  INTEGER,
			expected  TEXT,
			observed  TEXT,
			abnormal  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_days_run ON event_days(run_id)`,

		`CREATE TABLE IF NOT EXISTS trend_reports (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			company      TEXT NOT NULL,
			event_date   TEXT NOT NULL,
			days_before  INTEGER,
			days_after   INTEGER,
			slope_before TEXT,
			slope_during TEXT,
			difference   TEXT,
			event_open   TEXT,
			pct_diff     TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS event_failures (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			company    TEXT,
			market     TEXT,
			event_date TEXT,
			error      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_ts ON event_failures(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func dateText(t time.Time) string { return t.Format(timeseries.DateLayout) }

// RecordReport stores the report and its event-window rows in one transaction.
func (r *SQLiteRecorder) RecordReport(rep *model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO event_reports
		(run_id, created_at, company, market, event_date, beta, raw_beta,
		 observations, erm, window_start, window_end, cum_abnormal)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		rep.RunID, rep.CreatedAt.Unix(), rep.Request.Company, rep.Request.Market,
		dateText(rep.Request.EventDate), rep.Beta.String(), rep.RawBeta.String(),
		rep.Observations, rep.ERM.String(), dateText(rep.WindowStart), dateText(rep.WindowEnd),
		rep.CumulativeAbnormal().String(),
	)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", rep.RunID, err)
	}

	for _, d := range rep.Days {
		_, err := tx.Exec(`INSERT INTO event_days
			(run_id, date, risk_free, rf_found, expected, observed, abnormal)
			VALUES (?,?,?,?,?,?,?)`,
			rep.RunID, dateText(d.Date), d.RiskFree.String(), d.RiskFreeFound,
			d.Expected.String(), d.Observed.String(), d.Abnormal.String(),
		)
		if err != nil {
			return fmt.Errorf("insert day %s: %w", dateText(d.Date), err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordTrend(t *model.TrendReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO trend_reports
		(timestamp, company, event_date, days_before, days_after,
		 slope_before, slope_during, difference, event_open, pct_diff)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), t.Company, dateText(t.EventDate), t.DaysBefore, t.DaysAfter,
		t.SlopeBefore.String(), t.SlopeDuring.String(), t.Difference.String(),
		t.EventOpen.String(), t.PercentDifference.String(),
	)
	return err
}

func (r *SQLiteRecorder) RecordFailure(req model.EventRequest, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := r.db.Exec(`INSERT INTO event_failures
		(timestamp, company, market, event_date, error)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), req.Company, req.Market, dateText(req.EventDate), msg,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
