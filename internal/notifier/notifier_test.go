package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
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
	}
}

func TestFormatReport(t *testing.T) {
	msg := FormatReport(sampleReport(), ",")
	assert.Contains(t, msg, "Event study ACME")
	assert.Contains(t, msg, "Beta: 1,2 (raw 1,3, 250 obs)")
	assert.Contains(t, msg, "2020-03-04\t0,01\t0,058\t0,02\t-0,038")
	assert.Contains(t, msg, "2020-03-05\t0*\t0,06\t0,01\t-0,05")
	assert.Contains(t, msg, "Cumulative abnormal: -0,088")
	assert.Contains(t, msg, "fallback used")

	dot := FormatReport(sampleReport(), ".")
	assert.Contains(t, dot, "Beta: 1.2")
}

func TestFormatReport_NoDays(t *testing.T) {
	r := sampleReport()
	r.Days = nil
	msg := FormatReport(r, ".")
	assert.Contains(t, msg, "no trading days")
	assert.NotContains(t, msg, "fallback used")
}

func TestFormatTrend(t *testing.T) {
	msg := FormatTrend(&model.TrendReport{
		Company: "A&B", EventDate: day(2020, 3, 2), DaysBefore: 120, DaysAfter: 5,
		SlopeBefore: dec("1"), SlopeDuring: dec("4"), Difference: dec("3"),
		EventOpen: dec("200"), PercentDifference: dec("1.5"),
	}, ",")
	assert.Contains(t, msg, "Trend A&amp;B")
	assert.Contains(t, msg, "Slope 120 days before: 1")
	assert.Contains(t, msg, "Difference: 3 (1,5% of open 200)")
}

func TestFormatFailure(t *testing.T) {
	msg := FormatFailure(model.EventRequest{Company: "X", Market: "Y", EventDate: day(2020, 1, 2)}, errors.New("a < b"))
	assert.Contains(t, msg, "X/Y@2020-01-02")
	assert.Contains(t, msg, "a &lt; b")
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Trend A&B | x < y", PlainText("<b>Trend A&amp;B</b> | x &lt; y"))
}

func TestTelegramNotifier_Send(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("123:abc", "42", "", nil)
	n.SetBaseURL(srv.URL)
	require.NoError(t, n.Send(context.Background(), "hello"))
	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestTelegramNotifier_SendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("t", "c", "", nil)
	n.SetBaseURL(srv.URL)
	n.Backoff = time.Millisecond

	require.NoError(t, n.SendWithRetry(context.Background(), "hi", 3))
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(-10)
	err := n.SendWithRetry(context.Background(), "hi", 1)
	assert.ErrorContains(t, err, "all 2 retries exhausted")
}
