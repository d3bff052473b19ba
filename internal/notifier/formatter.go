package notifier

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"EventStudy/internal/dataset"
	"EventStudy/internal/model"
	"EventStudy/internal/timeseries"

	"github.com/shopspring/decimal"
)

// FormatReport renders an event-study report as a Telegram HTML message.
// sep selects the decimal separator of every number.
func FormatReport(r *model.Report, sep string) string {
	num := func(d decimal.Decimal) string { return dataset.Localize(d.String(), sep) }
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Event study %s</b> | %s on %s\n\n",
		html.EscapeString(r.Request.Company), html.EscapeString(r.Request.Market),
		r.Request.EventDate.Format(timeseries.DateLayout)))

	b.WriteString(fmt.Sprintf("Beta: %s (raw %s, %d obs)\n", num(r.Beta), num(r.RawBeta), r.Observations))
	b.WriteString(fmt.Sprintf("ERM: %s (%s to %s)\n\n", num(r.ERM),
		r.WindowStart.Format(timeseries.DateLayout), r.WindowEnd.Format(timeseries.DateLayout)))

	b.WriteString("<b>Date\tRF\tER\tActual\tAbnormal</b>\n")
	for _, d := range r.Days {
		rf := num(d.RiskFree)
		if !d.RiskFreeFound {
			rf += "*"
		}
		b.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%s\n",
			d.Date.Format(timeseries.DateLayout), rf, num(d.Expected), num(d.Observed), num(d.Abnormal)))
	}
	if len(r.Days) == 0 {
		b.WriteString("no trading days in the event window\n")
	}
	b.WriteString(fmt.Sprintf("\nCumulative abnormal: %s\n", num(r.CumulativeAbnormal())))

	for _, d := range r.Days {
		if !d.RiskFreeFound {
			b.WriteString("* risk-free rate missing, fallback used\n")
			break
		}
	}
	return b.String()
}

// FormatTrend renders a linear-trend comparison.
func FormatTrend(t *model.TrendReport, sep string) string {
	num := func(d decimal.Decimal) string { return dataset.Localize(d.String(), sep) }
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Trend %s</b> | %s\n\n",
		html.EscapeString(t.Company), t.EventDate.Format(timeseries.DateLayout)))
	b.WriteString(fmt.Sprintf("Slope %d days before: %s\n", t.DaysBefore, num(t.SlopeBefore)))
	b.WriteString(fmt.Sprintf("Slope %d days from event: %s\n", t.DaysAfter, num(t.SlopeDuring)))
	b.WriteString(fmt.Sprintf("Difference: %s (%s%% of open %s)\n",
		num(t.Difference), num(t.PercentDifference), num(t.EventOpen)))
	return b.String()
}

// FormatFailure renders a failed event.
func FormatFailure(req model.EventRequest, err error) string {
	return fmt.Sprintf("⚠️ <b>Event study %s failed</b>\n%s", html.EscapeString(req.String()), html.EscapeString(err.Error()))
}

var tagPattern = regexp.MustCompile(`</?[a-z]+>`)

// PlainText strips the HTML markup of a formatted message for terminal output.
func PlainText(msg string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(msg, ""))
}
