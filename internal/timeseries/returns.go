package timeseries

import (
	"errors"
	"fmt"
	"time"

	"EventStudy/internal/mathctx"

	"github.com/shopspring/decimal"
)

// ErrZeroPrice is returned when a return would be computed against a zero
// previous price.
var ErrZeroPrice = errors.New("zero previous price")

// ReturnPair is the aligned simple return of a company and its market index
// from the previous trading day to Date.
type ReturnPair struct {
	Date    time.Time
	Company decimal.Decimal
	Market  decimal.Decimal
}

// ReturnSeries is an ordered list of return pairs. Pairs are kept by position,
// so equal return values never collapse into one observation.
type ReturnSeries struct {
	Pairs []ReturnPair
	// Visited counts walker dates consumed, including the seed date.
	Visited int
	// Skipped counts walker dates on which the company had no observation.
	Skipped int
}

// BuildReturns walks w (bound to the market series) and emits one pair per
// consecutive present date. The first present date only seeds the previous
// prices, so N visited dates produce N-1 pairs. Dates on which the company did
// not trade are skipped for both instruments.
func BuildReturns(w *Walker, company, market *Store, field Field, mc mathctx.Context) (ReturnSeries, error) {
	var (
		out                  ReturnSeries
		seeded               bool
		prevComp, prevMarket decimal.Decimal
		prevDate             time.Time
	)
	for d := range w.All() {
		out.Visited++
		curMarket, _ := market.ValueAt(field, d)
		curComp, ok := company.ValueAt(field, d)
		if !ok {
			out.Skipped++
			continue
		}
		if !seeded {
			prevComp, prevMarket, prevDate, seeded = curComp, curMarket, d, true
			continue
		}
		rc, err := simpleReturn(curComp, prevComp, mc)
		if err != nil {
			return out, fmt.Errorf("%s return %s -> %s: %w", company.Symbol(),
				prevDate.Format(DateLayout), d.Format(DateLayout), err)
		}
		rm, err := simpleReturn(curMarket, prevMarket, mc)
		if err != nil {
			return out, fmt.Errorf("%s return %s -> %s: %w", market.Symbol(),
				prevDate.Format(DateLayout), d.Format(DateLayout), err)
		}
		out.Pairs = append(out.Pairs, ReturnPair{Date: d, Company: rc, Market: rm})
		prevComp, prevMarket, prevDate = curComp, curMarket, d
	}
	return out, nil
}

func simpleReturn(cur, prev decimal.Decimal, mc mathctx.Context) (decimal.Decimal, error) {
	if prev.IsZero() {
		return decimal.Zero, ErrZeroPrice
	}
	return mc.Div(cur.Sub(prev), prev)
}
