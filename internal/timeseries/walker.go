package timeseries

import (
	"iter"
	"time"

	"EventStudy/internal/model"
)

// Walker visits the dates in [from, to) that are present in a reference
// Store, stepping one calendar day at a time. Presence in the reference series
// is the trading-day calendar; no holiday table is consulted.
type Walker struct {
	ref  *Store
	from time.Time
	to   time.Time
	cur  time.Time
}

// NewWalker creates a walker over [from, to) bound to ref.
func NewWalker(ref *Store, from, to time.Time) *Walker {
	w := &Walker{ref: ref, from: model.Day(from), to: model.Day(to)}
	w.Reset()
	return w
}

// Reset rewinds the walker to the start of its range.
func (w *Walker) Reset() {
	w.cur = w.from
}

// Next returns the next present date, or false once the range is exhausted.
func (w *Walker) Next() (time.Time, bool) {
	for w.cur.Before(w.to) {
		d := w.cur
		w.cur = w.cur.AddDate(0, 0, 1)
		if w.ref.Has(d) {
			return d, true
		}
	}
	return time.Time{}, false
}

// All yields every present date of the range from the beginning. It does not
// disturb the position used by Next.
func (w *Walker) All() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		inner := &Walker{ref: w.ref, from: w.from, to: w.to, cur: w.from}
		for d, ok := inner.Next(); ok; d, ok = inner.Next() {
			if !yield(d) {
				return
			}
		}
	}
}

// Count returns the number of present dates in the range.
func (w *Walker) Count() int {
	n := 0
	for range w.All() {
		n++
	}
	return n
}

// From and To expose the walked range.
func (w *Walker) From() time.Time { return w.from }
func (w *Walker) To() time.Time   { return w.to }
