package levels

import (
	"sort"
	"time"

	"daily-bias-engine/internal/domain"
)

// Scalar levels resolve through an ordered list of strategies, tried in
// sequence. Keeping the fallback chain as data rather than nested
// conditionals makes the per-level policy auditable in isolation.
type scalarStrategy struct {
	resolve  func() (float64, bool)
	degraded bool
}

func resolveScalar(strategies ...scalarStrategy) (domain.ScalarLevel, bool) {
	for _, s := range strategies {
		if v, ok := s.resolve(); ok {
			return domain.ScalarLevel{Value: v, Degraded: s.degraded}, true
		}
	}
	return domain.ScalarLevel{}, false
}

// firstAtOrAfter returns the index of the first bar with OpenTime >= boundary.
// Bars are ascending, so this is a binary search.
func firstAtOrAfter(bars []domain.Bar, boundary time.Time) int {
	return sort.Search(len(bars), func(i int) bool {
		return !bars[i].OpenTime.Before(boundary)
	})
}

// openAtOrAfter yields the open of the first bar at or after boundary.
func openAtOrAfter(bars []domain.Bar, boundary time.Time) func() (float64, bool) {
	return func() (float64, bool) {
		i := firstAtOrAfter(bars, boundary)
		if i == len(bars) {
			return 0, false
		}
		return bars[i].Open, true
	}
}

// openInWindow yields the open of the first bar inside [start, end).
func openInWindow(bars []domain.Bar, start, end time.Time) func() (float64, bool) {
	return func() (float64, bool) {
		i := firstAtOrAfter(bars, start)
		if i == len(bars) || !bars[i].OpenTime.Before(end) {
			return 0, false
		}
		return bars[i].Open, true
	}
}

// openBefore yields the open of the most recent bar strictly before boundary.
func openBefore(bars []domain.Bar, boundary time.Time) func() (float64, bool) {
	return func() (float64, bool) {
		i := firstAtOrAfter(bars, boundary)
		if i == 0 {
			return 0, false
		}
		return bars[i-1].Open, true
	}
}

// closeBefore yields the close of the most recent bar strictly before
// boundary. Last-resort source for the 7am-style anchors.
func closeBefore(bars []domain.Bar, boundary time.Time) func() (float64, bool) {
	return func() (float64, bool) {
		i := firstAtOrAfter(bars, boundary)
		if i == 0 {
			return 0, false
		}
		return bars[i-1].Close, true
	}
}

// rangeWithin aggregates max(high)/min(low) over all bars in [start, end).
func rangeWithin(bars []domain.Bar, start, end time.Time) (domain.RangeLevel, bool) {
	i := firstAtOrAfter(bars, start)
	found := false
	var r domain.RangeLevel
	for ; i < len(bars) && bars[i].OpenTime.Before(end); i++ {
		if !found {
			r = domain.RangeLevel{High: bars[i].High, Low: bars[i].Low}
			found = true
			continue
		}
		if bars[i].High > r.High {
			r.High = bars[i].High
		}
		if bars[i].Low < r.Low {
			r.Low = bars[i].Low
		}
	}
	return r, found
}
