package session

import (
	"time"

	"daily-bias-engine/internal/domain"
)

// InSession reports whether an instant falls inside the instrument's trading
// session. The data layer drops out-of-session bars before they reach the
// engine, so the reference-level calculator never sees weekend or
// maintenance-gap data.
func (r *Resolver) InSession(t time.Time, inst domain.Instrument) bool {
	switch inst.Calendar {
	case domain.CalendarCrypto24x7:
		return true
	case domain.CalendarLondonCash:
		return r.inLondonCash(t)
	default:
		return r.inFutures24x5(t)
	}
}

// inFutures24x5: Sunday 22:00 UTC open through Friday 21:00 UTC close, with
// a 21:00-22:00 UTC maintenance gap every trading day.
func (r *Resolver) inFutures24x5(t time.Time) bool {
	t = t.UTC()
	hour := t.Hour()

	switch t.Weekday() {
	case time.Saturday:
		return false
	case time.Sunday:
		return hour >= 22
	case time.Friday:
		return hour < 21
	default:
		return hour != 21
	}
}

// inLondonCash: 08:00-16:30 London local, Monday through Friday.
func (r *Resolver) inLondonCash(t time.Time) bool {
	local := t.In(r.london)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= 8*60 && minutes < 16*60+30
}

// FilterBars drops bars outside the instrument's trading session, preserving
// order. Returns the input slice unchanged when nothing is dropped.
func (r *Resolver) FilterBars(bars []domain.Bar, inst domain.Instrument) []domain.Bar {
	if inst.Calendar == domain.CalendarCrypto24x7 {
		return bars
	}
	kept := bars[:0:0]
	dropped := false
	for i, bar := range bars {
		if r.InSession(bar.OpenTime, inst) {
			if dropped {
				kept = append(kept, bar)
			}
			continue
		}
		if !dropped {
			kept = append(kept, bars[:i]...)
			dropped = true
		}
	}
	if !dropped {
		return bars
	}
	return kept
}
