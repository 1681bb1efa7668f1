package session

import (
	"fmt"
	"time"

	"daily-bias-engine/internal/domain"
)

// Window buckets an instant into the intraday prediction phases used by the
// forecast lifecycle, based on the instrument's local hour.
type Window string

const (
	WindowPre9AM   Window = "pre_9am"
	Window9AMHour  Window = "9am_hour"
	Window10AMHour Window = "10am_hour"
	WindowPost10AM Window = "post_10am"
	WindowEvening  Window = "evening"
)

// Resolver converts UTC instants to venue-local times and back. All methods
// are pure; the only state is the pre-loaded timezone data.
type Resolver struct {
	eastern *time.Location
	london  *time.Location
}

func NewResolver() (*Resolver, error) {
	eastern, err := time.LoadLocation(domain.TimezoneEastern)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", domain.TimezoneEastern, err)
	}
	london, err := time.LoadLocation(domain.TimezoneLondon)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", domain.TimezoneLondon, err)
	}
	return &Resolver{eastern: eastern, london: london}, nil
}

// Location returns the instrument's home timezone: London for the UK index,
// US-Eastern for everything else.
func (r *Resolver) Location(inst domain.Instrument) *time.Location {
	if inst.Timezone == domain.TimezoneLondon {
		return r.london
	}
	return r.eastern
}

// LocalTime converts a UTC instant into the instrument's local wall-clock
// time, DST-correct.
func (r *Resolver) LocalTime(t time.Time, inst domain.Instrument) time.Time {
	return t.In(r.Location(inst))
}

// LocalHourInstant returns the UTC instant of the given local wall-clock
// hour:minute on the instrument-local calendar day containing day. During a
// spring-forward gap the nonexistent hour is pushed forward rather than
// silently wrapping to the previous wall-clock hour.
func (r *Resolver) LocalHourInstant(day time.Time, hour, minute int, inst domain.Instrument) time.Time {
	loc := r.Location(inst)
	local := day.In(loc)
	// time.Date normalizes a nonexistent spring-forward wall time by pushing
	// it past the gap, which is the behavior we want: the anchor moves to the
	// first representable instant instead of wrapping to the prior hour.
	t := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	return t.UTC()
}

// CandleOpenTime floors an instant to its UTC interval boundary. Interval is
// in minutes; 240 floors to the 4-hour boundaries 00/04/08/12/16/20.
func (r *Resolver) CandleOpenTime(t time.Time, intervalMinutes int) time.Time {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	return t.UTC().Truncate(time.Duration(intervalMinutes) * time.Minute)
}

// WeekStart returns the most recent Monday 00:00 UTC at or before t.
func (r *Resolver) WeekStart(t time.Time) time.Time {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(midnight.Weekday()) + 6) % 7 // Monday == 0
	return midnight.AddDate(0, 0, -offset)
}

// MonthStart returns the first of the month 00:00 UTC for t.
func (r *Resolver) MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PredictionWindow buckets an instant by the instrument's local hour:
// <9 pre_9am, 9, 10, [11,19) post_10am, >=19 evening.
func (r *Resolver) PredictionWindow(t time.Time, inst domain.Instrument) Window {
	hour := r.LocalTime(t, inst).Hour()
	switch {
	case hour < 9:
		return WindowPre9AM
	case hour == 9:
		return Window9AMHour
	case hour == 10:
		return Window10AMHour
	case hour < 19:
		return WindowPost10AM
	default:
		return WindowEvening
	}
}
