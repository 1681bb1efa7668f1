package levels

import (
	"time"

	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/session"
)

// Calculator derives the 18 named reference levels for an instrument from
// its bar series. Pure: the same input always yields the same snapshot.
type Calculator struct {
	resolver *session.Resolver
}

func NewCalculator(resolver *session.Resolver) *Calculator {
	return &Calculator{resolver: resolver}
}

// Input carries the ascending bar series the calculator reads. Any series
// may be empty; the corresponding levels come out absent, never zero.
// Thirty-minute opens are derived from the minute series snapped to :00/:30,
// never from 30-minute bars, so no 30-minute series is accepted here.
type Input struct {
	Instrument domain.Instrument
	Now        time.Time
	Minute     []domain.Bar
	Hourly     []domain.Bar
	Daily      []domain.Bar
}

// Snapshot is the immutable result of one calculation pass. Partial results
// (some levels present, others absent) are expected and valid.
type Snapshot struct {
	Symbol string
	AsOf   time.Time
	values map[domain.LevelName]domain.ReferenceLevel
}

// NewSnapshot builds a snapshot from pre-computed levels. The map is copied,
// so the result stays immutable to later caller mutation.
func NewSnapshot(symbol string, asOf time.Time, values map[domain.LevelName]domain.ReferenceLevel) Snapshot {
	copied := make(map[domain.LevelName]domain.ReferenceLevel, len(values))
	for name, level := range values {
		copied[name] = level
	}
	return Snapshot{Symbol: symbol, AsOf: asOf, values: copied}
}

func (s Snapshot) Get(name domain.LevelName) (domain.ReferenceLevel, bool) {
	level, ok := s.values[name]
	return level, ok
}

// Len reports how many of the 18 slots are populated.
func (s Snapshot) Len() int {
	return len(s.values)
}

// Names returns the populated slots in canonical order.
func (s Snapshot) Names() []domain.LevelName {
	out := make([]domain.LevelName, 0, len(s.values))
	for _, name := range domain.AllLevelNames {
		if _, ok := s.values[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (s *Snapshot) setScalar(name domain.LevelName, strategies ...scalarStrategy) {
	if level, ok := resolveScalar(strategies...); ok {
		s.values[name] = level
	}
}

// Compute derives all 18 reference levels for "now".
func (c *Calculator) Compute(in Input) Snapshot {
	now := in.Now.UTC()
	snap := Snapshot{
		Symbol: in.Instrument.Symbol,
		AsOf:   now,
		values: make(map[domain.LevelName]domain.ReferenceLevel, len(domain.AllLevelNames)),
	}

	c.computeOpens(in, now, &snap)
	c.computeDailyExtremes(in, &snap)
	c.computeSessionRanges(in, now, &snap)
	c.computeKillZones(in, now, &snap)

	return snap
}

func (c *Calculator) computeOpens(in Input, now time.Time, snap *Snapshot) {
	inst := in.Instrument

	hourFloor := c.resolver.CandleOpenTime(now, 60)
	snap.setScalar(domain.LevelHourlyOpen,
		scalarStrategy{resolve: openAtOrAfter(in.Hourly, hourFloor)},
		scalarStrategy{resolve: openBefore(in.Hourly, hourFloor), degraded: true},
	)

	prevHour := hourFloor.Add(-time.Hour)
	snap.setScalar(domain.LevelPreviousHourlyOpen,
		scalarStrategy{resolve: openInWindow(in.Hourly, prevHour, hourFloor)},
		scalarStrategy{resolve: openBefore(in.Hourly, prevHour), degraded: true},
	)

	// The 4-hour open deliberately reads the hourly series rather than a
	// true 4-hour aggregate; nearest prior hourly bar is the fallback.
	fourHourFloor := c.resolver.CandleOpenTime(now, 240)
	snap.setScalar(domain.LevelFourHourOpen,
		scalarStrategy{resolve: openAtOrAfter(in.Hourly, fourHourFloor)},
		scalarStrategy{resolve: openBefore(in.Hourly, fourHourFloor), degraded: true},
	)

	// 30-minute opens come from minute data snapped to the :00/:30 boundary.
	thirtyFloor := c.resolver.CandleOpenTime(now, 30)
	snap.setScalar(domain.LevelThirtyMinOpen,
		scalarStrategy{resolve: openAtOrAfter(in.Minute, thirtyFloor)},
		scalarStrategy{resolve: openBefore(in.Minute, thirtyFloor), degraded: true},
	)

	midnight := c.resolver.LocalHourInstant(now, 0, 0, inst)
	snap.setScalar(domain.LevelDailyOpenMidnight,
		scalarStrategy{resolve: openAtOrAfter(in.Hourly, midnight)},
		scalarStrategy{resolve: openBefore(in.Hourly, midnight), degraded: true},
	)

	weekStart := c.resolver.WeekStart(now)
	snap.setScalar(domain.LevelWeeklyOpen,
		scalarStrategy{resolve: openAtOrAfter(in.Daily, weekStart)},
		scalarStrategy{resolve: openBefore(in.Daily, weekStart), degraded: true},
	)

	prevWeekStart := weekStart.AddDate(0, 0, -7)
	snap.setScalar(domain.LevelPreviousWeekOpen,
		scalarStrategy{resolve: openInWindow(in.Daily, prevWeekStart, weekStart)},
		scalarStrategy{resolve: openBefore(in.Daily, prevWeekStart), degraded: true},
	)

	monthStart := c.resolver.MonthStart(now)
	snap.setScalar(domain.LevelMonthlyOpen,
		scalarStrategy{resolve: openAtOrAfter(in.Daily, monthStart)},
		scalarStrategy{resolve: openBefore(in.Daily, monthStart), degraded: true},
	)

	ny0700 := c.resolver.LocalHourInstant(now, 7, 0, inst)
	snap.setScalar(domain.LevelNYOpen0700,
		scalarStrategy{resolve: openAtOrAfter(in.Minute, ny0700)},
		scalarStrategy{resolve: openAtOrAfter(in.Hourly, ny0700)},
		scalarStrategy{resolve: openBefore(in.Minute, ny0700), degraded: true},
		scalarStrategy{resolve: closeBefore(in.Minute, ny0700), degraded: true},
	)

	// 08:30 never aligns to an hourly boundary, so the hourly series cannot
	// serve this anchor.
	ny0830 := c.resolver.LocalHourInstant(now, 8, 30, inst)
	snap.setScalar(domain.LevelNYOpen0830,
		scalarStrategy{resolve: openAtOrAfter(in.Minute, ny0830)},
		scalarStrategy{resolve: openBefore(in.Minute, ny0830), degraded: true},
		scalarStrategy{resolve: closeBefore(in.Minute, ny0830), degraded: true},
	)
}

// computeDailyExtremes fills previous-day high/low from the second-to-last
// daily bar; the last daily bar is "today" and may be incomplete.
func (c *Calculator) computeDailyExtremes(in Input, snap *Snapshot) {
	if len(in.Daily) < 2 {
		return
	}
	prev := in.Daily[len(in.Daily)-2]
	snap.values[domain.LevelPreviousDayHigh] = domain.ScalarLevel{Value: prev.High}
	snap.values[domain.LevelPreviousDayLow] = domain.ScalarLevel{Value: prev.Low}
}

// computeSessionRanges fills the two 15-minute opening ranges (07:00 and
// 08:30 local). Minute data is preferred; the covering hourly bars are the
// fallback source.
func (c *Calculator) computeSessionRanges(in Input, now time.Time, snap *Snapshot) {
	inst := in.Instrument

	windows := []struct {
		name      domain.LevelName
		hour, min int
	}{
		{domain.LevelRange0700, 7, 0},
		{domain.LevelRange0830, 8, 30},
	}
	for _, w := range windows {
		start := c.resolver.LocalHourInstant(now, w.hour, w.min, inst)
		end := start.Add(15 * time.Minute)
		if r, ok := c.rangeWithFallback(in, start, end); ok {
			snap.values[w.name] = r
		}
	}
}

// rangeWithFallback tries the minute series over [start, end), then falls
// back to the hourly bars covering the window.
func (c *Calculator) rangeWithFallback(in Input, start, end time.Time) (domain.RangeLevel, bool) {
	if r, ok := rangeWithin(in.Minute, start, end); ok {
		return r, true
	}
	if r, ok := rangeWithin(in.Hourly, floorToHour(start), ceilToHour(end)); ok {
		return r, true
	}
	return domain.RangeLevel{}, false
}

func floorToHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

func ceilToHour(t time.Time) time.Time {
	floored := floorToHour(t)
	if floored.Equal(t.UTC()) {
		return floored
	}
	return floored.Add(time.Hour)
}
