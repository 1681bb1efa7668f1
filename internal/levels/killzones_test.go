package levels

import (
	"testing"
	"time"

	"daily-bias-engine/internal/domain"
)

// Minute bars spanning two full UTC days with distinct highs per day so the
// tests can tell which day's window a kill zone came from.
func twoDayMinuteBars() []domain.Bar {
	var bars []domain.Bar
	for day := 14; day <= 15; day++ {
		for h := 0; h < 24; h++ {
			for m := 0; m < 60; m += 5 {
				open := 100.0
				high := float64(day) * 10 // 140 on the 14th, 150 on the 15th
				low := float64(day)       // 14 on the 14th, 15 on the 15th
				bars = append(bars, minuteBar(time.Date(2025, 1, day, h, m, 0, 0, time.UTC), open, high, low))
			}
		}
	}
	return bars
}

func TestKillZonesUseElapsedSessionsOnly(t *testing.T) {
	c := newTestCalculator(t)
	minute := twoDayMinuteBars()

	// 15:20 UTC: Asian (ends 05:00) and London (ends 10:00) have elapsed
	// today; NY-AM (ends 16:00) and NY-PM (ends 20:00) have not, so they must
	// read the previous day's window.
	now := time.Date(2025, 1, 15, 15, 20, 0, 0, time.UTC)
	snap := c.Compute(Input{Instrument: domain.Instruments["ES"], Now: now, Minute: minute})

	if r := rangeValue(t, snap, domain.LevelAsianKillZone); r.High != 150 || r.Low != 15 {
		t.Errorf("asian_kill_zone = %+v, want today's window (150/15)", r)
	}
	if r := rangeValue(t, snap, domain.LevelLondonKillZone); r.High != 150 || r.Low != 15 {
		t.Errorf("london_kill_zone = %+v, want today's window (150/15)", r)
	}
	if r := rangeValue(t, snap, domain.LevelNYAMKillZone); r.High != 140 || r.Low != 14 {
		t.Errorf("ny_am_kill_zone = %+v, want yesterday's window (140/14)", r)
	}
	if r := rangeValue(t, snap, domain.LevelNYPMKillZone); r.High != 140 || r.Low != 14 {
		t.Errorf("ny_pm_kill_zone = %+v, want yesterday's window (140/14)", r)
	}
}

func TestKillZoneNeverPartial(t *testing.T) {
	c := newTestCalculator(t)
	minute := twoDayMinuteBars()

	// 14:00 UTC is inside the NY-AM window; the zone must still read
	// yesterday's fully-elapsed session.
	now := time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC)
	snap := c.Compute(Input{Instrument: domain.Instruments["ES"], Now: now, Minute: minute})

	if r := rangeValue(t, snap, domain.LevelNYAMKillZone); r.High != 140 {
		t.Errorf("mid-session ny_am_kill_zone = %+v, want yesterday's high 140", r)
	}
}

func TestKillZoneHourlyFallback(t *testing.T) {
	c := newTestCalculator(t)

	// Hourly bars only; NY-AM (13:30-16:00) falls back to the covering
	// 13:00-16:00 hourly span of the previous day.
	var hourly []domain.Bar
	for h := 13; h < 16; h++ {
		bar := hourlyBar(time.Date(2025, 1, 14, h, 0, 0, 0, time.UTC), 100)
		bar.High = 200 + float64(h)
		bar.Low = 50 - float64(h)
		hourly = append(hourly, bar)
	}

	now := time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC)
	snap := c.Compute(Input{Instrument: domain.Instruments["ES"], Now: now, Hourly: hourly})

	r := rangeValue(t, snap, domain.LevelNYAMKillZone)
	if r.High != 215 || r.Low != 35 {
		t.Errorf("hourly fallback ny_am_kill_zone = %+v, want high 215 low 35", r)
	}
}

func TestKillZoneAbsentWithoutData(t *testing.T) {
	c := newTestCalculator(t)
	now := time.Date(2025, 1, 15, 15, 20, 0, 0, time.UTC)

	snap := c.Compute(Input{Instrument: domain.Instruments["ES"], Now: now})
	for _, name := range []domain.LevelName{domain.LevelAsianKillZone, domain.LevelLondonKillZone, domain.LevelNYAMKillZone, domain.LevelNYPMKillZone} {
		if _, ok := snap.Get(name); ok {
			t.Errorf("%s should be absent without bar data", name)
		}
	}
}
