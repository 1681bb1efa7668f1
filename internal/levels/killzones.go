package levels

import (
	"time"

	"daily-bias-engine/internal/domain"
)

// Kill zones are fixed UTC windows. Their high/low is only meaningful once
// the window has fully elapsed, so a snapshot taken before today's session
// end reads the previous day's window instead.
type killZone struct {
	name                domain.LevelName
	startHour, startMin int
	endHour, endMin     int
}

var killZones = []killZone{
	{domain.LevelAsianKillZone, 1, 0, 5, 0},
	{domain.LevelLondonKillZone, 7, 0, 10, 0},
	{domain.LevelNYAMKillZone, 13, 30, 16, 0},
	{domain.LevelNYPMKillZone, 17, 30, 20, 0},
}

func (c *Calculator) computeKillZones(in Input, now time.Time, snap *Snapshot) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for _, kz := range killZones {
		start := day.Add(time.Duration(kz.startHour)*time.Hour + time.Duration(kz.startMin)*time.Minute)
		end := day.Add(time.Duration(kz.endHour)*time.Hour + time.Duration(kz.endMin)*time.Minute)

		// Never score against a partially-elapsed session.
		if now.Before(end) {
			start = start.AddDate(0, 0, -1)
			end = end.AddDate(0, 0, -1)
		}

		if r, ok := c.rangeWithFallback(in, start, end); ok {
			snap.values[kz.name] = r
		}
	}
}
