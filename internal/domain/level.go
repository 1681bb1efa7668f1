package domain

type LevelName string

const (
	LevelDailyOpenMidnight  LevelName = "daily_open_midnight"
	LevelHourlyOpen         LevelName = "hourly_open"
	LevelFourHourOpen       LevelName = "four_hour_open"
	LevelPreviousHourlyOpen LevelName = "previous_hourly_open"
	LevelPreviousWeekOpen   LevelName = "previous_week_open"
	LevelPreviousDayHigh    LevelName = "previous_day_high"
	LevelPreviousDayLow     LevelName = "previous_day_low"
	LevelThirtyMinOpen      LevelName = "thirty_min_open"
	LevelWeeklyOpen         LevelName = "weekly_open"
	LevelMonthlyOpen        LevelName = "monthly_open"
	LevelNYOpen0700         LevelName = "ny_open_0700"
	LevelNYOpen0830         LevelName = "ny_open_0830"
	LevelRange0700          LevelName = "range_0700_0715"
	LevelRange0830          LevelName = "range_0830_0845"
	LevelAsianKillZone      LevelName = "asian_kill_zone"
	LevelLondonKillZone     LevelName = "london_kill_zone"
	LevelNYAMKillZone       LevelName = "ny_am_kill_zone"
	LevelNYPMKillZone       LevelName = "ny_pm_kill_zone"
)

// AllLevelNames lists every reference-level slot in a stable order.
var AllLevelNames = []LevelName{
	LevelDailyOpenMidnight,
	LevelHourlyOpen,
	LevelFourHourOpen,
	LevelPreviousHourlyOpen,
	LevelPreviousWeekOpen,
	LevelPreviousDayHigh,
	LevelPreviousDayLow,
	LevelThirtyMinOpen,
	LevelWeeklyOpen,
	LevelMonthlyOpen,
	LevelNYOpen0700,
	LevelNYOpen0830,
	LevelRange0700,
	LevelRange0830,
	LevelAsianKillZone,
	LevelLondonKillZone,
	LevelNYAMKillZone,
	LevelNYPMKillZone,
}

type LevelPosition string

const (
	PositionAbove  LevelPosition = "ABOVE"
	PositionBelow  LevelPosition = "BELOW"
	PositionWithin LevelPosition = "WITHIN"
)

// ReferenceLevel is a closed sum over the two level shapes: a single price
// (ScalarLevel) or a high/low band (RangeLevel). Absent levels are simply
// missing from a snapshot, never zero-valued.
type ReferenceLevel interface {
	referenceLevel()
}

// ScalarLevel is a single anchored price. Degraded marks values recovered
// from a nearest-prior-bar fallback rather than the exact boundary bar.
type ScalarLevel struct {
	Value    float64
	Degraded bool
}

func (ScalarLevel) referenceLevel() {}

// RangeLevel is a high/low band, inclusive on both ends.
type RangeLevel struct {
	High float64
	Low  float64
}

func (RangeLevel) referenceLevel() {}

func (r RangeLevel) Mid() float64 {
	return (r.High + r.Low) / 2
}

// Position reports where price sits relative to the band. Prices exactly on
// either boundary count as WITHIN.
func (r RangeLevel) Position(price float64) LevelPosition {
	switch {
	case price > r.High:
		return PositionAbove
	case price < r.Low:
		return PositionBelow
	default:
		return PositionWithin
	}
}

// LevelValue is the transport-facing view of one resolved reference level.
// Scalar levels carry Value, range levels carry High and Low.
type LevelValue struct {
	Name     LevelName `json:"name"`
	Kind     string    `json:"kind"`
	Value    *float64  `json:"value,omitempty"`
	High     *float64  `json:"high,omitempty"`
	Low      *float64  `json:"low,omitempty"`
	Degraded bool      `json:"degraded,omitempty"`
}

const (
	LevelKindScalar = "scalar"
	LevelKindRange  = "range"
)

// ViewOf flattens a resolved level into its transport form.
func ViewOf(name LevelName, level ReferenceLevel) LevelValue {
	switch v := level.(type) {
	case ScalarLevel:
		value := v.Value
		return LevelValue{Name: name, Kind: LevelKindScalar, Value: &value, Degraded: v.Degraded}
	case RangeLevel:
		high, low := v.High, v.Low
		return LevelValue{Name: name, Kind: LevelKindRange, High: &high, Low: &low}
	}
	return LevelValue{Name: name}
}
