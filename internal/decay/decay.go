package decay

import (
	"math"
	"time"
)

const (
	defaultMaxHoursBefore = 6.0
	defaultMinFactor      = 0.5
)

// Model shrinks forecast confidence as the target hour sits further away.
// The curve is quadratic: near 1.0 close to the target, falling off harder
// with distance, bottoming out at MinFactor.
type Model struct {
	MaxHoursBefore float64
	MinFactor      float64
}

func NewModel(maxHoursBefore, minFactor float64) Model {
	if maxHoursBefore <= 0 {
		maxHoursBefore = defaultMaxHoursBefore
	}
	if minFactor <= 0 || minFactor > 1 {
		minFactor = defaultMinFactor
	}
	return Model{MaxHoursBefore: maxHoursBefore, MinFactor: minFactor}
}

// Factor returns the decay multiplier in [MinFactor, 1.0] for a forecast
// evaluated at now against a target instant.
func (m Model) Factor(now, target time.Time) float64 {
	hoursAway := math.Abs(target.Sub(now).Hours())
	if hoursAway > m.MaxHoursBefore {
		return m.MinFactor
	}
	ratio := hoursAway / m.MaxHoursBefore
	return math.Max(m.MinFactor, 1-ratio*ratio)
}

// Apply scales a base confidence by the factor, re-anchored so the result
// never drops below base*MinFactor even at maximum distance.
func (m Model) Apply(base, factor float64) float64 {
	return base * (m.MinFactor + (1-m.MinFactor)*factor)
}
