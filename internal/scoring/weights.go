package scoring

import (
	"fmt"
	"math"

	"daily-bias-engine/internal/domain"
)

const weightSumTolerance = 0.001

// WeightTable maps each reference-level slot to its share of the aggregate
// score. Tables are immutable configuration: validated once at load, then
// injected into the scorer, so alternate weighting schemes can coexist.
type WeightTable map[domain.LevelName]float64

// DefaultWeights is the production weighting scheme.
func DefaultWeights() WeightTable {
	return WeightTable{
		domain.LevelDailyOpenMidnight:  0.100,
		domain.LevelNYOpen0830:         0.063,
		domain.LevelThirtyMinOpen:      0.080,
		domain.LevelNYOpen0700:         0.068,
		domain.LevelFourHourOpen:       0.056,
		domain.LevelWeeklyOpen:         0.049,
		domain.LevelHourlyOpen:         0.042,
		domain.LevelPreviousHourlyOpen: 0.041,
		domain.LevelPreviousWeekOpen:   0.024,
		domain.LevelPreviousDayHigh:    0.023,
		domain.LevelPreviousDayLow:     0.023,
		domain.LevelMonthlyOpen:        0.021,
		domain.LevelRange0700:          0.073,
		domain.LevelRange0830:          0.079,
		domain.LevelAsianKillZone:      0.053,
		domain.LevelLondonKillZone:     0.069,
		domain.LevelNYAMKillZone:       0.083,
		domain.LevelNYPMKillZone:       0.053,
	}
}

// Validate checks the table covers exactly the 18 known slots with
// non-negative weights summing to 1.0 within tolerance.
func (w WeightTable) Validate() error {
	if len(w) != len(domain.AllLevelNames) {
		return fmt.Errorf("weight table has %d entries, want %d", len(w), len(domain.AllLevelNames))
	}
	sum := 0.0
	for _, name := range domain.AllLevelNames {
		weight, ok := w[name]
		if !ok {
			return fmt.Errorf("weight table missing level %s", name)
		}
		if weight < 0 || math.IsNaN(weight) {
			return fmt.Errorf("weight for %s must be non-negative, got %v", name, weight)
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weight table sums to %.4f, want 1.0 ±%.3f", sum, weightSumTolerance)
	}
	return nil
}
