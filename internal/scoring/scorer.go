package scoring

import (
	"fmt"
	"math"

	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/levels"
)

// Scorer converts current price plus a reference-level snapshot into a
// confidence-scored directional call. Stateless beyond its weight table;
// safe to share across goroutines.
type Scorer struct {
	weights WeightTable
}

func NewScorer(weights WeightTable) (*Scorer, error) {
	if weights == nil {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weight table: %w", err)
	}
	return &Scorer{weights: weights}, nil
}

// Score is total over any combination of present/absent levels: absent slots
// become N/A signals, in-range prices become neutral signals, and only when
// nothing contributes does the 0.5 neutral default apply.
func (s *Scorer) Score(price float64, snap levels.Snapshot) domain.PredictionResult {
	signals := make([]domain.Signal, 0, len(domain.AllLevelNames))

	weightedScore := 0.0
	totalWeightUsed := 0.0
	bullishCount := 0
	totalSignals := 0

	for _, name := range domain.AllLevelNames {
		weight := s.weights[name]
		level, ok := snap.Get(name)
		if !ok {
			signals = append(signals, domain.Signal{Level: name, Weight: weight, Status: domain.SignalNotAvailable})
			continue
		}

		sig := s.evaluate(name, weight, price, level)
		signals = append(signals, sig)
		totalSignals++

		if sig.Value == nil {
			// Neutral range signals stay out of both the weighted sum and
			// the contributing-weight denominator. They appear in the signal
			// list but never move the score.
			continue
		}
		weightedScore += *sig.Value * weight
		totalWeightUsed += weight
		if *sig.Value == 1 {
			bullishCount++
		}
	}

	normalized := 0.5 // fully-neutral default when nothing contributes
	if totalWeightUsed > 0 {
		normalized = weightedScore / totalWeightUsed
	}

	prediction := domain.DirectionBearish
	if normalized >= 0.5 {
		prediction = domain.DirectionBullish
	}

	return domain.PredictionResult{
		Prediction:      prediction,
		WeightedScore:   weightedScore,
		NormalizedScore: normalized,
		Confidence:      math.Abs(normalized-0.5) / 0.5 * 100,
		BullishCount:    bullishCount,
		TotalSignals:    totalSignals,
		Signals:         signals,
	}
}

func (s *Scorer) evaluate(name domain.LevelName, weight, price float64, level domain.ReferenceLevel) domain.Signal {
	sig := domain.Signal{Level: name, Weight: weight}

	switch l := level.(type) {
	case domain.ScalarLevel:
		ref := l.Value
		distance := price - ref
		sig.ReferenceValue = &ref
		sig.Distance = &distance
		if price > ref {
			sig.Value = floatPtr(1)
			sig.Status = domain.SignalBullish
		} else {
			sig.Value = floatPtr(0)
			sig.Status = domain.SignalBearish
		}
	case domain.RangeLevel:
		mid := l.Mid()
		distance := price - mid
		sig.ReferenceValue = &mid
		sig.Distance = &distance
		switch l.Position(price) {
		case domain.PositionAbove:
			sig.Value = floatPtr(1)
			sig.Status = domain.SignalBullish
		case domain.PositionBelow:
			sig.Value = floatPtr(0)
			sig.Status = domain.SignalBearish
		default:
			sig.Status = domain.SignalNeutral
		}
	default:
		sig.Status = domain.SignalNotAvailable
	}
	return sig
}

func floatPtr(v float64) *float64 {
	return &v
}
