package scoring

import (
	"math"
	"testing"
	"time"

	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/levels"
)

func snapshotOf(values map[domain.LevelName]domain.ReferenceLevel) levels.Snapshot {
	return levels.NewSnapshot("ES", time.Date(2025, 1, 15, 15, 0, 0, 0, time.UTC), values)
}

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(nil)
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	return s
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	w := DefaultWeights()
	if err := w.Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if math.Abs(sum-1.0) > 0.001 {
		t.Errorf("weights sum to %v, want 1.0 ±0.001", sum)
	}
}

func TestValidateRejectsBadTables(t *testing.T) {
	missing := DefaultWeights()
	delete(missing, domain.LevelHourlyOpen)
	if err := missing.Validate(); err == nil {
		t.Error("expected error for missing slot")
	}

	negative := DefaultWeights()
	negative[domain.LevelHourlyOpen] = -0.042
	if err := negative.Validate(); err == nil {
		t.Error("expected error for negative weight")
	}

	skewed := DefaultWeights()
	skewed[domain.LevelHourlyOpen] += 0.01
	if err := skewed.Validate(); err == nil {
		t.Error("expected error for sum outside tolerance")
	}
}

func TestScoreAllScalarsBullish(t *testing.T) {
	s := newTestScorer(t)

	// Every slot a scalar at 100, price above all of them.
	values := make(map[domain.LevelName]domain.ReferenceLevel, len(domain.AllLevelNames))
	for _, name := range domain.AllLevelNames {
		values[name] = domain.ScalarLevel{Value: 100}
	}

	out := s.Score(110, snapshotOf(values))

	if out.Prediction != domain.DirectionBullish {
		t.Errorf("prediction = %s, want BULLISH", out.Prediction)
	}
	if out.BullishCount != 18 || out.TotalSignals != 18 {
		t.Errorf("counts = %d/%d, want 18/18", out.BullishCount, out.TotalSignals)
	}
	if math.Abs(out.WeightedScore-1.0) > 0.001 {
		t.Errorf("weighted_score = %v, want 1.0", out.WeightedScore)
	}
	if math.Abs(out.Confidence-100) > 1e-9 {
		t.Errorf("confidence = %v, want 100", out.Confidence)
	}
}

func TestScoreAllScalarsBearish(t *testing.T) {
	s := newTestScorer(t)

	values := make(map[domain.LevelName]domain.ReferenceLevel, len(domain.AllLevelNames))
	for _, name := range domain.AllLevelNames {
		values[name] = domain.ScalarLevel{Value: 100}
	}

	out := s.Score(90, snapshotOf(values))

	if out.Prediction != domain.DirectionBearish {
		t.Errorf("prediction = %s, want BEARISH", out.Prediction)
	}
	if out.BullishCount != 0 {
		t.Errorf("bullish_count = %d, want 0", out.BullishCount)
	}
	if out.NormalizedScore != 0 || out.Confidence != 100 {
		t.Errorf("normalized = %v confidence = %v, want 0 and 100", out.NormalizedScore, out.Confidence)
	}
}

func TestScoreWithinRangeExcludedFromDenominator(t *testing.T) {
	s := newTestScorer(t)

	// A single range level with price inside: no contributing weight at all.
	out := s.Score(100, snapshotOf(map[domain.LevelName]domain.ReferenceLevel{
		domain.LevelAsianKillZone: domain.RangeLevel{High: 105, Low: 95},
	}))

	if out.NormalizedScore != 0.5 {
		t.Errorf("normalized_score = %v, want the neutral 0.5 default", out.NormalizedScore)
	}
	if out.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", out.Confidence)
	}
	if out.Prediction != domain.DirectionBullish {
		t.Errorf("tie-break prediction = %s, want BULLISH", out.Prediction)
	}
	if out.TotalSignals != 1 {
		t.Errorf("total_signals = %d, want 1 (neutral still counts as present)", out.TotalSignals)
	}
}

func TestScoreNeutralDoesNotDiluteContributors(t *testing.T) {
	s := newTestScorer(t)

	// One bullish scalar plus one WITHIN range: the range must not drag the
	// normalized score toward 0.5.
	out := s.Score(100, snapshotOf(map[domain.LevelName]domain.ReferenceLevel{
		domain.LevelDailyOpenMidnight: domain.ScalarLevel{Value: 90},
		domain.LevelLondonKillZone:    domain.RangeLevel{High: 105, Low: 95},
	}))

	if out.NormalizedScore != 1.0 {
		t.Errorf("normalized_score = %v, want 1.0 with the neutral excluded", out.NormalizedScore)
	}
	if out.Confidence != 100 {
		t.Errorf("confidence = %v, want 100", out.Confidence)
	}
}

func TestScoreEmptySnapshotNeutralDefault(t *testing.T) {
	s := newTestScorer(t)

	out := s.Score(100, snapshotOf(nil))

	if out.NormalizedScore != 0.5 || out.Confidence != 0 {
		t.Errorf("empty snapshot: normalized = %v confidence = %v, want 0.5 and 0", out.NormalizedScore, out.Confidence)
	}
	if out.Prediction != domain.DirectionBullish {
		t.Errorf("empty snapshot tie-break = %s, want BULLISH", out.Prediction)
	}
	if out.TotalSignals != 0 {
		t.Errorf("total_signals = %d, want 0", out.TotalSignals)
	}
	for _, sig := range out.Signals {
		if sig.Status != domain.SignalNotAvailable {
			t.Errorf("signal %s status = %s, want N/A", sig.Level, sig.Status)
		}
	}
}

func TestScoreRangeAboveAndBelow(t *testing.T) {
	s := newTestScorer(t)
	snap := snapshotOf(map[domain.LevelName]domain.ReferenceLevel{
		domain.LevelNYAMKillZone: domain.RangeLevel{High: 105, Low: 95},
	})

	above := s.Score(110, snap)
	if above.Prediction != domain.DirectionBullish || above.BullishCount != 1 {
		t.Errorf("price above range: %+v", above)
	}

	below := s.Score(90, snap)
	if below.Prediction != domain.DirectionBearish || below.BullishCount != 0 {
		t.Errorf("price below range: %+v", below)
	}
	if below.NormalizedScore != 0 {
		t.Errorf("below normalized = %v, want 0", below.NormalizedScore)
	}
}

func TestConfidenceBoundedForAllMixes(t *testing.T) {
	s := newTestScorer(t)

	// Sweep mixes of bullish and bearish scalar levels; confidence must stay
	// inside [0,100] by construction.
	for bullish := 0; bullish <= len(domain.AllLevelNames); bullish++ {
		values := make(map[domain.LevelName]domain.ReferenceLevel)
		for i, name := range domain.AllLevelNames {
			if i < bullish {
				values[name] = domain.ScalarLevel{Value: 90} // price above
			} else {
				values[name] = domain.ScalarLevel{Value: 110} // price below
			}
		}
		out := s.Score(100, snapshotOf(values))
		if out.Confidence < 0 || out.Confidence > 100 {
			t.Fatalf("confidence out of bounds with %d bullish levels: %v", bullish, out.Confidence)
		}
		if out.NormalizedScore < 0 || out.NormalizedScore > 1 {
			t.Fatalf("normalized score out of bounds: %v", out.NormalizedScore)
		}
	}
}

func TestScorerRejectsInvalidTable(t *testing.T) {
	if _, err := NewScorer(WeightTable{domain.LevelHourlyOpen: 1.0}); err == nil {
		t.Fatal("expected error for incomplete weight table")
	}
}
