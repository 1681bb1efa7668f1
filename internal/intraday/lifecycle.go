package intraday

import (
	"time"

	"daily-bias-engine/internal/decay"
	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/session"
)

// SettleDelay models upstream data-provider latency: a prediction is not
// resolvable until the target hour's close plus this delay, even if a candle
// nominally exists, so we never score against partial/preliminary bars.
const SettleDelay = 16 * time.Minute

// ReferenceHours are the local hours we track sub-predictions for.
var ReferenceHours = []int{9, 10}

// Evaluator derives the lifecycle state of an hourly sub-prediction. Status
// is a pure function of (local now, reference open availability, target
// close availability); callers re-derive it on every read, which makes the
// state machine idempotent and strictly forward-moving as time advances.
type Evaluator struct {
	resolver *session.Resolver
	model    decay.Model
	settle   time.Duration
}

func NewEvaluator(resolver *session.Resolver, model decay.Model) *Evaluator {
	return &Evaluator{resolver: resolver, model: model, settle: SettleDelay}
}

// Input carries everything one evaluation needs. ReferenceOpen is the open
// of the reference hour's bar, TargetClose the close of the following hour's
// bar; both nil until the data layer has them.
type Input struct {
	Instrument    domain.Instrument
	Now           time.Time
	ReferenceHour int
	Result        domain.PredictionResult
	ReferenceOpen *float64
	TargetClose   *float64
}

// Evaluate produces the prediction record for one reference hour.
func (e *Evaluator) Evaluate(in Input) domain.IntradayPrediction {
	now := in.Now.UTC()
	refStart := e.resolver.LocalHourInstant(now, in.ReferenceHour, 0, in.Instrument)
	targetEnd := refStart.Add(2 * time.Hour)
	lockAt := targetEnd.Add(e.settle)

	factor := e.model.Factor(now, refStart)
	confidence := e.model.Apply(in.Result.Confidence, factor)

	local := e.resolver.LocalTime(now, in.Instrument)
	pred := domain.IntradayPrediction{
		Symbol:         in.Instrument.Symbol,
		TradeDate:      time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC),
		ReferenceHour:  in.ReferenceHour,
		Prediction:     in.Result.Prediction,
		Confidence:     confidence,
		BaseConfidence: in.Result.Confidence,
		DecayFactor:    factor,
		ReferenceOpen:  in.ReferenceOpen,
		TargetClose:    in.TargetClose,
	}

	switch {
	case now.Before(refStart):
		pred.Status = domain.StatusPending
	case now.Before(lockAt):
		pred.Status = domain.StatusActive
	default:
		pred.Status = domain.StatusLocked
	}

	if pred.Status == domain.StatusLocked && in.ReferenceOpen != nil && in.TargetClose != nil {
		pred.Status = domain.StatusVerified
		outcome := Verify(in.Result.Prediction, *in.ReferenceOpen, *in.TargetClose)
		pred.Outcome = &outcome
	}

	return pred
}

// Verify scores a frozen prediction against the realized move over
// [reference open, target close].
func Verify(prediction domain.Direction, referenceOpen, targetClose float64) domain.PredictionOutcome {
	wentUp := targetClose > referenceOpen
	if wentUp == (prediction == domain.DirectionBullish) {
		return domain.OutcomeCorrect
	}
	return domain.OutcomeWrong
}
