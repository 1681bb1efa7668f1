package domain

import "time"

type Direction string

const (
	DirectionBullish Direction = "BULLISH"
	DirectionBearish Direction = "BEARISH"
)

type SignalStatus string

const (
	SignalBullish      SignalStatus = "BULLISH"
	SignalBearish      SignalStatus = "BEARISH"
	SignalNeutral      SignalStatus = "NEUTRAL"
	SignalNotAvailable SignalStatus = "N/A"
)

// Signal is the per-level outcome of one scoring pass. Value is 1 (bullish),
// 0 (bearish), or nil for neutral/absent levels; neutral levels carry their
// reference value but contribute nothing to the weighted aggregate.
type Signal struct {
	Level          LevelName    `json:"level_name"`
	Value          *float64     `json:"signal"`
	Weight         float64      `json:"weight"`
	ReferenceValue *float64     `json:"reference_value"`
	Distance       *float64     `json:"distance"`
	Status         SignalStatus `json:"status"`
}

// PredictionResult is the aggregate weighted call for one scoring pass.
// Recomputed on every call; never persisted.
type PredictionResult struct {
	Prediction      Direction `json:"prediction"`
	WeightedScore   float64   `json:"weighted_score"`
	NormalizedScore float64   `json:"normalized_score"`
	Confidence      float64   `json:"confidence"`
	BullishCount    int       `json:"bullish_count"`
	TotalSignals    int       `json:"total_signals"`
	Signals         []Signal  `json:"signals"`
}

type PredictionStatus string

const (
	StatusPending  PredictionStatus = "PENDING"
	StatusActive   PredictionStatus = "ACTIVE"
	StatusLocked   PredictionStatus = "LOCKED"
	StatusVerified PredictionStatus = "VERIFIED"
)

// Rank orders the lifecycle states; transitions only ever move to a higher
// rank as wall-clock time advances.
func (s PredictionStatus) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusActive:
		return 1
	case StatusLocked:
		return 2
	case StatusVerified:
		return 3
	}
	return -1
}

type PredictionOutcome string

const (
	OutcomeCorrect PredictionOutcome = "CORRECT"
	OutcomeWrong   PredictionOutcome = "WRONG"
)

// IntradayPrediction is one hourly sub-prediction for an instrument's local
// reference hour (9 or 10). The record is frozen once Status reaches VERIFIED.
type IntradayPrediction struct {
	ID             int64              `json:"id,omitempty"`
	Symbol         string             `json:"symbol"`
	TradeDate      time.Time          `json:"trade_date"`
	ReferenceHour  int                `json:"reference_hour"`
	Prediction     Direction          `json:"prediction"`
	Confidence     float64            `json:"confidence"`
	BaseConfidence float64            `json:"base_confidence"`
	DecayFactor    float64            `json:"decay_factor"`
	Status         PredictionStatus   `json:"status"`
	ReferenceOpen  *float64           `json:"reference_open"`
	TargetClose    *float64           `json:"target_close,omitempty"`
	Outcome        *PredictionOutcome `json:"actual_result,omitempty"`
	CreatedAt      time.Time          `json:"created_at,omitempty"`
	VerifiedAt     *time.Time         `json:"verified_at,omitempty"`
}

// ConversationMessage is one turn of an advisor chat, oldest-first when
// assembled into a prompt.
type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AccuracyStats aggregates verified intraday outcomes for one instrument.
type AccuracyStats struct {
	Symbol   string  `json:"symbol"`
	Verified int     `json:"verified"`
	Correct  int     `json:"correct"`
	HitRate  float64 `json:"hit_rate"`
}

// Forecast is the full per-instrument output: the weighted prediction plus
// the two tracked intraday reference hours. All fields are plain floats and
// strings so any transport layer can serialize it directly.
type Forecast struct {
	Symbol       string               `json:"symbol"`
	AsOf         time.Time            `json:"as_of"`
	CurrentPrice float64              `json:"current_price"`
	Window       string               `json:"window"`
	Result       PredictionResult     `json:"result"`
	Intraday     []IntradayPrediction `json:"intraday"`
}
