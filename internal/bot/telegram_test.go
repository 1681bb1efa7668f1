package bot

import (
	"strings"
	"testing"
	"time"

	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/service"
)

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	StartTelegramBot("", nil)
}

func TestFormatForecast(t *testing.T) {
	outcome := domain.OutcomeCorrect
	f := &domain.Forecast{
		Symbol:       "ES",
		AsOf:         time.Date(2025, 1, 15, 15, 30, 0, 0, time.UTC),
		CurrentPrice: 6010.25,
		Window:       "10am_hour",
		Result: domain.PredictionResult{
			Prediction:      domain.DirectionBullish,
			NormalizedScore: 0.72,
			Confidence:      44,
			BullishCount:    12,
			TotalSignals:    16,
		},
		Intraday: []domain.IntradayPrediction{
			{ReferenceHour: 9, Prediction: domain.DirectionBullish, Confidence: 40, Status: domain.StatusVerified, Outcome: &outcome},
			{ReferenceHour: 10, Prediction: domain.DirectionBullish, Confidence: 44, Status: domain.StatusActive},
		},
	}

	msg := FormatForecast(f)
	for _, want := range []string{"ES BULLISH", "44.0%", "12/16 bullish", "9am: BULLISH", "CORRECT", "10am_hour"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatLevels(t *testing.T) {
	open := 6000.0
	high, low := 6020.0, 5990.0
	degraded := 5985.5
	r := &service.LevelsReport{
		Symbol:       "ES",
		CurrentPrice: 6010,
		Levels: []domain.LevelValue{
			{Name: domain.LevelDailyOpenMidnight, Kind: domain.LevelKindScalar, Value: &open},
			{Name: domain.LevelHourlyOpen, Kind: domain.LevelKindScalar, Value: &degraded, Degraded: true},
			{Name: domain.LevelAsianKillZone, Kind: domain.LevelKindRange, High: &high, Low: &low},
		},
	}

	msg := FormatLevels(r)
	for _, want := range []string{"daily_open_midnight: 6000.00", "hourly_open: 5985.50 ~", "asian_kill_zone: 6020.00 / 5990.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
