package advisor

import (
	"fmt"
	"strings"
	"time"

	"daily-bias-engine/internal/domain"
)

const advisorRole = `You are a daily-bias trading assistant. Your role is to explain the engine's deterministic forecasts and reference levels, NOT to generate predictions yourself.

The engine scores each instrument against 18 reference levels (prior closes, session opens, previous highs/lows, kill-zone ranges). Price above a level is a bullish signal, below is bearish, inside a range is neutral. The weighted aggregate produces a BULLISH or BEARISH call with a confidence percentage; intraday sub-predictions target the 9am and 10am local hours and are verified against the actual hourly close.

Rules:
- Always reference the engine's actual output when making observations.
- Never fabricate a forecast, level, or outcome. If the engine has no data for an instrument, say so.
- Express uncertainty when confidence is low or signals are split.
- Confidence below 20% means the signals are nearly balanced; say so plainly.
- Keep responses concise. You are talking via Telegram.
- Do not provide financial advice disclaimers on every message. The user understands this is informational.
- When asked about an instrument, summarize: current price, the daily call with confidence, and how the intraday predictions stand.
- Cite the 30-day hit rate when discussing how much weight to put on a call.`

func BuildSystemPrompt(engineContext string) string {
	var sb strings.Builder
	sb.WriteString(advisorRole)
	sb.WriteString("\n\n--- LIVE ENGINE OUTPUT (as of ")
	sb.WriteString(time.Now().UTC().Format(time.RFC822))
	sb.WriteString(") ---\n")
	sb.WriteString(engineContext)
	return sb.String()
}

// FormatEngineContext renders forecasts and accuracy stats into the plain-text
// block embedded in the system prompt.
func FormatEngineContext(forecasts []*domain.Forecast, stats []*domain.AccuracyStats) string {
	var sb strings.Builder

	if len(forecasts) > 0 {
		sb.WriteString("\nCurrent Forecasts:\n")
		for _, f := range forecasts {
			sb.WriteString(fmt.Sprintf("  %s: %s conf=%.1f%% score=%.3f (%d/%d bullish) price=%.2f window=%s\n",
				f.Symbol, f.Result.Prediction, f.Result.Confidence,
				f.Result.NormalizedScore, f.Result.BullishCount, f.Result.TotalSignals,
				f.CurrentPrice, f.Window))
			for _, p := range f.Intraday {
				line := fmt.Sprintf("    %dam hour: %s conf=%.1f%% [%s]",
					p.ReferenceHour, p.Prediction, p.Confidence, p.Status)
				if p.Outcome != nil {
					line += " -> " + string(*p.Outcome)
				}
				sb.WriteString(line + "\n")
			}
		}
	}

	if len(stats) > 0 {
		sb.WriteString("\n30-Day Verified Accuracy:\n")
		for _, a := range stats {
			if a.Verified == 0 {
				sb.WriteString(fmt.Sprintf("  %s: no verified predictions yet\n", a.Symbol))
				continue
			}
			sb.WriteString(fmt.Sprintf("  %s: %d/%d correct (%.1f%%)\n",
				a.Symbol, a.Correct, a.Verified, a.HitRate))
		}
	}

	if sb.Len() == 0 {
		return "No engine output currently available."
	}
	return sb.String()
}
