package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/service"

	tele "gopkg.in/telebot.v3"
)

type Forecaster interface {
	GetForecast(ctx context.Context, symbol string) (*domain.Forecast, error)
	GetLevels(ctx context.Context, symbol string) (*service.LevelsReport, error)
	Accuracy(ctx context.Context, symbol string, days int) (*domain.AccuracyStats, error)
}

func StartTelegramBot(token string, forecaster Forecaster) {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/bias", func(c tele.Context) error {
		symbol, ok := symbolArg(c, "/bias ES")
		if !ok {
			return nil
		}
		forecast, err := forecaster.GetForecast(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Error computing forecast for %s: %v", symbol, err))
		}
		return c.Send(FormatForecast(forecast))
	})

	b.Handle("/levels", func(c tele.Context) error {
		symbol, ok := symbolArg(c, "/levels ES")
		if !ok {
			return nil
		}
		report, err := forecaster.GetLevels(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Error computing levels for %s: %v", symbol, err))
		}
		return c.Send(FormatLevels(report))
	})

	b.Handle("/accuracy", func(c tele.Context) error {
		symbol, ok := symbolArg(c, "/accuracy ES")
		if !ok {
			return nil
		}
		stats, err := forecaster.Accuracy(context.Background(), symbol, 30)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching accuracy for %s: %v", symbol, err))
		}
		return c.Send(fmt.Sprintf("%s accuracy (30d)\nVerified: %d\nCorrect: %d\nHit rate: %.1f%%",
			stats.Symbol, stats.Verified, stats.Correct, stats.HitRate*100))
	})

	log.Println("Telegram bot started")
	go b.Start()
}

func symbolArg(c tele.Context, usage string) (string, bool) {
	args := c.Args()
	if len(args) == 0 {
		_ = c.Send(fmt.Sprintf("Usage: %s\nSupported: %s", usage, strings.Join(domain.SupportedSymbols, ", ")))
		return "", false
	}
	symbol := strings.ToUpper(args[0])
	if _, ok := domain.Instruments[symbol]; !ok {
		_ = c.Send(fmt.Sprintf("Unknown symbol: %s\nSupported: %s", symbol, strings.Join(domain.SupportedSymbols, ", ")))
		return "", false
	}
	return symbol, true
}

// FormatForecast renders a forecast as a plain-text Telegram message.
func FormatForecast(f *domain.Forecast) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", f.Symbol, f.Result.Prediction)
	fmt.Fprintf(&sb, "Confidence: %.1f%%\n", f.Result.Confidence)
	fmt.Fprintf(&sb, "Score: %.3f (%d/%d bullish)\n", f.Result.NormalizedScore, f.Result.BullishCount, f.Result.TotalSignals)
	fmt.Fprintf(&sb, "Price: %.2f\n", f.CurrentPrice)
	fmt.Fprintf(&sb, "Window: %s", f.Window)
	for _, p := range f.Intraday {
		fmt.Fprintf(&sb, "\n%dam: %s %.1f%% [%s]", p.ReferenceHour, p.Prediction, p.Confidence, p.Status)
		if p.Outcome != nil {
			fmt.Fprintf(&sb, " %s", *p.Outcome)
		}
	}
	return sb.String()
}

// FormatLevels renders a level report as a plain-text Telegram message.
func FormatLevels(r *service.LevelsReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s levels @ %.2f\n", r.Symbol, r.CurrentPrice)
	for _, lv := range r.Levels {
		switch lv.Kind {
		case domain.LevelKindRange:
			fmt.Fprintf(&sb, "%s: %.2f / %.2f\n", lv.Name, *lv.High, *lv.Low)
		default:
			if lv.Value != nil {
				marker := ""
				if lv.Degraded {
					marker = " ~"
				}
				fmt.Fprintf(&sb, "%s: %.2f%s\n", lv.Name, *lv.Value, marker)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
