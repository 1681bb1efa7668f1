package job

import (
	"context"
	"log"
	"time"

	"daily-bias-engine/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type ForecastRunner interface {
	ComputeForecast(ctx context.Context, symbol string) (*domain.Forecast, error)
}

// ForecastJob recomputes and persists every instrument's forecast on a fixed
// cadence so the intraday lifecycle rows advance even when nobody is asking.
type ForecastJob struct {
	tracer       trace.Tracer
	runner       ForecastRunner
	pollInterval time.Duration
}

func NewForecastJob(tracer trace.Tracer, runner ForecastRunner, pollInterval time.Duration) *ForecastJob {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}
	return &ForecastJob{tracer: tracer, runner: runner, pollInterval: pollInterval}
}

func (j *ForecastJob) Start(ctx context.Context) {
	if j.runner == nil {
		log.Println("Forecast job disabled: no runner")
		<-ctx.Done()
		return
	}

	j.runOnce(ctx)
	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *ForecastJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "forecast-job.run-once")
	defer span.End()

	for _, symbol := range domain.SupportedSymbols {
		forecast, err := j.runner.ComputeForecast(ctx, symbol)
		if err != nil {
			log.Printf("forecast cycle error for %s: %v", symbol, err)
			continue
		}
		log.Printf("Forecast %s: %s (%.1f%% confidence, window %s)",
			symbol, forecast.Result.Prediction, forecast.Result.Confidence, forecast.Window)
	}
}
