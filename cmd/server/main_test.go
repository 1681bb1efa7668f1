package main

import (
	"context"
	"math"
	"net/http"
	"os"
	"testing"
	"time"

	"daily-bias-engine/internal/bot"
	"daily-bias-engine/internal/config"
	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/job"
	"daily-bias-engine/internal/scoring"
	"daily-bias-engine/internal/service"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func TestLoadWeightsEmpty(t *testing.T) {
	weights := loadWeights("")
	if err := weights.Validate(); err != nil {
		t.Fatalf("default weights should validate: %v", err)
	}
}

func TestLoadWeightsOverride(t *testing.T) {
	// Shift 0.01 from the midnight open to the monthly open; the table still
	// sums to 1.0 so the override is accepted.
	weights := loadWeights(`{"daily_open_midnight": 0.090, "monthly_open": 0.031}`)
	if math.Abs(weights[domain.LevelDailyOpenMidnight]-0.090) > 1e-9 {
		t.Fatalf("expected overridden midnight weight, got %v", weights[domain.LevelDailyOpenMidnight])
	}
	if math.Abs(weights[domain.LevelMonthlyOpen]-0.031) > 1e-9 {
		t.Fatalf("expected overridden monthly weight, got %v", weights[domain.LevelMonthlyOpen])
	}
}

func TestLoadWeightsInvalidJSONFallsBack(t *testing.T) {
	weights := loadWeights("{not json")
	defaults := scoring.DefaultWeights()
	if weights[domain.LevelDailyOpenMidnight] != defaults[domain.LevelDailyOpenMidnight] {
		t.Fatal("expected default weights on parse failure")
	}
}

func TestLoadWeightsBadSumFallsBack(t *testing.T) {
	// Doubling one weight breaks the sum constraint.
	weights := loadWeights(`{"daily_open_midnight": 0.9}`)
	defaults := scoring.DefaultWeights()
	if weights[domain.LevelDailyOpenMidnight] != defaults[domain.LevelDailyOpenMidnight] {
		t.Fatal("expected default weights when overrides fail validation")
	}
}

func stubServerDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewProvider := newProviderFunc
	origStartBarPoller := startBarPollerFunc
	origStartForecastJob := startForecastJobFunc
	origStartVerifierJob := startVerifierJobFunc
	origStartTelegram := startTelegramBotFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			RedisURL:            "",
			DatabaseURL:         "",
			BarPollSecs:         60,
			ForecastPollSecs:    300,
			VerifierPollSecs:    120,
			ForecastCacheSecs:   60,
			DecayMaxHoursBefore: 6,
			DecayMinFactor:      0.5,
		}
	}
	initPostgresFunc = func(context.Context, string) {}
	initRedisFunc = func(context.Context, string) {}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newProviderFunc = func(string, string, trace.Tracer) service.BarProvider { return nil }
	startBarPollerFunc = func(*job.BarPoller, context.Context) {}
	startForecastJobFunc = func(*job.ForecastJob, context.Context) {}
	startVerifierJobFunc = func(*job.VerifierJob, context.Context) {}
	startTelegramBotFunc = func(string, bot.Forecaster) {}
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newProviderFunc = origNewProvider
		startBarPollerFunc = origStartBarPoller
		startForecastJobFunc = origStartForecastJob
		startVerifierJobFunc = origStartVerifierJob
		startTelegramBotFunc = origStartTelegram
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}
