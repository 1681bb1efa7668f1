package main

import (
	"context"
	"os"
	"testing"
	"time"

	"daily-bias-engine/internal/advisor"
	"daily-bias-engine/internal/config"
	"daily-bias-engine/internal/intraday"
	"daily-bias-engine/internal/levels"
	"daily-bias-engine/internal/repository"
	"daily-bias-engine/internal/scoring"
	"daily-bias-engine/internal/service"
	"daily-bias-engine/internal/session"

	"github.com/charmbracelet/ssh"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	restore := stubSSHDeps()
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

func stubSSHDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewBarRepo := newBarRepoFunc
	origNewPredictionRepo := newPredictionRepoFunc
	origNewSSHUserRepo := newSSHUserRepoFunc
	origNewConvRepo := newConversationRepoFunc
	origNewProvider := newProviderFunc
	origNewMarketService := newMarketServiceFunc
	origNewForecastService := newForecastServiceFunc
	origNewOpenAIClient := newOpenAIClientFunc
	origNewAdvisor := newAdvisorServiceFunc
	origNewWishServer := newWishServerFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			RedisURL:            "",
			DatabaseURL:         "",
			SSHPort:             2222,
			SSHHostKeyPath:      ".ssh/test_key",
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
	newBarRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.BarRepository {
		return nil
	}
	newPredictionRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.PredictionRepository {
		return nil
	}
	newSSHUserRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.SSHUserRepository {
		return nil
	}
	newConversationRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.ConversationRepository {
		return nil
	}
	newProviderFunc = func(string, string, trace.Tracer) service.BarProvider { return nil }
	newMarketServiceFunc = func(
		trace.Tracer,
		service.BarProvider,
		service.BarRepository,
		*session.Resolver,
		service.RedisClient,
	) *service.MarketDataService {
		return nil
	}
	newForecastServiceFunc = func(
		trace.Tracer,
		service.MarketData,
		service.PredictionStore,
		*levels.Calculator,
		*scoring.Scorer,
		*intraday.Evaluator,
		*session.Resolver,
		service.RedisClient,
		time.Duration,
	) *service.ForecastService {
		return nil
	}
	newOpenAIClientFunc = func(string) advisor.LLMClient { return nil }
	newAdvisorServiceFunc = func(
		trace.Tracer, advisor.LLMClient, advisor.ForecastQuerier,
		advisor.ConversationStore, string, int,
	) *advisor.AdvisorService {
		return nil
	}
	newWishServerFunc = func(ops ...ssh.Option) (*ssh.Server, error) {
		return nil, nil
	}
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newBarRepoFunc = origNewBarRepo
		newPredictionRepoFunc = origNewPredictionRepo
		newSSHUserRepoFunc = origNewSSHUserRepo
		newConversationRepoFunc = origNewConvRepo
		newProviderFunc = origNewProvider
		newMarketServiceFunc = origNewMarketService
		newForecastServiceFunc = origNewForecastService
		newOpenAIClientFunc = origNewOpenAIClient
		newAdvisorServiceFunc = origNewAdvisor
		newWishServerFunc = origNewWishServer
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
	}
}
