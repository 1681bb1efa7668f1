package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daily-bias-engine/internal/bot"
	"daily-bias-engine/internal/cache"
	"daily-bias-engine/internal/config"
	"daily-bias-engine/internal/db"
	"daily-bias-engine/internal/decay"
	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/handler"
	"daily-bias-engine/internal/intraday"
	"daily-bias-engine/internal/job"
	"daily-bias-engine/internal/levels"
	"daily-bias-engine/internal/provider"
	"daily-bias-engine/internal/repository"
	"daily-bias-engine/internal/scoring"
	"daily-bias-engine/internal/service"
	"daily-bias-engine/internal/session"
	"daily-bias-engine/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "daily-bias-engine/docs"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer

	newProviderFunc = func(baseURL, apiKey string, tracer trace.Tracer) service.BarProvider {
		return provider.NewMarketDataProvider(baseURL, apiKey, tracer)
	}

	startBarPollerFunc   = func(p *job.BarPoller, ctx context.Context) { go p.Start(ctx) }
	startForecastJobFunc = func(j *job.ForecastJob, ctx context.Context) { go j.Start(ctx) }
	startVerifierJobFunc = func(j *job.VerifierJob, ctx context.Context) { go j.Start(ctx) }
	startTelegramBotFunc = bot.StartTelegramBot

	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// loadWeights merges WEIGHT_OVERRIDES on top of the default table. Any parse
// or validation failure falls back to the defaults with a warning so a bad
// override can never take the engine down.
func loadWeights(raw string) scoring.WeightTable {
	weights := scoring.DefaultWeights()
	if raw == "" {
		return weights
	}
	var overrides map[domain.LevelName]float64
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		log.Printf("Warning: invalid WEIGHT_OVERRIDES JSON, using defaults: %v", err)
		return scoring.DefaultWeights()
	}
	for name, w := range overrides {
		weights[name] = w
	}
	if err := weights.Validate(); err != nil {
		log.Printf("Warning: WEIGHT_OVERRIDES rejected, using defaults: %v", err)
		return scoring.DefaultWeights()
	}
	log.Printf("Applied %d weight overrides", len(overrides))
	return weights
}

// @title           Daily Bias Engine API
// @version         1.0
// @description     Reference-level forecasts with weighted signal scoring and OpenTelemetry tracing.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initPostgresFunc(ctx, cfg.DatabaseURL)
	initRedisFunc(ctx, cfg.RedisURL)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Repositories and migrations. Without Postgres the services get nil
	// stores and degrade to cache-only reads instead of dereferencing a
	// nil pool.
	var barRepo service.BarRepository
	var predictionRepo service.PredictionStore
	if db.Pool != nil {
		br := repository.NewBarRepository(db.Pool, tracer)
		pr := repository.NewPredictionRepository(db.Pool, tracer)
		if err := br.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run bar migrations: %v", err)
		}
		if err := pr.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run prediction migrations: %v", err)
		}
		barRepo = br
		predictionRepo = pr
	}

	// Session and scoring machinery
	resolver, err := session.NewResolver()
	if err != nil {
		log.Fatalf("failed to load venue timezones: %v", err)
	}
	scorer, err := scoring.NewScorer(loadWeights(cfg.WeightOverrides))
	if err != nil {
		log.Fatalf("invalid weight table: %v", err)
	}
	calculator := levels.NewCalculator(resolver)
	decayModel := decay.NewModel(cfg.DecayMaxHoursBefore, cfg.DecayMinFactor)
	evaluator := intraday.NewEvaluator(resolver, decayModel)

	// Services
	mdProvider := newProviderFunc(cfg.MarketDataBaseURL, cfg.MarketDataAPIKey, tracer)
	marketSvc := service.NewMarketDataService(tracer, mdProvider, barRepo, resolver, cache.Client)
	forecastSvc := service.NewForecastService(
		tracer, marketSvc, predictionRepo,
		calculator, scorer, evaluator, resolver,
		cache.Client, time.Duration(cfg.ForecastCacheSecs)*time.Second,
	)

	// Background jobs (stopped by ctx cancel)
	startBarPollerFunc(job.NewBarPoller(tracer, marketSvc, cfg.BarPollSecs), ctx)
	startForecastJobFunc(job.NewForecastJob(tracer, forecastSvc, time.Duration(cfg.ForecastPollSecs)*time.Second), ctx)
	startVerifierJobFunc(job.NewVerifierJob(tracer, forecastSvc, time.Duration(cfg.VerifierPollSecs)*time.Second), ctx)

	// Telegram bot
	startTelegramBotFunc(cfg.TelegramBotToken, forecastSvc)

	// HTTP surface
	h := handler.New(tracer, marketSvc, forecastSvc)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("daily-bias-engine"))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-API-Key"}
	r.Use(cors.New(corsConfig))

	h.RegisterRoutes(r, cfg.APIKey)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
