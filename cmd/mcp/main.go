// Command mcp exposes the forecast engine to MCP clients over stdio.
// Logging goes to stderr so it never corrupts the protocol stream.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"

	"daily-bias-engine/internal/cache"
	"daily-bias-engine/internal/config"
	"daily-bias-engine/internal/db"
	"daily-bias-engine/internal/decay"
	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/intraday"
	"daily-bias-engine/internal/levels"
	"daily-bias-engine/internal/provider"
	"daily-bias-engine/internal/repository"
	"daily-bias-engine/internal/scoring"
	"daily-bias-engine/internal/service"
	"daily-bias-engine/internal/session"
	"daily-bias-engine/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// forecastQuerier is the slice of the forecast service the MCP tools call.
type forecastQuerier interface {
	GetForecast(ctx context.Context, symbol string) (*domain.Forecast, error)
	GetLevels(ctx context.Context, symbol string) (*service.LevelsReport, error)
	Accuracy(ctx context.Context, symbol string, days int) (*domain.AccuracyStats, error)
}

type symbolArgs struct {
	Symbol string `json:"symbol" jsonschema:"instrument symbol, one of ES, NQ, BTC, ETH, SPX, UK100"`
}

type accuracyArgs struct {
	Symbol string `json:"symbol" jsonschema:"instrument symbol, one of ES, NQ, BTC, ETH, SPX, UK100"`
	Days   int    `json:"days,omitempty" jsonschema:"lookback window in days, default 30"`
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func registerTools(server *mcp.Server, forecasts forecastQuerier) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_instruments",
		Description: "List the instruments the engine tracks, with venue and timezone.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, any, error) {
		out := make([]domain.Instrument, 0, len(domain.SupportedSymbols))
		for _, sym := range domain.SupportedSymbols {
			out = append(out, domain.Instruments[sym])
		}
		return jsonResult(out)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_forecast",
		Description: "Get the current daily bias forecast for an instrument: the weighted BULLISH/BEARISH call, confidence, per-level signals and intraday predictions.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args symbolArgs) (*mcp.CallToolResult, any, error) {
		forecast, err := forecasts.GetForecast(ctx, args.Symbol)
		if err != nil {
			return nil, nil, fmt.Errorf("get forecast: %w", err)
		}
		return jsonResult(forecast)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_levels",
		Description: "Get the current reference levels for an instrument: session opens, previous highs/lows and kill-zone ranges.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args symbolArgs) (*mcp.CallToolResult, any, error) {
		report, err := forecasts.GetLevels(ctx, args.Symbol)
		if err != nil {
			return nil, nil, fmt.Errorf("get levels: %w", err)
		}
		return jsonResult(report)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_accuracy",
		Description: "Get verified intraday prediction accuracy for an instrument over a lookback window.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args accuracyArgs) (*mcp.CallToolResult, any, error) {
		days := args.Days
		if days <= 0 {
			days = 30
		}
		stats, err := forecasts.Accuracy(ctx, args.Symbol, days)
		if err != nil {
			return nil, nil, fmt.Errorf("get accuracy: %w", err)
		}
		return jsonResult(stats)
	})
}

func main() {
	log.SetOutput(os.Stderr)
	godotenv.Load()
	cfg := config.Load()

	if cfg.MCPTransport != "stdio" {
		log.Fatalf("unsupported MCP transport: %s", cfg.MCPTransport)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db.InitPostgres(ctx, cfg.DatabaseURL)
	cache.InitRedis(ctx, cfg.RedisURL)

	tp, tracer, err := tracing.InitTracer(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	resolver, err := session.NewResolver()
	if err != nil {
		log.Fatalf("failed to load venue timezones: %v", err)
	}
	scorer, err := scoring.NewScorer(scoring.DefaultWeights())
	if err != nil {
		log.Fatalf("invalid weight table: %v", err)
	}
	calculator := levels.NewCalculator(resolver)
	evaluator := intraday.NewEvaluator(resolver, decay.NewModel(cfg.DecayMaxHoursBefore, cfg.DecayMinFactor))

	// Nil stores when Postgres is absent; the services degrade to
	// cache-only reads.
	var barRepo service.BarRepository
	var predictionRepo service.PredictionStore
	if db.Pool != nil {
		barRepo = repository.NewBarRepository(db.Pool, tracer)
		predictionRepo = repository.NewPredictionRepository(db.Pool, tracer)
	}

	mdProvider := provider.NewMarketDataProvider(cfg.MarketDataBaseURL, cfg.MarketDataAPIKey, tracer)
	marketSvc := service.NewMarketDataService(tracer, mdProvider, barRepo, resolver, cache.Client)
	forecastSvc := service.NewForecastService(
		tracer, marketSvc, predictionRepo,
		calculator, scorer, evaluator, resolver,
		cache.Client, 0,
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "daily-bias-engine",
		Version: "1.0.0",
	}, nil)
	registerTools(server, forecastSvc)

	go func() {
		quit := make(chan os.Signal, 1)
		ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	log.Println("MCP server running on stdio")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
