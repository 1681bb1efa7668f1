package handler

import (
	"context"
	"time"

	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type ForecastAPI interface {
	GetForecast(ctx context.Context, symbol string) (*domain.Forecast, error)
	GetLevels(ctx context.Context, symbol string) (*service.LevelsReport, error)
	History(ctx context.Context, symbol string, limit int) ([]domain.IntradayPrediction, error)
	Accuracy(ctx context.Context, symbol string, days int) (*domain.AccuracyStats, error)
}

type MarketAPI interface {
	GetCurrentPrice(ctx context.Context, symbol string) (*domain.PriceSnapshot, error)
	GetBars(ctx context.Context, symbol string, resolution domain.Resolution, limit int) ([]*domain.Bar, error)
}

type Handler struct {
	tracer   trace.Tracer
	market   MarketAPI
	forecast ForecastAPI
	started  time.Time
}

func New(tracer trace.Tracer, market MarketAPI, forecast ForecastAPI) *Handler {
	return &Handler{
		tracer:   tracer,
		market:   market,
		forecast: forecast,
		started:  time.Now(),
	}
}

// RegisterRoutes wires all endpoints. The health check stays open; everything
// under /api goes through API-key auth when a key is configured.
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)

	api := r.Group("/api", APIKeyAuth(apiKey))
	api.GET("/instruments", h.GetInstruments)
	api.GET("/prices/:symbol", h.GetPrice)
	api.GET("/bars/:symbol", h.GetBars)
	api.GET("/forecast/:symbol", h.GetForecast)
	api.GET("/levels/:symbol", h.GetLevels)
	api.GET("/predictions/:symbol", h.GetPredictions)
	api.GET("/predictions/:symbol/accuracy", h.GetAccuracy)
}
