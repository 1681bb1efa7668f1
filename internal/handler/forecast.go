package handler

import (
	"net/http"
	"strconv"
	"strings"

	"daily-bias-engine/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetForecast godoc
// @Summary      Get the current directional forecast
// @Description  Returns the weighted BULLISH/BEARISH call with all 18 per-level signals and the tracked intraday predictions
// @Tags         forecast
// @Produce      json
// @Param        symbol  path  string  true  "Instrument symbol (e.g., ES, BTC)"
// @Success      200  {object}  domain.Forecast
// @Failure      400  {object}  map[string]string
// @Router       /api/forecast/{symbol} [get]
func (h *Handler) GetForecast(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-forecast")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if _, ok := domain.Instruments[symbol]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + symbol,
			"supported_symbols": domain.SupportedSymbols,
		})
		return
	}

	forecast, err := h.forecast.GetForecast(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, forecast)
}

// GetLevels godoc
// @Summary      Get the resolved reference levels
// @Description  Returns the current 18-slot reference level snapshot without scoring it
// @Tags         forecast
// @Produce      json
// @Param        symbol  path  string  true  "Instrument symbol (e.g., ES, BTC)"
// @Success      200  {object}  service.LevelsReport
// @Failure      400  {object}  map[string]string
// @Router       /api/levels/{symbol} [get]
func (h *Handler) GetLevels(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-levels")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if _, ok := domain.Instruments[symbol]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + symbol,
			"supported_symbols": domain.SupportedSymbols,
		})
		return
	}

	report, err := h.forecast.GetLevels(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetPredictions godoc
// @Summary      List recent intraday predictions
// @Description  Returns the stored 9am/10am predictions for an instrument, newest first
// @Tags         forecast
// @Produce      json
// @Param        symbol  path   string  true   "Instrument symbol (e.g., ES, BTC)"
// @Param        limit   query  int     false  "Number of predictions (default 50, max 200)"  default(50)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/predictions/{symbol} [get]
func (h *Handler) GetPredictions(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-predictions")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if _, ok := domain.Instruments[symbol]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + symbol,
			"supported_symbols": domain.SupportedSymbols,
		})
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	predictions, err := h.forecast.History(ctx, symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":      symbol,
		"predictions": predictions,
	})
}

// GetAccuracy godoc
// @Summary      Get verified prediction accuracy
// @Description  Returns the hit rate over verified intraday predictions in the trailing window
// @Tags         forecast
// @Produce      json
// @Param        symbol  path   string  true   "Instrument symbol (e.g., ES, BTC)"
// @Param        days    query  int     false  "Trailing window in days (default 30)"  default(30)
// @Success      200  {object}  domain.AccuracyStats
// @Failure      400  {object}  map[string]string
// @Router       /api/predictions/{symbol}/accuracy [get]
func (h *Handler) GetAccuracy(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-accuracy")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if _, ok := domain.Instruments[symbol]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + symbol,
			"supported_symbols": domain.SupportedSymbols,
		})
		return
	}

	days := 30
	if d := c.Query("days"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}

	stats, err := h.forecast.Accuracy(ctx, symbol, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
