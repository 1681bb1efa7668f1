package handler

import (
	"net/http"
	"strconv"
	"strings"

	"daily-bias-engine/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetPrice godoc
// @Summary      Get current price for an instrument
// @Description  Returns the latest cached or live price
// @Tags         bars
// @Produce      json
// @Param        symbol  path  string  true  "Instrument symbol (e.g., ES, BTC)"
// @Success      200  {object}  domain.PriceSnapshot
// @Failure      400  {object}  map[string]string
// @Router       /api/prices/{symbol} [get]
func (h *Handler) GetPrice(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-price")
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

	snapshot, err := h.market.GetCurrentPrice(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetBars godoc
// @Summary      Get stored OHLCV bars
// @Description  Returns stored bars for an instrument and resolution, ascending by open time
// @Tags         bars
// @Produce      json
// @Param        symbol      path   string  true   "Instrument symbol (e.g., ES, BTC)"
// @Param        resolution  query  string  false  "Bar resolution (1m, 5m, 15m, 30m, 1h, 1d)"  default(1h)
// @Param        limit       query  int     false  "Number of bars (default 100, max 500)"  default(100)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/bars/{symbol} [get]
func (h *Handler) GetBars(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-bars")
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

	resolution := domain.Resolution(c.DefaultQuery("resolution", "1h"))
	if !resolution.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                 "unsupported resolution: " + string(resolution),
			"supported_resolutions": domain.SupportedResolutions,
		})
		return
	}

	limit := 100
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	bars, err := h.market.GetBars(ctx, symbol, resolution, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":     symbol,
		"resolution": resolution,
		"bars":       bars,
	})
}
