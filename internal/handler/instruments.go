package handler

import (
	"net/http"

	"daily-bias-engine/internal/domain"

	"github.com/gin-gonic/gin"
)

// GetInstruments godoc
// @Summary      List tracked instruments
// @Description  Returns every instrument the engine forecasts, with venue calendar and timezone
// @Tags         instruments
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/instruments [get]
func (h *Handler) GetInstruments(c *gin.Context) {
	instruments := make([]domain.Instrument, 0, len(domain.SupportedSymbols))
	for _, symbol := range domain.SupportedSymbols {
		instruments = append(instruments, domain.Instruments[symbol])
	}
	c.JSON(http.StatusOK, gin.H{"instruments": instruments})
}
