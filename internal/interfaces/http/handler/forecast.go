package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	forecastapp "github.com/rollout/backend/internal/application/forecast"
)

// ForecastHandler serves the financial and go-live projections
type ForecastHandler struct {
	BaseHandler
	forecast *forecastapp.ForecastService
}

// NewForecastHandler creates a new ForecastHandler
func NewForecastHandler(forecast *forecastapp.ForecastService) *ForecastHandler {
	return &ForecastHandler{forecast: forecast}
}

// Financial returns realized and projected MRR by month
func (h *ForecastHandler) Financial(c *gin.Context) {
	leadMonths, err := parseIntQuery(c, "lead_months", 0)
	if err != nil || leadMonths < 0 || leadMonths > 24 {
		h.BadRequest(c, "Invalid 'lead_months', expected an integer between 0 and 24")
		return
	}

	points, err := h.forecast.FinancialForecast(c.Request.Context(), leadMonths)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, points)
}

// GoLiveRequest holds the go-live listing query parameters
type GoLiveRequest struct {
	Operator string `form:"operator"`
	Network  string `form:"network"`
	Status   string `form:"status" binding:"omitempty,oneof=GO_LIVE ATRASADA DENTRO_PRAZO"`
	Year     int    `form:"year" binding:"omitempty,min=2000,max=2100"`
	Month    int    `form:"month" binding:"omitempty,min=1,max=12"`
}

// GoLive returns the per-store go-live forecast
func (h *ForecastHandler) GoLive(c *gin.Context) {
	var req GoLiveRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := forecastapp.GoLiveFilter{
		Operator: req.Operator,
		Network:  req.Network,
		Status:   forecastapp.GoLiveStatus(req.Status),
		Year:     req.Year,
		Month:    time.Month(req.Month),
	}

	entries, err := h.forecast.GoLiveForecast(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}

// GoLiveSummary returns the go-live forecast aggregated per month
func (h *ForecastHandler) GoLiveSummary(c *gin.Context) {
	summaries, err := h.forecast.GoLiveSummary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summaries)
}
