package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	analyticsapp "github.com/rollout/backend/internal/application/analytics"
	"github.com/rollout/backend/internal/domain/shared"
)

// AnalyticsHandler serves the dashboard aggregates
type AnalyticsHandler struct {
	BaseHandler
	analytics *analyticsapp.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(analytics *analyticsapp.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// parseDateQuery reads an optional date query parameter, accepting both
// YYYY-MM-DD and RFC 3339
func parseDateQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

// parseIntQuery reads an optional integer query parameter with a default
func parseIntQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// KPIs returns the headline KPI cards
func (h *AnalyticsHandler) KPIs(c *gin.Context) {
	from, err := parseDateQuery(c, "from")
	if err != nil {
		h.BadRequest(c, "Invalid 'from' date, expected YYYY-MM-DD")
		return
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		h.BadRequest(c, "Invalid 'to' date, expected YYYY-MM-DD")
		return
	}

	filter := analyticsapp.KPIFilter{
		From:     from,
		To:       to,
		Operator: c.Query("operator"),
	}

	cards, err := h.analytics.KPICards(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, cards)
}

// Ranking returns the operator performance ranking
func (h *AnalyticsHandler) Ranking(c *gin.Context) {
	windowDays, err := parseIntQuery(c, "window_days", 0)
	if err != nil || windowDays < 0 {
		h.BadRequest(c, "Invalid 'window_days', expected a non-negative integer")
		return
	}

	scores, err := h.analytics.Ranking(c.Request.Context(), windowDays)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, scores)
}

// OperatorDetail returns the full breakdown behind one ranking row
func (h *AnalyticsHandler) OperatorDetail(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		h.BadRequest(c, "Operator name is required")
		return
	}

	windowDays, err := parseIntQuery(c, "window_days", 0)
	if err != nil || windowDays < 0 {
		h.BadRequest(c, "Invalid 'window_days', expected a non-negative integer")
		return
	}

	detail, err := h.analytics.OperatorDetail(c.Request.Context(), name, windowDays)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "Operator not found")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, detail)
}

// Capacity returns the per-operator load table
func (h *AnalyticsHandler) Capacity(c *gin.Context) {
	entries, err := h.analytics.TeamCapacity(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}

// Trends returns the monthly throughput history
func (h *AnalyticsHandler) Trends(c *gin.Context) {
	points, err := h.analytics.MonthlyTrends(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, points)
}

// Bottlenecks returns the slowest pipeline stages
func (h *AnalyticsHandler) Bottlenecks(c *gin.Context) {
	entries, err := h.analytics.Bottlenecks(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}
