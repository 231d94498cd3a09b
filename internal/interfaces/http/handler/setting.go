package handler

import (
	"github.com/gin-gonic/gin"

	portfolioapp "github.com/rollout/backend/internal/application/portfolio"
)

// SettingHandler serves the numeric scoring overrides
type SettingHandler struct {
	BaseHandler
	portfolio *portfolioapp.Service
}

// NewSettingHandler creates a new SettingHandler
func NewSettingHandler(portfolio *portfolioapp.Service) *SettingHandler {
	return &SettingHandler{portfolio: portfolio}
}

// List returns all stored setting overrides
func (h *SettingHandler) List(c *gin.Context) {
	settings, err := h.portfolio.Settings(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, settings)
}

// UpdateSettingsRequest is the body for writing setting overrides
type UpdateSettingsRequest struct {
	Values map[string]string `json:"values" binding:"required,min=1"`
}

// Update validates and upserts a batch of setting overrides.
// The whole batch is rejected if any key or value is invalid.
func (h *SettingHandler) Update(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.portfolio.UpdateSettings(c.Request.Context(), req.Values); err != nil {
		h.HandleError(c, err)
		return
	}

	settings, err := h.portfolio.Settings(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, settings)
}
