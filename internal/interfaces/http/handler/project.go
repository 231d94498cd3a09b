package handler

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	analyticsapp "github.com/rollout/backend/internal/application/analytics"
	forecastapp "github.com/rollout/backend/internal/application/forecast"
	portfolioapp "github.com/rollout/backend/internal/application/portfolio"
	"github.com/rollout/backend/internal/domain/rollout"
)

// ProjectHandler serves the project listing, risk and prediction views,
// plus the write paths the operations team uses (pauses, manual overrides)
type ProjectHandler struct {
	BaseHandler
	analytics *analyticsapp.AnalyticsService
	predictor *forecastapp.PredictorService
	portfolio *portfolioapp.Service
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(
	analytics *analyticsapp.AnalyticsService,
	predictor *forecastapp.PredictorService,
	portfolio *portfolioapp.Service,
) *ProjectHandler {
	return &ProjectHandler{
		analytics: analytics,
		predictor: predictor,
		portfolio: portfolio,
	}
}

// ListProjectsRequest holds the project listing query parameters
type ListProjectsRequest struct {
	Status   string `form:"status" binding:"omitempty,oneof=NOT_STARTED IN_PROGRESS BLOCKED DONE"`
	Operator string `form:"operator"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

// List returns the project listing with current risk scores
func (h *ProjectHandler) List(c *gin.Context) {
	var req ListProjectsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := analyticsapp.ProjectFilter{
		Status:   rollout.ProjectStatus(req.Status),
		Operator: req.Operator,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}

	projects, err := h.analytics.ListProjects(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, projects)
}

// GetByID returns the listing row for a single project
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	project, err := h.analytics.GetProject(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, project)
}

// Risk returns the full risk breakdown for a project
func (h *ProjectHandler) Risk(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	view, err := h.analytics.ProjectRisk(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}

// Prediction returns the completion forecast for a project
func (h *ProjectHandler) Prediction(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	prediction, err := h.predictor.Predict(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, prediction)
}

// OpenPauseRequest is the body for opening a pause
type OpenPauseRequest struct {
	StartAt *time.Time `json:"start_at"`
	Reason  string     `json:"reason" binding:"max=500"`
}

// OpenPause opens a pause window on a project
func (h *ProjectHandler) OpenPause(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	// Body is optional, an empty one opens the pause now
	var req OpenPauseRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BadRequest(c, err.Error())
		return
	}

	var startAt time.Time
	if req.StartAt != nil {
		startAt = *req.StartAt
	}

	pause, err := h.portfolio.OpenPause(c.Request.Context(), id, startAt, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, pause)
}

// ClosePauseRequest is the body for closing a pause
type ClosePauseRequest struct {
	EndAt *time.Time `json:"end_at"`
}

// ClosePause closes an open pause window
func (h *ProjectHandler) ClosePause(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}
	pauseID, err := parseUUIDParam(c, "pauseID")
	if err != nil {
		h.BadRequest(c, "Invalid pause ID format")
		return
	}

	// Body is optional, an empty one closes the pause now
	var req ClosePauseRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BadRequest(c, err.Error())
		return
	}

	var endAt time.Time
	if req.EndAt != nil {
		endAt = *req.EndAt
	}

	pause, err := h.portfolio.ClosePause(c.Request.Context(), id, pauseID, endAt)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, pause)
}

// ListPauses returns the pause history for a project
func (h *ProjectHandler) ListPauses(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	pauses, err := h.portfolio.ListPauses(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, pauses)
}

// OverridesRequest is the body for manual project corrections
type OverridesRequest struct {
	ManualFinishedAt     *time.Time `json:"manual_finished_at"`
	ClearManualFinish    bool       `json:"clear_manual_finish"`
	ManualGoLiveDate     *time.Time `json:"manual_go_live_date"`
	ClearManualGoLive    bool       `json:"clear_manual_go_live"`
	HadRework            *bool      `json:"had_rework"`
	ReworkType           *string    `json:"rework_type"`
	DeliveredWithQuality *bool      `json:"delivered_with_quality"`
	ContractDays         *int       `json:"contract_days" binding:"omitempty,min=1"`
}

// ApplyOverrides patches a project with manual corrections
func (h *ProjectHandler) ApplyOverrides(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	var req OverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	project, err := h.portfolio.ApplyOverrides(c.Request.Context(), id, portfolioapp.Overrides{
		ManualFinishedAt:     req.ManualFinishedAt,
		ClearManualFinish:    req.ClearManualFinish,
		ManualGoLiveDate:     req.ManualGoLiveDate,
		ClearManualGoLive:    req.ClearManualGoLive,
		HadRework:            req.HadRework,
		ReworkType:           req.ReworkType,
		DeliveredWithQuality: req.DeliveredWithQuality,
		ContractDays:         req.ContractDays,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, project)
}
