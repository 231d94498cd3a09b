package handler

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	analyticsapp "github.com/rollout/backend/internal/application/analytics"
)

// defaultHistoryDays is the history window served when no range is given
const defaultHistoryDays = 30

// SnapshotHandler serves the daily portfolio snapshots
type SnapshotHandler struct {
	BaseHandler
	snapshots *analyticsapp.SnapshotService
}

// NewSnapshotHandler creates a new SnapshotHandler
func NewSnapshotHandler(snapshots *analyticsapp.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshots: snapshots}
}

// CaptureRequest optionally names the day to snapshot
type CaptureRequest struct {
	Day *time.Time `json:"day"`
}

// Capture forces a snapshot for a day, overwriting any existing one
func (h *SnapshotHandler) Capture(c *gin.Context) {
	var req CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BadRequest(c, err.Error())
		return
	}

	day := time.Now().UTC()
	if req.Day != nil {
		day = *req.Day
	}

	if err := h.snapshots.CaptureDaily(c.Request.Context(), day); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// History returns the stored snapshots in a date range
func (h *SnapshotHandler) History(c *gin.Context) {
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

	end := time.Now().UTC()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, 0, -defaultHistoryDays)
	if from != nil {
		start = *from
	}

	snapshots, err := h.snapshots.History(c.Request.Context(), start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, snapshots)
}

// ProjectHistory returns the stored per-project rows for one project
func (h *SnapshotHandler) ProjectHistory(c *gin.Context) {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}
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

	end := time.Now().UTC()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, 0, -defaultHistoryDays)
	if from != nil {
		start = *from
	}

	snapshots, err := h.snapshots.ProjectHistory(c.Request.Context(), projectID, start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, snapshots)
}
