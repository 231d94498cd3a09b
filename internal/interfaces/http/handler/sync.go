package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/rollout/backend/internal/application/ingestion"
	"github.com/rollout/backend/internal/domain/rollout"
)

// SyncHandler triggers and reports on tracker ingestion runs
type SyncHandler struct {
	BaseHandler
	sync *ingestion.SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(sync *ingestion.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// Trigger starts a manual ingestion run. Returns 409 when a run is
// already in flight. Pass full=true to ignore the incremental watermark.
func (h *SyncHandler) Trigger(c *gin.Context) {
	ctx := c.Request.Context()

	var run *rollout.SyncRun
	var err error
	if c.Query("full") == "true" {
		run, err = h.sync.RunFull(ctx, rollout.TriggerManual)
	} else {
		run, err = h.sync.Run(ctx, rollout.TriggerManual)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, run)
}

// SyncStatusResponse bundles the sync watermark with recent run history
type SyncStatusResponse struct {
	State *rollout.SyncState `json:"state"`
	Runs  []rollout.SyncRun  `json:"runs"`
}

// Status returns the last-sync watermark and recent runs
func (h *SyncHandler) Status(c *gin.Context) {
	limit, err := parseIntQuery(c, "limit", 10)
	if err != nil || limit < 1 || limit > 100 {
		h.BadRequest(c, "Invalid 'limit', expected an integer between 1 and 100")
		return
	}

	state, runs, err := h.sync.Status(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, SyncStatusResponse{State: state, Runs: runs})
}
