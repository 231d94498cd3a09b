package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/infrastructure/cache"
)

// NarrativeHandler serves the cached per-project narrative texts. The
// narratives themselves are produced by an external collaborator; this
// surface only reads and stores them, keyed by a hash of the project data
// they were rendered from so stale texts vanish when the project changes.
type NarrativeHandler struct {
	BaseHandler
	projects   rollout.ProjectRepository
	narratives cache.NarrativeCache
}

// NewNarrativeHandler creates a new NarrativeHandler
func NewNarrativeHandler(projects rollout.ProjectRepository, narratives cache.NarrativeCache) *NarrativeHandler {
	return &NarrativeHandler{projects: projects, narratives: narratives}
}

// narrativeContentHash derives the cache validation hash from the project
// fields a narrative is rendered from
func narrativeContentHash(p *rollout.Project) string {
	return cache.ContentHash(
		p.TaskRef,
		p.RawStatus,
		p.Operator,
		strconv.Itoa(p.IdleDays),
		p.FinancialRaw,
		strconv.FormatBool(p.HadRework),
	)
}

// NarrativeResponse is the cached narrative envelope
type NarrativeResponse struct {
	ProjectID string `json:"project_id"`
	Narrative string `json:"narrative"`
}

// Get returns the cached narrative for a project when one is still valid
func (h *NarrativeHandler) Get(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	project, err := h.projects.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	narrative, ok, err := h.narratives.Get(c.Request.Context(), project.ID.String(), narrativeContentHash(project))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !ok {
		h.NotFound(c, "No current narrative for this project")
		return
	}

	h.Success(c, NarrativeResponse{ProjectID: project.ID.String(), Narrative: narrative})
}

// PutNarrativeRequest is the body for storing a rendered narrative
type PutNarrativeRequest struct {
	Narrative string `json:"narrative" binding:"required,max=20000"`
}

// Put stores a rendered narrative for a project
func (h *NarrativeHandler) Put(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	var req PutNarrativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	project, err := h.projects.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if err := h.narratives.Set(c.Request.Context(), project.ID.String(), narrativeContentHash(project), req.Narrative); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Delete drops the cached narrative for a project
func (h *NarrativeHandler) Delete(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	if err := h.narratives.Invalidate(c.Request.Context(), id.String()); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
