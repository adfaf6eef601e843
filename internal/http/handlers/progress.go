package handlers

import (
	"github.com/gin-gonic/gin"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/http/response"
	"github.com/yungbote/scripture-study-backend/internal/services"
)

type ProgressHandler struct {
	progress services.ProgressService
}

func NewProgressHandler(progress services.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

func (h *ProgressHandler) List(c *gin.Context) {
	mainID, ok := optionalUUIDQuery(c, "mainId")
	if !ok {
		return
	}
	entries, err := h.progress.ListForUser(c.Request.Context(), services.ProgressFilter{
		Status: c.Query("status"),
		MainID: mainID,
		Q:      c.Query("q"),
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": entries})
}

func (h *ProgressHandler) Stats(c *gin.Context) {
	stats, err := h.progress.Stats(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, stats)
}

// Get returns null progress for a lesson the caller has not started.
func (h *ProgressHandler) Get(c *gin.Context) {
	lessonID, ok := uuidParam(c, "lessonId")
	if !ok {
		return
	}
	p, err := h.progress.Get(c.Request.Context(), lessonID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": p})
}

func (h *ProgressHandler) Save(c *gin.Context) {
	lessonID, ok := uuidParam(c, "lessonId")
	if !ok {
		return
	}
	var patch types.ProgressPatch
	if !bindJSON(c, &patch) {
		return
	}
	p, err := h.progress.Save(c.Request.Context(), lessonID, patch)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": p})
}
