package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/scripture-study-backend/internal/http/response"
	"github.com/yungbote/scripture-study-backend/internal/services"
)

type CurriculumHandler struct {
	curriculum services.CurriculumService
}

func NewCurriculumHandler(curriculum services.CurriculumService) *CurriculumHandler {
	return &CurriculumHandler{curriculum: curriculum}
}

func (h *CurriculumHandler) ListMains(c *gin.Context) {
	mains, err := h.curriculum.ListMains(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"mains": mains})
}

func (h *CurriculumHandler) GetMain(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	m, err := h.curriculum.GetMain(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"main": m})
}

func (h *CurriculumHandler) CreateMain(c *gin.Context) {
	var in services.MainInput
	if !bindJSON(c, &in) {
		return
	}
	m, err := h.curriculum.CreateMain(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"main": m})
}

func (h *CurriculumHandler) UpdateMain(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var patch services.MainPatch
	if !bindJSON(c, &patch) {
		return
	}
	m, err := h.curriculum.UpdateMain(c.Request.Context(), id, patch)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"main": m})
}

func (h *CurriculumHandler) DeleteMain(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	summary, err := h.curriculum.DeleteMain(c.Request.Context(), id, cascadeParam(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": summary})
}

func (h *CurriculumHandler) ListClasses(c *gin.Context) {
	mainID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	classes, err := h.curriculum.ListClasses(c.Request.Context(), mainID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"classes": classes})
}

func (h *CurriculumHandler) GetClass(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	cl, err := h.curriculum.GetClass(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"class": cl})
}

func (h *CurriculumHandler) CreateClass(c *gin.Context) {
	var in services.ClassInput
	if !bindJSON(c, &in) {
		return
	}
	cl, err := h.curriculum.CreateClass(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"class": cl})
}

func (h *CurriculumHandler) UpdateClass(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var patch services.ClassPatch
	if !bindJSON(c, &patch) {
		return
	}
	cl, err := h.curriculum.UpdateClass(c.Request.Context(), id, patch)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"class": cl})
}

func (h *CurriculumHandler) DeleteClass(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	summary, err := h.curriculum.DeleteClass(c.Request.Context(), id, cascadeParam(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": summary})
}

func cascadeParam(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.Query("cascade"))
	return v
}
