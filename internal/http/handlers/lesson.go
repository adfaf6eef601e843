package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/http/response"
	"github.com/yungbote/scripture-study-backend/internal/observability"
	"github.com/yungbote/scripture-study-backend/internal/services"
)

type LessonHandler struct {
	lessons services.LessonService
	metrics *observability.Metrics
}

func NewLessonHandler(lessons services.LessonService, metrics *observability.Metrics) *LessonHandler {
	return &LessonHandler{lessons: lessons, metrics: metrics}
}

// lessonQuery reads the list filters and the free-text q from the query string.
func lessonQuery(c *gin.Context) (services.LessonQuery, bool) {
	mainID, ok := optionalUUIDQuery(c, "mainId")
	if !ok {
		return services.LessonQuery{}, false
	}
	classID, ok := optionalUUIDQuery(c, "classId")
	if !ok {
		return services.LessonQuery{}, false
	}
	author, ok := optionalUUIDQuery(c, "author")
	if !ok {
		return services.LessonQuery{}, false
	}
	return services.LessonQuery{
		Filter: types.LessonFilter{
			Status:     c.Query("status"),
			MainID:     mainID,
			ClassID:    classID,
			Category:   c.Query("category"),
			Difficulty: c.Query("difficulty"),
			Author:     author,
		},
		Q: c.Query("q"),
	}, true
}

func (h *LessonHandler) List(c *gin.Context) {
	q, ok := lessonQuery(c)
	if !ok {
		return
	}
	page, err := h.lessons.List(c.Request.Context(), q)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, page)
}

func (h *LessonHandler) ListAll(c *gin.Context) {
	q, ok := lessonQuery(c)
	if !ok {
		return
	}
	page, err := h.lessons.ListAll(c.Request.Context(), q)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, page)
}

func (h *LessonHandler) ListForMain(c *gin.Context) {
	mainID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	classID, ok := optionalUUIDQuery(c, "classId")
	if !ok {
		return
	}
	lessons, err := h.lessons.ListForMain(c.Request.Context(), mainID, classID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lessons": lessons})
}

func (h *LessonHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	l, err := h.lessons.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": l})
}

// RecordView counts a view of a lesson the caller can see. The increment runs
// after the response is written.
func (h *LessonHandler) RecordView(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.lessons.Get(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.lessons.RecordView(c.Request.Context(), id)
	h.metrics.IncLessonView()
	c.Status(http.StatusAccepted)
}

func (h *LessonHandler) Create(c *gin.Context) {
	var in services.LessonInput
	if !bindJSON(c, &in) {
		return
	}
	l, err := h.lessons.Create(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"lesson": l})
}

func (h *LessonHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var patch services.LessonPatch
	if !bindJSON(c, &patch) {
		return
	}
	l, err := h.lessons.Update(c.Request.Context(), id, patch)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": l})
}

func (h *LessonHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.lessons.Delete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
