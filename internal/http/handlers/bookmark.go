package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/scripture-study-backend/internal/http/response"
	"github.com/yungbote/scripture-study-backend/internal/services"
)

type BookmarkHandler struct {
	bookmarks services.BookmarkService
}

func NewBookmarkHandler(bookmarks services.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks}
}

func (h *BookmarkHandler) List(c *gin.Context) {
	entries, err := h.bookmarks.ListForUser(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"bookmarks": entries})
}

func (h *BookmarkHandler) Create(c *gin.Context) {
	var req struct {
		LessonID uuid.UUID `json:"lesson_id" binding:"required"`
		Notes    string    `json:"notes" binding:"max=10000"`
	}
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.bookmarks.Create(c.Request.Context(), req.LessonID, req.Notes)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"bookmark": b})
}

func (h *BookmarkHandler) GetForLesson(c *gin.Context) {
	lessonID, ok := uuidParam(c, "lessonId")
	if !ok {
		return
	}
	b, err := h.bookmarks.GetForLesson(c.Request.Context(), lessonID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"bookmark": b})
}

func (h *BookmarkHandler) UpdateNotes(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes" binding:"max=10000"`
	}
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.bookmarks.UpdateNotes(c.Request.Context(), id, req.Notes)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"bookmark": b})
}

func (h *BookmarkHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.bookmarks.Delete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
