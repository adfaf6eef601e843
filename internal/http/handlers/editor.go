package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/scripture-study-backend/internal/http/response"
	"github.com/yungbote/scripture-study-backend/internal/richtext"
)

type EditorHandler struct{}

func NewEditorHandler() *EditorHandler { return &EditorHandler{} }

// Apply runs one formatting command against the draft content.
func (h *EditorHandler) Apply(c *gin.Context) {
	var req struct {
		Content   string               `json:"content"`
		Command   richtext.CommandName `json:"command"`
		Selection string               `json:"selection"`
	}
	if !bindJSON(c, &req) {
		return
	}
	out, err := richtext.Apply(req.Content, richtext.Command{Name: req.Command, Selection: req.Selection})
	switch {
	case errors.Is(err, richtext.ErrUnknownCommand):
		response.RespondError(c, http.StatusBadRequest, "unknown_command", err)
	case errors.Is(err, richtext.ErrSelectionNotFound):
		response.RespondError(c, http.StatusUnprocessableEntity, "selection_not_found", err)
	case errors.Is(err, richtext.ErrEmptySelection):
		response.RespondError(c, http.StatusBadRequest, "empty_selection", err)
	case err != nil:
		response.RespondAPIError(c, err)
	default:
		response.RespondOK(c, gin.H{"content": out})
	}
}
