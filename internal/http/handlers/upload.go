package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/scripture-study-backend/internal/http/response"
	"github.com/yungbote/scripture-study-backend/internal/observability"
	"github.com/yungbote/scripture-study-backend/internal/services"
)

const (
	uploadField = "files"
	// Parts past this stay on disk instead of memory.
	multipartMemory = 8 << 20
)

type UploadHandler struct {
	uploads services.UploadService
	metrics *observability.Metrics
}

func NewUploadHandler(uploads services.UploadService, metrics *observability.Metrics) *UploadHandler {
	return &UploadHandler{uploads: uploads, metrics: metrics}
}

func (h *UploadHandler) UploadLessonImages(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart", err)
		return
	}
	form := c.Request.MultipartForm
	defer func() { _ = form.RemoveAll() }()

	parts := form.File[uploadField]
	if len(parts) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_files", nil)
		return
	}
	files := make([]services.UploadFile, 0, len(parts))
	for _, fh := range parts {
		fh := fh
		files = append(files, services.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	result, err := h.uploads.UploadLessonImages(c.Request.Context(), files)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.metrics.AddUploads(len(result.Uploaded), len(result.Rejected))
	response.RespondOK(c, result)
}
