package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/scripture-study-backend/internal/http/response"
	"github.com/yungbote/scripture-study-backend/internal/services"
)

type DashboardHandler struct {
	dashboards services.DashboardService
}

func NewDashboardHandler(dashboards services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

func (h *DashboardHandler) Student(c *gin.Context) {
	d, err := h.dashboards.Student(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, d)
}

func (h *DashboardHandler) Admin(c *gin.Context) {
	d, err := h.dashboards.Admin(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, d)
}
