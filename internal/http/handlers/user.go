package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/scripture-study-backend/internal/http/response"
	"github.com/yungbote/scripture-study-backend/internal/platform/ctxutil"
	"github.com/yungbote/scripture-study-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (uh *UserHandler) GetMe(c *gin.Context) {
	me, err := uh.userService.GetMe(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": me})
}

// Session answers whether the caller is signed in. It never fails on a bad
// or missing token; the client uses it to pick between sign-in and the app.
func (uh *UserHandler) Session(c *gin.Context) {
	if ctxutil.GetRequestData(c.Request.Context()) == nil {
		response.RespondOK(c, gin.H{"authenticated": false})
		return
	}
	me, err := uh.userService.GetMe(c.Request.Context())
	if err != nil {
		response.RespondOK(c, gin.H{"authenticated": false})
		return
	}
	response.RespondOK(c, gin.H{"authenticated": true, "user": me})
}

func (uh *UserHandler) ListUsers(c *gin.Context) {
	users, err := uh.userService.ListUsers(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"users": users})
}

func (uh *UserHandler) UpdateRole(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role" binding:"required,oneof=admin user"`
	}
	if !bindJSON(c, &req) {
		return
	}
	u, err := uh.userService.UpdateRole(c.Request.Context(), id, req.Role)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}
