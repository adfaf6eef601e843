package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/scripture-study-backend/internal/http/response"
	"github.com/yungbote/scripture-study-backend/internal/observability"
	"github.com/yungbote/scripture-study-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
	metrics     *observability.Metrics
}

func NewAuthHandler(authService services.AuthService, metrics *observability.Metrics) *AuthHandler {
	return &AuthHandler{authService: authService, metrics: metrics}
}

func (ah *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email,max=254"`
		Password    string `json:"password" binding:"required,min=8"`
		DisplayName string `json:"display_name"`
	}
	if !bindJSON(c, &req) {
		return
	}
	session, err := ah.authService.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	ah.metrics.IncAuth("register", err == nil)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, session)
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	session, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
	ah.metrics.IncAuth("password", err == nil)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, session)
}

// Nonce issues the single-use nonce the client embeds in its provider sign-in request.
func (ah *AuthHandler) Nonce(c *gin.Context) {
	var req struct {
		Provider string `json:"provider" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	grant, err := ah.authService.IssueNonce(c.Request.Context(), req.Provider)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, grant)
}

func (ah *AuthHandler) Google(c *gin.Context) {
	var req struct {
		IDToken string    `json:"id_token" binding:"required"`
		NonceID uuid.UUID `json:"nonce_id" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	session, err := ah.authService.LoginWithGoogle(c.Request.Context(), req.IDToken, req.NonceID)
	ah.metrics.IncAuth("google", err == nil)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, session)
}

func (ah *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	session, err := ah.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, session)
}

func (ah *AuthHandler) Logout(c *gin.Context) {
	if err := ah.authService.Logout(c.Request.Context()); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (ah *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_token", nil)
		return
	}
	if err := ah.authService.VerifyEmail(c.Request.Context(), token); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"verified": true})
}
