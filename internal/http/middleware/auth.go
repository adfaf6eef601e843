package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/http/response"
	"github.com/yungbote/scripture-study-backend/internal/platform/apierr"
	"github.com/yungbote/scripture-study-backend/internal/platform/ctxutil"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

// TokenResolver validates an access token and returns a context carrying the caller.
type TokenResolver interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type AuthMiddleware struct {
	log    *logger.Logger
	tokens TokenResolver
}

func NewAuthMiddleware(log *logger.Logger, tokens TokenResolver) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), tokens: tokens}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		ctx, err := am.tokens.SetContextFromToken(c.Request.Context(), tokenString)
		if err != nil {
			ae := apierr.As(err)
			if ae.Status >= http.StatusInternalServerError {
				am.log.Error("token check failed", "error", err)
				response.AbortError(c, ae.Status, ae.Code, http.StatusText(ae.Status))
				return
			}
			response.AbortError(c, http.StatusUnauthorized, ae.Code, ae.Error())
			return
		}
		rd := ctxutil.GetRequestData(ctx)
		if rd == nil || rd.UserID == uuid.Nil {
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets
// anonymous requests through otherwise.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString != "" {
			if ctx, err := am.tokens.SetContextFromToken(c.Request.Context(), tokenString); err == nil {
				c.Request = c.Request.WithContext(ctx)
			} else {
				am.log.Debug("optional auth ignored token", "error", err)
			}
		}
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth. The role comes from the user row
// loaded during token resolution, not from the token claims.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil || rd.UserID == uuid.Nil {
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
			return
		}
		if rd.Role != types.RoleAdmin {
			response.AbortError(c, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		c.Next()
	}
}

func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
