package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/apierr"
	"github.com/yungbote/scripture-study-backend/internal/platform/ctxutil"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

type fakeTokens map[string]*ctxutil.RequestData

func (f fakeTokens) SetContextFromToken(ctx context.Context, token string) (context.Context, error) {
	if token == "db-down" {
		return ctx, errors.New("connection refused")
	}
	rd, ok := f[token]
	if !ok {
		return ctx, apierr.Unauthorized("invalid_token", "invalid access token")
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func authRouter(am *AuthMiddleware) *gin.Engine {
	r := gin.New()
	who := func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, rd.Role)
	}
	r.GET("/me", am.RequireAuth(), who)
	r.GET("/session", am.OptionalAuth(), who)
	r.GET("/admin", am.RequireAuth(), am.RequireAdmin(), who)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	tokens := fakeTokens{
		"reader-token": {UserID: uuid.New(), Role: types.RoleUser},
		"admin-token":  {UserID: uuid.New(), Role: types.RoleAdmin},
	}
	r := authRouter(NewAuthMiddleware(logger.Nop(), tokens))

	cases := []struct {
		name   string
		target string
		header string
		status int
		body   string
	}{
		{"no token", "/me", "", http.StatusUnauthorized, `"code":"unauthorized"`},
		{"bad token", "/me", "Bearer nope", http.StatusUnauthorized, `"code":"invalid_token"`},
		{"store failure", "/me", "Bearer db-down", http.StatusInternalServerError, `"code":"internal"`},
		{"bearer", "/me", "Bearer reader-token", http.StatusOK, "user"},
		{"query token", "/me?token=admin-token", "", http.StatusOK, "admin"},
		{"optional anonymous", "/session", "", http.StatusOK, "anonymous"},
		{"optional bad token", "/session", "Bearer nope", http.StatusOK, "anonymous"},
		{"optional reader", "/session", "Bearer reader-token", http.StatusOK, "user"},
		{"admin as reader", "/admin", "Bearer reader-token", http.StatusForbidden, `"code":"forbidden"`},
		{"admin", "/admin", "bearer admin-token", http.StatusOK, "admin"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status: got=%d want=%d body=%s", rec.Code, tc.status, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tc.body) {
				t.Fatalf("body %q does not contain %q", rec.Body.String(), tc.body)
			}
		})
	}
}
