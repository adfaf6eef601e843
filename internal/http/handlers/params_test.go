package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestUUIDParamRejectsGarbage(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.GET("/lessons/:id", func(c *gin.Context) {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		c.String(http.StatusOK, id.String())
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lessons/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	id := uuid.New()
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lessons/"+id.String(), nil))
	if rec.Code != http.StatusOK || rec.Body.String() != id.String() {
		t.Fatalf("unexpected: %d %s", rec.Code, rec.Body.String())
	}
}

func TestOptionalUUIDQuery(t *testing.T) {
	t.Parallel()

	var got *uuid.UUID
	r := gin.New()
	r.GET("/lessons", func(c *gin.Context) {
		id, ok := optionalUUIDQuery(c, "main_id")
		if !ok {
			return
		}
		got = id
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lessons", nil))
	if rec.Code != http.StatusNoContent || got != nil {
		t.Fatalf("absent query: %d %v", rec.Code, got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lessons?main_id=zzz", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad query: %d", rec.Code)
	}
}

func TestBindJSONReportsFieldCodes(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.POST("/auth/register", NewAuthHandler(nil, nil).Register)
	r.PATCH("/users/:id/role", NewUserHandler(nil).UpdateRole)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		code   string
	}{
		{"bad email", http.MethodPost, "/auth/register", `{"email":"not-an-email","password":"longenough"}`, "invalid_email"},
		{"missing email", http.MethodPost, "/auth/register", `{"password":"longenough"}`, "email_required"},
		{"short password", http.MethodPost, "/auth/register", `{"email":"ruth@example.com","password":"short"}`, "invalid_password"},
		{"malformed", http.MethodPost, "/auth/register", `{"email":`, "invalid_request"},
		{"unknown role", http.MethodPatch, "/users/" + uuid.NewString() + "/role", `{"role":"owner"}`, "invalid_role"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d want 400 (%s)", rec.Code, rec.Body.String())
			}
			var out map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got := errorCode(out); got != tc.code {
				t.Fatalf("code: got %q want %q", got, tc.code)
			}
		})
	}
}
