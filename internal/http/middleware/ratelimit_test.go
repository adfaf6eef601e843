package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

type memCounter struct {
	mu   sync.Mutex
	hits map[string]int64
	fail bool
}

func (m *memCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if m.fail {
		return 0, 0, errors.New("redis unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hits == nil {
		m.hits = map[string]int64{}
	}
	m.hits[key]++
	return m.hits[key], window, nil
}

func limitedRouter(rl *RateLimiter) *gin.Engine {
	r := gin.New()
	r.POST("/api/login", rl.Limit("auth", 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func post(r http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.RemoteAddr = ip + ":40000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	r := limitedRouter(NewRateLimiter(logger.Nop(), &memCounter{}))
	for i := 0; i < 2; i++ {
		if rec := post(r, "10.0.0.1"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: got=%d", i, rec.Code)
		}
	}
	rec := post(r, "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: got=%d want=429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if rec := post(r, "10.0.0.2"); rec.Code != http.StatusNoContent {
		t.Fatalf("other client should not be limited, got=%d", rec.Code)
	}
}

func TestRateLimiterFailsOpen(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	for name, rl := range map[string]*RateLimiter{
		"no store":     NewRateLimiter(logger.Nop(), nil),
		"store errors": NewRateLimiter(logger.Nop(), &memCounter{fail: true}),
	} {
		r := limitedRouter(rl)
		for i := 0; i < 5; i++ {
			if rec := post(r, "10.0.0.9"); rec.Code != http.StatusNoContent {
				t.Fatalf("%s: request %d got=%d", name, i, rec.Code)
			}
		}
	}
}
