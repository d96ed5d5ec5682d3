package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"poll-service/internal/redis"
	"poll-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLimiter struct {
	result *redis.RateLimitResult
	err    error
	keys   []string
}

func (f *fakeLimiter) AllowVote(_ context.Context, clientKey string) (*redis.RateLimitResult, error) {
	f.keys = append(f.keys, clientKey)
	return f.result, f.err
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	engine.POST("/api/vote", handlers...)
	return engine
}

func TestVoteRateLimitMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		limiter    VoteLimiter
		wantStatus int
		wantHeader bool
	}{
		{"no limiter", nil, http.StatusOK, false},
		{"allowed", &fakeLimiter{result: &redis.RateLimitResult{Allowed: true, Remaining: 2, Limit: 3, ResetIn: time.Minute}}, http.StatusOK, true},
		{"denied", &fakeLimiter{result: &redis.RateLimitResult{Allowed: false, Limit: 3, ResetIn: 30 * time.Second}}, http.StatusTooManyRequests, true},
		{"limiter error", &fakeLimiter{err: errors.New("redis down")}, http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newEngine(VoteRateLimitMiddleware(tt.limiter, logger.NewNop()))
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/vote", nil)
			engine.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("X-RateLimit-Limit") != ""; got != tt.wantHeader {
				t.Errorf("rate limit header present = %v, want %v", got, tt.wantHeader)
			}
		})
	}
}

func TestVoteRateLimitUsesClientIP(t *testing.T) {
	limiter := &fakeLimiter{result: &redis.RateLimitResult{Allowed: true, Limit: 3}}
	engine := newEngine(VoteRateLimitMiddleware(limiter, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/vote", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	engine.ServeHTTP(httptest.NewRecorder(), req)

	if len(limiter.keys) != 1 || limiter.keys[0] != "10.1.2.3" {
		t.Errorf("limiter keys = %v", limiter.keys)
	}
}

func TestCORSMiddleware(t *testing.T) {
	engine := gin.New()
	engine.Use(CORSMiddleware())
	engine.POST("/api/vote", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/vote", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8080" {
		t.Errorf("Allow-Origin = %q", got)
	}

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/vote", nil))
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin without Origin header = %q, want *", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	engine := gin.New()
	engine.Use(RequestIDMiddleware())
	engine.GET("/ping", func(c *gin.Context) {
		seen, _ = c.Request.Context().Value(logger.RequestIdKey).(string)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get("X-Request-Id")
	if len(generated) != 32 || seen != generated {
		t.Errorf("generated id %q, context saw %q", generated, seen)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "abc123")
	engine.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-Id"); got != "abc123" || seen != "abc123" {
		t.Errorf("incoming id not propagated: header %q, context %q", got, seen)
	}
}

func TestErrorHandler(t *testing.T) {
	engine := gin.New()
	engine.Use(ErrorHandler(logger.NewNop()))
	engine.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
		_ = c.Error(errors.New("store exploded"))
	})
	engine.GET("/answered", func(c *gin.Context) {
		c.String(http.StatusBadRequest, "handled")
		_ = c.Error(errors.New("already answered"))
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if body := w.Body.String(); body == "" || strings.Contains(body, "store exploded") {
		t.Errorf("internal error leaked or missing: %s", body)
	}

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/answered", nil))
	if w.Body.String() != "handled" {
		t.Errorf("body = %q, want handled", w.Body.String())
	}
}
