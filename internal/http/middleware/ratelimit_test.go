package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jakecourtright/HayFlow/internal/auth"
	"github.com/jakecourtright/HayFlow/internal/config"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(ip, path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":12345"
	return req
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1}, zap.NewNop())
	calls := 0
	h := rl.LimitByIP(okHandler(&calls))

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestFrom("192.168.1.1", "/api/v1/stacks"))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 20, calls)
}

func TestRateLimiter_LimitExceeded(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{Enabled: true, RequestsPerMinute: 3}, zap.NewNop())
	calls := 0
	h := rl.LimitByIP(okHandler(&calls))

	var last *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		last = httptest.NewRecorder()
		h.ServeHTTP(last, requestFrom("10.0.0.1", "/api/v1/stacks"))
	}
	assert.Equal(t, 3, calls)
	require.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))

	var body domain.APIError
	require.NoError(t, json.NewDecoder(last.Body).Decode(&body))
	assert.Equal(t, domain.ErrorTypeRateLimited, body.Type)

	// another client has its own budget
	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.2", "/api/v1/stacks"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_Whitelists(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 1,
		WhitelistIPs:      []string{"127.0.0.1"},
		WhitelistPaths:    []string{"/health", "/swagger/*"},
	}, zap.NewNop())
	calls := 0
	h := rl.LimitByIP(okHandler(&calls))

	for _, req := range []*http.Request{
		requestFrom("127.0.0.1", "/api/v1/stacks"),
		requestFrom("127.0.0.1", "/api/v1/stacks"),
		requestFrom("10.1.1.1", "/health"),
		requestFrom("10.1.1.1", "/health"),
		requestFrom("10.1.1.1", "/swagger/index.html"),
		requestFrom("10.1.1.1", "/swagger/doc.json"),
	} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, req.URL.Path)
	}
	assert.Equal(t, 6, calls)
}

func TestRateLimiter_ForwardedFor(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1}, zap.NewNop())
	calls := 0
	h := rl.LimitByIP(okHandler(&calls))

	for _, xff := range []string{"203.0.113.7, 10.0.0.1", "203.0.113.8, 10.0.0.1"} {
		req := requestFrom("10.0.0.1", "/api/v1/stacks")
		req.Header.Set("X-Forwarded-For", xff)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	req := requestFrom("10.0.0.1", "/api/v1/stacks")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiter_ByUser(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, RequestsPerMinuteAuth: 2}, zap.NewNop())
	calls := 0
	h := rl.LimitByUser(okHandler(&calls))

	asUser := func(userID string) *http.Request {
		req := requestFrom("10.0.0.9", "/api/v1/tickets")
		ctx := auth.WithUserContext(context.Background(), &auth.UserContext{UserID: userID, OrgID: "org_a", Role: domain.RoleDriver})
		return req.WithContext(ctx)
	}

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, asUser("driver_1"))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// Same IP, different user
	w := httptest.NewRecorder()
	h.ServeHTTP(w, asUser("driver_2"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_PublicLinkIsStricter(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1000}, zap.NewNop())
	calls := 0
	h := rl.LimitPublic(okHandler(&calls))

	limited := false
	for i := 0; i < 40; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestFrom("198.51.100.1", "/api/v1/public/invoices/abc"))
		if w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited)
	assert.Equal(t, 30, calls)
}
