package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jakecourtright/HayFlow/internal/config"
	"github.com/jakecourtright/HayFlow/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func preflight(cfg *config.CORSConfig, env, origin string) *httptest.ResponseRecorder {
	h := middleware.CORS(cfg, env, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/stacks", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func corsConfig(origins ...string) *config.CORSConfig {
	return &config.CORSConfig{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Org-ID"},
		ExposedHeaders:   []string{"Location", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		env     string
		origin  string
		allowed bool
	}{
		{"development allows any origin", nil, "development", "http://localhost:3000", true},
		{"local allows any origin", nil, "local", "http://localhost:5173", true},
		{"explicit origin allowed", []string{"https://app.hayflow.io"}, "production", "https://app.hayflow.io", true},
		{"other origin denied", []string{"https://app.hayflow.io"}, "production", "https://evil.example.com", false},
		{"wildcard", []string{"*"}, "staging", "https://anything.example.com", true},
		{"production without origins denies", nil, "production", "https://app.hayflow.io", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := preflight(corsConfig(tt.origins...), tt.env, tt.origin)
			if tt.allowed {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}
