package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jakecourtright/HayFlow/internal/http/middleware"
	"github.com/jakecourtright/HayFlow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestOrgFilter(t *testing.T) {
	filter := middleware.NewOrgFilterMiddleware(zap.NewNop())
	h := filter.Filter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		ctx    context.Context
		header string
		want   int
	}{
		{"no identity", context.Background(), "", http.StatusUnauthorized},
		{"no active org", testutil.NoOrgCtx(), "", http.StatusUnauthorized},
		{"token org", testutil.DriverCtx(testutil.OrgA), "", http.StatusOK},
		{"matching header", testutil.DriverCtx(testutil.OrgA), testutil.OrgA, http.StatusOK},
		{"other org in header", testutil.AdminCtx(testutil.OrgA), testutil.OrgB, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/stacks", nil).WithContext(tt.ctx)
			if tt.header != "" {
				req.Header.Set(middleware.OrgHeader, tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
