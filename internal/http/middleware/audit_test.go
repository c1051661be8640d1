package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/http/middleware"
	"github.com/jakecourtright/HayFlow/internal/repository"
	"github.com/jakecourtright/HayFlow/internal/service"
	"github.com/jakecourtright/HayFlow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestDefaultAuditConfig(t *testing.T) {
	cfg := middleware.DefaultAuditConfig()
	assert.Contains(t, cfg.SkipPaths, "/health")
	assert.Contains(t, cfg.SkipPaths, "/api/v1/dispatch/ws")
	assert.Contains(t, cfg.SkipMethods, http.MethodOptions)
	assert.False(t, cfg.AuditReads)
}

func TestAuditMiddleware_NilServicePassesThrough(t *testing.T) {
	m := middleware.NewAuditMiddleware(nil, nil, zap.NewNop())
	called := false
	h := m.Audit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/stacks", strings.NewReader(`{}`)))
	assert.True(t, called)
	assert.Equal(t, http.StatusCreated, w.Code)
}

type auditFixture struct {
	db     *gorm.DB
	router chi.Router
}

func newAuditFixture(t *testing.T) *auditFixture {
	db := testutil.SetupTestDB(t)
	svc := service.NewAuditLogService(repository.NewAuditLogRepository(db), zap.NewNop())
	m := middleware.NewAuditMiddleware(svc, middleware.DefaultAuditConfig(), zap.NewNop())

	r := chi.NewRouter()
	r.Use(m.Audit)
	r.Post("/api/v1/stacks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	r.Get("/api/v1/stacks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/api/v1/tickets/{id}/approve", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Delete("/api/v1/locations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	r.Post("/api/v1/inventory/check", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return &auditFixture{db: db, router: r}
}

func (f *auditFixture) send(method, path, body string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(body)).
		WithContext(testutil.AdminCtx(testutil.OrgA))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w.Code
}

func (f *auditFixture) entries(t *testing.T) []domain.AuditLog {
	var logs []domain.AuditLog
	require.NoError(t, f.db.Order("performed_at").Find(&logs).Error)
	return logs
}

func (f *auditFixture) waitFor(t *testing.T, n int) []domain.AuditLog {
	var logs []domain.AuditLog
	require.Eventually(t, func() bool {
		logs = f.entries(t)
		return len(logs) >= n
	}, 2*time.Second, 10*time.Millisecond)
	return logs
}

func TestAuditMiddleware_RecordsCreate(t *testing.T) {
	f := newAuditFixture(t)

	code := f.send(http.MethodPost, "/api/v1/stacks", `{"name":"North","commodity":"Alfalfa","token":"abc"}`)
	require.Equal(t, http.StatusCreated, code)

	logs := f.waitFor(t, 1)
	entry := logs[0]
	assert.Equal(t, testutil.OrgA, entry.OrgID)
	assert.Equal(t, testutil.AdminUser, entry.UserID)
	assert.Equal(t, domain.AuditActionCreate, entry.Action)
	assert.Equal(t, "Stack", entry.EntityType)
	assert.Nil(t, entry.EntityID)
	assert.Contains(t, entry.NewValues, "North")
	assert.NotContains(t, entry.NewValues, "token")
}

func TestAuditMiddleware_PostOnEntityIsUpdate(t *testing.T) {
	f := newAuditFixture(t)
	id := uuid.New()

	require.Equal(t, http.StatusOK, f.send(http.MethodPost, "/api/v1/tickets/"+id.String()+"/approve", `{}`))

	logs := f.waitFor(t, 1)
	assert.Equal(t, domain.AuditActionUpdate, logs[0].Action)
	assert.Equal(t, "Ticket", logs[0].EntityType)
	require.NotNil(t, logs[0].EntityID)
	assert.Equal(t, id, *logs[0].EntityID)
}

func TestAuditMiddleware_SkipsReadsFailuresAndInventoryChecks(t *testing.T) {
	f := newAuditFixture(t)

	require.Equal(t, http.StatusOK, f.send(http.MethodGet, "/api/v1/stacks", ""))
	require.Equal(t, http.StatusConflict, f.send(http.MethodDelete, "/api/v1/locations/"+uuid.NewString(), ""))
	require.Equal(t, http.StatusNoContent, f.send(http.MethodPost, "/api/v1/inventory/check", `{}`))
	// a recorded mutation marks the point where earlier writes would have landed
	require.Equal(t, http.StatusCreated, f.send(http.MethodPost, "/api/v1/stacks", `{}`))

	f.waitFor(t, 1)
	time.Sleep(50 * time.Millisecond)
	logs := f.entries(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "Stack", logs[0].EntityType)
}
