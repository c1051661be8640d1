package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/service"
	"go.uber.org/zap"
)

// maxAuditBody bounds how much of a request body is copied into an audit entry
const maxAuditBody = 64 << 10

// AuditConfig holds configuration for audit middleware
type AuditConfig struct {
	// SkipPaths are prefixes that are never audited
	SkipPaths []string
	// SkipMethods are never audited (OPTIONS, HEAD)
	SkipMethods []string
	// AuditReads enables auditing of GET requests
	AuditReads bool
}

func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		SkipPaths: []string{
			"/health",
			"/swagger",
			"/api/v1/dispatch/ws",
			"/api/v1/inventory",
		},
		SkipMethods: []string{
			http.MethodOptions,
			http.MethodHead,
		},
	}
}

// AuditMiddleware records successful mutations in the org's audit log
type AuditMiddleware struct {
	auditService *service.AuditLogService
	config       *AuditConfig
	logger       *zap.Logger
}

func NewAuditMiddleware(auditService *service.AuditLogService, config *AuditConfig, logger *zap.Logger) *AuditMiddleware {
	if config == nil {
		config = DefaultAuditConfig()
	}
	return &AuditMiddleware{
		auditService: auditService,
		config:       config,
		logger:       logger,
	}
}

// auditEntities maps route segments to the entity type stored in the log
var auditEntities = map[string]string{
	"stacks":       "Stack",
	"locations":    "Location",
	"transactions": "Transaction",
	"tickets":      "Ticket",
	"invoices":     "Invoice",
	"sales":        "QuickSale",
	"preferences":  "DashboardLayout",
}

// sensitive request fields are dropped before the body is stored
var sensitiveFields = []string{"password", "secret", "token", "apiKey", "shareToken"}

// Audit logs every successful mutation after the handler has run
func (m *AuditMiddleware) Audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.shouldAudit(r) {
			next.ServeHTTP(w, r)
			return
		}

		var body []byte
		if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
			body, _ = io.ReadAll(io.LimitReader(r.Body, maxAuditBody+1))
			rest := r.Body
			r.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(body), rest), rest}
			if len(body) > maxAuditBody {
				body = nil
			}
		}

		rw := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if rw.statusCode < 200 || rw.statusCode >= 300 {
			return
		}
		// The request context is canceled once the response is written
		ctx := context.WithoutCancel(r.Context())
		entityType, entityID := m.extractEntityInfo(r)
		go m.logAudit(ctx, r, entityType, entityID, body)
	})
}

func (m *AuditMiddleware) shouldAudit(r *http.Request) bool {
	if m.auditService == nil {
		return false
	}
	for _, method := range m.config.SkipMethods {
		if r.Method == method {
			return false
		}
	}
	if r.Method == http.MethodGet && !m.config.AuditReads {
		return false
	}
	for _, skip := range m.config.SkipPaths {
		if strings.HasPrefix(r.URL.Path, skip) {
			return false
		}
	}
	return true
}

func (m *AuditMiddleware) logAudit(ctx context.Context, r *http.Request, entityType string, entityID *uuid.UUID, body []byte) {
	action := methodToAction(r.Method)
	if action == "" {
		return
	}
	if action == domain.AuditActionCreate && entityID != nil {
		action = domain.AuditActionUpdate
	}

	var values interface{}
	if len(body) > 0 {
		var parsed map[string]interface{}
		if json.Unmarshal(body, &parsed) == nil {
			for _, f := range sensitiveFields {
				delete(parsed, f)
			}
			values = parsed
		}
	}

	entry := service.LogEntry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		NewValues:  values,
	}
	if err := m.auditService.Log(ctx, r, entry); err != nil {
		m.logger.Warn("failed to create audit log entry",
			zap.String("request_id", GetRequestID(ctx)),
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Error(err))
	}
}

// methodToAction maps POST to create, PUT and PATCH to update, DELETE to delete.
// A POST against an existing {id} (approve, reject) is recorded as an update.
func methodToAction(method string) domain.AuditAction {
	switch method {
	case http.MethodPost:
		return domain.AuditActionCreate
	case http.MethodPut, http.MethodPatch:
		return domain.AuditActionUpdate
	case http.MethodDelete:
		return domain.AuditActionDelete
	default:
		return ""
	}
}

// extractEntityInfo reads the entity from the matched chi pattern. It must run after routing,
// while the route context is still populated.
func (m *AuditMiddleware) extractEntityInfo(r *http.Request) (string, *uuid.UUID) {
	routeCtx := chi.RouteContext(r.Context())
	if routeCtx == nil {
		return parseEntityFromPath(r.URL.Path), nil
	}

	var entityID *uuid.UUID
	if idStr := routeCtx.URLParam("id"); idStr != "" {
		if id, err := uuid.Parse(idStr); err == nil {
			entityID = &id
		}
	}
	pattern := routeCtx.RoutePattern()
	if pattern == "" {
		pattern = r.URL.Path
	}
	return parseEntityFromPath(pattern), entityID
}

func parseEntityFromPath(path string) string {
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if entityType, ok := auditEntities[part]; ok {
			return entityType
		}
	}
	return "Unknown"
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseCapture) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
