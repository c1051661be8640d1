package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jakecourtright/HayFlow/internal/config"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"go.uber.org/zap"
)

// SystemUserID identifies writes made with the admin API key
const SystemUserID = "system"

// TokenValidator turns a bearer token into a user context
type TokenValidator interface {
	ValidateToken(token string) (*UserContext, error)
}

// Middleware handles authentication for HTTP requests
type Middleware struct {
	validator TokenValidator
	apiKey    string
	logger    *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(cfg *config.Config, logger *zap.Logger) *Middleware {
	return NewMiddlewareWithValidator(NewJWTValidator(&cfg.Identity), cfg.ApiKey.Value, logger)
}

// NewMiddlewareWithValidator allows the token validator to be supplied directly
func NewMiddlewareWithValidator(validator TokenValidator, apiKey string, logger *zap.Logger) *Middleware {
	return &Middleware{validator: validator, apiKey: apiKey, logger: logger}
}

// Validator exposes the token validator, used by the websocket endpoint
func (m *Middleware) Validator() TokenValidator {
	return m.validator
}

// Authenticate accepts either an x-api-key header (with X-Org-ID naming the tenant)
// or a bearer token from the identity provider
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if apiKey := r.Header.Get("x-api-key"); apiKey != "" {
			if !m.validateAPIKey(apiKey) {
				m.logger.Warn("invalid API key attempt",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Unauthorized", "invalid API key")
				return
			}
			userCtx := &UserContext{
				UserID:      SystemUserID,
				DisplayName: "System",
				OrgID:       strings.TrimSpace(r.Header.Get("X-Org-ID")),
				Role:        domain.RoleAPIService,
				IsSystem:    true,
			}
			m.logger.Debug("request authenticated",
				zap.String("auth_type", "api_key"),
				zap.String("org_id", userCtx.OrgID),
				zap.Duration("auth_duration", time.Since(start)),
			)
			next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Unauthorized", "missing or malformed authorization header")
			return
		}

		userCtx, err := m.validator.ValidateToken(token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Unauthorized", err.Error())
			return
		}

		m.logger.Debug("request authenticated",
			zap.String("auth_type", "jwt"),
			zap.String("user_id", userCtx.UserID),
			zap.String("org_id", userCtx.OrgID),
			zap.String("role", string(userCtx.Role)),
			zap.Duration("auth_duration", time.Since(start)),
		)

		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
	})
}

// AuthenticateQueryToken authenticates with a ?token= query parameter.
// Browsers cannot set headers on websocket upgrades, so the dispatch feed uses this.
func (m *Middleware) AuthenticateQueryToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		token := r.URL.Query().Get("token")
		if token == "" {
			if t, ok := bearerToken(r); ok {
				token = t
			}
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Unauthorized", "missing token")
			return
		}
		userCtx, err := m.validator.ValidateToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Unauthorized", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
	})
}

// RequireOrg rejects identities without an active organization
func (m *Middleware) RequireOrg(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userCtx, ok := FromContext(r.Context())
		if !ok || !userCtx.HasOrg() {
			writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Unauthorized", "no active organization")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission middleware ensures user has specific permission
func (m *Middleware) RequirePermission(permission domain.PermissionType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Unauthorized", "no user context")
				return
			}
			if !userCtx.HasPermission(permission) {
				writeError(w, http.StatusForbidden, domain.ErrorTypeForbidden, "Forbidden", "missing permission "+string(permission))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) validateAPIKey(key string) bool {
	if m.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeError(w http.ResponseWriter, status int, errType, title, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIError{Type: errType, Title: title, Status: status, Detail: detail})
}
