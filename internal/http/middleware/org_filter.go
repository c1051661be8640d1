package middleware

import (
	"net/http"
	"strings"

	"github.com/jakecourtright/HayFlow/internal/auth"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"go.uber.org/zap"
)

// OrgHeader lets a client state which organization it believes is active
const OrgHeader = "X-Org-ID"

// OrgFilterMiddleware enforces tenant isolation at the edge. Every request below it carries an
// identity with an active organization, and a client may not address a different org than the
// one its token was issued for.
type OrgFilterMiddleware struct {
	logger *zap.Logger
}

func NewOrgFilterMiddleware(logger *zap.Logger) *OrgFilterMiddleware {
	return &OrgFilterMiddleware{logger: logger}
}

// Filter rejects requests with no active org (401) and requests whose X-Org-ID header names
// another org than the token's (403). System identities take their org from the header.
func (m *OrgFilterMiddleware) Filter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userCtx, ok := auth.FromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "authentication required")
			return
		}
		if !userCtx.HasOrg() {
			respondError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "no active organization")
			return
		}

		requested := strings.TrimSpace(r.Header.Get(OrgHeader))
		if requested != "" && requested != userCtx.OrgID {
			m.logger.Warn("request addressed a different organization",
				zap.String("user_id", userCtx.UserID),
				zap.String("token_org", userCtx.OrgID),
				zap.String("requested_org", requested),
			)
			respondError(w, http.StatusForbidden, domain.ErrorTypeForbidden, "access to this organization is denied")
			return
		}

		if meta := metaFrom(r.Context()); meta != nil {
			meta.userID = userCtx.UserID
			meta.orgID = userCtx.OrgID
		}
		next.ServeHTTP(w, r)
	})
}
