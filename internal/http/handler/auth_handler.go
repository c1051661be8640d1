package handler

import (
	"net/http"

	"github.com/jakecourtright/HayFlow/internal/auth"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"go.uber.org/zap"
)

type AuthHandler struct {
	logger *zap.Logger
}

func NewAuthHandler(logger *zap.Logger) *AuthHandler {
	return &AuthHandler{logger: logger}
}

// Me godoc
// @Summary Get current authenticated user
// @Description The caller's identity, active organization, role and the permission flags the UI gates on
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.MeDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	permissions := userCtx.ResolvedPermissions()
	if permissions == nil {
		permissions = []domain.PermissionType{}
	}
	respondJSON(w, http.StatusOK, domain.MeDTO{
		UserID:      userCtx.UserID,
		DisplayName: userCtx.DisplayName,
		Email:       userCtx.Email,
		OrgID:       userCtx.OrgID,
		Role:        userCtx.Role,
		Permissions: permissions,
		Flags:       userCtx.Flags(),
	})
}
