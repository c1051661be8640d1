package handler

import (
	"net/http"

	"github.com/jakecourtright/HayFlow/internal/auth"
	"github.com/jakecourtright/HayFlow/internal/realtime"
	"go.uber.org/zap"
)

// RealtimeHandler attaches websocket clients to their organization's event feed
type RealtimeHandler struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, logger *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, logger: logger}
}

// Subscribe godoc
// @Summary Dispatch event stream
// @Description Websocket feed of ticket and invoice events for the caller's organization.
// @Description Browsers pass the bearer token as ?token= since they cannot set headers on the upgrade.
// @Tags Realtime
// @Param token query string false "Bearer token"
// @Success 101
// @Failure 401 {object} domain.APIError
// @Router /dispatch/ws [get]
func (h *RealtimeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok || !userCtx.HasOrg() {
		respondWithError(w, http.StatusUnauthorized, "No active organization")
		return
	}
	h.logger.Debug("websocket subscription",
		zap.String("user_id", userCtx.UserID),
		zap.String("org_id", userCtx.OrgID))
	h.hub.ServeWS(w, r, userCtx.OrgID)
}
