package handler

import (
	"net/http"

	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/service"
	"go.uber.org/zap"
)

type PreferenceHandler struct {
	preferenceService *service.PreferenceService
	logger            *zap.Logger
}

func NewPreferenceHandler(preferenceService *service.PreferenceService, logger *zap.Logger) *PreferenceHandler {
	return &PreferenceHandler{
		preferenceService: preferenceService,
		logger:            logger,
	}
}

// GetDashboardLayout godoc
// @Summary Get dashboard layout
// @Description The caller's widget order and hidden widgets, or the default layout
// @Tags Preferences
// @Produce json
// @Success 200 {object} domain.DashboardLayout
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /preferences/dashboard-layout [get]
func (h *PreferenceHandler) GetDashboardLayout(w http.ResponseWriter, r *http.Request) {
	layout, err := h.preferenceService.GetDashboardLayout(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load dashboard layout")
		return
	}
	respondJSON(w, http.StatusOK, layout)
}

// SaveDashboardLayout godoc
// @Summary Save dashboard layout
// @Tags Preferences
// @Accept json
// @Produce json
// @Param request body domain.DashboardLayout true "Layout"
// @Success 200 {object} domain.DashboardLayout
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /preferences/dashboard-layout [put]
func (h *PreferenceHandler) SaveDashboardLayout(w http.ResponseWriter, r *http.Request) {
	var layout domain.DashboardLayout
	if !decodeAndValidate(w, r, &layout) {
		return
	}
	saved, err := h.preferenceService.SaveDashboardLayout(r.Context(), &layout)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to save dashboard layout")
		return
	}
	respondJSON(w, http.StatusOK, saved)
}
