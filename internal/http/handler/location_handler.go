package handler

import (
	"net/http"

	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/service"
	"go.uber.org/zap"
)

type LocationHandler struct {
	locationService *service.LocationService
	logger          *zap.Logger
}

func NewLocationHandler(locationService *service.LocationService, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
		logger:          logger,
	}
}

// List godoc
// @Summary List locations
// @Description Storage locations with current stock and capacity usage
// @Tags Locations
// @Produce json
// @Success 200 {array} domain.LocationDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /locations [get]
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := h.locationService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list locations")
		return
	}
	respondJSON(w, http.StatusOK, locations)
}

// Create godoc
// @Summary Create location
// @Tags Locations
// @Accept json
// @Produce json
// @Param request body domain.CreateLocationRequest true "Location data"
// @Success 201 {object} domain.LocationDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /locations [post]
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLocationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	location, err := h.locationService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create location")
		return
	}
	w.Header().Set("Location", "/api/v1/locations/"+location.ID.String())
	respondJSON(w, http.StatusCreated, location)
}

// GetByID godoc
// @Summary Get location
// @Description Location with the stacks currently held there
// @Tags Locations
// @Produce json
// @Param id path string true "Location ID" format(uuid)
// @Success 200 {object} domain.LocationDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /locations/{id} [get]
func (h *LocationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "location")
	if !ok {
		return
	}
	location, err := h.locationService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get location")
		return
	}
	respondJSON(w, http.StatusOK, location)
}

// Update godoc
// @Summary Update location
// @Tags Locations
// @Accept json
// @Produce json
// @Param id path string true "Location ID" format(uuid)
// @Param request body domain.UpdateLocationRequest true "Location data"
// @Success 200 {object} domain.LocationDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /locations/{id} [put]
func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "location")
	if !ok {
		return
	}
	var req domain.UpdateLocationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	location, err := h.locationService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update location")
		return
	}
	respondJSON(w, http.StatusOK, location)
}

// Delete godoc
// @Summary Delete location
// @Description Admin only. Locations referenced by ledger history cannot be deleted.
// @Tags Locations
// @Param id path string true "Location ID" format(uuid)
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /locations/{id} [delete]
func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "location")
	if !ok {
		return
	}
	if err := h.locationService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete location")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
