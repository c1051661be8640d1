package handler

import (
	"net/http"

	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/service"
	"go.uber.org/zap"
)

type StackHandler struct {
	stackService *service.StackService
	logger       *zap.Logger
}

func NewStackHandler(stackService *service.StackService, logger *zap.Logger) *StackHandler {
	return &StackHandler{
		stackService: stackService,
		logger:       logger,
	}
}

// List godoc
// @Summary List stacks
// @Description All stacks of the active organization with derived current stock
// @Tags Stacks
// @Produce json
// @Success 200 {array} domain.StackDTO
// @Failure 401 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stacks [get]
func (h *StackHandler) List(w http.ResponseWriter, r *http.Request) {
	stacks, err := h.stackService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list stacks")
		return
	}
	respondJSON(w, http.StatusOK, stacks)
}

// Create godoc
// @Summary Create stack
// @Description Create a stack. Bale size is normalized and a per-bale base price is stored as $/ton.
// @Tags Stacks
// @Accept json
// @Produce json
// @Param request body domain.CreateStackRequest true "Stack data"
// @Success 201 {object} domain.StackDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stacks [post]
func (h *StackHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateStackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	stack, err := h.stackService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create stack")
		return
	}
	w.Header().Set("Location", "/api/v1/stacks/"+stack.ID.String())
	respondJSON(w, http.StatusCreated, stack)
}

// GetByID godoc
// @Summary Get stack
// @Description Stack with stock broken down per location
// @Tags Stacks
// @Produce json
// @Param id path string true "Stack ID" format(uuid)
// @Success 200 {object} domain.StackDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stacks/{id} [get]
func (h *StackHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "stack")
	if !ok {
		return
	}
	stack, err := h.stackService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get stack")
		return
	}
	respondJSON(w, http.StatusOK, stack)
}

// Update godoc
// @Summary Update stack
// @Tags Stacks
// @Accept json
// @Produce json
// @Param id path string true "Stack ID" format(uuid)
// @Param request body domain.UpdateStackRequest true "Stack data"
// @Success 200 {object} domain.StackDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stacks/{id} [put]
func (h *StackHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "stack")
	if !ok {
		return
	}
	var req domain.UpdateStackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	stack, err := h.stackService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update stack")
		return
	}
	respondJSON(w, http.StatusOK, stack)
}

// Delete godoc
// @Summary Delete stack
// @Description Admin only. Ledger history is kept with the stack reference cleared.
// @Tags Stacks
// @Param id path string true "Stack ID" format(uuid)
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stacks/{id} [delete]
func (h *StackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "stack")
	if !ok {
		return
	}
	if err := h.stackService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete stack")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
