package handler

import (
	"net/http"

	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/service"
	"go.uber.org/zap"
)

type TicketHandler struct {
	ticketService *service.TicketService
	logger        *zap.Logger
}

func NewTicketHandler(ticketService *service.TicketService, logger *zap.Logger) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		logger:        logger,
	}
}

// List godoc
// @Summary List tickets
// @Description Drivers see their own tickets, bookkeepers and admins see the whole org
// @Tags Tickets
// @Produce json
// @Param status query string false "Filter by status" Enums(pending, approved, rejected, invoiced)
// @Param type query string false "Filter by type" Enums(sale, barn_to_barn)
// @Success 200 {array} domain.TicketDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tickets [get]
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := &domain.TicketFilters{}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.TicketStatus(s)
		switch status {
		case domain.TicketStatusPending, domain.TicketStatusApproved, domain.TicketStatusRejected, domain.TicketStatusInvoiced:
		default:
			respondWithError(w, http.StatusBadRequest, "Invalid ticket status")
			return
		}
		filters.Status = &status
	}
	if t := r.URL.Query().Get("type"); t != "" {
		ticketType := domain.TicketType(t)
		if ticketType != domain.TicketTypeSale && ticketType != domain.TicketTypeBarnToBarn {
			respondWithError(w, http.StatusBadRequest, "Invalid ticket type")
			return
		}
		filters.Type = &ticketType
	}

	tickets, err := h.ticketService.List(r.Context(), filters)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list tickets")
		return
	}
	respondJSON(w, http.StatusOK, tickets)
}

// Create godoc
// @Summary Submit ticket
// @Description A driver records a pending sale load or barn-to-barn move
// @Tags Tickets
// @Accept json
// @Produce json
// @Param request body domain.CreateTicketRequest true "Ticket data"
// @Success 201 {object} domain.TicketDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tickets [post]
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTicketRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ticket, err := h.ticketService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create ticket")
		return
	}
	respondJSON(w, http.StatusCreated, ticket)
}

// GetByID godoc
// @Summary Get ticket
// @Tags Tickets
// @Produce json
// @Param id path string true "Ticket ID" format(uuid)
// @Success 200 {object} domain.TicketDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tickets/{id} [get]
func (h *TicketHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "ticket")
	if !ok {
		return
	}
	ticket, err := h.ticketService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get ticket")
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}

// Approve godoc
// @Summary Approve ticket
// @Description Re-checks stock and posts the matching ledger entry
// @Tags Tickets
// @Produce json
// @Param id path string true "Ticket ID" format(uuid)
// @Success 200 {object} domain.TicketDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Not pending or insufficient stock"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tickets/{id}/approve [post]
func (h *TicketHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "ticket")
	if !ok {
		return
	}
	ticket, err := h.ticketService.Approve(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to approve ticket")
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}

// Reject godoc
// @Summary Reject ticket
// @Tags Tickets
// @Produce json
// @Param id path string true "Ticket ID" format(uuid)
// @Success 200 {object} domain.TicketDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tickets/{id}/reject [post]
func (h *TicketHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "ticket")
	if !ok {
		return
	}
	ticket, err := h.ticketService.Reject(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to reject ticket")
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}

// Delete godoc
// @Summary Delete ticket
// @Description Pending tickets only. Drivers may delete their own.
// @Tags Tickets
// @Param id path string true "Ticket ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /tickets/{id} [delete]
func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "ticket")
	if !ok {
		return
	}
	if err := h.ticketService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete ticket")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DispatchQueue godoc
// @Summary Dispatch queue
// @Description Pending and approved tickets with the most recent invoices
// @Tags Tickets
// @Produce json
// @Success 200 {object} domain.DispatchQueueDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dispatch [get]
func (h *TicketHandler) DispatchQueue(w http.ResponseWriter, r *http.Request) {
	queue, err := h.ticketService.DispatchQueue(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load dispatch queue")
		return
	}
	respondJSON(w, http.StatusOK, queue)
}
