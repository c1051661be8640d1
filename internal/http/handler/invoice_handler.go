package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/service"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	publicBaseURL  string
	logger         *zap.Logger
}

func NewInvoiceHandler(invoiceService *service.InvoiceService, publicBaseURL string, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		publicBaseURL:  publicBaseURL,
		logger:         logger,
	}
}

// withShareURL fills the customer-facing link from the share token
func (h *InvoiceHandler) withShareURL(dto *domain.InvoiceDTO) {
	if dto != nil && dto.ShareToken != "" {
		dto.ShareURL = service.ShareURL(h.publicBaseURL, dto.ShareToken)
	}
}

// List godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Filter by status" Enums(draft, sent, paid)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.InvoiceDTO}
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices [get]
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	var status *domain.InvoiceStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.InvoiceStatus(s)
		if !st.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid invoice status")
			return
		}
		status = &st
	}

	result, err := h.invoiceService.List(r.Context(), status, page, pageSize)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list invoices")
		return
	}
	if invoices, ok := result.Data.([]domain.InvoiceDTO); ok {
		for i := range invoices {
			h.withShareURL(&invoices[i])
		}
	}
	respondJSON(w, http.StatusOK, result)
}

// Compile godoc
// @Summary Compile invoice
// @Description Bundle approved tickets into a draft invoice. All selected tickets must be approved and uninvoiced.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param request body domain.CompileInvoiceRequest true "Tickets and pricing"
// @Success 201 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError "A ticket is not approved"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices [post]
func (h *InvoiceHandler) Compile(w http.ResponseWriter, r *http.Request) {
	var req domain.CompileInvoiceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	invoice, err := h.invoiceService.Compile(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to compile invoice")
		return
	}
	h.withShareURL(invoice)
	w.Header().Set("Location", "/api/v1/invoices/"+invoice.ID.String())
	respondJSON(w, http.StatusCreated, invoice)
}

// GetByID godoc
// @Summary Get invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Success 200 {object} domain.InvoiceDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "invoice")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get invoice")
		return
	}
	h.withShareURL(invoice)
	respondJSON(w, http.StatusOK, invoice)
}

// Update godoc
// @Summary Update invoice
// @Description Edit customer, notes and pricing. The total is recomputed. Paid invoices are locked.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Param request body domain.UpdateInvoiceRequest true "Invoice data"
// @Success 200 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id} [put]
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "invoice")
	if !ok {
		return
	}
	var req domain.UpdateInvoiceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	invoice, err := h.invoiceService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update invoice")
		return
	}
	h.withShareURL(invoice)
	respondJSON(w, http.StatusOK, invoice)
}

// UpdateStatus godoc
// @Summary Change invoice status
// @Description draft -> sent -> paid, or sent back to draft. Sending archives a workbook snapshot.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Param request body domain.UpdateInvoiceStatusRequest true "Target status"
// @Success 200 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Transition not allowed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/status [put]
func (h *InvoiceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "invoice")
	if !ok {
		return
	}
	var req domain.UpdateInvoiceStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	invoice, err := h.invoiceService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update invoice status")
		return
	}
	h.withShareURL(invoice)
	respondJSON(w, http.StatusOK, invoice)
}

// Export godoc
// @Summary Download invoice workbook
// @Tags Invoices
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Invoice ID" format(uuid)
// @Success 200 {file} binary
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/export.xlsx [get]
func (h *InvoiceHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "invoice")
	if !ok {
		return
	}
	data, filename, err := h.invoiceService.Export(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to export invoice")
		return
	}
	respondFile(w, xlsxContentType, filename, data)
}

// GetPublic godoc
// @Summary Public invoice
// @Description Read-only invoice view for the holder of the share link. No authentication.
// @Tags Public
// @Produce json
// @Param token path string true "64 character share token"
// @Success 200 {object} domain.PublicInvoiceDTO
// @Failure 404 {object} domain.APIError
// @Failure 429 {object} domain.APIError
// @Router /public/invoices/{token} [get]
func (h *InvoiceHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.invoiceService.GetPublicInvoice(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load invoice")
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}
