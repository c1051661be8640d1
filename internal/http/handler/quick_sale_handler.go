package handler

import (
	"net/http"

	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/service"
	"go.uber.org/zap"
)

type QuickSaleHandler struct {
	quickSaleService *service.QuickSaleService
	invoices         *InvoiceHandler
	logger           *zap.Logger
}

func NewQuickSaleHandler(quickSaleService *service.QuickSaleService, invoices *InvoiceHandler, logger *zap.Logger) *QuickSaleHandler {
	return &QuickSaleHandler{
		quickSaleService: quickSaleService,
		invoices:         invoices,
		logger:           logger,
	}
}

// Create godoc
// @Summary Create sale and invoice
// @Description Submits a sale ticket, approves it and compiles a draft invoice in one step.
// @Description Nothing is written when any step fails.
// @Tags Sales
// @Accept json
// @Produce json
// @Param request body domain.QuickSaleRequest true "Sale data"
// @Success 201 {object} domain.QuickSaleResponse
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Insufficient stock"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /sales/quick [post]
func (h *QuickSaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.QuickSaleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.quickSaleService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create sale")
		return
	}
	h.invoices.withShareURL(&result.Invoice)
	respondJSON(w, http.StatusCreated, result)
}
