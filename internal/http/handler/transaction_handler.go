package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/service"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	ledgerService *service.LedgerService
	logger        *zap.Logger
}

func NewTransactionHandler(ledgerService *service.LedgerService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// List godoc
// @Summary List ledger transactions
// @Description Paginated ledger entries, newest first
// @Tags Transactions
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param type query string false "Filter by type" Enums(production, purchase, sale, move, adjustment)
// @Param stackId query string false "Filter by stack" format(uuid)
// @Param locationId query string false "Filter by location" format(uuid)
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date, inclusive (YYYY-MM-DD)"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.TransactionDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /transactions [get]
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	filters := &domain.TransactionFilters{}
	if t := r.URL.Query().Get("type"); t != "" {
		txType := domain.TransactionType(t)
		if !txType.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid transaction type")
			return
		}
		filters.Type = &txType
	}
	var err error
	if filters.StackID, err = queryUUID(r, "stackId"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.LocationID, err = queryUUID(r, "locationId"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.From, filters.To, err = dateRange(r); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.ledgerService.ListTransactions(r.Context(), filters, page, pageSize)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list transactions")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Record transaction
// @Description Append a ledger entry. Tons are converted to bales and per-bale prices to $/ton.
// @Description Sales are rejected with 409 when the location holds too few bales.
// @Tags Transactions
// @Accept json
// @Produce json
// @Param request body domain.CreateTransactionRequest true "Transaction data"
// @Success 201 {object} domain.TransactionDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Insufficient stock"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /transactions [post]
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTransactionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	tx, err := h.ledgerService.RecordTransaction(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to record transaction")
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

// GetByID godoc
// @Summary Get transaction
// @Tags Transactions
// @Produce json
// @Param id path string true "Transaction ID" format(uuid)
// @Success 200 {object} domain.TransactionDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /transactions/{id} [get]
func (h *TransactionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "transaction")
	if !ok {
		return
	}
	tx, err := h.ledgerService.GetTransaction(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get transaction")
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

// Update godoc
// @Summary Correct transaction
// @Tags Transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID" format(uuid)
// @Param request body domain.UpdateTransactionRequest true "Transaction data"
// @Success 200 {object} domain.TransactionDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /transactions/{id} [put]
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "transaction")
	if !ok {
		return
	}
	var req domain.UpdateTransactionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	tx, err := h.ledgerService.UpdateTransaction(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update transaction")
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

// Delete godoc
// @Summary Delete transaction
// @Tags Transactions
// @Param id path string true "Transaction ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "transaction")
	if !ok {
		return
	}
	if err := h.ledgerService.DeleteTransaction(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stock godoc
// @Summary Current stock
// @Description Derived bales and tons for a stack, optionally at one location
// @Tags Inventory
// @Produce json
// @Param stackId query string true "Stack ID" format(uuid)
// @Param locationId query string false "Location ID" format(uuid)
// @Success 200 {object} domain.StockLevelDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /inventory/stock [get]
func (h *TransactionHandler) Stock(w http.ResponseWriter, r *http.Request) {
	stackID, err := queryUUID(r, "stackId")
	if err != nil || stackID == nil {
		respondWithError(w, http.StatusBadRequest, "stackId is required")
		return
	}
	locationID, err := queryUUID(r, "locationId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	stock, err := h.ledgerService.CurrentStock(r.Context(), *stackID, locationID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to compute stock")
		return
	}
	respondJSON(w, http.StatusOK, stock)
}

// sufficiencyRequest is the body of a pre-flight sale check
type sufficiencyRequest struct {
	StackID    uuid.UUID `json:"stackId" validate:"required"`
	LocationID uuid.UUID `json:"locationId" validate:"required"`
	Bales      float64   `json:"bales" validate:"gt=0"`
}

// CheckSufficiency godoc
// @Summary Check stock for a sale
// @Description Returns 204 when the location holds at least the requested bales, 409 otherwise
// @Tags Inventory
// @Accept json
// @Param request body sufficiencyRequest true "Requested quantity"
// @Success 204
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /inventory/check [post]
func (h *TransactionHandler) CheckSufficiency(w http.ResponseWriter, r *http.Request) {
	var req sufficiencyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.ledgerService.CheckSufficiency(r.Context(), req.StackID, req.LocationID, req.Bales); err != nil {
		respondServiceError(w, h.logger, err, "Failed to check stock")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
