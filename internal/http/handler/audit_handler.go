package handler

import (
	"net/http"

	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/service"
	"go.uber.org/zap"
)

// AuditHandler handles audit log related HTTP requests
type AuditHandler struct {
	auditService *service.AuditLogService
	logger       *zap.Logger
}

func NewAuditHandler(auditService *service.AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// List godoc
// @Summary List audit logs
// @Description Paginated audit trail of the active organization. Admin only.
// @Tags Audit
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param userId query string false "Filter by user"
// @Param entityType query string false "Filter by entity type" Enums(Stack, Location, Transaction, Ticket, Invoice, QuickSale, DashboardLayout)
// @Param action query string false "Filter by action" Enums(create, update, delete)
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date, inclusive (YYYY-MM-DD)"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.AuditLogDTO}
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audit [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	q := r.URL.Query()

	filters := &domain.AuditLogFilters{
		UserID:     q.Get("userId"),
		EntityType: q.Get("entityType"),
	}
	if a := q.Get("action"); a != "" {
		action := domain.AuditAction(a)
		switch action {
		case domain.AuditActionCreate, domain.AuditActionUpdate, domain.AuditActionDelete:
		default:
			respondWithError(w, http.StatusBadRequest, "Invalid audit action")
			return
		}
		filters.Action = &action
	}
	var err error
	if filters.From, filters.To, err = dateRange(r); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.auditService.List(r.Context(), filters, page, pageSize)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list audit logs")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
