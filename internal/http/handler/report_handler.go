package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jakecourtright/HayFlow/internal/service"
	"go.uber.org/zap"
)

// ReportHandler serves period reports and the dashboard summary
type ReportHandler struct {
	reportService    *service.ReportService
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

func NewReportHandler(reportService *service.ReportService, dashboardService *service.DashboardService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService:    reportService,
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// Get godoc
// @Summary Period report
// @Description Production, sales and purchase totals for a date range plus current stock by commodity
// @Tags Reports
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date, inclusive (YYYY-MM-DD)"
// @Success 200 {object} domain.ReportDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /reports [get]
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.reportService.Generate(r.Context(), from, to)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to generate report")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Export godoc
// @Summary Download period report
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date, inclusive (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /reports/export.xlsx [get]
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := h.reportService.Export(r.Context(), from, to)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to export report")
		return
	}
	respondFile(w, xlsxContentType, fmt.Sprintf("hayflow-report-%s.xlsx", time.Now().UTC().Format("2006-01-02")), data)
}

// Dashboard godoc
// @Summary Dashboard summary
// @Description Current stock, this month's sales and moves, and recent ledger activity
// @Tags Dashboard
// @Produce json
// @Success 200 {object} domain.DashboardDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dashboard [get]
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboardService.GetSummary(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load dashboard")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
