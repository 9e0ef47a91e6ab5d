package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/middleware"
	"ridedispatch/internal/repository"
	"ridedispatch/internal/service"
)

const dateLayout = "2006-01-02"

// ReportHandler handles HTTP requests for reports.
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// RoleCommissionResponse is one role's line in the commission report.
type RoleCommissionResponse struct {
	Role  string `json:"role"`
	Total string `json:"total"`
	Paid  string `json:"paid"`
	Due   string `json:"due"`
}

// CommissionReportResponse is the HTTP response for the commission report.
type CommissionReportResponse struct {
	TripCount   int                      `json:"trip_count"`
	TotalAmount string                   `json:"total_amount"`
	PaidAmount  string                   `json:"paid_amount"`
	Roles       []RoleCommissionResponse `json:"roles"`
}

// PaymentReportRow is one method/status line in the payment report.
type PaymentReportRow struct {
	Method string `json:"method"`
	Status string `json:"status"`
	Count  int    `json:"count"`
	Amount string `json:"amount"`
}

// reportFilter parses ?from=YYYY-MM-DD&to=YYYY-MM-DD&driver_id=&dispatcher_id=.
func reportFilter(c *gin.Context) (repository.ReportFilter, bool) {
	var from, to time.Time
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = time.Parse(dateLayout, raw); err != nil {
			respondBadRequest(c, "from must be YYYY-MM-DD")
			return repository.ReportFilter{}, false
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = time.Parse(dateLayout, raw); err != nil {
			respondBadRequest(c, "to must be YYYY-MM-DD")
			return repository.ReportFilter{}, false
		}
	}
	from, to = service.DayRange(from, to)

	return repository.ReportFilter{
		TenantID:     middleware.TenantID(c),
		DriverID:     c.Query("driver_id"),
		DispatcherID: c.Query("dispatcher_id"),
		From:         from,
		To:           to,
	}, true
}

// Commissions handles GET /v1/reports/commissions
func (h *ReportHandler) Commissions(c *gin.Context) {
	filter, ok := reportFilter(c)
	if !ok {
		return
	}

	summary, err := h.reportService.CommissionSummary(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response := CommissionReportResponse{
		TripCount:   summary.TripCount,
		TotalAmount: money(summary.TotalAmount),
		PaidAmount:  money(summary.PaidAmount),
	}
	for _, r := range summary.Roles {
		response.Roles = append(response.Roles, RoleCommissionResponse{
			Role:  string(r.Role),
			Total: money(r.Total),
			Paid:  money(r.Paid),
			Due:   money(r.Due),
		})
	}

	respondJSON(c, http.StatusOK, response)
}

// Payments handles GET /v1/reports/payments
func (h *ReportHandler) Payments(c *gin.Context) {
	filter, ok := reportFilter(c)
	if !ok {
		return
	}

	rows, err := h.reportService.PaymentSummary(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]PaymentReportRow, 0, len(rows))
	for _, r := range rows {
		response = append(response, PaymentReportRow{
			Method: string(r.Method),
			Status: string(r.Status),
			Count:  r.Count,
			Amount: money(r.Amount),
		})
	}

	respondJSON(c, http.StatusOK, gin.H{"rows": response})
}
