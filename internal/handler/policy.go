package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/middleware"
	"ridedispatch/internal/service"
)

// PolicyHandler handles HTTP requests for commission policies.
type PolicyHandler struct {
	policyService *service.PolicyService
}

// NewPolicyHandler creates a new PolicyHandler.
func NewPolicyHandler(policyService *service.PolicyService) *PolicyHandler {
	return &PolicyHandler{policyService: policyService}
}

// CreatePolicyRequest is the HTTP request body for a new policy version.
// Percentages are whole numbers: 75 means 75%.
type CreatePolicyRequest struct {
	DriverPercent     decimal.Decimal `json:"driver_percent"`
	DispatcherPercent decimal.Decimal `json:"dispatcher_percent"`
	AdminPercent      decimal.Decimal `json:"admin_percent"`
	SuperAdminPercent decimal.Decimal `json:"super_admin_percent"`
	RemainderRole     string          `json:"remainder_role,omitempty"`
}

// Create handles POST /v1/policies
func (h *PolicyHandler) Create(c *gin.Context) {
	var req CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	policy, err := h.policyService.CreatePolicy(c.Request.Context(), service.CreatePolicyRequest{
		TenantID:          middleware.TenantID(c),
		DriverPercent:     req.DriverPercent,
		DispatcherPercent: req.DispatcherPercent,
		AdminPercent:      req.AdminPercent,
		SuperAdminPercent: req.SuperAdminPercent,
		RemainderRole:     domain.CommissionRole(req.RemainderRole),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPolicy(*policy))
}

// Active handles GET /v1/policies/active
func (h *PolicyHandler) Active(c *gin.Context) {
	policy, err := h.policyService.ActivePolicy(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPolicy(policy))
}

// List handles GET /v1/policies
func (h *PolicyHandler) List(c *gin.Context) {
	policies, err := h.policyService.ListPolicies(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]PolicyResponse, 0, len(policies))
	for _, p := range policies {
		response = append(response, toPolicy(*p))
	}

	respondJSON(c, http.StatusOK, gin.H{
		"policies": response,
		"count":    len(response),
	})
}
