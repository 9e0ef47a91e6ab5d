package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/middleware"
	"ridedispatch/internal/service"
)

// TripHandler handles HTTP requests that change a booking's status.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// StatusRequest is the HTTP request body for status changes.
type StatusRequest struct {
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
}

// TransitionResponse is the HTTP response for status changes.
type TransitionResponse struct {
	Trip       TripResponse `json:"trip"`
	Applied    bool         `json:"applied"`
	FromStatus string       `json:"from_status,omitempty"`
	ToStatus   string       `json:"to_status,omitempty"`
}

func respondTransition(c *gin.Context, result *service.TransitionResult, err error) {
	if err != nil {
		respondError(c, err)
		return
	}

	response := TransitionResponse{
		Trip:    toTrip(result.Trip, false),
		Applied: result.Applied,
	}
	if result.Transition != nil {
		response.FromStatus = string(result.Transition.FromStatus)
		response.ToStatus = string(result.Transition.ToStatus)
	}

	respondJSON(c, http.StatusOK, response)
}

// bindStatus reads an optional JSON body; an empty body is allowed.
func bindStatus(c *gin.Context) (StatusRequest, bool) {
	var req StatusRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return req, false
	}
	return req, true
}

// UpdateStatus handles PATCH /v1/bookings/:id/status?status=X&description=Y
func (h *TripHandler) UpdateStatus(c *gin.Context) {
	status := c.Query("status")
	if status == "" {
		respondBadRequest(c, "status is required")
		return
	}

	result, err := h.tripService.ApplyStatus(c.Request.Context(), middleware.TenantID(c), c.Param("id"),
		domain.TripStatus(status), c.Query("description"))
	respondTransition(c, result, err)
}

// Advance handles POST /v1/bookings/:id/advance. Without a status the trip
// moves to its next status.
func (h *TripHandler) Advance(c *gin.Context) {
	req, ok := bindStatus(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	tenantID := middleware.TenantID(c)
	target := domain.TripStatus(req.Status)
	if target == "" {
		history, err := h.tripService.History(ctx, tenantID, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		next, ok := domain.NextStatus(history.Status)
		if !ok {
			respondError(c, &domain.TransitionError{Op: "advance", From: history.Status})
			return
		}
		target = next
	}

	result, err := h.tripService.Advance(ctx, tenantID, c.Param("id"), target, req.Description)
	respondTransition(c, result, err)
}

// Revert handles POST /v1/bookings/:id/revert
func (h *TripHandler) Revert(c *gin.Context) {
	req, ok := bindStatus(c)
	if !ok {
		return
	}

	result, err := h.tripService.Revert(c.Request.Context(), middleware.TenantID(c), c.Param("id"), req.Description)
	respondTransition(c, result, err)
}

// Cancel handles POST /v1/bookings/:id/cancel
func (h *TripHandler) Cancel(c *gin.Context) {
	req, ok := bindStatus(c)
	if !ok {
		return
	}

	result, err := h.tripService.Cancel(c.Request.Context(), middleware.TenantID(c), c.Param("id"), req.Description)
	respondTransition(c, result, err)
}

// Restore handles POST /v1/bookings/:id/restore
func (h *TripHandler) Restore(c *gin.Context) {
	result, err := h.tripService.Restore(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	respondTransition(c, result, err)
}
