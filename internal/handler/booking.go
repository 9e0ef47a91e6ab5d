package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/middleware"
	"ridedispatch/internal/repository"
	"ridedispatch/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	bookingService *service.BookingService
	tripService    *service.TripService
	receiptService *service.ReceiptService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService, tripService *service.TripService, receiptService *service.ReceiptService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		tripService:    tripService,
		receiptService: receiptService,
	}
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	CustomerID          string           `json:"customer_id" binding:"required"`
	DriverID            string           `json:"driver_id" binding:"required"`
	DispatcherID        string           `json:"dispatcher_id" binding:"required"`
	VehicleID           string           `json:"vehicle_id" binding:"required"`
	PickupLocation      string           `json:"pickup_location" binding:"required"`
	DestinationLocation string           `json:"destination_location" binding:"required"`
	ReturnLocation      string           `json:"return_location,omitempty"`
	RideDurationHours   int              `json:"ride_duration_hours" binding:"required,gt=0"`
	PaymentMethod       string           `json:"payment_method,omitempty"`
	TotalAmount         *decimal.Decimal `json:"total_amount,omitempty"`
}

// EstimateResponse is the HTTP response for a price estimate.
type EstimateResponse struct {
	TotalAmount string         `json:"total_amount"`
	Shares      SharesResponse `json:"shares"`
	Policy      PolicyResponse `json:"policy"`
}

// Create handles POST /v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	trip, err := h.bookingService.CreateBooking(c.Request.Context(), service.CreateBookingRequest{
		TenantID:            middleware.TenantID(c),
		CustomerID:          req.CustomerID,
		DriverID:            req.DriverID,
		DispatcherID:        req.DispatcherID,
		VehicleID:           req.VehicleID,
		PickupLocation:      req.PickupLocation,
		DestinationLocation: req.DestinationLocation,
		ReturnLocation:      req.ReturnLocation,
		RideDurationHours:   req.RideDurationHours,
		PaymentMethod:       domain.PaymentMethod(req.PaymentMethod),
		TotalAmount:         req.TotalAmount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTrip(trip, true))
}

// Estimate handles GET /v1/bookings/estimate?hours=N[&total_amount=X]
func (h *BookingHandler) Estimate(c *gin.Context) {
	hours, _ := strconv.Atoi(c.Query("hours"))

	var total *decimal.Decimal
	if raw := c.Query("total_amount"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			respondBadRequest(c, "invalid total_amount")
			return
		}
		total = &v
	}

	est, err := h.bookingService.Estimate(c.Request.Context(), middleware.TenantID(c), hours, total)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, EstimateResponse{
		TotalAmount: money(est.TotalAmount),
		Shares:      toShares(est.Shares),
		Policy:      toPolicy(est.Policy),
	})
}

// Get handles GET /v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	trip, err := h.bookingService.GetBooking(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTrip(trip, true))
}

// List handles GET /v1/bookings?status=X&driver_id=Y&unpaid=true&limit=N&offset=M
func (h *BookingHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	unpaid, _ := strconv.ParseBool(c.DefaultQuery("unpaid", "false"))

	trips, err := h.bookingService.ListBookings(c.Request.Context(), repository.TripFilter{
		TenantID: middleware.TenantID(c),
		Status:   domain.TripStatus(c.Query("status")),
		DriverID: c.Query("driver_id"),
		Unpaid:   unpaid,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		response = append(response, toTrip(trip, false))
	}

	respondJSON(c, http.StatusOK, gin.H{
		"bookings": response,
		"count":    len(response),
	})
}

// History handles GET /v1/bookings/:id/events
func (h *BookingHandler) History(c *gin.Context) {
	history, err := h.tripService.History(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"trip_id":           history.TripID,
		"status":            history.Status,
		"events":            toEvents(history.Events),
		"available_actions": toActions(history.Actions),
	})
}

// ReceiptResponse is the HTTP response for a trip receipt.
type ReceiptResponse struct {
	TripID            string            `json:"trip_id"`
	TransactionNumber string            `json:"transaction_number"`
	Status            string            `json:"status"`
	TotalAmount       string            `json:"total_amount"`
	PaidAmount        string            `json:"paid_amount"`
	Outstanding       string            `json:"outstanding"`
	IsPaid            bool              `json:"is_paid"`
	Shares            SharesResponse    `json:"shares"`
	RolePaid          SharesResponse    `json:"role_paid"`
	RoleDue           SharesResponse    `json:"role_due"`
	Payments          []PaymentResponse `json:"payments"`
	GeneratedAt       string            `json:"generated_at"`
	Text              string            `json:"text"`
}

// Receipt handles GET /v1/bookings/:id/receipt. With ?format=text the
// printable receipt is returned as plain text.
func (h *BookingHandler) Receipt(c *gin.Context) {
	receipt, err := h.receiptService.GenerateReceipt(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	text := h.receiptService.FormatReceipt(receipt)
	if c.Query("format") == "text" {
		c.String(http.StatusOK, text)
		return
	}

	respondJSON(c, http.StatusOK, ReceiptResponse{
		TripID:            receipt.TripID,
		TransactionNumber: receipt.TransactionNumber,
		Status:            string(receipt.Status),
		TotalAmount:       money(receipt.TotalAmount),
		PaidAmount:        money(receipt.PaidAmount),
		Outstanding:       money(receipt.Outstanding),
		IsPaid:            receipt.IsPaid,
		Shares:            toShares(receipt.Shares),
		RolePaid:          toShares(receipt.RolePaid),
		RoleDue:           toShares(receipt.RoleDue),
		Payments:          toPayments(receipt.Payments),
		GeneratedAt:       formatTime(receipt.GeneratedAt),
		Text:              text,
	})
}
