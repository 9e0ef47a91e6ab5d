package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
	"ridedispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	_ = c.Error(err)
	c.JSON(code, ErrorResponse{Error: err.Error(), Retryable: isRetryable(err)})
}

// respondBadRequest reports a malformed request.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

func isRetryable(err error) bool {
	return errors.Is(err, service.ErrConflict) || errors.Is(err, repository.ErrConflict)
}

// mapErrorToHTTPStatus maps domain/service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrTripNotFound),
		errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, domain.ErrPaymentNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidPaymentID),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrMissingParty),
		errors.Is(err, domain.ErrMissingRoute),
		errors.Is(err, domain.ErrInvalidPaymentMethod),
		errors.Is(err, domain.ErrInvalidPayerType):
		return http.StatusBadRequest

	// Business rule errors
	case errors.Is(err, domain.ErrInvalidPolicy),
		errors.Is(err, domain.ErrOverpayment):
		return http.StatusUnprocessableEntity

	// Conflict errors
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrTripCancelled),
		errors.Is(err, domain.ErrPaymentNotPending),
		errors.Is(err, service.ErrPaymentNotSettled),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict

	// Gateway errors
	case errors.Is(err, service.ErrGatewayDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrGatewayFailure):
		return http.StatusBadGateway

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// SharesResponse lists an amount per commission role.
type SharesResponse struct {
	Driver     string `json:"driver"`
	Dispatcher string `json:"dispatcher"`
	Admin      string `json:"admin"`
	SuperAdmin string `json:"super_admin"`
}

func toShares(s domain.Shares) SharesResponse {
	return SharesResponse{
		Driver:     money(s.Driver),
		Dispatcher: money(s.Dispatcher),
		Admin:      money(s.Admin),
		SuperAdmin: money(s.SuperAdmin),
	}
}

// PolicyResponse is the HTTP representation of a commission policy.
type PolicyResponse struct {
	TenantID          string `json:"tenant_id"`
	Version           int    `json:"version"`
	DriverPercent     string `json:"driver_percent"`
	DispatcherPercent string `json:"dispatcher_percent"`
	AdminPercent      string `json:"admin_percent"`
	SuperAdminPercent string `json:"super_admin_percent"`
	RemainderRole     string `json:"remainder_role"`
	CreatedAt         string `json:"created_at,omitempty"`
}

func percent(d decimal.Decimal) string {
	return d.Shift(2).String()
}

func toPolicy(p domain.Policy) PolicyResponse {
	return PolicyResponse{
		TenantID:          p.TenantID,
		Version:           p.Version,
		DriverPercent:     percent(p.DriverPct),
		DispatcherPercent: percent(p.DispatcherPct),
		AdminPercent:      percent(p.AdminPct),
		SuperAdminPercent: percent(p.SuperAdminPct),
		RemainderRole:     string(p.Remainder()),
		CreatedAt:         formatTime(p.CreatedAt),
	}
}

// PaymentResponse is the HTTP representation of a payment.
type PaymentResponse struct {
	ID                    string `json:"id"`
	TripID                string `json:"trip_id"`
	Amount                string `json:"amount"`
	Method                string `json:"method"`
	Status                string `json:"status"`
	PayerType             string `json:"payer_type"`
	RazorpayOrderID       string `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID     string `json:"razorpay_payment_id,omitempty"`
	StripePaymentIntentID string `json:"stripe_payment_intent_id,omitempty"`
	StripeChargeID        string `json:"stripe_charge_id,omitempty"`
	Notes                 string `json:"notes,omitempty"`
	FailureReason         string `json:"failure_reason,omitempty"`
	CreatedAt             string `json:"created_at"`
	UpdatedAt             string `json:"updated_at"`
}

func toPayment(p domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                    p.ID,
		TripID:                p.TripID,
		Amount:                money(p.Amount),
		Method:                string(p.Method),
		Status:                string(p.Status),
		PayerType:             string(p.PayerType),
		RazorpayOrderID:       p.Gateway.RazorpayOrderID,
		RazorpayPaymentID:     p.Gateway.RazorpayPaymentID,
		StripePaymentIntentID: p.Gateway.StripePaymentIntentID,
		StripeChargeID:        p.Gateway.StripeChargeID,
		Notes:                 p.Notes,
		FailureReason:         p.FailureReason,
		CreatedAt:             formatTime(p.CreatedAt),
		UpdatedAt:             formatTime(p.UpdatedAt),
	}
}

func toPayments(ps []domain.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPayment(p))
	}
	return out
}

// EventResponse is the HTTP representation of a trip event.
type EventResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	FromStatus  string `json:"from_status,omitempty"`
	ToStatus    string `json:"to_status,omitempty"`
	Timestamp   string `json:"timestamp"`
}

func toEvents(es []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(es))
	for _, e := range es {
		out = append(out, EventResponse{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			FromStatus:  string(e.FromStatus),
			ToStatus:    string(e.ToStatus),
			Timestamp:   formatTime(e.Timestamp),
		})
	}
	return out
}

// ActionResponse is a status change available from the current status.
type ActionResponse struct {
	Name   string `json:"name"`
	Target string `json:"target"`
}

func toActions(as []domain.Action) []ActionResponse {
	out := make([]ActionResponse, 0, len(as))
	for _, a := range as {
		out = append(out, ActionResponse{Name: a.Name, Target: string(a.Target)})
	}
	return out
}

// TripResponse is the HTTP representation of a booking.
type TripResponse struct {
	ID                  string            `json:"id"`
	TransactionNumber   string            `json:"transaction_number"`
	TenantID            string            `json:"tenant_id"`
	CustomerID          string            `json:"customer_id"`
	DriverID            string            `json:"driver_id"`
	DispatcherID        string            `json:"dispatcher_id"`
	VehicleID           string            `json:"vehicle_id"`
	PickupLocation      string            `json:"pickup_location"`
	DestinationLocation string            `json:"destination_location"`
	ReturnLocation      string            `json:"return_location,omitempty"`
	RideDurationHours   int               `json:"ride_duration_hours"`
	PaymentMethod       string            `json:"payment_method"`
	Status              string            `json:"status"`
	TotalAmount         string            `json:"total_amount"`
	PaidAmount          string            `json:"paid_amount"`
	Outstanding         string            `json:"outstanding"`
	IsPaid              bool              `json:"is_paid"`
	Shares              SharesResponse    `json:"shares"`
	RolePaid            SharesResponse    `json:"role_paid"`
	RoleDue             SharesResponse    `json:"role_due"`
	PolicyVersion       int               `json:"policy_version"`
	Version             int64             `json:"version"`
	Actions             []ActionResponse  `json:"available_actions"`
	Events              []EventResponse   `json:"events,omitempty"`
	Payments            []PaymentResponse `json:"payments,omitempty"`
	CreatedAt           string            `json:"created_at"`
	UpdatedAt           string            `json:"updated_at"`
}

// toTrip converts a trip; detail includes its events and payments.
func toTrip(t *domain.Trip, detail bool) TripResponse {
	resp := TripResponse{
		ID:                  t.ID,
		TransactionNumber:   t.TransactionNumber,
		TenantID:            t.TenantID,
		CustomerID:          t.CustomerID,
		DriverID:            t.DriverID,
		DispatcherID:        t.DispatcherID,
		VehicleID:           t.VehicleID,
		PickupLocation:      t.PickupLocation,
		DestinationLocation: t.DestinationLocation,
		ReturnLocation:      t.ReturnLocation,
		RideDurationHours:   t.RideDurationHours,
		PaymentMethod:       string(t.PaymentMethod),
		Status:              string(t.Status),
		TotalAmount:         money(t.TotalAmount),
		PaidAmount:          money(t.PaidAmount),
		Outstanding:         money(t.Outstanding()),
		IsPaid:              t.IsPaid,
		Shares:              toShares(t.Shares),
		RolePaid:            toShares(t.RolePaid),
		RoleDue:             toShares(t.RoleDue()),
		PolicyVersion:       t.Policy.Version,
		Version:             t.Version,
		Actions:             toActions(domain.AvailableActions(t.Status)),
		CreatedAt:           formatTime(t.CreatedAt),
		UpdatedAt:           formatTime(t.UpdatedAt),
	}
	if detail {
		resp.Events = toEvents(t.Events)
		resp.Payments = toPayments(t.Payments)
	}
	return resp
}
