package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/middleware"
	"ridedispatch/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// RecordPaymentRequest is the HTTP request body for recording a payment.
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"payment_method" binding:"required"`
	PayerType string          `json:"payer_type,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	Settled   bool            `json:"settled,omitempty"`
}

// GatewayPaymentRequest is the HTTP request body for opening a gateway payment.
type GatewayPaymentRequest struct {
	TripID    string          `json:"trip_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
	PayerType string          `json:"payer_type,omitempty"`
}

// ConfirmPaymentRequest is the HTTP request body for confirming a payment.
type ConfirmPaymentRequest struct {
	RazorpayPaymentID string `json:"razorpay_payment_id,omitempty"`
	RazorpaySignature string `json:"razorpay_signature,omitempty"`
	StripeChargeID    string `json:"stripe_charge_id,omitempty"`
}

// FailPaymentRequest is the HTTP request body for failing a payment.
type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RazorpayVerifyRequest is the Razorpay checkout callback payload.
type RazorpayVerifyRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// StripeConfirmRequest identifies the PaymentIntent to reconcile.
type StripeConfirmRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// PaymentResultResponse is a payment with the booking state after it.
type PaymentResultResponse struct {
	Payment PaymentResponse `json:"payment"`
	Trip    TripResponse    `json:"trip"`
}

// GatewayErrorResponse reports a gateway error together with the payment
// record kept for the attempt.
type GatewayErrorResponse struct {
	Error   string          `json:"error"`
	Payment PaymentResponse `json:"payment"`
}

func toPaymentResult(r *service.PaymentResult) PaymentResultResponse {
	return PaymentResultResponse{
		Payment: toPayment(*r.Payment),
		Trip:    toTrip(r.Trip, false),
	}
}

// respondPayment responds with the payment result, or with the error and the
// attempt that was stored despite it.
func respondPayment(c *gin.Context, code int, result *service.PaymentResult, err error) {
	if err != nil {
		if result != nil {
			_ = c.Error(err)
			c.JSON(mapErrorToHTTPStatus(err), GatewayErrorResponse{Error: err.Error(), Payment: toPayment(*result.Payment)})
			return
		}
		respondError(c, err)
		return
	}
	respondJSON(c, code, toPaymentResult(result))
}

// Record handles POST /v1/bookings/:id/payments
func (h *PaymentHandler) Record(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.paymentService.RecordPayment(c.Request.Context(), middleware.TenantID(c), c.Param("id"), service.RecordPaymentRequest{
		Amount:    req.Amount,
		Method:    domain.PaymentMethod(req.Method),
		PayerType: domain.PayerType(req.PayerType),
		Notes:     req.Notes,
		Settled:   req.Settled,
	})
	respondPayment(c, http.StatusCreated, result, err)
}

// MarkPaid handles PATCH /v1/bookings/:id/payment?paid_amount=N&payment_method=M
func (h *PaymentHandler) MarkPaid(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("paid_amount"))
	if err != nil {
		respondBadRequest(c, "paid_amount must be a decimal amount")
		return
	}

	result, err := h.paymentService.SettleOffline(c.Request.Context(), middleware.TenantID(c), c.Param("id"),
		amount, domain.PaymentMethod(c.Query("payment_method")))
	respondPayment(c, http.StatusOK, result, err)
}

// List handles GET /v1/bookings/:id/payments
func (h *PaymentHandler) List(c *gin.Context) {
	payments, err := h.paymentService.ListPayments(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"payments": toPayments(payments),
		"count":    len(payments),
	})
}

// Confirm handles POST /v1/payments/:id/confirm
func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req ConfirmPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	result, err := h.paymentService.ConfirmPayment(c.Request.Context(), middleware.TenantID(c), c.Param("id"), domain.GatewayRef{
		RazorpayPaymentID: req.RazorpayPaymentID,
		RazorpaySignature: req.RazorpaySignature,
		StripeChargeID:    req.StripeChargeID,
	})
	respondPayment(c, http.StatusOK, result, err)
}

// Fail handles POST /v1/payments/:id/fail
func (h *PaymentHandler) Fail(c *gin.Context) {
	var req FailPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "reason is required")
		return
	}

	result, err := h.paymentService.FailPayment(c.Request.Context(), middleware.TenantID(c), c.Param("id"), req.Reason)
	respondPayment(c, http.StatusOK, result, err)
}

// RazorpayOrder handles POST /v1/payments/razorpay/order
func (h *PaymentHandler) RazorpayOrder(c *gin.Context) {
	var req GatewayPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.paymentService.CreateRazorpayOrder(c.Request.Context(), middleware.TenantID(c), req.TripID,
		req.Amount, domain.PayerType(req.PayerType))
	if err != nil {
		var pr *service.PaymentResult
		if result != nil {
			pr = &result.PaymentResult
		}
		respondPayment(c, http.StatusCreated, pr, err)
		return
	}

	respondJSON(c, http.StatusCreated, gin.H{
		"payment":  toPayment(*result.Payment),
		"order_id": result.Order.ID,
		"amount":   result.Order.Amount,
		"currency": result.Order.Currency,
		"key_id":   result.Order.KeyID,
	})
}

// RazorpayVerify handles POST /v1/payments/razorpay/verify
func (h *PaymentHandler) RazorpayVerify(c *gin.Context) {
	var req RazorpayVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.paymentService.VerifyRazorpayPayment(c.Request.Context(), middleware.TenantID(c),
		req.OrderID, req.PaymentID, req.Signature)
	respondPayment(c, http.StatusOK, result, err)
}

// StripeIntent handles POST /v1/payments/stripe/intent
func (h *PaymentHandler) StripeIntent(c *gin.Context) {
	var req GatewayPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.paymentService.CreateStripeIntent(c.Request.Context(), middleware.TenantID(c), req.TripID,
		req.Amount, domain.PayerType(req.PayerType))
	if err != nil {
		var pr *service.PaymentResult
		if result != nil {
			pr = &result.PaymentResult
		}
		respondPayment(c, http.StatusCreated, pr, err)
		return
	}

	respondJSON(c, http.StatusCreated, gin.H{
		"payment":           toPayment(*result.Payment),
		"payment_intent_id": result.IntentID,
		"client_secret":     result.ClientSecret,
	})
}

// StripeConfirm handles POST /v1/payments/stripe/confirm
func (h *PaymentHandler) StripeConfirm(c *gin.Context) {
	var req StripeConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.paymentService.ConfirmStripeIntent(c.Request.Context(), middleware.TenantID(c), req.PaymentIntentID)
	respondPayment(c, http.StatusOK, result, err)
}
