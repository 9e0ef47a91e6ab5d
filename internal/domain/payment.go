package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// PaymentMethod represents how a payment was made.
type PaymentMethod string

const (
	PaymentMethodCash      PaymentMethod = "CASH"
	PaymentMethodUPI       PaymentMethod = "UPI"
	PaymentMethodRazorpay  PaymentMethod = "RAZORPAY"
	PaymentMethodStripe    PaymentMethod = "STRIPE"
	PaymentMethodPhonePe   PaymentMethod = "PHONEPE"
	PaymentMethodGooglePay PaymentMethod = "GOOGLEPAY"
	PaymentMethodQRCode    PaymentMethod = "QR_CODE"
)

// IsValid reports whether m is a supported payment method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodUPI, PaymentMethodRazorpay, PaymentMethodStripe,
		PaymentMethodPhonePe, PaymentMethodGooglePay, PaymentMethodQRCode:
		return true
	}
	return false
}

// IsGateway reports whether the method settles through an online gateway
// and therefore always starts PENDING.
func (m PaymentMethod) IsGateway() bool {
	return m == PaymentMethodRazorpay || m == PaymentMethodStripe
}

// PayerType identifies who paid.
type PayerType string

const (
	PayerCustomer   PayerType = "CUSTOMER"
	PayerDriver     PayerType = "DRIVER"
	PayerAdmin      PayerType = "ADMIN"
	PayerDispatcher PayerType = "DISPATCHER"
	PayerSuperAdmin PayerType = "SUPER_ADMIN"
)

// IsValid reports whether p is a known payer type.
func (p PayerType) IsValid() bool {
	switch p {
	case PayerCustomer, PayerDriver, PayerAdmin, PayerDispatcher, PayerSuperAdmin:
		return true
	}
	return false
}

// GatewayRef carries external gateway identifiers for a payment.
type GatewayRef struct {
	RazorpayOrderID       string
	RazorpayPaymentID     string
	RazorpaySignature     string
	StripePaymentIntentID string
	StripeChargeID        string
}

// merge copies the non-empty fields of o into r.
func (r *GatewayRef) merge(o GatewayRef) {
	if o.RazorpayOrderID != "" {
		r.RazorpayOrderID = o.RazorpayOrderID
	}
	if o.RazorpayPaymentID != "" {
		r.RazorpayPaymentID = o.RazorpayPaymentID
	}
	if o.RazorpaySignature != "" {
		r.RazorpaySignature = o.RazorpaySignature
	}
	if o.StripePaymentIntentID != "" {
		r.StripePaymentIntentID = o.StripePaymentIntentID
	}
	if o.StripeChargeID != "" {
		r.StripeChargeID = o.StripeChargeID
	}
}

// Payment represents a settlement attempt against a trip.
type Payment struct {
	ID            string
	TripID        string
	Amount        decimal.Decimal
	Method        PaymentMethod
	Status        PaymentStatus
	PayerType     PayerType
	Gateway       GatewayRef
	Notes         string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
