package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/observability"
	"ridedispatch/internal/payments"
	"ridedispatch/internal/repository"
)

// RazorpayGateway creates Razorpay orders and verifies checkout signatures.
type RazorpayGateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*payments.RazorpayOrder, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// StripeGateway creates and inspects Stripe PaymentIntents.
type StripeGateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*payments.StripeIntent, error)
	GetIntent(ctx context.Context, id string) (*payments.StripeIntent, error)
}

// PaymentService records and settles payments against trips. Gateway calls
// happen before the trip lock is taken.
type PaymentService struct {
	mutator  *TripMutator
	store    repository.Store
	razorpay RazorpayGateway
	stripe   StripeGateway
	currency string
	logger   *slog.Logger
}

// NewPaymentService creates a new PaymentService. A nil gateway disables
// the corresponding flow.
func NewPaymentService(
	mutator *TripMutator,
	store repository.Store,
	razorpay RazorpayGateway,
	stripe StripeGateway,
	currency string,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		mutator:  mutator,
		store:    store,
		razorpay: razorpay,
		stripe:   stripe,
		currency: currency,
		logger:   logger,
	}
}

// PaymentResult is a payment together with the trip state after it.
type PaymentResult struct {
	Trip    *domain.Trip
	Payment *domain.Payment
}

// RecordPaymentRequest contains the parameters for recording a payment.
type RecordPaymentRequest struct {
	Amount    decimal.Decimal
	Method    domain.PaymentMethod
	PayerType domain.PayerType
	Notes     string
	// Settled records an offline payment as SUCCESS immediately.
	Settled bool
}

func resultFor(res *mutationResult, paymentID string) (*PaymentResult, error) {
	p, err := res.trip.Payment(paymentID)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Trip: res.trip, Payment: p}, nil
}

// RecordPayment adds a payment to a trip. Partial payments are accepted;
// a payment that would take the settled total above the trip total is not.
func (s *PaymentService) RecordPayment(ctx context.Context, tenantID, tripID string, req RecordPaymentRequest) (*PaymentResult, error) {
	if req.PayerType == "" {
		req.PayerType = domain.PayerCustomer
	}
	paymentID := uuid.New().String()

	res, err := s.mutator.mutate(ctx, tenantID, tripID, "record_payment", func(t *domain.Trip, now time.Time) error {
		_, err := t.RecordPayment(domain.PaymentRequest{
			ID:        paymentID,
			Amount:    req.Amount,
			Method:    req.Method,
			PayerType: req.PayerType,
			Notes:     req.Notes,
			Settled:   req.Settled,
		}, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resultFor(res, paymentID)
}

// SettleOffline records a customer payment collected outside the gateways
// as SUCCESS. An empty method means CASH.
func (s *PaymentService) SettleOffline(ctx context.Context, tenantID, tripID string, amount decimal.Decimal, method domain.PaymentMethod) (*PaymentResult, error) {
	if method == "" {
		method = domain.PaymentMethodCash
	}
	return s.RecordPayment(ctx, tenantID, tripID, RecordPaymentRequest{
		Amount:    amount,
		Method:    method,
		PayerType: domain.PayerCustomer,
		Notes:     "Marked paid by dispatcher",
		Settled:   true,
	})
}

// paymentTrip resolves the trip of a payment.
func (s *PaymentService) paymentTrip(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}
	p, err := s.store.Repos().Payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}
	return p, nil
}

// ConfirmPayment marks a PENDING payment SUCCESS and stamps gateway references.
func (s *PaymentService) ConfirmPayment(ctx context.Context, tenantID, paymentID string, ref domain.GatewayRef) (*PaymentResult, error) {
	p, err := s.paymentTrip(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	res, err := s.mutator.mutate(ctx, tenantID, p.TripID, "confirm_payment", func(t *domain.Trip, now time.Time) error {
		_, err := t.ConfirmPayment(paymentID, ref, now)
		return err
	})
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}
	return resultFor(res, paymentID)
}

// FailPayment marks a PENDING payment FAILED.
func (s *PaymentService) FailPayment(ctx context.Context, tenantID, paymentID, reason string) (*PaymentResult, error) {
	p, err := s.paymentTrip(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	res, err := s.mutator.mutate(ctx, tenantID, p.TripID, "fail_payment", func(t *domain.Trip, now time.Time) error {
		_, err := t.FailPayment(paymentID, reason, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resultFor(res, paymentID)
}

// ListPayments returns a trip's payments, oldest first.
func (s *PaymentService) ListPayments(ctx context.Context, tenantID, tripID string) ([]domain.Payment, error) {
	trip, err := s.mutator.loadTrip(ctx, tenantID, tripID)
	if err != nil {
		return nil, err
	}
	return trip.Payments, nil
}

const (
	gatewayWriteAttempts = 3
	gatewayWriteBackoff  = 25 * time.Millisecond
)

// writeAttempt runs a gateway attempt write, retrying while another writer
// holds the trip.
func (s *PaymentService) writeAttempt(ctx context.Context, tenantID, tripID, op string, fn func(*domain.Trip, time.Time) error) (*mutationResult, error) {
	var err error
	for attempt := 1; ; attempt++ {
		var res *mutationResult
		res, err = s.mutator.mutate(ctx, tenantID, tripID, op, fn)
		if err == nil || !errors.Is(err, ErrConflict) || attempt == gatewayWriteAttempts {
			return res, err
		}
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(time.Duration(attempt) * gatewayWriteBackoff):
		}
	}
}

// recordGatewayAttempt stores a PENDING gateway payment, or a FAILED one if
// the gateway call returned gwErr. When the trip changed during the gateway
// call so the payment no longer fits, the attempt is kept as FAILED and the
// original rejection is returned with it.
func (s *PaymentService) recordGatewayAttempt(
	ctx context.Context, tenantID, tripID, op string,
	req domain.PaymentRequest, gwErr error,
) (*PaymentResult, error) {
	var rejected error
	res, err := s.writeAttempt(ctx, tenantID, tripID, op, func(t *domain.Trip, now time.Time) error {
		rejected = nil
		if gwErr != nil {
			_, err := t.RecordFailedAttempt(req, gwErr.Error(), now)
			return err
		}
		_, err := t.RecordPayment(req, now)
		if errors.Is(err, domain.ErrOverpayment) || errors.Is(err, domain.ErrTripCancelled) {
			rejected = err
			_, err = t.RecordFailedAttempt(req, "superseded: "+err.Error(), now)
		}
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "gateway attempt not recorded",
			"op", op,
			"trip_id", tripID,
			"payment_id", req.ID,
			"razorpay_order_id", req.Gateway.RazorpayOrderID,
			"stripe_intent_id", req.Gateway.StripePaymentIntentID,
			"error", err,
		)
		return nil, err
	}

	out, err := resultFor(res, req.ID)
	if err != nil {
		return nil, err
	}
	switch {
	case gwErr != nil:
		s.logger.WarnContext(ctx, "gateway call failed", "op", op, "trip_id", tripID, "payment_id", req.ID, "error", gwErr)
		return out, fmt.Errorf("%w: %v", ErrGatewayFailure, gwErr)
	case rejected != nil:
		s.logger.WarnContext(ctx, "gateway attempt superseded", "op", op, "trip_id", tripID, "payment_id", req.ID, "error", rejected)
		return out, rejected
	}
	return out, nil
}

// RazorpayOrderResult carries what the checkout widget needs.
type RazorpayOrderResult struct {
	PaymentResult
	Order *payments.RazorpayOrder
}

// CreateRazorpayOrder opens a Razorpay order for amount and records a
// PENDING payment for it.
func (s *PaymentService) CreateRazorpayOrder(ctx context.Context, tenantID, tripID string, amount decimal.Decimal, payer domain.PayerType) (*RazorpayOrderResult, error) {
	if s.razorpay == nil {
		return nil, ErrGatewayDisabled
	}
	if payer == "" {
		payer = domain.PayerCustomer
	}

	trip, err := s.mutator.loadTrip(ctx, tenantID, tripID)
	if err != nil {
		return nil, err
	}
	if err := trip.CheckPayable(amount); err != nil {
		return nil, err
	}

	paymentID := uuid.New().String()
	start := time.Now()
	order, gwErr := s.razorpay.CreateOrder(ctx, amount, s.currency, trip.TransactionNumber, map[string]string{
		"trip_id":    trip.ID,
		"payment_id": paymentID,
	})
	observability.GatewayLatency.WithLabelValues("razorpay", "create_order", observability.Outcome(gwErr)).Observe(time.Since(start).Seconds())

	req := domain.PaymentRequest{ID: paymentID, Amount: amount, Method: domain.PaymentMethodRazorpay, PayerType: payer}
	if gwErr == nil {
		req.Gateway.RazorpayOrderID = order.ID
	}

	res, err := s.recordGatewayAttempt(ctx, tenantID, tripID, "razorpay_order", req, gwErr)
	if res == nil {
		return nil, err
	}
	return &RazorpayOrderResult{PaymentResult: *res, Order: order}, err
}

// VerifyRazorpayPayment confirms the payment of an order when the checkout
// signature verifies, and fails it otherwise. Replaying a verified
// confirmation returns the settled payment.
func (s *PaymentService) VerifyRazorpayPayment(ctx context.Context, tenantID, orderID, razorpayPaymentID, signature string) (*PaymentResult, error) {
	if s.razorpay == nil {
		return nil, ErrGatewayDisabled
	}

	p, err := s.store.Repos().Payments.GetByRazorpayOrderID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}
	valid := s.razorpay.VerifySignature(orderID, razorpayPaymentID, signature)

	res, err := s.mutator.mutate(ctx, tenantID, p.TripID, "razorpay_verify", func(t *domain.Trip, now time.Time) error {
		current, err := t.Payment(p.ID)
		if err != nil {
			return err
		}
		if current.Status == domain.PaymentStatusSuccess && current.Gateway.RazorpayPaymentID == razorpayPaymentID {
			return nil
		}
		if !valid {
			_, err := t.FailPayment(p.ID, "signature verification failed", now)
			return err
		}
		_, err = t.ConfirmPayment(p.ID, domain.GatewayRef{
			RazorpayPaymentID: razorpayPaymentID,
			RazorpaySignature: signature,
		}, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	out, err := resultFor(res, p.ID)
	if err != nil {
		return nil, err
	}
	if out.Payment.Status == domain.PaymentStatusFailed {
		return out, ErrInvalidSignature
	}
	return out, nil
}

// StripeIntentResult carries what the client needs to complete a PaymentIntent.
type StripeIntentResult struct {
	PaymentResult
	IntentID     string
	ClientSecret string
}

// CreateStripeIntent creates a PaymentIntent for amount and records a
// PENDING payment for it.
func (s *PaymentService) CreateStripeIntent(ctx context.Context, tenantID, tripID string, amount decimal.Decimal, payer domain.PayerType) (*StripeIntentResult, error) {
	if s.stripe == nil {
		return nil, ErrGatewayDisabled
	}
	if payer == "" {
		payer = domain.PayerCustomer
	}

	trip, err := s.mutator.loadTrip(ctx, tenantID, tripID)
	if err != nil {
		return nil, err
	}
	if err := trip.CheckPayable(amount); err != nil {
		return nil, err
	}

	paymentID := uuid.New().String()
	start := time.Now()
	intent, gwErr := s.stripe.CreateIntent(ctx, amount, s.currency, map[string]string{
		"trip_id":            trip.ID,
		"payment_id":         paymentID,
		"transaction_number": trip.TransactionNumber,
	})
	observability.GatewayLatency.WithLabelValues("stripe", "create_intent", observability.Outcome(gwErr)).Observe(time.Since(start).Seconds())

	req := domain.PaymentRequest{ID: paymentID, Amount: amount, Method: domain.PaymentMethodStripe, PayerType: payer}
	if gwErr == nil {
		req.Gateway.StripePaymentIntentID = intent.ID
	}

	res, err := s.recordGatewayAttempt(ctx, tenantID, tripID, "stripe_intent", req, gwErr)
	if res == nil {
		return nil, err
	}
	out := &StripeIntentResult{PaymentResult: *res}
	if intent != nil {
		out.IntentID = intent.ID
		out.ClientSecret = intent.ClientSecret
	}
	return out, err
}

// ConfirmStripeIntent reconciles the payment of a PaymentIntent with the
// intent's state at Stripe.
func (s *PaymentService) ConfirmStripeIntent(ctx context.Context, tenantID, intentID string) (*PaymentResult, error) {
	if s.stripe == nil {
		return nil, ErrGatewayDisabled
	}

	p, err := s.store.Repos().Payments.GetByStripeIntentID(ctx, intentID)
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}

	start := time.Now()
	intent, err := s.stripe.GetIntent(ctx, intentID)
	observability.GatewayLatency.WithLabelValues("stripe", "get_intent", observability.Outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	if !intent.Succeeded() && !intent.Failed() {
		return nil, ErrPaymentNotSettled
	}

	res, err := s.mutator.mutate(ctx, tenantID, p.TripID, "stripe_confirm", func(t *domain.Trip, now time.Time) error {
		current, err := t.Payment(p.ID)
		if err != nil {
			return err
		}
		if current.Status != domain.PaymentStatusPending {
			return nil
		}
		if intent.Failed() {
			reason := intent.LastError
			if reason == "" {
				reason = "stripe intent " + intent.Status
			}
			_, err := t.FailPayment(p.ID, reason, now)
			return err
		}
		_, err = t.ConfirmPayment(p.ID, domain.GatewayRef{StripeChargeID: intent.ChargeID}, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resultFor(res, p.ID)
}
