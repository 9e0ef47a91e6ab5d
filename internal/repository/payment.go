package repository

import (
	"context"

	"ridedispatch/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// Update writes status, gateway references and notes of a payment.
	Update(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByRazorpayOrderID retrieves the payment created for a Razorpay order.
	GetByRazorpayOrderID(ctx context.Context, orderID string) (*domain.Payment, error)

	// GetByStripeIntentID retrieves the payment created for a Stripe PaymentIntent.
	GetByStripeIntentID(ctx context.Context, intentID string) (*domain.Payment, error)

	// ListByTrip retrieves a trip's payments, oldest first.
	ListByTrip(ctx context.Context, tripID string) ([]domain.Payment, error)
}
