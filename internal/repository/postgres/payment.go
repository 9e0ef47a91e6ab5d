package postgres

import (
	"context"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

const paymentColumns = `
	id, trip_id, amount, method, status, payer_type,
	razorpay_order_id, razorpay_payment_id, razorpay_signature,
	stripe_payment_intent_id, stripe_charge_id,
	notes, failure_reason, created_at, updated_at`

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.TripID, &p.Amount, &p.Method, &p.Status, &p.PayerType,
		&p.Gateway.RazorpayOrderID, &p.Gateway.RazorpayPaymentID, &p.Gateway.RazorpaySignature,
		&p.Gateway.StripePaymentIntentID, &p.Gateway.StripeChargeID,
		&p.Notes, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID, payment.TripID, payment.Amount, payment.Method, payment.Status, payment.PayerType,
		payment.Gateway.RazorpayOrderID, payment.Gateway.RazorpayPaymentID, payment.Gateway.RazorpaySignature,
		payment.Gateway.StripePaymentIntentID, payment.Gateway.StripeChargeID,
		payment.Notes, payment.FailureReason, payment.CreatedAt, payment.UpdatedAt,
	)

	return mapError(err)
}

// Update writes the mutable payment columns.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, razorpay_order_id = $2, razorpay_payment_id = $3, razorpay_signature = $4,
			stripe_payment_intent_id = $5, stripe_charge_id = $6,
			notes = $7, failure_reason = $8, updated_at = $9
		WHERE id = $10
	`

	result, err := r.q.ExecContext(ctx, query,
		payment.Status,
		payment.Gateway.RazorpayOrderID, payment.Gateway.RazorpayPaymentID, payment.Gateway.RazorpaySignature,
		payment.Gateway.StripePaymentIntentID, payment.Gateway.StripeChargeID,
		payment.Notes, payment.FailureReason, payment.UpdatedAt,
		payment.ID,
	)
	if err != nil {
		return mapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

// GetByRazorpayOrderID retrieves the payment created for a Razorpay order.
func (r *PaymentRepository) GetByRazorpayOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE razorpay_order_id = $1`, orderID)
}

// GetByStripeIntentID retrieves the payment created for a Stripe PaymentIntent.
func (r *PaymentRepository) GetByStripeIntentID(ctx context.Context, intentID string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE stripe_payment_intent_id = $1`, intentID)
}

func (r *PaymentRepository) getOne(ctx context.Context, query, arg string) (*domain.Payment, error) {
	if arg == "" {
		return nil, repository.ErrNotFound
	}
	p, err := scanPayment(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

// ListByTrip retrieves a trip's payments, oldest first.
func (r *PaymentRepository) ListByTrip(ctx context.Context, tripID string) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE trip_id = $1 ORDER BY created_at, id`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}

	return payments, rows.Err()
}

// Ensure PaymentRepository implements repository.PaymentRepository.
var _ repository.PaymentRepository = (*PaymentRepository)(nil)
