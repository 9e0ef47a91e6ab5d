package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequest describes a payment attempt to record against a trip.
type PaymentRequest struct {
	ID        string
	Amount    decimal.Decimal
	Method    PaymentMethod
	PayerType PayerType
	Gateway   GatewayRef
	Notes     string
	// Settled records an offline payment as SUCCESS immediately.
	Settled bool
}

// SuccessfulTotal sums the amounts of SUCCESS payments.
func (t *Trip) SuccessfulTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range t.Payments {
		if p.Status == PaymentStatusSuccess {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}

// Outstanding returns the unsettled part of the total.
func (t *Trip) Outstanding() decimal.Decimal {
	return t.TotalAmount.Sub(t.SuccessfulTotal())
}

// Payment returns the trip's payment with the given id.
func (t *Trip) Payment(id string) (*Payment, error) {
	for i := range t.Payments {
		if t.Payments[i].ID == id {
			return &t.Payments[i], nil
		}
	}
	return nil, ErrPaymentNotFound
}

// CheckPayable validates amount against the outstanding balance without
// changing the trip.
func (t *Trip) CheckPayable(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if t.Status == TripStatusCancelled {
		return ErrTripCancelled
	}
	paid := t.SuccessfulTotal()
	if amount.Add(paid).GreaterThan(t.TotalAmount) {
		return &OverpaymentError{
			Amount:      amount,
			Paid:        paid,
			Total:       t.TotalAmount,
			Outstanding: t.TotalAmount.Sub(paid),
		}
	}
	return nil
}

// RecordPayment adds a payment attempt. Partial payments are allowed;
// overpayment is rejected.
func (t *Trip) RecordPayment(req PaymentRequest, now time.Time) (*Payment, error) {
	if !req.Method.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, req.Method)
	}
	if !req.PayerType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPayerType, req.PayerType)
	}
	if req.Settled && req.Method.IsGateway() {
		return nil, fmt.Errorf("%w: %s payments settle through the gateway", ErrInvalidPaymentMethod, req.Method)
	}
	if err := t.CheckPayable(req.Amount); err != nil {
		return nil, err
	}

	status := PaymentStatusPending
	var ledger settlement
	if req.Settled {
		var err error
		if ledger, err = t.settlementWith(req.Amount); err != nil {
			return nil, err
		}
		status = PaymentStatusSuccess
	}

	t.Payments = append(t.Payments, Payment{
		ID:        req.ID,
		TripID:    t.ID,
		Amount:    req.Amount,
		Method:    req.Method,
		Status:    status,
		PayerType: req.PayerType,
		Gateway:   req.Gateway,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	})
	payment := &t.Payments[len(t.Payments)-1]

	t.appendEvent(EventPaymentRecorded, fmt.Sprintf("Payment of %s recorded via %s (%s)",
		req.Amount.StringFixed(2), req.Method, status), now)

	if status == PaymentStatusSuccess {
		t.applySettlement(ledger, now)
	}
	return payment, nil
}

// ConfirmPayment marks a PENDING payment SUCCESS and re-derives the paid state.
func (t *Trip) ConfirmPayment(paymentID string, ref GatewayRef, now time.Time) (*Payment, error) {
	payment, err := t.Payment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != PaymentStatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrPaymentNotPending, paymentID, payment.Status)
	}
	if err := t.CheckPayable(payment.Amount); err != nil {
		return nil, err
	}
	ledger, err := t.settlementWith(payment.Amount)
	if err != nil {
		return nil, err
	}

	payment.Status = PaymentStatusSuccess
	payment.Gateway.merge(ref)
	payment.UpdatedAt = now

	t.appendEvent(EventPaymentConfirmed, fmt.Sprintf("Payment %s of %s confirmed via %s",
		payment.ID, payment.Amount.StringFixed(2), payment.Method), now)
	t.applySettlement(ledger, now)
	return payment, nil
}

// FailPayment marks a PENDING payment FAILED. The paid state is unchanged.
func (t *Trip) FailPayment(paymentID, reason string, now time.Time) (*Payment, error) {
	payment, err := t.Payment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != PaymentStatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrPaymentNotPending, paymentID, payment.Status)
	}

	payment.Status = PaymentStatusFailed
	payment.FailureReason = reason
	payment.UpdatedAt = now

	t.appendEvent(EventPaymentFailed, fmt.Sprintf("Payment %s failed: %s", payment.ID, reason), now)
	t.UpdatedAt = now
	return payment, nil
}

// RecordFailedAttempt stores a gateway attempt that will never settle. It
// skips the balance and cancellation checks so the attempt stays on record
// whatever happened to the trip meanwhile.
func (t *Trip) RecordFailedAttempt(req PaymentRequest, reason string, now time.Time) (*Payment, error) {
	if !req.Method.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, req.Method)
	}
	if !req.PayerType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPayerType, req.PayerType)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, req.Amount)
	}

	t.Payments = append(t.Payments, Payment{
		ID:            req.ID,
		TripID:        t.ID,
		Amount:        req.Amount,
		Method:        req.Method,
		Status:        PaymentStatusFailed,
		PayerType:     req.PayerType,
		Gateway:       req.Gateway,
		Notes:         req.Notes,
		FailureReason: reason,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	payment := &t.Payments[len(t.Payments)-1]

	t.appendEvent(EventPaymentFailed, fmt.Sprintf("Payment %s of %s via %s failed: %s",
		payment.ID, req.Amount.StringFixed(2), req.Method, reason), now)
	t.UpdatedAt = now
	return payment, nil
}

type settlement struct {
	paid     decimal.Decimal
	rolePaid Shares
}

// settlementWith computes the paid state after an extra successful amount.
// The role ledger is the split of the cumulative paid amount, so it sums to
// the paid amount and equals Shares once the trip is fully paid.
func (t *Trip) settlementWith(amount decimal.Decimal) (settlement, error) {
	paid := t.SuccessfulTotal().Add(amount)
	rolePaid, err := AllocatePaid(paid, t.Policy)
	if err != nil {
		return settlement{}, err
	}
	return settlement{paid: paid, rolePaid: rolePaid}, nil
}

func (t *Trip) applySettlement(s settlement, now time.Time) {
	t.PaidAmount = s.paid
	t.RolePaid = s.rolePaid
	t.IsPaid = s.paid.GreaterThanOrEqual(t.TotalAmount)
	t.UpdatedAt = now
}

func (t *Trip) appendEvent(name, description string, now time.Time) {
	t.Events = append(t.Events, Event{
		TripID:      t.ID,
		Name:        name,
		Description: description,
		Timestamp:   now,
	})
}
