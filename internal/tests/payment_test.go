package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

// ──────────────────────────────────────────────
// 5. OFFLINE PAYMENTS
// ──────────────────────────────────────────────

func TestRecordPayment_PartialThenOverpayment(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "1000")

	res, err := h.payments.RecordPayment(ctx, tenant, trip.ID, service.RecordPaymentRequest{
		Amount: d("250"), Method: domain.PaymentMethodCash, Settled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccess, res.Payment.Status)
	assert.Equal(t, domain.PayerCustomer, res.Payment.PayerType)
	assert.False(t, res.Trip.IsPaid)
	assert.True(t, res.Trip.PaidAmount.Equal(d("250")))
	assert.True(t, res.Trip.RolePaid.Driver.Equal(d("187.50")))

	_, err = h.payments.RecordPayment(ctx, tenant, trip.ID, service.RecordPaymentRequest{
		Amount: d("750.01"), Method: domain.PaymentMethodCash, Settled: true,
	})
	assert.ErrorIs(t, err, domain.ErrOverpayment)

	stored := h.store.GetTrip(trip.ID)
	assert.Len(t, stored.Payments, 1)
	assert.True(t, stored.PaidAmount.Equal(d("250")))
	assert.Equal(t, 1, h.store.CountPayments())
}

func TestSettleOffline_MarksTripPaid(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	trip := h.book(t, tenant, "400")
	h.advanceTo(t, trip.ID, domain.TripStatusCompleted)

	res, err := h.payments.SettleOffline(context.Background(), tenant, trip.ID, d("400"), "")
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentMethodCash, res.Payment.Method)
	assert.Equal(t, domain.PaymentStatusSuccess, res.Payment.Status)
	assert.True(t, res.Trip.IsPaid)
	assert.True(t, res.Trip.Outstanding().IsZero())
	for _, role := range domain.CommissionRoles {
		assert.True(t, res.Trip.RolePaid.Of(role).Equal(res.Trip.Shares.Of(role)), role)
	}

	stored := h.store.GetTrip(trip.ID)
	assert.True(t, stored.IsPaid)
	assert.Equal(t, domain.EventPaymentRecorded, stored.LastEvent().Name)
}

func TestConfirmPayment_PendingUPI(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")

	res, err := h.payments.RecordPayment(ctx, tenant, trip.ID, service.RecordPaymentRequest{
		Amount: d("400"), Method: domain.PaymentMethodUPI,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, res.Payment.Status)
	assert.False(t, res.Trip.IsPaid)

	confirmed, err := h.payments.ConfirmPayment(ctx, tenant, res.Payment.ID, domain.GatewayRef{})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccess, confirmed.Payment.Status)
	assert.True(t, confirmed.Trip.IsPaid)

	_, err = h.payments.ConfirmPayment(ctx, tenant, res.Payment.ID, domain.GatewayRef{})
	assert.ErrorIs(t, err, domain.ErrPaymentNotPending)

	_, err = h.payments.ConfirmPayment(ctx, tenant, "missing", domain.GatewayRef{})
	assert.ErrorIs(t, err, service.ErrPaymentNotFound)
}

func TestConfirmPayment_OtherTenant(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")
	res, err := h.payments.RecordPayment(ctx, tenant, trip.ID, service.RecordPaymentRequest{
		Amount: d("100"), Method: domain.PaymentMethodUPI,
	})
	require.NoError(t, err)

	_, err = h.payments.ConfirmPayment(ctx, "acme", res.Payment.ID, domain.GatewayRef{})
	assert.ErrorIs(t, err, service.ErrTripNotFound)

	p, _ := h.store.GetTrip(trip.ID).Payment(res.Payment.ID)
	assert.Equal(t, domain.PaymentStatusPending, p.Status)
}

func TestFailPayment(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")
	res, err := h.payments.RecordPayment(ctx, tenant, trip.ID, service.RecordPaymentRequest{
		Amount: d("400"), Method: domain.PaymentMethodUPI,
	})
	require.NoError(t, err)

	failed, err := h.payments.FailPayment(ctx, tenant, res.Payment.ID, "customer abandoned")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, failed.Payment.Status)
	assert.Equal(t, "customer abandoned", failed.Payment.FailureReason)
	assert.True(t, failed.Trip.PaidAmount.IsZero())

	list, err := h.payments.ListPayments(ctx, tenant, trip.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.PaymentStatusFailed, list[0].Status)
}

func TestRecordPayment_CancelledTrip(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")
	_, err := h.trips.Cancel(ctx, tenant, trip.ID, "no-show")
	require.NoError(t, err)

	_, err = h.payments.SettleOffline(ctx, tenant, trip.ID, d("400"), domain.PaymentMethodCash)
	assert.ErrorIs(t, err, domain.ErrTripCancelled)
	assert.Zero(t, h.store.CountPayments())
}

// ──────────────────────────────────────────────
// 6. RAZORPAY
// ──────────────────────────────────────────────

func TestRazorpay_OrderVerifyReplay(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")

	order, err := h.payments.CreateRazorpayOrder(ctx, tenant, trip.ID, d("400"), "")
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.Order.ID)
	assert.EqualValues(t, 40000, order.Order.Amount)
	assert.Equal(t, domain.PaymentStatusPending, order.Payment.Status)
	assert.Equal(t, "order_1", order.Payment.Gateway.RazorpayOrderID)
	assert.False(t, order.Trip.IsPaid)

	verified, err := h.payments.VerifyRazorpayPayment(ctx, tenant, "order_1", "pay_1", "sig")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccess, verified.Payment.Status)
	assert.Equal(t, "pay_1", verified.Payment.Gateway.RazorpayPaymentID)
	assert.True(t, verified.Trip.IsPaid)

	commits := h.store.UpdateCount
	replay, err := h.payments.VerifyRazorpayPayment(ctx, tenant, "order_1", "pay_1", "sig")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccess, replay.Payment.Status)
	assert.Equal(t, commits, h.store.UpdateCount, "replay writes nothing")
}

func TestRazorpay_InvalidSignatureFailsPayment(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")
	_, err := h.payments.CreateRazorpayOrder(ctx, tenant, trip.ID, d("400"), "")
	require.NoError(t, err)

	h.razorpay.ValidSignature = false
	res, err := h.payments.VerifyRazorpayPayment(ctx, tenant, "order_1", "pay_1", "forged")
	assert.ErrorIs(t, err, service.ErrInvalidSignature)
	require.NotNil(t, res)
	assert.Equal(t, domain.PaymentStatusFailed, res.Payment.Status)
	assert.False(t, res.Trip.IsPaid)

	_, err = h.payments.VerifyRazorpayPayment(ctx, tenant, "order_404", "pay_1", "sig")
	assert.ErrorIs(t, err, service.ErrPaymentNotFound)
}

func TestRazorpay_GatewayErrorRecordsFailedAttempt(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	trip := h.book(t, tenant, "400")
	h.razorpay.CreateError = ErrGatewayDown

	res, err := h.payments.CreateRazorpayOrder(context.Background(), tenant, trip.ID, d("400"), "")
	assert.ErrorIs(t, err, service.ErrGatewayFailure)
	require.NotNil(t, res)
	assert.Nil(t, res.Order)
	assert.Equal(t, domain.PaymentStatusFailed, res.Payment.Status)
	assert.Contains(t, res.Payment.FailureReason, "gateway unavailable")

	stored := h.store.GetTrip(trip.ID)
	require.Len(t, stored.Payments, 1)
	assert.Equal(t, domain.PaymentStatusFailed, stored.Payments[0].Status)
}

func TestRazorpay_OverpaymentNeverReachesGateway(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	trip := h.book(t, tenant, "400")

	_, err := h.payments.CreateRazorpayOrder(context.Background(), tenant, trip.ID, d("400.01"), "")
	assert.ErrorIs(t, err, domain.ErrOverpayment)
	assert.Zero(t, h.razorpay.CreateCount)
	assert.Zero(t, h.store.CountPayments())
}

func TestRazorpay_OrderRecordedAfterBriefLockContention(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	trip := h.book(t, tenant, "400")
	h.locks.BusyAttempts = 1

	res, err := h.payments.CreateRazorpayOrder(context.Background(), tenant, trip.ID, d("400"), "")
	require.NoError(t, err)
	assert.Equal(t, "order_1", res.Order.ID)
	assert.Equal(t, domain.PaymentStatusPending, res.Payment.Status)

	stored := h.store.GetTrip(trip.ID)
	require.Len(t, stored.Payments, 1)
	assert.Equal(t, "order_1", stored.Payments[0].Gateway.RazorpayOrderID)
	assert.False(t, h.locks.Held(trip.ID))
}

func TestRazorpay_OrderSupersededBySettlementIsKept(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")
	h.razorpay.OnCreate = func() {
		_, err := h.payments.SettleOffline(ctx, tenant, trip.ID, d("400"), "")
		require.NoError(t, err)
	}

	res, err := h.payments.CreateRazorpayOrder(ctx, tenant, trip.ID, d("400"), "")
	assert.ErrorIs(t, err, domain.ErrOverpayment)
	require.NotNil(t, res)
	assert.Equal(t, "order_1", res.Order.ID)
	assert.Equal(t, domain.PaymentStatusFailed, res.Payment.Status)
	assert.Contains(t, res.Payment.FailureReason, "superseded")

	stored := h.store.GetTrip(trip.ID)
	require.Len(t, stored.Payments, 2)
	assert.True(t, stored.IsPaid)
	assert.True(t, stored.PaidAmount.Equal(d("400")))
	p, err := stored.Payment(res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_1", p.Gateway.RazorpayOrderID)
	assert.Equal(t, domain.EventPaymentFailed, stored.LastEvent().Name)
}

func TestRazorpay_GatewayErrorRecordedAfterSettlement(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")
	h.razorpay.CreateError = ErrGatewayDown
	h.razorpay.OnCreate = func() {
		_, err := h.payments.SettleOffline(ctx, tenant, trip.ID, d("400"), "")
		require.NoError(t, err)
	}

	res, err := h.payments.CreateRazorpayOrder(ctx, tenant, trip.ID, d("400"), "")
	assert.ErrorIs(t, err, service.ErrGatewayFailure)
	require.NotNil(t, res)
	assert.Equal(t, domain.PaymentStatusFailed, res.Payment.Status)
	assert.Len(t, h.store.GetTrip(trip.ID).Payments, 2)
}

func TestRazorpay_LockNeverFreedReturnsConflict(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	trip := h.book(t, tenant, "400")
	h.locks.Hold(trip.ID)

	_, err := h.payments.CreateRazorpayOrder(context.Background(), tenant, trip.ID, d("400"), "")
	assert.ErrorIs(t, err, service.ErrConflict)
	assert.EqualValues(t, 1, h.razorpay.CreateCount)
	assert.EqualValues(t, 3, h.locks.AcquireCount)
	assert.Zero(t, h.store.CountPayments())
}

func TestStripe_IntentRecordedAfterBriefLockContention(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	trip := h.book(t, tenant, "400")
	h.locks.BusyAttempts = 2

	res, err := h.payments.CreateStripeIntent(context.Background(), tenant, trip.ID, d("400"), "")
	require.NoError(t, err)
	assert.Equal(t, "pi_1", res.IntentID)
	require.Len(t, h.store.GetTrip(trip.ID).Payments, 1)
}

func TestGatewaysDisabled(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")
	payments := service.NewPaymentService(nil, h.store, nil, nil, "INR", nil)

	_, err := payments.CreateRazorpayOrder(ctx, tenant, trip.ID, d("400"), "")
	assert.ErrorIs(t, err, service.ErrGatewayDisabled)
	_, err = payments.VerifyRazorpayPayment(ctx, tenant, "order_1", "pay_1", "sig")
	assert.ErrorIs(t, err, service.ErrGatewayDisabled)
	_, err = payments.CreateStripeIntent(ctx, tenant, trip.ID, d("400"), "")
	assert.ErrorIs(t, err, service.ErrGatewayDisabled)
	_, err = payments.ConfirmStripeIntent(ctx, tenant, "pi_1")
	assert.ErrorIs(t, err, service.ErrGatewayDisabled)
}

// ──────────────────────────────────────────────
// 7. STRIPE
// ──────────────────────────────────────────────

func TestStripe_IntentLifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")

	intent, err := h.payments.CreateStripeIntent(ctx, tenant, trip.ID, d("400"), "")
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.IntentID)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)
	assert.Equal(t, domain.PaymentStatusPending, intent.Payment.Status)
	assert.Equal(t, "pi_1", intent.Payment.Gateway.StripePaymentIntentID)

	_, err = h.payments.ConfirmStripeIntent(ctx, tenant, "pi_1")
	assert.ErrorIs(t, err, service.ErrPaymentNotSettled)

	h.stripe.SetStatus("pi_1", "succeeded", "ch_1")
	res, err := h.payments.ConfirmStripeIntent(ctx, tenant, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccess, res.Payment.Status)
	assert.Equal(t, "ch_1", res.Payment.Gateway.StripeChargeID)
	assert.True(t, res.Trip.IsPaid)

	again, err := h.payments.ConfirmStripeIntent(ctx, tenant, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccess, again.Payment.Status)
}

func TestStripe_DeclinedIntentFailsPayment(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")
	_, err := h.payments.CreateStripeIntent(ctx, tenant, trip.ID, d("400"), "")
	require.NoError(t, err)

	h.stripe.Decline("pi_1", "Your card was declined.")
	res, err := h.payments.ConfirmStripeIntent(ctx, tenant, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, res.Payment.Status)
	assert.Equal(t, "Your card was declined.", res.Payment.FailureReason)
	assert.False(t, res.Trip.IsPaid)
}

func TestStripe_LookupErrorLeavesPaymentPending(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")
	intent, err := h.payments.CreateStripeIntent(ctx, tenant, trip.ID, d("400"), "")
	require.NoError(t, err)

	h.stripe.GetError = ErrGatewayDown
	_, err = h.payments.ConfirmStripeIntent(ctx, tenant, "pi_1")
	assert.ErrorIs(t, err, service.ErrGatewayFailure)

	p, err := h.store.GetTrip(trip.ID).Payment(intent.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, p.Status)
}
