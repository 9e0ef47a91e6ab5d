package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
	"ridedispatch/internal/service"
)

// ──────────────────────────────────────────────
// 8. REPORTS AND RECEIPTS
// ──────────────────────────────────────────────

// seedReport books a 400 trip paid 250 in cash, a 1000 trip with a pending
// UPI payment of 100 and a cancelled 500 trip.
func seedReport(t *testing.T, h *harness) (paid, pending, cancelled *domain.Trip) {
	t.Helper()
	ctx := context.Background()

	paid = h.book(t, tenant, "400")
	_, err := h.payments.SettleOffline(ctx, tenant, paid.ID, d("250"), "")
	require.NoError(t, err)

	pending = h.book(t, tenant, "1000")
	_, err = h.payments.RecordPayment(ctx, tenant, pending.ID, service.RecordPaymentRequest{
		Amount: d("100"), Method: domain.PaymentMethodUPI,
	})
	require.NoError(t, err)

	cancelled = h.book(t, tenant, "500")
	_, err = h.trips.Cancel(ctx, tenant, cancelled.ID, "duplicate")
	require.NoError(t, err)
	return paid, pending, cancelled
}

func TestCommissionSummary(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	seedReport(t, h)
	h.book(t, "acme", "9999")

	summary, err := h.reports.CommissionSummary(context.Background(), repository.ReportFilter{TenantID: tenant})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TripCount, "cancelled trips are excluded")
	assert.True(t, summary.TotalAmount.Equal(d("1400")), "total %s", summary.TotalAmount)
	assert.True(t, summary.PaidAmount.Equal(d("250")), "paid %s", summary.PaidAmount)

	require.Len(t, summary.Roles, 4)
	driver := summary.Roles[0]
	assert.Equal(t, domain.RoleDriver, driver.Role)
	assert.True(t, driver.Total.Equal(d("1050")), "driver total %s", driver.Total)
	assert.True(t, driver.Paid.Equal(d("187.50")), "driver paid %s", driver.Paid)
	assert.True(t, driver.Due.Equal(d("862.50")), "driver due %s", driver.Due)

	dueSum := d("0")
	for _, r := range summary.Roles {
		dueSum = dueSum.Add(r.Due)
	}
	assert.True(t, dueSum.Equal(d("1150")), "due sums to total minus paid, got %s", dueSum)
}

func TestCommissionSummary_DriverFilter(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	seedReport(t, h)

	summary, err := h.reports.CommissionSummary(context.Background(), repository.ReportFilter{TenantID: tenant, DriverID: "driver-2"})
	require.NoError(t, err)
	assert.Zero(t, summary.TripCount)
	assert.True(t, summary.TotalAmount.IsZero())
}

func TestPaymentSummary(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	seedReport(t, h)

	rows, err := h.reports.PaymentSummary(context.Background(), repository.ReportFilter{TenantID: tenant})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, domain.PaymentMethodCash, rows[0].Method)
	assert.Equal(t, domain.PaymentStatusSuccess, rows[0].Status)
	assert.Equal(t, 1, rows[0].Count)
	assert.True(t, rows[0].Amount.Equal(d("250")))

	assert.Equal(t, domain.PaymentMethodUPI, rows[1].Method)
	assert.Equal(t, domain.PaymentStatusPending, rows[1].Status)
	assert.True(t, rows[1].Amount.Equal(d("100")))
}

func TestReports_InvalidRange(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	now := time.Now().UTC()
	filter := repository.ReportFilter{TenantID: tenant, From: now, To: now.Add(-48 * time.Hour)}

	_, err := h.reports.CommissionSummary(context.Background(), filter)
	assert.ErrorIs(t, err, service.ErrInvalidRange)
	_, err = h.reports.PaymentSummary(context.Background(), filter)
	assert.ErrorIs(t, err, service.ErrInvalidRange)
}

func TestDayRange(t *testing.T) {
	t.Parallel()

	from, to := service.DayRange(
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 1, 23, 59, 59, 999999999, time.UTC), to)

	from, to = service.DayRange(time.Time{}, time.Time{})
	assert.True(t, from.IsZero())
	assert.True(t, to.IsZero())
}

func TestGenerateReceipt(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	paid, _, _ := seedReport(t, h)

	receipt, err := h.receipts.GenerateReceipt(ctx, tenant, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, paid.TransactionNumber, receipt.TransactionNumber)
	assert.True(t, receipt.Outstanding.Equal(d("150")))
	assert.False(t, receipt.IsPaid)
	assert.True(t, receipt.RoleDue.Driver.Equal(d("112.50")))
	require.Len(t, receipt.Payments, 1)

	text := h.receipts.FormatReceipt(receipt)
	assert.Contains(t, text, "TRIP RECEIPT")
	assert.Contains(t, text, paid.TransactionNumber)
	assert.Contains(t, text, "OUTSTANDING:     150.00")
	assert.Contains(t, text, "CASH")

	_, err = h.receipts.GenerateReceipt(ctx, "acme", paid.ID)
	assert.ErrorIs(t, err, service.ErrTripNotFound)
}
