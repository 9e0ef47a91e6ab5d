package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridedispatch/internal/app"
	"ridedispatch/internal/handler"
	"ridedispatch/internal/logging"
)

// ──────────────────────────────────────────────
// 9. HTTP API
// ──────────────────────────────────────────────

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(h *harness) *gin.Engine {
	return app.NewRouter(app.RouterDeps{
		BookingHandler: handler.NewBookingHandler(h.bookings, h.trips, h.receipts),
		TripHandler:    handler.NewTripHandler(h.trips),
		PaymentHandler: handler.NewPaymentHandler(h.payments),
		PolicyHandler:  handler.NewPolicyHandler(h.policies),
		ReportHandler:  handler.NewReportHandler(h.reports),
		Logger:         logging.Discard(),
		DefaultTenant:  tenant,
	})
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAPI_BookingLifecycleAndSettlement(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	r := newRouter(h)

	w := do(t, r, http.MethodPost, "/v1/bookings", map[string]any{
		"customer_id":          "customer-1",
		"driver_id":            "driver-1",
		"dispatcher_id":        "dispatcher-1",
		"vehicle_id":           "vehicle-1",
		"pickup_location":      "Airport",
		"destination_location": "Central Station",
		"ride_duration_hours":  2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	trip := decode[handler.TripResponse](t, w)
	assert.Equal(t, "800.00", trip.TotalAmount)
	assert.Equal(t, "600.00", trip.Shares.Driver)
	assert.Equal(t, "REQUESTED", trip.Status)

	w = do(t, r, http.MethodPatch, "/v1/bookings/"+trip.ID+"/status?status=ENROUTE_TO_PICKUP", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "skipping a step")

	w = do(t, r, http.MethodPatch, "/v1/bookings/"+trip.ID+"/status?status=DRIVER_ACCEPTED&description=on+the+way", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tr := decode[handler.TransitionResponse](t, w)
	assert.True(t, tr.Applied)
	assert.Equal(t, "REQUESTED", tr.FromStatus)
	assert.Equal(t, "DRIVER_ACCEPTED", tr.ToStatus)

	w = do(t, r, http.MethodPatch, "/v1/bookings/"+trip.ID+"/payment?paid_amount=900", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "overpayment")

	w = do(t, r, http.MethodPatch, "/v1/bookings/"+trip.ID+"/payment?paid_amount=800&payment_method=UPI", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decode[handler.PaymentResultResponse](t, w)
	assert.Equal(t, "SUCCESS", paid.Payment.Status)
	assert.Equal(t, "UPI", paid.Payment.Method)
	assert.True(t, paid.Trip.IsPaid)
	assert.Equal(t, "0.00", paid.Trip.Outstanding)

	w = do(t, r, http.MethodGet, "/v1/bookings/"+trip.ID+"/receipt?format=text", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), trip.TransactionNumber)
}

func TestAPI_ErrorMapping(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	r := newRouter(h)
	trip := h.book(t, tenant, "400")

	w := do(t, r, http.MethodGet, "/v1/bookings/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings/"+trip.ID, nil)
	req.Header.Set("X-Tenant-ID", "acme")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code, "other tenant")

	w = do(t, r, http.MethodPost, "/v1/policies", map[string]any{
		"driver_percent": "75", "dispatcher_percent": "20", "admin_percent": "2", "super_admin_percent": "2",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	h.locks.Hold(trip.ID)
	w = do(t, r, http.MethodPost, "/v1/bookings/"+trip.ID+"/advance", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode[handler.ErrorResponse](t, w)
	assert.True(t, body.Retryable)

	w = do(t, r, http.MethodGet, "/v1/reports/commissions?from=2026-03-02&to=2026-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_GatewayFailureReturnsAttempt(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	r := newRouter(h)
	trip := h.book(t, tenant, "400")
	h.razorpay.CreateError = ErrGatewayDown

	w := do(t, r, http.MethodPost, "/v1/payments/razorpay/order", map[string]any{
		"trip_id": trip.ID, "amount": "400",
	})
	require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
	body := decode[handler.GatewayErrorResponse](t, w)
	assert.Equal(t, "FAILED", body.Payment.Status)
	assert.Equal(t, "RAZORPAY", body.Payment.Method)
}
