package records_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/bookingdesk/internal/apperror"
	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/clients/records"
	"github.com/avstrong/bookingdesk/internal/logger"
	"github.com/avstrong/bookingdesk/internal/loyalty"
)

func newClient(t *testing.T, h http.HandlerFunc) *records.Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return records.New(records.Conf{L: logger.Discard(), BaseURL: srv.URL + "/", Token: "svc-token", Timeout: time.Second})
}

func TestClient_GetBooking(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/bookings/bk-7", r.URL.Path)
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"bk-7","code":"BK-7","status":2,"paymentStatus":1,
			"checkIn":"2026-09-01T14:00:00Z","checkOut":"2026-09-03T12:00:00Z",
			"rooms":[{"roomId":"r-1","number":"12","basePrice":750000}]}`))
	})

	b, err := c.GetBooking(context.Background(), "bk-7")
	require.NoError(t, err)

	assert.Equal(t, booking.StatusConfirmed, b.Status)
	assert.Equal(t, booking.PaymentDepositPaid, b.PaymentStatus)
	require.Len(t, b.Rooms, 1)
	require.NotNil(t, b.Rooms[0].BasePrice)
	assert.InDelta(t, 750_000, *b.Rooms[0].BasePrice, 0.001)
}

func TestClient_NotFound(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.GetLoyalty(context.Background(), "cust-9")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	rf := apperror.IsRemote(err)
	require.NotNil(t, rf)
	assert.Equal(t, http.StatusNotFound, rf.StatusCode)
}

func TestClient_ServerErrorIsRemoteFailure(t *testing.T) {
	calls := 0
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++

		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"maintenance window"}`))
	})

	//nolint:exhaustruct
	err := c.UpdateStatus(context.Background(), "bk-1", booking.StatusChange{Status: booking.StatusConfirmed})

	rf := apperror.IsRemote(err)
	require.NotNil(t, rf)
	assert.Equal(t, http.StatusServiceUnavailable, rf.StatusCode)
	assert.Equal(t, "PATCH /bookings/bk-1/status", rf.Op)
	assert.Contains(t, err.Error(), "maintenance window")
	assert.Equal(t, 1, calls)
}

func TestClient_WritesCarryIdempotencyKey(t *testing.T) {
	var got loyalty.Adjustment

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/customers/cust-1/loyalty/adjustments", r.URL.Path)
		assert.Equal(t, "adj-1", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusNoContent)
	})

	ctx := booking.NewContextWithIdempotencyKey(context.Background(), "adj-1")

	require.NoError(t, c.AdjustPoints(ctx, "cust-1", loyalty.Adjustment{PointsDelta: -5, Reason: "typo"}))
	assert.Equal(t, -5, got.PointsDelta)
	assert.Equal(t, "typo", got.Reason)
}

func TestClient_InvoicePayload(t *testing.T) {
	var got map[string]any

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings/bk-1/invoices", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
	})

	//nolint:exhaustruct
	require.NoError(t, c.CreateInvoice(context.Background(), "bk-1", booking.InvoiceRequest{
		AmountPaid:    1_100_000,
		PaymentMethod: "card",
		RedeemPoints:  110,
		Services:      []booking.Service{},
		PaymentStatus: booking.PaymentPaid,
	}))

	for _, field := range []string{"amountPaid", "depositAmount", "paymentMethod", "redeemPoints", "services"} {
		assert.Contains(t, got, field)
	}
}

func TestClient_TransportFailure(t *testing.T) {
	c := records.New(records.Conf{L: logger.Discard(), BaseURL: "http://127.0.0.1:1", Token: "", Timeout: time.Second})

	_, err := c.GetBooking(context.Background(), "bk-1")

	rf := apperror.IsRemote(err)
	require.NotNil(t, rf)
	assert.Zero(t, rf.StatusCode)
}
