package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/bookingdesk/internal/apperror"
	"github.com/avstrong/bookingdesk/internal/booking"
)

var checkIn = time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)

func newBooking(status booking.Status, paymentStatus booking.PaymentStatus) *booking.Booking {
	//nolint:exhaustruct
	return &booking.Booking{
		ID:            "bk-1",
		CheckIn:       checkIn,
		CheckOut:      checkIn.Add(48 * time.Hour),
		Status:        status,
		PaymentStatus: paymentStatus,
	}
}

func TestStatusInfo(t *testing.T) {
	assert.Equal(t, "Pending confirmation", booking.StatusPendingConfirmation.String())
	assert.Equal(t, "purple", booking.StatusOverdue.Info().Color)
	assert.Empty(t, booking.StatusCancelled.Info().Actions)
	assert.Equal(t, "Unknown (9)", booking.Status(9).String())

	assert.True(t, booking.StatusCompleted.Valid())
	assert.False(t, booking.StatusOverdue.Valid())
	assert.Equal(t, "Deposit paid", booking.PaymentDepositPaid.String())
}

func TestEffectiveStatus(t *testing.T) {
	b := newBooking(booking.StatusInUse, booking.PaymentDepositPaid)

	assert.Equal(t, booking.StatusInUse, b.EffectiveStatus(b.CheckOut))
	assert.Equal(t, booking.StatusOverdue, b.EffectiveStatus(b.CheckOut.Add(time.Minute)))

	b.Status = booking.StatusConfirmed
	assert.Equal(t, booking.StatusConfirmed, b.EffectiveStatus(b.CheckOut.Add(time.Hour)))
}

func TestGuard_CancelNotice(t *testing.T) {
	b := newBooking(booking.StatusConfirmed, booking.PaymentUnpaid)
	policy := booking.DefaultPolicy()

	err := b.Guard(booking.ActionCancel, checkIn.Add(-(23*time.Hour + 59*time.Minute)), policy)
	require.Error(t, err)
	assert.NotNil(t, apperror.IsPolicy(err))

	require.NoError(t, b.Guard(booking.ActionCancel, checkIn.Add(-25*time.Hour), policy))

	err = b.Guard(booking.ActionCancel, checkIn.Add(-24*time.Hour), policy)
	assert.NotNil(t, apperror.IsPolicy(err))
}

func TestGuard_RescheduleBuffer(t *testing.T) {
	b := newBooking(booking.StatusPendingConfirmation, booking.PaymentUnpaid)
	policy := booking.Policy{RescheduleBuffer: 72 * time.Hour}

	require.NoError(t, b.Guard(booking.ActionReschedule, checkIn.Add(-73*time.Hour), policy))
	assert.NotNil(t, apperror.IsPolicy(b.Guard(booking.ActionReschedule, checkIn.Add(-48*time.Hour), policy)))

	b.Status = booking.StatusInUse
	assert.NotNil(t, apperror.IsPolicy(b.Guard(booking.ActionReschedule, checkIn.Add(-100*time.Hour), policy)))
}

func TestGuard_CheckOutRequiresPaid(t *testing.T) {
	b := newBooking(booking.StatusInUse, booking.PaymentDepositPaid)
	now := checkIn.Add(time.Hour)

	assert.NotNil(t, apperror.IsPolicy(b.Guard(booking.ActionCheckOut, now, booking.DefaultPolicy())))

	b.PaymentStatus = booking.PaymentPaid
	require.NoError(t, b.Guard(booking.ActionCheckOut, now, booking.DefaultPolicy()))
}

func TestActions(t *testing.T) {
	policy := booking.DefaultPolicy()

	tests := []struct {
		name    string
		status  booking.Status
		payment booking.PaymentStatus
		now     time.Time
		want    []booking.Action
	}{
		{
			name:    "pending well ahead",
			status:  booking.StatusPendingConfirmation,
			payment: booking.PaymentUnpaid,
			now:     checkIn.Add(-72 * time.Hour),
			want: []booking.Action{
				booking.ActionConfirm, booking.ActionCancel, booking.ActionReschedule,
				booking.ActionPay, booking.ActionForceCancel,
			},
		},
		{
			name:    "confirmed inside the notice period",
			status:  booking.StatusConfirmed,
			payment: booking.PaymentPaid,
			now:     checkIn.Add(-time.Hour),
			want:    []booking.Action{booking.ActionCheckIn, booking.ActionForceCancel},
		},
		{
			name:    "overdue and paid",
			status:  booking.StatusInUse,
			payment: booking.PaymentPaid,
			now:     checkIn.Add(72 * time.Hour),
			want:    []booking.Action{booking.ActionCheckOut, booking.ActionForceCancel},
		},
		{
			name:    "cancelled",
			status:  booking.StatusCancelled,
			payment: booking.PaymentRefunded,
			now:     checkIn.Add(-72 * time.Hour),
			want:    []booking.Action{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBooking(tt.status, tt.payment)
			assert.Equal(t, tt.want, b.Actions(tt.now, policy))
		})
	}
}
