package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/bookingdesk/internal/apperror"
	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/logger"
	"github.com/avstrong/bookingdesk/internal/loyalty"
	"github.com/avstrong/bookingdesk/internal/payment"
	"github.com/avstrong/bookingdesk/internal/storage/sqlstore"
)

var checkIn = time.Date(2026, 8, 14, 14, 0, 0, 0, time.UTC)

func newRepository(t *testing.T) *sqlstore.Repository {
	t.Helper()

	db, err := sqlstore.Open(sqlstore.Conf{Driver: sqlstore.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, sqlstore.AutoMigrate(db))

	tiers, err := loyalty.NewTierTable(loyalty.DefaultTiers())
	require.NoError(t, err)

	repo := sqlstore.NewRepository(db, logger.Discard(), tiers)

	base, discounted := 1_200_000.0, 1_000_000.0
	expiry := checkIn.Add(-48 * time.Hour)

	//nolint:exhaustruct
	require.NoError(t, repo.SaveBooking(context.Background(), &booking.Booking{
		ID:       "bk-1",
		Code:     "BK-SQL00001",
		CheckIn:  checkIn,
		CheckOut: checkIn.Add(46 * time.Hour),
		Customer: booking.Customer{ID: "cust-1", Name: "Hoa Nguyen", Email: "hoa@example.com", Phone: "+84 90 000 0000"},
		Rooms: []booking.Room{
			{RoomID: "r-1", Number: "301", BasePrice: &base, DiscountedPrice: &discounted},
			{RoomID: "r-2", Number: "302", BasePrice: &base},
		},
		Services:      []booking.Service{{ServiceID: "s-1", Name: "Airport pickup", UnitPrice: 300_000, Quantity: 1}},
		Promotion:     &payment.Promotion{Code: "AUTUMN", Type: payment.PromotionPercent, Value: 15},
		Status:        booking.StatusPendingConfirmation,
		PaymentStatus: booking.PaymentUnpaid,
		HoldExpiresAt: &expiry,
	}))

	require.NoError(t, repo.SaveLoyalty(context.Background(), &loyalty.Record{CustomerID: "cust-1", Points: 60, Tier: ""}))

	return repo
}

func withKey(key string) context.Context {
	return booking.NewContextWithIdempotencyKey(context.Background(), key)
}

func TestRepository_RoundTrip(t *testing.T) {
	repo := newRepository(t)

	b, err := repo.GetBooking(context.Background(), "bk-1")
	require.NoError(t, err)

	assert.Equal(t, "BK-SQL00001", b.Code)
	assert.True(t, b.CheckIn.Equal(checkIn))
	assert.Equal(t, "Hoa Nguyen", b.Customer.Name)
	require.Len(t, b.Rooms, 2)
	assert.Equal(t, "301", b.Rooms[0].Number)
	require.NotNil(t, b.Rooms[0].DiscountedPrice)
	assert.Nil(t, b.Rooms[1].DiscountedPrice)
	require.Len(t, b.Services, 1)
	require.NotNil(t, b.Promotion)
	assert.Equal(t, "AUTUMN (-15%)", b.Promotion.Label())
	require.NotNil(t, b.HoldExpiresAt)

	nights, err := b.Nights()
	require.NoError(t, err)
	assert.Equal(t, 2, nights)

	rec, err := repo.GetLoyalty(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "Silver", rec.Tier)

	_, err = repo.GetBooking(context.Background(), "bk-404")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = repo.GetLoyalty(context.Background(), "cust-404")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo := newRepository(t)

	//nolint:exhaustruct
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), "bk-1", booking.StatusChange{Status: booking.StatusConfirmed}),
		booking.ErrIdempotencyKey)

	//nolint:exhaustruct
	require.NoError(t, repo.UpdateStatus(withKey("k-1"), "bk-1", booking.StatusChange{Status: booking.StatusConfirmed}))

	b, err := repo.GetBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, b.Status)
	assert.Nil(t, b.HoldExpiresAt)

	//nolint:exhaustruct
	err = repo.UpdateStatus(withKey("k-2"), "bk-404", booking.StatusChange{Status: booking.StatusConfirmed})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestRepository_InvoiceOncePerKey(t *testing.T) {
	repo := newRepository(t)

	invoice := booking.InvoiceRequest{
		AmountPaid:    3_000_000,
		DepositAmount: 0,
		PaymentMethod: "card",
		RedeemPoints:  40,
		Services: []booking.Service{
			{ServiceID: "s-2", Name: "Late checkout", UnitPrice: 200_000, Quantity: 1},
			{ServiceID: "s-3", Name: "Spa", UnitPrice: 450_000, Quantity: 2},
		},
		PaymentStatus: booking.PaymentPaid,
		Option:        payment.OptionFull,
		EarnedPoints:  7,
	}

	require.NoError(t, repo.CreateInvoice(withKey("pay-1"), "bk-1", invoice))
	require.NoError(t, repo.CreateInvoice(withKey("pay-1"), "bk-1", invoice))

	b, err := repo.GetBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.InDelta(t, 3_000_000, b.AmountPaid, 0.001)
	assert.Equal(t, booking.PaymentPaid, b.PaymentStatus)
	require.Len(t, b.Services, 2)
	assert.Equal(t, "Late checkout", b.Services[0].Name)

	rec, err := repo.GetLoyalty(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, 27, rec.Points)
}

func TestRepository_RejectedWriteLeavesNoTrace(t *testing.T) {
	repo := newRepository(t)

	//nolint:exhaustruct
	err := repo.CreateInvoice(withKey("pay-1"), "bk-1", booking.InvoiceRequest{
		AmountPaid:    -1,
		PaymentMethod: "card",
		PaymentStatus: booking.PaymentPaid,
		Option:        payment.OptionFull,
	})
	assert.NotNil(t, apperror.IsValidation(err))

	//nolint:exhaustruct
	require.NoError(t, repo.CreateInvoice(withKey("pay-1"), "bk-1", booking.InvoiceRequest{
		AmountPaid:    500_000,
		DepositAmount: 500_000,
		PaymentMethod: "card",
		PaymentStatus: booking.PaymentDepositPaid,
		Option:        payment.OptionDeposit,
	}))

	b, err := repo.GetBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, booking.PaymentDepositPaid, b.PaymentStatus)
	assert.Len(t, b.Services, 1)
}

func TestRepository_Reschedule(t *testing.T) {
	repo := newRepository(t)
	in := checkIn.Add(30 * 24 * time.Hour)

	err := repo.Reschedule(withKey("r-1"), "bk-1", booking.RescheduleRequest{CheckIn: in, CheckOut: in.Add(-time.Hour)})
	assert.ErrorIs(t, err, apperror.ErrInvalidDateRange)

	require.NoError(t, repo.Reschedule(withKey("r-2"), "bk-1", booking.RescheduleRequest{CheckIn: in, CheckOut: in.Add(72 * time.Hour)}))

	b, err := repo.GetBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.True(t, b.CheckIn.Equal(in))
	assert.True(t, b.CheckOut.Equal(in.Add(72*time.Hour)))
}

func TestRepository_AdjustPoints(t *testing.T) {
	repo := newRepository(t)

	require.NoError(t, repo.AdjustPoints(withKey("a-1"), "cust-1", loyalty.Adjustment{PointsDelta: 45, Reason: "complaint"}))

	rec, err := repo.GetLoyalty(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, 105, rec.Points)
	assert.Equal(t, "Gold", rec.Tier)

	err = repo.AdjustPoints(withKey("a-2"), "cust-1", loyalty.Adjustment{PointsDelta: -106, Reason: "reversal"})
	assert.NotNil(t, apperror.IsValidation(err))

	err = repo.AdjustPoints(withKey("a-3"), "cust-404", loyalty.Adjustment{PointsDelta: 5, Reason: "welcome"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := sqlstore.Open(sqlstore.Conf{Driver: "oracle", DSN: "x"})
	assert.ErrorIs(t, err, sqlstore.ErrUnknownDriver)
}
