package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avstrong/bookingdesk/internal/apperror"
	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/boost"
	"github.com/avstrong/bookingdesk/internal/idgen"
	"github.com/avstrong/bookingdesk/internal/logger"
	"github.com/avstrong/bookingdesk/internal/loyalty"
)

type storage interface {
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	SaveBooking(ctx context.Context, b *booking.Booking) error
	SaveLoyalty(ctx context.Context, rec *loyalty.Record) error
}

const (
	day        = 24 * time.Hour
	holdWindow = 15 * time.Minute
	deposit    = 500_000
)

func price(v float64) *float64 {
	return &v
}

// at returns the hotel check-in (14:00) or check-out (12:00) time of the
// day offset from today.
func at(now time.Time, days, hour int) time.Time {
	y, m, d := now.UTC().Date()

	return time.Date(y, m, d+days, hour, 0, 0, 0, time.UTC)
}

type seed struct {
	booking *booking.Booking
	promo   boost.Strategy
}

//nolint:funlen,gomnd,exhaustruct
func demoBookings(now time.Time) []seed {
	lan := booking.Customer{ID: "cust-1001", Name: "Lan Pham", Email: "lan.pham@example.com", Phone: "+84 90 123 4567"}
	david := booking.Customer{ID: "cust-1002", Name: "David Kim", Email: "david.kim@example.com"}
	amira := booking.Customer{ID: "cust-1003", Name: "Amira Haddad", Email: "amira.haddad@example.com"}

	holdExpiry := now.UTC().Add(holdWindow)
	validThrough := now.UTC().Add(30 * day)

	return []seed{
		{
			booking: &booking.Booking{
				ID:            "bk-1001",
				CheckIn:       at(now, 7, 14),
				CheckOut:      at(now, 9, 12),
				Customer:      lan,
				Rooms:         []booking.Room{{RoomID: "deluxe-301", Number: "301", BasePrice: price(1_200_000)}},
				Services:      []booking.Service{{ServiceID: "svc-breakfast", Name: "Breakfast", UnitPrice: 150_000, Quantity: 2}},
				Status:        booking.StatusPendingConfirmation,
				PaymentStatus: booking.PaymentUnpaid,
				HoldExpiresAt: &holdExpiry,
			},
			promo: &boost.PromoCode{Code: "AUTUMN", DiscountPercentage: 15, ValidThrough: validThrough},
		},
		{
			booking: &booking.Booking{
				ID:       "bk-1002",
				CheckIn:  at(now, 3, 14),
				CheckOut: at(now, 6, 12),
				Customer: david,
				Rooms: []booking.Room{
					{RoomID: "std-204", Number: "204", BasePrice: price(800_000)},
					{RoomID: "std-205", Number: "205", BasePrice: price(800_000)},
				},
				Status:        booking.StatusConfirmed,
				PaymentStatus: booking.PaymentDepositPaid,
				DepositAmount: deposit,
				AmountPaid:    deposit,
			},
			promo: &boost.FlatDiscount{Code: "WEEKDAY", Amount: 100_000, ValidThrough: validThrough},
		},
		{
			booking: &booking.Booking{
				ID:       "bk-1003",
				CheckIn:  at(now, -3, 14),
				CheckOut: at(now, -1, 12),
				Customer: lan,
				Rooms:    []booking.Room{{RoomID: "suite-501", Number: "501", BasePrice: price(2_500_000)}},
				Services: []booking.Service{
					{ServiceID: "svc-airport", Name: "Airport pickup", UnitPrice: 300_000, Quantity: 1},
					{ServiceID: "svc-spa", Name: "Spa", UnitPrice: 450_000, Quantity: 2},
				},
				Status:        booking.StatusInUse,
				PaymentStatus: booking.PaymentPaid,
				AmountPaid:    7_590_000,
			},
		},
		{
			booking: &booking.Booking{
				ID:            "bk-1004",
				CheckIn:       at(now, -10, 14),
				CheckOut:      at(now, -8, 12),
				Customer:      amira,
				Rooms:         []booking.Room{{RoomID: "std-110", Number: "110", BasePrice: price(750_000)}},
				Status:        booking.StatusCompleted,
				PaymentStatus: booking.PaymentPaid,
				AmountPaid:    1_650_000,
			},
		},
		{
			booking: &booking.Booking{
				ID:            "bk-1005",
				CheckIn:       at(now, 12, 14),
				CheckOut:      at(now, 13, 12),
				Customer:      amira,
				Rooms:         []booking.Room{{RoomID: "deluxe-302", Number: "302", BasePrice: price(1_200_000)}},
				Status:        booking.StatusCancelled,
				PaymentStatus: booking.PaymentRefunded,
				DepositAmount: deposit,
				AmountPaid:    deposit,
			},
		},
		{
			booking: &booking.Booking{
				ID:            "bk-1006",
				CheckIn:       at(now, 20, 14),
				CheckOut:      at(now, 22, 12),
				Customer:      david,
				Rooms:         []booking.Room{{RoomID: "family-402", Number: "402"}},
				Status:        booking.StatusPendingConfirmation,
				PaymentStatus: booking.PaymentUnpaid,
			},
		},
	}
}

//nolint:gomnd,exhaustruct
func demoLoyalty() []*loyalty.Record {
	return []*loyalty.Record{
		{CustomerID: "cust-1001", Points: 420},
		{CustomerID: "cust-1002", Points: 60},
		{CustomerID: "cust-1003", Points: 1_150},
	}
}

// Up seeds demo bookings and loyalty balances relative to now. Booking codes
// are random, ids are fixed so the demo can be driven by hand. A store that
// already holds the first demo booking is left untouched.
func Up(ctx context.Context, l *logger.Logger, storage storage, now time.Time) error {
	seeds := demoBookings(now)

	_, err := storage.GetBooking(ctx, seeds[0].booking.ID)
	if err == nil {
		l.LogInfo("Demo data is already present")

		return nil
	}

	if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("look up demo booking %s: %w", seeds[0].booking.ID, err)
	}

	codes := idgen.New()

	for _, s := range seeds {
		s.booking.Code = codes.BookingCode()

		if s.promo != nil {
			if err := s.promo.Apply(s.booking, now); err != nil {
				return fmt.Errorf("price demo booking %s: %w", s.booking.ID, err)
			}
		}

		if err := storage.SaveBooking(ctx, s.booking); err != nil {
			return fmt.Errorf("save demo booking %s to storage: %w", s.booking.ID, err)
		}

		l.LogDebug("Demo booking %s (%s) has been saved", s.booking.ID, s.booking.Code)
	}

	for _, rec := range demoLoyalty() {
		if err := storage.SaveLoyalty(ctx, rec); err != nil {
			return fmt.Errorf("save loyalty of %s to storage: %w", rec.CustomerID, err)
		}
	}

	l.LogInfo("Demo data has been seeded")

	return nil
}
