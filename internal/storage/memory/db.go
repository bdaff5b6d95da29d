package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/avstrong/bookingdesk/internal/apperror"
	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/logger"
	"github.com/avstrong/bookingdesk/internal/loyalty"
)

type Config struct {
	L     *logger.Logger
	Tiers *loyalty.TierTable
}

// DB is an in-process owner of record. Every write carries an idempotency key
// and a key seen before turns the write into a no-op.
type DB struct {
	mu              sync.Mutex
	l               *logger.Logger
	tiers           *loyalty.TierTable
	bookings        map[string]*booking.Booking
	loyalty         map[string]*loyalty.Record
	idempotencyKeys map[string]string
}

func New(conf Config) *DB {
	//nolint:exhaustruct
	return &DB{
		l:               conf.L,
		tiers:           conf.Tiers,
		bookings:        make(map[string]*booking.Booking),
		loyalty:         make(map[string]*loyalty.Record),
		idempotencyKeys: make(map[string]string),
	}
}

func (db *DB) SaveBooking(_ context.Context, b *booking.Booking) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.bookings[b.ID]; ok {
		return fmt.Errorf("booking %s: %w", b.ID, ErrDuplicateID)
	}

	db.bookings[b.ID] = cloneBooking(b)

	return nil
}

func (db *DB) SaveLoyalty(_ context.Context, rec *loyalty.Record) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.loyalty[rec.CustomerID]; ok {
		return fmt.Errorf("loyalty of %s: %w", rec.CustomerID, ErrDuplicateID)
	}

	r := *rec
	r.Tier = db.tiers.Lookup(r.Points).Name
	db.loyalty[r.CustomerID] = &r

	return nil
}

func (db *DB) GetBooking(_ context.Context, id string) (*booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, apperror.ErrNotFound)
	}

	return cloneBooking(b), nil
}

func (db *DB) GetLoyalty(_ context.Context, customerID string) (*loyalty.Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.loyalty[customerID]
	if !ok {
		return nil, fmt.Errorf("loyalty of %s: %w", customerID, apperror.ErrNotFound)
	}

	r := *rec

	return &r, nil
}

func (db *DB) UpdateStatus(ctx context.Context, id string, change booking.StatusChange) error {
	return db.mutateBooking(ctx, "update status", id, func(b *booking.Booking) error {
		return b.ApplyStatusChange(change)
	})
}

func (db *DB) CreateInvoice(ctx context.Context, id string, invoice booking.InvoiceRequest) error {
	return db.mutateBooking(ctx, "create invoice", id, func(b *booking.Booking) error {
		if err := b.ApplyInvoice(invoice); err != nil {
			return err
		}

		earned := 0
		if invoice.PaymentStatus == booking.PaymentPaid {
			earned = invoice.EarnedPoints
		}

		if invoice.RedeemPoints == 0 && earned == 0 {
			return nil
		}

		rec, ok := db.loyalty[b.Customer.ID]
		if !ok {
			//nolint:exhaustruct
			rec = &loyalty.Record{CustomerID: b.Customer.ID}
			db.loyalty[b.Customer.ID] = rec
		}

		*rec = db.tiers.Settle(*rec, invoice.RedeemPoints, earned)

		return nil
	})
}

func (db *DB) Reschedule(ctx context.Context, id string, req booking.RescheduleRequest) error {
	return db.mutateBooking(ctx, "reschedule", id, func(b *booking.Booking) error {
		return b.ApplyReschedule(req)
	})
}

func (db *DB) AdjustPoints(ctx context.Context, customerID string, adj loyalty.Adjustment) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	key, ok := booking.IdempotencyKeyFromContext(ctx)
	if !ok {
		return booking.ErrIdempotencyKey
	}

	if db.seen(key, "adjust points "+customerID) {
		return nil
	}

	rec, ok := db.loyalty[customerID]
	if !ok {
		return fmt.Errorf("loyalty of %s: %w", customerID, apperror.ErrNotFound)
	}

	updated, err := db.tiers.Apply(*rec, adj)
	if err != nil {
		return err
	}

	*rec = updated
	db.idempotencyKeys[key] = "adjust points " + customerID

	return nil
}

// mutateBooking applies fn to a copy of the booking and stores the copy only
// when fn succeeds.
func (db *DB) mutateBooking(ctx context.Context, op, id string, fn func(b *booking.Booking) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	key, ok := booking.IdempotencyKeyFromContext(ctx)
	if !ok {
		return booking.ErrIdempotencyKey
	}

	scope := op + " " + id

	if db.seen(key, scope) {
		db.l.LogInfo("Skipping %s with already applied idempotency key %s", scope, key)

		return nil
	}

	current, ok := db.bookings[id]
	if !ok {
		return fmt.Errorf("booking %s: %w", id, apperror.ErrNotFound)
	}

	b := cloneBooking(current)

	if err := fn(b); err != nil {
		return err
	}

	db.bookings[id] = b
	db.idempotencyKeys[key] = scope

	return nil
}

func (db *DB) seen(key, scope string) bool {
	applied, ok := db.idempotencyKeys[key]

	return ok && applied == scope
}

func cloneBooking(b *booking.Booking) *booking.Booking {
	c := *b
	c.Rooms = append([]booking.Room(nil), b.Rooms...)
	c.Services = append([]booking.Service(nil), b.Services...)

	if b.HoldExpiresAt != nil {
		expiry := *b.HoldExpiresAt
		c.HoldExpiresAt = &expiry
	}

	return &c
}
