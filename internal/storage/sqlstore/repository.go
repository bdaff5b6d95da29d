package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/avstrong/bookingdesk/internal/apperror"
	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/logger"
	"github.com/avstrong/bookingdesk/internal/loyalty"
)

// Repository is the SQL owner of record. Writes run in one transaction each
// and are recorded under their idempotency key.
type Repository struct {
	db    *gorm.DB
	l     *logger.Logger
	tiers *loyalty.TierTable
}

func NewRepository(db *gorm.DB, l *logger.Logger, tiers *loyalty.TierTable) *Repository {
	return &Repository{db: db, l: l, tiers: tiers}
}

func (r *Repository) SaveBooking(ctx context.Context, b *booking.Booking) error {
	if err := r.db.WithContext(ctx).Create(fromDomain(b)).Error; err != nil {
		return fmt.Errorf("insert booking %s: %w", b.ID, err)
	}

	return nil
}

func (r *Repository) SaveLoyalty(ctx context.Context, rec *loyalty.Record) error {
	//nolint:exhaustruct
	m := &loyaltyModel{
		CustomerID: rec.CustomerID,
		Points:     rec.Points,
		Tier:       r.tiers.Lookup(rec.Points).Name,
	}

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("insert loyalty of %s: %w", rec.CustomerID, err)
	}

	return nil
}

func (r *Repository) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	m, err := loadBooking(r.db.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}

	return m.toDomain(), nil
}

func (r *Repository) GetLoyalty(ctx context.Context, customerID string) (*loyalty.Record, error) {
	var m loyaltyModel

	err := r.db.WithContext(ctx).First(&m, "customer_id = ?", customerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("loyalty of %s: %w", customerID, apperror.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("select loyalty of %s: %w", customerID, err)
	}

	return m.toDomain(), nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, change booking.StatusChange) error {
	return r.mutate(ctx, "update status "+id, func(tx *gorm.DB, _ string) error {
		m, b, err := lockBooking(tx, id)
		if err != nil {
			return err
		}

		if err := b.ApplyStatusChange(change); err != nil {
			return err
		}

		return tx.Model(m).Updates(map[string]any{
			"status":          int(b.Status),
			"payment_status":  int(b.PaymentStatus),
			"hold_expires_at": b.HoldExpiresAt,
		}).Error
	})
}

func (r *Repository) CreateInvoice(ctx context.Context, id string, invoice booking.InvoiceRequest) error {
	return r.mutate(ctx, "create invoice "+id, func(tx *gorm.DB, key string) error {
		m, b, err := lockBooking(tx, id)
		if err != nil {
			return err
		}

		if err := b.ApplyInvoice(invoice); err != nil {
			return err
		}

		err = tx.Model(m).Updates(map[string]any{
			"amount_paid":    b.AmountPaid,
			"deposit_amount": b.DepositAmount,
			"payment_status": int(b.PaymentStatus),
		}).Error
		if err != nil {
			return fmt.Errorf("update booking: %w", err)
		}

		if invoice.Services != nil {
			if err := replaceServices(tx, id, invoice.Services); err != nil {
				return err
			}
		}

		//nolint:exhaustruct
		err = tx.Create(&invoiceModel{
			ID:             uuid.NewString(),
			BookingID:      id,
			IdempotencyKey: key,
			AmountPaid:     invoice.AmountPaid,
			DepositAmount:  invoice.DepositAmount,
			PaymentMethod:  invoice.PaymentMethod,
			PaymentOption:  string(invoice.Option),
			RedeemPoints:   invoice.RedeemPoints,
			EarnedPoints:   invoice.EarnedPoints,
		}).Error
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}

		earned := 0
		if invoice.PaymentStatus == booking.PaymentPaid {
			earned = invoice.EarnedPoints
		}

		if invoice.RedeemPoints == 0 && earned == 0 {
			return nil
		}

		return r.settlePoints(tx, b.Customer.ID, invoice.RedeemPoints, earned)
	})
}

func (r *Repository) Reschedule(ctx context.Context, id string, req booking.RescheduleRequest) error {
	return r.mutate(ctx, "reschedule "+id, func(tx *gorm.DB, _ string) error {
		m, b, err := lockBooking(tx, id)
		if err != nil {
			return err
		}

		if err := b.ApplyReschedule(req); err != nil {
			return err
		}

		return tx.Model(m).Updates(map[string]any{
			"check_in":  b.CheckIn,
			"check_out": b.CheckOut,
		}).Error
	})
}

func (r *Repository) AdjustPoints(ctx context.Context, customerID string, adj loyalty.Adjustment) error {
	return r.mutate(ctx, "adjust points "+customerID, func(tx *gorm.DB, _ string) error {
		var m loyaltyModel

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "customer_id = ?", customerID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("loyalty of %s: %w", customerID, apperror.ErrNotFound)
		}

		if err != nil {
			return fmt.Errorf("select loyalty of %s: %w", customerID, err)
		}

		rec, err := r.tiers.Apply(*m.toDomain(), adj)
		if err != nil {
			return err
		}

		return tx.Model(&m).Updates(map[string]any{"points": rec.Points, "tier": rec.Tier}).Error
	})
}

// mutate runs fn in a transaction unless the idempotency key of ctx was
// already applied to the same scope.
func (r *Repository) mutate(ctx context.Context, scope string, fn func(tx *gorm.DB, key string) error) error {
	key, ok := booking.IdempotencyKeyFromContext(ctx)
	if !ok {
		return booking.ErrIdempotencyKey
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var applied appliedRequestModel

		err := tx.First(&applied, "idempotency_key = ?", key).Error
		if err == nil && applied.Scope == scope {
			r.l.LogInfo("Skipping %s with already applied idempotency key %s", scope, key)

			return nil
		}

		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("select applied request: %w", err)
		}

		if err := fn(tx, key); err != nil {
			return err
		}

		//nolint:exhaustruct
		return tx.Save(&appliedRequestModel{IdempotencyKey: key, Scope: scope}).Error
	})
	if err != nil {
		return fmt.Errorf("%s: %w", scope, err)
	}

	return nil
}

func (r *Repository) settlePoints(tx *gorm.DB, customerID string, redeemed, earned int) error {
	var m loyaltyModel

	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "customer_id = ?", customerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		//nolint:exhaustruct
		m = loyaltyModel{CustomerID: customerID}
	} else if err != nil {
		return fmt.Errorf("select loyalty of %s: %w", customerID, err)
	}

	rec := r.tiers.Settle(*m.toDomain(), redeemed, earned)
	m.Points = rec.Points
	m.Tier = rec.Tier

	return tx.Save(&m).Error
}

func loadBooking(db *gorm.DB, id string, lock bool) (*bookingModel, error) {
	q := db.
		Preload("Rooms", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("position") })

	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var m bookingModel

	err := q.First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("booking %s: %w", id, apperror.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("select booking %s: %w", id, err)
	}

	return &m, nil
}

func lockBooking(tx *gorm.DB, id string) (*bookingModel, *booking.Booking, error) {
	m, err := loadBooking(tx, id, true)
	if err != nil {
		return nil, nil, err
	}

	return m, m.toDomain(), nil
}

func replaceServices(tx *gorm.DB, bookingID string, services []booking.Service) error {
	if err := tx.Where("booking_id = ?", bookingID).Delete(&serviceModel{}).Error; err != nil {
		return fmt.Errorf("delete services: %w", err)
	}

	models := serviceModels(bookingID, services)
	if len(models) == 0 {
		return nil
	}

	if err := tx.Create(&models).Error; err != nil {
		return fmt.Errorf("insert services: %w", err)
	}

	return nil
}
