package boost

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/payment"
)

var ErrPromoCodeExpired = errors.New("promo code expired")

// Strategy prices the rooms of a booking. The booking keeps the promotion
// only as a label, the saving lives in the discounted room prices.
type Strategy interface {
	Apply(b *booking.Booking, now time.Time) error
}

type PromoCode struct {
	Code               string
	DiscountPercentage float64
	ValidThrough       time.Time
}

func (p *PromoCode) Apply(b *booking.Booking, now time.Time) error {
	if now.After(p.ValidThrough) {
		return fmt.Errorf("promo code %s: %w", p.Code, ErrPromoCodeExpired)
	}

	discount(b, func(base float64) float64 {
		return base - base*p.DiscountPercentage/100 //nolint:gomnd
	})

	b.Promotion = &payment.Promotion{Code: p.Code, Type: payment.PromotionPercent, Value: p.DiscountPercentage}

	return nil
}

// FlatDiscount takes a fixed amount off the nightly price of every room.
type FlatDiscount struct {
	Code         string
	Amount       float64
	ValidThrough time.Time
}

func (f *FlatDiscount) Apply(b *booking.Booking, now time.Time) error {
	if now.After(f.ValidThrough) {
		return fmt.Errorf("promo code %s: %w", f.Code, ErrPromoCodeExpired)
	}

	discount(b, func(base float64) float64 {
		return math.Max(0, base-f.Amount)
	})

	b.Promotion = &payment.Promotion{Code: f.Code, Type: payment.PromotionAmount, Value: f.Amount}

	return nil
}

// Rooms without a base price are left alone, the calculator reports them.
func discount(b *booking.Booking, price func(base float64) float64) {
	for i := range b.Rooms {
		if b.Rooms[i].BasePrice == nil {
			continue
		}

		p := math.Round(price(*b.Rooms[i].BasePrice))
		b.Rooms[i].DiscountedPrice = &p
	}
}
