package boost_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/boost"
)

var now = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

func rooms() *booking.Booking {
	base := 1_000_000.0

	//nolint:exhaustruct
	return &booking.Booking{
		Rooms: []booking.Room{
			{RoomID: "r-1", Number: "101", BasePrice: &base},
			{RoomID: "r-2", Number: "102"},
		},
	}
}

func TestPromoCode_Apply(t *testing.T) {
	b := rooms()
	promo := boost.PromoCode{Code: "AUTUMN", DiscountPercentage: 15, ValidThrough: now.Add(time.Hour)}

	require.NoError(t, promo.Apply(b, now))

	require.NotNil(t, b.Rooms[0].DiscountedPrice)
	assert.InDelta(t, 850_000, *b.Rooms[0].DiscountedPrice, 0.001)
	assert.Nil(t, b.Rooms[1].DiscountedPrice)
	assert.Equal(t, "AUTUMN (-15%)", b.Promotion.Label())
}

func TestFlatDiscount_Apply(t *testing.T) {
	b := rooms()
	promo := boost.FlatDiscount{Code: "WEEKDAY", Amount: 1_200_000, ValidThrough: now}

	require.NoError(t, promo.Apply(b, now))
	assert.Zero(t, *b.Rooms[0].DiscountedPrice)
	assert.Equal(t, "WEEKDAY (-1,200,000)", b.Promotion.Label())
}

func TestStrategy_Expired(t *testing.T) {
	strategies := []boost.Strategy{
		&boost.PromoCode{Code: "SPRING", DiscountPercentage: 10, ValidThrough: now.Add(-time.Second)},
		&boost.FlatDiscount{Code: "OLD", Amount: 1, ValidThrough: now.Add(-time.Second)},
	}

	for _, s := range strategies {
		b := rooms()
		require.ErrorIs(t, s.Apply(b, now), boost.ErrPromoCodeExpired)
		assert.Nil(t, b.Promotion)
		assert.Nil(t, b.Rooms[0].DiscountedPrice)
	}
}
