package loyalty_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/bookingdesk/internal/apperror"
	"github.com/avstrong/bookingdesk/internal/loyalty"
	"github.com/avstrong/bookingdesk/internal/payment"
)

func defaultTable(t *testing.T) *loyalty.TierTable {
	t.Helper()

	tt, err := loyalty.NewTierTable(loyalty.DefaultTiers())
	require.NoError(t, err)

	return tt
}

func TestTierLookupIsTotal(t *testing.T) {
	tt := defaultTable(t)

	assert.Equal(t, "Silver", tt.Lookup(0).Name)
	assert.Equal(t, "Silver", tt.Lookup(99).Name)
	assert.Equal(t, "Gold", tt.Lookup(100).Name)
	assert.Equal(t, "Platinum", tt.Lookup(999).Name)
	assert.Equal(t, "Diamond", tt.Lookup(1000).Name)
	assert.Equal(t, "Diamond", tt.Lookup(1_000_000).Name)
	assert.Equal(t, "Silver", tt.Lookup(-5).Name)
}

func TestNewTierTable_SortsAndValidates(t *testing.T) {
	tt, err := loyalty.NewTierTable([]loyalty.Tier{
		{Name: "Gold", MinPoints: 50, Multiplier: 1.5},
		{Name: "Silver", MinPoints: 0, Multiplier: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "Silver", tt.Tiers()[0].Name)

	_, err = loyalty.NewTierTable(nil)
	assert.True(t, errors.Is(err, loyalty.ErrInvalidTierTable))

	_, err = loyalty.NewTierTable([]loyalty.Tier{{Name: "Gold", MinPoints: 10, Multiplier: 1}})
	assert.True(t, errors.Is(err, loyalty.ErrInvalidTierTable))

	_, err = loyalty.NewTierTable([]loyalty.Tier{
		{Name: "Silver", MinPoints: 0, Multiplier: 1},
		{Name: "Gold", MinPoints: 0, Multiplier: 2},
	})
	assert.True(t, errors.Is(err, loyalty.ErrInvalidTierTable))
}

func TestEarned(t *testing.T) {
	assert.Equal(t, 0, loyalty.Earned(0))
	assert.Equal(t, 0, loyalty.Earned(499_999))
	assert.Equal(t, 1, loyalty.Earned(500_000))
	assert.Equal(t, 4, loyalty.Earned(2_200_000))
	assert.Equal(t, 0, loyalty.Earned(-1))

	assert.Equal(t, 8, loyalty.EarnedForTier(2_200_000, loyalty.Tier{Name: "Diamond", Multiplier: 2}))
	assert.Equal(t, 4, loyalty.EarnedForTier(2_200_000, loyalty.Tier{Name: "Gold", Multiplier: 1.2}))
}

func TestRedeem_AllIsClampedToHalfOfTotal(t *testing.T) {
	points, err := loyalty.Redeem(loyalty.ModeAll, 0, 500, 2_200_000)
	require.NoError(t, err)
	assert.Equal(t, 110, points)

	q, err := payment.Calculate(payment.Input{
		Rooms:          []payment.RoomLine{{RoomID: "a", BasePrice: ptr(1_000_000)}},
		Nights:         2,
		RedeemedPoints: points,
	})
	require.NoError(t, err)
	assert.InDelta(t, 1_100_000, q.PointsDiscount, 1e-6)
	assert.InDelta(t, 1_100_000, q.PayableTotal, 1e-6)
}

func TestRedeem_RespectsBothCaps(t *testing.T) {
	cases := []struct {
		name      string
		mode      loyalty.Mode
		requested int
		available int
		total     float64
		want      int
	}{
		{"none", loyalty.ModeNone, 40, 100, 2_200_000, 0},
		{"partial under caps", loyalty.ModePartial, 50, 100, 2_200_000, 50},
		{"partial over balance", loyalty.ModePartial, 90, 60, 2_200_000, 60},
		{"partial over amount cap", loyalty.ModePartial, 200, 500, 2_200_000, 110},
		{"all limited by balance", loyalty.ModeAll, 0, 30, 2_200_000, 30},
		{"all with nothing", loyalty.ModeAll, 0, 0, 2_200_000, 0},
		{"all on tiny total", loyalty.ModeAll, 0, 100, 15_000, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := loyalty.Redeem(tc.mode, tc.requested, tc.available, tc.total)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.LessOrEqual(t, float64(got)*payment.PointValue, 0.5*tc.total)
			assert.LessOrEqual(t, got, tc.available)
		})
	}
}

func TestRedeem_InvalidInput(t *testing.T) {
	_, err := loyalty.Redeem(loyalty.ModePartial, -1, 10, 1_000_000)
	assert.NotNil(t, apperror.IsValidation(err))

	_, err = loyalty.Redeem("double", 1, 10, 1_000_000)
	assert.NotNil(t, apperror.IsValidation(err))
}

func TestApplyAdjustment(t *testing.T) {
	tt := defaultTable(t)
	rec := loyalty.Record{CustomerID: "c1", Points: 90, Tier: "Silver"}

	got, err := tt.Apply(rec, loyalty.Adjustment{PointsDelta: 15, Reason: "birthday bonus"})
	require.NoError(t, err)
	assert.Equal(t, 105, got.Points)
	assert.Equal(t, "Gold", got.Tier)

	got, err = tt.Apply(got, loyalty.Adjustment{PointsDelta: -100, Reason: "chargeback"})
	require.NoError(t, err)
	assert.Equal(t, 5, got.Points)
	assert.Equal(t, "Silver", got.Tier)
}

func TestApplyAdjustment_Rejections(t *testing.T) {
	tt := defaultTable(t)
	rec := loyalty.Record{CustomerID: "c1", Points: 10}

	_, err := tt.Apply(rec, loyalty.Adjustment{PointsDelta: 0, Reason: "noop"})
	ve := apperror.IsValidation(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields(), "pointsDelta")

	_, err = tt.Apply(rec, loyalty.Adjustment{PointsDelta: 5, Reason: "   "})
	ve = apperror.IsValidation(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields(), "reason")

	_, err = tt.Apply(rec, loyalty.Adjustment{PointsDelta: -11, Reason: "too much"})
	assert.NotNil(t, apperror.IsValidation(err))
}

func ptr(v float64) *float64 {
	return &v
}

func TestSettle(t *testing.T) {
	tt, err := loyalty.NewTierTable(loyalty.DefaultTiers())
	require.NoError(t, err)

	rec := tt.Settle(loyalty.Record{CustomerID: "c-1", Points: 120, Tier: "Gold"}, 110, 4)
	assert.Equal(t, 14, rec.Points)
	assert.Equal(t, "Silver", rec.Tier)

	rec = tt.Settle(loyalty.Record{CustomerID: "c-1", Points: 5, Tier: "Silver"}, 50, 0)
	assert.Zero(t, rec.Points)
}
