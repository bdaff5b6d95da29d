package loyalty

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/avstrong/bookingdesk/internal/apperror"
	"github.com/avstrong/bookingdesk/internal/payment"
)

const (
	// EarnUnit is the amount of grand total that earns one point.
	EarnUnit = 500_000
	// RedemptionCap is the share of the grand total points may cover.
	RedemptionCap = 0.5
)

var ErrInvalidTierTable = errors.New("invalid tier table")

type Tier struct {
	Name       string  `json:"name"        yaml:"name"`
	MinPoints  int     `json:"minPoints"   yaml:"min_points"`
	Multiplier float64 `json:"multiplier"  yaml:"multiplier"`
}

// TierTable is ordered by MinPoints ascending and always starts at zero points.
type TierTable struct {
	tiers []Tier
}

func DefaultTiers() []Tier {
	return []Tier{
		{Name: "Silver", MinPoints: 0, Multiplier: 1.0},
		{Name: "Gold", MinPoints: 100, Multiplier: 1.2},   //nolint:gomnd
		{Name: "Platinum", MinPoints: 500, Multiplier: 1.5}, //nolint:gomnd
		{Name: "Diamond", MinPoints: 1000, Multiplier: 2.0}, //nolint:gomnd
	}
}

func NewTierTable(tiers []Tier) (*TierTable, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("no tiers configured: %w", ErrInvalidTierTable)
	}

	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinPoints < sorted[j].MinPoints
	})

	if sorted[0].MinPoints != 0 {
		return nil, fmt.Errorf("lowest tier %q starts at %d points instead of 0: %w",
			sorted[0].Name, sorted[0].MinPoints, ErrInvalidTierTable)
	}

	for i := 1; i < len(sorted); i++ {
		if sorted[i].MinPoints == sorted[i-1].MinPoints {
			return nil, fmt.Errorf("tiers %q and %q share a threshold: %w",
				sorted[i-1].Name, sorted[i].Name, ErrInvalidTierTable)
		}
	}

	for _, t := range sorted {
		if t.Multiplier <= 0 {
			return nil, fmt.Errorf("tier %q has a non-positive multiplier: %w", t.Name, ErrInvalidTierTable)
		}
	}

	return &TierTable{tiers: sorted}, nil
}

// Lookup picks the tier with the greatest threshold not above points.
func (tt *TierTable) Lookup(points int) Tier {
	tier := tt.tiers[0]

	for _, t := range tt.tiers[1:] {
		if t.MinPoints > points {
			break
		}

		tier = t
	}

	return tier
}

func (tt *TierTable) Tiers() []Tier {
	out := make([]Tier, len(tt.tiers))
	copy(out, tt.tiers)

	return out
}

// Earned previews the points a payment of grandTotal will credit once the
// owner of record confirms it.
func Earned(grandTotal float64) int {
	if grandTotal <= 0 {
		return 0
	}

	return int(math.Floor(grandTotal / EarnUnit))
}

func EarnedForTier(grandTotal float64, tier Tier) int {
	return int(math.Floor(float64(Earned(grandTotal)) * tier.Multiplier))
}

type Mode string

const (
	ModeNone    Mode = "none"
	ModePartial Mode = "partial"
	ModeAll     Mode = "all"
)

// MaxRedeemable is the most points that may be spent on a booking of grandTotal.
func MaxRedeemable(available int, grandTotal float64) int {
	byAmount := int(math.Floor(RedemptionCap * grandTotal / payment.PointValue))

	return max(0, min(available, byAmount))
}

// Redeem resolves how many points to spend. Requests above the caps are clamped.
func Redeem(mode Mode, requested, available int, grandTotal float64) (int, error) {
	switch mode {
	case ModeNone, "":
		return 0, nil
	case ModePartial:
		if requested < 0 {
			return 0, apperror.Validation("redeemPoints", "must not be negative")
		}

		return min(requested, MaxRedeemable(available, grandTotal)), nil
	case ModeAll:
		return MaxRedeemable(available, grandTotal), nil
	default:
		return 0, apperror.Validation("redeemMode", fmt.Sprintf("unknown redemption mode %q", mode))
	}
}

type Record struct {
	CustomerID string `json:"customerId"`
	Points     int    `json:"points"`
	Tier       string `json:"tier"`
}

type Adjustment struct {
	PointsDelta int    `json:"pointsDelta"`
	Reason      string `json:"reason"`
}

func (a Adjustment) Validate(currentPoints int) error {
	ve := apperror.NewValidation()

	if a.PointsDelta == 0 {
		ve.Add("pointsDelta", "must not be zero")
	}

	if strings.TrimSpace(a.Reason) == "" {
		ve.Add("reason", "provide a reason for the adjustment")
	}

	if currentPoints+a.PointsDelta < 0 {
		ve.Add("pointsDelta", fmt.Sprintf("balance of %d points cannot go below zero", currentPoints))
	}

	return ve.OrNil()
}

// Apply returns the record after the adjustment with its tier recomputed.
func (tt *TierTable) Apply(rec Record, adj Adjustment) (Record, error) {
	if err := adj.Validate(rec.Points); err != nil {
		return rec, err
	}

	rec.Points += adj.PointsDelta
	rec.Tier = tt.Lookup(rec.Points).Name

	return rec, nil
}

// Settle applies the points movement of a payment: redeemed points leave the
// balance, earned points join it.
func (tt *TierTable) Settle(rec Record, redeemed, earned int) Record {
	rec.Points = max(0, rec.Points-redeemed) + max(0, earned)
	rec.Tier = tt.Lookup(rec.Points).Name

	return rec
}
