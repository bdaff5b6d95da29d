package payment

import (
	"fmt"
	"math"
	"time"

	"github.com/avstrong/bookingdesk/internal/apperror"
)

const (
	TaxRate       = 0.10
	DepositAmount = 500_000
	PointValue    = 10_000
)

type Option string

const (
	OptionFull    Option = "full"
	OptionDeposit Option = "deposit"
)

type RoomLine struct {
	RoomID          string
	BasePrice       *float64
	DiscountedPrice *float64
}

type ServiceLine struct {
	ServiceID string
	Name      string
	UnitPrice float64
	Quantity  int
}

type Input struct {
	Rooms          []RoomLine
	Nights         int
	Services       []ServiceLine
	Promotion      *Promotion
	Option         Option
	RedeemedPoints int
}

type Quote struct {
	Nights         int     `json:"nights"`
	BaseRoomTotal  float64 `json:"baseRoomTotal"`
	RoomSubtotal   float64 `json:"roomSubtotal"`
	DiscountAmount float64 `json:"discountAmount"`
	PromotionLabel string  `json:"promotionLabel,omitempty"`
	ServicesTotal  float64 `json:"servicesTotal"`
	Tax            float64 `json:"tax"`
	GrandTotal     float64 `json:"grandTotal"`
	RedeemedPoints int     `json:"redeemedPoints"`
	PointsDiscount float64 `json:"pointsDiscount"`
	PayableTotal   float64 `json:"payableTotal"`
	Option         Option  `json:"option"`
	DepositAmount  float64 `json:"depositAmount"`
	AmountDue      float64 `json:"amountDue"`
}

// Nights counts started days between check-in and check-out.
func Nights(checkIn, checkOut time.Time) (int, error) {
	if !checkOut.After(checkIn) {
		return 0, fmt.Errorf("check-out %s is not after check-in %s: %w",
			checkOut.Format(time.RFC3339), checkIn.Format(time.RFC3339), apperror.ErrInvalidDateRange)
	}

	return int(math.Ceil(checkOut.Sub(checkIn).Hours() / 24)), nil //nolint:gomnd
}

func (in *Input) validate() error {
	ve := apperror.NewValidation()

	switch in.Option {
	case OptionFull, OptionDeposit:
	case "":
		in.Option = OptionFull
	default:
		ve.Add("option", fmt.Sprintf("unknown payment option %q", in.Option))
	}

	if in.RedeemedPoints < 0 {
		ve.Add("redeemPoints", "must not be negative")
	}

	for _, s := range in.Services {
		if s.UnitPrice < 0 {
			ve.Add("services.unitPrice", fmt.Sprintf("service %s: unit price must not be negative", s.ServiceID))
		}

		if s.Quantity < 0 {
			ve.Add("services.quantity", fmt.Sprintf("service %s: quantity must not be negative", s.ServiceID))
		}
	}

	return ve.OrNil()
}

// Calculate derives every money field of a booking from its line items.
func Calculate(in Input) (Quote, error) {
	if in.Nights < 1 {
		return Quote{}, fmt.Errorf("nights must be at least 1, got %d: %w", in.Nights, apperror.ErrInvalidDateRange)
	}

	if err := in.validate(); err != nil {
		return Quote{}, err
	}

	//nolint:exhaustruct
	q := Quote{
		Nights: in.Nights,
		Option: in.Option,
	}

	nights := float64(in.Nights)

	for _, room := range in.Rooms {
		if room.BasePrice == nil {
			return Quote{}, fmt.Errorf("room %s: %w", room.RoomID, apperror.ErrMissingPrice)
		}

		base := *room.BasePrice
		effective := base

		if room.DiscountedPrice != nil && *room.DiscountedPrice < base {
			effective = *room.DiscountedPrice
		}

		q.BaseRoomTotal += base * nights
		q.RoomSubtotal += effective * nights
	}

	q.DiscountAmount = math.Max(0, q.BaseRoomTotal-q.RoomSubtotal)

	if in.Promotion != nil {
		q.PromotionLabel = in.Promotion.Label()
	}

	for _, s := range in.Services {
		q.ServicesTotal += s.UnitPrice * float64(s.Quantity)
	}

	q.Tax = TaxRate * (q.RoomSubtotal + q.ServicesTotal)
	q.GrandTotal = q.RoomSubtotal + q.ServicesTotal + q.Tax

	if q.Option == OptionDeposit && DepositAmount > q.GrandTotal {
		return Quote{}, apperror.Validation("option", "deposit exceeds the grand total")
	}

	return q.WithRedeemedPoints(in.RedeemedPoints), nil
}

// WithRedeemedPoints re-derives the payable total and the amount due for a new
// number of redeemed points. Capping the points is the caller's job.
func (q Quote) WithRedeemedPoints(points int) Quote {
	q.RedeemedPoints = points
	q.PointsDiscount = float64(points) * PointValue
	q.PayableTotal = math.Max(0, q.GrandTotal-q.PointsDiscount)

	if q.Option == OptionDeposit {
		q.DepositAmount = DepositAmount
		q.AmountDue = DepositAmount

		return q
	}

	q.DepositAmount = 0
	q.AmountDue = math.Round(q.PayableTotal)

	return q
}
