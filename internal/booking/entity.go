package booking

import (
	"fmt"
	"time"

	"github.com/avstrong/bookingdesk/internal/apperror"
	"github.com/avstrong/bookingdesk/internal/payment"
)

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Room struct {
	RoomID          string   `json:"roomId"`
	Number          string   `json:"number"`
	BasePrice       *float64 `json:"basePrice"`
	DiscountedPrice *float64 `json:"discountedPrice,omitempty"`
}

type Service struct {
	ServiceID string  `json:"serviceId" validate:"required"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
	Quantity  int     `json:"quantity"  validate:"gte=0"`
}

// Booking is the in-memory projection of a reservation held by the owner of
// record.
type Booking struct {
	ID            string             `json:"id"`
	Code          string             `json:"code"`
	CheckIn       time.Time          `json:"checkIn"`
	CheckOut      time.Time          `json:"checkOut"`
	Customer      Customer           `json:"customer"`
	Rooms         []Room             `json:"rooms"`
	Services      []Service          `json:"services"`
	Promotion     *payment.Promotion `json:"promotion,omitempty"`
	Status        Status             `json:"status"`
	PaymentStatus PaymentStatus      `json:"paymentStatus"`
	DepositAmount float64            `json:"depositAmount"`
	AmountPaid    float64            `json:"amountPaid"`
	HoldExpiresAt *time.Time         `json:"holdExpiresAt,omitempty"`
}

func (b *Booking) Nights() (int, error) {
	return payment.Nights(b.CheckIn, b.CheckOut)
}

func (b *Booking) paymentInput(services []Service) (payment.Input, error) {
	nights, err := b.Nights()
	if err != nil {
		return payment.Input{}, err
	}

	rooms := make([]payment.RoomLine, 0, len(b.Rooms))
	for _, r := range b.Rooms {
		rooms = append(rooms, payment.RoomLine{
			RoomID:          r.RoomID,
			BasePrice:       r.BasePrice,
			DiscountedPrice: r.DiscountedPrice,
		})
	}

	lines := make([]payment.ServiceLine, 0, len(services))
	for _, s := range services {
		lines = append(lines, payment.ServiceLine{
			ServiceID: s.ServiceID,
			Name:      s.Name,
			UnitPrice: s.UnitPrice,
			Quantity:  s.Quantity,
		})
	}

	//nolint:exhaustruct
	return payment.Input{
		Rooms:     rooms,
		Nights:    nights,
		Services:  lines,
		Promotion: b.Promotion,
	}, nil
}

type DepositHandling string

const (
	DepositRefund  DepositHandling = "refund"
	DepositPartial DepositHandling = "partial"
	DepositKeep    DepositHandling = "keep"
)

// StatusChange is the update request sent to the owner of record.
type StatusChange struct {
	Status          Status          `json:"status"`
	PaymentStatus   *PaymentStatus  `json:"paymentStatus,omitempty"`
	DepositHandling DepositHandling `json:"depositHandling,omitempty"`
	RefundAmount    *float64        `json:"refundAmount,omitempty"`
}

type InvoiceRequest struct {
	AmountPaid    float64        `json:"amountPaid"`
	DepositAmount float64        `json:"depositAmount"`
	PaymentMethod string         `json:"paymentMethod"`
	RedeemPoints  int            `json:"redeemPoints"`
	Services      []Service      `json:"services"`
	PaymentStatus PaymentStatus  `json:"paymentStatus"`
	Option        payment.Option `json:"option"`
	// EarnedPoints is credited by the owner once the booking is fully paid.
	EarnedPoints int `json:"earnedPoints,omitempty"`
}

type RescheduleRequest struct {
	CheckIn  time.Time `json:"checkIn"`
	CheckOut time.Time `json:"checkOut"`
}

type ForceCancelRequest struct {
	DepositHandling DepositHandling `json:"depositHandling"`
	Amount          float64         `json:"amount"`
}

// ApplyStatusChange is how a store of record applies a status change. A
// cancelled booking is never left paid.
func (b *Booking) ApplyStatusChange(change StatusChange) error {
	if !change.Status.Valid() {
		return apperror.Validation("status", fmt.Sprintf("unknown status %d", change.Status))
	}

	if change.PaymentStatus != nil && !change.PaymentStatus.Valid() {
		return apperror.Validation("paymentStatus", fmt.Sprintf("unknown payment status %d", *change.PaymentStatus))
	}

	b.Status = change.Status

	if change.PaymentStatus != nil {
		b.PaymentStatus = *change.PaymentStatus
	}

	if b.Status == StatusCancelled && b.PaymentStatus == PaymentPaid {
		b.PaymentStatus = PaymentRefunded
	}

	if b.Status != StatusPendingConfirmation {
		b.HoldExpiresAt = nil
	}

	return nil
}

func (b *Booking) ApplyInvoice(invoice InvoiceRequest) error {
	ve := apperror.NewValidation()

	if invoice.AmountPaid < 0 {
		ve.Add("amountPaid", "must not be negative")
	}

	if invoice.DepositAmount < 0 {
		ve.Add("depositAmount", "must not be negative")
	}

	if invoice.PaymentStatus != PaymentDepositPaid && invoice.PaymentStatus != PaymentPaid {
		ve.Add("paymentStatus", "an invoice leaves the booking deposit paid or paid")
	}

	if invoice.PaymentStatus == PaymentDepositPaid && invoice.RedeemPoints != 0 {
		ve.Add("redeemPoints", "a deposit invoice redeems no points")
	}

	if err := ve.OrNil(); err != nil {
		return err
	}

	b.AmountPaid += invoice.AmountPaid
	b.DepositAmount = invoice.DepositAmount
	b.PaymentStatus = invoice.PaymentStatus

	if invoice.Services != nil {
		b.Services = invoice.Services
	}

	return nil
}

func (b *Booking) ApplyReschedule(req RescheduleRequest) error {
	if _, err := payment.Nights(req.CheckIn, req.CheckOut); err != nil {
		return err
	}

	b.CheckIn = req.CheckIn.UTC()
	b.CheckOut = req.CheckOut.UTC()

	return nil
}
