package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

type header struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"publishedAt"`
	IdempotencyKey string    `json:"idempotencyKey,omitempty"`
}

func newHeader(idempotencyKey string) header {
	return header{
		ID:             watermill.NewUUID(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type BookingStatusChanged struct {
	Header        header `json:"header"`
	BookingID     string `json:"bookingId"`
	Action        string `json:"action"`
	FromStatus    int    `json:"fromStatus"`
	ToStatus      int    `json:"toStatus"`
	PaymentStatus int    `json:"paymentStatus"`
}

func NewBookingStatusChanged(idempotencyKey, bookingID, action string, from, to, paymentStatus int) BookingStatusChanged {
	return BookingStatusChanged{
		Header:        newHeader(idempotencyKey),
		BookingID:     bookingID,
		Action:        action,
		FromStatus:    from,
		ToStatus:      to,
		PaymentStatus: paymentStatus,
	}
}

type InvoiceCreated struct {
	Header        header  `json:"header"`
	BookingID     string  `json:"bookingId"`
	AmountPaid    float64 `json:"amountPaid"`
	DepositAmount float64 `json:"depositAmount"`
	RedeemPoints  int     `json:"redeemPoints"`
	PaymentMethod string  `json:"paymentMethod"`
}

func NewInvoiceCreated(
	idempotencyKey, bookingID, paymentMethod string,
	amountPaid, depositAmount float64,
	redeemPoints int,
) InvoiceCreated {
	return InvoiceCreated{
		Header:        newHeader(idempotencyKey),
		BookingID:     bookingID,
		AmountPaid:    amountPaid,
		DepositAmount: depositAmount,
		RedeemPoints:  redeemPoints,
		PaymentMethod: paymentMethod,
	}
}

type LoyaltyPointsAdjusted struct {
	Header      header `json:"header"`
	CustomerID  string `json:"customerId"`
	PointsDelta int    `json:"pointsDelta"`
	Reason      string `json:"reason"`
}

func NewLoyaltyPointsAdjusted(idempotencyKey, customerID string, delta int, reason string) LoyaltyPointsAdjusted {
	return LoyaltyPointsAdjusted{
		Header:      newHeader(idempotencyKey),
		CustomerID:  customerID,
		PointsDelta: delta,
		Reason:      reason,
	}
}

type RoomHoldExpired struct {
	Header    header    `json:"header"`
	BookingID string    `json:"bookingId"`
	ExpiredAt time.Time `json:"expiredAt"`
}

func NewRoomHoldExpired(bookingID string, expiredAt time.Time) RoomHoldExpired {
	return RoomHoldExpired{
		Header:    newHeader(""),
		BookingID: bookingID,
		ExpiredAt: expiredAt,
	}
}
