package sqlstore

import (
	"time"

	"gorm.io/gorm"

	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/loyalty"
	"github.com/avstrong/bookingdesk/internal/payment"
)

// bookings
type bookingModel struct {
	ID             string     `gorm:"type:varchar(64);primaryKey"`
	Code           string     `gorm:"type:varchar(32);not null;uniqueIndex"`
	CheckIn        time.Time  `gorm:"not null"`
	CheckOut       time.Time  `gorm:"not null"`
	CustomerID     string     `gorm:"type:varchar(64);not null;index"`
	CustomerName   string     `gorm:"type:varchar(255)"`
	CustomerEmail  string     `gorm:"type:varchar(255)"`
	CustomerPhone  string     `gorm:"type:varchar(32)"`
	PromotionCode  string     `gorm:"type:varchar(64)"`
	PromotionType  string     `gorm:"type:varchar(16)"`
	PromotionValue float64
	Status         int `gorm:"not null;index"`
	PaymentStatus  int `gorm:"not null"`
	DepositAmount  float64
	AmountPaid     float64
	HoldExpiresAt  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Rooms    []roomModel    `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
	Services []serviceModel `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
}

func (bookingModel) TableName() string { return "bookings" }

// booking_rooms
type roomModel struct {
	ID              uint   `gorm:"primaryKey"`
	BookingID       string `gorm:"type:varchar(64);not null;index"`
	Position        int    `gorm:"not null"`
	RoomID          string `gorm:"type:varchar(64);not null"`
	Number          string `gorm:"type:varchar(16)"`
	BasePrice       *float64
	DiscountedPrice *float64
}

func (roomModel) TableName() string { return "booking_rooms" }

// booking_services
type serviceModel struct {
	ID        uint   `gorm:"primaryKey"`
	BookingID string `gorm:"type:varchar(64);not null;index"`
	Position  int    `gorm:"not null"`
	ServiceID string `gorm:"type:varchar(64);not null"`
	Name      string `gorm:"type:varchar(255)"`
	UnitPrice float64
	Quantity  int
}

func (serviceModel) TableName() string { return "booking_services" }

// invoices
type invoiceModel struct {
	ID             string `gorm:"type:varchar(36);primaryKey"`
	BookingID      string `gorm:"type:varchar(64);not null;index"`
	IdempotencyKey string `gorm:"type:varchar(64);not null;uniqueIndex"`
	AmountPaid     float64
	DepositAmount  float64
	PaymentMethod  string `gorm:"type:varchar(32);not null"`
	PaymentOption  string `gorm:"type:varchar(16);not null"`
	RedeemPoints   int
	EarnedPoints   int
	CreatedAt      time.Time
}

func (invoiceModel) TableName() string { return "invoices" }

// loyalty_records
type loyaltyModel struct {
	CustomerID string `gorm:"type:varchar(64);primaryKey"`
	Points     int    `gorm:"not null"`
	Tier       string `gorm:"type:varchar(32);not null"`
	UpdatedAt  time.Time
}

func (loyaltyModel) TableName() string { return "loyalty_records" }

// applied_requests
type appliedRequestModel struct {
	IdempotencyKey string `gorm:"type:varchar(64);primaryKey"`
	Scope          string `gorm:"type:varchar(160);not null"`
	CreatedAt      time.Time
}

func (appliedRequestModel) TableName() string { return "applied_requests" }

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate( //nolint:wrapcheck
		&bookingModel{},
		&roomModel{},
		&serviceModel{},
		&invoiceModel{},
		&loyaltyModel{},
		&appliedRequestModel{},
	)
}

func (m *bookingModel) toDomain() *booking.Booking {
	//nolint:exhaustruct
	b := &booking.Booking{
		ID:       m.ID,
		Code:     m.Code,
		CheckIn:  m.CheckIn.UTC(),
		CheckOut: m.CheckOut.UTC(),
		Customer: booking.Customer{
			ID:    m.CustomerID,
			Name:  m.CustomerName,
			Email: m.CustomerEmail,
			Phone: m.CustomerPhone,
		},
		Status:        booking.Status(m.Status),
		PaymentStatus: booking.PaymentStatus(m.PaymentStatus),
		DepositAmount: m.DepositAmount,
		AmountPaid:    m.AmountPaid,
	}

	if m.HoldExpiresAt != nil {
		expiry := m.HoldExpiresAt.UTC()
		b.HoldExpiresAt = &expiry
	}

	if m.PromotionType != "" {
		b.Promotion = &payment.Promotion{
			Code:  m.PromotionCode,
			Type:  payment.PromotionType(m.PromotionType),
			Value: m.PromotionValue,
		}
	}

	b.Rooms = make([]booking.Room, 0, len(m.Rooms))
	for _, r := range m.Rooms {
		b.Rooms = append(b.Rooms, booking.Room{
			RoomID:          r.RoomID,
			Number:          r.Number,
			BasePrice:       r.BasePrice,
			DiscountedPrice: r.DiscountedPrice,
		})
	}

	b.Services = make([]booking.Service, 0, len(m.Services))
	for _, s := range m.Services {
		b.Services = append(b.Services, booking.Service{
			ServiceID: s.ServiceID,
			Name:      s.Name,
			UnitPrice: s.UnitPrice,
			Quantity:  s.Quantity,
		})
	}

	return b
}

func fromDomain(b *booking.Booking) *bookingModel {
	//nolint:exhaustruct
	m := &bookingModel{
		ID:            b.ID,
		Code:          b.Code,
		CheckIn:       b.CheckIn.UTC(),
		CheckOut:      b.CheckOut.UTC(),
		CustomerID:    b.Customer.ID,
		CustomerName:  b.Customer.Name,
		CustomerEmail: b.Customer.Email,
		CustomerPhone: b.Customer.Phone,
		Status:        int(b.Status),
		PaymentStatus: int(b.PaymentStatus),
		DepositAmount: b.DepositAmount,
		AmountPaid:    b.AmountPaid,
		HoldExpiresAt: b.HoldExpiresAt,
	}

	if b.Promotion != nil {
		m.PromotionCode = b.Promotion.Code
		m.PromotionType = string(b.Promotion.Type)
		m.PromotionValue = b.Promotion.Value
	}

	m.Rooms = roomModels(b.ID, b.Rooms)
	m.Services = serviceModels(b.ID, b.Services)

	return m
}

func roomModels(bookingID string, rooms []booking.Room) []roomModel {
	out := make([]roomModel, 0, len(rooms))
	for i, r := range rooms {
		//nolint:exhaustruct
		out = append(out, roomModel{
			BookingID:       bookingID,
			Position:        i,
			RoomID:          r.RoomID,
			Number:          r.Number,
			BasePrice:       r.BasePrice,
			DiscountedPrice: r.DiscountedPrice,
		})
	}

	return out
}

func serviceModels(bookingID string, services []booking.Service) []serviceModel {
	out := make([]serviceModel, 0, len(services))
	for i, s := range services {
		//nolint:exhaustruct
		out = append(out, serviceModel{
			BookingID: bookingID,
			Position:  i,
			ServiceID: s.ServiceID,
			Name:      s.Name,
			UnitPrice: s.UnitPrice,
			Quantity:  s.Quantity,
		})
	}

	return out
}

func (m *loyaltyModel) toDomain() *loyalty.Record {
	return &loyalty.Record{CustomerID: m.CustomerID, Points: m.Points, Tier: m.Tier}
}
