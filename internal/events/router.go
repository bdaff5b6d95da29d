package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/avstrong/bookingdesk/internal/logger"
)

type RouterDeps struct {
	L          *logger.Logger
	Logger     watermill.LoggerAdapter
	Subscriber message.Subscriber
}

// NewRouter wires the audit handlers. Every lifecycle event ends up as one
// structured log line.
func NewRouter(deps RouterDeps) (*message.Router, error) {
	//nolint:exhaustruct
	router, err := message.NewRouter(message.RouterConfig{}, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)

	//nolint:exhaustruct
	ep, err := cqrs.NewEventProcessorWithConfig(router, cqrs.EventProcessorConfig{
		SubscriberConstructor: func(_ cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return deps.Subscriber, nil
		},
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			return params.EventName, nil
		},
		Marshaler: marshaler,
		Logger:    deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event processor: %w", err)
	}

	audit := auditHandler{l: deps.L.WithField("component", "audit")}

	err = ep.AddHandlers(
		cqrs.NewEventHandler("audit-booking-status-changed", audit.BookingStatusChanged),
		cqrs.NewEventHandler("audit-invoice-created", audit.InvoiceCreated),
		cqrs.NewEventHandler("audit-loyalty-points-adjusted", audit.LoyaltyPointsAdjusted),
		cqrs.NewEventHandler("audit-room-hold-expired", audit.RoomHoldExpired),
	)
	if err != nil {
		return nil, fmt.Errorf("adding handlers: %w", err)
	}

	return router, nil
}

type auditHandler struct {
	l *logger.Logger
}

func (h auditHandler) BookingStatusChanged(_ context.Context, e *BookingStatusChanged) error {
	h.l.WithFields(map[string]any{
		"event_id":   e.Header.ID,
		"booking_id": e.BookingID,
	}).LogInfo("Booking %s: %s moved status %d -> %d (payment %d)",
		e.BookingID, e.Action, e.FromStatus, e.ToStatus, e.PaymentStatus)

	return nil
}

func (h auditHandler) InvoiceCreated(_ context.Context, e *InvoiceCreated) error {
	h.l.WithFields(map[string]any{
		"event_id":   e.Header.ID,
		"booking_id": e.BookingID,
	}).LogInfo("Invoice for booking %s: paid %.0f by %s, deposit %.0f, %d points redeemed",
		e.BookingID, e.AmountPaid, e.PaymentMethod, e.DepositAmount, e.RedeemPoints)

	return nil
}

func (h auditHandler) LoyaltyPointsAdjusted(_ context.Context, e *LoyaltyPointsAdjusted) error {
	h.l.WithFields(map[string]any{
		"event_id":    e.Header.ID,
		"customer_id": e.CustomerID,
	}).LogInfo("Loyalty points of customer %s adjusted by %+d: %s", e.CustomerID, e.PointsDelta, e.Reason)

	return nil
}

func (h auditHandler) RoomHoldExpired(_ context.Context, e *RoomHoldExpired) error {
	h.l.WithFields(map[string]any{
		"event_id":   e.Header.ID,
		"booking_id": e.BookingID,
	}).LogInfo("Room hold of booking %s lapsed at %s", e.BookingID, e.ExpiredAt.Format(time.RFC3339))

	return nil
}
