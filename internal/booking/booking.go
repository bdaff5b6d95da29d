package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/avstrong/bookingdesk/internal/apperror"
	"github.com/avstrong/bookingdesk/internal/events"
	"github.com/avstrong/bookingdesk/internal/logger"
	"github.com/avstrong/bookingdesk/internal/loyalty"
	"github.com/avstrong/bookingdesk/internal/payment"
)

type idGenerator interface {
	GetID(ctx context.Context) (string, error)
}

type ownerReader interface {
	GetBooking(ctx context.Context, id string) (*Booking, error)
	GetLoyalty(ctx context.Context, customerID string) (*loyalty.Record, error)
}

type ownerWriter interface {
	UpdateStatus(ctx context.Context, id string, change StatusChange) error
	CreateInvoice(ctx context.Context, id string, invoice InvoiceRequest) error
	Reschedule(ctx context.Context, id string, req RescheduleRequest) error
	AdjustPoints(ctx context.Context, customerID string, adj loyalty.Adjustment) error
}

// recordOwner is the system that actually stores bookings and loyalty
// balances. Every mutation goes there and the result is read back from there.
type recordOwner interface {
	ownerReader
	ownerWriter
}

type mailer interface {
	SendBookingConfirmation(ctx context.Context, b *Booking) error
}

type holdTracker interface {
	Track(bookingID string, expiry time.Time) time.Duration
	Release(bookingID string)
}

type eventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type Conf struct {
	L      *logger.Logger
	Owner  recordOwner
	Mailer mailer
	Holds  holdTracker
	Events eventPublisher
	Tiers  *loyalty.TierTable
	Policy Policy
	IDGen  idGenerator
	Now    func() time.Time
}

type Manager struct {
	l      *logger.Logger
	owner  recordOwner
	mailer mailer
	holds  holdTracker
	events eventPublisher
	tiers  *loyalty.TierTable
	policy Policy
	idGen  idGenerator
	now    func() time.Time
}

func New(conf Conf) *Manager {
	now := conf.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Manager{
		l:      conf.L,
		owner:  conf.Owner,
		mailer: conf.Mailer,
		holds:  conf.Holds,
		events: conf.Events,
		tiers:  conf.Tiers,
		policy: conf.Policy,
		idGen:  conf.IDGen,
		now:    now,
	}
}

func (m *Manager) Policy() Policy {
	return m.policy
}

// View is a booking as the desk presents it: the stored record plus
// everything derived from it at the time of the request.
type View struct {
	Booking         *Booking       `json:"booking"`
	EffectiveStatus Status         `json:"effectiveStatus"`
	StatusLabel     string         `json:"statusLabel"`
	StatusColor     string         `json:"statusColor"`
	PaymentLabel    string         `json:"paymentLabel"`
	Actions         []Action       `json:"actions"`
	Quote           *payment.Quote `json:"quote,omitempty"`
	QuoteError      string         `json:"quoteError,omitempty"`
}

type QuoteRequest struct {
	Option       payment.Option `json:"option"       validate:"omitempty,oneof=full deposit"`
	RedeemMode   loyalty.Mode   `json:"redeemMode"   validate:"omitempty,oneof=none partial all"`
	RedeemPoints int            `json:"redeemPoints" validate:"gte=0"`
	// Services replaces the booking's own services when not nil.
	Services []Service `json:"services" validate:"omitempty,dive"`
}

type PayRequest struct {
	QuoteRequest
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

type PaymentPreview struct {
	payment.Quote
	AvailablePoints int     `json:"availablePoints"`
	MaxRedeemable   int     `json:"maxRedeemable"`
	EarnedPoints    int     `json:"earnedPoints"`
	AlreadyPaid     float64 `json:"alreadyPaid"`
}

type HoldView struct {
	BookingID        string     `json:"bookingId"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	RemainingSeconds int        `json:"remainingSeconds"`
	Active           bool       `json:"active"`
}

type LoyaltyView struct {
	loyalty.Record
	Multiplier       float64       `json:"multiplier"`
	NextTier         *loyalty.Tier `json:"nextTier,omitempty"`
	PointsToNextTier int           `json:"pointsToNextTier,omitempty"`
}

func (m *Manager) Get(ctx context.Context, id string) (*Booking, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}

	b, err := m.owner.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}

	return b, nil
}

func (m *Manager) View(ctx context.Context, id string) (*View, error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return m.view(b), nil
}

func (m *Manager) view(b *Booking) *View {
	now := m.now()
	status := b.EffectiveStatus(now)
	info := status.Info()

	v := &View{
		Booking:         b,
		EffectiveStatus: status,
		StatusLabel:     info.Label,
		StatusColor:     info.Color,
		PaymentLabel:    b.PaymentStatus.String(),
		Actions:         b.Actions(now, m.policy),
		Quote:           nil,
		QuoteError:      "",
	}

	in, err := b.paymentInput(b.Services)
	if err == nil {
		var q payment.Quote

		q, err = payment.Calculate(in)
		if err == nil {
			v.Quote = &q
		}
	}

	if err != nil {
		v.QuoteError = err.Error()
	}

	return v
}

func (m *Manager) Quote(ctx context.Context, id string, req QuoteRequest) (*PaymentPreview, error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return m.preview(ctx, b, req)
}

func (m *Manager) preview(ctx context.Context, b *Booking, req QuoteRequest) (*PaymentPreview, error) {
	services := b.Services
	if req.Services != nil {
		services = req.Services
	}

	in, err := b.paymentInput(services)
	if err != nil {
		return nil, err
	}

	in.Option = req.Option

	if b.PaymentStatus == PaymentDepositPaid && req.Option == payment.OptionDeposit {
		return nil, apperror.Validation("option", "the deposit has already been paid")
	}

	// Points only ever reduce the balance payment.
	if req.Option == payment.OptionDeposit && (req.RedeemPoints > 0 || req.RedeemMode == loyalty.ModeAll) {
		return nil, apperror.Validation("redeemPoints", "points are redeemed against the full payment, not the deposit")
	}

	q, err := payment.Calculate(in)
	if err != nil {
		return nil, err
	}

	rec, err := m.loyaltyRecord(ctx, b.Customer.ID)
	if err != nil {
		return nil, err
	}

	mode := req.RedeemMode
	if mode == "" && req.RedeemPoints > 0 {
		mode = loyalty.ModePartial
	}

	points, err := loyalty.Redeem(mode, req.RedeemPoints, rec.Points, q.GrandTotal)
	if err != nil {
		return nil, err
	}

	q = q.WithRedeemedPoints(points)

	if b.PaymentStatus == PaymentDepositPaid {
		q.AmountDue = math.Max(0, math.Round(q.PayableTotal-b.AmountPaid))
	}

	return &PaymentPreview{
		Quote:           q,
		AvailablePoints: rec.Points,
		MaxRedeemable:   loyalty.MaxRedeemable(rec.Points, q.GrandTotal),
		EarnedPoints:    loyalty.EarnedForTier(q.GrandTotal, m.tiers.Lookup(rec.Points)),
		AlreadyPaid:     b.AmountPaid,
	}, nil
}

// loyaltyRecord treats a customer unknown to the loyalty programme as one
// with no points.
func (m *Manager) loyaltyRecord(ctx context.Context, customerID string) (*loyalty.Record, error) {
	if customerID == "" {
		return &loyalty.Record{CustomerID: "", Points: 0, Tier: m.tiers.Lookup(0).Name}, nil
	}

	rec, err := m.owner.GetLoyalty(ctx, customerID)
	if errors.Is(err, apperror.ErrNotFound) {
		return &loyalty.Record{CustomerID: customerID, Points: 0, Tier: m.tiers.Lookup(0).Name}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get loyalty of customer %s: %w", customerID, err)
	}

	return rec, nil
}

func (m *Manager) Pay(ctx context.Context, id string, req PayRequest) (*Booking, error) {
	ctx, key, err := m.ensureIdempotencyKey(ctx)
	if err != nil {
		return nil, err
	}

	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := b.Guard(ActionPay, m.now(), m.policy); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.PaymentMethod) == "" {
		return nil, apperror.Validation("paymentMethod", "provide a payment method")
	}

	p, err := m.preview(ctx, b, req.QuoteRequest)
	if err != nil {
		return nil, err
	}

	services := b.Services
	if req.Services != nil {
		services = req.Services
	}

	//nolint:exhaustruct
	invoice := InvoiceRequest{
		AmountPaid:    p.AmountDue,
		DepositAmount: b.DepositAmount,
		PaymentMethod: req.PaymentMethod,
		RedeemPoints:  p.RedeemedPoints,
		Services:      services,
		PaymentStatus: PaymentPaid,
		Option:        p.Option,
	}

	if p.Option == payment.OptionDeposit {
		invoice.DepositAmount = p.DepositAmount
		invoice.PaymentStatus = PaymentDepositPaid
	} else {
		invoice.EarnedPoints = p.EarnedPoints
	}

	if err := m.owner.CreateInvoice(ctx, id, invoice); err != nil {
		return nil, fmt.Errorf("create invoice for booking %s: %w", id, err)
	}

	m.l.LogInfo("Invoice of %.0f by %s created for booking %s", invoice.AmountPaid, invoice.PaymentMethod, id)

	m.publish(ctx, events.NewInvoiceCreated(key, id, invoice.PaymentMethod,
		invoice.AmountPaid, invoice.DepositAmount, invoice.RedeemPoints))

	return m.reconcile(ctx, id)
}

// Confirm confirms a pending booking and mails the customer. A mail failure
// is reported after the confirmation itself went through.
func (m *Manager) Confirm(ctx context.Context, id string) (*Booking, error) {
	b, err := m.transition(ctx, id, ActionConfirm, func(*Booking) (StatusChange, error) {
		//nolint:exhaustruct
		return StatusChange{Status: StatusConfirmed}, nil
	})
	if err != nil {
		return nil, err
	}

	if m.holds != nil {
		m.holds.Release(id)
	}

	if err := m.mailer.SendBookingConfirmation(ctx, b); err != nil {
		m.l.LogErrorf("Confirmation mail for booking %s failed: %v", id, err)

		if ve := apperror.IsValidation(err); ve != nil {
			return b, ve
		}

		if rf := apperror.IsRemote(err); rf != nil {
			return b, rf
		}

		return b, apperror.Remote("send confirmation", 0, err)
	}

	return b, nil
}

func (m *Manager) Cancel(ctx context.Context, id string) (*Booking, error) {
	return m.transition(ctx, id, ActionCancel, func(b *Booking) (StatusChange, error) {
		//nolint:exhaustruct
		change := StatusChange{Status: StatusCancelled}

		if b.PaymentStatus == PaymentPaid || b.PaymentStatus == PaymentDepositPaid {
			refunded := PaymentRefunded
			amount := b.AmountPaid

			change.PaymentStatus = &refunded
			change.DepositHandling = DepositRefund
			change.RefundAmount = &amount
		}

		return change, nil
	})
}

func (m *Manager) CheckIn(ctx context.Context, id string) (*Booking, error) {
	return m.transition(ctx, id, ActionCheckIn, func(*Booking) (StatusChange, error) {
		//nolint:exhaustruct
		return StatusChange{Status: StatusInUse}, nil
	})
}

func (m *Manager) CheckOut(ctx context.Context, id string) (*Booking, error) {
	return m.transition(ctx, id, ActionCheckOut, func(*Booking) (StatusChange, error) {
		//nolint:exhaustruct
		return StatusChange{Status: StatusCompleted}, nil
	})
}

// ForceCancel cancels a no-show booking whatever its state and settles the
// deposit as requested.
func (m *Manager) ForceCancel(ctx context.Context, id string, req ForceCancelRequest) (*Booking, error) {
	return m.transition(ctx, id, ActionForceCancel, func(b *Booking) (StatusChange, error) {
		var refund float64

		switch req.DepositHandling {
		case DepositRefund:
			refund = b.DepositAmount
		case DepositPartial:
			if req.Amount < 0 || req.Amount > b.DepositAmount {
				return StatusChange{}, apperror.Validation("amount",
					fmt.Sprintf("partial refund must be between 0 and the deposit of %.0f", b.DepositAmount))
			}

			refund = req.Amount
		case DepositKeep:
		default:
			return StatusChange{}, apperror.Validation("depositHandling",
				fmt.Sprintf("unknown deposit handling %q", req.DepositHandling))
		}

		change := StatusChange{
			Status:          StatusCancelled,
			PaymentStatus:   nil,
			DepositHandling: req.DepositHandling,
			RefundAmount:    &refund,
		}

		if refund > 0 || b.PaymentStatus == PaymentPaid {
			refunded := PaymentRefunded
			change.PaymentStatus = &refunded
		}

		return change, nil
	})
}

func (m *Manager) Reschedule(ctx context.Context, id string, req RescheduleRequest) (*Booking, error) {
	ctx, key, err := m.ensureIdempotencyKey(ctx)
	if err != nil {
		return nil, err
	}

	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := m.now()

	if err := b.Guard(ActionReschedule, now, m.policy); err != nil {
		return nil, err
	}

	if _, err := payment.Nights(req.CheckIn, req.CheckOut); err != nil {
		return nil, err
	}

	if !req.CheckIn.After(now) {
		return nil, apperror.Validation("checkIn", "must be in the future")
	}

	if err := m.owner.Reschedule(ctx, id, req); err != nil {
		return nil, fmt.Errorf("reschedule booking %s: %w", id, err)
	}

	m.l.LogInfo("Booking %s moved to %s - %s", id,
		req.CheckIn.Format(time.DateOnly), req.CheckOut.Format(time.DateOnly))

	m.publish(ctx, events.NewBookingStatusChanged(key, id, string(ActionReschedule),
		int(b.Status), int(b.Status), int(b.PaymentStatus)))

	return m.reconcile(ctx, id)
}

// Hold reports the countdown of a pending booking's room hold and keeps the
// watcher tracking it.
func (m *Manager) Hold(ctx context.Context, id string) (*HoldView, error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	v := &HoldView{BookingID: id, ExpiresAt: b.HoldExpiresAt, RemainingSeconds: 0, Active: false}

	if b.HoldExpiresAt == nil || b.Status != StatusPendingConfirmation {
		if m.holds != nil {
			m.holds.Release(id)
		}

		return v, nil
	}

	if !b.HoldExpiresAt.After(m.now()) {
		return v, nil
	}

	remaining := b.HoldExpiresAt.Sub(m.now())
	if m.holds != nil {
		remaining = m.holds.Track(id, *b.HoldExpiresAt)
	}

	v.RemainingSeconds = int(math.Ceil(remaining.Seconds()))
	v.Active = remaining > 0

	return v, nil
}

func (m *Manager) Loyalty(ctx context.Context, customerID string) (*LoyaltyView, error) {
	if err := requireID("customerId", customerID); err != nil {
		return nil, err
	}

	rec, err := m.owner.GetLoyalty(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get loyalty of customer %s: %w", customerID, err)
	}

	return m.loyaltyView(*rec), nil
}

func (m *Manager) loyaltyView(rec loyalty.Record) *LoyaltyView {
	tier := m.tiers.Lookup(rec.Points)
	rec.Tier = tier.Name

	v := &LoyaltyView{Record: rec, Multiplier: tier.Multiplier, NextTier: nil, PointsToNextTier: 0}

	for _, t := range m.tiers.Tiers() {
		if t.MinPoints > rec.Points {
			next := t
			v.NextTier = &next
			v.PointsToNextTier = t.MinPoints - rec.Points

			break
		}
	}

	return v
}

func (m *Manager) AdjustPoints(ctx context.Context, customerID string, adj loyalty.Adjustment) (*LoyaltyView, error) {
	if err := requireID("customerId", customerID); err != nil {
		return nil, err
	}

	ctx, key, err := m.ensureIdempotencyKey(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := m.owner.GetLoyalty(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get loyalty of customer %s: %w", customerID, err)
	}

	if _, err := m.tiers.Apply(*rec, adj); err != nil {
		return nil, err
	}

	if err := m.owner.AdjustPoints(ctx, customerID, adj); err != nil {
		return nil, fmt.Errorf("adjust points of customer %s: %w", customerID, err)
	}

	m.l.LogInfo("Loyalty points of customer %s adjusted by %+d", customerID, adj.PointsDelta)

	m.publish(ctx, events.NewLoyaltyPointsAdjusted(key, customerID, adj.PointsDelta, adj.Reason))

	rec, err = m.owner.GetLoyalty(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("reconcile loyalty of customer %s: %w", customerID, err)
	}

	return m.loyaltyView(*rec), nil
}

type changeFunc func(b *Booking) (StatusChange, error)

// transition runs a guarded status change against the owner of record and
// returns the booking as the owner now has it.
func (m *Manager) transition(ctx context.Context, id string, action Action, build changeFunc) (*Booking, error) {
	ctx, key, err := m.ensureIdempotencyKey(ctx)
	if err != nil {
		return nil, err
	}

	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := b.Guard(action, m.now(), m.policy); err != nil {
		return nil, err
	}

	change, err := build(b)
	if err != nil {
		return nil, err
	}

	if err := m.owner.UpdateStatus(ctx, id, change); err != nil {
		return nil, fmt.Errorf("%s booking %s: %w", action, id, err)
	}

	paymentStatus := b.PaymentStatus
	if change.PaymentStatus != nil {
		paymentStatus = *change.PaymentStatus
	}

	m.l.LogInfo("Booking %s: %s, %s -> %s", id, action, b.Status, change.Status)

	m.publish(ctx, events.NewBookingStatusChanged(key, id, string(action),
		int(b.Status), int(change.Status), int(paymentStatus)))

	return m.reconcile(ctx, id)
}

// reconcile re-reads the booking after a mutation. The owner's copy is the
// only one returned to callers.
func (m *Manager) reconcile(ctx context.Context, id string) (*Booking, error) {
	b, err := m.owner.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reconcile booking %s: %w", id, err)
	}

	return b, nil
}

func (m *Manager) publish(ctx context.Context, event any) {
	if m.events == nil {
		return
	}

	if err := m.events.Publish(ctx, event); err != nil {
		m.l.LogErrorf("Could not publish event: %v", err)
	}
}

func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperror.Validation(field, "must not be empty")
	}

	return nil
}
