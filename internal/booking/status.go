package booking

import (
	"fmt"
	"slices"
	"time"

	"github.com/avstrong/bookingdesk/internal/apperror"
)

type Status int

const (
	StatusCancelled Status = iota
	StatusPendingConfirmation
	StatusConfirmed
	StatusInUse
	StatusCompleted
	// StatusOverdue is never stored; see EffectiveStatus.
	StatusOverdue
)

type PaymentStatus int

const (
	PaymentUnpaid PaymentStatus = iota
	PaymentDepositPaid
	PaymentPaid
	PaymentRefunded
)

type Action string

const (
	ActionConfirm     Action = "confirm"
	ActionCancel      Action = "cancel"
	ActionCheckIn     Action = "check-in"
	ActionCheckOut    Action = "check-out"
	ActionForceCancel Action = "force-cancel"
	ActionReschedule  Action = "reschedule"
	ActionPay         Action = "pay"
)

// CancellationNotice is how long before check-in a booking stops being
// cancellable by the customer.
const CancellationNotice = 24 * time.Hour

type StatusInfo struct {
	Label   string
	Color   string
	Actions []Action
}

var statusTable = map[Status]StatusInfo{
	StatusCancelled: {
		Label: "Cancelled",
		Color: "red",
	},
	StatusPendingConfirmation: {
		Label:   "Pending confirmation",
		Color:   "orange",
		Actions: []Action{ActionConfirm, ActionCancel, ActionReschedule, ActionPay, ActionForceCancel},
	},
	StatusConfirmed: {
		Label:   "Confirmed",
		Color:   "blue",
		Actions: []Action{ActionCheckIn, ActionCancel, ActionReschedule, ActionPay, ActionForceCancel},
	},
	StatusInUse: {
		Label:   "In use",
		Color:   "green",
		Actions: []Action{ActionCheckOut, ActionCancel, ActionPay, ActionForceCancel},
	},
	StatusCompleted: {
		Label:   "Completed",
		Color:   "gray",
		Actions: []Action{ActionForceCancel},
	},
	StatusOverdue: {
		Label:   "Overdue",
		Color:   "purple",
		Actions: []Action{ActionCheckOut, ActionPay, ActionForceCancel},
	},
}

var paymentLabels = map[PaymentStatus]string{
	PaymentUnpaid:      "Unpaid",
	PaymentDepositPaid: "Deposit paid",
	PaymentPaid:        "Paid",
	PaymentRefunded:    "Refunded",
}

func (s Status) Info() StatusInfo {
	info, ok := statusTable[s]
	if !ok {
		return StatusInfo{Label: fmt.Sprintf("Unknown (%d)", int(s)), Color: "gray"}
	}

	return info
}

func (s Status) String() string {
	return s.Info().Label
}

func (s Status) Valid() bool {
	_, ok := statusTable[s]

	return ok && s != StatusOverdue
}

func (p PaymentStatus) String() string {
	label, ok := paymentLabels[p]
	if !ok {
		return fmt.Sprintf("Unknown (%d)", int(p))
	}

	return label
}

func (p PaymentStatus) Valid() bool {
	_, ok := paymentLabels[p]

	return ok
}

// EffectiveStatus derives Overdue for a booking still in use after check-out.
func (b *Booking) EffectiveStatus(now time.Time) Status {
	if b.Status == StatusInUse && now.After(b.CheckOut) {
		return StatusOverdue
	}

	return b.Status
}

type Policy struct {
	// RescheduleBuffer is how long before check-in dates may still change.
	RescheduleBuffer time.Duration
}

func DefaultPolicy() Policy {
	return Policy{RescheduleBuffer: CancellationNotice}
}

// Guard reports why action is not permitted on the booking at now, or nil.
func (b *Booking) Guard(action Action, now time.Time, policy Policy) error {
	status := b.EffectiveStatus(now)
	info := status.Info()

	if !slices.Contains(info.Actions, action) {
		return apperror.Policy(string(action), fmt.Sprintf("not allowed while the booking is %s", info.Label))
	}

	switch action {
	case ActionCancel:
		if !now.Before(b.CheckIn.Add(-CancellationNotice)) {
			return apperror.Policy(string(action), "bookings can only be cancelled more than 24 hours before check-in")
		}
	case ActionReschedule:
		if !now.Before(b.CheckIn.Add(-policy.RescheduleBuffer)) {
			return apperror.Policy(string(action),
				fmt.Sprintf("dates can only change more than %s before check-in", policy.RescheduleBuffer))
		}
	case ActionCheckOut:
		if b.PaymentStatus != PaymentPaid {
			return apperror.Policy(string(action), "the booking is not fully paid")
		}
	case ActionPay:
		if b.PaymentStatus == PaymentPaid || b.PaymentStatus == PaymentRefunded {
			return apperror.Policy(string(action), fmt.Sprintf("payment status is already %s", b.PaymentStatus))
		}
	case ActionConfirm, ActionCheckIn, ActionForceCancel:
	}

	return nil
}

// Actions lists what may be done with the booking at now, in table order.
func (b *Booking) Actions(now time.Time, policy Policy) []Action {
	info := b.EffectiveStatus(now).Info()

	actions := make([]Action, 0, len(info.Actions))

	for _, a := range info.Actions {
		if b.Guard(a, now, policy) == nil {
			actions = append(actions, a)
		}
	}

	return actions
}
