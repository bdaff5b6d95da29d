// Package hold tracks the advisory expiry of room holds on unconfirmed
// bookings. The owner of record enforces holds; nothing here releases inventory.
package hold

import "time"

// Timer counts down to a single expiry. It is not safe for concurrent use.
type Timer struct {
	expiry *time.Time
}

func NewTimer(expiry time.Time) *Timer {
	t := &Timer{}
	t.Arm(expiry)

	return t
}

// Arm replaces the expiry. A new expiry re-arms an already fired timer.
func (t *Timer) Arm(expiry time.Time) {
	e := expiry.UTC()
	t.expiry = &e
}

func (t *Timer) Clear() {
	t.expiry = nil
}

func (t *Timer) Armed() bool {
	return t.expiry != nil
}

func (t *Timer) Expiry() (time.Time, bool) {
	if t.expiry == nil {
		return time.Time{}, false
	}

	return *t.expiry, true
}

// Check reports the time left until expiry. expired is true exactly once per
// armed expiry: the expiry is cleared when it fires, so later checks return
// zero remaining and false.
func (t *Timer) Check(now time.Time) (remaining time.Duration, expired bool) {
	if t.expiry == nil {
		return 0, false
	}

	remaining = t.expiry.Sub(now)
	if remaining > 0 {
		return remaining, false
	}

	t.expiry = nil

	return 0, true
}
