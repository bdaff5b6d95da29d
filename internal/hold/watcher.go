package hold

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/avstrong/bookingdesk/internal/logger"
)

const tickSpec = "@every 1s"

type ExpireFunc func(bookingID string, expiry time.Time)

type WatcherConf struct {
	L        *logger.Logger
	OnExpire ExpireFunc
	Now      func() time.Time
}

// Watcher ticks once per second over every tracked hold and reports each
// expiry once, then forgets the hold.
type Watcher struct {
	mu       sync.Mutex
	l        *logger.Logger
	timers   map[string]*Timer
	onExpire ExpireFunc
	now      func() time.Time
	cron     *cron.Cron
}

func NewWatcher(conf WatcherConf) *Watcher {
	now := conf.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Watcher{
		l:        conf.L,
		timers:   make(map[string]*Timer),
		onExpire: conf.OnExpire,
		now:      now,
		cron:     cron.New(),
	}
}

// Track starts (or re-arms) the countdown of a booking hold and returns the
// time left. An expiry already behind the watcher's clock is not tracked.
func (w *Watcher) Track(bookingID string, expiry time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !expiry.After(w.now()) {
		return 0
	}

	t, ok := w.timers[bookingID]
	if !ok {
		t = &Timer{}
		w.timers[bookingID] = t
	}

	if current, armed := t.Expiry(); !armed || !current.Equal(expiry.UTC()) {
		t.Arm(expiry)
	}

	remaining := t.expiry.Sub(w.now())

	return max(0, remaining)
}

func (w *Watcher) Remaining(bookingID string) (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.timers[bookingID]
	if !ok {
		return 0, false
	}

	expiry, armed := t.Expiry()
	if !armed {
		return 0, false
	}

	return max(0, expiry.Sub(w.now())), true
}

// Release tears a hold down without reporting it, e.g. once the booking is
// confirmed.
func (w *Watcher) Release(bookingID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.timers, bookingID)
}

func (w *Watcher) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.timers)
}

func (w *Watcher) Tick() {
	type expired struct {
		id     string
		expiry time.Time
	}

	now := w.now()

	var fired []expired

	w.mu.Lock()

	for id, t := range w.timers {
		expiry, _ := t.Expiry()

		if _, ok := t.Check(now); ok {
			fired = append(fired, expired{id: id, expiry: expiry})

			delete(w.timers, id)
		}
	}

	w.mu.Unlock()

	for _, e := range fired {
		w.l.LogInfo("Room hold of booking %s expired at %s", e.id, e.expiry.Format(time.RFC3339))

		if w.onExpire != nil {
			w.onExpire(e.id, e.expiry)
		}
	}
}

// Run ticks until ctx is done, then tears every hold down.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := w.cron.AddFunc(tickSpec, w.Tick); err != nil {
		return fmt.Errorf("schedule hold ticker: %w", err)
	}

	w.cron.Start()

	<-ctx.Done()

	<-w.cron.Stop().Done()

	w.mu.Lock()
	w.timers = make(map[string]*Timer)
	w.mu.Unlock()

	w.l.LogInfo("Hold watcher stopped")

	return nil
}
