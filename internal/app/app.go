package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/clients/records"
	"github.com/avstrong/bookingdesk/internal/config"
	"github.com/avstrong/bookingdesk/internal/events"
	"github.com/avstrong/bookingdesk/internal/hold"
	"github.com/avstrong/bookingdesk/internal/idgen"
	"github.com/avstrong/bookingdesk/internal/logger"
	"github.com/avstrong/bookingdesk/internal/loyalty"
	"github.com/avstrong/bookingdesk/internal/mail"
	"github.com/avstrong/bookingdesk/internal/migration"
	"github.com/avstrong/bookingdesk/internal/session"
	"github.com/avstrong/bookingdesk/internal/storage/memory"
	"github.com/avstrong/bookingdesk/internal/storage/sqlstore"
	"github.com/avstrong/bookingdesk/internal/transport/web"
)

type recordOwner interface {
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	GetLoyalty(ctx context.Context, customerID string) (*loyalty.Record, error)
	UpdateStatus(ctx context.Context, id string, change booking.StatusChange) error
	CreateInvoice(ctx context.Context, id string, invoice booking.InvoiceRequest) error
	Reschedule(ctx context.Context, id string, req booking.RescheduleRequest) error
	AdjustPoints(ctx context.Context, customerID string, adj loyalty.Adjustment) error
}

type mailer interface {
	SendBookingConfirmation(ctx context.Context, b *booking.Booking) error
}

func Run(l *logger.Logger, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)
	defer cancel()

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	owner, closeStore, err := openStore(ctx, l, cfg, policy.Tiers)
	if err != nil {
		return err
	}
	defer closeStore()

	wl := events.NewLoggerAdapter(l.WithField("component", "events"))
	pubSub := events.NewPubSub(wl)

	defer func() {
		if err := pubSub.Close(); err != nil {
			l.LogErrorf("Could not close event pubsub: %v", err)
		}
	}()

	bus, err := events.NewBus(pubSub, wl)
	if err != nil {
		return fmt.Errorf("init event bus: %w", err)
	}

	router, err := events.NewRouter(events.RouterDeps{L: l, Logger: wl, Subscriber: pubSub})
	if err != nil {
		return fmt.Errorf("init event router: %w", err)
	}

	watcher := hold.NewWatcher(hold.WatcherConf{
		L: l.WithField("component", "holds"),
		OnExpire: func(bookingID string, expiry time.Time) {
			if err := bus.Publish(ctx, events.NewRoomHoldExpired(bookingID, expiry)); err != nil {
				l.LogErrorf("Could not publish hold expiry of booking %s: %v", bookingID, err)
			}
		},
		Now: nil,
	})

	keys, err := session.NewKeys(cfg.SessionSecret)
	if err != nil {
		return fmt.Errorf("init session keys: %w", err)
	}

	bookManager := booking.New(booking.Conf{
		L:      l.WithField("component", "booking"),
		Owner:  owner,
		Mailer: newMailer(l, cfg.Mail),
		Holds:  watcher,
		Events: bus,
		Tiers:  policy.Tiers,
		Policy: policy.Booking,
		IDGen:  idgen.New(),
		Now:    nil,
	})

	webConf := web.Conf{
		L:                 l,
		ServerLogger:      log.Default(),
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		LivenessEndpoint:  "/liveness",
		Keys:              keys,
	}

	srv, err := web.New(ctx, webConf, bookManager)
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := router.Run(gctx); err != nil {
			return fmt.Errorf("run event router: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		return watcher.Run(gctx)
	})

	g.Go(func() error {
		select {
		case <-router.Running():
		case <-gctx.Done():
			return nil
		}

		l.LogInfo("Application is running on %v:%v...", webConf.Host, webConf.Port)

		if err := srv.Srv().ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("run http server: %w", err)
		}

		return nil
	})

	//nolint:contextcheck
	g.Go(func() error {
		<-gctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if err := srv.Srv().Shutdown(ctx); err != nil {
			l.LogErrorf("Failed to stop http server: %v", err.Error())
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	l.LogInfo("Application stopped gracefully")

	return nil
}

// openStore picks the owner of record. Demo data is seeded into local stores
// when enabled.
func openStore(
	ctx context.Context,
	l *logger.Logger,
	cfg *config.Config,
	tiers *loyalty.TierTable,
) (recordOwner, func(), error) {
	noop := func() {}

	switch cfg.Store.Kind {
	case config.StoreRemote:
		l.LogInfo("Using the owner of record at %s", cfg.Store.RemoteURL)

		return records.New(records.Conf{
			L:       l.WithField("component", "records"),
			BaseURL: cfg.Store.RemoteURL,
			Token:   cfg.Store.RemoteToken,
			Timeout: cfg.Store.RemoteTimeout,
		}), noop, nil

	case config.StorePostgres, config.StoreSQLite:
		db, err := sqlstore.Open(sqlstore.Conf{
			Driver:          cfg.Store.Kind,
			DSN:             cfg.Store.DSN,
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("open %s store: %w", cfg.Store.Kind, err)
		}

		closeDB := func() {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.Close()
			}

			if err != nil {
				l.LogErrorf("Could not close database: %v", err)
			}
		}

		if err := sqlstore.AutoMigrate(db); err != nil {
			closeDB()

			return nil, noop, fmt.Errorf("migrate %s schema: %w", cfg.Store.Kind, err)
		}

		repo := sqlstore.NewRepository(db, l.WithField("component", "store"), tiers)

		if cfg.Store.Seed {
			if err := migration.Up(ctx, l, repo, time.Now().UTC()); err != nil {
				closeDB()

				return nil, noop, fmt.Errorf("seed demo data: %w", err)
			}
		}

		return repo, closeDB, nil

	default:
		storage := memory.New(memory.Config{L: l.WithField("component", "store"), Tiers: tiers})

		if cfg.Store.Seed {
			if err := migration.Up(ctx, l, storage, time.Now().UTC()); err != nil {
				return nil, noop, fmt.Errorf("seed demo data: %w", err)
			}
		}

		return storage, noop, nil
	}
}

func newMailer(l *logger.Logger, conf config.Mail) mailer {
	if conf.APIKey == "" {
		l.LogInfo("MAIL_API_KEY is not set, confirmation mails are only logged")

		return mail.NewLogMailer(l.WithField("component", "mail"))
	}

	return mail.NewHTTPMailer(mail.HTTPConf{
		L:           l.WithField("component", "mail"),
		Endpoint:    conf.Endpoint,
		APIKey:      conf.APIKey,
		SenderEmail: conf.SenderEmail,
		SenderName:  conf.SenderName,
		Timeout:     0,
	})
}
