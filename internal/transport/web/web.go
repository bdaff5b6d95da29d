package web

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/logger"
	"github.com/avstrong/bookingdesk/internal/session"
)

var (
	ErrPanic  = errors.New("panic in http handler")
	ErrNoKeys = errors.New("session keys are required")
)

type Server struct {
	srv      *http.Server
	router   chi.Router
	l        *logger.Logger
	conf     Conf
	bManager *booking.Manager
	keys     *session.Keys
	validate *validator.Validate
}

type Conf struct {
	L                 *logger.Logger
	ServerLogger      *log.Logger
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	LivenessEndpoint  string
	Keys              *session.Keys
}

func New(ctx context.Context, conf Conf, bookingManager *booking.Manager) (*Server, error) {
	if conf.Keys == nil {
		return nil, ErrNoKeys
	}

	router := chi.NewRouter()

	server := &Server{
		srv:      nil,
		router:   router,
		l:        conf.L,
		conf:     conf,
		bManager: bookingManager,
		keys:     conf.Keys,
		validate: newValidator(),
	}

	server.addRoutes(router)

	//nolint:exhaustruct
	server.srv = &http.Server{
		Addr:              net.JoinHostPort(conf.Host, conf.Port),
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
		ErrorLog:          conf.ServerLogger,
		Handler:           server.applyMiddlewares(router, server.loggerMiddleware(), server.recoverMiddleware()),
		BaseContext: func(listener net.Listener) context.Context {
			return ctx
		},
	}

	return server, nil
}

func (s *Server) Srv() *http.Server {
	return s.srv
}

// Handler is the full middleware chain, used by tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// newValidator reports fields by their JSON names so the messages match the
// request body.
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}
