package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/loyalty"
	"github.com/avstrong/bookingdesk/internal/session"
)

type rescheduleBody struct {
	CheckIn  time.Time `json:"checkIn"  validate:"required"`
	CheckOut time.Time `json:"checkOut" validate:"required"`
}

type forceCancelBody struct {
	DepositHandling booking.DepositHandling `json:"depositHandling" validate:"required,oneof=refund partial keep"`
	Amount          float64                 `json:"amount"          validate:"gte=0"`
}

type adjustmentBody struct {
	PointsDelta int    `json:"pointsDelta" validate:"required"`
	Reason      string `json:"reason"      validate:"required"`
}

// ownBooking lets customers through only to their own bookings.
func (s *Server) ownBooking(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())
		if sess.IsAdmin() {
			next.ServeHTTP(w, r)

			return
		}

		b, err := s.bManager.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, err)

			return
		}

		if !sess.CanActFor(b.Customer.ID) {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "booking belongs to another customer"})

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) viewHandler(w http.ResponseWriter, r *http.Request) {
	v, err := s.bManager.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (s *Server) holdHandler(w http.ResponseWriter, r *http.Request) {
	v, err := s.bManager.Hold(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (s *Server) quoteHandler(w http.ResponseWriter, r *http.Request) {
	var req booking.QuoteRequest

	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)

		return
	}

	preview, err := s.bManager.Quote(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) payHandler(w http.ResponseWriter, r *http.Request) {
	var req booking.PayRequest

	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)

		return
	}

	s.respond(w, http.StatusCreated)(s.bManager.Pay(r.Context(), chi.URLParam(r, "id"), req))
}

func (s *Server) rescheduleHandler(w http.ResponseWriter, r *http.Request) {
	var body rescheduleBody

	if err := s.decode(r, &body); err != nil {
		s.writeError(w, err)

		return
	}

	req := booking.RescheduleRequest{CheckIn: body.CheckIn, CheckOut: body.CheckOut}

	s.respond(w, http.StatusOK)(s.bManager.Reschedule(r.Context(), chi.URLParam(r, "id"), req))
}

func (s *Server) forceCancelHandler(w http.ResponseWriter, r *http.Request) {
	var body forceCancelBody

	if err := s.decode(r, &body); err != nil {
		s.writeError(w, err)

		return
	}

	req := booking.ForceCancelRequest{DepositHandling: body.DepositHandling, Amount: body.Amount}

	s.respond(w, http.StatusOK)(s.bManager.ForceCancel(r.Context(), chi.URLParam(r, "id"), req))
}

type transitionFunc func(ctx context.Context, id string) (*booking.Booking, error)

func (s *Server) transitionHandler(do transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, http.StatusOK)(do(r.Context(), chi.URLParam(r, "id")))
	}
}

// respond writes the reconciled booking. When the action itself went through
// but a follow-up failed, the booking travels with the error.
func (s *Server) respond(w http.ResponseWriter, code int) func(*booking.Booking, error) {
	return func(b *booking.Booking, err error) {
		if err != nil {
			s.writeErrorWith(w, err, b)

			return
		}

		writeJSON(w, code, b)
	}
}

func (s *Server) loyaltyHandler(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	if sess, _ := session.FromContext(r.Context()); !sess.CanActFor(customerID) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "loyalty record belongs to another customer"})

		return
	}

	v, err := s.bManager.Loyalty(r.Context(), customerID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (s *Server) adjustPointsHandler(w http.ResponseWriter, r *http.Request) {
	var body adjustmentBody

	if err := s.decode(r, &body); err != nil {
		s.writeError(w, err)

		return
	}

	adj := loyalty.Adjustment{PointsDelta: body.PointsDelta, Reason: body.Reason}

	v, err := s.bManager.AdjustPoints(r.Context(), chi.URLParam(r, "customerID"), adj)
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (s *Server) livenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addRoutes(r chi.Router) {
	r.Get(s.conf.LivenessEndpoint, s.livenessHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/bookings/{id}", func(r chi.Router) {
			r.Use(s.ownBooking)

			r.Get("/", s.viewHandler)
			r.Get("/hold", s.holdHandler)
			r.Post("/quote", s.quoteHandler)
			r.With(s.idempotencyMiddleware(true)).Post("/payments", s.payHandler)

			r.Group(func(r chi.Router) {
				r.Use(s.idempotencyMiddleware(false))

				r.Post("/cancel", s.transitionHandler(s.bManager.Cancel))
				r.Post("/reschedule", s.rescheduleHandler)
			})
		})

		r.Get("/loyalty/{customerID}", s.loyaltyHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminOnly, s.idempotencyMiddleware(false))

			r.Post("/bookings/{id}/confirm", s.transitionHandler(s.bManager.Confirm))
			r.Post("/bookings/{id}/check-in", s.transitionHandler(s.bManager.CheckIn))
			r.Post("/bookings/{id}/check-out", s.transitionHandler(s.bManager.CheckOut))
			r.Post("/bookings/{id}/force-cancel", s.forceCancelHandler)
			r.Post("/loyalty/{customerID}/adjustments", s.adjustPointsHandler)
		})
	})
}
