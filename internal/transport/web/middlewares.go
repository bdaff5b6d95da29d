package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/avstrong/bookingdesk/internal/apperror"
	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/session"
)

const requestIDHeader = "X-Request-ID"

func (s *Server) loggerMiddleware() func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now().UTC()

			var traceID string

			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				traceID = sc.TraceID().String()
			} else {
				traceID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, traceID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			s.l.WithField("trace_id", traceID).LogInfo(
				"type: access, method: %s, url: %s, proto: %s, status: %d, userAgent: %s, latency: %s",
				r.Method,
				r.URL.Path,
				r.Proto,
				ww.Status(),
				r.Header.Get("User-Agent"),
				time.Since(start),
			)
		})
	}
}

func (s *Server) recoverMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if re := recover(); re != nil {
					err, ok := re.(error)
					if !ok {
						err = fmt.Errorf("%v: %w", re, ErrPanic)
					}
					s.l.LogErrorf("type: panic, error: %v", err)
					writeJSON(w, http.StatusInternalServerError, errorBody{Error: http.StatusText(http.StatusInternalServerError)})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// authMiddleware turns the bearer token into a session. Handlers below it can
// rely on session.FromContext.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing bearer token"})

			return
		}

		sess, err := s.keys.Parse(raw)
		if err != nil {
			s.l.LogDebug("Rejected token: %v", err)
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid or expired token"})

			return
		}

		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
	})
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := session.FromContext(r.Context()); !ok || !sess.IsAdmin() {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "admin role required"})

			return
		}

		next.ServeHTTP(w, r)
	})
}

// idempotencyMiddleware forwards the Idempotency-Key header, when present, to
// the owner of record. Payments refuse to run without one.
func (s *Server) idempotencyMiddleware(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				if required {
					s.writeError(w, apperror.Validation("Idempotency-Key", "header is missing"))

					return
				}

				next.ServeHTTP(w, r)

				return
			}

			next.ServeHTTP(w, r.WithContext(booking.NewContextWithIdempotencyKey(r.Context(), key)))
		})
	}
}

func (s *Server) applyMiddlewares(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, mw := range middlewares {
		h = mw(h)
	}

	return h
}
