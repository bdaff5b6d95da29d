package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/avstrong/bookingdesk/internal/apperror"
	"github.com/avstrong/bookingdesk/internal/booking"
)

type errorBody struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
	// Booking is set when the action went through but a follow-up failed.
	Booking *booking.Booking `json:"booking,omitempty"`
}

// statusOf maps the error taxonomy to HTTP. NotFound is checked before
// RemoteFailure because the records client wraps a 404 in a RemoteFailure.
func statusOf(err error) int {
	switch {
	case apperror.IsValidation(err) != nil, errors.Is(err, apperror.ErrInvalidDateRange):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrMissingPrice):
		return http.StatusUnprocessableEntity
	case apperror.IsPolicy(err) != nil:
		return http.StatusConflict
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case apperror.IsRemote(err) != nil:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeErrorWith(w, err, nil)
}

func (s *Server) writeErrorWith(w http.ResponseWriter, err error, b *booking.Booking) {
	code := statusOf(err)

	body := errorBody{Error: err.Error(), Fields: nil, Booking: b}

	if ve := apperror.IsValidation(err); ve != nil {
		body.Fields = ve.Fields()
	}

	if code == http.StatusInternalServerError {
		s.l.LogErrorf("Request failed: %v", err)

		body.Error = http.StatusText(code)
	}

	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(v)
}

// decode reads an optional JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperror.Validation("body", fmt.Sprintf("malformed JSON: %v", err))
	}

	err := s.validate.Struct(dst)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate request: %w", err)
	}

	ve := apperror.NewValidation()

	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			ve.Add(fe.Field(), fmt.Sprintf("failed on %s=%s", fe.Tag(), fe.Param()))

			continue
		}

		ve.Add(fe.Field(), fmt.Sprintf("failed on %s", fe.Tag()))
	}

	return ve
}
