// Package apperror holds the error taxonomy shared by the booking desk: input
// validation, lifecycle policy, date range and pricing failures, and failures of
// the owner of record.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrMissingPrice     = errors.New("missing price")
	ErrNotFound         = errors.New("record not found")
)

type ValidationError struct {
	fields map[string][]string
}

func NewValidation() *ValidationError {
	return &ValidationError{
		fields: make(map[string][]string),
	}
}

// Validation builds a ValidationError carrying a single field message.
func Validation(field, msg string) *ValidationError {
	ve := NewValidation()
	ve.Add(field, msg)

	return ve
}

func IsValidation(err error) *ValidationError {
	if err == nil {
		return nil
	}

	var validationErr *ValidationError

	if errors.As(err, &validationErr) {
		return validationErr
	}

	return nil
}

func (ve *ValidationError) Add(field, msg string) {
	ve.fields[field] = append(ve.fields[field], msg)
}

func (ve *ValidationError) Count() int {
	return len(ve.fields)
}

// OrNil returns nil when no field failed so callers can return it directly.
func (ve *ValidationError) OrNil() error {
	if ve.Count() == 0 {
		return nil
	}

	return ve
}

func (ve *ValidationError) Fields() map[string][]string {
	return ve.fields
}

func (ve *ValidationError) Error() string {
	keys := make([]string, 0, len(ve.fields))
	for k := range ve.fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(ve.fields[k], "; ")))
	}

	return "validation failed: " + strings.Join(parts, ", ")
}

type PolicyViolation struct {
	Action string
	Reason string
}

func Policy(action, reason string) *PolicyViolation {
	return &PolicyViolation{Action: action, Reason: reason}
}

func IsPolicy(err error) *PolicyViolation {
	if err == nil {
		return nil
	}

	var policyErr *PolicyViolation

	if errors.As(err, &policyErr) {
		return policyErr
	}

	return nil
}

func (pv *PolicyViolation) Error() string {
	return fmt.Sprintf("action %q not permitted: %s", pv.Action, pv.Reason)
}

// RemoteFailure reports that a collaborator (owner of record, mail provider)
// failed or answered with a non-success status.
type RemoteFailure struct {
	Op         string
	StatusCode int
	Err        error
}

func Remote(op string, statusCode int, err error) *RemoteFailure {
	return &RemoteFailure{Op: op, StatusCode: statusCode, Err: err}
}

func IsRemote(err error) *RemoteFailure {
	if err == nil {
		return nil
	}

	var remoteErr *RemoteFailure

	if errors.As(err, &remoteErr) {
		return remoteErr
	}

	return nil
}

func (rf *RemoteFailure) Error() string {
	if rf.StatusCode != 0 {
		return fmt.Sprintf("remote %s failed with status %d: %v", rf.Op, rf.StatusCode, rf.Err)
	}

	return fmt.Sprintf("remote %s failed: %v", rf.Op, rf.Err)
}

func (rf *RemoteFailure) Unwrap() error {
	return rf.Err
}
