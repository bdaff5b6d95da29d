package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/bookingdesk/internal/apperror"
)

func TestValidationError(t *testing.T) {
	ve := apperror.NewValidation()
	require.NoError(t, ve.OrNil())

	ve.Add("amount", "must not be negative")
	ve.Add("amount", "must not exceed deposit")
	ve.Add("reason", "required")

	err := fmt.Errorf("force cancel: %w", ve.OrNil())

	got := apperror.IsValidation(err)
	require.NotNil(t, got)
	assert.Len(t, got.Fields()["amount"], 2)
	assert.Equal(t, "validation failed: amount: must not be negative; must not exceed deposit, reason: required", got.Error())
}

func TestPolicyViolation(t *testing.T) {
	err := fmt.Errorf("cancel booking: %w", apperror.Policy("cancel", "less than 24h before check-in"))

	pv := apperror.IsPolicy(err)
	require.NotNil(t, pv)
	assert.Equal(t, "cancel", pv.Action)
	assert.Nil(t, apperror.IsValidation(err))
}

func TestRemoteFailureUnwraps(t *testing.T) {
	err := fmt.Errorf("get booking: %w", apperror.Remote("GET /bookings/1", 404, apperror.ErrNotFound))

	rf := apperror.IsRemote(err)
	require.NotNil(t, rf)
	assert.Equal(t, 404, rf.StatusCode)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.Nil(t, apperror.IsRemote(nil))
}
