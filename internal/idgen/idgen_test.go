package idgen_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/bookingdesk/internal/idgen"
)

func TestGetID(t *testing.T) {
	g := idgen.New()

	a, err := g.GetID(context.Background())
	require.NoError(t, err)

	b, err := g.GetID(context.Background())
	require.NoError(t, err)

	_, err = uuid.Parse(a)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBookingCode(t *testing.T) {
	code := idgen.New().BookingCode()

	assert.Len(t, code, 11)
	assert.Regexp(t, `^BK-[0-9A-Z]{8}$`, code)
}
