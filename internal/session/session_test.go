package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/bookingdesk/internal/session"
)

func TestKeys_RoundTrip(t *testing.T) {
	keys, err := session.NewKeys("s3cret")
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour).Truncate(time.Second).UTC()

	token, err := keys.Issue(session.Session{Subject: "u-1", Role: session.RoleCustomer, CustomerID: "cust-1", ExpiresAt: exp})
	require.NoError(t, err)

	s, err := keys.Parse(token)
	require.NoError(t, err)

	assert.Equal(t, "u-1", s.Subject)
	assert.Equal(t, session.RoleCustomer, s.Role)
	assert.True(t, s.ExpiresAt.Equal(exp))
	assert.True(t, s.CanActFor("cust-1"))
	assert.False(t, s.CanActFor("cust-2"))
	assert.False(t, s.IsAdmin())
}

func TestKeys_Rejects(t *testing.T) {
	keys, err := session.NewKeys("s3cret")
	require.NoError(t, err)

	other, err := session.NewKeys("other")
	require.NoError(t, err)

	foreign, err := other.Issue(session.Session{Subject: "u-1", Role: session.RoleAdmin, ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	expired, err := keys.Issue(session.Session{Subject: "u-1", Role: session.RoleAdmin, ExpiresAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)

	noRole, err := keys.Issue(session.Session{Subject: "u-1", Role: "guest", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u-1", "role": "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"foreign secret": foreign,
		"expired":        expired,
		"unknown role":   noRole,
		"alg none":       none,
		"garbage":        "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := keys.Parse(token)
			assert.ErrorIs(t, err, session.ErrInvalidToken)
		})
	}
}

func TestNewKeys_NeedsSecret(t *testing.T) {
	_, err := session.NewKeys("")
	assert.ErrorIs(t, err, session.ErrNoSecret)
}

func TestContext(t *testing.T) {
	_, ok := session.FromContext(context.Background())
	assert.False(t, ok)

	admin := &session.Session{Subject: "a-1", Role: session.RoleAdmin, CustomerID: "", ExpiresAt: time.Time{}}

	got, ok := session.FromContext(session.NewContext(context.Background(), admin))
	require.True(t, ok)
	assert.True(t, got.CanActFor("anyone"))
}
