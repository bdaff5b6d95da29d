// Package session turns a bearer token into the caller's identity. The
// session is built once per request and travels in the request context.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

var (
	ErrNoSecret     = errors.New("session secret is empty")
	ErrInvalidToken = errors.New("invalid or expired token")
)

type Session struct {
	Subject    string    `json:"subject"`
	Role       Role      `json:"role"`
	CustomerID string    `json:"customerId,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (s *Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// CanActFor reports whether the caller may read or change data of customerID.
func (s *Session) CanActFor(customerID string) bool {
	if s.IsAdmin() {
		return true
	}

	return s.Role == RoleCustomer && s.CustomerID != "" && s.CustomerID == customerID
}

type claims struct {
	Role       Role   `json:"role"`
	CustomerID string `json:"customer_id,omitempty"`
	jwt.RegisteredClaims
}

// Keys signs and verifies HS256 session tokens.
type Keys struct {
	secret []byte
}

func NewKeys(secret string) (*Keys, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}

	return &Keys{secret: []byte(secret)}, nil
}

func (k *Keys) Issue(s Session) (string, error) {
	c := claims{
		Role:       s.Role,
		CustomerID: s.CustomerID,
		RegisteredClaims: jwt.RegisteredClaims{ //nolint:exhaustruct
			Subject:   s.Subject,
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return token, nil
}

func (k *Keys) Parse(raw string) (*Session, error) {
	var c claims

	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v: %w", t.Header["alg"], ErrInvalidToken)
		}

		return k.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err) //nolint:errorlint
	}

	if c.Subject == "" || (c.Role != RoleAdmin && c.Role != RoleCustomer) {
		return nil, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}

	s := &Session{Subject: c.Subject, Role: c.Role, CustomerID: c.CustomerID, ExpiresAt: time.Time{}}

	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time.UTC()
	}

	return s, nil
}

type contextKey string

const sessionKey contextKey = "session"

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)

	return s, ok && s != nil
}
