package idgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

// GetID returns a random UUID, used as record id and idempotency key.
func (g *Generator) GetID(_ context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}

	return id.String(), nil
}

// BookingCode returns the short human-facing code printed on confirmations.
func (g *Generator) BookingCode() string {
	return "BK-" + strings.ToUpper(shortuuid.New()[:8])
}
