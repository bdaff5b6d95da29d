package booking

import (
	"context"
	"fmt"
)

type ctxKey struct{}

// NewContextWithIdempotencyKey tags the mutations of one user action. The
// owner of record applies a key at most once per operation, so a re-triggered
// action with the same key changes nothing.
func NewContextWithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ctxKey{}, key)
}

func IdempotencyKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(ctxKey{}).(string)

	return key, ok && key != ""
}

// ensureIdempotencyKey keeps the caller's key or mints one, so every write and
// the event it publishes share a key.
func (m *Manager) ensureIdempotencyKey(ctx context.Context) (context.Context, string, error) {
	if key, ok := IdempotencyKeyFromContext(ctx); ok {
		return ctx, key, nil
	}

	key, err := m.idGen.GetID(ctx)
	if err != nil {
		return ctx, "", fmt.Errorf("%w: %w", ErrNextID, err)
	}

	return NewContextWithIdempotencyKey(ctx, key), key, nil
}
