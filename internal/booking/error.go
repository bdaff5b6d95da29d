package booking

import "errors"

var (
	ErrIdempotencyKey = errors.New("idempotency key not found")
	ErrNextID         = errors.New("get next id from generator")
)
