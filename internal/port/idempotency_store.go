package port

import "context"

type IdempotencyStore interface {
	// SetIdempotency reserves key, returns false if it is already held
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees key so a rejected request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}
