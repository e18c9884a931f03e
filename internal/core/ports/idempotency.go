package ports

import "context"

// IdempotencyStore remembers which transaction answered a client-supplied
// Idempotency-Key.
type IdempotencyStore interface {
	Lookup(ctx context.Context, accountID, key string) (txID string, found bool, err error)
	Remember(ctx context.Context, accountID, key, txID string) error
}
