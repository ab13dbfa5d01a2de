package ports

import (
	"context"
	"time"
)

// IdempotencyStore remembers which course a client supplied key produced.
//
// A create claims the key with Reserve before writing, then either Complete
// or Release. Concurrent retries with the same key see the claim and never
// reach the repository.
type IdempotencyStore interface {
	// Reserve claims key. A zero id and nil error means the caller now owns
	// the key. A non-zero id is the course of an earlier completed create.
	// domain.ErrRequestInProgress means another request holds the claim.
	Reserve(ctx context.Context, scope, key string) (courseID int64, err error)
	// Complete records the course created under a reserved key.
	Complete(ctx context.Context, scope, key string, courseID int64) error
	// Release drops a claim whose create failed.
	Release(ctx context.Context, scope, key string) error
}

type idempotencyKey struct{}

// ContextWithIdempotencyKey attaches the Idempotency-Key header value to ctx.
func ContextWithIdempotencyKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, idempotencyKey{}, key)
}

// IdempotencyKeyFromContext returns the key attached to ctx, if any.
func IdempotencyKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKey{}).(string)
	return key
}

// NopIdempotencyStore never remembers anything. It is used when no redis
// instance is configured.
type NopIdempotencyStore struct{}

func (NopIdempotencyStore) Reserve(context.Context, string, string) (int64, error) { return 0, nil }

func (NopIdempotencyStore) Complete(context.Context, string, string, int64) error { return nil }

func (NopIdempotencyStore) Release(context.Context, string, string) error { return nil }

const (
	// DefaultIdempotencyTTL bounds how long a replay is possible.
	DefaultIdempotencyTTL = 24 * time.Hour
	// ReservationTTL bounds how long a claim survives a crashed create.
	ReservationTTL = time.Minute
)
