package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openstudy/course-api/internal/core/domain"
	"github.com/openstudy/course-api/internal/core/ports"
)

// IdempotencyStore maps client supplied keys to the course they created.
// Key format: idem:course:<scope>:<key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore wraps client. A non-positive ttl falls back to
// ports.DefaultIdempotencyTTL.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = ports.DefaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// pending marks a key claimed by a create that has not finished yet.
const pending = "pending"

// Reserve claims key with SET NX. When the key is already set it reports the
// stored course id, or domain.ErrRequestInProgress while the claim is pending.
func (s *IdempotencyStore) Reserve(ctx context.Context, scope, key string) (int64, error) {
	k := courseKey(scope, key)
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, k, pending, ports.ReservationTTL).Result()
		if err != nil {
			return 0, fmt.Errorf("idempotency reserve: %w", err)
		}
		if ok {
			return 0, nil
		}

		val, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("idempotency reserve: %w", err)
		}
		if val == pending {
			return 0, domain.ErrRequestInProgress
		}

		id, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("idempotency reserve: corrupt value %q: %w", val, err)
		}
		return id, nil
	}
	return 0, domain.ErrRequestInProgress
}

// Complete replaces the claim with courseID for the full ttl.
func (s *IdempotencyStore) Complete(ctx context.Context, scope, key string, courseID int64) error {
	if err := s.client.Set(ctx, courseKey(scope, key), strconv.FormatInt(courseID, 10), s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency complete: %w", err)
	}
	return nil
}

// Release deletes the claim so the client can retry.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if err := s.client.Del(ctx, courseKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func courseKey(scope, key string) string {
	return fmt.Sprintf("idem:course:%s:%s", scope, key)
}
