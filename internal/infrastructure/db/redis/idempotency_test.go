package redis

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/openstudy/course-api/internal/core/domain"
	"github.com/openstudy/course-api/internal/core/ports"
)

func TestCourseKey(t *testing.T) {
	if got := courseKey("42", "req-1"); got != "idem:course:42:req-1" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestNewIdempotencyStore_DefaultTTL(t *testing.T) {
	s := NewIdempotencyStore(nil, 0)
	if s.ttl != ports.DefaultIdempotencyTTL {
		t.Fatalf("expected default ttl, got %v", s.ttl)
	}
}

// TestIdempotencyStore_RoundTrip runs against a real server when
// REDIS_TEST_ADDR is set.
func TestIdempotencyStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx := context.Background()
	client, err := Connect(ctx, Config{Addr: addr})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	store := NewIdempotencyStore(client, time.Minute)
	key := "test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	defer client.Del(ctx, courseKey("1", key))

	id, err := store.Reserve(ctx, "1", key)
	if err != nil || id != 0 {
		t.Fatalf("expected to own the key, got id=%d err=%v", id, err)
	}
	if _, err := store.Reserve(ctx, "1", key); !errors.Is(err, domain.ErrRequestInProgress) {
		t.Fatalf("expected ErrRequestInProgress while pending, got %v", err)
	}
	if err := store.Complete(ctx, "1", key, 7); err != nil {
		t.Fatalf("complete: %v", err)
	}
	id, err = store.Reserve(ctx, "1", key)
	if err != nil || id != 7 {
		t.Fatalf("expected stored id 7, got %d err=%v", id, err)
	}

	other := key + "-released"
	defer client.Del(ctx, courseKey("1", other))
	if _, err := store.Reserve(ctx, "1", other); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := store.Release(ctx, "1", other); err != nil {
		t.Fatalf("release: %v", err)
	}
	if id, err := store.Reserve(ctx, "1", other); err != nil || id != 0 {
		t.Fatalf("expected released key to be claimable, got id=%d err=%v", id, err)
	}
}
