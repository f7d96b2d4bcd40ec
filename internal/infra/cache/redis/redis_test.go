package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"staybook/internal/app/middleware"
)

// Integration tests; they need a disposable Redis at REDIS_TEST_ADDR.
func testClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client, err := NewClient(addr, "", 0)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestIdempotencyStoreRoundTrip(t *testing.T) {
	client := testClient(t)
	store := IdempotencyStore{Client: client}
	ctx := context.Background()
	key := "test:" + time.Now().Format(time.RFC3339Nano)

	if _, ok, err := store.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	rec := middleware.IdempotencyRecord{Key: key, Payload: []byte(`{"id":"bk-1"}`), OccurredAt: time.Now()}
	if err := store.Save(ctx, rec, time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got.Payload) != `{"id":"bk-1"}` {
		t.Fatalf("payload = %s", got.Payload)
	}
}

func TestIdempotencyStoreClaimIsExclusive(t *testing.T) {
	client := testClient(t)
	store := IdempotencyStore{Client: client}
	ctx := context.Background()
	key := "claim:" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() { client.Del(ctx, idempotencyPrefix+key) })

	if ok, err := store.Claim(ctx, key, time.Minute); err != nil || !ok {
		t.Fatalf("first claim = %v, %v", ok, err)
	}
	if ok, err := store.Claim(ctx, key, time.Minute); err != nil || ok {
		t.Fatalf("second claim = %v, %v", ok, err)
	}
	if rec, ok, _ := store.Get(ctx, key); !ok || !rec.InFlight {
		t.Fatalf("marker = %+v", rec)
	}
	if err := store.Forget(ctx, key); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if ok, _ := store.Claim(ctx, key, time.Minute); !ok {
		t.Fatal("forgotten key must be claimable again")
	}
	if err := store.Save(ctx, middleware.IdempotencyRecord{Key: key, Payload: []byte(`"b-1"`)}, time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Forget(ctx, key); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if rec, ok, _ := store.Get(ctx, key); !ok || rec.InFlight {
		t.Fatalf("stored result dropped: %+v", rec)
	}
}

func TestFixedWindowLimiterBlocksAfterLimit(t *testing.T) {
	client := testClient(t)
	fixed := time.Date(2031, 1, 1, 12, 0, 30, 0, time.UTC)
	limiter := FixedWindowLimiter{Client: client, Limit: 2, Window: time.Minute, Now: func() time.Time { return fixed }}
	key := "test-user-" + time.Now().Format("150405.000000000")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, key)
		if err != nil || !d.Allowed {
			t.Fatalf("hit %d: allowed=%v err=%v", i, d.Allowed, err)
		}
	}
	d, err := limiter.Allow(ctx, key)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("expected block, got %+v", d)
	}
	if d.RetryAfter != 30*time.Second {
		t.Fatalf("retry after = %s", d.RetryAfter)
	}
}
