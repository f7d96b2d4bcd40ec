package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"staybook/internal/app/middleware"
)

func TestIdempotencyClaimHasOneWinner(t *testing.T) {
	store := NewIdempotencyStore()
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Claim(ctx, "k", time.Minute)
			if err != nil {
				t.Error(err)
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("winners = %d", wins.Load())
	}
	rec, ok, _ := store.Get(ctx, "k")
	if !ok || !rec.InFlight {
		t.Fatalf("marker = %+v, %v", rec, ok)
	}
}

func TestIdempotencyForgetKeepsResults(t *testing.T) {
	store := NewIdempotencyStore()
	ctx := context.Background()

	if ok, _ := store.Claim(ctx, "failed", time.Minute); !ok {
		t.Fatal("claim failed")
	}
	if err := store.Forget(ctx, "failed"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := store.Claim(ctx, "failed", time.Minute); !ok {
		t.Fatal("forgotten key must be claimable again")
	}

	if err := store.Save(ctx, middleware.IdempotencyRecord{Key: "done", Payload: []byte(`"b-1"`)}, time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := store.Forget(ctx, "done"); err != nil {
		t.Fatal(err)
	}
	if rec, ok, _ := store.Get(ctx, "done"); !ok || rec.InFlight || string(rec.Payload) != `"b-1"` {
		t.Fatalf("stored result dropped: %+v, %v", rec, ok)
	}
	if ok, _ := store.Claim(ctx, "done", time.Minute); ok {
		t.Fatal("claim must not overwrite a stored result")
	}

	if ok, _ := store.Claim(ctx, "lapsed", time.Nanosecond); !ok {
		t.Fatal("claim failed")
	}
	time.Sleep(time.Millisecond)
	if ok, _ := store.Claim(ctx, "lapsed", time.Minute); !ok {
		t.Fatal("expired marker must not block a new claim")
	}
}
