package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"staybook/internal/app/middleware"
)

const idempotencyPrefix = "staybook:idem:"

// IdempotencyStore keeps command results under a key with a native TTL.
type IdempotencyStore struct {
	Client goredis.Cmdable
}

type idempotencyEntry struct {
	Payload    []byte    `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
	InFlight   bool      `json:"in_flight,omitempty"`
}

func (s IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	raw, err := s.Client.Get(ctx, idempotencyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	var entry idempotencyEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{Key: key, Payload: entry.Payload, OccurredAt: entry.OccurredAt, InFlight: entry.InFlight}, true, nil
}

func (s IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord, ttl time.Duration) error {
	raw, err := json.Marshal(idempotencyEntry{Payload: rec.Payload, OccurredAt: rec.OccurredAt.UTC()})
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, idempotencyPrefix+rec.Key, raw, ttl).Err()
}

// Claim relies on SET NX so only one caller wins the marker.
func (s IdempotencyStore) Claim(ctx context.Context, key string, lease time.Duration) (bool, error) {
	raw, err := json.Marshal(idempotencyEntry{OccurredAt: time.Now().UTC(), InFlight: true})
	if err != nil {
		return false, err
	}
	return s.Client.SetNX(ctx, idempotencyPrefix+key, raw, lease).Result()
}

// forgetScript deletes the key only while it still holds an in-flight marker.
var forgetScript = goredis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if raw and string.find(raw, '"in_flight":true', 1, true) then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s IdempotencyStore) Forget(ctx context.Context, key string) error {
	return forgetScript.Run(ctx, s.Client, []string{idempotencyPrefix + key}).Err()
}

var _ middleware.IdempotencyStore = IdempotencyStore{}
