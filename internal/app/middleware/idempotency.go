package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/domain/booking"
)

// IdempotentCommand must be implemented by commands that want idempotency guarantees.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // should match the handler result type
}

// IdempotencyRecord is either a stored result or, with InFlight set, the
// marker of a request that is still running.
type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	OccurredAt time.Time
	InFlight   bool
}

// IdempotencyStore keeps results of successful commands for ttl.
//
// Claim atomically inserts an in-flight marker for lease and reports false
// when any live record already holds the key. Forget drops an in-flight
// marker so a failed request can be retried; stored results are left alone.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord, ttl time.Duration) error
	Claim(ctx context.Context, key string, lease time.Duration) (bool, error)
	Forget(ctx context.Context, key string) error
}

// ErrRequestInFlight is returned when a request with the same key is still
// running after the wait window.
var ErrRequestInFlight = fmt.Errorf("%w: request with this idempotency key is still in progress", booking.ErrUnavailable)

var (
	inFlightLease = time.Minute
	inFlightWait  = 2 * time.Second
	inFlightPoll  = 50 * time.Millisecond
)

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency replays the stored result of a command key. Only successes are
// stored: a rejected booking may legitimately succeed on a later attempt.
// Concurrent requests with one key are serialised through an in-flight
// marker; latecomers wait for the first result and replay it.
func Idempotency(store IdempotencyStore, codec ResultCodec, ttl time.Duration) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	replay := replayer{store: store, codec: codec, ttl: ttl}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			// keys are scoped per command so one key cannot replay another command's result
			key := cmd.Key() + ":" + idCmd.IdempotencyKey()
			if res, hit, err := replay.acquire(ctx, key, idCmd.ResultPrototype()); err != nil || hit {
				return res, err
			}
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				if ferr := store.Forget(ctx, key); ferr != nil {
					return nil, errors.Join(err, ferr)
				}
				return nil, err
			}
			if err := replay.remember(ctx, key, res); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}

type replayer struct {
	store IdempotencyStore
	codec ResultCodec
	ttl   time.Duration
}

// acquire either returns a replayed result (hit) or leaves the caller holding
// the in-flight marker for key.
func (r replayer) acquire(ctx context.Context, key string, proto any) (any, bool, error) {
	deadline := time.Now().Add(inFlightWait)
	for {
		rec, found, err := r.store.Get(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if found && !rec.InFlight {
			res, err := r.decode(rec, proto)
			return res, err == nil, err
		}
		if !found {
			claimed, err := r.store.Claim(ctx, key, inFlightLease)
			if err != nil || claimed {
				return nil, false, err
			}
		}
		if !time.Now().Before(deadline) {
			return nil, false, ErrRequestInFlight
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(inFlightPoll):
		}
	}
}

func (r replayer) decode(rec IdempotencyRecord, proto any) (any, error) {
	if proto == nil {
		return nil, errMissingPrototype
	}
	if err := r.codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	// handlers return values, prototypes are pointers
	if rv := reflect.ValueOf(proto); rv.Kind() == reflect.Pointer && !rv.IsNil() {
		return rv.Elem().Interface(), nil
	}
	return proto, nil
}

func (r replayer) remember(ctx context.Context, key string, res any) error {
	rec := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
	if res != nil {
		payload, err := r.codec.Encode(res)
		if err != nil {
			return err
		}
		rec.Payload = payload
	}
	return r.store.Save(ctx, rec, r.ttl)
}
