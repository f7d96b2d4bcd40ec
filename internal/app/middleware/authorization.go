package middleware

import (
	"context"
	"fmt"
	"strings"

	"staybook/internal/app/commands"
	"staybook/internal/app/queries"
	"staybook/internal/domain/booking"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// AuthorizerFunc adapts a plain function.
type AuthorizerFunc func(ctx context.Context, message any) error

func (f AuthorizerFunc) Authorize(ctx context.Context, message any) error { return f(ctx, message) }

// ActorScoped is implemented by messages issued on behalf of an actor.
type ActorScoped interface {
	ActingAs() booking.Actor
}

// RequireActor rejects actor-scoped messages that carry no identity. Finer
// grained rules live in the booking lifecycle.
var RequireActor = AuthorizerFunc(func(_ context.Context, message any) error {
	scoped, ok := message.(ActorScoped)
	if !ok {
		return nil
	}
	actor := scoped.ActingAs()
	if actor.System || actor.Admin || strings.TrimSpace(actor.ID) != "" {
		return nil
	}
	return fmt.Errorf("%w: anonymous actor", booking.ErrNotAuthorized)
})

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
