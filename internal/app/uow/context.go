package uow

import (
	"context"
	"errors"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

type ctxKey struct{}

// ContextWithUnitOfWork stores the provided unit of work in context.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

// FromContext retrieves a unit of work from context if present.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	val := ctx.Value(ctxKey{})
	if val == nil {
		return nil, false
	}
	unit, ok := val.(UnitOfWork)
	return unit, ok
}

// MustFromContext is FromContext for handlers that only run behind the
// transaction middleware.
func MustFromContext(ctx context.Context) (UnitOfWork, error) {
	unit, ok := FromContext(ctx)
	if !ok || unit == nil {
		return nil, ErrUnitOfWorkMissing
	}
	return unit, nil
}

// ContextBinder is implemented by units whose repositories read driver state
// (a session, a tx handle) from the context.
type ContextBinder interface {
	InjectContext(ctx context.Context) context.Context
}

// Bind returns ctx carrying unit, after letting the unit attach its own
// driver state.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if binder, ok := unit.(ContextBinder); ok {
		ctx = binder.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}
