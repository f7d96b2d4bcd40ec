package support

import (
	"context"

	"staybook/internal/app/uow"
)

// BeginReadOnlyUnit reuses the unit already bound to ctx or opens a read-only
// one. release is a no-op for a reused unit.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (unit uow.UnitOfWork, readCtx context.Context, release func(), err error) {
	if existing, ok := uow.FromContext(ctx); ok {
		return existing, ctx, func() {}, nil
	}
	if factory == nil {
		return nil, ctx, func() {}, uow.ErrUnitOfWorkMissing
	}
	unit, err = factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, func() {}, err
	}
	readCtx = uow.Bind(ctx, unit)
	return unit, readCtx, func() { _ = unit.Rollback(context.WithoutCancel(readCtx)) }, nil
}

// WriteUnit returns the unit of work installed by the transaction middleware.
func WriteUnit(ctx context.Context) (uow.UnitOfWork, error) {
	return uow.MustFromContext(ctx)
}
