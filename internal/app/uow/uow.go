package uow

import (
	"context"
	"errors"

	"staybook/internal/app/outbox"
	"staybook/internal/domain/availability"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/listings"
)

// UnitOfWork coordinates repositories inside a transaction boundary. Nothing
// written through it is visible to other units before Commit.
type UnitOfWork interface {
	Listings() listings.Repository
	Availability() availability.Store
	Bookings() booking.Repository
	Outbox() outbox.Outbox

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// ErrTxConflict marks store failures that are safe to retry: serialization
// failures, deadlocks, lock timeouts and write conflicts.
var ErrTxConflict = errors.New("uow: transaction conflict")

// IsRetryable reports whether a failed unit of work may be replayed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTxConflict) || errors.Is(err, booking.ErrConcurrentUpdate)
}
