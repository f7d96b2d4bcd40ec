package sql

import (
	"context"
	stdsql "database/sql"
	"errors"

	"gorm.io/gorm"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
)

var ErrUnitOfWorkNotConfigured = errors.New("sql: unit of work factory missing database")

// Factory opens one database transaction per unit of work.
type Factory struct {
	DB        *gorm.DB
	Isolation stdsql.IsolationLevel
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	isolation := f.Isolation
	if isolation == stdsql.LevelDefault {
		isolation = stdsql.LevelSerializable
	}
	tx := f.DB.WithContext(ctx).Begin(&stdsql.TxOptions{Isolation: isolation, ReadOnly: opts.ReadOnly})
	if tx.Error != nil {
		return nil, classify(tx.Error)
	}
	lock := !opts.ReadOnly
	return &Unit{
		tx:           tx,
		listings:     &listingRepository{db: tx},
		availability: &availabilityStore{db: tx, lock: lock},
		bookings:     &bookingRepository{db: tx, lock: lock},
		outbox:       &outboxWriter{db: tx},
	}, nil
}

type Unit struct {
	tx *gorm.DB

	listings     *listingRepository
	availability *availabilityStore
	bookings     *bookingRepository
	outbox       *outboxWriter
}

func (u *Unit) Listings() domainlistings.Repository { return u.listings }

func (u *Unit) Availability() domainavailability.Store { return u.availability }

func (u *Unit) Bookings() domainbooking.Repository { return u.bookings }

func (u *Unit) Outbox() appoutbox.Outbox { return u.outbox }

func (u *Unit) Commit(context.Context) error {
	return classify(u.tx.Commit().Error)
}

func (u *Unit) Rollback(context.Context) error {
	err := u.tx.Rollback().Error
	if errors.Is(err, stdsql.ErrTxDone) {
		return nil
	}
	return err
}

var _ uow.UoWFactory = Factory{}
