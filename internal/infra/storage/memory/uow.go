package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
)

// ErrFactoryMisconfigured indicates a factory without a store.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires the in-memory store into a unit-of-work boundary.
type Factory struct {
	Store *Store
}

// Begin takes the store lock: shared for read-only units, exclusive otherwise.
func (f Factory) Begin(_ context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	if opts.ReadOnly {
		f.Store.mu.RLock()
	} else {
		f.Store.mu.Lock()
	}
	return &Unit{
		store:    f.Store,
		readOnly: opts.ReadOnly,
		slots:    make(map[slotKey]bool),
		bookings: make(map[domainbooking.BookingID]*domainbooking.Booking),
	}, nil
}

// Unit stages writes and applies them on Commit.
type Unit struct {
	store    *Store
	readOnly bool
	once     sync.Once

	slots    map[slotKey]bool
	bookings map[domainbooking.BookingID]*domainbooking.Booking
	records  []appoutbox.EventRecord
}

func (u *Unit) Listings() domainlistings.Repository { return unitListings{u} }

func (u *Unit) Availability() domainavailability.Store { return unitAvailability{u} }

func (u *Unit) Bookings() domainbooking.Repository { return unitBookings{u} }

func (u *Unit) Outbox() appoutbox.Outbox { return unitOutbox{u} }

func (u *Unit) Commit(context.Context) error {
	committed := false
	u.once.Do(func() {
		committed = true
		if !u.readOnly {
			for k, v := range u.slots {
				u.store.slots[k] = v
			}
			for id, b := range u.bookings {
				u.store.bookings[id] = b
			}
			for _, rec := range u.records {
				u.store.outbox = append(u.store.outbox, &outboxEntry{record: rec, state: stateNew, next: rec.OccurredAt})
			}
		}
		u.release()
	})
	if !committed {
		return errUnitClosed
	}
	return nil
}

func (u *Unit) Rollback(context.Context) error {
	u.once.Do(u.release)
	return nil
}

func (u *Unit) release() {
	u.slots, u.bookings, u.records = nil, nil, nil
	if u.readOnly {
		u.store.mu.RUnlock()
		return
	}
	u.store.mu.Unlock()
}

var errUnitClosed = errors.New("memory: unit of work already closed")

func (u *Unit) writable() error {
	if u.readOnly {
		return ErrReadOnlyUnit
	}
	if u.slots == nil {
		return errUnitClosed
	}
	return nil
}

var _ uow.UoWFactory = Factory{}
