package booking

import (
	"context"
	"errors"
	"fmt"

	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/events"
)

func loadListing(ctx context.Context, unit uow.UnitOfWork, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	listing, err := unit.Listings().ByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainlistings.ErrNotFound) {
			return nil, fmt.Errorf("%w: listing %s", domainbooking.ErrNotFound, id)
		}
		return nil, err
	}
	return listing, nil
}

// landlordOf tolerates a listing that has since disappeared; tenant and admin
// rights do not depend on it.
func landlordOf(ctx context.Context, unit uow.UnitOfWork, id domainlistings.ListingID) (string, error) {
	listing, err := unit.Listings().ByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainlistings.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return listing.LandlordID, nil
}

func loadBooking(ctx context.Context, unit uow.UnitOfWork, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	b, err := unit.Bookings().ByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainbooking.ErrNotFound) {
			return nil, fmt.Errorf("%w: booking %s", domainbooking.ErrNotFound, id)
		}
		return nil, err
	}
	return b, nil
}

func publish(ctx context.Context, unit uow.UnitOfWork, encoder outbox.EventEncoder, evs ...events.DomainEvent) error {
	return outbox.RecordDomainEvents(ctx, unit.Outbox(), encoder, evs)
}
