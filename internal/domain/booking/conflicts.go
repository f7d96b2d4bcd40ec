package booking

import (
	"context"
	"fmt"
	"time"

	"staybook/internal/domain/availability"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

// DefaultMaxNights mirrors the longest stay the engine accepts.
const DefaultMaxNights = 30

type BookableRequest struct {
	Listing   *listings.Listing
	Range     daterange.DateRange
	Today     time.Time
	Excluding BookingID
}

// ConflictResolver decides whether a range may be booked. Both the slot check
// and the overlap check run; slots model blackouts and the overlap check
// guards against racing reservations.
type ConflictResolver struct {
	Availability availability.Store
	Bookings     Repository
	MaxNights    int
}

// CheckBookable returns the first failing reason, in order: listing active,
// duration window, start not in the past, every slot open, no active overlap.
// A closed day held by an active booking counts as an overlap.
func (r ConflictResolver) CheckBookable(ctx context.Context, req BookableRequest) error {
	if req.Listing == nil {
		return fmt.Errorf("%w: listing", ErrNotFound)
	}
	if !req.Listing.Active {
		return fmt.Errorf("%w: listing %s", ErrListingInactive, req.Listing.ID)
	}
	if err := req.Range.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	maxNights := r.MaxNights
	if maxNights <= 0 {
		maxNights = DefaultMaxNights
	}
	if n := req.Range.Nights(); n < 1 || n > maxNights {
		return fmt.Errorf("%w: %d nights, allowed 1..%d", ErrOutOfWindow, n, maxNights)
	}
	if req.Range.Start.Before(daterange.Day(req.Today)) {
		return fmt.Errorf("%w: start %s is in the past", ErrOutOfWindow, daterange.FormatDay(req.Range.Start))
	}
	ok, err := r.Availability.IsRangeAvailable(ctx, req.Listing.ID, req.Range)
	if err != nil {
		return err
	}
	clash, err := r.firstOverlap(ctx, req)
	if err != nil {
		return err
	}
	// Days closed by another active booking are reported as an overlap;
	// DateUnavailable is kept for days closed without one (blackouts).
	if !ok && clash == nil {
		return fmt.Errorf("%w: %s", ErrDateUnavailable, req.Range)
	}
	if clash != nil {
		return fmt.Errorf("%w: booking %s holds %s", ErrBookingOverlap, clash.ID, clash.Range)
	}
	return nil
}

func (r ConflictResolver) firstOverlap(ctx context.Context, req BookableRequest) (*Booking, error) {
	clashing, err := r.Bookings.ActiveOverlapping(ctx, req.Listing.ID, req.Range, req.Excluding)
	if err != nil {
		return nil, err
	}
	for _, other := range clashing {
		if other.ID != req.Excluding && other.Status.Active() && other.Range.Overlaps(req.Range) {
			return other, nil
		}
	}
	return nil, nil
}
