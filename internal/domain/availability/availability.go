package availability

import (
	"context"
	"time"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

// Slot is the per-(listing, day) availability record. A day without a slot
// is closed.
type Slot struct {
	ListingID listings.ListingID
	Date      time.Time
	Available bool
}

// Store is the source of truth for "is this day free". Writes happen only
// inside a unit of work owned by the reservation engine.
type Store interface {
	// IsRangeAvailable reports whether every day in dr has an open slot.
	// Inside a writable unit the touched slots are locked until commit.
	IsRangeAvailable(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) (bool, error)
	// Claim closes every day in dr, creating missing slots as closed.
	Claim(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) error
	// Release opens every day in dr. Calling it twice is a no-op.
	Release(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) error
	// Slots returns the stored slots in dr ordered by day; missing days are omitted.
	Slots(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) ([]Slot, error)
}

// Seeder is used by listing onboarding to publish or black out days.
type Seeder interface {
	Open(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) error
	Block(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) error
}

// Fill expands stored slots into one entry per day of dr, marking missing
// days as closed.
func Fill(listingID listings.ListingID, dr daterange.DateRange, stored []Slot) []Slot {
	index := make(map[time.Time]bool, len(stored))
	for _, s := range stored {
		index[daterange.Day(s.Date)] = s.Available
	}
	days := dr.Days()
	out := make([]Slot, 0, len(days))
	for _, d := range days {
		out = append(out, Slot{ListingID: listingID, Date: d, Available: index[d]})
	}
	return out
}
