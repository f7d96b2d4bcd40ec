package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	appoutbox "staybook/internal/app/outbox"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

type unitListings struct{ u *Unit }

func (r unitListings) ByID(_ context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	listing, ok := r.u.store.listings[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return &listing, nil
}

type unitAvailability struct{ u *Unit }

func (r unitAvailability) slot(k slotKey) (bool, bool) {
	if v, ok := r.u.slots[k]; ok {
		return v, true
	}
	v, ok := r.u.store.slots[k]
	return v, ok
}

func (r unitAvailability) IsRangeAvailable(_ context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) (bool, error) {
	for _, d := range dr.Days() {
		available, ok := r.slot(keyOf(listingID, d))
		if !ok || !available {
			return false, nil
		}
	}
	return true, nil
}

func (r unitAvailability) Claim(_ context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) error {
	return r.set(listingID, dr, false)
}

func (r unitAvailability) Release(_ context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) error {
	return r.set(listingID, dr, true)
}

func (r unitAvailability) set(listingID domainlistings.ListingID, dr daterange.DateRange, available bool) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	for _, d := range dr.Days() {
		r.u.slots[keyOf(listingID, d)] = available
	}
	return nil
}

func (r unitAvailability) Slots(_ context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) ([]domainavailability.Slot, error) {
	var out []domainavailability.Slot
	for _, d := range dr.Days() {
		if available, ok := r.slot(keyOf(listingID, d)); ok {
			out = append(out, domainavailability.Slot{ListingID: listingID, Date: d, Available: available})
		}
	}
	return out, nil
}

type unitBookings struct{ u *Unit }

func (r unitBookings) current(id domainbooking.BookingID) (*domainbooking.Booking, bool) {
	if b, ok := r.u.bookings[id]; ok {
		return b, true
	}
	b, ok := r.u.store.bookings[id]
	return b, ok
}

func (r unitBookings) ByID(_ context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	b, ok := r.current(id)
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return b.Clone(), nil
}

func (r unitBookings) Save(_ context.Context, b *domainbooking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	existing, ok := r.current(b.ID)
	switch {
	case !ok && b.Version != 0:
		return fmt.Errorf("%w: booking %s", domainbooking.ErrNotFound, b.ID)
	case ok && existing.Version != b.Version:
		return fmt.Errorf("%w: booking %s", domainbooking.ErrConcurrentUpdate, b.ID)
	}
	b.Version++
	r.u.bookings[b.ID] = b.Clone()
	return nil
}

// all merges staged bookings over committed ones.
func (r unitBookings) all(match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	var out []*domainbooking.Booking
	for id, b := range r.u.store.bookings {
		if staged, ok := r.u.bookings[id]; ok {
			b = staged
		}
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	for id, b := range r.u.bookings {
		if _, ok := r.u.store.bookings[id]; ok {
			continue
		}
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Range.Start.Equal(out[j].Range.Start) {
			return out[i].Range.Start.Before(out[j].Range.Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r unitBookings) ActiveOverlapping(_ context.Context, listingID domainlistings.ListingID, dr daterange.DateRange, excluding domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	return r.all(func(b *domainbooking.Booking) bool {
		return b.ListingID == listingID && b.ID != excluding && b.Status.Active() && b.Range.Overlaps(dr)
	}), nil
}

func (r unitBookings) List(_ context.Context, f domainbooking.ListFilter, page domainbooking.Page) ([]*domainbooking.Booking, int, error) {
	matches := r.all(func(b *domainbooking.Booking) bool {
		switch {
		case f.ListingID != "" && b.ListingID != f.ListingID:
			return false
		case f.TenantID != "" && b.TenantID != f.TenantID:
			return false
		case !f.Range.IsZero() && !b.Range.Overlaps(f.Range):
			return false
		}
		if f.LandlordID != "" {
			listing, ok := r.u.store.listings[b.ListingID]
			return ok && listing.LandlordID == f.LandlordID
		}
		return true
	})
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})
	from, to := page.Window(len(matches))
	return matches[from:to], len(matches), nil
}

func (r unitBookings) DueForCompletion(_ context.Context, today time.Time, limit int) ([]domainbooking.BookingID, error) {
	today = daterange.Day(today)
	return ids(r.all(func(b *domainbooking.Booking) bool {
		return b.Status.Active() && b.Range.End.Before(today)
	}), limit), nil
}

func (r unitBookings) StalePending(_ context.Context, createdBefore time.Time, limit int) ([]domainbooking.BookingID, error) {
	return ids(r.all(func(b *domainbooking.Booking) bool {
		return b.Status == domainbooking.StatusPending && b.CreatedAt.Before(createdBefore)
	}), limit), nil
}

func ids(items []*domainbooking.Booking, limit int) []domainbooking.BookingID {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]domainbooking.BookingID, 0, len(items))
	for _, b := range items {
		out = append(out, b.ID)
	}
	return out
}

type unitOutbox struct{ u *Unit }

func (o unitOutbox) Add(_ context.Context, record appoutbox.EventRecord) error {
	if err := o.u.writable(); err != nil {
		return err
	}
	o.u.records = append(o.u.records, record)
	return nil
}

var (
	_ domainlistings.Repository = unitListings{}
	_ domainavailability.Store  = unitAvailability{}
	_ domainbooking.Repository  = unitBookings{}
	_ appoutbox.Outbox          = unitOutbox{}
)
