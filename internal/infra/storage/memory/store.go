package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	appoutbox "staybook/internal/app/outbox"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

// ErrReadOnlyUnit is returned when a read-only unit is asked to write.
var ErrReadOnlyUnit = errors.New("memory: write attempted in read-only unit")

type slotKey struct {
	listing domainlistings.ListingID
	day     int64
}

func keyOf(id domainlistings.ListingID, day time.Time) slotKey {
	return slotKey{listing: id, day: daterange.Day(day).Unix()}
}

type outboxEntry struct {
	record   appoutbox.EventRecord
	state    string
	attempts int
	next     time.Time
	lastErr  string
}

// Store is the process-local backing store. A single RWMutex serializes
// writers: a writable unit holds the write lock from Begin until Commit or
// Rollback, which makes every unit serializable.
type Store struct {
	mu       sync.RWMutex
	listings map[domainlistings.ListingID]domainlistings.Listing
	slots    map[slotKey]bool
	bookings map[domainbooking.BookingID]*domainbooking.Booking
	outbox   []*outboxEntry
}

func NewStore() *Store {
	return &Store{
		listings: make(map[domainlistings.ListingID]domainlistings.Listing),
		slots:    make(map[slotKey]bool),
		bookings: make(map[domainbooking.BookingID]*domainbooking.Booking),
	}
}

// PutListing registers or replaces a listing.
func (s *Store) PutListing(_ context.Context, listing *domainlistings.Listing) error {
	if listing == nil {
		return domainlistings.ErrInvalidListing
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[listing.ID] = *listing
	return nil
}

// Open marks every day of dr available. Used by listing onboarding only.
func (s *Store) Open(_ context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) error {
	return s.setDays(listingID, dr, true)
}

// Block closes every day of dr without a booking (landlord blackout).
func (s *Store) Block(_ context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) error {
	return s.setDays(listingID, dr, false)
}

func (s *Store) setDays(listingID domainlistings.ListingID, dr daterange.DateRange, available bool) error {
	if err := dr.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range dr.Days() {
		s.slots[keyOf(listingID, d)] = available
	}
	return nil
}

// Ping satisfies the readiness probe.
func (s *Store) Ping(context.Context) error { return nil }
