package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
)

type BookingID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// Active bookings hold an exclusive claim on their date range.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusCancelled:
		return StatusCancelled, nil
	case StatusCompleted:
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, value)
}

type Booking struct {
	ID         BookingID
	ListingID  listings.ListingID
	TenantID   string
	Range      daterange.DateRange
	TotalPrice money.Money
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// Save inserts a new booking (Version 0) or updates an existing one when
	// the stored version still matches; it bumps Version on success.
	Save(ctx context.Context, b *Booking) error
	// ActiveOverlapping returns PENDING/CONFIRMED bookings of the listing whose
	// range overlaps dr, skipping excluding.
	ActiveOverlapping(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange, excluding BookingID) ([]*Booking, error)
	// List returns one page of bookings matching f, newest first, together
	// with the number of matches across all pages.
	List(ctx context.Context, f ListFilter, page Page) ([]*Booking, int, error)
	// DueForCompletion returns active bookings whose end is before today.
	DueForCompletion(ctx context.Context, today time.Time, limit int) ([]BookingID, error)
	// StalePending returns PENDING bookings created before the threshold.
	StalePending(ctx context.Context, createdBefore time.Time, limit int) ([]BookingID, error)
}

// ListFilter narrows List. Empty fields match everything and a zero Range
// matches all dates. LandlordID selects bookings of that landlord's listings.
type ListFilter struct {
	ListingID  listings.ListingID
	TenantID   string
	LandlordID string
	Range      daterange.DateRange
}

// Page bounds a list read. Limit <= 0 means no limit.
type Page struct {
	Limit  int
	Offset int
}

// Window slices n items down to the page's bounds.
func (p Page) Window(n int) (from, to int) {
	from = min(max(p.Offset, 0), n)
	to = n
	if p.Limit > 0 && from+p.Limit < n {
		to = from + p.Limit
	}
	return from, to
}

type CreateParams struct {
	ID         BookingID
	ListingID  listings.ListingID
	TenantID   string
	Range      daterange.DateRange
	TotalPrice money.Money
	CreatedAt  time.Time
}

// New builds a PENDING booking. Price and range must already be validated by
// the conflict resolver and the price calculator.
func New(p CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(p.ID)) == "" {
		return nil, fmt.Errorf("%w: booking id required", ErrValidation)
	}
	if strings.TrimSpace(p.TenantID) == "" {
		return nil, fmt.Errorf("%w: tenant id required", ErrValidation)
	}
	if err := p.Range.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if p.TotalPrice.IsNegative() {
		return nil, fmt.Errorf("%w: total price must not be negative", ErrValidation)
	}
	now := p.CreatedAt.UTC()
	b := &Booking{
		ID:         p.ID,
		ListingID:  p.ListingID,
		TenantID:   p.TenantID,
		Range:      p.Range,
		TotalPrice: p.TotalPrice,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.Record(BookingCreated{
		BookingID:  b.ID,
		ListingID:  b.ListingID,
		TenantID:   b.TenantID,
		Range:      b.Range,
		TotalPrice: b.TotalPrice.String(),
		Currency:   b.TotalPrice.Currency,
		At:         now,
	})
	return b, nil
}

// Reschedule moves an active booking to a new range at a new price. The
// caller validates the transition through the lifecycle first.
func (b *Booking) Reschedule(dr daterange.DateRange, total money.Money, now time.Time) error {
	if !b.Status.Active() {
		return fmt.Errorf("%w: booking is %s", ErrInvalidTransition, b.Status)
	}
	previous := b.Range
	b.Range = dr
	b.TotalPrice = total
	b.UpdatedAt = now.UTC()
	b.Record(BookingRescheduled{
		BookingID:  b.ID,
		ListingID:  b.ListingID,
		Previous:   previous,
		Range:      dr,
		TotalPrice: total.String(),
		At:         b.UpdatedAt,
	})
	return nil
}

// Clone copies the booking without its pending events.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.EventRecorder = events.EventRecorder{}
	return &c
}
