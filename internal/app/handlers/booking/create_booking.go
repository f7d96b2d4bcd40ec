package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
)

const CreateBookingKey = "booking.create"

type CreateBookingCommand struct {
	BookingID       string
	ListingID       string
	TenantID        string
	Start           time.Time
	End             time.Time
	Today           time.Time
	Now             time.Time
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return CreateBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return c.TenantID + ":" + c.IdempotencyKeyV
}

func (c CreateBookingCommand) ResultPrototype() any { return &dto.Booking{} }

func (c CreateBookingCommand) ActingAs() domainbooking.Actor {
	return domainbooking.Actor{ID: c.TenantID}
}

func (c CreateBookingCommand) Validate() error {
	switch {
	case strings.TrimSpace(c.ListingID) == "":
		return fmt.Errorf("%w: listing_id required", domainbooking.ErrValidation)
	case strings.TrimSpace(c.TenantID) == "":
		return fmt.Errorf("%w: tenant_id required", domainbooking.ErrValidation)
	case c.Start.IsZero() || c.End.IsZero():
		return fmt.Errorf("%w: start and end dates required", domainbooking.ErrValidation)
	}
	if _, err := daterange.New(c.Start, c.End); err != nil {
		return fmt.Errorf("%w: %v", domainbooking.ErrValidation, err)
	}
	return nil
}

// CreateBookingHandler runs the whole check-price-claim-insert sequence in the
// caller's unit of work.
type CreateBookingHandler struct {
	MaxNights int
	Encoder   outbox.EventEncoder
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (dto.Booking, error) {
	unit, err := support.WriteUnit(ctx)
	if err != nil {
		return dto.Booking{}, err
	}
	dr, err := daterange.New(cmd.Start, cmd.End)
	if err != nil {
		return dto.Booking{}, fmt.Errorf("%w: %v", domainbooking.ErrValidation, err)
	}
	listing, err := loadListing(ctx, unit, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.Booking{}, err
	}

	resolver := domainbooking.ConflictResolver{
		Availability: unit.Availability(),
		Bookings:     unit.Bookings(),
		MaxNights:    h.MaxNights,
	}
	if err := resolver.CheckBookable(ctx, domainbooking.BookableRequest{Listing: listing, Range: dr, Today: cmd.Today}); err != nil {
		return dto.Booking{}, err
	}

	quote, err := pricing.ComputeTotal(listing.NightlyRate, dr)
	if err != nil {
		return dto.Booking{}, fmt.Errorf("%w: %v", domainbooking.ErrValidation, err)
	}
	if err := unit.Availability().Claim(ctx, listing.ID, dr); err != nil {
		return dto.Booking{}, err
	}

	id := cmd.BookingID
	if id == "" {
		id = uuid.NewString()
	}
	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:         domainbooking.BookingID(id),
		ListingID:  listing.ID,
		TenantID:   cmd.TenantID,
		Range:      dr,
		TotalPrice: quote.Total,
		CreatedAt:  cmd.Now,
	})
	if err != nil {
		return dto.Booking{}, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return dto.Booking{}, err
	}

	evs := append(b.Drain(), events.DomainEvent(domainavailability.ClaimedEvent(listing.ID, id, dr, cmd.Now)))
	if err := publish(ctx, unit, h.Encoder, evs...); err != nil {
		return dto.Booking{}, err
	}
	return dto.MapBooking(b, listing.LandlordID), nil
}

var _ commands.Handler[CreateBookingCommand, dto.Booking] = (*CreateBookingHandler)(nil)
