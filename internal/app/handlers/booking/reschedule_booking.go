package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
)

const RescheduleBookingKey = "booking.reschedule"

type RescheduleBookingCommand struct {
	BookingID string
	Start     time.Time
	End       time.Time
	Actor     domainbooking.Actor
	Today     time.Time
	Now       time.Time
}

func (c RescheduleBookingCommand) Key() string { return RescheduleBookingKey }

func (c RescheduleBookingCommand) ActingAs() domainbooking.Actor { return c.Actor }

func (c RescheduleBookingCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return fmt.Errorf("%w: booking id required", domainbooking.ErrValidation)
	}
	if _, err := daterange.New(c.Start, c.End); err != nil {
		return fmt.Errorf("%w: %v", domainbooking.ErrValidation, err)
	}
	return nil
}

// RescheduleBookingHandler moves an active booking to new dates. The old range
// is released first so the booking never conflicts with itself; any failure
// rolls the release back with the rest of the unit.
type RescheduleBookingHandler struct {
	Lifecycle domainbooking.Lifecycle
	MaxNights int
	Encoder   outbox.EventEncoder
}

func (h *RescheduleBookingHandler) Handle(ctx context.Context, cmd RescheduleBookingCommand) (dto.Booking, error) {
	unit, err := support.WriteUnit(ctx)
	if err != nil {
		return dto.Booking{}, err
	}
	dr, err := daterange.New(cmd.Start, cmd.End)
	if err != nil {
		return dto.Booking{}, fmt.Errorf("%w: %v", domainbooking.ErrValidation, err)
	}
	b, err := loadBooking(ctx, unit, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	listing, err := loadListing(ctx, unit, b.ListingID)
	if err != nil {
		return dto.Booking{}, err
	}
	if _, err := h.Lifecycle.Check(b, domainbooking.Transition{
		Event:      domainbooking.EventReschedule,
		Actor:      cmd.Actor,
		LandlordID: listing.LandlordID,
		Today:      cmd.Today,
		At:         cmd.Now,
	}); err != nil {
		return dto.Booking{}, err
	}

	previous := b.Range
	if err := unit.Availability().Release(ctx, b.ListingID, previous); err != nil {
		return dto.Booking{}, err
	}
	resolver := domainbooking.ConflictResolver{
		Availability: unit.Availability(),
		Bookings:     unit.Bookings(),
		MaxNights:    h.MaxNights,
	}
	if err := resolver.CheckBookable(ctx, domainbooking.BookableRequest{
		Listing:   listing,
		Range:     dr,
		Today:     cmd.Today,
		Excluding: b.ID,
	}); err != nil {
		return dto.Booking{}, err
	}
	quote, err := pricing.ComputeTotal(listing.NightlyRate, dr)
	if err != nil {
		return dto.Booking{}, fmt.Errorf("%w: %v", domainbooking.ErrValidation, err)
	}
	if err := unit.Availability().Claim(ctx, b.ListingID, dr); err != nil {
		return dto.Booking{}, err
	}
	if err := b.Reschedule(dr, quote.Total, cmd.Now); err != nil {
		return dto.Booking{}, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return dto.Booking{}, err
	}
	evs := b.Drain()
	evs = append(evs,
		domainavailability.ReleasedEvent(b.ListingID, string(b.ID), previous, cmd.Now),
		domainavailability.ClaimedEvent(b.ListingID, string(b.ID), dr, cmd.Now),
	)
	if err := publish(ctx, unit, h.Encoder, evs...); err != nil {
		return dto.Booking{}, err
	}
	return dto.MapBooking(b, listing.LandlordID), nil
}

var _ commands.Handler[RescheduleBookingCommand, dto.Booking] = (*RescheduleBookingHandler)(nil)
