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
)

const TransitionBookingKey = "booking.transition"

// TransitionBookingCommand covers confirm, cancel, complete and expire.
type TransitionBookingCommand struct {
	BookingID string
	Event     domainbooking.Event
	Actor     domainbooking.Actor
	Today     time.Time
	Now       time.Time
}

func (c TransitionBookingCommand) Key() string { return TransitionBookingKey }

func (c TransitionBookingCommand) ActingAs() domainbooking.Actor { return c.Actor }

func (c TransitionBookingCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return fmt.Errorf("%w: booking id required", domainbooking.ErrValidation)
	}
	switch c.Event {
	case domainbooking.EventConfirm, domainbooking.EventCancel, domainbooking.EventComplete, domainbooking.EventExpire:
		return nil
	}
	return fmt.Errorf("%w: unsupported event %q", domainbooking.ErrValidation, c.Event)
}

type TransitionBookingHandler struct {
	Lifecycle domainbooking.Lifecycle
	Encoder   outbox.EventEncoder
}

func (h *TransitionBookingHandler) Handle(ctx context.Context, cmd TransitionBookingCommand) (dto.Booking, error) {
	unit, err := support.WriteUnit(ctx)
	if err != nil {
		return dto.Booking{}, err
	}
	b, err := loadBooking(ctx, unit, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	landlordID, err := landlordOf(ctx, unit, b.ListingID)
	if err != nil {
		return dto.Booking{}, err
	}
	out, err := h.Lifecycle.Apply(b, domainbooking.Transition{
		Event:      cmd.Event,
		Actor:      cmd.Actor,
		LandlordID: landlordID,
		Today:      cmd.Today,
		At:         cmd.Now,
	})
	if err != nil {
		return dto.Booking{}, err
	}
	if out.ReleaseSlots {
		if err := unit.Availability().Release(ctx, b.ListingID, b.Range); err != nil {
			return dto.Booking{}, err
		}
		b.Record(domainavailability.ReleasedEvent(b.ListingID, string(b.ID), b.Range, cmd.Now))
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return dto.Booking{}, err
	}
	if err := publish(ctx, unit, h.Encoder, b.Drain()...); err != nil {
		return dto.Booking{}, err
	}
	return dto.MapBooking(b, landlordID), nil
}

var _ commands.Handler[TransitionBookingCommand, dto.Booking] = (*TransitionBookingHandler)(nil)
