package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	availabilityhandlers "staybook/internal/app/handlers/availability"
	bookinghandlers "staybook/internal/app/handlers/booking"
	"staybook/internal/app/queries"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
)

const (
	defaultSweepBatch        = 100
	defaultStalePendingAfter = 30 * 24 * time.Hour
)

// Service is the entry point collaborators use. Every write goes through the
// command bus so it runs inside one retried unit of work.
type Service struct {
	Commands          commands.Bus
	Queries           queries.Bus
	Clock             func() time.Time
	NewID             func() string
	SweepBatch        int
	StalePendingAfter time.Duration
	Logger            *slog.Logger
}

type CreateBookingParams struct {
	ListingID      string
	TenantID       string
	Start          time.Time
	End            time.Time
	IdempotencyKey string
}

func (s *Service) CreateBooking(ctx context.Context, p CreateBookingParams) (dto.Booking, error) {
	now := s.now()
	res, err := commands.Dispatch[bookinghandlers.CreateBookingCommand, dto.Booking](ctx, s.Commands, bookinghandlers.CreateBookingCommand{
		BookingID:       s.newID(),
		ListingID:       p.ListingID,
		TenantID:        p.TenantID,
		Start:           p.Start,
		End:             p.End,
		Today:           daterange.Day(now),
		Now:             now,
		IdempotencyKeyV: p.IdempotencyKey,
	})
	if err != nil {
		return dto.Booking{}, err
	}
	s.logger().InfoContext(ctx, "booking created",
		"booking_id", res.ID, "listing_id", res.ListingID, "total", res.TotalPrice.Amount)
	return res, nil
}

func (s *Service) ConfirmBooking(ctx context.Context, bookingID string, actor domainbooking.Actor) (dto.Booking, error) {
	return s.transition(ctx, bookingID, domainbooking.EventConfirm, actor, s.now())
}

func (s *Service) CancelBooking(ctx context.Context, bookingID string, actor domainbooking.Actor) (dto.Booking, error) {
	return s.transition(ctx, bookingID, domainbooking.EventCancel, actor, s.now())
}

func (s *Service) RescheduleBooking(ctx context.Context, bookingID string, start, end time.Time, actor domainbooking.Actor) (dto.Booking, error) {
	now := s.now()
	return commands.Dispatch[bookinghandlers.RescheduleBookingCommand, dto.Booking](ctx, s.Commands, bookinghandlers.RescheduleBookingCommand{
		BookingID: bookingID,
		Start:     start,
		End:       end,
		Actor:     actor,
		Today:     daterange.Day(now),
		Now:       now,
	})
}

func (s *Service) transition(ctx context.Context, bookingID string, event domainbooking.Event, actor domainbooking.Actor, asOf time.Time) (dto.Booking, error) {
	res, err := commands.Dispatch[bookinghandlers.TransitionBookingCommand, dto.Booking](ctx, s.Commands, bookinghandlers.TransitionBookingCommand{
		BookingID: bookingID,
		Event:     event,
		Actor:     actor,
		Today:     daterange.Day(asOf),
		Now:       s.now(),
	})
	if err != nil {
		return dto.Booking{}, err
	}
	s.logger().InfoContext(ctx, "booking transitioned",
		"booking_id", res.ID, "event", string(event), "status", res.Status)
	return res, nil
}

// RunCompletionSweep completes every active booking whose stay ended before
// asOf and returns how many it completed. Bookings changed concurrently are
// skipped, so repeated runs are safe.
func (s *Service) RunCompletionSweep(ctx context.Context, asOf time.Time) (int, error) {
	report, err := s.sweep(ctx, bookinghandlers.SweepCompletion, daterange.Day(asOf), asOf, domainbooking.EventComplete)
	return report.Processed, err
}

// ExpireStalePending cancels PENDING bookings created more than
// StalePendingAfter before asOf, releasing their days.
func (s *Service) ExpireStalePending(ctx context.Context, asOf time.Time) (int, error) {
	after := s.StalePendingAfter
	if after <= 0 {
		after = defaultStalePendingAfter
	}
	report, err := s.sweep(ctx, bookinghandlers.SweepExpiry, asOf.Add(-after), asOf, domainbooking.EventExpire)
	return report.Processed, err
}

// Sweep names a maintenance pass over bookings.
type Sweep = bookinghandlers.Sweep

const (
	SweepCompletion = bookinghandlers.SweepCompletion
	SweepExpiry     = bookinghandlers.SweepExpiry
)

// Sweep runs a named sweep and returns the full report. A zero asOf means now.
func (s *Service) Sweep(ctx context.Context, sweep Sweep, asOf time.Time) (dto.SweepReport, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	switch sweep {
	case bookinghandlers.SweepCompletion:
		return s.sweep(ctx, sweep, daterange.Day(asOf), asOf, domainbooking.EventComplete)
	case bookinghandlers.SweepExpiry:
		after := s.StalePendingAfter
		if after <= 0 {
			after = defaultStalePendingAfter
		}
		return s.sweep(ctx, sweep, asOf.Add(-after), asOf, domainbooking.EventExpire)
	}
	return dto.SweepReport{}, fmt.Errorf("%w: unknown sweep %q", domainbooking.ErrValidation, sweep)
}

func (s *Service) sweep(ctx context.Context, sweep bookinghandlers.Sweep, cutoff, asOf time.Time, event domainbooking.Event) (dto.SweepReport, error) {
	report := dto.SweepReport{Sweep: string(sweep), AsOf: daterange.FormatDay(asOf)}
	batch := s.SweepBatch
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	seen := map[domainbooking.BookingID]bool{}
	for {
		ids, err := queries.Ask[bookinghandlers.FindSweepCandidatesQuery, []domainbooking.BookingID](ctx, s.Queries, bookinghandlers.FindSweepCandidatesQuery{
			Sweep:  sweep,
			Cutoff: cutoff,
			Limit:  batch,
		})
		if err != nil {
			return report, err
		}
		fresh := 0
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			fresh++
			if _, err := s.transition(ctx, string(id), event, domainbooking.SystemActor, asOf); err != nil {
				if errors.Is(err, domainbooking.ErrInvalidTransition) || errors.Is(err, domainbooking.ErrNotFound) {
					report.Skipped++
					continue
				}
				return report, err
			}
			report.Processed++
		}
		if fresh == 0 || len(ids) < batch {
			break
		}
	}
	if report.Processed > 0 {
		s.logger().InfoContext(ctx, "sweep finished",
			"sweep", report.Sweep, "processed", report.Processed, "skipped", report.Skipped)
	}
	return report, nil
}

func (s *Service) GetBooking(ctx context.Context, bookingID string, actor *domainbooking.Actor) (dto.Booking, error) {
	return queries.Ask[bookinghandlers.GetBookingQuery, dto.Booking](ctx, s.Queries, bookinghandlers.GetBookingQuery{
		BookingID: bookingID,
		Actor:     actor,
	})
}

// ListBookingsForListing reads without locking; dr may be zero for all dates.
func (s *Service) ListBookingsForListing(ctx context.Context, listingID string, dr daterange.DateRange, actor *domainbooking.Actor, page dto.PageRequest) (dto.BookingCollection, error) {
	return queries.Ask[bookinghandlers.ListListingBookingsQuery, dto.BookingCollection](ctx, s.Queries, bookinghandlers.ListListingBookingsQuery{
		ListingID: listingID,
		Range:     dr,
		Actor:     actor,
		Page:      page,
	})
}

// ListMyBookings pages through the bookings visible to actor, newest first.
func (s *Service) ListMyBookings(ctx context.Context, actor domainbooking.Actor, page dto.PageRequest) (dto.BookingCollection, error) {
	return queries.Ask[bookinghandlers.ListMyBookingsQuery, dto.BookingCollection](ctx, s.Queries, bookinghandlers.ListMyBookingsQuery{
		Actor: actor,
		Page:  page,
	})
}

func (s *Service) ListingCalendar(ctx context.Context, listingID string, from, to time.Time) (dto.Calendar, error) {
	return queries.Ask[availabilityhandlers.GetCalendarQuery, dto.Calendar](ctx, s.Queries, availabilityhandlers.GetCalendarQuery{
		ListingID: listingID,
		From:      from,
		To:        to,
	})
}

// Today is the reference day the engine evaluates guards against.
func (s *Service) Today() time.Time {
	return daterange.Day(s.now())
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock().UTC()
}

func (s *Service) newID() string {
	if s.NewID == nil {
		return ""
	}
	return s.NewID()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
