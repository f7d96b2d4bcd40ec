package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

const GetCalendarKey = "availability.calendar"

// MaxCalendarDays caps how many days one calendar read may span.
const MaxCalendarDays = 366

type GetCalendarQuery struct {
	ListingID string
	From      time.Time
	To        time.Time
}

func (q GetCalendarQuery) Key() string { return GetCalendarKey }

func (q GetCalendarQuery) Validate() error {
	dr, err := daterange.New(q.From, q.To)
	if err != nil {
		return fmt.Errorf("%w: %v", domainbooking.ErrValidation, err)
	}
	if dr.Nights() > MaxCalendarDays {
		return fmt.Errorf("%w: calendar spans more than %d days", domainbooking.ErrValidation, MaxCalendarDays)
	}
	return nil
}

// GetCalendarHandler reads slots without locking; closed-world semantics are
// applied so missing days show as unavailable.
type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	if err := q.Validate(); err != nil {
		return dto.Calendar{}, err
	}
	unit, execCtx, release, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	defer release()
	id := domainlistings.ListingID(q.ListingID)
	if _, err := unit.Listings().ByID(execCtx, id); err != nil {
		if errors.Is(err, domainlistings.ErrNotFound) {
			return dto.Calendar{}, fmt.Errorf("%w: listing %s", domainbooking.ErrNotFound, id)
		}
		return dto.Calendar{}, err
	}
	dr, _ := daterange.New(q.From, q.To)
	stored, err := unit.Availability().Slots(execCtx, id, dr)
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(q.ListingID, dr, domainavailability.Fill(id, dr, stored)), nil
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
