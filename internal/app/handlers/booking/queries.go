package booking

import (
	"context"
	"fmt"
	"time"

	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

const (
	GetBookingKey          = "booking.get"
	ListListingBookingsKey = "booking.list_by_listing"
	ListMyBookingsKey      = "booking.list_mine"
	FindSweepCandidatesKey = "booking.sweep_candidates"
)

// GetBookingQuery loads one booking. A nil Actor marks a trusted internal
// caller; otherwise the actor needs view rights on the booking.
type GetBookingQuery struct {
	BookingID string
	Actor     *domainbooking.Actor
}

func (q GetBookingQuery) Key() string { return GetBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
	Lifecycle  domainbooking.Lifecycle
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, execCtx, release, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	defer release()
	b, err := loadBooking(execCtx, unit, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	landlordID, err := landlordOf(execCtx, unit, b.ListingID)
	if err != nil {
		return dto.Booking{}, err
	}
	if q.Actor != nil {
		if _, err := h.Lifecycle.Check(b, domainbooking.Transition{Event: domainbooking.EventView, Actor: *q.Actor, LandlordID: landlordID}); err != nil {
			return dto.Booking{}, err
		}
	}
	return dto.MapBooking(b, landlordID), nil
}

// ListListingBookingsQuery pages through bookings of a listing overlapping
// Range, or all of them when Range is zero. Non-admin actors other than the
// landlord only see their own bookings.
type ListListingBookingsQuery struct {
	ListingID string
	Range     daterange.DateRange
	Actor     *domainbooking.Actor
	Page      dto.PageRequest
}

func (q ListListingBookingsQuery) Key() string { return ListListingBookingsKey }

type ListListingBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListListingBookingsHandler) Handle(ctx context.Context, q ListListingBookingsQuery) (dto.BookingCollection, error) {
	unit, execCtx, release, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	defer release()
	listing, err := loadListing(execCtx, unit, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.BookingCollection{}, err
	}
	filter := domainbooking.ListFilter{ListingID: listing.ID, Range: q.Range}
	if q.Actor != nil && !q.Actor.Admin && !q.Actor.System && !listing.IsLandlord(q.Actor.ID) {
		filter.TenantID = q.Actor.ID
	}
	landlords := map[domainlistings.ListingID]string{listing.ID: listing.LandlordID}
	return listPage(execCtx, unit, filter, q.Page, landlords)
}

// ListMyBookingsQuery pages through the caller's bookings, newest first:
// admins see every booking, landlords the bookings of their listings and
// everyone else the bookings they made.
type ListMyBookingsQuery struct {
	Actor domainbooking.Actor
	Page  dto.PageRequest
}

func (q ListMyBookingsQuery) Key() string { return ListMyBookingsKey }

func (q ListMyBookingsQuery) ActingAs() domainbooking.Actor { return q.Actor }

type ListMyBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListMyBookingsHandler) Handle(ctx context.Context, q ListMyBookingsQuery) (dto.BookingCollection, error) {
	unit, execCtx, release, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	defer release()
	var filter domainbooking.ListFilter
	switch {
	case q.Actor.Admin || q.Actor.System:
	case q.Actor.Landlord:
		filter.LandlordID = q.Actor.ID
	default:
		filter.TenantID = q.Actor.ID
	}
	return listPage(execCtx, unit, filter, q.Page, map[domainlistings.ListingID]string{})
}

// listPage reads one page and resolves each booking's landlord once per
// listing.
func listPage(ctx context.Context, unit uow.UnitOfWork, filter domainbooking.ListFilter, req dto.PageRequest, landlords map[domainlistings.ListingID]string) (dto.BookingCollection, error) {
	req = req.Normalize()
	items, total, err := unit.Bookings().List(ctx, filter, domainbooking.Page{Limit: req.PageSize, Offset: req.Offset()})
	if err != nil {
		return dto.BookingCollection{}, err
	}
	out := dto.BookingCollection{
		Items:    make([]dto.Booking, 0, len(items)),
		Page:     req.Page,
		PageSize: req.PageSize,
		Total:    total,
	}
	for _, b := range items {
		landlordID, ok := landlords[b.ListingID]
		if !ok {
			if landlordID, err = landlordOf(ctx, unit, b.ListingID); err != nil {
				return dto.BookingCollection{}, err
			}
			landlords[b.ListingID] = landlordID
		}
		out.Items = append(out.Items, dto.MapBooking(b, landlordID))
	}
	return out, nil
}

type Sweep string

const (
	SweepCompletion Sweep = "completion"
	SweepExpiry     Sweep = "expiry"
)

// FindSweepCandidatesQuery returns ids due for a sweep. For completion Cutoff
// is today; for expiry it is the creation threshold.
type FindSweepCandidatesQuery struct {
	Sweep  Sweep
	Cutoff time.Time
	Limit  int
}

func (q FindSweepCandidatesQuery) Key() string { return FindSweepCandidatesKey }

type FindSweepCandidatesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *FindSweepCandidatesHandler) Handle(ctx context.Context, q FindSweepCandidatesQuery) ([]domainbooking.BookingID, error) {
	unit, execCtx, release, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer release()
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	switch q.Sweep {
	case SweepCompletion:
		return unit.Bookings().DueForCompletion(execCtx, daterange.Day(q.Cutoff), limit)
	case SweepExpiry:
		return unit.Bookings().StalePending(execCtx, q.Cutoff, limit)
	}
	return nil, fmt.Errorf("%w: unknown sweep %q", domainbooking.ErrValidation, q.Sweep)
}

var (
	_ queries.Handler[GetBookingQuery, dto.Booking]                        = (*GetBookingHandler)(nil)
	_ queries.Handler[ListListingBookingsQuery, dto.BookingCollection]     = (*ListListingBookingsHandler)(nil)
	_ queries.Handler[ListMyBookingsQuery, dto.BookingCollection]          = (*ListMyBookingsHandler)(nil)
	_ queries.Handler[FindSweepCandidatesQuery, []domainbooking.BookingID] = (*FindSweepCandidatesHandler)(nil)
)
