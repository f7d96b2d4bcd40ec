package availability

import (
	"time"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

// CalendarClaimed lets search/display readers refresh their cached view.
type CalendarClaimed struct {
	ListingID string              `json:"listing_id"`
	BookingID string              `json:"booking_id"`
	Range     daterange.DateRange `json:"range"`
	At        time.Time           `json:"at"`
}

func (e CalendarClaimed) EventName() string     { return "calendar.claimed" }
func (e CalendarClaimed) AggregateID() string   { return e.ListingID }
func (e CalendarClaimed) OccurredAt() time.Time { return e.At }

type CalendarReleased struct {
	ListingID string              `json:"listing_id"`
	BookingID string              `json:"booking_id"`
	Range     daterange.DateRange `json:"range"`
	At        time.Time           `json:"at"`
}

func (e CalendarReleased) EventName() string     { return "calendar.released" }
func (e CalendarReleased) AggregateID() string   { return e.ListingID }
func (e CalendarReleased) OccurredAt() time.Time { return e.At }

func ClaimedEvent(id listings.ListingID, bookingID string, r daterange.DateRange, at time.Time) CalendarClaimed {
	return CalendarClaimed{ListingID: string(id), BookingID: bookingID, Range: r, At: at.UTC()}
}

func ReleasedEvent(id listings.ListingID, bookingID string, r daterange.DateRange, at time.Time) CalendarReleased {
	return CalendarReleased{ListingID: string(id), BookingID: bookingID, Range: r, At: at.UTC()}
}
