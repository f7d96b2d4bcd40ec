package booking

import (
	"time"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

type BookingCreated struct {
	BookingID  BookingID           `json:"booking_id"`
	ListingID  listings.ListingID  `json:"listing_id"`
	TenantID   string              `json:"tenant_id"`
	Range      daterange.DateRange `json:"range"`
	TotalPrice string              `json:"total_price"`
	Currency   string              `json:"currency"`
	At         time.Time           `json:"at"`
}

func (e BookingCreated) EventName() string     { return "booking.created" }
func (e BookingCreated) AggregateID() string   { return string(e.BookingID) }
func (e BookingCreated) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID BookingID          `json:"booking_id"`
	ListingID listings.ListingID `json:"listing_id"`
	ActorID   string             `json:"actor_id"`
	At        time.Time          `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID          `json:"booking_id"`
	ListingID listings.ListingID `json:"listing_id"`
	ActorID   string             `json:"actor_id"`
	Reason    string             `json:"reason"`
	At        time.Time          `json:"at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID          `json:"booking_id"`
	ListingID listings.ListingID `json:"listing_id"`
	At        time.Time          `json:"at"`
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

type BookingRescheduled struct {
	BookingID  BookingID           `json:"booking_id"`
	ListingID  listings.ListingID  `json:"listing_id"`
	Previous   daterange.DateRange `json:"previous"`
	Range      daterange.DateRange `json:"range"`
	TotalPrice string              `json:"total_price"`
	At         time.Time           `json:"at"`
}

func (e BookingRescheduled) EventName() string     { return "booking.rescheduled" }
func (e BookingRescheduled) AggregateID() string   { return string(e.BookingID) }
func (e BookingRescheduled) OccurredAt() time.Time { return e.At }
