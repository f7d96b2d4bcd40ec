package booking

import (
	"fmt"
	"time"

	"staybook/internal/domain/shared/daterange"
)

// DefaultCancellationCutoffDays is the 48h cutoff expressed in calendar days.
const DefaultCancellationCutoffDays = 2

// Transition is one lifecycle request. Today is the reference calendar day
// the guards are evaluated against; At stamps the change.
type Transition struct {
	Event      Event
	Actor      Actor
	LandlordID string
	Today      time.Time
	At         time.Time
}

type Outcome struct {
	From         Status
	To           Status
	ReleaseSlots bool
}

// Lifecycle is the booking state machine. Checks run in a fixed order:
// state legality, then authorization, then time guards.
type Lifecycle struct {
	Authorize              Authorizer
	CancellationCutoffDays int
}

func NewLifecycle(auth Authorizer, cutoffDays int) Lifecycle {
	if auth == nil {
		auth = DefaultPolicy()
	}
	if cutoffDays <= 0 {
		cutoffDays = DefaultCancellationCutoffDays
	}
	return Lifecycle{Authorize: auth, CancellationCutoffDays: cutoffDays}
}

// Check validates t against b without changing it.
func (l Lifecycle) Check(b *Booking, t Transition) (Outcome, error) {
	if b == nil {
		return Outcome{}, ErrNotFound
	}
	to, release, err := target(b.Status, t.Event)
	if err != nil {
		return Outcome{}, err
	}
	if err := l.authorize(b, t); err != nil {
		return Outcome{}, err
	}
	today := daterange.Day(t.Today)
	switch t.Event {
	case EventCancel, EventReschedule:
		cutoff := today.AddDate(0, 0, l.cutoffDays())
		if b.Range.Start.Before(cutoff) {
			return Outcome{}, fmt.Errorf("%w: %s not allowed within %d days of check-in", ErrInvalidTransition, t.Event, l.cutoffDays())
		}
	case EventComplete:
		if !b.Range.End.Before(today) {
			return Outcome{}, fmt.Errorf("%w: stay ends %s", ErrInvalidTransition, daterange.FormatDay(b.Range.End))
		}
	}
	return Outcome{From: b.Status, To: to, ReleaseSlots: release}, nil
}

// Apply validates t and moves b to the resulting status, recording the
// matching domain event. Reschedule only validates; the caller moves the
// range through Booking.Reschedule.
func (l Lifecycle) Apply(b *Booking, t Transition) (Outcome, error) {
	out, err := l.Check(b, t)
	if err != nil {
		return Outcome{}, err
	}
	if out.From == out.To {
		return out, nil
	}
	at := t.At.UTC()
	b.Status = out.To
	b.UpdatedAt = at
	switch t.Event {
	case EventConfirm:
		b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, ActorID: t.Actor.ID, At: at})
	case EventCancel:
		b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, ActorID: t.Actor.ID, Reason: "cancelled", At: at})
	case EventExpire:
		b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, ActorID: t.Actor.ID, Reason: "expired", At: at})
	case EventComplete:
		b.Record(BookingCompleted{BookingID: b.ID, ListingID: b.ListingID, At: at})
	}
	return out, nil
}

func (l Lifecycle) authorize(b *Booking, t Transition) error {
	auth := l.Authorize
	if auth == nil {
		auth = DefaultPolicy()
	}
	if !auth.Allows(t.Event, RelationOf(t.Actor, b, t.LandlordID)) {
		return fmt.Errorf("%w: %s on booking %s", ErrNotAuthorized, t.Event, b.ID)
	}
	return nil
}

func (l Lifecycle) cutoffDays() int {
	if l.CancellationCutoffDays <= 0 {
		return DefaultCancellationCutoffDays
	}
	return l.CancellationCutoffDays
}

// target resolves the state table. View is allowed from every state.
func target(from Status, event Event) (Status, bool, error) {
	switch event {
	case EventView:
		return from, false, nil
	case EventConfirm:
		if from == StatusPending {
			return StatusConfirmed, false, nil
		}
	case EventCancel:
		if from.Active() {
			return StatusCancelled, true, nil
		}
	case EventExpire:
		if from == StatusPending {
			return StatusCancelled, true, nil
		}
	case EventComplete:
		if from.Active() {
			return StatusCompleted, false, nil
		}
	case EventReschedule:
		if from.Active() {
			return from, false, nil
		}
	default:
		return "", false, fmt.Errorf("%w: unknown event %q", ErrValidation, event)
	}
	if from.Terminal() {
		return "", false, fmt.Errorf("%w: booking is %s and final, cannot %s", ErrInvalidTransition, from, event)
	}
	return "", false, fmt.Errorf("%w: cannot %s a %s booking", ErrInvalidTransition, event, from)
}
