package booking

import (
	"errors"
	"testing"
	"time"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var today = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

const (
	tenantID   = "tenant-1"
	landlordID = "landlord-1"
)

func newPending(t *testing.T, startOffset, nights int) *Booking {
	t.Helper()
	b, err := New(CreateParams{
		ID:         "b-1",
		ListingID:  "l-1",
		TenantID:   tenantID,
		Range:      daterange.Nights(today.AddDate(0, 0, startOffset), nights),
		TotalPrice: money.MustParse("100.00", "EUR"),
		CreatedAt:  today,
	})
	if err != nil {
		t.Fatalf("new booking: %v", err)
	}
	b.ClearEvents()
	return b
}

func transition(event Event, actor Actor) Transition {
	return Transition{Event: event, Actor: actor, LandlordID: landlordID, Today: today, At: today.Add(time.Hour)}
}

func TestConfirmRequiresLandlordOrAdmin(t *testing.T) {
	lc := NewLifecycle(nil, 0)
	cases := []struct {
		name  string
		actor Actor
		err   error
	}{
		{"tenant", Actor{ID: tenantID}, ErrNotAuthorized},
		{"stranger", Actor{ID: "someone"}, ErrNotAuthorized},
		{"landlord", Actor{ID: landlordID}, nil},
		{"admin", Actor{ID: "root", Admin: true}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newPending(t, 10, 3)
			out, err := lc.Apply(b, transition(EventConfirm, tc.actor))
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if tc.err != nil {
				if b.Status != StatusPending || len(b.PendingEvents()) != 0 {
					t.Fatalf("rejected transition must not mutate booking")
				}
				return
			}
			if out.To != StatusConfirmed || b.Status != StatusConfirmed {
				t.Fatalf("expected CONFIRMED, got %s", b.Status)
			}
			if _, ok := b.PendingEvents()[0].(BookingConfirmed); !ok {
				t.Fatalf("expected BookingConfirmed event")
			}
		})
	}
}

func TestCancellationCutoff(t *testing.T) {
	lc := NewLifecycle(nil, 0)
	tomorrow := newPending(t, 1, 2)
	if _, err := lc.Apply(tomorrow, transition(EventCancel, Actor{ID: tenantID})); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("start today+1 must be rejected, got %v", err)
	}
	if tomorrow.Status != StatusPending {
		t.Fatalf("status changed on rejected cancel")
	}
	dayAfter := newPending(t, 2, 2)
	out, err := lc.Apply(dayAfter, transition(EventCancel, Actor{ID: tenantID}))
	if err != nil {
		t.Fatalf("start today+2 must be cancellable: %v", err)
	}
	if !out.ReleaseSlots || dayAfter.Status != StatusCancelled {
		t.Fatalf("cancel must release slots and mark CANCELLED, got %+v", out)
	}
}

func TestTerminalStatesAreClosed(t *testing.T) {
	lc := NewLifecycle(nil, 0)
	if StatusPending.Terminal() || StatusConfirmed.Terminal() {
		t.Fatal("active statuses must not be terminal")
	}
	for _, status := range []Status{StatusCancelled, StatusCompleted} {
		if !status.Terminal() || status.Active() {
			t.Fatalf("%s must be terminal", status)
		}
		for _, ev := range []Event{EventConfirm, EventCancel, EventComplete, EventExpire, EventReschedule} {
			b := newPending(t, 10, 2)
			b.Status = status
			b.Range = daterange.Nights(today.AddDate(0, 0, -10), 2)
			actor := Actor{ID: "root", Admin: true, System: true}
			if _, err := lc.Apply(b, transition(ev, actor)); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s from %s: expected ErrInvalidTransition, got %v", ev, status, err)
			}
			if b.Status != status || len(b.PendingEvents()) != 0 {
				t.Fatalf("%s from %s produced side effects", ev, status)
			}
		}
	}
}

func TestStateIsCheckedBeforeAuthorization(t *testing.T) {
	lc := NewLifecycle(nil, 0)
	b := newPending(t, 10, 2)
	b.Status = StatusCancelled
	if _, err := lc.Apply(b, transition(EventCancel, Actor{ID: "stranger"})); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCompleteNeedsPastStayAndSystemActor(t *testing.T) {
	lc := NewLifecycle(nil, 0)
	b := newPending(t, -5, 3)
	if _, err := lc.Apply(b, transition(EventComplete, Actor{ID: landlordID})); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("landlord must not complete, got %v", err)
	}
	if _, err := lc.Apply(b, transition(EventComplete, SystemActor)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if b.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", b.Status)
	}

	ongoing := newPending(t, -1, 3)
	if _, err := lc.Apply(ongoing, transition(EventComplete, SystemActor)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ongoing stay must not complete, got %v", err)
	}
}

func TestExpireOnlyPending(t *testing.T) {
	lc := NewLifecycle(nil, 0)
	b := newPending(t, 10, 2)
	b.Status = StatusConfirmed
	if _, err := lc.Apply(b, transition(EventExpire, SystemActor)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	pending := newPending(t, 10, 2)
	out, err := lc.Apply(pending, transition(EventExpire, SystemActor))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if !out.ReleaseSlots {
		t.Fatalf("expire must release slots")
	}
	ev, ok := pending.PendingEvents()[0].(BookingCancelled)
	if !ok || ev.Reason != "expired" {
		t.Fatalf("expected expired cancellation event, got %#v", pending.PendingEvents())
	}
}

func TestCustomAuthorizer(t *testing.T) {
	tenantsOnly := AuthorizerFunc(func(event Event, rel Relation) bool {
		return rel.Has(RelTenant)
	})
	lc := NewLifecycle(tenantsOnly, 0)
	b := newPending(t, 10, 2)
	if _, err := lc.Apply(b, transition(EventConfirm, Actor{ID: tenantID})); err != nil {
		t.Fatalf("injected predicate ignored: %v", err)
	}
}

func TestKindOf(t *testing.T) {
	err := errors.Join(errors.New("ctx"), ErrBookingOverlap)
	if KindOf(err) != "BookingOverlap" {
		t.Fatalf("unexpected kind %q", KindOf(err))
	}
	if KindOf(errors.New("boom")) != "Internal" {
		t.Fatalf("expected Internal")
	}
}
