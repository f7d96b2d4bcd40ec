package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var day0 = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	ctx := context.Background()
	listing := &domainlistings.Listing{ID: "l-1", LandlordID: "host", NightlyRate: money.MustParse("50", "EUR"), Active: true}
	if err := s.PutListing(ctx, listing); err != nil {
		t.Fatalf("put listing: %v", err)
	}
	if err := s.Open(ctx, "l-1", daterange.Nights(day0, 10)); err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestRollbackDiscardsStagedWrites(t *testing.T) {
	s := seeded(t)
	f := Factory{Store: s}
	ctx := context.Background()
	dr := daterange.Nights(day0, 3)

	unit, err := f.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := unit.Availability().Claim(ctx, "l-1", dr); err != nil {
		t.Fatalf("claim: %v", err)
	}
	ok, _ := unit.Availability().IsRangeAvailable(ctx, "l-1", dr)
	if ok {
		t.Fatalf("claim must be visible inside the unit")
	}
	_ = unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "e1", Name: "x"})
	if err := unit.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	reader, _ := f.Begin(ctx, uow.TxOptions{ReadOnly: true})
	defer reader.Rollback(ctx)
	ok, _ = reader.Availability().IsRangeAvailable(ctx, "l-1", dr)
	if !ok {
		t.Fatalf("rolled back claim leaked into the store")
	}
	if len(s.outbox) != 0 {
		t.Fatalf("rolled back outbox record leaked")
	}
}

func TestCommitPublishesOutboxAndSlots(t *testing.T) {
	s := seeded(t)
	f := Factory{Store: s}
	ctx := context.Background()
	unit, _ := f.Begin(ctx, uow.TxOptions{})
	_ = unit.Availability().Claim(ctx, "l-1", daterange.Nights(day0, 2))
	_ = unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "e1", Name: "booking.created", OccurredAt: day0})
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := unit.Commit(ctx); err == nil {
		t.Fatalf("second commit must fail")
	}

	pending, err := s.Claim(ctx, "w1")
	if err != nil || pending == nil || pending.ID != "e1" {
		t.Fatalf("expected e1 to be claimable, got %+v, %v", pending, err)
	}
	if again, _ := s.Claim(ctx, "w2"); again != nil {
		t.Fatalf("claimed record handed out twice")
	}
	_ = s.MarkSent(ctx, "e1")
	if len(s.PendingEvents()) != 0 {
		t.Fatalf("sent record still pending")
	}
}

func TestSaveDetectsStaleVersion(t *testing.T) {
	s := seeded(t)
	f := Factory{Store: s}
	ctx := context.Background()
	b, _ := domainbooking.New(domainbooking.CreateParams{
		ID: "b-1", ListingID: "l-1", TenantID: "t", Range: daterange.Nights(day0, 2),
		TotalPrice: money.MustParse("100", "EUR"), CreatedAt: day0,
	})
	unit, _ := f.Begin(ctx, uow.TxOptions{})
	if err := unit.Bookings().Save(ctx, b); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = unit.Commit(ctx)

	stale := b.Clone()
	stale.Version = 0
	unit, _ = f.Begin(ctx, uow.TxOptions{})
	defer unit.Rollback(ctx)
	if err := unit.Bookings().Save(ctx, stale); !errors.Is(err, domainbooking.ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}
	if !uow.IsRetryable(domainbooking.ErrConcurrentUpdate) {
		t.Fatalf("concurrent update must be retryable")
	}
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	unit, _ := Factory{Store: s}.Begin(ctx, uow.TxOptions{ReadOnly: true})
	defer unit.Rollback(ctx)
	if err := unit.Availability().Release(ctx, "l-1", daterange.Nights(day0, 1)); !errors.Is(err, ErrReadOnlyUnit) {
		t.Fatalf("expected ErrReadOnlyUnit, got %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	s := seeded(t)
	f := Factory{Store: s}
	ctx := context.Background()
	dr := daterange.Nights(day0.AddDate(0, 0, 2), 3)

	unit, _ := f.Begin(ctx, uow.TxOptions{})
	_ = unit.Availability().Claim(ctx, "l-1", dr)
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("claim commit: %v", err)
	}
	for i := 1; i <= 2; i++ {
		unit, _ := f.Begin(ctx, uow.TxOptions{})
		if err := unit.Availability().Release(ctx, "l-1", dr); err != nil {
			t.Fatalf("release #%d: %v", i, err)
		}
		if err := unit.Commit(ctx); err != nil {
			t.Fatalf("release #%d commit: %v", i, err)
		}
		reader, _ := f.Begin(ctx, uow.TxOptions{ReadOnly: true})
		ok, err := reader.Availability().IsRangeAvailable(ctx, "l-1", dr)
		_ = reader.Rollback(ctx)
		if err != nil || !ok {
			t.Fatalf("after release #%d available=%v err=%v", i, ok, err)
		}
	}
	reader, _ := f.Begin(ctx, uow.TxOptions{ReadOnly: true})
	defer reader.Rollback(ctx)
	slots, _ := reader.Availability().Slots(ctx, "l-1", daterange.Nights(day0, 10))
	if len(slots) != 10 {
		t.Fatalf("release must not add or drop days, got %d slots", len(slots))
	}
}

func TestListFiltersByRoleAndPages(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	other := &domainlistings.Listing{ID: "l-2", LandlordID: "other-host", NightlyRate: money.MustParse("50", "EUR"), Active: true}
	if err := s.PutListing(ctx, other); err != nil {
		t.Fatalf("put listing: %v", err)
	}
	f := Factory{Store: s}
	unit, _ := f.Begin(ctx, uow.TxOptions{})
	add := func(id domainbooking.BookingID, listing domainlistings.ListingID, tenant string, created int) {
		b, err := domainbooking.New(domainbooking.CreateParams{
			ID: id, ListingID: listing, TenantID: tenant, Range: daterange.Nights(day0.AddDate(0, 0, created), 1),
			TotalPrice: money.MustParse("50", "EUR"), CreatedAt: day0.Add(time.Duration(created) * time.Hour),
		})
		if err != nil {
			t.Fatalf("new %s: %v", id, err)
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	add("b-1", "l-1", "t-a", 1)
	add("b-2", "l-1", "t-b", 2)
	add("b-3", "l-2", "t-a", 3)
	add("b-4", "l-1", "t-a", 4)
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	reader, _ := f.Begin(ctx, uow.TxOptions{ReadOnly: true})
	defer reader.Rollback(ctx)
	list := func(filter domainbooking.ListFilter, page domainbooking.Page) ([]domainbooking.BookingID, int) {
		items, total, err := reader.Bookings().List(ctx, filter, page)
		if err != nil {
			t.Fatalf("list %+v: %v", filter, err)
		}
		var out []domainbooking.BookingID
		for _, b := range items {
			out = append(out, b.ID)
		}
		return out, total
	}

	if got, total := list(domainbooking.ListFilter{TenantID: "t-a"}, domainbooking.Page{}); total != 3 || len(got) != 3 || got[0] != "b-4" || got[2] != "b-1" {
		t.Fatalf("tenant list = %v (total %d), want newest first", got, total)
	}
	if got, total := list(domainbooking.ListFilter{LandlordID: "host"}, domainbooking.Page{Limit: 2}); total != 3 || len(got) != 2 || got[0] != "b-4" || got[1] != "b-2" {
		t.Fatalf("landlord page 1 = %v (total %d)", got, total)
	}
	if got, _ := list(domainbooking.ListFilter{LandlordID: "host"}, domainbooking.Page{Limit: 2, Offset: 2}); len(got) != 1 || got[0] != "b-1" {
		t.Fatalf("landlord page 2 = %v", got)
	}
	if got, total := list(domainbooking.ListFilter{LandlordID: "other-host"}, domainbooking.Page{}); total != 1 || got[0] != "b-3" {
		t.Fatalf("other landlord = %v", got)
	}
	if got, total := list(domainbooking.ListFilter{ListingID: "l-1", Range: daterange.Nights(day0.AddDate(0, 0, 2), 1)}, domainbooking.Page{}); total != 1 || got[0] != "b-2" {
		t.Fatalf("listing range = %v", got)
	}
	if _, total := list(domainbooking.ListFilter{}, domainbooking.Page{Limit: 1}); total != 4 {
		t.Fatalf("unfiltered total = %d", total)
	}
}
