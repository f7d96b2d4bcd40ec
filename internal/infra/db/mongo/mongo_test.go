package mongo

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func TestClassifyMarksWriteConflictsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"write conflict", mongo.CommandError{Code: 112, Name: "WriteConflict"}, true},
		{"transient label", mongo.CommandError{Code: 251, Labels: []string{"TransientTransactionError"}}, true},
		{"other command error", mongo.CommandError{Code: 2, Name: "BadValue"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := uow.IsRetryable(classify(tc.err))
			if got != tc.want {
				t.Fatalf("retryable = %v, want %v", got, tc.want)
			}
		})
	}
	if classify(nil) != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestBookingDocumentRoundTrip(t *testing.T) {
	start := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	b := &domainbooking.Booking{
		ID:         "bk-1",
		ListingID:  "lst-1",
		TenantID:   "tenant-1",
		Range:      daterange.Nights(start, 3),
		TotalPrice: money.MustParse("360.00", "EUR"),
		Status:     domainbooking.StatusConfirmed,
		CreatedAt:  start.Add(-48 * time.Hour),
		UpdatedAt:  start.Add(-24 * time.Hour),
		Version:    4,
	}
	got, err := newBookingDocument(b).toAggregate()
	if err != nil {
		t.Fatalf("toAggregate: %v", err)
	}
	if got.ID != b.ID || got.TenantID != b.TenantID || got.Status != b.Status || got.Version != 4 {
		t.Fatalf("unexpected booking %+v", got)
	}
	if !got.Range.Start.Equal(b.Range.Start) || !got.Range.End.Equal(b.Range.End) {
		t.Fatalf("range = %s, want %s", got.Range, b.Range)
	}
	if got.TotalPrice.String() != "360.00" || got.TotalPrice.Currency != "EUR" {
		t.Fatalf("total = %s %s", got.TotalPrice, got.TotalPrice.Currency)
	}
}

func TestBookingDocumentRejectsUnknownStatus(t *testing.T) {
	doc := bookingDocument{ID: "bk-1", Status: "ARCHIVED", TotalPrice: "1.00", Currency: "EUR"}
	if _, err := doc.toAggregate(); !errors.Is(err, domainbooking.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSlotIDIsPerDay(t *testing.T) {
	day := time.Date(2030, 1, 2, 15, 0, 0, 0, time.UTC)
	if got := slotID("lst-1", day); got != "lst-1:2030-01-02" {
		t.Fatalf("slotID = %q", got)
	}
}
