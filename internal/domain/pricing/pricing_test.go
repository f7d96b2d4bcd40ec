package pricing

import (
	"errors"
	"testing"
	"time"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var start = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func TestComputeTotal(t *testing.T) {
	cases := []struct {
		rate   string
		nights int
		want   string
	}{
		{"100.00", 3, "300.00"},
		{"120.00", 3, "360.00"},
		{"33.335", 1, "33.34"},
		{"10.0025", 2, "20.01"},
		{"0", 4, "0.00"},
	}
	for _, tc := range cases {
		q, err := ComputeTotal(money.MustParse(tc.rate, "EUR"), daterange.Nights(start, tc.nights))
		if err != nil {
			t.Fatalf("rate %s: %v", tc.rate, err)
		}
		if q.Nights != tc.nights {
			t.Fatalf("rate %s: nights = %d", tc.rate, q.Nights)
		}
		if got := q.Total.String(); got != tc.want {
			t.Errorf("rate %s x %d = %s, want %s", tc.rate, tc.nights, got, tc.want)
		}
	}
}

func TestComputeTotalIsDeterministic(t *testing.T) {
	rate := money.MustParse("87.455", "EUR")
	dr := daterange.Nights(start, 7)
	first, _ := ComputeTotal(rate, dr)
	for i := 0; i < 10; i++ {
		again, _ := ComputeTotal(rate, dr)
		if !again.Total.Equal(first.Total) {
			t.Fatalf("total changed between calls: %s vs %s", first.Total, again.Total)
		}
	}
}

func TestComputeTotalRejects(t *testing.T) {
	if _, err := ComputeTotal(money.MustParse("-1", "EUR"), daterange.Nights(start, 1)); !errors.Is(err, ErrNegativeRate) {
		t.Fatalf("expected ErrNegativeRate, got %v", err)
	}
	if _, err := ComputeTotal(money.MustParse("1", "EUR"), daterange.DateRange{Start: start, End: start}); !errors.Is(err, ErrNoNights) {
		t.Fatalf("expected ErrNoNights, got %v", err)
	}
	if _, err := ComputeTotal(money.Money{}, daterange.Nights(start, 1)); !errors.Is(err, ErrCurrencyUnset) {
		t.Fatalf("expected ErrCurrencyUnset, got %v", err)
	}
}
