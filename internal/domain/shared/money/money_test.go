package money

import (
	"errors"
	"testing"
)

func TestRoundedHalfUp(t *testing.T) {
	cases := map[string]string{
		"10.005":  "10.01",
		"10.004":  "10.00",
		"0.125":   "0.13",
		"99.9949": "99.99",
		"120":     "120.00",
	}
	for in, want := range cases {
		m := MustParse(in, "EUR")
		if got := m.Rounded().String(); got != want {
			t.Errorf("Rounded(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestAddRequiresSameCurrency(t *testing.T) {
	a := MustParse("1.50", "EUR")
	b := MustParse("2.25", "usd")
	if _, err := a.Add(b); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
	sum, err := a.Add(MustParse("2.25", "EUR"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sum.String() != "3.75" {
		t.Fatalf("unexpected sum %s", sum)
	}
}

func TestParseValidates(t *testing.T) {
	if _, err := Parse("abc", "EUR"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := Parse("1.00", "EURO"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}
