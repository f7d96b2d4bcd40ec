package pricing

import (
	"errors"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var (
	ErrNegativeRate  = errors.New("pricing: nightly rate must not be negative")
	ErrCurrencyUnset = errors.New("pricing: currency must be defined")
	ErrNoNights      = errors.New("pricing: range must cover at least one night")
)

// Quote is the server-side price of a stay.
type Quote struct {
	Nights  int
	Nightly money.Money
	Total   money.Money
}

// ComputeTotal multiplies the nightly rate by the number of nights in dr and
// rounds the result to two decimals, half-up.
func ComputeTotal(rate money.Money, dr daterange.DateRange) (Quote, error) {
	if rate.Currency == "" {
		return Quote{}, ErrCurrencyUnset
	}
	if rate.IsNegative() {
		return Quote{}, ErrNegativeRate
	}
	nights := dr.Nights()
	if nights <= 0 {
		return Quote{}, ErrNoNights
	}
	return Quote{
		Nights:  nights,
		Nightly: rate,
		Total:   rate.Multiply(int64(nights)).Rounded(),
	}, nil
}
