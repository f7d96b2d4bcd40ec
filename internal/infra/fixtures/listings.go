package fixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

// Sink is implemented by every store driver's seeder.
type Sink interface {
	PutListing(ctx context.Context, l *domainlistings.Listing) error
	domainavailability.Seeder
}

type Period struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Listing struct {
	ID          string   `json:"id"`
	LandlordID  string   `json:"landlord_id"`
	Title       string   `json:"title"`
	NightlyRate string   `json:"nightly_rate"`
	Currency    string   `json:"currency"`
	Active      bool     `json:"active"`
	Open        []Period `json:"open"`
	Blocked     []Period `json:"blocked"`
}

// LoadFile seeds listings from a JSON array file and returns how many it wrote.
func LoadFile(ctx context.Context, path string, sink Sink) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Load(ctx, f, sink)
}

func Load(ctx context.Context, r io.Reader, sink Sink) (int, error) {
	var items []Listing
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return 0, fmt.Errorf("fixtures: decode: %w", err)
	}
	for i, item := range items {
		if err := seed(ctx, item, sink); err != nil {
			return i, fmt.Errorf("fixtures: listing %q: %w", item.ID, err)
		}
	}
	return len(items), nil
}

func seed(ctx context.Context, item Listing, sink Sink) error {
	currency := item.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	rate, err := money.Parse(item.NightlyRate, currency)
	if err != nil {
		return err
	}
	listing, err := domainlistings.NewListing(domainlistings.NewListingParams{
		ID:          domainlistings.ListingID(item.ID),
		LandlordID:  item.LandlordID,
		Title:       item.Title,
		NightlyRate: rate,
		Active:      item.Active,
	})
	if err != nil {
		return err
	}
	if err := sink.PutListing(ctx, listing); err != nil {
		return err
	}
	// Blocked periods are applied after open ones so they win on overlap.
	for _, p := range item.Open {
		dr, err := p.parse()
		if err != nil {
			return err
		}
		if err := sink.Open(ctx, listing.ID, dr); err != nil {
			return err
		}
	}
	for _, p := range item.Blocked {
		dr, err := p.parse()
		if err != nil {
			return err
		}
		if err := sink.Block(ctx, listing.ID, dr); err != nil {
			return err
		}
	}
	return nil
}

func (p Period) parse() (daterange.DateRange, error) {
	from, err := daterange.ParseDay(p.From)
	if err != nil {
		return daterange.DateRange{}, err
	}
	to, err := daterange.ParseDay(p.To)
	if err != nil {
		return daterange.DateRange{}, err
	}
	return daterange.New(from, to)
}
