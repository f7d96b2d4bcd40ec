package listings

import (
	"context"
	"errors"
	"strings"

	"staybook/internal/domain/shared/money"
)

var (
	ErrNotFound       = errors.New("listings: not found")
	ErrInvalidListing = errors.New("listings: invalid listing")
	ErrNegativeRate   = errors.New("listings: nightly rate must not be negative")
)

type ListingID string

// Listing is the reservation engine's read-only view of a rentable unit.
type Listing struct {
	ID          ListingID
	LandlordID  string
	Title       string
	NightlyRate money.Money
	Active      bool
}

// Repository is the listing lookup collaborator.
type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
}

type NewListingParams struct {
	ID          ListingID
	LandlordID  string
	Title       string
	NightlyRate money.Money
	Active      bool
}

func NewListing(p NewListingParams) (*Listing, error) {
	if strings.TrimSpace(string(p.ID)) == "" || strings.TrimSpace(p.LandlordID) == "" {
		return nil, ErrInvalidListing
	}
	if p.NightlyRate.IsNegative() {
		return nil, ErrNegativeRate
	}
	if p.NightlyRate.Currency == "" {
		p.NightlyRate.Currency = money.DefaultCurrency
	}
	return &Listing{
		ID:          p.ID,
		LandlordID:  strings.TrimSpace(p.LandlordID),
		Title:       strings.TrimSpace(p.Title),
		NightlyRate: p.NightlyRate,
		Active:      p.Active,
	}, nil
}

func (l *Listing) IsLandlord(actorID string) bool {
	return l != nil && actorID != "" && l.LandlordID == actorID
}
