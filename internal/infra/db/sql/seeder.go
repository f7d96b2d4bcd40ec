package sql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

// Seeder writes listings and open/blocked days outside any booking unit.
type Seeder struct {
	DB *gorm.DB
}

func (s Seeder) PutListing(ctx context.Context, l *domainlistings.Listing) error {
	row := listingRow{
		ID:          string(l.ID),
		LandlordID:  l.LandlordID,
		Title:       l.Title,
		NightlyRate: l.NightlyRate.Amount,
		Currency:    l.NightlyRate.Currency,
		Active:      l.Active,
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s Seeder) Open(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) error {
	return upsertSlots(ctx, s.DB, listingID, dr, true)
}

func (s Seeder) Block(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) error {
	return upsertSlots(ctx, s.DB, listingID, dr, false)
}

var _ domainavailability.Seeder = Seeder{}
