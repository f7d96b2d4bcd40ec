package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

// Seeder writes listings and open/blocked days outside any booking session.
type Seeder struct {
	listings *ListingRepository
	slots    *AvailabilityStore
}

func NewSeeder(db *mongo.Database) Seeder {
	return Seeder{listings: NewListingRepository(db), slots: NewAvailabilityStore(db)}
}

func (s Seeder) PutListing(ctx context.Context, l *domainlistings.Listing) error {
	return s.listings.Put(ctx, l)
}

func (s Seeder) Open(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) error {
	return s.slots.Open(ctx, listingID, dr)
}

func (s Seeder) Block(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) error {
	return s.slots.Block(ctx, listingID, dr)
}
