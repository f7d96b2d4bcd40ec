package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(listingsCollection)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain()
}

// Put upserts a listing; the onboarding fixtures loader is the only writer.
func (r *ListingRepository) Put(ctx context.Context, l *domainlistings.Listing) error {
	doc := listingDocument{
		ID:         string(l.ID),
		LandlordID: l.LandlordID,
		Title:      l.Title,
		RateAmount: l.NightlyRate.Amount.String(),
		Currency:   l.NightlyRate.Currency,
		Active:     l.Active,
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

type listingDocument struct {
	ID         string `bson:"_id"`
	LandlordID string `bson:"landlord_id"`
	Title      string `bson:"title"`
	RateAmount string `bson:"nightly_rate"`
	Currency   string `bson:"currency"`
	Active     bool   `bson:"active"`
}

func (d listingDocument) toDomain() (*domainlistings.Listing, error) {
	rate, err := money.Parse(d.RateAmount, d.Currency)
	if err != nil {
		return nil, err
	}
	return domainlistings.NewListing(domainlistings.NewListingParams{
		ID:          domainlistings.ListingID(d.ID),
		LandlordID:  d.LandlordID,
		Title:       d.Title,
		NightlyRate: rate,
		Active:      d.Active,
	})
}
