package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

// AvailabilityStore keeps one document per (listing, day). Claims write every
// day of the range, so two transactions touching a shared day conflict.
type AvailabilityStore struct {
	col *mongo.Collection
}

func NewAvailabilityStore(db *mongo.Database) *AvailabilityStore {
	return &AvailabilityStore{col: db.Collection(slotsCollection)}
}

func (s *AvailabilityStore) IsRangeAvailable(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) (bool, error) {
	filter := rangeFilter(listingID, dr)
	filter["available"] = true
	n, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return false, classify(err)
	}
	return int(n) == dr.Nights(), nil
}

func (s *AvailabilityStore) Claim(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) error {
	return s.set(ctx, listingID, dr, false)
}

func (s *AvailabilityStore) Release(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) error {
	return s.set(ctx, listingID, dr, true)
}

func (s *AvailabilityStore) Open(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) error {
	return s.set(ctx, listingID, dr, true)
}

func (s *AvailabilityStore) Block(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) error {
	return s.set(ctx, listingID, dr, false)
}

func (s *AvailabilityStore) Slots(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) ([]domainavailability.Slot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := s.col.Find(ctx, rangeFilter(listingID, dr), opts)
	if err != nil {
		return nil, classify(err)
	}
	defer cur.Close(ctx)
	var out []domainavailability.Slot
	for cur.Next(ctx) {
		var doc slotDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, domainavailability.Slot{
			ListingID: domainlistings.ListingID(doc.ListingID),
			Date:      daterange.Day(doc.Date),
			Available: doc.Available,
		})
	}
	return out, cur.Err()
}

func (s *AvailabilityStore) set(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange, available bool) error {
	days := dr.Days()
	if len(days) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(days))
	for _, day := range days {
		doc := slotDocument{
			ID:        slotID(listingID, day),
			ListingID: string(listingID),
			Date:      day,
			Available: available,
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	_, err := s.col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return classify(err)
}

func rangeFilter(listingID domainlistings.ListingID, dr daterange.DateRange) bson.M {
	return bson.M{
		"listing_id": string(listingID),
		"date":       bson.M{"$gte": dr.Start, "$lt": dr.End},
	}
}

func slotID(listingID domainlistings.ListingID, day time.Time) string {
	return string(listingID) + ":" + daterange.FormatDay(day)
}

type slotDocument struct {
	ID        string    `bson:"_id"`
	ListingID string    `bson:"listing_id"`
	Date      time.Time `bson:"date"`
	Available bool      `bson:"available"`
}

var (
	_ domainavailability.Store  = (*AvailabilityStore)(nil)
	_ domainavailability.Seeder = (*AvailabilityStore)(nil)
)
