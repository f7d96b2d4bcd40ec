package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var activeStatuses = []string{string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed)}

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, classify(err)
	}
	return doc.toAggregate()
}

// Save upserts on (_id, version). A stale version misses the filter and the
// upsert then collides on _id.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrConcurrentUpdate
		}
		return classify(err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ActiveOverlapping(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange, excluding domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"listing_id": string(listingID),
		"status":     bson.M{"$in": activeStatuses},
		"start":      bson.M{"$lt": dr.End.UnixMilli()},
		"end":        bson.M{"$gt": dr.Start.UnixMilli()},
	}
	if excluding != "" {
		filter["_id"] = bson.M{"$ne": string(excluding)}
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start", Value: 1}}))
}

func (r *BookingRepository) List(ctx context.Context, f domainbooking.ListFilter, page domainbooking.Page) ([]*domainbooking.Booking, int, error) {
	filter, err := r.listFilter(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, classify(err)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if page.Offset > 0 {
		opts.SetSkip(int64(page.Offset))
	}
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}
	items, err := r.find(ctx, filter, opts)
	return items, int(total), err
}

// listFilter resolves a landlord to the ids of their listings; bookings do
// not carry the landlord themselves.
func (r *BookingRepository) listFilter(ctx context.Context, f domainbooking.ListFilter) (bson.M, error) {
	filter := bson.M{}
	if f.TenantID != "" {
		filter["tenant_id"] = f.TenantID
	}
	if !f.Range.IsZero() {
		filter["start"] = bson.M{"$lt": f.Range.End.UnixMilli()}
		filter["end"] = bson.M{"$gt": f.Range.Start.UnixMilli()}
	}
	listingIDs := bson.A{}
	if f.LandlordID != "" {
		owned, err := r.col.Database().Collection(listingsCollection).Distinct(ctx, "_id", bson.M{"landlord_id": f.LandlordID})
		if err != nil {
			return nil, classify(err)
		}
		listingIDs = owned
		if f.ListingID != "" {
			listingIDs = bson.A{}
			for _, id := range owned {
				if id == string(f.ListingID) {
					listingIDs = append(listingIDs, id)
				}
			}
		}
		filter["listing_id"] = bson.M{"$in": listingIDs}
	} else if f.ListingID != "" {
		filter["listing_id"] = string(f.ListingID)
	}
	return filter, nil
}

func (r *BookingRepository) DueForCompletion(ctx context.Context, today time.Time, limit int) ([]domainbooking.BookingID, error) {
	filter := bson.M{
		"status": bson.M{"$in": activeStatuses},
		"end":    bson.M{"$lt": daterange.Day(today).UnixMilli()},
	}
	return r.ids(ctx, filter, bson.D{{Key: "end", Value: 1}, {Key: "_id", Value: 1}}, limit)
}

func (r *BookingRepository) StalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domainbooking.BookingID, error) {
	filter := bson.M{
		"status":     string(domainbooking.StatusPending),
		"created_at": bson.M{"$lt": createdBefore.UTC().UnixMilli()},
	}
	return r.ids(ctx, filter, bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}, limit)
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err)
	}
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		b, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, classify(cur.Err())
}

func (r *BookingRepository) ids(ctx context.Context, filter bson.M, sort bson.D, limit int) ([]domainbooking.BookingID, error) {
	opts := options.Find().SetSort(sort).SetProjection(bson.M{"_id": 1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err)
	}
	defer cur.Close(ctx)
	var out []domainbooking.BookingID
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, domainbooking.BookingID(row.ID))
	}
	return out, classify(cur.Err())
}

type bookingDocument struct {
	ID         string `bson:"_id"`
	ListingID  string `bson:"listing_id"`
	TenantID   string `bson:"tenant_id"`
	Start      int64  `bson:"start"`
	End        int64  `bson:"end"`
	TotalPrice string `bson:"total_price"`
	Currency   string `bson:"currency"`
	Status     string `bson:"status"`
	CreatedAt  int64  `bson:"created_at"`
	UpdatedAt  int64  `bson:"updated_at"`
	Version    int64  `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:         string(b.ID),
		ListingID:  string(b.ListingID),
		TenantID:   b.TenantID,
		Start:      b.Range.Start.UnixMilli(),
		End:        b.Range.End.UnixMilli(),
		TotalPrice: b.TotalPrice.String(),
		Currency:   b.TotalPrice.Currency,
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt.UTC().UnixMilli(),
		UpdatedAt:  b.UpdatedAt.UTC().UnixMilli(),
		Version:    b.Version,
	}
}

func (d bookingDocument) toAggregate() (*domainbooking.Booking, error) {
	status, err := domainbooking.ParseStatus(d.Status)
	if err != nil {
		return nil, err
	}
	total, err := money.Parse(d.TotalPrice, d.Currency)
	if err != nil {
		return nil, err
	}
	return &domainbooking.Booking{
		ID:        domainbooking.BookingID(d.ID),
		ListingID: listings.ListingID(d.ListingID),
		TenantID:  d.TenantID,
		Range: daterange.DateRange{
			Start: time.UnixMilli(d.Start).UTC(),
			End:   time.UnixMilli(d.End).UTC(),
		},
		TotalPrice: total,
		Status:     status,
		CreatedAt:  time.UnixMilli(d.CreatedAt).UTC(),
		UpdatedAt:  time.UnixMilli(d.UpdatedAt).UTC(),
		Version:    d.Version,
	}, nil
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
