package sql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appoutbox "staybook/internal/app/outbox"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var activeStatuses = []string{string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed)}

// forUpdate adds SELECT ... FOR UPDATE when the unit is writable.
func forUpdate(q *gorm.DB, lock bool) *gorm.DB {
	if !lock {
		return q
	}
	return q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

type listingRepository struct {
	db *gorm.DB
}

func (r *listingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var row listingRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, classify(err)
	}
	rate, err := money.New(row.NightlyRate, row.Currency)
	if err != nil {
		return nil, err
	}
	return domainlistings.NewListing(domainlistings.NewListingParams{
		ID:          domainlistings.ListingID(row.ID),
		LandlordID:  row.LandlordID,
		Title:       row.Title,
		NightlyRate: rate,
		Active:      row.Active,
	})
}

type availabilityStore struct {
	db   *gorm.DB
	lock bool
}

func (s *availabilityStore) IsRangeAvailable(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) (bool, error) {
	var rows []slotRow
	q := s.db.WithContext(ctx).
		Where("listing_id = ? AND date >= ? AND date < ?", string(listingID), dr.Start, dr.End).
		Order("date")
	if err := forUpdate(q, s.lock).Find(&rows).Error; err != nil {
		return false, classify(err)
	}
	open := 0
	for _, row := range rows {
		if row.Available {
			open++
		}
	}
	return open == dr.Nights(), nil
}

func (s *availabilityStore) Claim(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) error {
	return upsertSlots(ctx, s.db, listingID, dr, false)
}

func (s *availabilityStore) Release(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) error {
	return upsertSlots(ctx, s.db, listingID, dr, true)
}

func (s *availabilityStore) Slots(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) ([]domainavailability.Slot, error) {
	var rows []slotRow
	err := s.db.WithContext(ctx).
		Where("listing_id = ? AND date >= ? AND date < ?", string(listingID), dr.Start, dr.End).
		Order("date").
		Find(&rows).Error
	if err != nil {
		return nil, classify(err)
	}
	out := make([]domainavailability.Slot, 0, len(rows))
	for _, row := range rows {
		out = append(out, domainavailability.Slot{
			ListingID: domainlistings.ListingID(row.ListingID),
			Date:      daterange.Day(row.Date),
			Available: row.Available,
		})
	}
	return out, nil
}

func upsertSlots(ctx context.Context, db *gorm.DB, listingID domainlistings.ListingID, dr daterange.DateRange, available bool) error {
	days := dr.Days()
	if len(days) == 0 {
		return nil
	}
	rows := make([]slotRow, 0, len(days))
	for _, d := range days {
		rows = append(rows, slotRow{ListingID: string(listingID), Date: d, Available: available})
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "listing_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"available"}),
	}).Create(&rows).Error
	return classify(err)
}

type bookingRepository struct {
	db   *gorm.DB
	lock bool
}

func (r *bookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var row bookingRow
	q := forUpdate(r.db.WithContext(ctx), r.lock)
	if err := q.First(&row, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, classify(err)
	}
	return row.toAggregate()
}

// Save inserts Version 0 bookings and otherwise updates on (id, version).
func (r *bookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	row := newBookingRow(b)
	row.Version = b.Version + 1
	db := r.db.WithContext(ctx)
	if b.Version == 0 {
		if err := db.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domainbooking.ErrConcurrentUpdate
			}
			return classify(err)
		}
		b.Version = row.Version
		return nil
	}
	res := db.Model(&bookingRow{}).
		Where("id = ? AND version = ?", row.ID, b.Version).
		Select("*").
		Updates(&row)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = row.Version
	return nil
}

func (r *bookingRepository) ActiveOverlapping(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange, excluding domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	q := r.db.WithContext(ctx).
		Where("listing_id = ? AND status IN ? AND start_date < ? AND end_date > ?", string(listingID), activeStatuses, dr.End, dr.Start)
	if excluding != "" {
		q = q.Where("id <> ?", string(excluding))
	}
	return r.find(forUpdate(q, r.lock).Order("start_date"))
}

func (r *bookingRepository) List(ctx context.Context, f domainbooking.ListFilter, page domainbooking.Page) ([]*domainbooking.Booking, int, error) {
	db := r.db.WithContext(ctx)
	q := db.Model(&bookingRow{})
	if f.ListingID != "" {
		q = q.Where("listing_id = ?", string(f.ListingID))
	}
	if f.TenantID != "" {
		q = q.Where("tenant_id = ?", f.TenantID)
	}
	if f.LandlordID != "" {
		owned := db.Model(&listingRow{}).Select("id").Where("landlord_id = ?", f.LandlordID)
		q = q.Where("listing_id IN (?)", owned)
	}
	if !f.Range.IsZero() {
		q = q.Where("start_date < ? AND end_date > ?", f.Range.End, f.Range.Start)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, classify(err)
	}
	paged := q.Order("created_at DESC").Order("id DESC")
	if page.Offset > 0 {
		paged = paged.Offset(page.Offset)
	}
	if page.Limit > 0 {
		paged = paged.Limit(page.Limit)
	}
	items, err := r.find(paged)
	return items, int(total), err
}

func (r *bookingRepository) DueForCompletion(ctx context.Context, today time.Time, limit int) ([]domainbooking.BookingID, error) {
	q := r.db.WithContext(ctx).Model(&bookingRow{}).
		Where("status IN ? AND end_date < ?", activeStatuses, daterange.Day(today)).
		Order("end_date").Order("id")
	return pluckIDs(q, limit)
}

func (r *bookingRepository) StalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domainbooking.BookingID, error) {
	q := r.db.WithContext(ctx).Model(&bookingRow{}).
		Where("status = ? AND created_at < ?", string(domainbooking.StatusPending), createdBefore.UTC()).
		Order("created_at").Order("id")
	return pluckIDs(q, limit)
}

func (r *bookingRepository) find(q *gorm.DB) ([]*domainbooking.Booking, error) {
	var rows []bookingRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	out := make([]*domainbooking.Booking, 0, len(rows))
	for _, row := range rows {
		b, err := row.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func pluckIDs(q *gorm.DB, limit int) ([]domainbooking.BookingID, error) {
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ids []string
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, classify(err)
	}
	out := make([]domainbooking.BookingID, 0, len(ids))
	for _, id := range ids {
		out = append(out, domainbooking.BookingID(id))
	}
	return out, nil
}

func newBookingRow(b *domainbooking.Booking) bookingRow {
	return bookingRow{
		ID:         string(b.ID),
		ListingID:  string(b.ListingID),
		TenantID:   b.TenantID,
		StartDate:  b.Range.Start,
		EndDate:    b.Range.End,
		TotalPrice: b.TotalPrice.Amount,
		Currency:   b.TotalPrice.Currency,
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt.UTC(),
		UpdatedAt:  b.UpdatedAt.UTC(),
		Version:    b.Version,
	}
}

func (row bookingRow) toAggregate() (*domainbooking.Booking, error) {
	status, err := domainbooking.ParseStatus(row.Status)
	if err != nil {
		return nil, err
	}
	total, err := money.New(row.TotalPrice, row.Currency)
	if err != nil {
		return nil, err
	}
	return &domainbooking.Booking{
		ID:         domainbooking.BookingID(row.ID),
		ListingID:  domainlistings.ListingID(row.ListingID),
		TenantID:   row.TenantID,
		Range:      daterange.DateRange{Start: daterange.Day(row.StartDate), End: daterange.Day(row.EndDate)},
		TotalPrice: total,
		Status:     status,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
		Version:    row.Version,
	}, nil
}

type outboxWriter struct {
	db *gorm.DB
}

func (w *outboxWriter) Add(ctx context.Context, record appoutbox.EventRecord) error {
	now := time.Now().UTC()
	row := outboxRow{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       stateNew,
		NextAttempt: now,
		CreatedAt:   now,
	}
	return classify(w.db.WithContext(ctx).Create(&row).Error)
}

var (
	_ domainlistings.Repository = (*listingRepository)(nil)
	_ domainavailability.Store  = (*availabilityStore)(nil)
	_ domainbooking.Repository  = (*bookingRepository)(nil)
	_ appoutbox.Outbox          = (*outboxWriter)(nil)
)
