package sql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staybook/internal/app/middleware"
)

type IdempotencyStore struct {
	DB *gorm.DB
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var row idempotencyRow
	err := s.DB.WithContext(ctx).
		Where("idem_key = ? AND expires_at > ?", key, time.Now().UTC()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{Key: row.Key, Payload: row.Payload, OccurredAt: row.OccurredAt.UTC(), InFlight: row.InFlight}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord, ttl time.Duration) error {
	row := idempotencyRow{
		Key:        rec.Key,
		Payload:    rec.Payload,
		OccurredAt: rec.OccurredAt.UTC(),
		ExpiresAt:  time.Now().UTC().Add(ttl),
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// Claim inserts the marker row; the primary key on idem_key makes a second
// insert a no-op, so RowsAffected tells the winner apart.
func (s *IdempotencyStore) Claim(ctx context.Context, key string, lease time.Duration) (bool, error) {
	now := time.Now().UTC()
	db := s.DB.WithContext(ctx)
	if err := db.Where("idem_key = ? AND expires_at <= ?", key, now).Delete(&idempotencyRow{}).Error; err != nil {
		return false, err
	}
	row := idempotencyRow{Key: key, Payload: []byte{}, OccurredAt: now, ExpiresAt: now.Add(lease), InFlight: true}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *IdempotencyStore) Forget(ctx context.Context, key string) error {
	return s.DB.WithContext(ctx).Where("idem_key = ? AND in_flight = ?", key, true).Delete(&idempotencyRow{}).Error
}

// PurgeExpired deletes expired keys; the scheduler calls it periodically.
func (s *IdempotencyStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&idempotencyRow{})
	return res.RowsAffected, res.Error
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
