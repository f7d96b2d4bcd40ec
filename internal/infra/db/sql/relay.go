package sql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appoutbox "staybook/internal/app/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

const DefaultClaimLease = time.Minute

// Relay hands committed outbox rows to publishing workers. Claims use
// SKIP LOCKED so parallel workers never wait on each other.
type Relay struct {
	DB    *gorm.DB
	Lease time.Duration
}

func NewRelay(db *gorm.DB) *Relay {
	return &Relay{DB: db, Lease: DefaultClaimLease}
}

func (r *Relay) Claim(ctx context.Context, workerID string) (*appoutbox.Pending, error) {
	now := time.Now().UTC()
	var claimed *appoutbox.Pending
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row outboxRow
		err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked}).
			Where("(state IN ? AND next_attempt_at <= ?) OR (state = ? AND claimed_at <= ?)",
				[]string{stateNew, stateFailed}, now, stateClaimed, now.Add(-r.lease())).
			Order("created_at").
			Take(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		err = tx.Model(&outboxRow{}).Where("id = ?", row.ID).Updates(map[string]any{
			"state":      stateClaimed,
			"claimed_by": workerID,
			"claimed_at": now,
		}).Error
		if err != nil {
			return err
		}
		claimed = &appoutbox.Pending{
			EventRecord: appoutbox.EventRecord{
				ID:         row.ID,
				Name:       row.Name,
				Payload:    row.Payload,
				OccurredAt: row.OccurredAt.UTC(),
				Aggregate:  row.Aggregate,
				Headers:    row.Headers,
			},
			Attempts: row.Attempts,
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return claimed, nil
}

func (r *Relay) MarkSent(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Model(&outboxRow{}).Where("id = ?", id).Updates(map[string]any{
		"state":   stateSent,
		"sent_at": time.Now().UTC(),
	}).Error
}

func (r *Relay) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return r.DB.WithContext(ctx).Model(&outboxRow{}).Where("id = ?", id).Updates(map[string]any{
		"state":           stateFailed,
		"next_attempt_at": next.UTC(),
		"last_error":      errMsg,
		"attempts":        gorm.Expr("attempts + ?", 1),
	}).Error
}

func (r *Relay) lease() time.Duration {
	if r.Lease <= 0 {
		return DefaultClaimLease
	}
	return r.Lease
}

var _ appoutbox.Relay = (*Relay)(nil)
