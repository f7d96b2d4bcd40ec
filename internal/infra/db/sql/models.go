package sql

import (
	"time"

	"github.com/shopspring/decimal"
)

type listingRow struct {
	ID          string          `gorm:"primaryKey;size:64"`
	LandlordID  string          `gorm:"size:64;not null;index"`
	Title       string          `gorm:"size:255"`
	NightlyRate decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency    string          `gorm:"size:3;not null"`
	Active      bool            `gorm:"not null;default:true"`
}

func (listingRow) TableName() string { return "listings" }

type slotRow struct {
	ListingID string    `gorm:"primaryKey;size:64"`
	Date      time.Time `gorm:"primaryKey;type:date"`
	Available bool      `gorm:"not null"`
}

func (slotRow) TableName() string { return "availability_slots" }

type bookingRow struct {
	ID         string          `gorm:"primaryKey;size:64"`
	ListingID  string          `gorm:"size:64;not null;index:idx_bookings_listing_status,priority:1"`
	TenantID   string          `gorm:"size:64;not null;index"`
	StartDate  time.Time       `gorm:"type:date;not null"`
	EndDate    time.Time       `gorm:"type:date;not null;index"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency   string          `gorm:"size:3;not null"`
	Status     string          `gorm:"size:16;not null;index:idx_bookings_listing_status,priority:2"`
	CreatedAt  time.Time       `gorm:"not null;index"`
	UpdatedAt  time.Time       `gorm:"not null"`
	Version    int64           `gorm:"not null"`
}

func (bookingRow) TableName() string { return "bookings" }

type outboxRow struct {
	ID          string            `gorm:"primaryKey;size:64"`
	Name        string            `gorm:"size:128;not null"`
	Payload     []byte            `gorm:"not null"`
	OccurredAt  time.Time         `gorm:"not null"`
	Aggregate   string            `gorm:"size:64;not null"`
	Headers     map[string]string `gorm:"serializer:json"`
	State       string            `gorm:"size:16;not null;index:idx_outbox_due,priority:1"`
	Attempts    int               `gorm:"not null;default:0"`
	NextAttempt time.Time         `gorm:"column:next_attempt_at;not null;index:idx_outbox_due,priority:2"`
	CreatedAt   time.Time         `gorm:"not null"`
	ClaimedBy   string            `gorm:"size:128"`
	ClaimedAt   *time.Time
	SentAt      *time.Time
	LastError   string `gorm:"type:text"`
}

func (outboxRow) TableName() string { return "app_outbox" }

type idempotencyRow struct {
	Key        string    `gorm:"column:idem_key;primaryKey;size:255"`
	Payload    []byte    `gorm:"not null"`
	OccurredAt time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null;index"`
	InFlight   bool
}

func (idempotencyRow) TableName() string { return "app_idempotency" }
