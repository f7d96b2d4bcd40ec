package outbox

import (
	"context"
	"time"
)

// Pending is a committed record waiting for delivery.
type Pending struct {
	EventRecord
	Attempts int
}

// Relay is the delivery side of the outbox, read by the publishing worker
// outside any booking transaction.
type Relay interface {
	// Claim leases the next deliverable record, or returns nil when none is due.
	Claim(ctx context.Context, workerID string) (*Pending, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}
