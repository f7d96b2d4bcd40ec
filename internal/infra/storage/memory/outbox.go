package memory

import (
	"context"
	"time"

	appoutbox "staybook/internal/app/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

// Claim hands out the oldest due record. Records are appended on Commit only,
// so uncommitted events are never published.
func (s *Store) Claim(_ context.Context, _ string) (*appoutbox.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, e := range s.outbox {
		if (e.state == stateNew || e.state == stateFailed) && !e.next.After(now) {
			e.state = stateClaimed
			return &appoutbox.Pending{EventRecord: e.record, Attempts: e.attempts}, nil
		}
	}
	return nil, nil
}

func (s *Store) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.outbox[:0]
	for _, e := range s.outbox {
		if e.record.ID != id {
			kept = append(kept, e)
		}
	}
	s.outbox = kept
	return nil
}

func (s *Store) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.outbox {
		if e.record.ID == id {
			e.state = stateFailed
			e.attempts++
			e.next = next
			e.lastErr = errMsg
		}
	}
	return nil
}

// PendingEvents lists names of records not yet delivered, oldest first.
func (s *Store) PendingEvents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.outbox))
	for _, e := range s.outbox {
		if e.state != stateSent {
			out = append(out, e.record.Name)
		}
	}
	return out
}

var _ appoutbox.Relay = (*Store)(nil)
