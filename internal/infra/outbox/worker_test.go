package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	"staybook/internal/infra/storage/memory"
)

type recordingProducer struct {
	fail     int
	messages []published
}

type published struct {
	topic   string
	key     string
	payload []byte
}

func (p *recordingProducer) Publish(_ context.Context, topic, key string, payload []byte, _ map[string]string) error {
	if p.fail > 0 {
		p.fail--
		return errors.New("broker down")
	}
	p.messages = append(p.messages, published{topic: topic, key: key, payload: payload})
	return nil
}

func commitRecord(t *testing.T, store *memory.Store, rec appoutbox.EventRecord) {
	t.Helper()
	ctx := context.Background()
	unit, err := memory.Factory{Store: store}.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := unit.Outbox().Add(ctx, rec); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestWorkerPublishesCloudEvent(t *testing.T) {
	store := memory.NewStore()
	commitRecord(t, store, appoutbox.EventRecord{
		ID:         "evt-1",
		Name:       "booking.created",
		Payload:    []byte(`{"booking_id":"b-1"}`),
		Aggregate:  "b-1",
		OccurredAt: time.Now().Add(-time.Second),
	})
	producer := &recordingProducer{}
	w := &Worker{Relay: store, Producer: producer, TopicPrefix: "staybook."}
	if err := w.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(producer.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(producer.messages))
	}
	msg := producer.messages[0]
	if msg.topic != "staybook.booking.events.v1" || msg.key != "b-1" {
		t.Fatalf("unexpected routing %s/%s", msg.topic, msg.key)
	}
	var evt map[string]any
	if err := json.Unmarshal(msg.payload, &evt); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if evt["type"] != "booking.created.v1" || evt["id"] != "evt-1" {
		t.Fatalf("unexpected envelope %v", evt)
	}
	if len(store.PendingEvents()) != 0 {
		t.Fatalf("record must be marked sent")
	}
}

func TestWorkerRetriesFailedPublish(t *testing.T) {
	store := memory.NewStore()
	commitRecord(t, store, appoutbox.EventRecord{
		ID:         "evt-2",
		Name:       "calendar.released",
		Payload:    []byte(`{}`),
		Aggregate:  "l-1",
		OccurredAt: time.Now().Add(-time.Second),
	})
	producer := &recordingProducer{fail: 1}
	w := &Worker{Relay: store, Producer: producer, Backoff: []time.Duration{time.Millisecond}}
	ctx := context.Background()
	if err := w.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(producer.messages) != 0 || len(store.PendingEvents()) != 1 {
		t.Fatalf("failed publish must keep the record pending")
	}
	time.Sleep(5 * time.Millisecond)
	if err := w.Drain(ctx); err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if len(producer.messages) != 1 || len(store.PendingEvents()) != 0 {
		t.Fatalf("retry must deliver the record")
	}
}

func TestWorkerRequiresDependencies(t *testing.T) {
	if err := (&Worker{}).Run(context.Background()); !errors.Is(err, ErrWorkerNotConfigured) {
		t.Fatalf("expected ErrWorkerNotConfigured, got %v", err)
	}
}
