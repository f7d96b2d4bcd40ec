package logsink

import (
	"context"
	"log/slog"
)

// Producer logs events instead of shipping them. It backs local runs where
// no broker is configured.
type Producer struct {
	Logger *slog.Logger
}

func (p Producer) Publish(ctx context.Context, topic string, key string, payload []byte, _ map[string]string) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "event published", "topic", topic, "key", key, "bytes", len(payload))
	return nil
}

func (Producer) Close() error { return nil }
