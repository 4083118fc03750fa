package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// RoomActivityEvent is published to Kafka for offline analytics. The
// realtime relay never depends on publish success.
type RoomActivityEvent struct {
	RoomID    uint            `json:"roomId"`
	UserID    uint            `json:"userId"`
	Activity  string          `json:"activity"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type ActivityPublisher struct {
	writer *kafka.Writer
}

// NewActivityPublisher returns a nil-safe publisher. With no brokers
// configured it publishes nothing.
func NewActivityPublisher(brokers []string, topic string) *ActivityPublisher {
	if len(brokers) == 0 {
		return &ActivityPublisher{}
	}
	return &ActivityPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
		},
	}
}

func (p *ActivityPublisher) PublishRoomActivity(ctx context.Context, event RoomActivityEvent) {
	if p == nil || p.writer == nil {
		return
	}

	value, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal activity event", "error", err)
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("room-%d", event.RoomID)),
		Value: value,
	})
	if err != nil {
		slog.Error("Failed to publish activity event", "roomID", event.RoomID, "error", err)
	}
}

func (p *ActivityPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
