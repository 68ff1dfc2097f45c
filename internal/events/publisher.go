// Package events publishes settled vote mutations to Kafka so that
// downstream consumers (ranking, analytics) can follow score changes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/emilythestrangee/devcove/internal/config"
)

// VoteEvent describes one settled vote mutation.
type VoteEvent struct {
	UserID     int       `json:"user_id"`
	TargetType string    `json:"target_type"`
	TargetID   int       `json:"target_id"`
	Direction  string    `json:"direction"`
	Action     string    `json:"action"`
	Score      int       `json:"score"`
	VotedAt    time.Time `json:"voted_at"`
}

// Key routes every event of one target to the same partition, so
// consumers see a target's mutations in order.
func (e VoteEvent) Key() string {
	return fmt.Sprintf("%s:%d", e.TargetType, e.TargetID)
}

type Publisher interface {
	PublishVote(ctx context.Context, event VoteEvent) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafka builds a publisher writing to cfg.Topic on cfg.Brokers.
// Writes are asynchronous: PublishVote only enqueues, and delivery
// failures are logged once the batch settles.
func NewKafka(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
			Completion:   logUndelivered,
		},
	}
}

func logUndelivered(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		slog.Warn("vote event not delivered", "key", string(m.Key), "error", err)
	}
}

// Message encodes event as a keyed Kafka message.
func Message(event VoteEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding vote event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.Key()),
		Value: data,
		Time:  event.VotedAt,
	}, nil
}

func (p *KafkaPublisher) PublishVote(ctx context.Context, event VoteEvent) error {
	msg, err := Message(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing vote event %s: %w", event.Key(), err)
	}
	return nil
}

// Close flushes queued events before returning.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop drops every event; used when no brokers are configured.
type Nop struct{}

func (Nop) PublishVote(context.Context, VoteEvent) error { return nil }
func (Nop) Close() error                                 { return nil }
