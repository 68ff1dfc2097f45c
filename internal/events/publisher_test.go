package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/devcove/internal/config"
)

func TestMessage_KeyedByTarget(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := VoteEvent{UserID: 3, TargetType: "post", TargetID: 17, Direction: "up", Action: "applied", Score: 4, VotedAt: at}

	msg, err := Message(ev)
	require.NoError(t, err)

	assert.Equal(t, "post:17", string(msg.Key))
	assert.Equal(t, at, msg.Time)

	var decoded VoteEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev, decoded)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishVote(context.Background(), VoteEvent{}))
	assert.NoError(t, p.Close())
}

func TestNewKafka_QueuesAsynchronously(t *testing.T) {
	p := NewKafka(config.KafkaConfig{Brokers: []string{"127.0.0.1:9092"}, Topic: "votes"})

	assert.True(t, p.writer.Async)
	assert.NotNil(t, p.writer.Completion)
	assert.Equal(t, "votes", p.writer.Topic)
}

func TestLogUndelivered(t *testing.T) {
	msgs := []kafka.Message{{Key: []byte("post:1")}}
	assert.NotPanics(t, func() { logUndelivered(msgs, nil) })
	assert.NotPanics(t, func() { logUndelivered(msgs, assert.AnError) })
}
