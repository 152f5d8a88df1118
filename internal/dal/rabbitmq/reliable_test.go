package rabbitmq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corray333/backend-labs/trade/internal/dal/memory"
	"github.com/streadway/amqp"
)

type fakePublisher struct {
	err  error
	sent []amqp.Publishing
}

func (f *fakePublisher) Publish(_ context.Context, _, _ string, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)

	return nil
}

func TestPublishJSONSendsMessageID(t *testing.T) {
	pub := &fakePublisher{}
	store := memory.NewStore()
	p := NewReliablePublisher(pub, store.OutboxRepository(), 5, time.Second)

	if err := p.PublishJSON(context.Background(), "trade.audit", "m-1", map[string]string{"a": "b"}); err != nil {
		t.Fatalf("PublishJSON() error: %v", err)
	}
	if len(pub.sent) != 1 || pub.sent[0].MessageId != "m-1" {
		t.Fatalf("expected one message with id m-1, got %+v", pub.sent)
	}
}

func TestPublishJSONFallsBackToOutbox(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	store := memory.NewStore()
	p := NewReliablePublisher(pub, store.OutboxRepository(), 5, 0)

	if err := p.PublishJSON(context.Background(), "trade.audit", "m-2", "payload"); err != nil {
		t.Fatalf("PublishJSON() error: %v", err)
	}

	pending, err := store.OutboxRepository().GetPendingMessages(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetPendingMessages() error: %v", err)
	}
	if len(pending) != 1 || pending[0].MessageID != "m-2" || pending[0].QueueName != "trade.audit" {
		t.Fatalf("unexpected outbox content: %+v", pending)
	}
}
