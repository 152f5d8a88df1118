package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corray333/backend-labs/trade/internal/dal/memory"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/inbox"
	"github.com/streadway/amqp"
)

type ackRecorder struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.acked = true

	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked = true
	a.requeue = requeue

	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacked = true
	a.requeue = requeue

	return nil
}

type fakeService struct {
	err   error
	calls int
}

func (f *fakeService) ProcessAuditLog(context.Context, auditlog.Entry) error {
	f.calls++

	return f.err
}

type failingInbox struct {
	*memory.InboxRepository
}

func (failingInbox) Insert(context.Context, inbox.InboxMessage) error {
	return errors.New("inbox down")
}

const validBody = `{"messageId":"m-1","action":"order.created","entityType":"order","entityId":"1"}`

func delivery(body string) (amqp.Delivery, *ackRecorder) {
	rec := &ackRecorder{}

	return amqp.Delivery{Acknowledger: rec, Body: []byte(body), ContentType: "application/json"}, rec
}

func TestProcessMessage(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		serviceErr  error
		failInbox   bool
		wantAck     bool
		wantRequeue bool
		wantInbox   int
	}{
		{name: "stored", body: validBody, wantAck: true},
		{name: "malformed is dropped", body: "{oops"},
		{name: "missing message id is dropped", body: `{"action":"x","entityType":"order"}`},
		{name: "failure goes to inbox", body: validBody, serviceErr: errors.New("db down"), wantAck: true, wantInbox: 1},
		{
			name:        "failure requeues when inbox fails",
			body:        validBody,
			serviceErr:  errors.New("db down"),
			failInbox:   true,
			wantRequeue: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			c := &Consumer{
				service:    &fakeService{err: tt.serviceErr},
				inboxRepo:  store.InboxRepository(),
				maxRetries: 5,
				queue:      amqp.Queue{Name: "trade.audit"},
			}
			if tt.failInbox {
				c.inboxRepo = failingInbox{}
			}

			msg, rec := delivery(tt.body)
			c.processMessage(context.Background(), msg)

			if rec.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", rec.acked, tt.wantAck)
			}
			if !tt.wantAck && !rec.nacked {
				t.Errorf("expected message to be nacked")
			}
			if rec.requeue != tt.wantRequeue {
				t.Errorf("requeue = %v, want %v", rec.requeue, tt.wantRequeue)
			}

			// parked messages are deferred, look ahead past the first retry
			if tt.wantInbox > 0 {
				store.SetClock(func() time.Time { return time.Now().Add(time.Hour) })
				msgs, err := store.InboxRepository().GetPendingMessages(context.Background(), 10)
				if err != nil {
					t.Fatalf("GetPendingMessages() error: %v", err)
				}
				if len(msgs) != tt.wantInbox {
					t.Errorf("inbox size = %d, want %d", len(msgs), tt.wantInbox)
				}
			}
		})
	}
}
