package inbox

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iinboxrepo"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/inbox"
	"github.com/corray333/backend-labs/trade/internal/service/services/consumersvc"
)

// service represents the service layer interface.
type service interface {
	ProcessAuditLog(ctx context.Context, entry auditlog.Entry) error
}

// Worker processes messages from the inbox table.
type Worker struct {
	inboxRepo    iinboxrepo.IInboxRepository
	service      service
	pollInterval time.Duration
	batchSize    int
	stopCh       chan struct{}
}

// NewWorker creates a new inbox worker.
func NewWorker(
	inboxRepo iinboxrepo.IInboxRepository,
	service service,
	pollInterval time.Duration,
	batchSize int,
) *Worker {
	return &Worker{
		inboxRepo:    inboxRepo,
		service:      service,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		stopCh:       make(chan struct{}),
	}
}

// Start begins processing messages from the inbox.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Inbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Inbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Inbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// processMessages retries every due inbox message once.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.inboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending messages from inbox", "error", err)

		return
	}
	if len(messages) > 0 {
		slog.Info("Processing inbox messages", "count", len(messages))
	}

	for _, msg := range messages {
		w.processMessage(ctx, msg)
	}
}

func (w *Worker) processMessage(ctx context.Context, msg inbox.InboxMessage) {
	entry, err := consumersvc.DecodeAuditLog(msg.Payload)
	if err != nil {
		// A payload that never decodes is not kept past its retry budget.
		if msg.RetryCount+1 >= msg.MaxRetries {
			slog.Warn("Dropping undecodable inbox message", "inbox_id", msg.ID, "message_id", msg.MessageID, "error", err)
			w.delete(ctx, msg)

			return
		}
		w.scheduleRetry(ctx, msg, err)

		return
	}

	if err := w.service.ProcessAuditLog(ctx, entry); err != nil {
		w.scheduleRetry(ctx, msg, err)

		return
	}

	w.delete(ctx, msg)
	slog.Info("Inbox message processed", "inbox_id", msg.ID, "message_id", msg.MessageID)
}

func (w *Worker) scheduleRetry(ctx context.Context, msg inbox.InboxMessage, cause error) {
	retryCount := msg.RetryCount + 1
	nextRetryAt := time.Now().Add(backoff(retryCount))

	slog.Warn("Inbox message failed, will retry",
		"inbox_id", msg.ID,
		"retry_count", retryCount,
		"next_retry", nextRetryAt,
		"error", cause,
	)
	if err := w.inboxRepo.UpdateRetry(ctx, msg.ID, retryCount, cause.Error(), nextRetryAt); err != nil {
		slog.Error("Failed to update inbox retry", "inbox_id", msg.ID, "error", err)
	}
}

func (w *Worker) delete(ctx context.Context, msg inbox.InboxMessage) {
	if err := w.inboxRepo.Delete(ctx, msg.ID); err != nil {
		slog.Error("Failed to delete inbox message", "inbox_id", msg.ID, "error", err)
	}
}

// backoff is 2^n * 30s.
func backoff(n int) time.Duration {
	return time.Duration(math.Pow(2, float64(n))*30) * time.Second
}
