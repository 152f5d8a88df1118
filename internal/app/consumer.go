package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/trade/internal/dal/postgres"
	"github.com/corray333/backend-labs/trade/internal/dal/rabbitmq"
	auditrepo "github.com/corray333/backend-labs/trade/internal/dal/repositories/audit/postgres"
	inboxrepo "github.com/corray333/backend-labs/trade/internal/dal/repositories/inbox/postgres"
	"github.com/corray333/backend-labs/trade/internal/otel"
	"github.com/corray333/backend-labs/trade/internal/service/services/consumersvc"
	"github.com/corray333/backend-labs/trade/internal/transport/consumer"
	inboxworker "github.com/corray333/backend-labs/trade/internal/worker/inbox"
	"github.com/spf13/viper"
)

// ConsumerApp represents the audit consumer.
type ConsumerApp struct {
	consumerSvc    *consumersvc.ConsumerService
	consumerTransp *consumer.Consumer
	inboxWorker    *inboxworker.Worker
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	otelController *otel.OtelController
}

// MustNewConsumerApp creates the audit consumer. It always runs on postgres and rabbitmq.
func MustNewConsumerApp() *ConsumerApp {
	otelController := otel.MustInitOtel("audit-consumer")
	rabbitMqClient := rabbitmq.MustNewClient()
	postgresClient := postgres.MustNewClient()

	auditRepository := auditrepo.NewAuditRepository(postgresClient)
	inboxRepository := inboxrepo.NewInboxRepository(postgresClient)

	consumerSvc := consumersvc.MustNewConsumerService(
		consumersvc.WithAuditRepository(auditRepository),
	)

	consumerTransp := consumer.NewConsumer(rabbitMqClient, consumerSvc, inboxRepository)

	pollInterval := time.Duration(viper.GetInt("rabbitmq.inbox.poll_interval_seconds")) * time.Second
	if pollInterval == 0 {
		pollInterval = 10 * time.Second
	}
	batchSize := viper.GetInt("rabbitmq.inbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}
	inboxWorker := inboxworker.NewWorker(inboxRepository, consumerSvc, pollInterval, batchSize)

	return &ConsumerApp{
		consumerSvc:    consumerSvc,
		consumerTransp: consumerTransp,
		inboxWorker:    inboxWorker,
		rabbitMqClient: rabbitMqClient,
		postgresClient: postgresClient,
		otelController: otelController,
	}
}

// Run starts the consumer.
// Tracks interrupt signal to gracefully shut down the application.
func (a *ConsumerApp) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting consumer")
		if err := a.consumerTransp.Run(ctx); err != nil {
			slog.Error("Consumer error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting inbox worker")
		a.inboxWorker.Start(ctx)
	}()

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown stops the inbox worker and the consumer, then closes the clients.
func (a *ConsumerApp) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.inboxWorker.Stop()
	slog.Info("Inbox worker stopped gracefully")

	if err := a.consumerTransp.Shutdown(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	} else {
		slog.Info("Consumer stopped gracefully")
	}

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Otel trace provider connection close error", "error", err)
	} else {
		slog.Info("Otel trace provider connection closed gracefully")
	}

	select {
	case <-ctx.Done():
		slog.Warn("Shutdown timeout exceeded")
	default:
		slog.Info("Application shutdown complete")
	}
}
