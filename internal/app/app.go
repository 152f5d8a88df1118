package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/trade/internal/config"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iauditrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iuow"
	"github.com/corray333/backend-labs/trade/internal/dal/memory"
	"github.com/corray333/backend-labs/trade/internal/dal/postgres"
	"github.com/corray333/backend-labs/trade/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/trade/internal/dal/redis"
	auditrepo "github.com/corray333/backend-labs/trade/internal/dal/repositories/audit/postgres"
	auditpublisher "github.com/corray333/backend-labs/trade/internal/dal/repositories/audit/rabbitmq"
	notificationpublisher "github.com/corray333/backend-labs/trade/internal/dal/repositories/notification/rabbitmq"
	outboxrepo "github.com/corray333/backend-labs/trade/internal/dal/repositories/outbox/postgres"
	"github.com/corray333/backend-labs/trade/internal/dal/uow"
	"github.com/corray333/backend-labs/trade/internal/otel"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/currency"
	"github.com/corray333/backend-labs/trade/internal/service/models/notification"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/service/numbering"
	"github.com/corray333/backend-labs/trade/internal/service/services/auditsvc"
	"github.com/corray333/backend-labs/trade/internal/service/services/consumersvc"
	"github.com/corray333/backend-labs/trade/internal/service/services/inventorysvc"
	"github.com/corray333/backend-labs/trade/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/trade/internal/service/services/paymentsvc"
	"github.com/corray333/backend-labs/trade/internal/service/services/shipmentsvc"
	httptransport "github.com/corray333/backend-labs/trade/internal/transport/http"
	outboxworker "github.com/corray333/backend-labs/trade/internal/worker/outbox"
	"github.com/spf13/viper"
)

// App represents the trade service.
type App struct {
	transport      *httptransport.HTTPTransport
	outboxWorker   *outboxworker.Worker
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	redisClient    *redis.Client
	otelController *otel.OtelController
}

// storage is the driver-specific part of the wiring.
type storage struct {
	factory    iuow.Factory
	outboxRepo ioutboxrepo.IOutboxRepository
	auditRepo  iauditrepo.IAuditRepository
}

func mustNewStorage(a *App) storage {
	switch driver := viper.GetString("storage.driver"); driver {
	case "memory":
		slog.Warn("Using in-memory storage, data is lost on restart")
		store := memory.NewStore()

		return storage{
			factory:    store.Factory(),
			outboxRepo: store.OutboxRepository(),
			auditRepo:  store.AuditRepository(),
		}
	case "postgres":
		a.postgresClient = postgres.MustNewClient()

		return storage{
			factory:    uow.Factory(a.postgresClient),
			outboxRepo: outboxrepo.NewOutboxRepository(a.postgresClient),
			auditRepo:  auditrepo.NewAuditRepository(a.postgresClient),
		}
	default:
		panic("unknown storage.driver: " + driver)
	}
}

// Collaborators that are only present with some backends. A nil value disables the feature.
type (
	auditPublisher interface {
		Publish(ctx context.Context, entry auditlog.Entry) error
	}
	shipmentNotifier interface {
		SendShipmentStatusChanged(ctx context.Context, n notification.ShipmentStatusChanged) error
	}
	paymentLocker interface {
		Lock(ctx context.Context, key string) (func(), error)
	}
)

// MustNewApp creates a new application.
func MustNewApp() *App {
	a := &App{
		otelController: otel.MustInitOtel("trade-svc"),
	}
	store := mustNewStorage(a)

	var (
		seq    numbering.Sequence
		locker paymentLocker
	)
	if viper.GetBool("redis.enabled") {
		a.redisClient = redis.MustNewClient()
		seq = redis.NewSequence(a.redisClient, 40*24*time.Hour)
		ttl := time.Duration(viper.GetInt("payments.lock_ttl_seconds")) * time.Second
		locker = redis.NewLocker(a.redisClient, ttl, 100*time.Millisecond, 50)
	}
	numbers := numbering.NewGenerator(seq, numbering.WithMaxAttempts(viper.GetInt("numbering.max_attempts")))

	// Without a broker, entries go straight to the audit table.
	history := consumersvc.MustNewConsumerService(consumersvc.WithAuditRepository(store.auditRepo))
	var (
		publisher auditPublisher = history
		notifier  shipmentNotifier
	)

	subscribers := viper.GetStringSlice("notifications.shipment_subscribers")
	if viper.GetBool("rabbitmq.enabled") {
		a.rabbitMqClient = rabbitmq.MustNewClient()
		auditQueue := mustDeclareQueue(a.rabbitMqClient, viper.GetString("rabbitmq.audit_queue"))
		notificationQueue := mustDeclareQueue(a.rabbitMqClient, viper.GetString("rabbitmq.notification_queue"))

		maxRetries := viper.GetInt("rabbitmq.outbox.max_retries")
		if maxRetries == 0 {
			maxRetries = 5
		}
		retryInterval := time.Duration(viper.GetInt("rabbitmq.outbox.retry_interval_seconds")) * time.Second
		if retryInterval == 0 {
			retryInterval = 30 * time.Second
		}
		reliable := rabbitmq.NewReliablePublisher(a.rabbitMqClient, store.outboxRepo, maxRetries, retryInterval)

		publisher = auditpublisher.NewAuditRabbitMQRepository(reliable, auditQueue)
		notifier = notificationpublisher.NewNotificationRabbitMQRepository(reliable, notificationQueue)
		a.outboxWorker = outboxworker.NewWorker(store.outboxRepo, a.rabbitMqClient)
	} else if len(subscribers) > 0 {
		slog.Warn("Shipment subscribers configured without rabbitmq, notifications are disabled")
	}

	auditSvc := auditsvc.MustNewAuditService(auditsvc.WithPublisher(publisher))

	inventorySvc := inventorysvc.MustNewInventoryService(
		inventorysvc.WithUnitOfWork(store.factory),
		inventorysvc.WithAuditor(auditSvc),
	)

	defaultCurrency, err := currency.ParseCurrency(viper.GetString("orders.default_currency"))
	if err != nil {
		panic("invalid orders.default_currency: " + err.Error())
	}
	defaultIncoterm, err := order.ParseIncoterm(viper.GetString("orders.default_incoterm"))
	if err != nil {
		panic("invalid orders.default_incoterm: " + err.Error())
	}
	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithUnitOfWork(store.factory),
		ordersvc.WithNumberGenerator(numbers),
		ordersvc.WithTaxRateProvider(config.TaxRateProvider{}),
		ordersvc.WithAuditor(auditSvc),
		ordersvc.WithReservationReleaser(inventorySvc),
		ordersvc.WithDefaults(defaultCurrency, defaultIncoterm),
	)

	shipmentSvc := shipmentsvc.MustNewShipmentService(
		shipmentsvc.WithUnitOfWork(store.factory),
		shipmentsvc.WithNumberGenerator(numbers),
		shipmentsvc.WithAuditor(auditSvc),
		shipmentsvc.WithNotifier(notifier, subscribers...),
	)

	paymentSvc := paymentsvc.MustNewPaymentService(
		paymentsvc.WithUnitOfWork(store.factory),
		paymentsvc.WithNumberGenerator(numbers),
		paymentsvc.WithAuditor(auditSvc),
		paymentsvc.WithLocker(locker),
	)

	a.transport = httptransport.NewHTTPTransport(httptransport.Services{
		Orders:    orderSvc,
		Inventory: inventorySvc,
		Shipments: shipmentSvc,
		Payments:  paymentSvc,
		AuditLog:  history,
	})
	a.transport.RegisterRoutes()

	return a
}

func mustDeclareQueue(client *rabbitmq.Client, name string) string {
	if name == "" {
		panic("rabbitmq queue name is not set in config")
	}
	if _, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{Name: name, Durable: true}); err != nil {
		panic(err)
	}

	return name
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting HTTP server", "port", viper.GetString("server.http.port"))
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if a.outboxWorker != nil {
		go func() {
			slog.Info("Starting outbox worker")
			a.outboxWorker.Start(ctx)
		}()
	}

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown stops the HTTP server first, then the outbox worker, then closes the clients.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if a.outboxWorker != nil {
		a.outboxWorker.Stop()
		slog.Info("Outbox worker stopped gracefully")
	}

	if a.rabbitMqClient != nil {
		if err := a.rabbitMqClient.Close(); err != nil {
			slog.Error("RabbitMQ connection close error", "error", err)
		} else {
			slog.Info("RabbitMQ connection closed gracefully")
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			slog.Error("Redis connection close error", "error", err)
		} else {
			slog.Info("Redis connection closed gracefully")
		}
	}

	if a.postgresClient != nil {
		a.postgresClient.Close()
		slog.Info("Database connection closed gracefully")
	}

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
