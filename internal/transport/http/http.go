package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/trade/internal/service/services/consumersvc"
	"github.com/corray333/backend-labs/trade/internal/service/services/inventorysvc"
	"github.com/corray333/backend-labs/trade/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/trade/internal/service/services/paymentsvc"
	"github.com/corray333/backend-labs/trade/internal/service/services/shipmentsvc"
	"github.com/corray333/backend-labs/trade/internal/transport/http/actor"
	"github.com/corray333/backend-labs/trade/internal/transport/http/auditlog"
	"github.com/corray333/backend-labs/trade/internal/transport/http/inventory"
	"github.com/corray333/backend-labs/trade/internal/transport/http/orders"
	"github.com/corray333/backend-labs/trade/internal/transport/http/shipments"
	"github.com/corray333/backend-labs/trade/internal/transport/http/transactions"
	"github.com/corray333/backend-labs/trade/internal/transport/http/webhooks"
	"github.com/corray333/backend-labs/trade/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/trade/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

// Services groups the services served over HTTP.
type Services struct {
	Orders    *ordersvc.OrderService
	Inventory *inventorysvc.InventoryService
	Shipments *shipmentsvc.ShipmentService
	Payments  *paymentsvc.PaymentService
	// AuditLog is optional; without it the history endpoint is not served.
	AuditLog *consumersvc.ConsumerService
}

type HTTPTransport struct {
	server   *http.Server
	router   *chi.Mux
	services Services
}

func NewHTTPTransport(services Services) *HTTPTransport {
	router := newRouter()
	server := newServer(router)

	return &HTTPTransport{
		server:   server,
		router:   router,
		services: services,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Use(actor.Middleware)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}", h.updateOrder)
			r.Delete("/{id}", h.deleteOrder)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/", h.createInventoryRecord)
			r.Get("/", h.listInventory)
			r.Post("/reserve", h.reserveInventory)
			r.Post("/release", h.releaseInventory)
			r.Post("/adjust", h.adjustInventory)
		})

		r.Route("/shipments", func(r chi.Router) {
			r.Post("/", h.createShipment)
			r.Get("/", h.listShipments)
			r.Get("/{id}", h.getShipment)
			r.Put("/{id}", h.updateShipment)
			r.Get("/{id}/track", h.trackShipment)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", h.recordTransaction)
			r.Get("/", h.listTransactions)
		})

		r.Post("/webhooks/carrier", h.carrierWebhook)
		r.Post("/webhooks/payment", h.paymentWebhook)

		if h.services.AuditLog != nil {
			r.Get("/audit-log", h.auditHistory)
		}
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	orders.CreateOrder(w, r, h.services.Orders)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	orders.ListOrders(w, r, h.services.Orders)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	orders.GetOrder(w, r, h.services.Orders)
}

func (h *HTTPTransport) updateOrder(w http.ResponseWriter, r *http.Request) {
	orders.UpdateOrder(w, r, h.services.Orders)
}

func (h *HTTPTransport) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orders.DeleteOrder(w, r, h.services.Orders)
}

func (h *HTTPTransport) createInventoryRecord(w http.ResponseWriter, r *http.Request) {
	inventory.CreateRecord(w, r, h.services.Inventory)
}

func (h *HTTPTransport) listInventory(w http.ResponseWriter, r *http.Request) {
	inventory.List(w, r, h.services.Inventory)
}

func (h *HTTPTransport) reserveInventory(w http.ResponseWriter, r *http.Request) {
	inventory.Reserve(w, r, h.services.Inventory)
}

func (h *HTTPTransport) releaseInventory(w http.ResponseWriter, r *http.Request) {
	inventory.Release(w, r, h.services.Inventory)
}

func (h *HTTPTransport) adjustInventory(w http.ResponseWriter, r *http.Request) {
	inventory.Adjust(w, r, h.services.Inventory)
}

func (h *HTTPTransport) createShipment(w http.ResponseWriter, r *http.Request) {
	shipments.CreateShipment(w, r, h.services.Shipments)
}

func (h *HTTPTransport) listShipments(w http.ResponseWriter, r *http.Request) {
	shipments.ListShipments(w, r, h.services.Shipments)
}

func (h *HTTPTransport) getShipment(w http.ResponseWriter, r *http.Request) {
	shipments.GetShipment(w, r, h.services.Shipments)
}

func (h *HTTPTransport) updateShipment(w http.ResponseWriter, r *http.Request) {
	shipments.UpdateShipment(w, r, h.services.Shipments)
}

func (h *HTTPTransport) trackShipment(w http.ResponseWriter, r *http.Request) {
	shipments.TrackShipment(w, r, h.services.Shipments)
}

func (h *HTTPTransport) recordTransaction(w http.ResponseWriter, r *http.Request) {
	transactions.RecordTransaction(w, r, h.services.Payments)
}

func (h *HTTPTransport) listTransactions(w http.ResponseWriter, r *http.Request) {
	transactions.ListTransactions(w, r, h.services.Payments)
}

func (h *HTTPTransport) carrierWebhook(w http.ResponseWriter, r *http.Request) {
	webhooks.Carrier(w, r, h.services.Shipments)
}

func (h *HTTPTransport) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	webhooks.Payment(w, r, h.services.Payments)
}

func (h *HTTPTransport) auditHistory(w http.ResponseWriter, r *http.Request) {
	auditlog.History(w, r, h.services.AuditLog)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(middleware.Recoverer)
	router.Use(trace.NewTraceMiddleware("trade-svc"))

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
