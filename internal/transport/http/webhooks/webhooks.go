// Package webhooks ingests carrier and payment gateway callbacks.
package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/shipment"
	"github.com/corray333/backend-labs/trade/internal/service/models/transaction"
	"github.com/corray333/backend-labs/trade/internal/transport/http/render"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type carrierService interface {
	HandleCarrierUpdate(ctx context.Context, upd shipment.CarrierUpdate) (shipment.Shipment, error)
}

type paymentService interface {
	HandleGatewayUpdate(ctx context.Context, upd transaction.GatewayUpdate) (transaction.Transaction, error)
}

// asSystem replaces the caller identity: webhook calls are made on behalf of the integration.
func asSystem(r *http.Request, source string) context.Context {
	a := auditlog.ActorFromContext(r.Context())
	a.ID = source
	a.Role = auditlog.RoleSystem
	a.BuyerID = 0

	return auditlog.WithActor(r.Context(), a)
}

type carrierRequest struct {
	TrackingNumber string    `json:"trackingNumber" validate:"required"`
	Status         string    `json:"status"         validate:"required"`
	Location       string    `json:"location"`
	Timestamp      time.Time `json:"timestamp"`
	Carrier        string    `json:"carrier"`
}

// Carrier handles POST /webhooks/carrier.
func Carrier(w http.ResponseWriter, r *http.Request, service carrierService) {
	req := carrierRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.BadRequest(w, err)

		return
	}
	if err := validator.New().Struct(&req); err != nil {
		render.BadRequest(w, err)

		return
	}

	sh, err := service.HandleCarrierUpdate(asSystem(r, "carrier:"+req.Carrier), shipment.CarrierUpdate{
		TrackingNumber: req.TrackingNumber,
		Status:         req.Status,
		Location:       req.Location,
		Timestamp:      req.Timestamp,
		Carrier:        req.Carrier,
	})
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.OK(w, sh)
}

type paymentRequest struct {
	OrderID       int64           `json:"orderId"       validate:"gt=0"`
	TransactionID string          `json:"transactionId" validate:"required"`
	Status        string          `json:"status"        validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Gateway       string          `json:"gateway"`
}

// Payment handles POST /webhooks/payment.
func Payment(w http.ResponseWriter, r *http.Request, service paymentService) {
	req := paymentRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.BadRequest(w, err)

		return
	}
	if err := validator.New().Struct(&req); err != nil {
		render.BadRequest(w, err)

		return
	}

	status, err := transaction.ParseStatus(req.Status)
	if err != nil {
		render.BadRequest(w, errs.Validation("%v", err))

		return
	}

	txn, err := service.HandleGatewayUpdate(asSystem(r, "gateway:"+req.Gateway), transaction.GatewayUpdate{
		OrderID:       req.OrderID,
		TransactionID: req.TransactionID,
		Status:        status,
		Amount:        req.Amount,
		Gateway:       req.Gateway,
	})
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.OK(w, txn)
}
