// Package shipments serves the shipment lifecycle endpoints.
package shipments

import (
	"context"

	"github.com/corray333/backend-labs/trade/internal/service/models/shipment"
	"github.com/corray333/backend-labs/trade/internal/service/services/shipmentsvc"
)

type service interface {
	Create(ctx context.Context, in shipmentsvc.CreateShipmentInput) (shipment.Shipment, error)
	Update(ctx context.Context, id int64, patch shipment.Patch) (shipment.Shipment, error)
	Get(ctx context.Context, id int64) (shipment.Shipment, error)
	List(ctx context.Context, filter shipment.QueryShipmentsModel) ([]shipment.Shipment, error)
	Track(ctx context.Context, id int64) (shipment.Tracking, error)
}
