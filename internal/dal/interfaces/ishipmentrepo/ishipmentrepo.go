package ishipmentrepo

import (
	"context"

	"github.com/corray333/backend-labs/trade/internal/service/models/shipment"
)

// IShipmentRepository is an interface for shipment repository.
type IShipmentRepository interface {
	// Insert stores a new shipment. It returns errs.ErrDuplicateKey when the shipment number is taken.
	Insert(ctx context.Context, s shipment.Shipment) (shipment.Shipment, error)
	Get(ctx context.Context, id int64) (shipment.Shipment, error)
	// GetForUpdate reads the shipment and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (shipment.Shipment, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (shipment.Shipment, error)
	Query(ctx context.Context, filter *shipment.QueryShipmentsModel) ([]shipment.Shipment, error)
	Update(ctx context.Context, s shipment.Shipment) (shipment.Shipment, error)

	InsertEvent(ctx context.Context, e shipment.Event) (shipment.Event, error)
	QueryEvents(ctx context.Context, shipmentID int64) ([]shipment.Event, error)
}
