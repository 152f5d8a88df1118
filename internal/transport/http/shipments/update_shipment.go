package shipments

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/shipment"
	"github.com/corray333/backend-labs/trade/internal/transport/http/render"
	"github.com/shopspring/decimal"
)

type updateShipmentRequest struct {
	Status             *string          `json:"status"`
	Carrier            *string          `json:"carrier"`
	TrackingNumber     *string          `json:"trackingNumber"`
	VesselOrFlight     *string          `json:"vesselOrFlight"`
	ContainerNo        *string          `json:"containerNo"`
	SealNo             *string          `json:"sealNo"`
	Mode               *string          `json:"mode"`
	EstimatedDeparture *time.Time       `json:"estimatedDeparture"`
	ActualDeparture    *time.Time       `json:"actualDeparture"`
	EstimatedArrival   *time.Time       `json:"estimatedArrival"`
	ActualArrival      *time.Time       `json:"actualArrival"`
	FreightCost        *decimal.Decimal `json:"freightCost"`
	InsuranceCost      *decimal.Decimal `json:"insuranceCost"`
	TrackingURL        *string          `json:"trackingUrl"`
	Notes              *string          `json:"notes"`
}

func (r *updateShipmentRequest) toPatch() (shipment.Patch, error) {
	patch := shipment.Patch{
		Carrier:            r.Carrier,
		TrackingNumber:     r.TrackingNumber,
		VesselOrFlight:     r.VesselOrFlight,
		ContainerNo:        r.ContainerNo,
		SealNo:             r.SealNo,
		EstimatedDeparture: r.EstimatedDeparture,
		ActualDeparture:    r.ActualDeparture,
		EstimatedArrival:   r.EstimatedArrival,
		ActualArrival:      r.ActualArrival,
		FreightCost:        r.FreightCost,
		InsuranceCost:      r.InsuranceCost,
		TrackingURL:        r.TrackingURL,
		Notes:              r.Notes,
	}
	if r.Status != nil {
		st, err := shipment.ParseStatus(*r.Status)
		if err != nil {
			return shipment.Patch{}, errs.Validation("%v", err)
		}
		patch.Status = &st
	}
	if r.Mode != nil {
		mode, err := shipment.ParseMode(*r.Mode)
		if err != nil {
			return shipment.Patch{}, errs.Validation("%v", err)
		}
		patch.Mode = &mode
	}

	return patch, nil
}

// UpdateShipment handles PUT /shipments/{id}.
func UpdateShipment(w http.ResponseWriter, r *http.Request, service service) {
	id, err := render.PathID(r, "id")
	if err != nil {
		render.BadRequest(w, err)

		return
	}

	req := updateShipmentRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.BadRequest(w, err)

		return
	}

	patch, err := req.toPatch()
	if err != nil {
		render.BadRequest(w, err)

		return
	}

	updated, err := service.Update(r.Context(), id, patch)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.OK(w, updated)
}
