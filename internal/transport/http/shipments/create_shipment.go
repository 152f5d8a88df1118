package shipments

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/shipment"
	"github.com/corray333/backend-labs/trade/internal/service/services/shipmentsvc"
	"github.com/corray333/backend-labs/trade/internal/transport/http/render"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type createShipmentRequest struct {
	OrderID            int64           `json:"orderId"        validate:"gt=0"`
	Carrier            string          `json:"carrier"        validate:"max=100"`
	TrackingNumber     string          `json:"trackingNumber" validate:"max=100"`
	VesselOrFlight     string          `json:"vesselOrFlight"`
	ContainerNo        string          `json:"containerNo"`
	SealNo             string          `json:"sealNo"`
	Mode               string          `json:"mode"`
	EstimatedDeparture *time.Time      `json:"estimatedDeparture"`
	EstimatedArrival   *time.Time      `json:"estimatedArrival"`
	FreightCost        decimal.Decimal `json:"freightCost"`
	InsuranceCost      decimal.Decimal `json:"insuranceCost"`
	TrackingURL        string          `json:"trackingUrl"    validate:"omitempty,url"`
	Notes              string          `json:"notes"`
}

func (r *createShipmentRequest) toInput() (shipmentsvc.CreateShipmentInput, error) {
	in := shipmentsvc.CreateShipmentInput{
		OrderID:            r.OrderID,
		Carrier:            r.Carrier,
		TrackingNumber:     r.TrackingNumber,
		VesselOrFlight:     r.VesselOrFlight,
		ContainerNo:        r.ContainerNo,
		SealNo:             r.SealNo,
		EstimatedDeparture: r.EstimatedDeparture,
		EstimatedArrival:   r.EstimatedArrival,
		FreightCost:        r.FreightCost,
		InsuranceCost:      r.InsuranceCost,
		TrackingURL:        r.TrackingURL,
		Notes:              r.Notes,
	}
	if r.Mode != "" {
		mode, err := shipment.ParseMode(r.Mode)
		if err != nil {
			return shipmentsvc.CreateShipmentInput{}, errs.Validation("%v", err)
		}
		in.Mode = mode
	}

	return in, nil
}

// CreateShipment handles POST /shipments.
func CreateShipment(w http.ResponseWriter, r *http.Request, service service) {
	req := createShipmentRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.BadRequest(w, err)

		return
	}
	if err := validator.New().Struct(&req); err != nil {
		render.BadRequest(w, err)

		return
	}

	in, err := req.toInput()
	if err != nil {
		render.BadRequest(w, err)

		return
	}

	created, err := service.Create(r.Context(), in)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.Created(w, created)
}
