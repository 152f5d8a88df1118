package inventory

import (
	"encoding/json"
	"net/http"

	"github.com/corray333/backend-labs/trade/internal/service/models/inventory"
	"github.com/corray333/backend-labs/trade/internal/transport/http/render"
	"github.com/go-playground/validator/v10"
)

type reserveRequest struct {
	OrderID     int64 `json:"orderId"     validate:"gt=0"`
	WarehouseID int64 `json:"warehouseId" validate:"gt=0"`
}

type releaseRequest struct {
	OrderID int64 `json:"orderId" validate:"gt=0"`
}

// reserveResponse keeps the partial-success shape: success is false when any line failed.
type reserveResponse struct {
	Success      bool                    `json:"success"`
	Reservations []inventory.Reservation `json:"reservations"`
	Errors       []string                `json:"errors"`
}

// Reserve handles POST /inventory/reserve. Lines that could not be reserved are reported in
// the body and do not change the status code.
func Reserve(w http.ResponseWriter, r *http.Request, service service) {
	req := reserveRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.BadRequest(w, err)

		return
	}
	if err := validator.New().Struct(&req); err != nil {
		render.BadRequest(w, err)

		return
	}

	result, err := service.Reserve(r.Context(), req.OrderID, req.WarehouseID)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.OK(w, reserveResponse{
		Success:      result.Success(),
		Reservations: result.Reservations,
		Errors:       result.Errors,
	})
}

// Release handles POST /inventory/release.
func Release(w http.ResponseWriter, r *http.Request, service service) {
	req := releaseRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.BadRequest(w, err)

		return
	}
	if err := validator.New().Struct(&req); err != nil {
		render.BadRequest(w, err)

		return
	}

	result, err := service.Release(r.Context(), req.OrderID)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.OK(w, result)
}
