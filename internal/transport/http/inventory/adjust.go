package inventory

import (
	"encoding/json"
	"net/http"

	"github.com/corray333/backend-labs/trade/internal/service/models/inventory"
	"github.com/corray333/backend-labs/trade/internal/transport/http/render"
	"github.com/go-playground/validator/v10"
)

type adjustRequest struct {
	SKUID       int64  `json:"skuId"       validate:"gt=0"`
	WarehouseID int64  `json:"warehouseId" validate:"gt=0"`
	Delta       int    `json:"delta"       validate:"ne=0"`
	Reason      string `json:"reason"      validate:"required,max=255"`
}

type createRecordRequest struct {
	SKUID       int64  `json:"skuId"       validate:"gt=0"`
	WarehouseID int64  `json:"warehouseId" validate:"gt=0"`
	InitialQty  int    `json:"initialQty"  validate:"gte=0"`
	BinLocation string `json:"binLocation" validate:"max=64"`
}

// Adjust handles POST /inventory/adjust.
func Adjust(w http.ResponseWriter, r *http.Request, service service) {
	req := adjustRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.BadRequest(w, err)

		return
	}
	if err := validator.New().Struct(&req); err != nil {
		render.BadRequest(w, err)

		return
	}

	rec, err := service.Adjust(r.Context(), inventory.Adjustment{
		SKUID:       req.SKUID,
		WarehouseID: req.WarehouseID,
		Delta:       req.Delta,
		Reason:      req.Reason,
	})
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.OK(w, rec)
}

// CreateRecord handles POST /inventory.
func CreateRecord(w http.ResponseWriter, r *http.Request, service service) {
	req := createRecordRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.BadRequest(w, err)

		return
	}
	if err := validator.New().Struct(&req); err != nil {
		render.BadRequest(w, err)

		return
	}

	rec, err := service.CreateRecord(r.Context(), req.SKUID, req.WarehouseID, req.InitialQty, req.BinLocation)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.Created(w, rec)
}
