package inventory

import (
	"net/http"

	"github.com/corray333/backend-labs/trade/internal/service/models/inventory"
	"github.com/corray333/backend-labs/trade/internal/transport/http/render"
	"github.com/gorilla/schema"
)

type queryInventoryRequest struct {
	SKUIds       []int64 `schema:"skuIds,omitempty"`
	WarehouseIds []int64 `schema:"warehouseIds,omitempty"`
	Limit        int     `schema:"limit,omitempty"`
	Offset       int     `schema:"offset,omitempty"`
}

// List handles GET /inventory.
func List(w http.ResponseWriter, r *http.Request, service service) {
	query := &queryInventoryRequest{}
	if err := schema.NewDecoder().Decode(query, r.URL.Query()); err != nil {
		render.BadRequest(w, err)

		return
	}

	records, err := service.List(r.Context(), inventory.QueryRecordsModel{
		SKUIds:       query.SKUIds,
		WarehouseIds: query.WarehouseIds,
		Limit:        query.Limit,
		Offset:       query.Offset,
	})
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.OK(w, records)
}
