package shipments

import (
	"net/http"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/shipment"
	"github.com/corray333/backend-labs/trade/internal/transport/http/render"
	"github.com/gorilla/schema"
)

type queryShipmentsRequest struct {
	Ids      []int64  `schema:"ids,omitempty"`
	OrderIds []int64  `schema:"orderIds,omitempty"`
	Statuses []string `schema:"statuses,omitempty"`
	Limit    int      `schema:"limit,omitempty"`
	Offset   int      `schema:"offset,omitempty"`
}

func (q *queryShipmentsRequest) ToModel() (shipment.QueryShipmentsModel, error) {
	model := shipment.QueryShipmentsModel{
		Ids:      q.Ids,
		OrderIds: q.OrderIds,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	for _, s := range q.Statuses {
		st, err := shipment.ParseStatus(s)
		if err != nil {
			return shipment.QueryShipmentsModel{}, errs.Validation("%v", err)
		}
		model.Statuses = append(model.Statuses, st)
	}

	return model, nil
}

// ListShipments handles GET /shipments.
func ListShipments(w http.ResponseWriter, r *http.Request, service service) {
	query := &queryShipmentsRequest{}
	if err := schema.NewDecoder().Decode(query, r.URL.Query()); err != nil {
		render.BadRequest(w, err)

		return
	}

	model, err := query.ToModel()
	if err != nil {
		render.BadRequest(w, err)

		return
	}

	list, err := service.List(r.Context(), model)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.OK(w, list)
}

// GetShipment handles GET /shipments/{id}.
func GetShipment(w http.ResponseWriter, r *http.Request, service service) {
	id, err := render.PathID(r, "id")
	if err != nil {
		render.BadRequest(w, err)

		return
	}

	sh, err := service.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.OK(w, sh)
}

// TrackShipment handles GET /shipments/{id}/track.
func TrackShipment(w http.ResponseWriter, r *http.Request, service service) {
	id, err := render.PathID(r, "id")
	if err != nil {
		render.BadRequest(w, err)

		return
	}

	tracking, err := service.Track(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.OK(w, tracking)
}
