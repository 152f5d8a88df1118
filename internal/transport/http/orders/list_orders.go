package orders

import (
	"net/http"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/transport/http/render"
	"github.com/gorilla/schema"
)

type queryOrdersRequest struct {
	Ids      []int64  `schema:"ids,omitempty"`
	BuyerIds []int64  `schema:"buyerIds,omitempty"`
	Statuses []string `schema:"statuses,omitempty"`
	OrderNo  string   `schema:"orderNo,omitempty"`
	Limit    int      `schema:"limit,omitempty"`
	Offset   int      `schema:"offset,omitempty"`
}

func (q *queryOrdersRequest) ToModel() (order.QueryOrdersModel, error) {
	model := order.QueryOrdersModel{
		Ids:      q.Ids,
		BuyerIds: q.BuyerIds,
		OrderNo:  q.OrderNo,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	for _, s := range q.Statuses {
		st, err := order.ParseStatus(s)
		if err != nil {
			return order.QueryOrdersModel{}, errs.Validation("%v", err)
		}
		model.Statuses = append(model.Statuses, st)
	}

	return model, nil
}

// ListOrders handles GET /orders.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &queryOrdersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		render.BadRequest(w, err)

		return
	}

	model, err := query.ToModel()
	if err != nil {
		render.BadRequest(w, err)

		return
	}

	orders, err := service.List(r.Context(), model)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.OK(w, orders)
}
