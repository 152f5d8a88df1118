package orders

import (
	"net/http"

	"github.com/corray333/backend-labs/trade/internal/transport/http/render"
)

// GetOrder handles GET /orders/{id}.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := render.PathID(r, "id")
	if err != nil {
		render.BadRequest(w, err)

		return
	}

	o, err := service.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.OK(w, o)
}

// DeleteOrder handles DELETE /orders/{id}.
func DeleteOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := render.PathID(r, "id")
	if err != nil {
		render.BadRequest(w, err)

		return
	}

	if err := service.Delete(r.Context(), id); err != nil {
		render.Error(w, r, err)

		return
	}

	render.OK(w, map[string]int64{"id": id})
}
