package orders

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/transport/http/render"
)

// updateOrderRequest represents a partial order update. Absent fields are left unchanged.
type updateOrderRequest struct {
	Status           *string    `json:"status"`
	PaymentStatus    *string    `json:"paymentStatus"`
	ShippingAddress  *string    `json:"shippingAddress"`
	BillingAddress   *string    `json:"billingAddress"`
	PortOfLoading    *string    `json:"portOfLoading"`
	PortOfDischarge  *string    `json:"portOfDischarge"`
	ExpectedShipDate *time.Time `json:"expectedShipDate"`
	ActualShipDate   *time.Time `json:"actualShipDate"`
	Notes            *string    `json:"notes"`
}

func (r *updateOrderRequest) toPatch() (order.Patch, error) {
	patch := order.Patch{
		ShippingAddress:  r.ShippingAddress,
		BillingAddress:   r.BillingAddress,
		PortOfLoading:    r.PortOfLoading,
		PortOfDischarge:  r.PortOfDischarge,
		ExpectedShipDate: r.ExpectedShipDate,
		ActualShipDate:   r.ActualShipDate,
		Notes:            r.Notes,
	}
	if r.Status != nil {
		st, err := order.ParseStatus(*r.Status)
		if err != nil {
			return order.Patch{}, errs.Validation("%v", err)
		}
		patch.Status = &st
	}
	if r.PaymentStatus != nil {
		ps, err := order.ParsePaymentStatus(*r.PaymentStatus)
		if err != nil {
			return order.Patch{}, errs.Validation("%v", err)
		}
		patch.PaymentStatus = &ps
	}

	return patch, nil
}

// UpdateOrder handles PUT /orders/{id}.
func UpdateOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := render.PathID(r, "id")
	if err != nil {
		render.BadRequest(w, err)

		return
	}

	req := updateOrderRequest{}
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
