package orders

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/currency"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/trade/internal/transport/http/render"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// itemInCreateOrderRequest represents a line in a create order request.
type itemInCreateOrderRequest struct {
	SKUID       *int64           `json:"skuId"       validate:"omitempty,gt=0"`
	SKUCode     string           `json:"skuCode"     validate:"max=64"`
	Description string           `json:"description"`
	HSCode      string           `json:"hsCode"      validate:"max=16"`
	Unit        string           `json:"unit"        validate:"max=16"`
	Quantity    int              `json:"quantity"    validate:"gt=0"`
	UnitPrice   *decimal.Decimal `json:"unitPrice"`
	DiscountPct decimal.Decimal  `json:"discountPct"`
	TaxPct      decimal.Decimal  `json:"taxPct"`
}

func (r *itemInCreateOrderRequest) toInput() ordersvc.CreateItemInput {
	return ordersvc.CreateItemInput{
		SKUID:       r.SKUID,
		SKUCode:     r.SKUCode,
		Description: r.Description,
		HSCode:      r.HSCode,
		Unit:        r.Unit,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		DiscountPct: r.DiscountPct,
		TaxPct:      r.TaxPct,
	}
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	OrderNo          string                     `json:"orderNo"`
	BuyerID          int64                      `json:"buyerId"         validate:"gt=0"`
	Incoterm         string                     `json:"incoterm"`
	Currency         string                     `json:"currency"        validate:"omitempty,len=3"`
	DiscountAmount   decimal.Decimal            `json:"discountAmount"`
	ShippingAddress  string                     `json:"shippingAddress"`
	BillingAddress   string                     `json:"billingAddress"`
	PortOfLoading    string                     `json:"portOfLoading"`
	PortOfDischarge  string                     `json:"portOfDischarge"`
	ExpectedShipDate *time.Time                 `json:"expectedShipDate"`
	Notes            string                     `json:"notes"`
	Items            []itemInCreateOrderRequest `json:"items"           validate:"required,min=1,dive"`
}

// Validate validates the create order request.
func (r *createOrderRequest) Validate() error {
	return validator.New().Struct(r)
}

func (r *createOrderRequest) toInput() (ordersvc.CreateOrderInput, error) {
	in := ordersvc.CreateOrderInput{
		OrderNo:          r.OrderNo,
		BuyerID:          r.BuyerID,
		DiscountAmount:   r.DiscountAmount,
		ShippingAddress:  r.ShippingAddress,
		BillingAddress:   r.BillingAddress,
		PortOfLoading:    r.PortOfLoading,
		PortOfDischarge:  r.PortOfDischarge,
		ExpectedShipDate: r.ExpectedShipDate,
		Notes:            r.Notes,
		Items:            make([]ordersvc.CreateItemInput, len(r.Items)),
	}
	if r.Incoterm != "" {
		term, err := order.ParseIncoterm(r.Incoterm)
		if err != nil {
			return ordersvc.CreateOrderInput{}, errs.Validation("%v", err)
		}
		in.Incoterm = term
	}
	if r.Currency != "" {
		cur, err := currency.ParseCurrency(r.Currency)
		if err != nil {
			return ordersvc.CreateOrderInput{}, errs.Validation("%v", err)
		}
		in.Currency = cur
	}
	for i := range r.Items {
		in.Items[i] = r.Items[i].toInput()
	}

	return in, nil
}

// CreateOrder handles POST /orders.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	req := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.BadRequest(w, err)

		return
	}

	if err := req.Validate(); err != nil {
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
