// Package transactions serves the payment reconciler endpoints.
package transactions

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/currency"
	"github.com/corray333/backend-labs/trade/internal/service/models/transaction"
	"github.com/corray333/backend-labs/trade/internal/service/services/paymentsvc"
	"github.com/corray333/backend-labs/trade/internal/transport/http/render"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/shopspring/decimal"
)

type service interface {
	RecordTransaction(ctx context.Context, in paymentsvc.RecordTransactionInput) (transaction.Transaction, error)
	List(ctx context.Context, filter transaction.QueryTransactionsModel) ([]transaction.Transaction, error)
}

type recordTransactionRequest struct {
	OrderID   int64           `json:"orderId"   validate:"gt=0"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"  validate:"omitempty,len=3"`
	Method    string          `json:"method"    validate:"max=50"`
	Reference string          `json:"reference" validate:"max=255"`
}

func (r *recordTransactionRequest) toInput() (paymentsvc.RecordTransactionInput, error) {
	in := paymentsvc.RecordTransactionInput{
		OrderID:   r.OrderID,
		Amount:    r.Amount,
		Method:    r.Method,
		Reference: r.Reference,
	}
	if r.Type != "" {
		t, err := transaction.ParseType(r.Type)
		if err != nil {
			return paymentsvc.RecordTransactionInput{}, errs.Validation("%v", err)
		}
		in.Type = t
	}
	if r.Currency != "" {
		cur, err := currency.ParseCurrency(r.Currency)
		if err != nil {
			return paymentsvc.RecordTransactionInput{}, errs.Validation("%v", err)
		}
		in.Currency = cur
	}

	return in, nil
}

// RecordTransaction handles POST /transactions.
func RecordTransaction(w http.ResponseWriter, r *http.Request, service service) {
	req := recordTransactionRequest{}
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

	txn, err := service.RecordTransaction(r.Context(), in)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.Created(w, txn)
}

type queryTransactionsRequest struct {
	Ids      []int64  `schema:"ids,omitempty"`
	OrderIds []int64  `schema:"orderIds,omitempty"`
	Types    []string `schema:"types,omitempty"`
	Statuses []string `schema:"statuses,omitempty"`
	Limit    int      `schema:"limit,omitempty"`
	Offset   int      `schema:"offset,omitempty"`
}

func (q *queryTransactionsRequest) ToModel() (transaction.QueryTransactionsModel, error) {
	model := transaction.QueryTransactionsModel{
		Ids:      q.Ids,
		OrderIds: q.OrderIds,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	for _, s := range q.Types {
		t, err := transaction.ParseType(s)
		if err != nil {
			return transaction.QueryTransactionsModel{}, errs.Validation("%v", err)
		}
		model.Types = append(model.Types, t)
	}
	for _, s := range q.Statuses {
		st, err := transaction.ParseStatus(s)
		if err != nil {
			return transaction.QueryTransactionsModel{}, errs.Validation("%v", err)
		}
		model.Statuses = append(model.Statuses, st)
	}

	return model, nil
}

// ListTransactions handles GET /transactions.
func ListTransactions(w http.ResponseWriter, r *http.Request, service service) {
	query := &queryTransactionsRequest{}
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
