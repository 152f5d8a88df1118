package paymentsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/corray333/backend-labs/trade/internal/dal/interfaces/iuow"
	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/currency"
	"github.com/corray333/backend-labs/trade/internal/service/models/money"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/service/models/transaction"
	"github.com/corray333/backend-labs/trade/internal/service/numbering"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

const gatewayPaymentMethod = "gateway"

type auditor interface {
	Log(ctx context.Context, action, entityType string, entityID any, before, after any, meta map[string]any)
}

// locker serializes work on one key across processes.
type locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// PaymentService records transactions and derives the payment status of their orders.
type PaymentService struct {
	newUOW  iuow.Factory
	numbers *numbering.Generator
	auditor auditor
	locker  locker
	now     func() time.Time
}

// option is a function that configures the PaymentService.
type option func(*PaymentService)

// MustNewPaymentService creates a new PaymentService.
func MustNewPaymentService(opts ...option) *PaymentService {
	s := &PaymentService{
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newUOW == nil {
		panic("paymentsvc: unit of work factory is required")
	}
	if s.numbers == nil {
		s.numbers = numbering.NewGenerator(nil)
	}
	if s.locker == nil {
		slog.Warn("Payment service runs without a distributed lock, reconciliation relies on row locks only")
	}

	return s
}

// WithUnitOfWork sets the unit of work factory.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWork(factory iuow.Factory) option {
	return func(s *PaymentService) {
		s.newUOW = factory
	}
}

// WithNumberGenerator sets the generator of transaction numbers.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNumberGenerator(g *numbering.Generator) option {
	return func(s *PaymentService) {
		s.numbers = g
	}
}

// WithAuditor sets the audit trail.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAuditor(a auditor) option {
	return func(s *PaymentService) {
		s.auditor = a
	}
}

// WithLocker sets the per-order reconciliation lock.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLocker(l locker) option {
	return func(s *PaymentService) {
		s.locker = l
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *PaymentService) {
		s.now = now
	}
}

func (s *PaymentService) audit(
	ctx context.Context,
	action, entityType string,
	entityID any,
	before, after any,
	meta map[string]any,
) {
	if s.auditor != nil {
		s.auditor.Log(ctx, action, entityType, entityID, before, after, meta)
	}
}

func (s *PaymentService) lock(ctx context.Context, orderID int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("lock:order:%d:payment", orderID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock order payments: %w", err)
	}

	return unlock, nil
}

// RecordTransactionInput is a request to record a settled transaction.
type RecordTransactionInput struct {
	OrderID   int64
	Type      transaction.Type
	Amount    decimal.Decimal
	Currency  currency.Currency
	Method    string
	Reference string
}

// paymentChange describes a payment status move made by reconcile.
type paymentChange struct {
	before order.PaymentStatus
	after  order.PaymentStatus
	paid   decimal.Decimal
}

// RecordTransaction stores a completed transaction and reconciles the order's payment status.
func (s *PaymentService) RecordTransaction(
	ctx context.Context,
	in RecordTransactionInput,
) (transaction.Transaction, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "PaymentService.RecordTransaction")
	defer span.End()

	if in.OrderID <= 0 {
		return transaction.Transaction{}, errs.Validation("orderId is required")
	}
	if !in.Amount.IsPositive() {
		return transaction.Transaction{}, errs.Validation("amount must be positive")
	}
	if !money.HasCents(in.Amount) {
		return transaction.Transaction{}, errs.Validation("amount %s has more than 2 decimal places", in.Amount)
	}
	if in.Type == "" {
		in.Type = transaction.TypePayment
	}

	unlock, err := s.lock(ctx, in.OrderID)
	if err != nil {
		return transaction.Transaction{}, err
	}
	defer unlock()

	work := s.newUOW()
	if err = work.Begin(ctx); err != nil {
		return transaction.Transaction{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = work.Rollback(ctx)
	}()

	o, err := work.OrderRepository().GetForUpdate(ctx, in.OrderID)
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("failed to lock order: %w", err)
	}
	if !auditlog.ActorFromContext(ctx).CanAccessBuyer(o.BuyerID) {
		return transaction.Transaction{}, errs.Forbidden("order %d belongs to another buyer", o.ID)
	}
	if in.Currency == "" {
		in.Currency = o.Currency
	}
	if in.Currency != o.Currency {
		return transaction.Transaction{}, errs.Validation("currency %s does not match order currency %s",
			in.Currency, o.Currency)
	}

	now := s.now()
	draft := transaction.Transaction{
		OrderID:          o.ID,
		Type:             in.Type,
		Amount:           in.Amount,
		Currency:         in.Currency,
		Status:           transaction.StatusCompleted,
		PaymentMethod:    strings.TrimSpace(in.Method),
		PaymentReference: strings.TrimSpace(in.Reference),
		PaymentDate:      &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	txn, err := s.insert(ctx, work, draft)
	if err != nil {
		return transaction.Transaction{}, err
	}

	change, err := s.reconcile(ctx, work, o)
	if err != nil {
		return transaction.Transaction{}, err
	}

	if err = work.Commit(ctx); err != nil {
		return transaction.Transaction{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("Transaction recorded",
		"transaction_id", txn.ID,
		"transaction_no", txn.TransactionNo,
		"order_id", o.ID,
		"amount", txn.Amount.StringFixed(2),
	)
	s.audit(ctx, auditlog.ActionTransactionRecorded, auditlog.EntityTransaction, txn.ID, nil, txn, nil)
	s.auditPaymentChange(ctx, o.ID, change)

	return txn, nil
}

func (s *PaymentService) insert(
	ctx context.Context,
	work iuow.UnitOfWork,
	draft transaction.Transaction,
) (transaction.Transaction, error) {
	var txn transaction.Transaction
	_, err := s.numbers.Assign(ctx, numbering.PrefixTransaction, func(no string) error {
		draft.TransactionNo = no
		var insertErr error
		txn, insertErr = work.TransactionRepository().Insert(ctx, draft)

		return insertErr
	})
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}

	return txn, nil
}

// reconcile derives the payment status from completed payments. A zero sum leaves the status
// alone, and overdue is never assigned here.
func (s *PaymentService) reconcile(ctx context.Context, work iuow.UnitOfWork, o order.Order) (*paymentChange, error) {
	paid, err := work.TransactionRepository().SumCompleted(ctx, o.ID, transaction.TypePayment)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}
	if !paid.IsPositive() {
		return nil, nil
	}

	next := order.PaymentPartial
	if paid.GreaterThanOrEqual(o.GrandTotal) {
		next = order.PaymentPaid
	}
	if next == o.PaymentStatus {
		return nil, nil
	}

	updated := o
	updated.PaymentStatus = next
	if _, err = work.OrderRepository().Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	return &paymentChange{before: o.PaymentStatus, after: next, paid: paid}, nil
}

func (s *PaymentService) auditPaymentChange(ctx context.Context, orderID int64, change *paymentChange) {
	if change == nil {
		return
	}
	s.audit(ctx, auditlog.ActionOrderPaymentStatus, auditlog.EntityOrder, orderID,
		map[string]any{"paymentStatus": change.before},
		map[string]any{"paymentStatus": change.after},
		map[string]any{"paid": change.paid.StringFixed(2)},
	)
}

// HandleGatewayUpdate applies a payment gateway notification. A known transaction that is not
// completed takes the new status; an unknown one is recorded as a gateway payment. Completed
// transactions are never changed.
func (s *PaymentService) HandleGatewayUpdate(
	ctx context.Context,
	upd transaction.GatewayUpdate,
) (transaction.Transaction, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "PaymentService.HandleGatewayUpdate")
	defer span.End()

	upd.TransactionID = strings.TrimSpace(upd.TransactionID)
	if upd.OrderID <= 0 {
		return transaction.Transaction{}, errs.Validation("orderId is required")
	}
	if upd.TransactionID == "" {
		return transaction.Transaction{}, errs.Validation("transactionId is required")
	}
	if upd.Status == "" {
		return transaction.Transaction{}, errs.Validation("status is required")
	}

	unlock, err := s.lock(ctx, upd.OrderID)
	if err != nil {
		return transaction.Transaction{}, err
	}
	defer unlock()

	work := s.newUOW()
	if err = work.Begin(ctx); err != nil {
		return transaction.Transaction{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = work.Rollback(ctx)
	}()

	o, err := work.OrderRepository().GetForUpdate(ctx, upd.OrderID)
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("failed to lock order: %w", err)
	}

	now := s.now()
	var paymentDate *time.Time
	if upd.Status == transaction.StatusCompleted {
		paymentDate = &now
	}

	var (
		before *transaction.Transaction
		txn    transaction.Transaction
	)
	existing, err := work.TransactionRepository().FindForOrder(ctx, o.ID, upd.TransactionID)
	switch {
	case err == nil && existing.Final():
		slog.Info("Gateway update for completed transaction ignored",
			"transaction_id", existing.ID,
			"order_id", o.ID,
			"status", upd.Status,
		)

		return existing, nil
	case err == nil:
		before = &existing
		txn, err = work.TransactionRepository().UpdateStatus(ctx, existing.ID, upd.Status, paymentDate)
		if err != nil {
			return transaction.Transaction{}, fmt.Errorf("failed to update transaction status: %w", err)
		}
	case errors.Is(err, errs.ErrNotFound):
		if !upd.Amount.IsPositive() {
			return transaction.Transaction{}, errs.Validation("amount must be positive")
		}
		if !money.HasCents(upd.Amount) {
			return transaction.Transaction{}, errs.Validation("amount %s has more than 2 decimal places", upd.Amount)
		}
		txn, err = s.insert(ctx, work, transaction.Transaction{
			OrderID:          o.ID,
			Type:             transaction.TypePayment,
			Amount:           upd.Amount,
			Currency:         o.Currency,
			Status:           upd.Status,
			PaymentMethod:    gatewayPaymentMethod,
			PaymentReference: upd.TransactionID,
			Gateway:          strings.TrimSpace(upd.Gateway),
			PaymentDate:      paymentDate,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		if err != nil {
			return transaction.Transaction{}, err
		}
	default:
		return transaction.Transaction{}, fmt.Errorf("failed to find transaction: %w", err)
	}

	var change *paymentChange
	if txn.Status == transaction.StatusCompleted {
		change, err = s.reconcile(ctx, work, o)
		if err != nil {
			return transaction.Transaction{}, err
		}
	}

	if err = work.Commit(ctx); err != nil {
		return transaction.Transaction{}, fmt.Errorf("failed to commit gateway update: %w", err)
	}

	if before != nil {
		s.audit(ctx, auditlog.ActionTransactionUpdated, auditlog.EntityTransaction, txn.ID,
			map[string]any{"status": before.Status},
			map[string]any{"status": txn.Status},
			map[string]any{"gateway": upd.Gateway},
		)
	} else {
		s.audit(ctx, auditlog.ActionTransactionRecorded, auditlog.EntityTransaction, txn.ID, nil, txn,
			map[string]any{"gateway": upd.Gateway})
	}
	s.auditPaymentChange(ctx, o.ID, change)

	return txn, nil
}

// List returns transactions matching filter. Buyer actors only see transactions of their own orders.
func (s *PaymentService) List(
	ctx context.Context,
	filter transaction.QueryTransactionsModel,
) ([]transaction.Transaction, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "PaymentService.List")
	defer span.End()

	work := s.newUOW()

	if actor := auditlog.ActorFromContext(ctx); actor.IsBuyer() {
		orders, err := work.OrderRepository().Query(ctx, &order.QueryOrdersModel{BuyerIds: []int64{actor.BuyerID}})
		if err != nil {
			return nil, fmt.Errorf("failed to query buyer orders: %w", err)
		}
		owned := make([]int64, 0, len(orders))
		for _, o := range orders {
			if len(filter.OrderIds) == 0 || slices.Contains(filter.OrderIds, o.ID) {
				owned = append(owned, o.ID)
			}
		}
		if len(owned) == 0 {
			return []transaction.Transaction{}, nil
		}
		filter.OrderIds = owned
	}

	txns, err := work.TransactionRepository().Query(ctx, &filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	if txns == nil {
		txns = []transaction.Transaction{}
	}

	return txns, nil
}
