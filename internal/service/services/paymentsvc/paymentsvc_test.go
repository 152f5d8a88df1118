package paymentsvc

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/service/models/order"
	"github.com/corray333/backend-labs/trade/internal/service/models/transaction"
	"github.com/corray333/backend-labs/trade/internal/service/services/servicetest"
	"github.com/shopspring/decimal"
)

var transactionNoPattern = regexp.MustCompile(`^TXN-\d{6}-\d{4}$`)

// recordingLocker is a process-local lock that remembers the keys it was asked for.
type recordingLocker struct {
	mu    sync.Mutex
	keys  []string
	locks sync.Map
}

func (l *recordingLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()

	m, _ := l.locks.LoadOrStore(key, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock, nil
}

type fixture struct {
	env     *servicetest.Env
	auditor *servicetest.Auditor
	locker  *recordingLocker
	svc     *PaymentService
}

func newFixture() *fixture {
	env := servicetest.NewEnv()
	f := &fixture{env: env, auditor: &servicetest.Auditor{}, locker: &recordingLocker{}}
	f.svc = MustNewPaymentService(
		WithUnitOfWork(env.Factory),
		WithAuditor(f.auditor),
		WithLocker(f.locker),
	)

	return f
}

// order2360 creates an order whose grand total is 23.60.
func (f *fixture) order2360(t *testing.T) order.Order {
	t.Helper()

	b := f.env.Buyer(t, "Acme GmbH", "ops@acme.test")
	s := f.env.SKU(t, fmt.Sprintf("SKU-%03d", b.ID), "11.80")
	o := f.env.Order(t, b.ID, "", servicetest.Line{SKU: s, Qty: 2})
	if !o.GrandTotal.Equal(decimal.RequireFromString("23.60")) {
		t.Fatalf("fixture grand total = %s", o.GrandTotal)
	}

	return o
}

func (f *fixture) paymentStatus(t *testing.T, id int64) order.PaymentStatus {
	t.Helper()

	o, err := f.env.Factory().OrderRepository().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}

	return o.PaymentStatus
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFullPaymentMarksOrderPaid(t *testing.T) {
	f := newFixture()
	o := f.order2360(t)

	txn, err := f.svc.RecordTransaction(context.Background(), RecordTransactionInput{
		OrderID:   o.ID,
		Type:      transaction.TypePayment,
		Amount:    amount("23.60"),
		Method:    "wire",
		Reference: "SWIFT-1",
	})
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	if !transactionNoPattern.MatchString(txn.TransactionNo) {
		t.Fatalf("transaction number %q does not match the contract", txn.TransactionNo)
	}
	if txn.Status != transaction.StatusCompleted || txn.PaymentDate == nil || txn.Currency != o.Currency {
		t.Fatalf("unexpected transaction: %+v", txn)
	}
	if got := f.paymentStatus(t, o.ID); got != order.PaymentPaid {
		t.Fatalf("payment status = %s, want paid", got)
	}
	if len(f.locker.keys) != 1 || f.locker.keys[0] != fmt.Sprintf("lock:order:%d:payment", o.ID) {
		t.Fatalf("lock keys = %v", f.locker.keys)
	}

	actions := f.auditor.Actions()
	if len(actions) != 2 || actions[0] != auditlog.ActionTransactionRecorded || actions[1] != auditlog.ActionOrderPaymentStatus {
		t.Fatalf("audit actions = %v", actions)
	}
}

func TestPartialThenFullPayment(t *testing.T) {
	f := newFixture()
	o := f.order2360(t)
	ctx := context.Background()

	if _, err := f.svc.RecordTransaction(ctx, RecordTransactionInput{OrderID: o.ID, Amount: amount("10.00")}); err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	if got := f.paymentStatus(t, o.ID); got != order.PaymentPartial {
		t.Fatalf("payment status = %s, want partial", got)
	}

	// Refunds are not payments and do not move the status.
	_, err := f.svc.RecordTransaction(ctx, RecordTransactionInput{
		OrderID: o.ID, Type: transaction.TypeRefund, Amount: amount("50.00"),
	})
	if err != nil {
		t.Fatalf("RecordTransaction refund: %v", err)
	}
	if got := f.paymentStatus(t, o.ID); got != order.PaymentPartial {
		t.Fatalf("payment status after refund = %s, want partial", got)
	}

	if _, err = f.svc.RecordTransaction(ctx, RecordTransactionInput{OrderID: o.ID, Amount: amount("13.60")}); err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	if got := f.paymentStatus(t, o.ID); got != order.PaymentPaid {
		t.Fatalf("payment status = %s, want paid", got)
	}
}

func TestRecordTransactionRejects(t *testing.T) {
	f := newFixture()
	o := f.order2360(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   RecordTransactionInput
		want errs.Kind
	}{
		{"zero amount", RecordTransactionInput{OrderID: o.ID, Amount: decimal.Zero}, errs.KindValidation},
		{"negative amount", RecordTransactionInput{OrderID: o.ID, Amount: amount("-1")}, errs.KindValidation},
		{"sub-cent amount", RecordTransactionInput{OrderID: o.ID, Amount: amount("23.595")}, errs.KindValidation},
		{"currency mismatch", RecordTransactionInput{OrderID: o.ID, Amount: amount("1"), Currency: "EUR"}, errs.KindValidation},
		{"unknown order", RecordTransactionInput{OrderID: 8080, Amount: amount("1")}, errs.KindNotFound},
	}
	for _, tc := range cases {
		if _, err := f.svc.RecordTransaction(ctx, tc.in); errs.KindOf(err) != tc.want {
			t.Fatalf("%s: err = %v, want %s", tc.name, err, tc.want)
		}
	}
	if got := f.paymentStatus(t, o.ID); got != order.PaymentPending {
		t.Fatalf("rejected transactions changed payment status to %s", got)
	}
}

func TestConcurrentTransactionsGetUniqueNumbers(t *testing.T) {
	f := newFixture()
	o := f.order2360(t)

	const workers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			txn, err := f.svc.RecordTransaction(context.Background(), RecordTransactionInput{
				OrderID: o.ID,
				Amount:  amount("1.00"),
			})
			if err != nil {
				t.Errorf("RecordTransaction: %v", err)

				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[txn.TransactionNo] {
				t.Errorf("duplicate transaction number %s", txn.TransactionNo)
			}
			seen[txn.TransactionNo] = true
		}()
	}
	wg.Wait()

	if len(seen) != workers {
		t.Fatalf("expected %d distinct numbers, got %d", workers, len(seen))
	}
	if got := f.paymentStatus(t, o.ID); got != order.PaymentPartial {
		t.Fatalf("payment status = %s, want partial", got)
	}
}

func TestGatewayUpdates(t *testing.T) {
	f := newFixture()
	o := f.order2360(t)
	ctx := context.Background()

	pending, err := f.svc.HandleGatewayUpdate(ctx, transaction.GatewayUpdate{
		OrderID:       o.ID,
		TransactionID: "pi_123",
		Status:        transaction.StatusPending,
		Amount:        amount("23.60"),
		Gateway:       "stripe",
	})
	if err != nil {
		t.Fatalf("HandleGatewayUpdate pending: %v", err)
	}
	if pending.PaymentReference != "pi_123" || pending.Status != transaction.StatusPending || pending.PaymentDate != nil {
		t.Fatalf("unexpected gateway transaction: %+v", pending)
	}
	if got := f.paymentStatus(t, o.ID); got != order.PaymentPending {
		t.Fatalf("pending gateway payment moved status to %s", got)
	}

	completed, err := f.svc.HandleGatewayUpdate(ctx, transaction.GatewayUpdate{
		OrderID:       o.ID,
		TransactionID: "pi_123",
		Status:        transaction.StatusCompleted,
		Gateway:       "stripe",
	})
	if err != nil {
		t.Fatalf("HandleGatewayUpdate completed: %v", err)
	}
	if completed.ID != pending.ID || completed.Status != transaction.StatusCompleted || completed.PaymentDate == nil {
		t.Fatalf("unexpected completed transaction: %+v", completed)
	}
	if got := f.paymentStatus(t, o.ID); got != order.PaymentPaid {
		t.Fatalf("payment status = %s, want paid", got)
	}

	late, err := f.svc.HandleGatewayUpdate(ctx, transaction.GatewayUpdate{
		OrderID:       o.ID,
		TransactionID: completed.TransactionNo,
		Status:        transaction.StatusFailed,
	})
	if err != nil {
		t.Fatalf("HandleGatewayUpdate failed: %v", err)
	}
	if late.Status != transaction.StatusCompleted {
		t.Fatalf("completed transaction changed to %s", late.Status)
	}

	txns, err := f.svc.List(ctx, transaction.QueryTransactionsModel{OrderIds: []int64{o.ID}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected one transaction, got %d", len(txns))
	}
}

func TestGatewayUpdateValidation(t *testing.T) {
	f := newFixture()
	o := f.order2360(t)
	ctx := context.Background()

	_, err := f.svc.HandleGatewayUpdate(ctx, transaction.GatewayUpdate{OrderID: o.ID, Status: transaction.StatusCompleted})
	if errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("missing transaction id err = %v, want validation", err)
	}
	_, err = f.svc.HandleGatewayUpdate(ctx, transaction.GatewayUpdate{
		OrderID: o.ID, TransactionID: "pi_new", Status: transaction.StatusCompleted,
	})
	if errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("unknown transaction without amount err = %v, want validation", err)
	}
	_, err = f.svc.HandleGatewayUpdate(ctx, transaction.GatewayUpdate{
		OrderID: 9999, TransactionID: "pi_x", Status: transaction.StatusCompleted, Amount: amount("1"),
	})
	if errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("unknown order err = %v, want not found", err)
	}
	_, err = f.svc.HandleGatewayUpdate(ctx, transaction.GatewayUpdate{
		OrderID: o.ID, TransactionID: "pi_frac", Status: transaction.StatusCompleted, Amount: amount("10.001"),
	})
	if errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("sub-cent gateway amount err = %v, want validation", err)
	}
}

func TestBuyerListsOwnTransactions(t *testing.T) {
	f := newFixture()
	mine := f.order2360(t)
	theirs := f.order2360(t)
	ctx := context.Background()

	for _, id := range []int64{mine.ID, theirs.ID} {
		if _, err := f.svc.RecordTransaction(ctx, RecordTransactionInput{OrderID: id, Amount: amount("5")}); err != nil {
			t.Fatalf("RecordTransaction: %v", err)
		}
	}

	buyerCtx := auditlog.WithActor(ctx, auditlog.Actor{ID: "b", Role: auditlog.RoleBuyer, BuyerID: mine.BuyerID})
	txns, err := f.svc.List(buyerCtx, transaction.QueryTransactionsModel{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(txns) != 1 || txns[0].OrderID != mine.ID {
		t.Fatalf("buyer sees %+v", txns)
	}

	txns, err = f.svc.List(buyerCtx, transaction.QueryTransactionsModel{OrderIds: []int64{theirs.ID}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(txns) != 0 {
		t.Fatalf("buyer sees %d transactions of another buyer", len(txns))
	}

	_, err = f.svc.RecordTransaction(buyerCtx, RecordTransactionInput{OrderID: theirs.ID, Amount: amount("1")})
	if errs.KindOf(err) != errs.KindForbidden {
		t.Fatalf("record on other buyer's order err = %v, want forbidden", err)
	}
}
