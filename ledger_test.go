package cashledger_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/party"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/report"
	"github.com/xraph/cashledger/store"
	"github.com/xraph/cashledger/store/memory"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

const storeA = "store-a"

func newLedger(t *testing.T, s store.Store, today string, opts ...cashledger.Option) (*cashledger.Ledger, *cashledger.FixedClock) {
	t.Helper()
	clock := cashledger.NewFixedClock(types.MustParseDate(today))
	opts = append([]cashledger.Option{
		cashledger.WithClock(clock),
		cashledger.WithScheduler(0, 0, 0),
	}, opts...)
	l := cashledger.New(s, opts...)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop() })
	return l, clock
}

func receivable(t *testing.T, l *cashledger.Ledger, storeID string, amount int64, due string) *transaction.Transaction {
	t.Helper()
	txn, err := l.CreateTransaction(context.Background(), cashledger.CreateTransactionInput{
		StoreID: storeID,
		Kind:    transaction.KindReceivable,
		Amount:  types.BRL(amount),
		DueDate: types.MustParseDate(due),
	})
	require.NoError(t, err)
	return txn
}

func pay(l *cashledger.Ledger, storeID string, txn *transaction.Transaction, amount int64) (*cashledger.PaymentResult, error) {
	return l.ApplyPayment(context.Background(), cashledger.ApplyPaymentInput{
		StoreID:       storeID,
		TransactionID: txn.ID,
		Amount:        types.BRL(amount),
		Method:        payment.MethodPix,
	})
}

func monthly(t *testing.T, l *cashledger.Ledger, storeID, start string, end *types.Date) *recurrence.Recurrence {
	t.Helper()
	rec, err := l.CreateRecurrence(context.Background(), cashledger.CreateRecurrenceInput{
		StoreID:     storeID,
		Kind:        transaction.KindPayable,
		Description: "Rent",
		Amount:      types.BRL(250000),
		Frequency:   recurrence.FrequencyMonthly,
		StartDate:   types.MustParseDate(start),
		EndDate:     end,
		Category:    "rent",
	})
	require.NoError(t, err)
	return rec
}

func TestPartialPaymentsSettle(t *testing.T) {
	l, _ := newLedger(t, memory.New(), "2026-02-01")
	txn := receivable(t, l, storeA, 10000, "2026-02-10")
	assert.Equal(t, transaction.StatusPending, txn.Status)
	assert.Equal(t, transaction.OriginManual, txn.Origin())

	res, err := pay(l, storeA, txn, 4000)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), res.Transaction.AmountPaid.Amount)
	assert.Equal(t, int64(6000), res.Transaction.Outstanding().Amount)
	assert.Equal(t, transaction.StatusPending, res.Transaction.Status)
	assert.Nil(t, res.Transaction.PaidDate)

	res, err = pay(l, storeA, txn, 6000)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusPaid, res.Transaction.Status)
	require.NotNil(t, res.Transaction.PaidDate)
	assert.Equal(t, "2026-02-01", res.Transaction.PaidDate.String())

	_, err = pay(l, storeA, txn, 1)
	assert.ErrorIs(t, err, cashledger.ErrOverpaymentRejected)

	payments, err := l.ListPayments(context.Background(), storeA, txn.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, int64(4000), payments[0].Amount.Amount)
}

func TestStatusFollowsClock(t *testing.T) {
	ctx := context.Background()
	l, clock := newLedger(t, memory.New(), "2026-02-10")
	txn := receivable(t, l, storeA, 10000, "2026-02-10")

	got, err := l.GetTransaction(ctx, storeA, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusPending, got.Status, "not overdue on the due date")

	clock.Set(types.MustParseDate("2026-02-11"))
	got, err = l.GetTransaction(ctx, storeA, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusOverdue, got.Status)

	overdue, err := l.ListTransactions(ctx, storeA, cashledger.TransactionQuery{Status: transaction.StatusOverdue})
	require.NoError(t, err)
	assert.Len(t, overdue, 1)

	clock.Set(types.MustParseDate("2026-02-01"))
	approved, err := l.SetWorkflow(ctx, storeA, txn.ID, transaction.WorkflowApproved)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusApproved, approved.Status)
}

func TestMonthlyCatchUpClampsShortMonths(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, memory.New(), "2026-04-15")
	rec := monthly(t, l, storeA, "2026-01-31", nil)

	res, err := l.AdvanceRecurrence(ctx, storeA, rec.ID, types.MustParseDate("2026-04-15"))
	require.NoError(t, err)

	var dues []string
	for _, txn := range res.Created {
		dues = append(dues, txn.DueDate.String())
		assert.Equal(t, rec.ID, txn.RecurrenceID)
		assert.Equal(t, "rent", txn.Category)
		assert.True(t, txn.AmountPaid.IsZero())
	}
	assert.Equal(t, []string{"2026-01-31", "2026-02-28", "2026-03-31", "2026-04-30"}, dues)
	assert.Equal(t, "2026-05-31", res.Recurrence.NextDueDate.String())
	assert.Equal(t, 4, res.Recurrence.Occurrences)
	assert.False(t, res.Finished)

	again, err := l.AdvanceRecurrence(ctx, storeA, rec.ID, types.MustParseDate("2026-04-15"))
	require.NoError(t, err)
	assert.Empty(t, again.Created)

	generated, err := l.ListTransactions(ctx, storeA, cashledger.TransactionQuery{
		ListOpts: transaction.ListOpts{RecurrenceID: rec.ID},
	})
	require.NoError(t, err)
	assert.Len(t, generated, 4)
}

func TestDayHorizon(t *testing.T) {
	l, _ := newLedger(t, memory.New(), "2026-04-15", cashledger.WithHorizon(recurrence.HorizonDay))
	rec := monthly(t, l, storeA, "2026-01-31", nil)

	res, err := l.AdvanceRecurrence(context.Background(), storeA, rec.ID, types.MustParseDate("2026-04-15"))
	require.NoError(t, err)
	assert.Len(t, res.Created, 3)
	assert.Equal(t, "2026-04-30", res.Recurrence.NextDueDate.String())
}

func TestWeeklyUsesDayHorizon(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, memory.New(), "2026-01-01")
	rec, err := l.CreateRecurrence(ctx, cashledger.CreateRecurrenceInput{
		StoreID:   storeA,
		Kind:      transaction.KindPayable,
		Amount:    types.BRL(12000),
		Frequency: recurrence.FrequencyWeekly,
		StartDate: types.MustParseDate("2026-01-01"),
	})
	require.NoError(t, err)

	res, err := l.AdvanceRecurrence(ctx, storeA, rec.ID, types.MustParseDate("2026-01-01"))
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, "2026-01-01", res.Created[0].DueDate.String())
	assert.Equal(t, "2026-01-08", res.Recurrence.NextDueDate.String())

	res, err = l.AdvanceRecurrence(ctx, storeA, rec.ID, types.MustParseDate("2026-01-07"))
	require.NoError(t, err)
	assert.Empty(t, res.Created)

	summary, err := l.AdvanceDue(ctx, types.MustParseDate("2026-01-15"))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Materialized)

	got, err := l.GetRecurrence(ctx, storeA, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-22", got.NextDueDate.String())
}

func TestAdvanceToEarlierDateCreatesNothing(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, memory.New(), "2026-04-15")
	rec := monthly(t, l, storeA, "2026-01-31", nil)

	res, err := l.AdvanceRecurrence(ctx, storeA, rec.ID, types.MustParseDate("2026-04-15"))
	require.NoError(t, err)
	require.Len(t, res.Created, 4)

	for _, asOf := range []string{"2026-02-10", "2026-04-01", "2026-04-30"} {
		res, err = l.AdvanceRecurrence(ctx, storeA, rec.ID, types.MustParseDate(asOf))
		require.NoError(t, err)
		assert.Empty(t, res.Created, asOf)
		assert.Equal(t, "2026-05-31", res.Recurrence.NextDueDate.String(), asOf)
	}
}

func TestRecurrenceFinishesAtEndDate(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, memory.New(), "2026-03-31")
	end := types.MustParseDate("2026-03-20")
	rec, err := l.CreateRecurrence(ctx, cashledger.CreateRecurrenceInput{
		StoreID:   storeA,
		Kind:      transaction.KindReceivable,
		Amount:    types.BRL(1500),
		Frequency: recurrence.FrequencyWeekly,
		StartDate: types.MustParseDate("2026-03-02"),
		EndDate:   &end,
	})
	require.NoError(t, err)

	res, err := l.AdvanceRecurrence(ctx, storeA, rec.ID, types.Date{})
	require.NoError(t, err)
	assert.Len(t, res.Created, 3)
	assert.True(t, res.Finished)
	assert.Equal(t, recurrence.StatusFinished, res.Recurrence.Status)

	_, err = l.AdvanceRecurrence(ctx, storeA, rec.ID, types.Date{})
	assert.ErrorIs(t, err, cashledger.ErrRecurrenceNotActive)
}

func TestWorkflowFlagPassesThrough(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, memory.New(), "2026-01-05")
	txn := receivable(t, l, storeA, 10000, "2026-01-10")

	got, err := l.SetWorkflow(ctx, storeA, txn.ID, transaction.WorkflowApproved)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusApproved, got.Status)

	_, err = l.SetWorkflow(ctx, storeA, txn.ID, transaction.WorkflowFlag("signed"))
	assert.True(t, cashledger.IsValidation(err))

	_, err = pay(l, storeA, txn, 10000)
	require.NoError(t, err)
	_, err = l.SetWorkflow(ctx, storeA, txn.ID, transaction.WorkflowScheduled)
	assert.ErrorIs(t, err, cashledger.ErrAlreadySettled)
}

func TestPausedRecurrenceCatchesUpOnResume(t *testing.T) {
	ctx := context.Background()
	l, clock := newLedger(t, memory.New(), "2026-01-15")
	rec := monthly(t, l, storeA, "2026-01-10", nil)

	_, err := l.PauseRecurrence(ctx, storeA, rec.ID)
	require.NoError(t, err)
	_, err = l.AdvanceRecurrence(ctx, storeA, rec.ID, clock.Today())
	assert.ErrorIs(t, err, cashledger.ErrRecurrenceNotActive)

	clock.Set(types.MustParseDate("2026-03-15"))
	_, err = l.ResumeRecurrence(ctx, storeA, rec.ID)
	require.NoError(t, err)
	res, err := l.AdvanceRecurrence(ctx, storeA, rec.ID, clock.Today())
	require.NoError(t, err)
	assert.Len(t, res.Created, 3)
}

func TestFinishedRecurrenceIsTerminal(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, memory.New(), "2026-01-15")
	rec := monthly(t, l, storeA, "2026-01-10", nil)

	_, err := l.FinishRecurrence(ctx, storeA, rec.ID)
	require.NoError(t, err)

	_, err = l.ResumeRecurrence(ctx, storeA, rec.ID)
	assert.ErrorIs(t, err, cashledger.ErrRecurrenceNotActive)
	_, err = l.PauseRecurrence(ctx, storeA, rec.ID)
	assert.ErrorIs(t, err, cashledger.ErrRecurrenceNotActive)
	_, err = l.FinishRecurrence(ctx, storeA, rec.ID)
	assert.ErrorIs(t, err, cashledger.ErrRecurrenceNotActive)
}

// failingTx breaks the cursor update after occurrences were staged.
type failingTx struct{ store.Tx }

func (failingTx) UpdateRecurrence(context.Context, *recurrence.Recurrence) error {
	return errors.New("disk full")
}

type failingStore struct{ *memory.Store }

func (s failingStore) InTx(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, failingTx{tx})
	})
}

func TestAdvanceRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	l, _ := newLedger(t, failingStore{mem}, "2026-04-15")
	rec := monthly(t, l, storeA, "2026-01-31", nil)

	_, err := l.AdvanceRecurrence(ctx, storeA, rec.ID, types.MustParseDate("2026-04-15"))
	require.Error(t, err)

	txns, err := mem.ListTransactions(ctx, storeA, transaction.ListOpts{IncludeCanceled: true})
	require.NoError(t, err)
	assert.Empty(t, txns)

	got, err := mem.GetRecurrence(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-31", got.NextDueDate.String())
	assert.Zero(t, got.Occurrences)
}

func TestConcurrentPaymentsNeverOverpay(t *testing.T) {
	l, _ := newLedger(t, memory.New(), "2026-02-01")
	txn := receivable(t, l, storeA, 10000, "2026-02-10")

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		rejected atomic.Int32
	)
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pay(l, storeA, txn, 1000)
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, cashledger.ErrOverpaymentRejected):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), accepted.Load())
	assert.Equal(t, int32(15), rejected.Load())

	got, err := l.GetTransaction(context.Background(), storeA, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.AmountPaid.Amount)
	assert.Equal(t, transaction.StatusPaid, got.Status)
}

func TestReversePayment(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, memory.New(), "2026-02-01")
	txn := receivable(t, l, storeA, 10000, "2026-02-10")

	first, err := pay(l, storeA, txn, 4000)
	require.NoError(t, err)
	_, err = pay(l, storeA, txn, 6000)
	require.NoError(t, err)

	res, err := l.ReversePayment(ctx, cashledger.ReversePaymentInput{StoreID: storeA, PaymentID: first.Payment.ID, Note: "chargeback"})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), res.Transaction.AmountPaid.Amount)
	assert.Equal(t, transaction.StatusPending, res.Transaction.Status)
	assert.Nil(t, res.Transaction.PaidDate)
	assert.Equal(t, payment.KindReversal, res.Payment.Kind)
	assert.Equal(t, first.Payment.ID, res.Payment.Reverses)

	_, err = l.ReversePayment(ctx, cashledger.ReversePaymentInput{StoreID: storeA, PaymentID: first.Payment.ID})
	assert.ErrorIs(t, err, cashledger.ErrInvalidReversal, "second reversal")

	_, err = l.ReversePayment(ctx, cashledger.ReversePaymentInput{StoreID: storeA, PaymentID: res.Payment.ID})
	assert.ErrorIs(t, err, cashledger.ErrInvalidReversal, "reversing a reversal")

	payments, err := l.ListPayments(ctx, storeA, txn.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 3)
	assert.Equal(t, int64(6000), payment.Total("BRL", payments).Amount)
}

func TestCancelPolicies(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, memory.New(), "2026-02-01")

	cancel := func(txn *transaction.Transaction) (*transaction.Transaction, error) {
		return l.CancelTransaction(ctx, cashledger.CancelTransactionInput{StoreID: storeA, TransactionID: txn.ID, Reason: "duplicate"})
	}

	t.Run("manual unpaid", func(t *testing.T) {
		txn := receivable(t, l, storeA, 5000, "2026-02-10")
		got, err := cancel(txn)
		require.NoError(t, err)
		assert.Equal(t, transaction.StatusCanceled, got.Status)
		assert.Equal(t, "duplicate", got.CancelReason)

		_, err = pay(l, storeA, txn, 100)
		assert.ErrorIs(t, err, cashledger.ErrTransactionCanceled)

		_, err = cancel(txn)
		assert.ErrorIs(t, err, cashledger.ErrAlreadySettled)
	})

	t.Run("manual partially paid", func(t *testing.T) {
		txn := receivable(t, l, storeA, 5000, "2026-02-10")
		_, err := pay(l, storeA, txn, 100)
		require.NoError(t, err)
		_, err = cancel(txn)
		assert.ErrorIs(t, err, cashledger.ErrAlreadySettled)
	})

	t.Run("generated with reversed payment", func(t *testing.T) {
		rec := monthly(t, l, storeA, "2026-02-05", nil)
		adv, err := l.AdvanceRecurrence(ctx, storeA, rec.ID, types.MustParseDate("2026-02-01"))
		require.NoError(t, err)
		require.Len(t, adv.Created, 1)
		txn := adv.Created[0]

		res, err := l.ApplyPayment(ctx, cashledger.ApplyPaymentInput{
			StoreID: storeA, TransactionID: txn.ID, Amount: types.BRL(1000), Method: payment.MethodBankTransfer,
		})
		require.NoError(t, err)
		_, err = l.ReversePayment(ctx, cashledger.ReversePaymentInput{StoreID: storeA, PaymentID: res.Payment.ID})
		require.NoError(t, err)

		_, err = cancel(txn)
		assert.ErrorIs(t, err, cashledger.ErrHasPayments)
	})

	t.Run("generated untouched", func(t *testing.T) {
		rec := monthly(t, l, storeA, "2026-02-06", nil)
		adv, err := l.AdvanceRecurrence(ctx, storeA, rec.ID, types.MustParseDate("2026-02-01"))
		require.NoError(t, err)
		require.Len(t, adv.Created, 1)
		_, err = cancel(adv.Created[0])
		assert.NoError(t, err)
	})
}

func TestStartRejectsEmptyCurrencySet(t *testing.T) {
	l := cashledger.New(memory.New(),
		cashledger.WithScheduler(0, 0, 0),
		cashledger.WithCurrencies("XXX", "not-a-code"),
	)
	err := l.Start(context.Background())
	assert.ErrorIs(t, err, cashledger.ErrInvalidCurrency)

	l = cashledger.New(memory.New(),
		cashledger.WithScheduler(0, 0, 0),
		cashledger.WithCurrencies("brl", "XXX"),
	)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop() })
	_, err = l.CreateTransaction(context.Background(), cashledger.CreateTransactionInput{
		StoreID: storeA, Kind: transaction.KindPayable, Amount: types.BRL(100), DueDate: types.MustParseDate("2026-03-01"),
	})
	assert.NoError(t, err)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, memory.New(), "2026-02-01", cashledger.WithCurrencies("BRL", "USD"))
	txn := receivable(t, l, storeA, 10000, "2026-02-10")

	tests := []struct {
		name string
		in   cashledger.CreateTransactionInput
		want error
	}{
		{"zero amount", cashledger.CreateTransactionInput{StoreID: storeA, Kind: transaction.KindPayable, Amount: types.BRL(0), DueDate: types.MustParseDate("2026-03-01")}, cashledger.ErrInvalidAmount},
		{"negative amount", cashledger.CreateTransactionInput{StoreID: storeA, Kind: transaction.KindPayable, Amount: types.BRL(-1), DueDate: types.MustParseDate("2026-03-01")}, cashledger.ErrInvalidAmount},
		{"above storable range", cashledger.CreateTransactionInput{StoreID: storeA, Kind: transaction.KindPayable, Amount: types.BRL(types.MaxAmount("BRL") + 1), DueDate: types.MustParseDate("2026-03-01")}, cashledger.ErrInvalidAmount},
		{"unsupported currency", cashledger.CreateTransactionInput{StoreID: storeA, Kind: transaction.KindPayable, Amount: types.EUR(100), DueDate: types.MustParseDate("2026-03-01")}, cashledger.ErrInvalidCurrency},
		{"missing store", cashledger.CreateTransactionInput{Kind: transaction.KindPayable, Amount: types.BRL(100), DueDate: types.MustParseDate("2026-03-01")}, cashledger.ErrInvalidInput},
		{"unknown kind", cashledger.CreateTransactionInput{StoreID: storeA, Kind: "gift", Amount: types.BRL(100), DueDate: types.MustParseDate("2026-03-01")}, cashledger.ErrInvalidInput},
		{"missing due date", cashledger.CreateTransactionInput{StoreID: storeA, Kind: transaction.KindPayable, Amount: types.BRL(100)}, cashledger.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.CreateTransaction(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, cashledger.IsValidation(err))
		})
	}

	_, err := l.ApplyPayment(ctx, cashledger.ApplyPaymentInput{StoreID: storeA, TransactionID: txn.ID, Amount: types.USD(100), Method: payment.MethodCash})
	assert.ErrorIs(t, err, cashledger.ErrInvalidCurrency)

	_, err = l.ApplyPayment(ctx, cashledger.ApplyPaymentInput{StoreID: storeA, TransactionID: txn.ID, Amount: types.BRL(100), Method: payment.MethodCash, ExpectedKind: transaction.KindPayable})
	assert.ErrorIs(t, err, cashledger.ErrKindMismatch)

	_, err = pay(l, storeA, txn, 0)
	assert.ErrorIs(t, err, cashledger.ErrInvalidAmount)
}

func TestCrossStoreAccess(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, memory.New(), "2026-02-01")
	txn := receivable(t, l, storeA, 10000, "2026-02-10")

	_, err := l.GetTransaction(ctx, "store-b", txn.ID)
	assert.ErrorIs(t, err, cashledger.ErrCrossStoreAccess)

	_, err = pay(l, "store-b", txn, 100)
	assert.ErrorIs(t, err, cashledger.ErrCrossStoreAccess)

	_, err = l.CancelTransaction(ctx, cashledger.CancelTransactionInput{StoreID: "store-b", TransactionID: txn.ID})
	assert.ErrorIs(t, err, cashledger.ErrCrossStoreAccess)

	vendor, err := l.CreateParty(ctx, cashledger.CreatePartyInput{StoreID: "store-b", Kind: party.KindVendor, Name: "Acme"})
	require.NoError(t, err)
	_, err = l.CreateTransaction(ctx, cashledger.CreateTransactionInput{
		StoreID: storeA, Kind: transaction.KindPayable, Amount: types.BRL(100),
		DueDate: types.MustParseDate("2026-03-01"), CounterpartyID: vendor.ID,
	})
	assert.ErrorIs(t, err, cashledger.ErrCrossStoreAccess)

	list, err := l.ListTransactions(ctx, "store-b", cashledger.TransactionQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestArchivedCounterparty(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, memory.New(), "2026-02-01")

	customer, err := l.CreateParty(ctx, cashledger.CreatePartyInput{StoreID: storeA, Kind: party.KindCustomer, Name: " Maria ", Email: "MARIA@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Maria", customer.Name)
	assert.Equal(t, "maria@example.com", customer.Email)

	_, err = l.ArchiveParty(ctx, storeA, customer.ID)
	require.NoError(t, err)

	_, err = l.CreateTransaction(ctx, cashledger.CreateTransactionInput{
		StoreID: storeA, Kind: transaction.KindReceivable, Amount: types.BRL(100),
		DueDate: types.MustParseDate("2026-03-01"), CounterpartyID: customer.ID,
	})
	assert.ErrorIs(t, err, cashledger.ErrPartyArchived)

	parties, err := l.ListParties(ctx, storeA, party.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, parties)
}

// runRecorder counts scheduler hooks.
type runRecorder struct {
	runs         atomic.Int32
	materialized atomic.Int32
}

func (*runRecorder) Name() string { return "run-recorder" }

func (r *runRecorder) OnSchedulerRun(_ context.Context, _, materialized, _ int, _ time.Duration) error {
	r.runs.Add(1)
	r.materialized.Add(int32(materialized))
	return nil
}

func TestAdvanceDueAcrossStores(t *testing.T) {
	ctx := context.Background()
	rec := &runRecorder{}
	l, _ := newLedger(t, memory.New(), "2026-03-10", cashledger.WithPlugin(rec))

	monthly(t, l, storeA, "2026-01-15", nil)
	monthly(t, l, "store-b", "2026-03-01", nil)
	monthly(t, l, "store-c", "2026-05-01", nil)
	paused := monthly(t, l, "store-c", "2026-01-01", nil)
	_, err := l.PauseRecurrence(ctx, "store-c", paused.ID)
	require.NoError(t, err)

	summary, err := l.AdvanceDue(ctx, types.MustParseDate("2026-03-10"))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Considered)
	assert.Equal(t, 2, summary.Advanced)
	assert.Equal(t, 4, summary.Materialized)
	assert.Zero(t, summary.Failed)

	again, err := l.AdvanceDue(ctx, types.MustParseDate("2026-03-10"))
	require.NoError(t, err)
	assert.Zero(t, again.Materialized)

	assert.Equal(t, int32(2), rec.runs.Load())
	assert.Equal(t, int32(4), rec.materialized.Load())
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, memory.New(), "2026-03-15")

	current := receivable(t, l, storeA, 10000, "2026-03-20")
	receivable(t, l, storeA, 3000, "2026-03-01")
	receivable(t, l, storeA, 2000, "2025-11-01")
	_, err := pay(l, storeA, current, 4000)
	require.NoError(t, err)

	aging, err := l.Aging(ctx, storeA, cashledger.ReportQuery{Kind: transaction.KindReceivable})
	require.NoError(t, err)
	require.Len(t, aging, 1)
	assert.Equal(t, int64(11000), aging[0].Total.Amount)
	byBucket := map[report.Bucket]int64{}
	for _, row := range aging[0].Rows {
		byBucket[row.Bucket] = row.Outstanding.Amount
	}
	assert.Equal(t, int64(6000), byBucket[report.BucketCurrent])
	assert.Equal(t, int64(3000), byBucket[report.Bucket1To30])
	assert.Equal(t, int64(2000), byBucket[report.BucketOver90])

	totals, err := l.Totals(ctx, storeA, cashledger.ReportQuery{})
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, int64(15000), totals[0].Amount.Amount)
	assert.Equal(t, int64(4000), totals[0].Paid.Amount)
	assert.Equal(t, int64(5000), totals[0].Overdue.Amount)

	balances, err := l.Balances(ctx, storeA, cashledger.ReportQuery{GroupBy: "nonsense"})
	assert.ErrorIs(t, err, cashledger.ErrInvalidInput)
	assert.Nil(t, balances)
}
