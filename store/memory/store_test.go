package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/store"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

func seedTransaction(t *testing.T, s *Store, storeID, due string) *transaction.Transaction {
	t.Helper()
	txn := &transaction.Transaction{
		Entity:     types.NewEntity("test"),
		ID:         id.NewTransactionID(),
		StoreID:    storeID,
		Kind:       transaction.KindReceivable,
		Amount:     types.BRL(10000),
		AmountPaid: types.BRL(0),
		DueDate:    types.MustParseDate(due),
		Status:     transaction.StatusPending,
	}
	require.NoError(t, s.CreateTransaction(context.Background(), txn))
	return txn
}

func TestTransactionCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	txn := seedTransaction(t, s, "store-1", "2026-01-10")
	seedTransaction(t, s, "store-1", "2026-01-05")
	seedTransaction(t, s, "store-2", "2026-01-01")

	assert.ErrorIs(t, s.CreateTransaction(ctx, txn), cashledger.ErrAlreadyExists)

	got, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	got.Description = "mutated"
	again, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Description, "reads must not alias stored values")

	list, err := s.ListTransactions(ctx, "store-1", transaction.ListOpts{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2026-01-05", list[0].DueDate.String())

	page, err := s.ListTransactions(ctx, "store-1", transaction.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, txn.ID, page[0].ID)

	_, err = s.GetTransaction(ctx, id.NewTransactionID())
	assert.True(t, cashledger.IsNotFound(err))
}

func TestInTxCommit(t *testing.T) {
	ctx := context.Background()
	s := New()
	txn := seedTransaction(t, s, "store-1", "2026-01-10")

	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.LockTransaction(ctx, txn.ID)
		if err != nil {
			return err
		}
		p := &payment.Payment{
			ID:            id.NewPaymentID(),
			TransactionID: locked.ID,
			StoreID:       locked.StoreID,
			Kind:          payment.KindPayment,
			Amount:        types.BRL(4000),
			Method:        payment.MethodPix,
			CreatedAt:     time.Now(),
		}
		if err := tx.CreatePayment(ctx, p); err != nil {
			return err
		}

		staged, err := tx.ListPayments(ctx, locked.ID)
		if err != nil {
			return err
		}
		locked.AmountPaid = payment.Total("BRL", staged)
		return tx.UpdateTransaction(ctx, locked)
	})
	require.NoError(t, err)

	got, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), got.AmountPaid.Amount)

	payments, err := s.ListPayments(ctx, txn.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestInTxRollback(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	rec := &recurrence.Recurrence{
		ID:          id.NewRecurrenceID(),
		StoreID:     "store-1",
		Status:      recurrence.StatusActive,
		NextDueDate: types.MustParseDate("2026-01-31"),
	}
	require.NoError(t, s.CreateRecurrence(ctx, rec))

	var createdID id.ID
	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.LockRecurrence(ctx, rec.ID)
		if err != nil {
			return err
		}
		occurrence := locked.Occurrence(locked.NextDueDate)
		occurrence.ID = id.NewTransactionID()
		createdID = occurrence.ID
		if err := tx.CreateTransaction(ctx, occurrence); err != nil {
			return err
		}
		locked.NextDueDate = types.MustParseDate("2026-02-28")
		if err := tx.UpdateRecurrence(ctx, locked); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetTransaction(ctx, createdID)
	assert.ErrorIs(t, err, cashledger.ErrTransactionNotFound)

	got, err := s.GetRecurrence(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-31", got.NextDueDate.String())
}

func TestLockSerializesSameEntity(t *testing.T) {
	ctx := context.Background()
	s := New()
	txn := seedTransaction(t, s, "store-1", "2026-01-10")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
				locked, err := tx.LockTransaction(ctx, txn.ID)
				if err != nil {
					return err
				}
				locked.AmountPaid = locked.AmountPaid.Add(types.BRL(1))
				return tx.UpdateTransaction(ctx, locked)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.AmountPaid.Amount, "lost update")
}

func TestSingleReversalPerPayment(t *testing.T) {
	ctx := context.Background()
	s := New()
	txn := seedTransaction(t, s, "store-1", "2026-01-10")

	original := &payment.Payment{ID: id.NewPaymentID(), TransactionID: txn.ID, Kind: payment.KindPayment, Amount: types.BRL(100)}
	require.NoError(t, s.CreatePayment(ctx, original))

	first := &payment.Payment{ID: id.NewPaymentID(), TransactionID: txn.ID, Kind: payment.KindReversal, Amount: types.BRL(100), Reverses: original.ID}
	require.NoError(t, s.CreatePayment(ctx, first))

	second := &payment.Payment{ID: id.NewPaymentID(), TransactionID: txn.ID, Kind: payment.KindReversal, Amount: types.BRL(100), Reverses: original.ID}
	assert.ErrorIs(t, s.CreatePayment(ctx, second), cashledger.ErrAlreadyExists)

	orphan := &payment.Payment{ID: id.NewPaymentID(), TransactionID: id.NewTransactionID(), Kind: payment.KindPayment, Amount: types.BRL(1)}
	assert.ErrorIs(t, s.CreatePayment(ctx, orphan), cashledger.ErrTransactionNotFound)
}

func TestListDueRecurrences(t *testing.T) {
	ctx := context.Background()
	s := New()

	mk := func(storeID, next string, status recurrence.Status) {
		require.NoError(t, s.CreateRecurrence(ctx, &recurrence.Recurrence{
			ID:          id.NewRecurrenceID(),
			StoreID:     storeID,
			Status:      status,
			NextDueDate: types.MustParseDate(next),
		}))
	}
	mk("store-1", "2026-01-31", recurrence.StatusActive)
	mk("store-2", "2026-01-15", recurrence.StatusActive)
	mk("store-1", "2026-01-01", recurrence.StatusPaused)
	mk("store-1", "2026-03-01", recurrence.StatusActive)

	due, err := s.ListDueRecurrences(ctx, types.MustParseDate("2026-02-01"), 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "store-2", due[0].StoreID)

	limited, err := s.ListDueRecurrences(ctx, types.MustParseDate("2026-02-01"), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestClosedStore(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), cashledger.ErrStoreClosed)
	err := s.InTx(context.Background(), func(context.Context, store.Tx) error { return nil })
	assert.ErrorIs(t, err, cashledger.ErrStoreClosed)
}
