// Package storetest is a behavioral test suite shared by every store.Store
// implementation. Each test works in freshly named stores, so the suite
// can run against a database that already holds data.
package storetest

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
	"github.com/xraph/cashledger/party"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/store"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

// Opener returns a migrated store. The suite closes it.
type Opener func(t *testing.T) store.Store

// Run executes the whole suite.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"TransactionRoundTrip", testTransactionRoundTrip},
		{"AmountCeiling", testAmountCeiling},
		{"TransactionFilters", testTransactionFilters},
		{"UpdateMissing", testUpdateMissing},
		{"PaymentsAndReversals", testPaymentsAndReversals},
		{"InTxCommit", testInTxCommit},
		{"InTxRollback", testInTxRollback},
		{"LockSerializes", testLockSerializes},
		{"Recurrences", testRecurrences},
		{"Parties", testParties},
		{"Close", testClose},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func storeName(prefix string) string {
	return prefix + "-" + id.NewPartyID().String()
}

// NewTransaction builds a valid receivable in BRL.
func NewTransaction(storeID, due string, minor int64) *transaction.Transaction {
	return &transaction.Transaction{
		Entity:     types.NewEntity("storetest"),
		ID:         id.NewTransactionID(),
		StoreID:    storeID,
		Kind:       transaction.KindReceivable,
		Amount:     types.BRL(minor),
		AmountPaid: types.BRL(0),
		DueDate:    types.MustParseDate(due),
		Status:     transaction.StatusPending,
	}
}

// NewRecurrence builds a valid monthly payable in BRL.
func NewRecurrence(storeID, next string, status recurrence.Status) *recurrence.Recurrence {
	return &recurrence.Recurrence{
		Entity:      types.NewEntity("storetest"),
		ID:          id.NewRecurrenceID(),
		StoreID:     storeID,
		Kind:        transaction.KindPayable,
		Amount:      types.BRL(150000),
		Frequency:   recurrence.FrequencyMonthly,
		Status:      status,
		StartDate:   types.MustParseDate(next),
		NextDueDate: types.MustParseDate(next),
		AnchorDay:   types.MustParseDate(next).Day(),
	}
}

func newPayment(txn *transaction.Transaction, minor int64) *payment.Payment {
	return &payment.Payment{
		ID:            id.NewPaymentID(),
		TransactionID: txn.ID,
		StoreID:       txn.StoreID,
		Kind:          payment.KindPayment,
		Amount:        types.New(minor, txn.Currency()),
		PaidOn:        txn.DueDate,
		Method:        payment.MethodPix,
		CreatedAt:     time.Now().UTC(),
	}
}

func testTransactionRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	storeID := storeName("rt")

	txn := NewTransaction(storeID, "2026-01-10", 12345)
	txn.Tags = []string{"rent", "q1"}
	txn.Metadata = map[string]string{"ref": "A-1"}
	txn.Category = "housing"
	require.NoError(t, s.CreateTransaction(ctx, txn))
	assert.ErrorIs(t, s.CreateTransaction(ctx, txn), cashledger.ErrAlreadyExists)

	got, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.Amount, got.Amount)
	assert.Equal(t, types.BRL(0), got.AmountPaid)
	assert.Equal(t, "2026-01-10", got.DueDate.String())
	assert.Equal(t, []string{"rent", "q1"}, got.Tags)
	assert.Equal(t, "A-1", got.Metadata["ref"])
	assert.Nil(t, got.PaidDate)
	assert.Nil(t, got.CanceledAt)
	assert.True(t, got.RecurrenceID.IsNil())

	paid := types.MustParseDate("2026-01-12")
	got.AmountPaid = types.BRL(12345)
	got.PaidDate = &paid
	got.Status = transaction.StatusPaid
	require.NoError(t, s.UpdateTransaction(ctx, got))

	again, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), again.AmountPaid.Amount)
	require.NotNil(t, again.PaidDate)
	assert.Equal(t, "2026-01-12", again.PaidDate.String())

	_, err = s.GetTransaction(ctx, id.NewTransactionID())
	assert.True(t, cashledger.IsNotFound(err))
}

// testAmountCeiling stores the largest accepted amount of a two-digit and
// a zero-digit currency and reads both back unchanged.
func testAmountCeiling(t *testing.T, s store.Store) {
	ctx := context.Background()
	storeID := storeName("ceiling")

	for _, currency := range []string{"BRL", "JPY"} {
		txn := NewTransaction(storeID, "2026-01-10", 1)
		txn.Amount = types.New(types.MaxAmount(currency), currency)
		txn.AmountPaid = types.New(types.MaxAmount(currency), currency)
		require.NoError(t, s.CreateTransaction(ctx, txn), currency)

		got, err := s.GetTransaction(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, txn.Amount, got.Amount, currency)
		assert.Equal(t, txn.AmountPaid, got.AmountPaid, currency)
	}
}

func testTransactionFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	storeID := storeName("filter")
	other := storeName("filter-other")

	late := NewTransaction(storeID, "2026-01-10", 100)
	early := NewTransaction(storeID, "2026-01-05", 100)
	early.Kind = transaction.KindPayable
	settled := NewTransaction(storeID, "2026-01-20", 100)
	settled.AmountPaid = types.BRL(100)
	canceled := NewTransaction(storeID, "2026-01-25", 100)
	now := time.Now().UTC().Truncate(time.Microsecond)
	canceled.CanceledAt = &now
	for _, txn := range []*transaction.Transaction{late, early, settled, canceled, NewTransaction(other, "2026-01-01", 100)} {
		require.NoError(t, s.CreateTransaction(ctx, txn))
	}

	all, err := s.ListTransactions(ctx, storeID, transaction.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, early.ID, all[0].ID)

	withCanceled, err := s.ListTransactions(ctx, storeID, transaction.ListOpts{IncludeCanceled: true})
	require.NoError(t, err)
	assert.Len(t, withCanceled, 4)

	open, err := s.ListTransactions(ctx, storeID, transaction.ListOpts{OpenOnly: true, IncludeCanceled: true})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	payables, err := s.ListTransactions(ctx, storeID, transaction.ListOpts{Kind: transaction.KindPayable})
	require.NoError(t, err)
	require.Len(t, payables, 1)
	assert.Equal(t, early.ID, payables[0].ID)

	window, err := s.ListTransactions(ctx, storeID, transaction.ListOpts{
		DueFrom: types.MustParseDate("2026-01-06"),
		DueTo:   types.MustParseDate("2026-01-20"),
	})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	page, err := s.ListTransactions(ctx, storeID, transaction.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, late.ID, page[0].ID)
}

func testUpdateMissing(t *testing.T, s store.Store) {
	ctx := context.Background()
	assert.ErrorIs(t, s.UpdateTransaction(ctx, NewTransaction("missing", "2026-01-01", 1)), cashledger.ErrTransactionNotFound)
	assert.ErrorIs(t, s.UpdateRecurrence(ctx, NewRecurrence("missing", "2026-01-01", recurrence.StatusActive)), cashledger.ErrRecurrenceNotFound)
	assert.ErrorIs(t, s.UpdateParty(ctx, &party.Party{ID: id.NewPartyID(), StoreID: "missing", Kind: party.KindVendor, Name: "x"}), cashledger.ErrPartyNotFound)
}

func testPaymentsAndReversals(t *testing.T, s store.Store) {
	ctx := context.Background()
	txn := NewTransaction(storeName("pay"), "2026-01-10", 10000)
	require.NoError(t, s.CreateTransaction(ctx, txn))

	original := newPayment(txn, 4000)
	require.NoError(t, s.CreatePayment(ctx, original))

	first := newPayment(txn, 4000)
	first.Kind = payment.KindReversal
	first.Reverses = original.ID
	first.CreatedAt = original.CreatedAt.Add(time.Millisecond)
	require.NoError(t, s.CreatePayment(ctx, first))

	second := newPayment(txn, 4000)
	second.Kind = payment.KindReversal
	second.Reverses = original.ID
	assert.ErrorIs(t, s.CreatePayment(ctx, second), cashledger.ErrAlreadyExists)

	list, err := s.ListPayments(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, original.ID, list[0].ID)
	assert.Equal(t, original.ID, list[1].Reverses)
	assert.True(t, payment.Total("BRL", list).IsZero())

	got, err := s.GetPayment(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, types.BRL(4000), got.Amount)
	assert.True(t, got.Reverses.IsNil())

	_, err = s.GetPayment(ctx, id.NewPaymentID())
	assert.ErrorIs(t, err, cashledger.ErrPaymentNotFound)

	orphan := newPayment(txn, 1)
	orphan.TransactionID = id.NewTransactionID()
	assert.ErrorIs(t, s.CreatePayment(ctx, orphan), cashledger.ErrTransactionNotFound)
}

func testInTxCommit(t *testing.T, s store.Store) {
	ctx := context.Background()
	txn := NewTransaction(storeName("commit"), "2026-01-10", 10000)
	require.NoError(t, s.CreateTransaction(ctx, txn))

	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.LockTransaction(ctx, txn.ID)
		if err != nil {
			return err
		}
		if err := tx.CreatePayment(ctx, newPayment(locked, 4000)); err != nil {
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
}

func testInTxRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")
	rec := NewRecurrence(storeName("rollback"), "2026-01-31", recurrence.StatusActive)
	require.NoError(t, s.CreateRecurrence(ctx, rec))

	var createdID id.ID
	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.LockRecurrence(ctx, rec.ID)
		if err != nil {
			return err
		}
		occurrence := locked.Occurrence(locked.NextDueDate)
		occurrence.ID = id.NewTransactionID()
		occurrence.Entity = types.NewEntity("storetest")
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

	err = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.LockTransaction(ctx, id.NewTransactionID())
		return err
	})
	assert.ErrorIs(t, err, cashledger.ErrTransactionNotFound)
}

func testLockSerializes(t *testing.T, s store.Store) {
	ctx := context.Background()
	txn := NewTransaction(storeName("lock"), "2026-01-10", 10000)
	require.NoError(t, s.CreateTransaction(ctx, txn))

	const workers = 20
	var wg sync.WaitGroup
	for range workers {
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
	assert.Equal(t, int64(workers), got.AmountPaid.Amount, "lost update")
}

func testRecurrences(t *testing.T, s store.Store) {
	ctx := context.Background()
	a, b := storeName("rec-a"), storeName("rec-b")

	endDate := types.MustParseDate("2026-12-31")
	first := NewRecurrence(a, "2026-01-31", recurrence.StatusActive)
	first.EndDate = &endDate
	first.Tags = []string{"fixed"}
	recs := []*recurrence.Recurrence{
		first,
		NewRecurrence(b, "2026-01-15", recurrence.StatusActive),
		NewRecurrence(a, "2026-01-01", recurrence.StatusPaused),
		NewRecurrence(a, "2026-03-01", recurrence.StatusActive),
	}
	for _, r := range recs {
		require.NoError(t, s.CreateRecurrence(ctx, r))
	}

	got, err := s.GetRecurrence(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, "2026-12-31", got.EndDate.String())
	assert.Equal(t, 31, got.AnchorDay)
	assert.Equal(t, []string{"fixed"}, got.Tags)

	ran := types.MustParseDate("2026-02-01")
	got.LastRunOn = &ran
	got.Occurrences = 1
	got.NextDueDate = types.MustParseDate("2026-02-28")
	require.NoError(t, s.UpdateRecurrence(ctx, got))
	got, err = s.GetRecurrence(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Occurrences)
	assert.Equal(t, "2026-02-01", got.LastRunOn.String())

	paused, err := s.ListRecurrences(ctx, a, recurrence.ListOpts{Status: recurrence.StatusPaused})
	require.NoError(t, err)
	assert.Len(t, paused, 1)

	mine := func(list []*recurrence.Recurrence) []*recurrence.Recurrence {
		out := make([]*recurrence.Recurrence, 0, len(list))
		for _, r := range list {
			if r.StoreID == a || r.StoreID == b {
				out = append(out, r)
			}
		}
		return out
	}

	due, err := s.ListDueRecurrences(ctx, types.MustParseDate("2026-02-28"), 0)
	require.NoError(t, err)
	due = mine(due)
	require.Len(t, due, 2)
	assert.Equal(t, b, due[0].StoreID)
	assert.Equal(t, first.ID, due[1].ID)

	limited, err := s.ListDueRecurrences(ctx, types.MustParseDate("2026-02-28"), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func testParties(t *testing.T, s store.Store) {
	ctx := context.Background()
	storeID := storeName("party")

	mk := func(name string, kind party.Kind) *party.Party {
		p := &party.Party{
			Entity:   types.NewEntity("storetest"),
			ID:       id.NewPartyID(),
			StoreID:  storeID,
			Kind:     kind,
			Name:     name,
			Document: "DOC-" + name,
		}
		require.NoError(t, s.CreateParty(ctx, p))
		return p
	}
	acme := mk("Acme", party.KindCustomer)
	mk("Bolt 100%", party.KindVendor)
	both := mk("Crane", party.KindBoth)

	customers, err := s.ListParties(ctx, storeID, party.ListOpts{Kind: party.KindCustomer})
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, acme.ID, customers[0].ID)
	assert.Equal(t, both.ID, customers[1].ID)

	found, err := s.ListParties(ctx, storeID, party.ListOpts{Search: "100%"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	acme.Archived = true
	acme.Touch()
	require.NoError(t, s.UpdateParty(ctx, acme))

	active, err := s.ListParties(ctx, storeID, party.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := s.ListParties(ctx, storeID, party.ListOpts{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Transactions may reference a party.
	txn := NewTransaction(storeID, "2026-01-01", 100)
	txn.CounterpartyID = both.ID
	require.NoError(t, s.CreateTransaction(ctx, txn))
	byParty, err := s.ListTransactions(ctx, storeID, transaction.ListOpts{CounterpartyID: both.ID})
	require.NoError(t, err)
	require.Len(t, byParty, 1)
	assert.Equal(t, both.ID, byParty[0].CounterpartyID)

	_, err = s.GetParty(ctx, id.NewPartyID())
	assert.ErrorIs(t, err, cashledger.ErrPartyNotFound)
}

func testClose(t *testing.T, s store.Store) {
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), cashledger.ErrStoreClosed)
	err := s.InTx(context.Background(), func(context.Context, store.Tx) error { return nil })
	assert.ErrorIs(t, err, cashledger.ErrStoreClosed)
}
