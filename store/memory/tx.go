package memory

import (
	"context"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/party"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/store"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

var _ store.Tx = (*tx)(nil)

// tx stages writes until commit. Reads see staged values first.
type tx struct {
	s *Store

	held    map[string]bool
	unlocks []func()

	transactions map[id.ID]*transaction.Transaction
	created      map[id.ID]bool // transactions and recurrences created in this tx
	payments     []*payment.Payment
	recurrences  map[id.ID]*recurrence.Recurrence
}

// InTx runs fn in a unit of work. Entity locks taken through tx are held
// until fn returns and the staged writes are applied or dropped.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if pingErr := s.Ping(ctx); pingErr != nil {
		return pingErr
	}

	t := &tx{
		s:            s,
		held:         make(map[string]bool),
		transactions: make(map[id.ID]*transaction.Transaction),
		created:      make(map[id.ID]bool),
		recurrences:  make(map[id.ID]*recurrence.Recurrence),
	}
	defer t.release()

	if err := fn(ctx, t); err != nil {
		return err
	}
	return t.commit()
}

func (t *tx) lock(key string) {
	if t.held[key] {
		return
	}
	t.unlocks = append(t.unlocks, t.s.locks.Lock(key))
	t.held[key] = true
}

func (t *tx) release() {
	for i := len(t.unlocks) - 1; i >= 0; i-- {
		t.unlocks[i]()
	}
	t.unlocks = nil
}

func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for tid := range t.transactions {
		_, exists := s.transactions[tid]
		if t.created[tid] && exists {
			return cashledger.ErrAlreadyExists
		}
		if !t.created[tid] && !exists {
			return cashledger.ErrTransactionNotFound
		}
	}
	for rid := range t.recurrences {
		_, exists := s.recurrences[rid]
		if t.created[rid] && exists {
			return cashledger.ErrAlreadyExists
		}
		if !t.created[rid] && !exists {
			return cashledger.ErrRecurrenceNotFound
		}
	}
	for _, p := range t.payments {
		if _, exists := s.payments[p.ID]; exists {
			return cashledger.ErrAlreadyExists
		}
		if _, reversed := s.reversals[p.Reverses]; p.IsReversal() && reversed {
			return cashledger.ErrAlreadyExists
		}
	}

	for tid, txn := range t.transactions {
		s.transactions[tid] = txn
	}
	for _, p := range t.payments {
		s.insertPaymentLocked(p)
	}
	for rid, r := range t.recurrences {
		s.recurrences[rid] = r
	}
	return nil
}

// ──────────────────────────────────────────────────
// Locks
// ──────────────────────────────────────────────────

func (t *tx) LockTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	t.lock("txn:" + txnID.String())
	return t.GetTransaction(ctx, txnID)
}

func (t *tx) LockRecurrence(ctx context.Context, recID id.RecurrenceID) (*recurrence.Recurrence, error) {
	t.lock("rec:" + recID.String())
	return t.GetRecurrence(ctx, recID)
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

func (t *tx) CreateTransaction(ctx context.Context, txn *transaction.Transaction) error {
	if _, err := t.GetTransaction(ctx, txn.ID); err == nil {
		return cashledger.ErrAlreadyExists
	}
	t.transactions[txn.ID] = cloneTransaction(txn)
	t.created[txn.ID] = true
	return nil
}

func (t *tx) GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	if staged, ok := t.transactions[txnID]; ok {
		return cloneTransaction(staged), nil
	}
	return t.s.GetTransaction(ctx, txnID)
}

func (t *tx) ListTransactions(_ context.Context, storeID string, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	return filterTransactions(t.s.transactions, t.transactions, storeID, opts), nil
}

func (t *tx) UpdateTransaction(ctx context.Context, txn *transaction.Transaction) error {
	if _, err := t.GetTransaction(ctx, txn.ID); err != nil {
		return err
	}
	t.transactions[txn.ID] = cloneTransaction(txn)
	return nil
}

// ──────────────────────────────────────────────────
// Payments
// ──────────────────────────────────────────────────

func (t *tx) CreatePayment(ctx context.Context, p *payment.Payment) error {
	if _, err := t.GetTransaction(ctx, p.TransactionID); err != nil {
		return err
	}
	if _, err := t.GetPayment(ctx, p.ID); err == nil {
		return cashledger.ErrAlreadyExists
	}
	if p.IsReversal() {
		existing, err := t.ListPayments(ctx, p.TransactionID)
		if err != nil {
			return err
		}
		if payment.ReversalOf(p.Reverses, existing) != nil {
			return cashledger.ErrAlreadyExists
		}
	}
	c := *p
	t.payments = append(t.payments, &c)
	return nil
}

func (t *tx) GetPayment(ctx context.Context, payID id.PaymentID) (*payment.Payment, error) {
	for _, p := range t.payments {
		if p.ID == payID {
			c := *p
			return &c, nil
		}
	}
	return t.s.GetPayment(ctx, payID)
}

func (t *tx) ListPayments(ctx context.Context, txnID id.TransactionID) ([]*payment.Payment, error) {
	result, err := t.s.ListPayments(ctx, txnID)
	if err != nil {
		return nil, err
	}
	for _, p := range t.payments {
		if p.TransactionID == txnID {
			c := *p
			result = append(result, &c)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Recurrences
// ──────────────────────────────────────────────────

func (t *tx) CreateRecurrence(ctx context.Context, r *recurrence.Recurrence) error {
	if _, err := t.GetRecurrence(ctx, r.ID); err == nil {
		return cashledger.ErrAlreadyExists
	}
	t.recurrences[r.ID] = cloneRecurrence(r)
	t.created[r.ID] = true
	return nil
}

func (t *tx) GetRecurrence(ctx context.Context, recID id.RecurrenceID) (*recurrence.Recurrence, error) {
	if staged, ok := t.recurrences[recID]; ok {
		return cloneRecurrence(staged), nil
	}
	return t.s.GetRecurrence(ctx, recID)
}

func (t *tx) ListRecurrences(ctx context.Context, storeID string, opts recurrence.ListOpts) ([]*recurrence.Recurrence, error) {
	return t.s.ListRecurrences(ctx, storeID, opts)
}

func (t *tx) ListDueRecurrences(ctx context.Context, through types.Date, limit int) ([]*recurrence.Recurrence, error) {
	return t.s.ListDueRecurrences(ctx, through, limit)
}

func (t *tx) UpdateRecurrence(ctx context.Context, r *recurrence.Recurrence) error {
	if _, err := t.GetRecurrence(ctx, r.ID); err != nil {
		return err
	}
	t.recurrences[r.ID] = cloneRecurrence(r)
	return nil
}

// ──────────────────────────────────────────────────
// Parties
// ──────────────────────────────────────────────────

func (t *tx) GetParty(ctx context.Context, partyID id.PartyID) (*party.Party, error) {
	return t.s.GetParty(ctx, partyID)
}
