// Package memory is an in-process store for tests and single-node
// development. Units of work stage their writes and apply them on commit;
// entity locks are per-id mutexes, so there is no global write lock held
// across a unit of work.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/party"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/store"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	transactions map[id.ID]*transaction.Transaction
	payments     map[id.ID]*payment.Payment
	byTxn        map[id.ID][]id.ID // payment ids per transaction, creation order
	reversals    map[id.ID]id.ID   // original payment -> its reversal
	recurrences  map[id.ID]*recurrence.Recurrence
	parties      map[id.ID]*party.Party

	locks  *keyedMutex
	closed bool
}

func New() *Store {
	return &Store{
		transactions: make(map[id.ID]*transaction.Transaction),
		payments:     make(map[id.ID]*payment.Payment),
		byTxn:        make(map[id.ID][]id.ID),
		reversals:    make(map[id.ID]id.ID),
		recurrences:  make(map[id.ID]*recurrence.Recurrence),
		parties:      make(map[id.ID]*party.Party),
		locks:        newKeyedMutex(),
	}
}

// ──────────────────────────────────────────────────
// Transaction Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateTransaction(_ context.Context, t *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[t.ID]; exists {
		return cashledger.ErrAlreadyExists
	}
	s.transactions[t.ID] = cloneTransaction(t)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.transactions[txnID]; ok {
		return cloneTransaction(t), nil
	}
	return nil, cashledger.ErrTransactionNotFound
}

func (s *Store) ListTransactions(_ context.Context, storeID string, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return filterTransactions(s.transactions, nil, storeID, opts), nil
}

func (s *Store) UpdateTransaction(_ context.Context, t *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[t.ID]; !exists {
		return cashledger.ErrTransactionNotFound
	}
	s.transactions[t.ID] = cloneTransaction(t)
	return nil
}

// ──────────────────────────────────────────────────
// Payment Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreatePayment(_ context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPaymentLocked(p); err != nil {
		return err
	}
	s.insertPaymentLocked(p)
	return nil
}

func (s *Store) GetPayment(_ context.Context, payID id.PaymentID) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.payments[payID]; ok {
		c := *p
		return &c, nil
	}
	return nil, cashledger.ErrPaymentNotFound
}

func (s *Store) ListPayments(_ context.Context, txnID id.TransactionID) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.paymentsOfLocked(txnID), nil
}

func (s *Store) paymentsOfLocked(txnID id.ID) []*payment.Payment {
	ids := s.byTxn[txnID]
	result := make([]*payment.Payment, 0, len(ids))
	for _, pid := range ids {
		c := *s.payments[pid]
		result = append(result, &c)
	}
	return result
}

func (s *Store) checkPaymentLocked(p *payment.Payment) error {
	if _, exists := s.payments[p.ID]; exists {
		return cashledger.ErrAlreadyExists
	}
	if _, exists := s.transactions[p.TransactionID]; !exists {
		return cashledger.ErrTransactionNotFound
	}
	if p.IsReversal() {
		if _, reversed := s.reversals[p.Reverses]; reversed {
			return cashledger.ErrAlreadyExists
		}
	}
	return nil
}

func (s *Store) insertPaymentLocked(p *payment.Payment) {
	c := *p
	s.payments[p.ID] = &c
	s.byTxn[p.TransactionID] = append(s.byTxn[p.TransactionID], p.ID)
	if p.IsReversal() {
		s.reversals[p.Reverses] = p.ID
	}
}

// ──────────────────────────────────────────────────
// Recurrence Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateRecurrence(_ context.Context, r *recurrence.Recurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.recurrences[r.ID]; exists {
		return cashledger.ErrAlreadyExists
	}
	s.recurrences[r.ID] = cloneRecurrence(r)
	return nil
}

func (s *Store) GetRecurrence(_ context.Context, recID id.RecurrenceID) (*recurrence.Recurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.recurrences[recID]; ok {
		return cloneRecurrence(r), nil
	}
	return nil, cashledger.ErrRecurrenceNotFound
}

func (s *Store) ListRecurrences(_ context.Context, storeID string, opts recurrence.ListOpts) ([]*recurrence.Recurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*recurrence.Recurrence, 0)
	for _, r := range s.recurrences {
		if r.StoreID == storeID && (opts.Status == "" || r.Status == opts.Status) {
			result = append(result, cloneRecurrence(r))
		}
	}
	sortRecurrences(result)
	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) ListDueRecurrences(_ context.Context, through types.Date, limit int) ([]*recurrence.Recurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*recurrence.Recurrence, 0)
	for _, r := range s.recurrences {
		if r.IsActive() && !r.NextDueDate.After(through) {
			result = append(result, cloneRecurrence(r))
		}
	}
	sortRecurrences(result)
	return paginate(result, limit, 0), nil
}

func (s *Store) UpdateRecurrence(_ context.Context, r *recurrence.Recurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.recurrences[r.ID]; !exists {
		return cashledger.ErrRecurrenceNotFound
	}
	s.recurrences[r.ID] = cloneRecurrence(r)
	return nil
}

// ──────────────────────────────────────────────────
// Party Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateParty(_ context.Context, p *party.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.parties[p.ID]; exists {
		return cashledger.ErrAlreadyExists
	}
	s.parties[p.ID] = cloneParty(p)
	return nil
}

func (s *Store) GetParty(_ context.Context, partyID id.PartyID) (*party.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.parties[partyID]; ok {
		return cloneParty(p), nil
	}
	return nil, cashledger.ErrPartyNotFound
}

func (s *Store) ListParties(_ context.Context, storeID string, opts party.ListOpts) ([]*party.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*party.Party, 0)
	for _, p := range s.parties {
		if p.StoreID == storeID && opts.Matches(p) {
			result = append(result, cloneParty(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) UpdateParty(_ context.Context, p *party.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.parties[p.ID]; !exists {
		return cashledger.ErrPartyNotFound
	}
	s.parties[p.ID] = cloneParty(p)
	return nil
}

// ──────────────────────────────────────────────────
// Core methods
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return cashledger.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// filterTransactions lists committed transactions with staged overrides
// layered on top.
func filterTransactions(committed, staged map[id.ID]*transaction.Transaction, storeID string, opts transaction.ListOpts) []*transaction.Transaction {
	result := make([]*transaction.Transaction, 0)
	for tid, t := range committed {
		if override, ok := staged[tid]; ok {
			t = override
		}
		if t.StoreID == storeID && opts.Matches(t) {
			result = append(result, cloneTransaction(t))
		}
	}
	for tid, t := range staged {
		if _, seen := committed[tid]; seen {
			continue
		}
		if t.StoreID == storeID && opts.Matches(t) {
			result = append(result, cloneTransaction(t))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if c := result[i].DueDate.Compare(result[j].DueDate); c != 0 {
			return c < 0
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return paginate(result, opts.Limit, opts.Offset)
}

func sortRecurrences(rs []*recurrence.Recurrence) {
	sort.Slice(rs, func(i, j int) bool {
		if c := rs[i].NextDueDate.Compare(rs[j].NextDueDate); c != 0 {
			return c < 0
		}
		return rs[i].ID.String() < rs[j].ID.String()
	})
}

func paginate[T any](items []T, limit, offset int) []T {
	start := min(offset, len(items))
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}

func cloneTransaction(t *transaction.Transaction) *transaction.Transaction {
	c := *t
	c.Tags = slices.Clone(t.Tags)
	c.Metadata = maps.Clone(t.Metadata)
	if t.PaidDate != nil {
		d := *t.PaidDate
		c.PaidDate = &d
	}
	if t.CanceledAt != nil {
		at := *t.CanceledAt
		c.CanceledAt = &at
	}
	return &c
}

func cloneRecurrence(r *recurrence.Recurrence) *recurrence.Recurrence {
	c := *r
	c.Tags = slices.Clone(r.Tags)
	c.Metadata = maps.Clone(r.Metadata)
	if r.EndDate != nil {
		d := *r.EndDate
		c.EndDate = &d
	}
	if r.LastRunOn != nil {
		d := *r.LastRunOn
		c.LastRunOn = &d
	}
	return &c
}

func cloneParty(p *party.Party) *party.Party {
	c := *p
	c.Metadata = maps.Clone(p.Metadata)
	return &c
}
