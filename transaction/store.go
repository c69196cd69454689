package transaction

import (
	"context"

	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/types"
)

type Store interface {
	CreateTransaction(ctx context.Context, t *Transaction) error
	GetTransaction(ctx context.Context, txnID id.TransactionID) (*Transaction, error)
	ListTransactions(ctx context.Context, storeID string, opts ListOpts) ([]*Transaction, error)
	UpdateTransaction(ctx context.Context, t *Transaction) error
}

// ListOpts filters ListTransactions. Zero values match everything.
// Results are ordered by due date, then id.
type ListOpts struct {
	Kind            Kind
	Category        string
	CostCenter      string
	CounterpartyID  id.PartyID
	RecurrenceID    id.RecurrenceID
	DueFrom         types.Date
	DueTo           types.Date
	OpenOnly        bool // neither canceled nor settled
	IncludeCanceled bool
	Limit           int
	Offset          int
}

// Matches reports whether t passes every filter in o.
func (o ListOpts) Matches(t *Transaction) bool {
	if o.Kind != "" && t.Kind != o.Kind {
		return false
	}
	if o.Category != "" && t.Category != o.Category {
		return false
	}
	if o.CostCenter != "" && t.CostCenter != o.CostCenter {
		return false
	}
	if !o.CounterpartyID.IsNil() && t.CounterpartyID != o.CounterpartyID {
		return false
	}
	if !o.RecurrenceID.IsNil() && t.RecurrenceID != o.RecurrenceID {
		return false
	}
	if !o.DueFrom.IsZero() && t.DueDate.Before(o.DueFrom) {
		return false
	}
	if !o.DueTo.IsZero() && t.DueDate.After(o.DueTo) {
		return false
	}
	if t.IsCanceled() && !o.IncludeCanceled {
		return false
	}
	if o.OpenOnly && (t.IsCanceled() || t.IsSettled()) {
		return false
	}
	return true
}
