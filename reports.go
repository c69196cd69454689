package cashledger

import (
	"context"

	"github.com/xraph/cashledger/report"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

// ReportQuery selects the transactions a report covers. A zero AsOf
// means today.
type ReportQuery struct {
	Kind    transaction.Kind
	GroupBy report.GroupBy
	DueFrom types.Date
	DueTo   types.Date
	AsOf    types.Date
}

func (l *Ledger) reportInput(ctx context.Context, storeID string, q *ReportQuery, openOnly bool) ([]*transaction.Transaction, error) {
	if err := requireStore(storeID); err != nil {
		return nil, err
	}
	if q.Kind != "" && !q.Kind.IsValid() {
		return nil, invalid("kind", "unknown kind %q", q.Kind)
	}
	if q.AsOf.IsZero() {
		q.AsOf = l.clock.Today()
	}
	return l.store.ListTransactions(ctx, storeID, transaction.ListOpts{
		Kind:     q.Kind,
		DueFrom:  q.DueFrom,
		DueTo:    q.DueTo,
		OpenOnly: openOnly,
	})
}

// Balances returns the open balance of a store grouped by q.GroupBy
// (kind when unset).
func (l *Ledger) Balances(ctx context.Context, storeID string, q ReportQuery) ([]report.Balance, error) {
	if q.GroupBy == "" {
		q.GroupBy = report.GroupByKind
	}
	if !q.GroupBy.IsValid() {
		return nil, invalid("group_by", "unknown grouping %q", q.GroupBy)
	}
	txns, err := l.reportInput(ctx, storeID, &q, true)
	if err != nil {
		return nil, err
	}
	return report.BuildBalances(txns, q.GroupBy), nil
}

// Aging buckets the open balance of a store by days past due.
func (l *Ledger) Aging(ctx context.Context, storeID string, q ReportQuery) ([]report.Aging, error) {
	txns, err := l.reportInput(ctx, storeID, &q, true)
	if err != nil {
		return nil, err
	}
	return report.BuildAging(txns, q.AsOf), nil
}

// Totals sums amount, paid, outstanding and overdue per kind.
func (l *Ledger) Totals(ctx context.Context, storeID string, q ReportQuery) ([]report.Totals, error) {
	txns, err := l.reportInput(ctx, storeID, &q, false)
	if err != nil {
		return nil, err
	}
	return report.BuildTotals(txns, q.AsOf), nil
}
