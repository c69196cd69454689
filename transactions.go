package cashledger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/store"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

// CreateTransactionInput describes a manual transaction.
type CreateTransactionInput struct {
	StoreID        string
	Kind           transaction.Kind
	Description    string
	Amount         types.Money
	DueDate        types.Date
	CounterpartyID id.PartyID
	Category       string
	CostCenter     string
	Tags           []string
	Workflow       transaction.WorkflowFlag
	Metadata       map[string]string
	Actor          string
}

func (in *CreateTransactionInput) normalize() {
	in.StoreID = strings.TrimSpace(in.StoreID)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.CostCenter = strings.TrimSpace(in.CostCenter)
	in.Amount.Currency = types.NormalizeCurrency(in.Amount.Currency)
	in.Tags = normalizeTags(in.Tags)
}

// CreateTransaction records a new manual transaction with nothing paid.
func (l *Ledger) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*transaction.Transaction, error) {
	in.normalize()

	if err := requireStore(in.StoreID); err != nil {
		return nil, err
	}
	if !in.Kind.IsValid() {
		return nil, invalid("kind", "unknown kind %q", in.Kind)
	}
	if err := l.checkAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.DueDate.IsZero() {
		return nil, invalid("due_date", "is required")
	}
	if !in.Workflow.IsValid() {
		return nil, invalid("workflow", "unknown flag %q", in.Workflow)
	}
	if err := l.checkCounterparty(ctx, in.StoreID, in.CounterpartyID); err != nil {
		return nil, err
	}

	t := &transaction.Transaction{
		Entity:         types.NewEntity(in.Actor),
		ID:             id.NewTransactionID(),
		StoreID:        in.StoreID,
		Kind:           in.Kind,
		Description:    in.Description,
		Amount:         in.Amount,
		AmountPaid:     types.Zero(in.Amount.Currency),
		DueDate:        in.DueDate,
		CounterpartyID: in.CounterpartyID,
		Category:       in.Category,
		CostCenter:     in.CostCenter,
		Tags:           in.Tags,
		Workflow:       in.Workflow,
		Metadata:       in.Metadata,
	}
	t.Refresh(l.clock.Today())

	if err := l.store.CreateTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	l.logger.Debug("transaction created",
		"store_id", t.StoreID,
		"transaction_id", t.ID.String(),
		"kind", t.Kind,
		"amount", t.Amount.String(),
	)
	l.plugins.EmitTransactionCreated(ctx, t)

	return t, nil
}

// GetTransaction returns a transaction of storeID with its status derived
// as of today.
func (l *Ledger) GetTransaction(ctx context.Context, storeID string, txnID id.TransactionID) (*transaction.Transaction, error) {
	t, err := l.store.GetTransaction(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if err := checkScope(storeID, t.StoreID); err != nil {
		return nil, err
	}
	t.Refresh(l.clock.Today())
	return t, nil
}

// TransactionQuery filters ListTransactions. Status matches the status
// derived as of today.
type TransactionQuery struct {
	transaction.ListOpts
	Status transaction.Status
}

// ListTransactions lists the transactions of one store.
func (l *Ledger) ListTransactions(ctx context.Context, storeID string, q TransactionQuery) ([]*transaction.Transaction, error) {
	if err := requireStore(storeID); err != nil {
		return nil, err
	}
	today := l.clock.Today()

	if q.Status == "" {
		list, err := l.store.ListTransactions(ctx, storeID, q.ListOpts)
		if err != nil {
			return nil, err
		}
		for _, t := range list {
			t.Refresh(today)
		}
		return list, nil
	}

	// Status depends on today, so it is filtered here and paged after.
	opts := q.ListOpts
	opts.Limit, opts.Offset = 0, 0
	if q.Status == transaction.StatusCanceled {
		opts.IncludeCanceled = true
	}
	all, err := l.store.ListTransactions(ctx, storeID, opts)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, t := range all {
		if t.Refresh(today) == q.Status {
			out = append(out, t)
		}
	}
	return page(out, q.Offset, q.Limit), nil
}

// CancelTransactionInput names a transaction to cancel.
type CancelTransactionInput struct {
	StoreID       string
	TransactionID id.TransactionID
	Reason        string
	Actor         string
}

// CancelTransaction cancels a transaction. A manual transaction can be
// canceled while nothing is paid; a recurrence-generated one while it has
// no payment rows at all.
func (l *Ledger) CancelTransaction(ctx context.Context, in CancelTransactionInput) (*transaction.Transaction, error) {
	if err := requireStore(in.StoreID); err != nil {
		return nil, err
	}

	var canceled *transaction.Transaction
	err := l.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := tx.LockTransaction(ctx, in.TransactionID)
		if err != nil {
			return err
		}
		if err := checkScope(in.StoreID, t.StoreID); err != nil {
			return err
		}
		if t.IsCanceled() || t.IsSettled() {
			return ErrAlreadySettled
		}

		if t.IsManual() {
			if !t.AmountPaid.IsZero() {
				return ErrAlreadySettled
			}
		} else {
			payments, err := tx.ListPayments(ctx, t.ID)
			if err != nil {
				return err
			}
			if len(payments) > 0 {
				return ErrHasPayments
			}
		}

		now := time.Now().UTC()
		t.CanceledAt = &now
		t.CancelReason = strings.TrimSpace(in.Reason)
		t.Refresh(l.clock.Today())
		t.Touch()
		if err := tx.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		canceled = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("transaction canceled",
		"store_id", canceled.StoreID,
		"transaction_id", canceled.ID.String(),
		"origin", canceled.Origin(),
		"actor", in.Actor,
	)
	l.plugins.EmitTransactionCanceled(ctx, canceled)

	return canceled, nil
}

// SetWorkflow records an externally decided workflow flag on an open
// transaction.
func (l *Ledger) SetWorkflow(ctx context.Context, storeID string, txnID id.TransactionID, flag transaction.WorkflowFlag) (*transaction.Transaction, error) {
	if !flag.IsValid() {
		return nil, invalid("workflow", "unknown flag %q", flag)
	}

	var updated *transaction.Transaction
	err := l.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := tx.LockTransaction(ctx, txnID)
		if err != nil {
			return err
		}
		if err := checkScope(storeID, t.StoreID); err != nil {
			return err
		}
		if t.IsCanceled() || t.IsSettled() {
			return ErrAlreadySettled
		}
		t.Workflow = flag
		t.Refresh(l.clock.Today())
		t.Touch()
		if err := tx.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ──────────────────────────────────────────────────
// Shared validation
// ──────────────────────────────────────────────────

func (l *Ledger) checkAmount(m types.Money) error {
	if !m.IsPositive() {
		return ErrInvalidAmount
	}
	if !l.supportsCurrency(m.Currency) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, m.Currency)
	}
	if m.Amount > types.MaxAmount(m.Currency) {
		return fmt.Errorf("%w: %s exceeds %s", ErrInvalidAmount, m, types.New(types.MaxAmount(m.Currency), m.Currency))
	}
	return nil
}

// checkCounterparty verifies an optional counterparty exists, belongs to
// storeID and is not archived.
func (l *Ledger) checkCounterparty(ctx context.Context, storeID string, partyID id.PartyID) error {
	if partyID.IsNil() {
		return nil
	}
	p, err := l.store.GetParty(ctx, partyID)
	if err != nil {
		return err
	}
	if err := checkScope(storeID, p.StoreID); err != nil {
		return err
	}
	if p.Archived {
		return ErrPartyArchived
	}
	return nil
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
