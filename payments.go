package cashledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/store"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

// ApplyPaymentInput describes money received or paid against one
// transaction. ExpectedKind, when set, must equal the transaction's kind.
type ApplyPaymentInput struct {
	StoreID       string
	TransactionID id.TransactionID
	Amount        types.Money
	Method        payment.Method
	PaidOn        types.Date
	Note          string
	ExpectedKind  transaction.Kind
	Actor         string
}

// PaymentResult is the outcome of a payment or reversal: the updated
// transaction and the recorded row.
type PaymentResult struct {
	Transaction *transaction.Transaction `json:"transaction"`
	Payment     *payment.Payment         `json:"payment"`
}

// ApplyPayment records a partial or full payment. The transaction row is
// locked for the duration, so concurrent payments against it serialize
// and their total can never exceed the amount.
func (l *Ledger) ApplyPayment(ctx context.Context, in ApplyPaymentInput) (*PaymentResult, error) {
	in.StoreID = strings.TrimSpace(in.StoreID)
	in.Note = strings.TrimSpace(in.Note)
	in.Amount.Currency = types.NormalizeCurrency(in.Amount.Currency)

	if err := requireStore(in.StoreID); err != nil {
		return nil, err
	}
	if !in.Method.IsValid() {
		return nil, invalid("method", "unknown method %q", in.Method)
	}
	if in.ExpectedKind != "" && !in.ExpectedKind.IsValid() {
		return nil, invalid("kind", "unknown kind %q", in.ExpectedKind)
	}

	today := l.clock.Today()
	if in.PaidOn.IsZero() {
		in.PaidOn = today
	}

	var res PaymentResult
	err := l.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := tx.LockTransaction(ctx, in.TransactionID)
		if err != nil {
			return err
		}
		if err := checkScope(in.StoreID, t.StoreID); err != nil {
			return err
		}
		if t.IsCanceled() {
			return ErrTransactionCanceled
		}
		if !in.Amount.IsPositive() {
			return ErrInvalidAmount
		}
		if in.Amount.Currency != t.Currency() {
			return fmt.Errorf("%w: %s payment on %s transaction", ErrInvalidCurrency, in.Amount.Currency, t.Currency())
		}
		if in.ExpectedKind != "" && in.ExpectedKind != t.Kind {
			return ErrKindMismatch
		}

		payments, err := tx.ListPayments(ctx, t.ID)
		if err != nil {
			return err
		}
		paid := payment.Total(t.Currency(), payments)
		if in.Amount.GreaterThan(t.Amount.Subtract(paid)) {
			return ErrOverpaymentRejected
		}

		p := &payment.Payment{
			ID:            id.NewPaymentID(),
			TransactionID: t.ID,
			StoreID:       t.StoreID,
			Kind:          payment.KindPayment,
			Amount:        in.Amount,
			PaidOn:        in.PaidOn,
			Method:        in.Method,
			Note:          in.Note,
			RecordedBy:    in.Actor,
			CreatedAt:     time.Now().UTC(),
		}
		if err := tx.CreatePayment(ctx, p); err != nil {
			return err
		}

		t.AmountPaid = paid.Add(p.Amount)
		if t.IsSettled() {
			t.PaidDate = in.PaidOn.Ptr()
		}
		t.Refresh(today)
		t.Touch()
		if err := tx.UpdateTransaction(ctx, t); err != nil {
			return err
		}

		res = PaymentResult{Transaction: t, Payment: p}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Debug("payment applied",
		"store_id", res.Transaction.StoreID,
		"transaction_id", res.Transaction.ID.String(),
		"payment_id", res.Payment.ID.String(),
		"amount", res.Payment.Amount.String(),
		"outstanding", res.Transaction.Outstanding().String(),
	)
	l.plugins.EmitPaymentApplied(ctx, res.Transaction, res.Payment)
	if res.Transaction.IsSettled() {
		l.plugins.EmitTransactionSettled(ctx, res.Transaction)
	}

	return &res, nil
}

// ReversePaymentInput names a payment to compensate.
type ReversePaymentInput struct {
	StoreID    string
	PaymentID  id.PaymentID
	ReversedOn types.Date
	Note       string
	Actor      string
}

// ReversePayment records a compensating reversal for a payment. Payment
// rows are never edited; each payment can be reversed once, and the
// resulting paid total must stay within zero and the amount.
func (l *Ledger) ReversePayment(ctx context.Context, in ReversePaymentInput) (*PaymentResult, error) {
	in.StoreID = strings.TrimSpace(in.StoreID)
	if err := requireStore(in.StoreID); err != nil {
		return nil, err
	}

	original, err := l.store.GetPayment(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}
	if err := checkScope(in.StoreID, original.StoreID); err != nil {
		return nil, err
	}

	today := l.clock.Today()
	if in.ReversedOn.IsZero() {
		in.ReversedOn = today
	}

	var res PaymentResult
	err = l.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := tx.LockTransaction(ctx, original.TransactionID)
		if err != nil {
			return err
		}
		if t.IsCanceled() {
			return ErrTransactionCanceled
		}
		if original.IsReversal() {
			return fmt.Errorf("%w: cannot reverse a reversal", ErrInvalidReversal)
		}

		payments, err := tx.ListPayments(ctx, t.ID)
		if err != nil {
			return err
		}
		if payment.ReversalOf(original.ID, payments) != nil {
			return fmt.Errorf("%w: payment already reversed", ErrInvalidReversal)
		}

		paid := payment.Total(t.Currency(), payments).Subtract(original.Amount)
		if paid.IsNegative() || paid.GreaterThan(t.Amount) {
			return fmt.Errorf("%w: paid total out of bounds", ErrInvalidReversal)
		}

		rev := &payment.Payment{
			ID:            id.NewPaymentID(),
			TransactionID: t.ID,
			StoreID:       t.StoreID,
			Kind:          payment.KindReversal,
			Amount:        original.Amount,
			PaidOn:        in.ReversedOn,
			Method:        original.Method,
			Note:          strings.TrimSpace(in.Note),
			Reverses:      original.ID,
			RecordedBy:    in.Actor,
			CreatedAt:     time.Now().UTC(),
		}
		if err := tx.CreatePayment(ctx, rev); err != nil {
			return err
		}

		t.AmountPaid = paid
		if !t.IsSettled() {
			t.PaidDate = nil
		}
		t.Refresh(today)
		t.Touch()
		if err := tx.UpdateTransaction(ctx, t); err != nil {
			return err
		}

		res = PaymentResult{Transaction: t, Payment: rev}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("payment reversed",
		"store_id", res.Transaction.StoreID,
		"transaction_id", res.Transaction.ID.String(),
		"payment_id", original.ID.String(),
		"reversal_id", res.Payment.ID.String(),
	)
	l.plugins.EmitPaymentReversed(ctx, res.Transaction, res.Payment)

	return &res, nil
}

// ListPayments returns the payment rows of a transaction in the order
// they were recorded, reversals included.
func (l *Ledger) ListPayments(ctx context.Context, storeID string, txnID id.TransactionID) ([]*payment.Payment, error) {
	t, err := l.store.GetTransaction(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if err := checkScope(storeID, t.StoreID); err != nil {
		return nil, err
	}
	return l.store.ListPayments(ctx, txnID)
}
