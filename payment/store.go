package payment

import (
	"context"

	"github.com/xraph/cashledger/id"
)

// Store persists payments. There is no update or delete: payments are
// immutable once written.
type Store interface {
	CreatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, payID id.PaymentID) (*Payment, error)
	// ListPayments returns payments of one transaction in creation order.
	ListPayments(ctx context.Context, txnID id.TransactionID) ([]*Payment, error)
}
