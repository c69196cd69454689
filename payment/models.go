package payment

import (
	"time"

	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/types"
)

// Method is how the money moved.
type Method string

const (
	MethodPix          Method = "pix"
	MethodBankTransfer Method = "bank_transfer"
	MethodCash         Method = "cash"
	MethodCard         Method = "card"
	MethodDeposit      Method = "deposit"
)

// Methods lists every accepted payment method.
var Methods = []Method{MethodPix, MethodBankTransfer, MethodCash, MethodCard, MethodDeposit}

// IsValid reports whether m is one of Methods.
func (m Method) IsValid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// Kind separates regular payments from compensating reversals.
type Kind string

const (
	KindPayment  Kind = "payment"
	KindReversal Kind = "reversal"
)

// Payment is an immutable record of money applied to exactly one
// transaction. Amount is always a positive magnitude; a reversal
// subtracts it.
type Payment struct {
	ID            id.PaymentID     `json:"id"`
	TransactionID id.TransactionID `json:"transaction_id"`
	StoreID       string           `json:"store_id"`
	Kind          Kind             `json:"kind"`
	Amount        types.Money      `json:"amount"`
	PaidOn        types.Date       `json:"paid_on"`
	Method        Method           `json:"method"`
	Note          string           `json:"note,omitempty"`
	Reverses      id.PaymentID     `json:"reverses,omitzero"`
	RecordedBy    string           `json:"recorded_by,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// IsReversal reports whether p compensates an earlier payment.
func (p *Payment) IsReversal() bool { return p.Kind == KindReversal }

// Signed returns the amount with the sign it contributes to the
// transaction's paid total.
func (p *Payment) Signed() types.Money {
	if p.IsReversal() {
		return p.Amount.Negate()
	}
	return p.Amount
}

// Total sums the signed amounts of payments.
func Total(currency string, payments []*Payment) types.Money {
	total := types.Zero(currency)
	for _, p := range payments {
		total = total.Add(p.Signed())
	}
	return total
}

// ReversalOf returns the reversal recorded against original, if any.
func ReversalOf(original id.PaymentID, payments []*Payment) *Payment {
	for _, p := range payments {
		if p.IsReversal() && p.Reverses == original {
			return p
		}
	}
	return nil
}
