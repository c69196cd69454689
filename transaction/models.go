package transaction

import (
	"time"

	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/types"
)

// Kind is the direction of a transaction. The amount is always positive;
// the kind carries the sign.
type Kind string

const (
	KindPayable    Kind = "payable"
	KindReceivable Kind = "receivable"
	KindTransfer   Kind = "transfer"
	KindAdjustment Kind = "adjustment"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindPayable, KindReceivable, KindTransfer, KindAdjustment:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusScheduled Status = "scheduled"
	StatusOverdue   Status = "overdue"
	StatusPaid      Status = "paid"
	StatusCanceled  Status = "canceled"
)

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCanceled
}

// WorkflowFlag is set by an external approval step and only passed through.
type WorkflowFlag string

const (
	WorkflowNone      WorkflowFlag = ""
	WorkflowApproved  WorkflowFlag = "approved"
	WorkflowScheduled WorkflowFlag = "scheduled"
)

// IsValid reports whether f is a known flag. The empty flag is valid.
func (f WorkflowFlag) IsValid() bool {
	switch f {
	case WorkflowNone, WorkflowApproved, WorkflowScheduled:
		return true
	}
	return false
}

// OriginManual marks transactions created directly by a caller.
const OriginManual = "manual"

type Transaction struct {
	types.Entity
	ID             id.TransactionID  `json:"id"`
	StoreID        string            `json:"store_id"`
	Kind           Kind              `json:"kind"`
	Description    string            `json:"description"`
	Amount         types.Money       `json:"amount"`
	AmountPaid     types.Money       `json:"amount_paid"`
	DueDate        types.Date        `json:"due_date"`
	PaidDate       *types.Date       `json:"paid_date,omitempty"`
	CounterpartyID id.PartyID        `json:"counterparty_id,omitzero"`
	Category       string            `json:"category,omitempty"`
	CostCenter     string            `json:"cost_center,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Workflow       WorkflowFlag      `json:"workflow,omitempty"`
	Status         Status            `json:"status"`
	RecurrenceID   id.RecurrenceID   `json:"recurrence_id,omitzero"`
	CanceledAt     *time.Time        `json:"canceled_at,omitempty"`
	CancelReason   string            `json:"cancel_reason,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Currency is fixed at creation and shared by Amount and AmountPaid.
func (t *Transaction) Currency() string { return t.Amount.Currency }

// Outstanding returns amount minus amount paid.
func (t *Transaction) Outstanding() types.Money {
	return t.Amount.Subtract(t.AmountPaid)
}

// Origin returns "manual" or the id of the generating recurrence.
func (t *Transaction) Origin() string {
	if t.RecurrenceID.IsNil() {
		return OriginManual
	}
	return t.RecurrenceID.String()
}

// IsManual reports whether a caller created t directly.
func (t *Transaction) IsManual() bool { return t.RecurrenceID.IsNil() }

// IsCanceled reports whether t was explicitly canceled.
func (t *Transaction) IsCanceled() bool { return t.CanceledAt != nil }

// IsSettled reports whether every unit of the amount has been paid.
func (t *Transaction) IsSettled() bool { return t.AmountPaid.Amount == t.Amount.Amount }

// DeriveStatus computes the status of t as of the given date. Rules are
// evaluated in order: canceled, paid, overdue, workflow flag, pending.
// A transaction is not overdue on its due date.
func DeriveStatus(t *Transaction, asOf types.Date) Status {
	switch {
	case t.IsCanceled():
		return StatusCanceled
	case t.IsSettled():
		return StatusPaid
	case asOf.After(t.DueDate):
		return StatusOverdue
	case t.Workflow == WorkflowApproved:
		return StatusApproved
	case t.Workflow == WorkflowScheduled:
		return StatusScheduled
	default:
		return StatusPending
	}
}

// Refresh re-derives the cached status as of the given date.
func (t *Transaction) Refresh(asOf types.Date) Status {
	t.Status = DeriveStatus(t, asOf)
	return t.Status
}

// DaysOverdue returns how many days past due t is as of the given date,
// or zero when it is not past due.
func (t *Transaction) DaysOverdue(asOf types.Date) int {
	if !asOf.After(t.DueDate) {
		return 0
	}
	return asOf.DaysSince(t.DueDate)
}
