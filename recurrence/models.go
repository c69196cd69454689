package recurrence

import (
	"slices"

	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

// Frequency is the cadence unit of a recurrence.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// IsValid reports whether f is a known cadence.
func (f Frequency) IsValid() bool {
	return f == FrequencyWeekly || f == FrequencyMonthly || f == FrequencyYearly
}

type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

// Recurrence is a template that the scheduler expands into transactions.
// NextDueDate is the cursor: the earliest occurrence not yet materialized.
type Recurrence struct {
	types.Entity
	ID             id.RecurrenceID   `json:"id"`
	StoreID        string            `json:"store_id"`
	Kind           transaction.Kind  `json:"kind"`
	Description    string            `json:"description"`
	Amount         types.Money       `json:"amount"`
	Frequency      Frequency         `json:"frequency"`
	Status         Status            `json:"status"`
	StartDate      types.Date        `json:"start_date"`
	EndDate        *types.Date       `json:"end_date,omitempty"`
	NextDueDate    types.Date        `json:"next_due_date"`
	AnchorDay      int               `json:"anchor_day"`
	CounterpartyID id.PartyID        `json:"counterparty_id,omitzero"`
	Category       string            `json:"category,omitempty"`
	CostCenter     string            `json:"cost_center,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Occurrences    int               `json:"occurrences"`
	LastRunOn      *types.Date       `json:"last_run_on,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Anchor returns the day-of-month used by monthly and yearly cadences.
func (r *Recurrence) Anchor() int {
	if r.AnchorDay > 0 {
		return r.AnchorDay
	}
	return r.StartDate.Day()
}

// IsActive reports whether the scheduler may advance r.
func (r *Recurrence) IsActive() bool { return r.Status == StatusActive }

// Ended reports whether d falls after the end date.
func (r *Recurrence) Ended(d types.Date) bool {
	return r.EndDate != nil && d.After(*r.EndDate)
}

// IsDue reports whether the cursor is on or before through and still
// inside the schedule.
func (r *Recurrence) IsDue(through types.Date) bool {
	return r.IsActive() && !r.NextDueDate.After(through) && !r.Ended(r.NextDueDate)
}

// Occurrence builds the transaction for one due date from the template.
// Identity and audit fields are left for the caller to fill.
func (r *Recurrence) Occurrence(due types.Date) *transaction.Transaction {
	return &transaction.Transaction{
		StoreID:        r.StoreID,
		Kind:           r.Kind,
		Description:    r.Description,
		Amount:         r.Amount,
		AmountPaid:     types.Zero(r.Amount.Currency),
		DueDate:        due,
		CounterpartyID: r.CounterpartyID,
		Category:       r.Category,
		CostCenter:     r.CostCenter,
		Tags:           slices.Clone(r.Tags),
		Status:         transaction.StatusPending,
		RecurrenceID:   r.ID,
	}
}

// Next returns the occurrence following d. Weekly adds seven days.
// Monthly lands on anchorDay of the next month, clamped to the month's
// last day. Yearly does the same twelve months ahead, so a Feb-29
// anchor falls on Feb-28 in common years.
func Next(d types.Date, f Frequency, anchorDay int) types.Date {
	switch f {
	case FrequencyWeekly:
		return d.AddDays(7)
	case FrequencyYearly:
		return d.AddMonthsClamped(12, anchorDay)
	default:
		return d.AddMonthsClamped(1, anchorDay)
	}
}

// Horizon decides how far past the as-of date an advance materializes.
type Horizon string

const (
	// HorizonDay materializes occurrences due on or before the as-of date.
	HorizonDay Horizon = "day"
	// HorizonMonth materializes occurrences due through the last day of
	// the as-of month.
	HorizonMonth Horizon = "month"
)

// IsValid reports whether h is a known horizon.
func (h Horizon) IsValid() bool { return h == HorizonDay || h == HorizonMonth }

// For returns the horizon a cadence advances with. Weekly schedules run
// several times a month, so they always use the day horizon; monthly and
// yearly schedules use h.
func (h Horizon) For(f Frequency) Horizon {
	if f == FrequencyWeekly {
		return HorizonDay
	}
	return h
}

// Through returns the last due date an advance at asOf may materialize.
func (h Horizon) Through(asOf types.Date) types.Date {
	if h == HorizonMonth {
		return types.NewDate(asOf.Year(), asOf.Month(), types.DaysInMonth(asOf.Year(), asOf.Month()))
	}
	return asOf
}
