package recurrence

import (
	"context"

	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/types"
)

type Store interface {
	CreateRecurrence(ctx context.Context, r *Recurrence) error
	GetRecurrence(ctx context.Context, recID id.RecurrenceID) (*Recurrence, error)
	ListRecurrences(ctx context.Context, storeID string, opts ListOpts) ([]*Recurrence, error)
	UpdateRecurrence(ctx context.Context, r *Recurrence) error
	// ListDueRecurrences returns active recurrences of every store whose
	// cursor is on or before through.
	ListDueRecurrences(ctx context.Context, through types.Date, limit int) ([]*Recurrence, error)
}

type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
