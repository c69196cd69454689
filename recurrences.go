package cashledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/store"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

// schedulerActor is recorded as the creator of materialized transactions.
const schedulerActor = "scheduler"

// CreateRecurrenceInput describes a recurring template. AnchorDay
// defaults to the start date's day of month.
type CreateRecurrenceInput struct {
	StoreID        string
	Kind           transaction.Kind
	Description    string
	Amount         types.Money
	Frequency      recurrence.Frequency
	StartDate      types.Date
	EndDate        *types.Date
	AnchorDay      int
	CounterpartyID id.PartyID
	Category       string
	CostCenter     string
	Tags           []string
	Metadata       map[string]string
	Actor          string
}

// CreateRecurrence stores an active template whose first occurrence is
// due on the start date.
func (l *Ledger) CreateRecurrence(ctx context.Context, in CreateRecurrenceInput) (*recurrence.Recurrence, error) {
	in.StoreID = strings.TrimSpace(in.StoreID)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.CostCenter = strings.TrimSpace(in.CostCenter)
	in.Amount.Currency = types.NormalizeCurrency(in.Amount.Currency)
	in.Tags = normalizeTags(in.Tags)

	if err := requireStore(in.StoreID); err != nil {
		return nil, err
	}
	switch in.Kind {
	case transaction.KindPayable, transaction.KindReceivable, transaction.KindTransfer:
	default:
		return nil, invalid("kind", "recurrences cannot have kind %q", in.Kind)
	}
	if err := l.checkAmount(in.Amount); err != nil {
		return nil, err
	}
	if !in.Frequency.IsValid() {
		return nil, invalid("frequency", "unknown frequency %q", in.Frequency)
	}
	if in.StartDate.IsZero() {
		return nil, invalid("start_date", "is required")
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return nil, invalid("end_date", "is before start_date")
	}
	if in.AnchorDay < 0 || in.AnchorDay > 31 {
		return nil, invalid("anchor_day", "must be between 1 and 31")
	}
	if in.AnchorDay == 0 {
		in.AnchorDay = in.StartDate.Day()
	}
	if err := l.checkCounterparty(ctx, in.StoreID, in.CounterpartyID); err != nil {
		return nil, err
	}

	r := &recurrence.Recurrence{
		Entity:         types.NewEntity(in.Actor),
		ID:             id.NewRecurrenceID(),
		StoreID:        in.StoreID,
		Kind:           in.Kind,
		Description:    in.Description,
		Amount:         in.Amount,
		Frequency:      in.Frequency,
		Status:         recurrence.StatusActive,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		NextDueDate:    in.StartDate,
		AnchorDay:      in.AnchorDay,
		CounterpartyID: in.CounterpartyID,
		Category:       in.Category,
		CostCenter:     in.CostCenter,
		Tags:           in.Tags,
		Metadata:       in.Metadata,
	}

	if err := l.store.CreateRecurrence(ctx, r); err != nil {
		return nil, fmt.Errorf("create recurrence: %w", err)
	}

	l.logger.Info("recurrence created",
		"store_id", r.StoreID,
		"recurrence_id", r.ID.String(),
		"frequency", r.Frequency,
		"start_date", r.StartDate.String(),
	)

	return r, nil
}

// GetRecurrence returns a recurrence of storeID.
func (l *Ledger) GetRecurrence(ctx context.Context, storeID string, recID id.RecurrenceID) (*recurrence.Recurrence, error) {
	r, err := l.store.GetRecurrence(ctx, recID)
	if err != nil {
		return nil, err
	}
	if err := checkScope(storeID, r.StoreID); err != nil {
		return nil, err
	}
	return r, nil
}

// ListRecurrences lists the recurrences of one store.
func (l *Ledger) ListRecurrences(ctx context.Context, storeID string, opts recurrence.ListOpts) ([]*recurrence.Recurrence, error) {
	if err := requireStore(storeID); err != nil {
		return nil, err
	}
	return l.store.ListRecurrences(ctx, storeID, opts)
}

// PauseRecurrence stops the scheduler from advancing an active recurrence.
func (l *Ledger) PauseRecurrence(ctx context.Context, storeID string, recID id.RecurrenceID) (*recurrence.Recurrence, error) {
	return l.transitionRecurrence(ctx, storeID, recID, func(r *recurrence.Recurrence) error {
		if r.Status != recurrence.StatusActive {
			return ErrRecurrenceNotActive
		}
		r.Status = recurrence.StatusPaused
		return nil
	})
}

// ResumeRecurrence reactivates a paused recurrence. Occurrences skipped
// while paused are caught up on the next advance.
func (l *Ledger) ResumeRecurrence(ctx context.Context, storeID string, recID id.RecurrenceID) (*recurrence.Recurrence, error) {
	return l.transitionRecurrence(ctx, storeID, recID, func(r *recurrence.Recurrence) error {
		switch r.Status {
		case recurrence.StatusPaused:
		case recurrence.StatusFinished:
			return ErrRecurrenceNotActive
		default:
			return invalid("status", "only paused recurrences can resume, got %q", r.Status)
		}
		r.Status = recurrence.StatusActive
		return nil
	})
}

// FinishRecurrence ends a recurrence early. Transactions already
// materialized are kept.
func (l *Ledger) FinishRecurrence(ctx context.Context, storeID string, recID id.RecurrenceID) (*recurrence.Recurrence, error) {
	r, err := l.transitionRecurrence(ctx, storeID, recID, func(r *recurrence.Recurrence) error {
		if r.Status == recurrence.StatusFinished {
			return ErrRecurrenceNotActive
		}
		r.Status = recurrence.StatusFinished
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.plugins.EmitRecurrenceFinished(ctx, r)
	return r, nil
}

func (l *Ledger) transitionRecurrence(ctx context.Context, storeID string, recID id.RecurrenceID, fn func(*recurrence.Recurrence) error) (*recurrence.Recurrence, error) {
	var out *recurrence.Recurrence
	err := l.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := tx.LockRecurrence(ctx, recID)
		if err != nil {
			return err
		}
		if err := checkScope(storeID, r.StoreID); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
		r.Touch()
		if err := tx.UpdateRecurrence(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("recurrence status changed",
		"store_id", out.StoreID,
		"recurrence_id", out.ID.String(),
		"status", out.Status,
	)
	return out, nil
}

// AdvanceResult reports what one advance materialized.
type AdvanceResult struct {
	Recurrence *recurrence.Recurrence     `json:"recurrence"`
	Created    []*transaction.Transaction `json:"created"`
	Finished   bool                       `json:"finished"`
}

// AdvanceRecurrence materializes every occurrence due through the
// horizon at asOf, catching up missed periods one by one. Weekly
// recurrences stop at asOf; monthly and yearly ones use the ledger
// horizon (end of the as-of month by default). The created transactions
// and the moved cursor commit together. Nothing is created when the
// cursor is past the horizon end, so repeating an advance, or advancing
// to an earlier asOf, is a no-op.
func (l *Ledger) AdvanceRecurrence(ctx context.Context, storeID string, recID id.RecurrenceID, asOf types.Date) (*AdvanceResult, error) {
	if asOf.IsZero() {
		asOf = l.clock.Today()
	}
	today := l.clock.Today()

	var res AdvanceResult
	err := l.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := tx.LockRecurrence(ctx, recID)
		if err != nil {
			return err
		}
		if err := checkScope(storeID, r.StoreID); err != nil {
			return err
		}
		if !r.IsActive() {
			return ErrRecurrenceNotActive
		}

		through := l.horizon.For(r.Frequency).Through(asOf)
		var created []*transaction.Transaction
		for r.IsDue(through) {
			if err := ctx.Err(); err != nil {
				return err
			}
			t := r.Occurrence(r.NextDueDate)
			t.Entity = types.NewEntity(schedulerActor)
			t.ID = id.NewTransactionID()
			t.Refresh(today)
			if err := tx.CreateTransaction(ctx, t); err != nil {
				return err
			}
			created = append(created, t)

			r.Occurrences++
			r.NextDueDate = recurrence.Next(r.NextDueDate, r.Frequency, r.Anchor())
		}

		finished := r.Ended(r.NextDueDate)
		if len(created) == 0 && !finished {
			res = AdvanceResult{Recurrence: r}
			return nil
		}
		if finished {
			r.Status = recurrence.StatusFinished
		}
		r.LastRunOn = asOf.Ptr()
		r.Touch()
		if err := tx.UpdateRecurrence(ctx, r); err != nil {
			return err
		}

		res = AdvanceResult{Recurrence: r, Created: created, Finished: finished}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, t := range res.Created {
		l.plugins.EmitTransactionCreated(ctx, t)
	}
	if len(res.Created) > 0 {
		l.logger.Debug("recurrence advanced",
			"store_id", res.Recurrence.StoreID,
			"recurrence_id", res.Recurrence.ID.String(),
			"created", len(res.Created),
			"next_due_date", res.Recurrence.NextDueDate.String(),
		)
		l.plugins.EmitRecurrenceAdvanced(ctx, res.Recurrence, res.Created)
	}
	if res.Finished {
		l.plugins.EmitRecurrenceFinished(ctx, res.Recurrence)
	}

	return &res, nil
}

// AdvanceSummary aggregates one AdvanceDue pass.
type AdvanceSummary struct {
	AsOf         types.Date    `json:"as_of"`
	Considered   int           `json:"considered"`
	Advanced     int           `json:"advanced"`
	Materialized int           `json:"materialized"`
	Finished     int           `json:"finished"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	Elapsed      time.Duration `json:"elapsed"`
}

// AdvanceDue advances every active recurrence, across all stores, whose
// cursor falls within the horizon at asOf. Recurrences run concurrently;
// a failure on one does not stop the others and is reported in the
// joined error.
func (l *Ledger) AdvanceDue(ctx context.Context, asOf types.Date) (AdvanceSummary, error) {
	start := time.Now()
	if asOf.IsZero() {
		asOf = l.clock.Today()
	}
	summary := AdvanceSummary{AsOf: asOf}

	// The widest horizon selects candidates; each advance narrows it to
	// the recurrence's cadence.
	due, err := l.store.ListDueRecurrences(ctx, l.horizon.Through(asOf), l.schedulerBatchSize)
	if err != nil {
		return summary, fmt.Errorf("list due recurrences: %w", err)
	}
	summary.Considered = len(due)

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.schedulerConcurrency)
	for _, r := range due {
		g.Go(func() error {
			res, err := l.AdvanceRecurrence(gctx, r.StoreID, r.ID, asOf)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrRecurrenceNotActive):
				summary.Skipped++
			case err != nil:
				summary.Failed++
				errs = append(errs, fmt.Errorf("recurrence %s: %w", r.ID, err))
				l.logger.Warn("advance recurrence failed",
					"store_id", r.StoreID,
					"recurrence_id", r.ID.String(),
					"error", err,
				)
			default:
				if len(res.Created) > 0 {
					summary.Advanced++
					summary.Materialized += len(res.Created)
				}
				if res.Finished {
					summary.Finished++
				}
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers report through errs

	summary.Elapsed = time.Since(start)
	l.plugins.EmitSchedulerRun(ctx, summary.Advanced, summary.Materialized, summary.Failed, summary.Elapsed)

	return summary, errors.Join(errs...)
}
