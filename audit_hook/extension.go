// Package audithook bridges ledger lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter, or
// use LogRecorder to write events as structured log lines.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/cashledger/party"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/plugin"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/transaction"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnTransactionCreated  = (*Extension)(nil)
	_ plugin.OnTransactionCanceled = (*Extension)(nil)
	_ plugin.OnTransactionSettled  = (*Extension)(nil)
	_ plugin.OnPaymentApplied      = (*Extension)(nil)
	_ plugin.OnPaymentReversed     = (*Extension)(nil)
	_ plugin.OnRecurrenceAdvanced  = (*Extension)(nil)
	_ plugin.OnRecurrenceFinished  = (*Extension)(nil)
	_ plugin.OnSchedulerRun        = (*Extension)(nil)
	_ plugin.OnPartyCreated        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audited ledger change.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	StoreID    string         `json:"store_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// LogRecorder writes every event as one structured log line.
func LogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		logger.LogAttrs(ctx, slog.LevelInfo, "audit",
			slog.String("action", evt.Action),
			slog.String("resource", evt.Resource),
			slog.String("resource_id", evt.ResourceID),
			slog.String("store_id", evt.StoreID),
			slog.String("actor", evt.Actor),
			slog.String("outcome", evt.Outcome),
			slog.Any("metadata", evt.Metadata),
		)
		return nil
	})
}

// Extension bridges ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Transaction lifecycle hooks
// ──────────────────────────────────────────────────

// OnTransactionCreated implements plugin.OnTransactionCreated.
func (e *Extension) OnTransactionCreated(ctx context.Context, t *transaction.Transaction) error {
	return e.record(ctx, ActionTransactionCreated, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, t.ID.String(), t.StoreID, t.CreatedBy, CategoryLedger, nil,
		"kind", string(t.Kind),
		"amount", t.Amount.String(),
		"due_date", t.DueDate.String(),
		"origin", t.Origin(),
	)
}

// OnTransactionCanceled implements plugin.OnTransactionCanceled.
func (e *Extension) OnTransactionCanceled(ctx context.Context, t *transaction.Transaction) error {
	return e.record(ctx, ActionTransactionCanceled, SeverityWarning, OutcomeSuccess,
		ResourceTransaction, t.ID.String(), t.StoreID, "", CategoryLedger, nil,
		"cancel_reason", t.CancelReason,
		"origin", t.Origin(),
	)
}

// OnTransactionSettled implements plugin.OnTransactionSettled.
func (e *Extension) OnTransactionSettled(ctx context.Context, t *transaction.Transaction) error {
	return e.record(ctx, ActionTransactionSettled, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, t.ID.String(), t.StoreID, "", CategoryLedger, nil,
		"amount", t.Amount.String(),
		"paid_date", t.PaidDate,
	)
}

// ──────────────────────────────────────────────────
// Payment lifecycle hooks
// ──────────────────────────────────────────────────

// OnPaymentApplied implements plugin.OnPaymentApplied.
func (e *Extension) OnPaymentApplied(ctx context.Context, t *transaction.Transaction, p *payment.Payment) error {
	return e.record(ctx, ActionPaymentApplied, SeverityInfo, OutcomeSuccess,
		ResourcePayment, p.ID.String(), p.StoreID, p.RecordedBy, CategoryPayment, nil,
		"transaction_id", t.ID.String(),
		"amount", p.Amount.String(),
		"method", string(p.Method),
		"outstanding", t.Outstanding().String(),
	)
}

// OnPaymentReversed implements plugin.OnPaymentReversed.
func (e *Extension) OnPaymentReversed(ctx context.Context, t *transaction.Transaction, reversal *payment.Payment) error {
	return e.record(ctx, ActionPaymentReversed, SeverityWarning, OutcomeSuccess,
		ResourcePayment, reversal.Reverses.String(), reversal.StoreID, reversal.RecordedBy, CategoryPayment, nil,
		"transaction_id", t.ID.String(),
		"reversal_id", reversal.ID.String(),
		"amount", reversal.Amount.String(),
		"note", reversal.Note,
	)
}

// ──────────────────────────────────────────────────
// Recurrence lifecycle hooks
// ──────────────────────────────────────────────────

// OnRecurrenceAdvanced implements plugin.OnRecurrenceAdvanced.
func (e *Extension) OnRecurrenceAdvanced(ctx context.Context, r *recurrence.Recurrence, created []*transaction.Transaction) error {
	ids := make([]string, len(created))
	for i, t := range created {
		ids[i] = t.ID.String()
	}
	return e.record(ctx, ActionRecurrenceAdvanced, SeverityInfo, OutcomeSuccess,
		ResourceRecurrence, r.ID.String(), r.StoreID, "", CategorySchedule, nil,
		"created", ids,
		"next_due_date", r.NextDueDate.String(),
	)
}

// OnRecurrenceFinished implements plugin.OnRecurrenceFinished.
func (e *Extension) OnRecurrenceFinished(ctx context.Context, r *recurrence.Recurrence) error {
	return e.record(ctx, ActionRecurrenceFinished, SeverityInfo, OutcomeSuccess,
		ResourceRecurrence, r.ID.String(), r.StoreID, "", CategorySchedule, nil,
		"occurrences", r.Occurrences,
	)
}

// OnSchedulerRun implements plugin.OnSchedulerRun. Runs that did
// nothing are not audited.
func (e *Extension) OnSchedulerRun(ctx context.Context, advanced, materialized, failed int, elapsed time.Duration) error {
	if advanced == 0 && failed == 0 {
		return nil
	}
	outcome, severity := OutcomeSuccess, SeverityInfo
	var err error
	if failed > 0 {
		outcome, severity = OutcomePartial, SeverityError
		err = fmt.Errorf("%d recurrences failed to advance", failed)
	}
	return e.record(ctx, ActionSchedulerRun, severity, outcome,
		ResourceScheduler, "", "", "", CategorySchedule, err,
		"advanced", advanced,
		"materialized", materialized,
		"failed", failed,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Party lifecycle hooks
// ──────────────────────────────────────────────────

// OnPartyCreated implements plugin.OnPartyCreated.
func (e *Extension) OnPartyCreated(ctx context.Context, p *party.Party) error {
	return e.record(ctx, ActionPartyCreated, SeverityInfo, OutcomeSuccess,
		ResourceParty, p.ID.String(), p.StoreID, p.CreatedBy, CategoryDirectory, nil,
		"kind", string(p.Kind),
		"name", p.Name,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, storeID, actor, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		StoreID:    storeID,
		Actor:      actor,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
