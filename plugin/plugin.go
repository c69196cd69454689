// Package plugin provides the extension points of cashledger.
// Plugins hook into ledger lifecycle events; a failing or slow plugin is
// logged and never fails the ledger operation that emitted the event.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/cashledger/party"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/transaction"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, ledger any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnTransactionCreated is called after a transaction is persisted,
// including transactions materialized by a recurrence.
type OnTransactionCreated interface {
	Plugin
	OnTransactionCreated(ctx context.Context, t *transaction.Transaction) error
}

// OnTransactionCanceled is called after a transaction is canceled.
type OnTransactionCanceled interface {
	Plugin
	OnTransactionCanceled(ctx context.Context, t *transaction.Transaction) error
}

// OnTransactionSettled is called when a payment brings the outstanding
// balance to exactly zero.
type OnTransactionSettled interface {
	Plugin
	OnTransactionSettled(ctx context.Context, t *transaction.Transaction) error
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentApplied is called after a payment is recorded.
type OnPaymentApplied interface {
	Plugin
	OnPaymentApplied(ctx context.Context, t *transaction.Transaction, p *payment.Payment) error
}

// OnPaymentReversed is called after a compensating reversal is recorded.
type OnPaymentReversed interface {
	Plugin
	OnPaymentReversed(ctx context.Context, t *transaction.Transaction, reversal *payment.Payment) error
}

// ──────────────────────────────────────────────────
// Recurrence hooks
// ──────────────────────────────────────────────────

// OnRecurrenceAdvanced is called after an advance materialized at least
// one transaction.
type OnRecurrenceAdvanced interface {
	Plugin
	OnRecurrenceAdvanced(ctx context.Context, r *recurrence.Recurrence, created []*transaction.Transaction) error
}

// OnRecurrenceFinished is called when a recurrence reaches finished.
type OnRecurrenceFinished interface {
	Plugin
	OnRecurrenceFinished(ctx context.Context, r *recurrence.Recurrence) error
}

// OnSchedulerRun is called after every AdvanceDue pass.
type OnSchedulerRun interface {
	Plugin
	OnSchedulerRun(ctx context.Context, advanced, materialized, failed int, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Party hooks
// ──────────────────────────────────────────────────

// OnPartyCreated is called after a party is persisted.
type OnPartyCreated interface {
	Plugin
	OnPartyCreated(ctx context.Context, p *party.Party) error
}
