package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/cashledger/party"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/transaction"
)

// DefaultHookTimeout bounds a single plugin call.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and dispatches events to the
// ones implementing each hook. Hook lists are cached at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                []OnInit
	onShutdown            []OnShutdown
	onTransactionCreated  []OnTransactionCreated
	onTransactionCanceled []OnTransactionCanceled
	onTransactionSettled  []OnTransactionSettled
	onPaymentApplied      []OnPaymentApplied
	onPaymentReversed     []OnPaymentReversed
	onRecurrenceAdvanced  []OnRecurrenceAdvanced
	onRecurrenceFinished  []OnRecurrenceFinished
	onSchedulerRun        []OnSchedulerRun
	onPartyCreated        []OnPartyCreated
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout overrides DefaultHookTimeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its hooks.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnTransactionCreated); ok {
		r.onTransactionCreated = append(r.onTransactionCreated, v)
		hooks = append(hooks, "OnTransactionCreated")
	}
	if v, ok := p.(OnTransactionCanceled); ok {
		r.onTransactionCanceled = append(r.onTransactionCanceled, v)
		hooks = append(hooks, "OnTransactionCanceled")
	}
	if v, ok := p.(OnTransactionSettled); ok {
		r.onTransactionSettled = append(r.onTransactionSettled, v)
		hooks = append(hooks, "OnTransactionSettled")
	}
	if v, ok := p.(OnPaymentApplied); ok {
		r.onPaymentApplied = append(r.onPaymentApplied, v)
		hooks = append(hooks, "OnPaymentApplied")
	}
	if v, ok := p.(OnPaymentReversed); ok {
		r.onPaymentReversed = append(r.onPaymentReversed, v)
		hooks = append(hooks, "OnPaymentReversed")
	}
	if v, ok := p.(OnRecurrenceAdvanced); ok {
		r.onRecurrenceAdvanced = append(r.onRecurrenceAdvanced, v)
		hooks = append(hooks, "OnRecurrenceAdvanced")
	}
	if v, ok := p.(OnRecurrenceFinished); ok {
		r.onRecurrenceFinished = append(r.onRecurrenceFinished, v)
		hooks = append(hooks, "OnRecurrenceFinished")
	}
	if v, ok := p.(OnSchedulerRun); ok {
		r.onSchedulerRun = append(r.onSchedulerRun, v)
		hooks = append(hooks, "OnSchedulerRun")
	}
	if v, ok := p.(OnPartyCreated); ok {
		r.onPartyCreated = append(r.onPartyCreated, v)
		hooks = append(hooks, "OnPartyCreated")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"hooks", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger any) {
	emit(ctx, r, "OnInit", snapshotOf(r, func() []OnInit { return r.onInit }), func(p OnInit) error {
		return p.OnInit(ctx, ledger)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", snapshotOf(r, func() []OnShutdown { return r.onShutdown }), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitTransactionCreated emits a transaction created event.
func (r *Registry) EmitTransactionCreated(ctx context.Context, t *transaction.Transaction) {
	emit(ctx, r, "OnTransactionCreated", snapshotOf(r, func() []OnTransactionCreated { return r.onTransactionCreated }), func(p OnTransactionCreated) error {
		return p.OnTransactionCreated(ctx, t)
	})
}

// EmitTransactionCanceled emits a transaction canceled event.
func (r *Registry) EmitTransactionCanceled(ctx context.Context, t *transaction.Transaction) {
	emit(ctx, r, "OnTransactionCanceled", snapshotOf(r, func() []OnTransactionCanceled { return r.onTransactionCanceled }), func(p OnTransactionCanceled) error {
		return p.OnTransactionCanceled(ctx, t)
	})
}

// EmitTransactionSettled emits a transaction settled event.
func (r *Registry) EmitTransactionSettled(ctx context.Context, t *transaction.Transaction) {
	emit(ctx, r, "OnTransactionSettled", snapshotOf(r, func() []OnTransactionSettled { return r.onTransactionSettled }), func(p OnTransactionSettled) error {
		return p.OnTransactionSettled(ctx, t)
	})
}

// EmitPaymentApplied emits a payment applied event.
func (r *Registry) EmitPaymentApplied(ctx context.Context, t *transaction.Transaction, pay *payment.Payment) {
	emit(ctx, r, "OnPaymentApplied", snapshotOf(r, func() []OnPaymentApplied { return r.onPaymentApplied }), func(p OnPaymentApplied) error {
		return p.OnPaymentApplied(ctx, t, pay)
	})
}

// EmitPaymentReversed emits a payment reversed event.
func (r *Registry) EmitPaymentReversed(ctx context.Context, t *transaction.Transaction, reversal *payment.Payment) {
	emit(ctx, r, "OnPaymentReversed", snapshotOf(r, func() []OnPaymentReversed { return r.onPaymentReversed }), func(p OnPaymentReversed) error {
		return p.OnPaymentReversed(ctx, t, reversal)
	})
}

// EmitRecurrenceAdvanced emits a recurrence advanced event.
func (r *Registry) EmitRecurrenceAdvanced(ctx context.Context, rec *recurrence.Recurrence, created []*transaction.Transaction) {
	emit(ctx, r, "OnRecurrenceAdvanced", snapshotOf(r, func() []OnRecurrenceAdvanced { return r.onRecurrenceAdvanced }), func(p OnRecurrenceAdvanced) error {
		return p.OnRecurrenceAdvanced(ctx, rec, created)
	})
}

// EmitRecurrenceFinished emits a recurrence finished event.
func (r *Registry) EmitRecurrenceFinished(ctx context.Context, rec *recurrence.Recurrence) {
	emit(ctx, r, "OnRecurrenceFinished", snapshotOf(r, func() []OnRecurrenceFinished { return r.onRecurrenceFinished }), func(p OnRecurrenceFinished) error {
		return p.OnRecurrenceFinished(ctx, rec)
	})
}

// EmitSchedulerRun emits a scheduler run event.
func (r *Registry) EmitSchedulerRun(ctx context.Context, advanced, materialized, failed int, elapsed time.Duration) {
	emit(ctx, r, "OnSchedulerRun", snapshotOf(r, func() []OnSchedulerRun { return r.onSchedulerRun }), func(p OnSchedulerRun) error {
		return p.OnSchedulerRun(ctx, advanced, materialized, failed, elapsed)
	})
}

// EmitPartyCreated emits a party created event.
func (r *Registry) EmitPartyCreated(ctx context.Context, pty *party.Party) {
	emit(ctx, r, "OnPartyCreated", snapshotOf(r, func() []OnPartyCreated { return r.onPartyCreated }), func(p OnPartyCreated) error {
		return p.OnPartyCreated(ctx, pty)
	})
}

// snapshotOf reads a hook list under the read lock.
func snapshotOf[T any](r *Registry, get func() []T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return get()
}

// emit calls fn for every plugin, logging failures at Warn.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, plugins []T, fn func(T) error) {
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return fn(p) }); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
