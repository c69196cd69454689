// Package observability provides a metrics extension for cashledger that
// records lifecycle event counts through a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/cashledger/party"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/plugin"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/transaction"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnTransactionCreated  = (*MetricsExtension)(nil)
	_ plugin.OnTransactionCanceled = (*MetricsExtension)(nil)
	_ plugin.OnTransactionSettled  = (*MetricsExtension)(nil)
	_ plugin.OnPaymentApplied      = (*MetricsExtension)(nil)
	_ plugin.OnPaymentReversed     = (*MetricsExtension)(nil)
	_ plugin.OnRecurrenceAdvanced  = (*MetricsExtension)(nil)
	_ plugin.OnRecurrenceFinished  = (*MetricsExtension)(nil)
	_ plugin.OnSchedulerRun        = (*MetricsExtension)(nil)
	_ plugin.OnPartyCreated        = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a ledger plugin to track cash flow activity.
type MetricsExtension struct {
	factory MetricFactory

	// Transaction metrics
	TransactionCreated  Counter
	TransactionCanceled Counter
	TransactionSettled  Counter
	TransactionAmount   Histogram

	// Payment metrics
	PaymentApplied  Counter
	PaymentReversed Counter
	PaymentAmount   Histogram

	// Recurrence metrics
	RecurrenceAdvanced     Counter
	RecurrenceMaterialized Counter
	RecurrenceFinished     Counter

	// Scheduler metrics
	SchedulerRuns     Counter
	SchedulerFailures Counter
	SchedulerLatency  Histogram

	// Party metrics
	PartyCreated Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// NewPrometheusFactory supplies one backed by client_golang.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		TransactionCreated:  factory.Counter("cashledger.transaction.created"),
		TransactionCanceled: factory.Counter("cashledger.transaction.canceled"),
		TransactionSettled:  factory.Counter("cashledger.transaction.settled"),
		TransactionAmount:   factory.Histogram("cashledger.transaction.amount"),

		PaymentApplied:  factory.Counter("cashledger.payment.applied"),
		PaymentReversed: factory.Counter("cashledger.payment.reversed"),
		PaymentAmount:   factory.Histogram("cashledger.payment.amount"),

		RecurrenceAdvanced:     factory.Counter("cashledger.recurrence.advanced"),
		RecurrenceMaterialized: factory.Counter("cashledger.recurrence.materialized"),
		RecurrenceFinished:     factory.Counter("cashledger.recurrence.finished"),

		SchedulerRuns:     factory.Counter("cashledger.scheduler.runs"),
		SchedulerFailures: factory.Counter("cashledger.scheduler.failures"),
		SchedulerLatency:  factory.Histogram("cashledger.scheduler.latency_ms"),

		PartyCreated: factory.Counter("cashledger.party.created"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Transaction lifecycle hooks
// ──────────────────────────────────────────────────

// OnTransactionCreated implements plugin.OnTransactionCreated.
func (m *MetricsExtension) OnTransactionCreated(_ context.Context, t *transaction.Transaction) error {
	m.TransactionCreated.Inc()
	m.TransactionAmount.Observe(t.Amount.Decimal().InexactFloat64())
	return nil
}

// OnTransactionCanceled implements plugin.OnTransactionCanceled.
func (m *MetricsExtension) OnTransactionCanceled(_ context.Context, _ *transaction.Transaction) error {
	m.TransactionCanceled.Inc()
	return nil
}

// OnTransactionSettled implements plugin.OnTransactionSettled.
func (m *MetricsExtension) OnTransactionSettled(_ context.Context, _ *transaction.Transaction) error {
	m.TransactionSettled.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Payment lifecycle hooks
// ──────────────────────────────────────────────────

// OnPaymentApplied implements plugin.OnPaymentApplied.
func (m *MetricsExtension) OnPaymentApplied(_ context.Context, _ *transaction.Transaction, p *payment.Payment) error {
	m.PaymentApplied.Inc()
	m.PaymentAmount.Observe(p.Amount.Decimal().InexactFloat64())
	return nil
}

// OnPaymentReversed implements plugin.OnPaymentReversed.
func (m *MetricsExtension) OnPaymentReversed(_ context.Context, _ *transaction.Transaction, _ *payment.Payment) error {
	m.PaymentReversed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Recurrence lifecycle hooks
// ──────────────────────────────────────────────────

// OnRecurrenceAdvanced implements plugin.OnRecurrenceAdvanced.
func (m *MetricsExtension) OnRecurrenceAdvanced(_ context.Context, _ *recurrence.Recurrence, created []*transaction.Transaction) error {
	m.RecurrenceAdvanced.Inc()
	m.RecurrenceMaterialized.Add(float64(len(created)))
	return nil
}

// OnRecurrenceFinished implements plugin.OnRecurrenceFinished.
func (m *MetricsExtension) OnRecurrenceFinished(_ context.Context, _ *recurrence.Recurrence) error {
	m.RecurrenceFinished.Inc()
	return nil
}

// OnSchedulerRun implements plugin.OnSchedulerRun.
func (m *MetricsExtension) OnSchedulerRun(_ context.Context, _, _, failed int, elapsed time.Duration) error {
	m.SchedulerRuns.Inc()
	m.SchedulerFailures.Add(float64(failed))
	m.SchedulerLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// ──────────────────────────────────────────────────
// Party lifecycle hooks
// ──────────────────────────────────────────────────

// OnPartyCreated implements plugin.OnPartyCreated.
func (m *MetricsExtension) OnPartyCreated(_ context.Context, _ *party.Party) error {
	m.PartyCreated.Inc()
	return nil
}
