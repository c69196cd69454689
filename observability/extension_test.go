package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gometrics "github.com/xraph/go-utils/metrics"

	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

func TestMetricsExtensionWithPrometheus(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := NewMetricsExtension(NewPrometheusFactory(reg))

	txn := &transaction.Transaction{Amount: types.BRL(10000)}
	pay := &payment.Payment{Amount: types.BRL(2500)}

	_ = m.OnTransactionCreated(ctx, txn)
	_ = m.OnTransactionCreated(ctx, txn)
	_ = m.OnPaymentApplied(ctx, txn, pay)
	_ = m.OnRecurrenceAdvanced(ctx, nil, []*transaction.Transaction{txn, txn, txn})
	_ = m.OnSchedulerRun(ctx, 1, 3, 2, 40*time.Millisecond)

	tests := []struct {
		name string
		c    Counter
		want float64
	}{
		{"transactions created", m.TransactionCreated, 2},
		{"payments applied", m.PaymentApplied, 1},
		{"recurrences advanced", m.RecurrenceAdvanced, 1},
		{"occurrences materialized", m.RecurrenceMaterialized, 3},
		{"scheduler runs", m.SchedulerRuns, 1},
		{"scheduler failures", m.SchedulerFailures, 2},
		{"reversals", m.PaymentReversed, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testutil.ToFloat64(tt.c.(prometheus.Counter))
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(reg, "cashledger_payment_amount"); n != 1 {
		t.Errorf("payment amount histogram: got %d series, want 1", n)
	}
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewPrometheusFactory(reg).Counter("cashledger.party.created")
	second := NewPrometheusFactory(reg).Counter("cashledger.party.created")
	first.Inc()
	second.Inc()

	if got := testutil.ToFloat64(first.(prometheus.Counter)); got != 2 {
		t.Errorf("got %v, want 2: factories sharing a registry must share counters", got)
	}
}

func TestMetricName(t *testing.T) {
	if got := metricName("cashledger.scheduler.latency_ms"); got != "cashledger_scheduler_latency_ms" {
		t.Errorf("metricName = %q", got)
	}
}

func TestMetricsExtensionWithGoUtils(t *testing.T) {
	ctx := context.Background()
	m := NewMetricsExtension(NewGoUtilsFactory(gometrics.NewMockMetrics()))

	txn := &transaction.Transaction{Amount: types.BRL(10000)}
	_ = m.OnTransactionCreated(ctx, txn)
	_ = m.OnTransactionCanceled(ctx, txn)
	_ = m.OnTransactionCanceled(ctx, txn)

	created, ok := m.TransactionCreated.(*gometrics.MockCounter)
	if !ok {
		t.Fatalf("unexpected counter type %T", m.TransactionCreated)
	}
	if got := created.Value(); got != 1 {
		t.Errorf("transactions created: got %v, want 1", got)
	}
	if got := m.TransactionCanceled.(*gometrics.MockCounter).Value(); got != 2 {
		t.Errorf("transactions canceled: got %v, want 2", got)
	}
}
