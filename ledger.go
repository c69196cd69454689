package cashledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/xraph/cashledger/plugin"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/store"
	"github.com/xraph/cashledger/types"
)

// Ledger is the cash ledger engine: transactions, payments, recurrences
// and reports for many stores over one persistence layer.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   Clock

	currencies map[string]bool
	unknown    []string
	horizon    recurrence.Horizon
	noMigrate  bool

	// Background scheduler
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	schedulerInterval    time.Duration
	schedulerConcurrency int
	schedulerBatchSize   int
}

// New creates a new Ledger instance. Without WithClock the ledger uses
// the UTC calendar.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:                s,
		plugins:              plugin.NewRegistry(),
		logger:               slog.Default(),
		clock:                zoneClock{loc: time.UTC},
		horizon:              recurrence.HorizonMonth,
		stopChan:             make(chan struct{}),
		schedulerInterval:    time.Hour,
		schedulerConcurrency: 8,
		schedulerBatchSize:   500,
	}
	WithCurrencies(types.KnownCurrencies()...)(l)

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithHookTimeout bounds a single plugin call.
func WithHookTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.plugins.WithTimeout(d)
		}
	}
}

// WithoutMigrate skips schema migration in Start.
func WithoutMigrate() Option {
	return func(l *Ledger) { l.noMigrate = true }
}

// WithClock sets the source of "today".
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithCurrencies restricts the currencies transactions may use. Codes
// outside the currency registry are ignored and reported by Start; Start
// fails when none is left.
func WithCurrencies(codes ...string) Option {
	return func(l *Ledger) {
		l.currencies = make(map[string]bool, len(codes))
		l.unknown = nil
		for _, code := range codes {
			if c, ok := types.LookupCurrency(code); ok {
				l.currencies[c.Code] = true
			} else {
				l.unknown = append(l.unknown, code)
			}
		}
	}
}

// WithHorizon sets how far past the as-of date recurrences materialize.
func WithHorizon(h recurrence.Horizon) Option {
	return func(l *Ledger) {
		if h.IsValid() {
			l.horizon = h
		}
	}
}

// WithScheduler configures the background recurrence scheduler. An
// interval of zero disables it; AdvanceDue can still be called directly.
func WithScheduler(interval time.Duration, concurrency, batchSize int) Option {
	return func(l *Ledger) {
		l.schedulerInterval = interval
		if concurrency > 0 {
			l.schedulerConcurrency = concurrency
		}
		if batchSize > 0 {
			l.schedulerBatchSize = batchSize
		}
	}
}

// Start migrates the store, initializes plugins and launches the
// scheduler worker.
func (l *Ledger) Start(ctx context.Context) error {
	if len(l.unknown) > 0 {
		l.logger.Warn("cashledger: ignoring unknown currencies", "codes", l.unknown)
	}
	if len(l.currencies) == 0 {
		return fmt.Errorf("%w: no known currency configured", ErrInvalidCurrency)
	}

	if !l.noMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			return err
		}
	}

	l.plugins.EmitInit(ctx, l)

	if l.schedulerInterval > 0 {
		l.wg.Add(1)
		go l.schedulerWorker(ctx)
	}

	l.logger.Info("cashledger started",
		"scheduler_interval", l.schedulerInterval,
		"scheduler_concurrency", l.schedulerConcurrency,
		"horizon", l.horizon,
		"currencies", len(l.currencies),
	)

	return nil
}

// Stop drains the scheduler, notifies plugins and closes the store.
func (l *Ledger) Stop() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()

	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// Today returns the ledger clock's current date.
func (l *Ledger) Today() types.Date { return l.clock.Today() }

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// schedulerWorker runs AdvanceDue once at start and then on every tick.
func (l *Ledger) schedulerWorker(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.schedulerInterval)
	defer ticker.Stop()

	l.runScheduler(ctx)
	for {
		select {
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.runScheduler(ctx)
		}
	}
}

func (l *Ledger) runScheduler(ctx context.Context) {
	summary, err := l.AdvanceDue(ctx, l.clock.Today())
	if err != nil {
		l.logger.Error("scheduler run finished with errors",
			"error", err,
			"failed", summary.Failed,
			"advanced", summary.Advanced,
		)
		return
	}
	if summary.Materialized > 0 {
		l.logger.Info("scheduler run",
			"as_of", summary.AsOf,
			"advanced", summary.Advanced,
			"materialized", summary.Materialized,
			"finished", summary.Finished,
		)
	}
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (l *Ledger) supportsCurrency(code string) bool {
	return l.currencies[code]
}

func requireStore(storeID string) error {
	if strings.TrimSpace(storeID) == "" {
		return invalid("store_id", "is required")
	}
	return nil
}

// checkScope rejects access to an entity owned by another store.
func checkScope(storeID, owner string) error {
	if storeID != owner {
		return ErrCrossStoreAccess
	}
	return nil
}
