// Package postgres implements store.Store on PostgreSQL through the grove
// pgdriver. Amounts are NUMERIC major units, dates are DATE, and entity
// locks inside a unit of work are row locks (SELECT ... FOR UPDATE).
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/pgdriver"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/party"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/recurrence"
	ledgerstore "github.com/xraph/cashledger/store"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

// compile-time interface checks
var (
	_ ledgerstore.Store = (*Store)(nil)
	_ ledgerstore.Tx    = (*tx)(nil)
)

// builder is satisfied by both *pgdriver.PgDB and *pgdriver.PgTx.
type builder interface {
	NewSelect(model ...any) *pgdriver.SelectQuery
	NewInsert(model any) *pgdriver.InsertQuery
	NewUpdate(model any) *pgdriver.UpdateQuery
}

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	queries
	db     *grove.DB
	pg     *pgdriver.PgDB
	closed atomic.Bool
}

// New creates a new PostgreSQL store backed by Grove ORM. The store owns
// db from then on and closes it in Close.
func New(db *grove.DB) *Store {
	pg := pgdriver.Unwrap(db)
	return &Store{queries: queries{db: pg}, db: db, pg: pg}
}

// Open connects a pgdriver pool to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...driver.Option) (*Store, error) {
	pg := pgdriver.New()
	if err := pg.Open(ctx, dsn, opts...); err != nil {
		return nil, fmt.Errorf("cashledger/postgres: %w", err)
	}
	if err := pg.Ping(ctx); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("cashledger/postgres: ping: %w", err)
	}
	db, err := grove.Open(pg)
	if err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("cashledger/postgres: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return cashledger.ErrStoreClosed
	}
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// InTx runs fn inside a READ COMMITTED transaction. Row locks taken by the
// Lock methods are released at commit or rollback.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx ledgerstore.Tx) error) error {
	if s.closed.Load() {
		return cashledger.ErrStoreClosed
	}
	pgTx, err := s.pg.BeginTxQuery(ctx, &driver.TxOptions{IsolationLevel: driver.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("cashledger/postgres: begin: %w", err)
	}
	defer pgTx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(ctx, &tx{queries: queries{db: pgTx}}); err != nil {
		return err
	}
	if err := pgTx.Commit(); err != nil {
		return fmt.Errorf("cashledger/postgres: commit: %w", err)
	}
	return nil
}

// tx is the unit-of-work view of the store.
type tx struct {
	queries
}

func (t *tx) LockTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	m := new(transactionModel)
	err := t.db.NewSelect(m).
		Where("id = $1", txnID.String()).
		ForUpdate().
		Scan(ctx)
	if err != nil {
		return nil, mapErr(err, cashledger.ErrTransactionNotFound)
	}
	return fromTransactionModel(m)
}

func (t *tx) LockRecurrence(ctx context.Context, recID id.RecurrenceID) (*recurrence.Recurrence, error) {
	m := new(recurrenceModel)
	err := t.db.NewSelect(m).
		Where("id = $1", recID.String()).
		ForUpdate().
		Scan(ctx)
	if err != nil {
		return nil, mapErr(err, cashledger.ErrRecurrenceNotFound)
	}
	return fromRecurrenceModel(m)
}

// queries holds every statement; it runs against the pool or a transaction.
type queries struct {
	db builder
}

// ==================== Transaction Store ====================

func (q queries) CreateTransaction(ctx context.Context, t *transaction.Transaction) error {
	_, err := q.db.NewInsert(toTransactionModel(t)).Exec(ctx)
	return mapErr(err, cashledger.ErrPartyNotFound)
}

func (q queries) GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	m := new(transactionModel)
	err := q.db.NewSelect(m).
		Where("id = $1", txnID.String()).
		Scan(ctx)
	if err != nil {
		return nil, mapErr(err, cashledger.ErrTransactionNotFound)
	}
	return fromTransactionModel(m)
}

func (q queries) ListTransactions(ctx context.Context, storeID string, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	var models []transactionModel
	sel := q.db.NewSelect(&models).Where("store_id = $1", storeID)

	argIdx := 1
	if opts.Kind != "" {
		argIdx++
		sel = sel.Where(fmt.Sprintf("kind = $%d", argIdx), string(opts.Kind))
	}
	if opts.Category != "" {
		argIdx++
		sel = sel.Where(fmt.Sprintf("category = $%d", argIdx), opts.Category)
	}
	if opts.CostCenter != "" {
		argIdx++
		sel = sel.Where(fmt.Sprintf("cost_center = $%d", argIdx), opts.CostCenter)
	}
	if !opts.CounterpartyID.IsNil() {
		argIdx++
		sel = sel.Where(fmt.Sprintf("counterparty_id = $%d", argIdx), opts.CounterpartyID.String())
	}
	if !opts.RecurrenceID.IsNil() {
		argIdx++
		sel = sel.Where(fmt.Sprintf("recurrence_id = $%d", argIdx), opts.RecurrenceID.String())
	}
	if !opts.DueFrom.IsZero() {
		argIdx++
		sel = sel.Where(fmt.Sprintf("due_date >= $%d", argIdx), toDate(opts.DueFrom))
	}
	if !opts.DueTo.IsZero() {
		argIdx++
		sel = sel.Where(fmt.Sprintf("due_date <= $%d", argIdx), toDate(opts.DueTo))
	}
	if !opts.IncludeCanceled || opts.OpenOnly {
		sel = sel.Where("canceled_at IS NULL")
	}
	if opts.OpenOnly {
		sel = sel.Where("amount_paid < amount")
	}
	sel = paginate(sel.OrderExpr("due_date ASC, id ASC"), opts.Limit, opts.Offset)

	if err := sel.Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromTransactionModel)
}

func (q queries) UpdateTransaction(ctx context.Context, t *transaction.Transaction) error {
	m := toTransactionModel(t)
	res, err := q.db.NewUpdate(m).WherePK().Where("store_id = ?", m.StoreID).Exec(ctx)
	return affected(res, mapErr(err, cashledger.ErrPartyNotFound), cashledger.ErrTransactionNotFound)
}

// ==================== Payment Store ====================

func (q queries) CreatePayment(ctx context.Context, p *payment.Payment) error {
	_, err := q.db.NewInsert(toPaymentModel(p)).Exec(ctx)
	return mapErr(err, cashledger.ErrTransactionNotFound)
}

func (q queries) GetPayment(ctx context.Context, payID id.PaymentID) (*payment.Payment, error) {
	m := new(paymentModel)
	err := q.db.NewSelect(m).
		Where("id = $1", payID.String()).
		Scan(ctx)
	if err != nil {
		return nil, mapErr(err, cashledger.ErrPaymentNotFound)
	}
	return fromPaymentModel(m)
}

func (q queries) ListPayments(ctx context.Context, txnID id.TransactionID) ([]*payment.Payment, error) {
	var models []paymentModel
	err := q.db.NewSelect(&models).
		Where("transaction_id = $1", txnID.String()).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return convert(models, fromPaymentModel)
}

// ==================== Recurrence Store ====================

func (q queries) CreateRecurrence(ctx context.Context, r *recurrence.Recurrence) error {
	_, err := q.db.NewInsert(toRecurrenceModel(r)).Exec(ctx)
	return mapErr(err, cashledger.ErrPartyNotFound)
}

func (q queries) GetRecurrence(ctx context.Context, recID id.RecurrenceID) (*recurrence.Recurrence, error) {
	m := new(recurrenceModel)
	err := q.db.NewSelect(m).
		Where("id = $1", recID.String()).
		Scan(ctx)
	if err != nil {
		return nil, mapErr(err, cashledger.ErrRecurrenceNotFound)
	}
	return fromRecurrenceModel(m)
}

func (q queries) ListRecurrences(ctx context.Context, storeID string, opts recurrence.ListOpts) ([]*recurrence.Recurrence, error) {
	var models []recurrenceModel
	sel := q.db.NewSelect(&models).Where("store_id = $1", storeID)
	if opts.Status != "" {
		sel = sel.Where("status = $2", string(opts.Status))
	}
	sel = paginate(sel.OrderExpr("next_due_date ASC, id ASC"), opts.Limit, opts.Offset)

	if err := sel.Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromRecurrenceModel)
}

func (q queries) ListDueRecurrences(ctx context.Context, through types.Date, limit int) ([]*recurrence.Recurrence, error) {
	var models []recurrenceModel
	sel := q.db.NewSelect(&models).
		Where("status = $1", string(recurrence.StatusActive)).
		Where("next_due_date <= $2", toDate(through)).
		OrderExpr("next_due_date ASC, id ASC")
	if err := paginate(sel, limit, 0).Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromRecurrenceModel)
}

func (q queries) UpdateRecurrence(ctx context.Context, r *recurrence.Recurrence) error {
	m := toRecurrenceModel(r)
	res, err := q.db.NewUpdate(m).WherePK().Where("store_id = ?", m.StoreID).Exec(ctx)
	return affected(res, mapErr(err, cashledger.ErrPartyNotFound), cashledger.ErrRecurrenceNotFound)
}

// ==================== Party Store ====================

func (q queries) CreateParty(ctx context.Context, p *party.Party) error {
	_, err := q.db.NewInsert(toPartyModel(p)).Exec(ctx)
	return mapErr(err, nil)
}

func (q queries) GetParty(ctx context.Context, partyID id.PartyID) (*party.Party, error) {
	m := new(partyModel)
	err := q.db.NewSelect(m).
		Where("id = $1", partyID.String()).
		Scan(ctx)
	if err != nil {
		return nil, mapErr(err, cashledger.ErrPartyNotFound)
	}
	return fromPartyModel(m)
}

func (q queries) ListParties(ctx context.Context, storeID string, opts party.ListOpts) ([]*party.Party, error) {
	var models []partyModel
	sel := q.db.NewSelect(&models).Where("store_id = $1", storeID)

	argIdx := 1
	if !opts.IncludeArchived {
		sel = sel.Where("NOT archived")
	}
	if opts.Kind != "" {
		argIdx++
		sel = sel.Where(fmt.Sprintf("(kind = $%d OR kind = '%s')", argIdx, party.KindBoth), string(opts.Kind))
	}
	if opts.Search != "" {
		argIdx++
		pattern := "%" + likeEscaper.Replace(opts.Search) + "%"
		sel = sel.Where(fmt.Sprintf("(name ILIKE $%[1]d OR document ILIKE $%[1]d)", argIdx), pattern)
	}
	sel = paginate(sel.OrderExpr("name ASC, id ASC"), opts.Limit, opts.Offset)

	if err := sel.Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromPartyModel)
}

func (q queries) UpdateParty(ctx context.Context, p *party.Party) error {
	m := toPartyModel(p)
	res, err := q.db.NewUpdate(m).WherePK().Where("store_id = ?", m.StoreID).Exec(ctx)
	return affected(res, mapErr(err, nil), cashledger.ErrPartyNotFound)
}

// ==================== Helpers ====================

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func paginate(q *pgdriver.SelectQuery, limit, offset int) *pgdriver.SelectQuery {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

func convert[M, T any](models []M, from func(*M) (*T, error)) ([]*T, error) {
	result := make([]*T, len(models))
	for i := range models {
		v, err := from(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}

// affected turns a zero-row update into notFound.
func affected(res driver.Result, err, notFound error) error {
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

// mapErr translates driver errors into ledger sentinels. missingRef is
// returned for no-rows and foreign key violations.
func mapErr(err, missingRef error) error {
	if err == nil {
		return nil
	}
	if isNoRows(err) && missingRef != nil {
		return missingRef
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", cashledger.ErrAlreadyExists, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			if missingRef != nil {
				return fmt.Errorf("%w: %s", missingRef, pgErr.ConstraintName)
			}
		case "23514": // check_violation
			return cashledger.ValidationError{Field: pgErr.ConstraintName, Message: pgErr.Message}
		}
	}
	return err
}
