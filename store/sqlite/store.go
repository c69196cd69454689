// Package sqlite implements store.Store on an embedded SQLite database
// through the grove sqlitedriver (modernc.org/sqlite, no cgo). Every unit
// of work starts with BEGIN IMMEDIATE, so writers are serialized by the
// database write lock and the Lock methods reduce to plain reads.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

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

// builder is satisfied by both *sqlitedriver.SqliteDB and *sqlitedriver.SqliteTx.
type builder interface {
	NewSelect(model ...any) *sqlitedriver.SelectQuery
	NewInsert(model any) *sqlitedriver.InsertQuery
	NewUpdate(model any) *sqlitedriver.UpdateQuery
}

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	queries
	db     *grove.DB
	sdb    *sqlitedriver.SqliteDB
	closed atomic.Bool
}

// DSN builds a connection string for path with WAL, a busy timeout,
// foreign keys and immediate transactions enabled.
func DSN(path string) string {
	return "file:" + path +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)&_txlock=immediate"
}

// Open opens the database file at path. A single connection is used, so
// the store is safe for one process at a time.
func Open(ctx context.Context, path string) (*Store, error) {
	sdb := sqlitedriver.New()
	if err := sdb.Open(ctx, DSN(path), driver.WithPoolSize(1)); err != nil {
		return nil, fmt.Errorf("cashledger/sqlite: open %s: %w", path, err)
	}
	if err := sdb.Ping(ctx); err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("cashledger/sqlite: ping: %w", err)
	}
	db, err := grove.Open(sdb)
	if err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("cashledger/sqlite: %w", err)
	}
	return New(db), nil
}

// New creates a new SQLite store backed by Grove ORM. The store closes db
// in Close.
func New(db *grove.DB) *Store {
	sdb := sqlitedriver.Unwrap(db)
	return &Store{queries: queries{db: sdb}, db: db, sdb: sdb}
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

// Close closes the database.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// InTx runs fn inside one database transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx ledgerstore.Tx) error) error {
	if s.closed.Load() {
		return cashledger.ErrStoreClosed
	}
	sqlTx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("cashledger/sqlite: begin: %w", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(ctx, &tx{queries: queries{db: sqlTx}}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("cashledger/sqlite: commit: %w", err)
	}
	return nil
}

type tx struct {
	queries
}

// LockTransaction reads the row; the transaction already holds the
// database write lock.
func (t *tx) LockTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	return t.GetTransaction(ctx, txnID)
}

// LockRecurrence reads the row; see LockTransaction.
func (t *tx) LockRecurrence(ctx context.Context, recID id.RecurrenceID) (*recurrence.Recurrence, error) {
	return t.GetRecurrence(ctx, recID)
}

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
		Where("id = ?", txnID.String()).
		Scan(ctx)
	if err != nil {
		return nil, mapErr(err, cashledger.ErrTransactionNotFound)
	}
	return fromTransactionModel(m)
}

func (q queries) ListTransactions(ctx context.Context, storeID string, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	var models []transactionModel
	sel := q.db.NewSelect(&models).Where("store_id = ?", storeID)

	if opts.Kind != "" {
		sel = sel.Where("kind = ?", string(opts.Kind))
	}
	if opts.Category != "" {
		sel = sel.Where("category = ?", opts.Category)
	}
	if opts.CostCenter != "" {
		sel = sel.Where("cost_center = ?", opts.CostCenter)
	}
	if !opts.CounterpartyID.IsNil() {
		sel = sel.Where("counterparty_id = ?", opts.CounterpartyID.String())
	}
	if !opts.RecurrenceID.IsNil() {
		sel = sel.Where("recurrence_id = ?", opts.RecurrenceID.String())
	}
	if !opts.DueFrom.IsZero() {
		sel = sel.Where("due_date >= ?", opts.DueFrom.String())
	}
	if !opts.DueTo.IsZero() {
		sel = sel.Where("due_date <= ?", opts.DueTo.String())
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
		Where("id = ?", payID.String()).
		Scan(ctx)
	if err != nil {
		return nil, mapErr(err, cashledger.ErrPaymentNotFound)
	}
	return fromPaymentModel(m)
}

func (q queries) ListPayments(ctx context.Context, txnID id.TransactionID) ([]*payment.Payment, error) {
	var models []paymentModel
	err := q.db.NewSelect(&models).
		Where("transaction_id = ?", txnID.String()).
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
		Where("id = ?", recID.String()).
		Scan(ctx)
	if err != nil {
		return nil, mapErr(err, cashledger.ErrRecurrenceNotFound)
	}
	return fromRecurrenceModel(m)
}

func (q queries) ListRecurrences(ctx context.Context, storeID string, opts recurrence.ListOpts) ([]*recurrence.Recurrence, error) {
	var models []recurrenceModel
	sel := q.db.NewSelect(&models).Where("store_id = ?", storeID)
	if opts.Status != "" {
		sel = sel.Where("status = ?", string(opts.Status))
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
		Where("status = ?", string(recurrence.StatusActive)).
		Where("next_due_date <= ?", through.String()).
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
		Where("id = ?", partyID.String()).
		Scan(ctx)
	if err != nil {
		return nil, mapErr(err, cashledger.ErrPartyNotFound)
	}
	return fromPartyModel(m)
}

func (q queries) ListParties(ctx context.Context, storeID string, opts party.ListOpts) ([]*party.Party, error) {
	var models []partyModel
	sel := q.db.NewSelect(&models).Where("store_id = ?", storeID)
	if !opts.IncludeArchived {
		sel = sel.Where("archived = 0")
	}
	if opts.Kind != "" {
		sel = sel.Where("(kind = ? OR kind = ?)", string(opts.Kind), string(party.KindBoth))
	}
	if opts.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(opts.Search)) + "%"
		sel = sel.Where(`(lower(name) LIKE ? ESCAPE '\' OR lower(document) LIKE ? ESCAPE '\')`, pattern, pattern)
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

// paginate applies limit and offset. SQLite rejects OFFSET without LIMIT,
// so an offset alone gets an unbounded limit.
func paginate(q *sqlitedriver.SelectQuery, limit, offset int) *sqlitedriver.SelectQuery {
	if offset > 0 && limit <= 0 {
		limit = math.MaxInt32
	}
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
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// mapErr translates driver errors into ledger sentinels. missingRef is
// returned for no-rows and foreign key violations.
func mapErr(err, missingRef error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && missingRef != nil {
		return missingRef
	}
	var sqlErr *msqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", cashledger.ErrAlreadyExists, sqlErr.Error())
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			if missingRef != nil {
				return fmt.Errorf("%w: %s", missingRef, sqlErr.Error())
			}
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return cashledger.ValidationError{Field: "row", Message: sqlErr.Error()}
		}
	}
	return err
}
