package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/xraph/grove"

	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/party"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

// Amounts are stored as NUMERIC major units, so a row reads the same in
// psql as it does in the API. Conversion goes through shopspring/decimal
// and rejects values the currency cannot represent.

func toNumeric(m types.Money) pgtype.Numeric {
	d := m.Decimal()
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric, currency string) (types.Money, error) {
	if !n.Valid {
		return types.Zero(currency), nil
	}
	return types.MoneyFromDecimal(decimal.NewFromBigInt(n.Int, n.Exp), currency)
}

func toDate(d types.Date) pgtype.Date {
	if d.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.Time(), Valid: true}
}

func toDatePtr(d *types.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return toDate(*d)
}

func fromDate(d pgtype.Date) types.Date {
	if !d.Valid {
		return types.Date{}
	}
	return types.DateOf(d.Time)
}

func fromDatePtr(d pgtype.Date) *types.Date {
	return fromDate(d).Ptr()
}

// refString maps the Nil ID to NULL for optional foreign keys.
func refString(i id.ID) *string {
	if i.IsNil() {
		return nil
	}
	s := i.String()
	return &s
}

func parseRef(s *string, parse func(string) (id.ID, error)) (id.ID, error) {
	if s == nil || *s == "" {
		return id.Nil, nil
	}
	return parse(*s)
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nonNilMeta(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func emptyToNil[T any](v []T) []T {
	if len(v) == 0 {
		return nil
	}
	return v
}

func emptyMapToNil(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}

// ==================== Transaction models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:cashledger_transactions"`

	ID             string            `grove:"id,pk"`
	StoreID        string            `grove:"store_id"`
	Kind           string            `grove:"kind"`
	Description    string            `grove:"description"`
	Amount         pgtype.Numeric    `grove:"amount,type:numeric(18,2)"`
	AmountPaid     pgtype.Numeric    `grove:"amount_paid,type:numeric(18,2)"`
	Currency       string            `grove:"currency"`
	DueDate        pgtype.Date       `grove:"due_date,type:date"`
	PaidDate       pgtype.Date       `grove:"paid_date,type:date"`
	CounterpartyID *string           `grove:"counterparty_id"`
	Category       string            `grove:"category"`
	CostCenter     string            `grove:"cost_center"`
	Tags           []string          `grove:"tags,type:text[]"`
	Workflow       string            `grove:"workflow"`
	Status         string            `grove:"status"`
	RecurrenceID   *string           `grove:"recurrence_id"`
	CanceledAt     *time.Time        `grove:"canceled_at"`
	CancelReason   string            `grove:"cancel_reason"`
	Metadata       map[string]string `grove:"metadata,type:jsonb"`
	CreatedBy      string            `grove:"created_by"`
	CreatedAt      time.Time         `grove:"created_at"`
	UpdatedAt      time.Time         `grove:"updated_at"`
}

func toTransactionModel(t *transaction.Transaction) *transactionModel {
	return &transactionModel{
		ID:             t.ID.String(),
		StoreID:        t.StoreID,
		Kind:           string(t.Kind),
		Description:    t.Description,
		Amount:         toNumeric(t.Amount),
		AmountPaid:     toNumeric(t.AmountPaid),
		Currency:       t.Currency(),
		DueDate:        toDate(t.DueDate),
		PaidDate:       toDatePtr(t.PaidDate),
		CounterpartyID: refString(t.CounterpartyID),
		Category:       t.Category,
		CostCenter:     t.CostCenter,
		Tags:           nonNilTags(t.Tags),
		Workflow:       string(t.Workflow),
		Status:         string(t.Status),
		RecurrenceID:   refString(t.RecurrenceID),
		CanceledAt:     t.CanceledAt,
		CancelReason:   t.CancelReason,
		Metadata:       nonNilMeta(t.Metadata),
		CreatedBy:      t.CreatedBy,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func fromTransactionModel(m *transactionModel) (*transaction.Transaction, error) {
	txnID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	counterparty, err := parseRef(m.CounterpartyID, id.ParsePartyID)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", m.ID, err)
	}
	recID, err := parseRef(m.RecurrenceID, id.ParseRecurrenceID)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", m.ID, err)
	}
	amount, err := fromNumeric(m.Amount, m.Currency)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", m.ID, err)
	}
	paid, err := fromNumeric(m.AmountPaid, m.Currency)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", m.ID, err)
	}

	return &transaction.Transaction{
		Entity: types.Entity{
			CreatedBy: m.CreatedBy,
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:             txnID,
		StoreID:        m.StoreID,
		Kind:           transaction.Kind(m.Kind),
		Description:    m.Description,
		Amount:         amount,
		AmountPaid:     paid,
		DueDate:        fromDate(m.DueDate),
		PaidDate:       fromDatePtr(m.PaidDate),
		CounterpartyID: counterparty,
		Category:       m.Category,
		CostCenter:     m.CostCenter,
		Tags:           emptyToNil(m.Tags),
		Workflow:       transaction.WorkflowFlag(m.Workflow),
		Status:         transaction.Status(m.Status),
		RecurrenceID:   recID,
		CanceledAt:     m.CanceledAt,
		CancelReason:   m.CancelReason,
		Metadata:       emptyMapToNil(m.Metadata),
	}, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:cashledger_payments"`

	ID            string         `grove:"id,pk"`
	TransactionID string         `grove:"transaction_id"`
	StoreID       string         `grove:"store_id"`
	Kind          string         `grove:"kind"`
	Amount        pgtype.Numeric `grove:"amount,type:numeric(18,2)"`
	Currency      string         `grove:"currency"`
	PaidOn        pgtype.Date    `grove:"paid_on,type:date"`
	Method        string         `grove:"method"`
	Note          string         `grove:"note"`
	Reverses      *string        `grove:"reverses"`
	RecordedBy    string         `grove:"recorded_by"`
	CreatedAt     time.Time      `grove:"created_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	return &paymentModel{
		ID:            p.ID.String(),
		TransactionID: p.TransactionID.String(),
		StoreID:       p.StoreID,
		Kind:          string(p.Kind),
		Amount:        toNumeric(p.Amount),
		Currency:      p.Amount.Currency,
		PaidOn:        toDate(p.PaidOn),
		Method:        string(p.Method),
		Note:          p.Note,
		Reverses:      refString(p.Reverses),
		RecordedBy:    p.RecordedBy,
		CreatedAt:     p.CreatedAt,
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	payID, err := id.ParsePaymentID(m.ID)
	if err != nil {
		return nil, err
	}
	txnID, err := id.ParseTransactionID(m.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("payment %s: %w", m.ID, err)
	}
	reverses, err := parseRef(m.Reverses, id.ParsePaymentID)
	if err != nil {
		return nil, fmt.Errorf("payment %s: %w", m.ID, err)
	}
	amount, err := fromNumeric(m.Amount, m.Currency)
	if err != nil {
		return nil, fmt.Errorf("payment %s: %w", m.ID, err)
	}

	return &payment.Payment{
		ID:            payID,
		TransactionID: txnID,
		StoreID:       m.StoreID,
		Kind:          payment.Kind(m.Kind),
		Amount:        amount,
		PaidOn:        fromDate(m.PaidOn),
		Method:        payment.Method(m.Method),
		Note:          m.Note,
		Reverses:      reverses,
		RecordedBy:    m.RecordedBy,
		CreatedAt:     m.CreatedAt.UTC(),
	}, nil
}

// ==================== Recurrence models ====================

type recurrenceModel struct {
	grove.BaseModel `grove:"table:cashledger_recurrences"`

	ID             string            `grove:"id,pk"`
	StoreID        string            `grove:"store_id"`
	Kind           string            `grove:"kind"`
	Description    string            `grove:"description"`
	Amount         pgtype.Numeric    `grove:"amount,type:numeric(18,2)"`
	Currency       string            `grove:"currency"`
	Frequency      string            `grove:"frequency"`
	Status         string            `grove:"status"`
	StartDate      pgtype.Date       `grove:"start_date,type:date"`
	EndDate        pgtype.Date       `grove:"end_date,type:date"`
	NextDueDate    pgtype.Date       `grove:"next_due_date,type:date"`
	AnchorDay      int               `grove:"anchor_day"`
	CounterpartyID *string           `grove:"counterparty_id"`
	Category       string            `grove:"category"`
	CostCenter     string            `grove:"cost_center"`
	Tags           []string          `grove:"tags,type:text[]"`
	Occurrences    int               `grove:"occurrences"`
	LastRunOn      pgtype.Date       `grove:"last_run_on,type:date"`
	Metadata       map[string]string `grove:"metadata,type:jsonb"`
	CreatedBy      string            `grove:"created_by"`
	CreatedAt      time.Time         `grove:"created_at"`
	UpdatedAt      time.Time         `grove:"updated_at"`
}

func toRecurrenceModel(r *recurrence.Recurrence) *recurrenceModel {
	return &recurrenceModel{
		ID:             r.ID.String(),
		StoreID:        r.StoreID,
		Kind:           string(r.Kind),
		Description:    r.Description,
		Amount:         toNumeric(r.Amount),
		Currency:       r.Amount.Currency,
		Frequency:      string(r.Frequency),
		Status:         string(r.Status),
		StartDate:      toDate(r.StartDate),
		EndDate:        toDatePtr(r.EndDate),
		NextDueDate:    toDate(r.NextDueDate),
		AnchorDay:      r.AnchorDay,
		CounterpartyID: refString(r.CounterpartyID),
		Category:       r.Category,
		CostCenter:     r.CostCenter,
		Tags:           nonNilTags(r.Tags),
		Occurrences:    r.Occurrences,
		LastRunOn:      toDatePtr(r.LastRunOn),
		Metadata:       nonNilMeta(r.Metadata),
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func fromRecurrenceModel(m *recurrenceModel) (*recurrence.Recurrence, error) {
	recID, err := id.ParseRecurrenceID(m.ID)
	if err != nil {
		return nil, err
	}
	counterparty, err := parseRef(m.CounterpartyID, id.ParsePartyID)
	if err != nil {
		return nil, fmt.Errorf("recurrence %s: %w", m.ID, err)
	}
	amount, err := fromNumeric(m.Amount, m.Currency)
	if err != nil {
		return nil, fmt.Errorf("recurrence %s: %w", m.ID, err)
	}

	return &recurrence.Recurrence{
		Entity: types.Entity{
			CreatedBy: m.CreatedBy,
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:             recID,
		StoreID:        m.StoreID,
		Kind:           transaction.Kind(m.Kind),
		Description:    m.Description,
		Amount:         amount,
		Frequency:      recurrence.Frequency(m.Frequency),
		Status:         recurrence.Status(m.Status),
		StartDate:      fromDate(m.StartDate),
		EndDate:        fromDatePtr(m.EndDate),
		NextDueDate:    fromDate(m.NextDueDate),
		AnchorDay:      m.AnchorDay,
		CounterpartyID: counterparty,
		Category:       m.Category,
		CostCenter:     m.CostCenter,
		Tags:           emptyToNil(m.Tags),
		Occurrences:    m.Occurrences,
		LastRunOn:      fromDatePtr(m.LastRunOn),
		Metadata:       emptyMapToNil(m.Metadata),
	}, nil
}

// ==================== Party models ====================

type partyModel struct {
	grove.BaseModel `grove:"table:cashledger_parties"`

	ID        string            `grove:"id,pk"`
	StoreID   string            `grove:"store_id"`
	Kind      string            `grove:"kind"`
	Name      string            `grove:"name"`
	Document  string            `grove:"document"`
	Email     string            `grove:"email"`
	Phone     string            `grove:"phone"`
	Notes     string            `grove:"notes"`
	Archived  bool              `grove:"archived"`
	Metadata  map[string]string `grove:"metadata,type:jsonb"`
	CreatedBy string            `grove:"created_by"`
	CreatedAt time.Time         `grove:"created_at"`
	UpdatedAt time.Time         `grove:"updated_at"`
}

func toPartyModel(p *party.Party) *partyModel {
	return &partyModel{
		ID:        p.ID.String(),
		StoreID:   p.StoreID,
		Kind:      string(p.Kind),
		Name:      p.Name,
		Document:  p.Document,
		Email:     p.Email,
		Phone:     p.Phone,
		Notes:     p.Notes,
		Archived:  p.Archived,
		Metadata:  nonNilMeta(p.Metadata),
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromPartyModel(m *partyModel) (*party.Party, error) {
	partyID, err := id.ParsePartyID(m.ID)
	if err != nil {
		return nil, err
	}

	return &party.Party{
		Entity: types.Entity{
			CreatedBy: m.CreatedBy,
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:       partyID,
		StoreID:  m.StoreID,
		Kind:     party.Kind(m.Kind),
		Name:     m.Name,
		Document: m.Document,
		Email:    m.Email,
		Phone:    m.Phone,
		Notes:    m.Notes,
		Archived: m.Archived,
		Metadata: emptyMapToNil(m.Metadata),
	}, nil
}
