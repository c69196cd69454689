package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/party"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

// Amounts are INTEGER minor units next to their currency, so SQL
// comparisons stay exact. Dates are ISO TEXT; timestamps are fixed-width
// UTC TEXT so they also sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func formatDatePtr(d *types.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func refString(i id.ID) *string {
	if i.IsNil() {
		return nil
	}
	s := i.String()
	return &s
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(tags) //nolint:errcheck // []string always marshals
	return string(b)
}

func encodeMeta(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	b, _ := json.Marshal(m) //nolint:errcheck // map[string]string always marshals
	return string(b)
}

// rowDecoder collects the first conversion error so model conversions
// read as a flat list of assignments.
type rowDecoder struct {
	err error
}

func (d *rowDecoder) time(s string) time.Time {
	if d.err != nil {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	d.err = err
	return t
}

func (d *rowDecoder) timePtr(s *string) *time.Time {
	if d.err != nil || s == nil {
		return nil
	}
	t := d.time(*s)
	return &t
}

func (d *rowDecoder) date(s string) types.Date {
	if d.err != nil {
		return types.Date{}
	}
	v, err := types.ParseDate(s)
	d.err = err
	return v
}

func (d *rowDecoder) datePtr(s *string) *types.Date {
	if d.err != nil || s == nil {
		return nil
	}
	v := d.date(*s)
	return &v
}

func (d *rowDecoder) id(s string, parse func(string) (id.ID, error)) id.ID {
	if d.err != nil {
		return id.Nil
	}
	v, err := parse(s)
	d.err = err
	return v
}

func (d *rowDecoder) ref(s *string, parse func(string) (id.ID, error)) id.ID {
	if s == nil || *s == "" {
		return id.Nil
	}
	return d.id(*s, parse)
}

func (d *rowDecoder) tags(raw string) []string {
	if d.err != nil {
		return nil
	}
	var tags []string
	d.err = json.Unmarshal([]byte(raw), &tags)
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func (d *rowDecoder) meta(raw string) map[string]string {
	if d.err != nil {
		return nil
	}
	var m map[string]string
	d.err = json.Unmarshal([]byte(raw), &m)
	if len(m) == 0 {
		return nil
	}
	return m
}

// ==================== Transaction models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:cashledger_transactions"`

	ID             string  `grove:"id,pk"`
	StoreID        string  `grove:"store_id"`
	Kind           string  `grove:"kind"`
	Description    string  `grove:"description"`
	Amount         int64   `grove:"amount"`
	AmountPaid     int64   `grove:"amount_paid"`
	Currency       string  `grove:"currency"`
	DueDate        string  `grove:"due_date"`
	PaidDate       *string `grove:"paid_date"`
	CounterpartyID *string `grove:"counterparty_id"`
	Category       string  `grove:"category"`
	CostCenter     string  `grove:"cost_center"`
	Tags           string  `grove:"tags"`
	Workflow       string  `grove:"workflow"`
	Status         string  `grove:"status"`
	RecurrenceID   *string `grove:"recurrence_id"`
	CanceledAt     *string `grove:"canceled_at"`
	CancelReason   string  `grove:"cancel_reason"`
	Metadata       string  `grove:"metadata"`
	CreatedBy      string  `grove:"created_by"`
	CreatedAt      string  `grove:"created_at"`
	UpdatedAt      string  `grove:"updated_at"`
}

func toTransactionModel(t *transaction.Transaction) *transactionModel {
	return &transactionModel{
		ID:             t.ID.String(),
		StoreID:        t.StoreID,
		Kind:           string(t.Kind),
		Description:    t.Description,
		Amount:         t.Amount.Amount,
		AmountPaid:     t.AmountPaid.Amount,
		Currency:       t.Currency(),
		DueDate:        t.DueDate.String(),
		PaidDate:       formatDatePtr(t.PaidDate),
		CounterpartyID: refString(t.CounterpartyID),
		Category:       t.Category,
		CostCenter:     t.CostCenter,
		Tags:           encodeTags(t.Tags),
		Workflow:       string(t.Workflow),
		Status:         string(t.Status),
		RecurrenceID:   refString(t.RecurrenceID),
		CanceledAt:     formatTimePtr(t.CanceledAt),
		CancelReason:   t.CancelReason,
		Metadata:       encodeMeta(t.Metadata),
		CreatedBy:      t.CreatedBy,
		CreatedAt:      formatTime(t.CreatedAt),
		UpdatedAt:      formatTime(t.UpdatedAt),
	}
}

func fromTransactionModel(m *transactionModel) (*transaction.Transaction, error) {
	var d rowDecoder
	t := &transaction.Transaction{
		Entity: types.Entity{
			CreatedBy: m.CreatedBy,
			CreatedAt: d.time(m.CreatedAt),
			UpdatedAt: d.time(m.UpdatedAt),
		},
		ID:             d.id(m.ID, id.ParseTransactionID),
		StoreID:        m.StoreID,
		Kind:           transaction.Kind(m.Kind),
		Description:    m.Description,
		Amount:         types.New(m.Amount, m.Currency),
		AmountPaid:     types.New(m.AmountPaid, m.Currency),
		DueDate:        d.date(m.DueDate),
		PaidDate:       d.datePtr(m.PaidDate),
		CounterpartyID: d.ref(m.CounterpartyID, id.ParsePartyID),
		Category:       m.Category,
		CostCenter:     m.CostCenter,
		Tags:           d.tags(m.Tags),
		Workflow:       transaction.WorkflowFlag(m.Workflow),
		Status:         transaction.Status(m.Status),
		RecurrenceID:   d.ref(m.RecurrenceID, id.ParseRecurrenceID),
		CanceledAt:     d.timePtr(m.CanceledAt),
		CancelReason:   m.CancelReason,
		Metadata:       d.meta(m.Metadata),
	}
	if d.err != nil {
		return nil, fmt.Errorf("transaction %s: %w", m.ID, d.err)
	}
	return t, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:cashledger_payments"`

	ID            string  `grove:"id,pk"`
	TransactionID string  `grove:"transaction_id"`
	StoreID       string  `grove:"store_id"`
	Kind          string  `grove:"kind"`
	Amount        int64   `grove:"amount"`
	Currency      string  `grove:"currency"`
	PaidOn        string  `grove:"paid_on"`
	Method        string  `grove:"method"`
	Note          string  `grove:"note"`
	Reverses      *string `grove:"reverses"`
	RecordedBy    string  `grove:"recorded_by"`
	CreatedAt     string  `grove:"created_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	return &paymentModel{
		ID:            p.ID.String(),
		TransactionID: p.TransactionID.String(),
		StoreID:       p.StoreID,
		Kind:          string(p.Kind),
		Amount:        p.Amount.Amount,
		Currency:      p.Amount.Currency,
		PaidOn:        p.PaidOn.String(),
		Method:        string(p.Method),
		Note:          p.Note,
		Reverses:      refString(p.Reverses),
		RecordedBy:    p.RecordedBy,
		CreatedAt:     formatTime(p.CreatedAt),
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	var d rowDecoder
	p := &payment.Payment{
		ID:            d.id(m.ID, id.ParsePaymentID),
		TransactionID: d.id(m.TransactionID, id.ParseTransactionID),
		StoreID:       m.StoreID,
		Kind:          payment.Kind(m.Kind),
		Amount:        types.New(m.Amount, m.Currency),
		PaidOn:        d.date(m.PaidOn),
		Method:        payment.Method(m.Method),
		Note:          m.Note,
		Reverses:      d.ref(m.Reverses, id.ParsePaymentID),
		RecordedBy:    m.RecordedBy,
		CreatedAt:     d.time(m.CreatedAt),
	}
	if d.err != nil {
		return nil, fmt.Errorf("payment %s: %w", m.ID, d.err)
	}
	return p, nil
}

// ==================== Recurrence models ====================

type recurrenceModel struct {
	grove.BaseModel `grove:"table:cashledger_recurrences"`

	ID             string  `grove:"id,pk"`
	StoreID        string  `grove:"store_id"`
	Kind           string  `grove:"kind"`
	Description    string  `grove:"description"`
	Amount         int64   `grove:"amount"`
	Currency       string  `grove:"currency"`
	Frequency      string  `grove:"frequency"`
	Status         string  `grove:"status"`
	StartDate      string  `grove:"start_date"`
	EndDate        *string `grove:"end_date"`
	NextDueDate    string  `grove:"next_due_date"`
	AnchorDay      int     `grove:"anchor_day"`
	CounterpartyID *string `grove:"counterparty_id"`
	Category       string  `grove:"category"`
	CostCenter     string  `grove:"cost_center"`
	Tags           string  `grove:"tags"`
	Occurrences    int     `grove:"occurrences"`
	LastRunOn      *string `grove:"last_run_on"`
	Metadata       string  `grove:"metadata"`
	CreatedBy      string  `grove:"created_by"`
	CreatedAt      string  `grove:"created_at"`
	UpdatedAt      string  `grove:"updated_at"`
}

func toRecurrenceModel(r *recurrence.Recurrence) *recurrenceModel {
	return &recurrenceModel{
		ID:             r.ID.String(),
		StoreID:        r.StoreID,
		Kind:           string(r.Kind),
		Description:    r.Description,
		Amount:         r.Amount.Amount,
		Currency:       r.Amount.Currency,
		Frequency:      string(r.Frequency),
		Status:         string(r.Status),
		StartDate:      r.StartDate.String(),
		EndDate:        formatDatePtr(r.EndDate),
		NextDueDate:    r.NextDueDate.String(),
		AnchorDay:      r.AnchorDay,
		CounterpartyID: refString(r.CounterpartyID),
		Category:       r.Category,
		CostCenter:     r.CostCenter,
		Tags:           encodeTags(r.Tags),
		Occurrences:    r.Occurrences,
		LastRunOn:      formatDatePtr(r.LastRunOn),
		Metadata:       encodeMeta(r.Metadata),
		CreatedBy:      r.CreatedBy,
		CreatedAt:      formatTime(r.CreatedAt),
		UpdatedAt:      formatTime(r.UpdatedAt),
	}
}

func fromRecurrenceModel(m *recurrenceModel) (*recurrence.Recurrence, error) {
	var d rowDecoder
	r := &recurrence.Recurrence{
		Entity: types.Entity{
			CreatedBy: m.CreatedBy,
			CreatedAt: d.time(m.CreatedAt),
			UpdatedAt: d.time(m.UpdatedAt),
		},
		ID:             d.id(m.ID, id.ParseRecurrenceID),
		StoreID:        m.StoreID,
		Kind:           transaction.Kind(m.Kind),
		Description:    m.Description,
		Amount:         types.New(m.Amount, m.Currency),
		Frequency:      recurrence.Frequency(m.Frequency),
		Status:         recurrence.Status(m.Status),
		StartDate:      d.date(m.StartDate),
		EndDate:        d.datePtr(m.EndDate),
		NextDueDate:    d.date(m.NextDueDate),
		AnchorDay:      m.AnchorDay,
		CounterpartyID: d.ref(m.CounterpartyID, id.ParsePartyID),
		Category:       m.Category,
		CostCenter:     m.CostCenter,
		Tags:           d.tags(m.Tags),
		Occurrences:    m.Occurrences,
		LastRunOn:      d.datePtr(m.LastRunOn),
		Metadata:       d.meta(m.Metadata),
	}
	if d.err != nil {
		return nil, fmt.Errorf("recurrence %s: %w", m.ID, d.err)
	}
	return r, nil
}

// ==================== Party models ====================

type partyModel struct {
	grove.BaseModel `grove:"table:cashledger_parties"`

	ID        string `grove:"id,pk"`
	StoreID   string `grove:"store_id"`
	Kind      string `grove:"kind"`
	Name      string `grove:"name"`
	Document  string `grove:"document"`
	Email     string `grove:"email"`
	Phone     string `grove:"phone"`
	Notes     string `grove:"notes"`
	Archived  bool   `grove:"archived"`
	Metadata  string `grove:"metadata"`
	CreatedBy string `grove:"created_by"`
	CreatedAt string `grove:"created_at"`
	UpdatedAt string `grove:"updated_at"`
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
		Metadata:  encodeMeta(p.Metadata),
		CreatedBy: p.CreatedBy,
		CreatedAt: formatTime(p.CreatedAt),
		UpdatedAt: formatTime(p.UpdatedAt),
	}
}

func fromPartyModel(m *partyModel) (*party.Party, error) {
	var d rowDecoder
	p := &party.Party{
		Entity: types.Entity{
			CreatedBy: m.CreatedBy,
			CreatedAt: d.time(m.CreatedAt),
			UpdatedAt: d.time(m.UpdatedAt),
		},
		ID:       d.id(m.ID, id.ParsePartyID),
		StoreID:  m.StoreID,
		Kind:     party.Kind(m.Kind),
		Name:     m.Name,
		Document: m.Document,
		Email:    m.Email,
		Phone:    m.Phone,
		Notes:    m.Notes,
		Archived: m.Archived,
		Metadata: d.meta(m.Metadata),
	}
	if d.err != nil {
		return nil, fmt.Errorf("party %s: %w", m.ID, d.err)
	}
	return p, nil
}
