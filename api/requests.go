package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/party"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

// Amounts travel as decimal strings in major units ("100.50") next to an
// ISO currency code.

type createTransactionRequest struct {
	Kind           transaction.Kind         `json:"kind"`
	Description    string                   `json:"description"`
	Amount         string                   `json:"amount"`
	Currency       string                   `json:"currency"`
	DueDate        types.Date               `json:"due_date"`
	CounterpartyID id.PartyID               `json:"counterparty_id"`
	Category       string                   `json:"category"`
	CostCenter     string                   `json:"cost_center"`
	Tags           []string                 `json:"tags"`
	Workflow       transaction.WorkflowFlag `json:"workflow"`
	Metadata       map[string]string        `json:"metadata"`
}

type cancelTransactionRequest struct {
	Reason string `json:"reason"`
}

type workflowRequest struct {
	Workflow transaction.WorkflowFlag `json:"workflow"`
}

type applyPaymentRequest struct {
	Amount   string           `json:"amount"`
	Currency string           `json:"currency"`
	Method   payment.Method   `json:"method"`
	PaidOn   types.Date       `json:"paid_on"`
	Note     string           `json:"note"`
	Kind     transaction.Kind `json:"kind"`
}

type reversePaymentRequest struct {
	ReversedOn types.Date `json:"reversed_on"`
	Note       string     `json:"note"`
}

type createRecurrenceRequest struct {
	Kind           transaction.Kind     `json:"kind"`
	Description    string               `json:"description"`
	Amount         string               `json:"amount"`
	Currency       string               `json:"currency"`
	Frequency      recurrence.Frequency `json:"frequency"`
	StartDate      types.Date           `json:"start_date"`
	EndDate        types.Date           `json:"end_date"`
	AnchorDay      int                  `json:"anchor_day"`
	CounterpartyID id.PartyID           `json:"counterparty_id"`
	Category       string               `json:"category"`
	CostCenter     string               `json:"cost_center"`
	Tags           []string             `json:"tags"`
	Metadata       map[string]string    `json:"metadata"`
}

type advanceRequest struct {
	AsOf types.Date `json:"as_of"`
}

type createPartyRequest struct {
	Kind     party.Kind        `json:"kind"`
	Name     string            `json:"name"`
	Document string            `json:"document"`
	Email    string            `json:"email"`
	Phone    string            `json:"phone"`
	Notes    string            `json:"notes"`
	Metadata map[string]string `json:"metadata"`
}

type updatePartyRequest struct {
	Kind     *party.Kind `json:"kind"`
	Name     *string     `json:"name"`
	Document *string     `json:"document"`
	Email    *string     `json:"email"`
	Phone    *string     `json:"phone"`
	Notes    *string     `json:"notes"`
}

// ──────────────────────────────────────────────────
// Decoding helpers
// ──────────────────────────────────────────────────

const maxBodyBytes = 1 << 20

// readBody reads at most maxBodyBytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, cashledger.ValidationError{Field: "body", Message: err.Error()}
	}
	return body, nil
}

// decodeBody unmarshals body into dst, rejecting unknown fields. An empty
// body leaves dst untouched when optional is set.
func decodeBody(body []byte, dst any, optional bool) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		if optional {
			return nil
		}
		return cashledger.ValidationError{Field: "body", Message: "is required"}
	}
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return cashledger.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	return decodeBody(body, dst, optional)
}

// parseAmount converts a decimal string into Money. Sign is left for the
// ledger to judge.
func parseAmount(amount, currency string) (types.Money, error) {
	if strings.TrimSpace(amount) == "" {
		return types.Money{}, cashledger.ValidationError{Field: "amount", Message: "is required"}
	}
	if strings.TrimSpace(currency) == "" {
		return types.Money{}, cashledger.ValidationError{Field: "currency", Message: "is required"}
	}
	if _, ok := types.LookupCurrency(currency); !ok {
		return types.Money{}, fmt.Errorf("%w: %q", cashledger.ErrInvalidCurrency, currency)
	}
	m, err := types.ParseMoney(amount, currency)
	if err != nil {
		return types.Money{}, cashledger.ValidationError{Field: "amount", Message: err.Error()}
	}
	return m, nil
}

func pathID(r *http.Request, parse func(string) (id.ID, error)) (id.ID, error) {
	v, err := parse(mux.Vars(r)["id"])
	if err != nil {
		return id.Nil, cashledger.ValidationError{Field: "id", Message: err.Error()}
	}
	return v, nil
}

// ──────────────────────────────────────────────────
// Query helpers
// ──────────────────────────────────────────────────

type query struct {
	r   *http.Request
	err error
}

func (q *query) str(key string) string {
	return strings.TrimSpace(q.r.URL.Query().Get(key))
}

func (q *query) int(key string) int {
	raw := q.str(key)
	if raw == "" || q.err != nil {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		q.err = cashledger.ValidationError{Field: key, Message: "must be a non-negative integer"}
		return 0
	}
	return n
}

func (q *query) bool(key string) bool {
	raw := q.str(key)
	if raw == "" || q.err != nil {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.err = cashledger.ValidationError{Field: key, Message: "must be a boolean"}
	}
	return b
}

func (q *query) date(key string) types.Date {
	raw := q.str(key)
	if raw == "" || q.err != nil {
		return types.Date{}
	}
	d, err := types.ParseDate(raw)
	if err != nil {
		q.err = cashledger.ValidationError{Field: key, Message: err.Error()}
	}
	return d
}

func (q *query) id(key string, parse func(string) (id.ID, error)) id.ID {
	raw := q.str(key)
	if raw == "" || q.err != nil {
		return id.Nil
	}
	v, err := parse(raw)
	if err != nil {
		q.err = cashledger.ValidationError{Field: key, Message: err.Error()}
	}
	return v
}
