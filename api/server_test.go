package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/api"
	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/store/memory"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

type client struct {
	t       *testing.T
	handler http.Handler
	store   string
}

func newClient(t *testing.T, today string, opts ...api.Option) *client {
	t.Helper()
	l := cashledger.New(memory.New(),
		cashledger.WithClock(cashledger.NewFixedClock(types.MustParseDate(today))),
		cashledger.WithScheduler(0, 0, 0),
	)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop() })
	return &client{t: t, handler: api.New(l, opts...).Handler(), store: "store-a"}
}

func (c *client) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if c.store != "" {
		req.Header.Set(api.HeaderStoreID, c.store)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *client) createReceivable(amount string) transaction.Transaction {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/v1/transactions", map[string]any{
		"kind":     "receivable",
		"amount":   amount,
		"currency": "BRL",
		"due_date": "2026-03-10",
	})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[transaction.Transaction](c.t, rec)
}

func TestTransactionLifecycle(t *testing.T) {
	c := newClient(t, "2026-03-01")
	txn := c.createReceivable("100.00")
	assert.Equal(t, int64(10000), txn.Amount.Amount)
	assert.Equal(t, transaction.StatusPending, txn.Status)

	path := "/api/v1/transactions/" + txn.ID.String() + "/payments"
	rec := c.do(http.MethodPost, path, map[string]any{"amount": "40.00", "method": "pix"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[cashledger.PaymentResult](t, rec)
	assert.Equal(t, int64(4000), res.Transaction.AmountPaid.Amount)
	assert.Equal(t, int64(6000), res.Transaction.Outstanding().Amount)

	rec = c.do(http.MethodPost, path, map[string]any{"amount": "70.00", "method": "pix"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "overpayment_rejected", decode[errorResponse](t, rec).Code)

	rec = c.do(http.MethodPost, path, map[string]any{"amount": "60.00", "currency": "BRL", "method": "cash"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res = decode[cashledger.PaymentResult](t, rec)
	assert.Equal(t, transaction.StatusPaid, res.Transaction.Status)

	rec = c.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]json.RawMessage](t, rec), 2)

	rec = c.do(http.MethodGet, "/api/v1/transactions?status=paid", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]transaction.Transaction](t, rec), 1)
}

func TestPaymentIdempotency(t *testing.T) {
	c := newClient(t, "2026-03-01")
	txn := c.createReceivable("100.00")
	path := "/api/v1/transactions/" + txn.ID.String() + "/payments"
	body := map[string]any{"amount": "25.00", "method": "pix"}

	first := c.do(http.MethodPost, path, body, api.HeaderIdempotencyKey, "k1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	replay := c.do(http.MethodPost, path, body, api.HeaderIdempotencyKey, "k1")
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get(api.HeaderReplayed))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	mismatch := c.do(http.MethodPost, path, map[string]any{"amount": "30.00", "method": "pix"}, api.HeaderIdempotencyKey, "k1")
	assert.Equal(t, http.StatusUnprocessableEntity, mismatch.Code)

	rec := c.do(http.MethodGet, "/api/v1/transactions/"+txn.ID.String(), nil)
	assert.Equal(t, int64(2500), decode[transaction.Transaction](t, rec).AmountPaid.Amount)

	// Keys are scoped per store.
	other := c.do(http.MethodPost, path, body, api.HeaderIdempotencyKey, "k1", api.HeaderStoreID, "store-b")
	assert.Equal(t, http.StatusForbidden, other.Code)
}

func TestFailedPaymentIsNotCached(t *testing.T) {
	c := newClient(t, "2026-03-01")
	txn := c.createReceivable("10.00")
	path := "/api/v1/transactions/" + txn.ID.String() + "/payments"

	rec := c.do(http.MethodPost, path, map[string]any{"amount": "20.00", "method": "pix"}, api.HeaderIdempotencyKey, "k")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodPost, path, map[string]any{"amount": "20.00", "method": "pix"}, api.HeaderIdempotencyKey, "k")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, rec.Header().Get(api.HeaderReplayed))
}

func TestErrorMapping(t *testing.T) {
	c := newClient(t, "2026-03-01")
	txn := c.createReceivable("10.00")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad id", http.MethodGet, "/api/v1/transactions/nope", nil, http.StatusBadRequest, "invalid_input"},
		{"unknown transaction", http.MethodGet, "/api/v1/transactions/txn_01h455vb4pex5vsknk084sn02q", nil, http.StatusNotFound, "not_found"},
		{"zero amount", http.MethodPost, "/api/v1/transactions", map[string]any{"kind": "payable", "amount": "0", "currency": "BRL", "due_date": "2026-03-01"}, http.StatusUnprocessableEntity, "invalid_amount"},
		{"unknown currency", http.MethodPost, "/api/v1/transactions", map[string]any{"kind": "payable", "amount": "1", "currency": "XYZ", "due_date": "2026-03-01"}, http.StatusUnprocessableEntity, "invalid_currency"},
		{"too many decimals", http.MethodPost, "/api/v1/transactions", map[string]any{"kind": "payable", "amount": "1.001", "currency": "BRL", "due_date": "2026-03-01"}, http.StatusBadRequest, "invalid_input"},
		{"unknown field", http.MethodPost, "/api/v1/transactions", map[string]any{"bogus": true}, http.StatusBadRequest, "invalid_input"},
		{"kind mismatch", http.MethodPost, "/api/v1/transactions/" + txn.ID.String() + "/payments", map[string]any{"amount": "1", "method": "pix", "kind": "payable"}, http.StatusUnprocessableEntity, "kind_mismatch"},
		{"bad limit", http.MethodGet, "/api/v1/transactions?limit=-1", nil, http.StatusBadRequest, "invalid_input"},
		{"bad group", http.MethodGet, "/api/v1/reports/balances?group_by=planet", nil, http.StatusBadRequest, "invalid_input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[errorResponse](t, rec).Code)
		})
	}
}

func TestStoreHeaderRequired(t *testing.T) {
	c := newClient(t, "2026-03-01")
	c.store = ""
	rec := c.do(http.MethodGet, "/api/v1/transactions", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_store", decode[errorResponse](t, rec).Code)

	rec = c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	c := newClient(t, "2026-03-01")

	rec := c.do(http.MethodGet, "/health", nil)
	generated := rec.Header().Get(api.HeaderRequestID)
	reqID, err := id.ParseWithPrefix(generated, id.PrefixRequest)
	require.NoError(t, err, generated)
	assert.False(t, reqID.IsNil())

	rec = c.do(http.MethodGet, "/health", nil, api.HeaderRequestID, "upstream-42")
	assert.Equal(t, "upstream-42", rec.Header().Get(api.HeaderRequestID))
}

func TestCrossStoreIsForbidden(t *testing.T) {
	c := newClient(t, "2026-03-01")
	txn := c.createReceivable("10.00")

	c.store = "store-b"
	rec := c.do(http.MethodGet, "/api/v1/transactions/"+txn.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "cross_store_access", decode[errorResponse](t, rec).Code)
}

func TestRecurrenceEndpoints(t *testing.T) {
	c := newClient(t, "2026-04-15")
	rec := c.do(http.MethodPost, "/api/v1/recurrences", map[string]any{
		"kind":       "payable",
		"amount":     "1500.00",
		"currency":   "BRL",
		"frequency":  "monthly",
		"start_date": "2026-01-31",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	r := decode[recurrence.Recurrence](t, rec)

	rec = c.do(http.MethodPost, "/api/v1/recurrences/"+r.ID.String()+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[cashledger.AdvanceResult](t, rec)
	assert.Len(t, res.Created, 4)
	assert.Equal(t, "2026-05-31", res.Recurrence.NextDueDate.String())

	rec = c.do(http.MethodPost, "/api/v1/recurrences/"+r.ID.String()+"/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, recurrence.StatusPaused, decode[recurrence.Recurrence](t, rec).Status)

	rec = c.do(http.MethodPost, "/api/v1/recurrences/"+r.ID.String()+"/pause", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "recurrence_not_active", decode[errorResponse](t, rec).Code)

	rec = c.do(http.MethodGet, "/api/v1/transactions?recurrence_id="+r.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]transaction.Transaction](t, rec), 4)
}

func TestSchedulerRun(t *testing.T) {
	c := newClient(t, "2026-03-15")
	rec := c.do(http.MethodPost, "/api/v1/recurrences", map[string]any{
		"kind":       "receivable",
		"amount":     "10.00",
		"currency":   "BRL",
		"frequency":  "monthly",
		"start_date": "2026-03-05",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	c.store = ""
	rec = c.do(http.MethodPost, "/scheduler/run", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[cashledger.AdvanceSummary](t, rec)
	assert.Equal(t, 1, summary.Advanced)
	assert.Equal(t, 1, summary.Materialized)
}

func TestPartyEndpoints(t *testing.T) {
	c := newClient(t, "2026-03-01")
	rec := c.do(http.MethodPost, "/api/v1/parties", map[string]any{"kind": "customer", "name": "Acme", "email": "OPS@ACME.TEST"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "ops@acme.test", p.Email)

	rec = c.do(http.MethodPatch, "/api/v1/parties/"+p.ID, map[string]any{"name": "Acme Ltda"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.do(http.MethodGet, "/api/v1/parties?q=ltda", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]json.RawMessage](t, rec), 1)

	rec = c.do(http.MethodPost, "/api/v1/parties/"+p.ID+"/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/transactions", map[string]any{
		"kind": "receivable", "amount": "5", "currency": "BRL", "due_date": "2026-03-01", "counterparty_id": p.ID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "party_archived", decode[errorResponse](t, rec).Code)
}

func TestRateLimitPerStore(t *testing.T) {
	c := newClient(t, "2026-03-01", api.WithRateLimit(1, 1))
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/transactions", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, c.do(http.MethodGet, "/api/v1/transactions", nil).Code)

	c.store = "store-b"
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/transactions", nil).Code)
}
