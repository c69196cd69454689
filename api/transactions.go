package api

import (
	"net/http"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/transaction"
)

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount, req.Currency)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}

	t, err := s.ledger.CreateTransaction(r.Context(), cashledger.CreateTransactionInput{
		StoreID:        storeFrom(r),
		Kind:           req.Kind,
		Description:    req.Description,
		Amount:         amount,
		DueDate:        req.DueDate,
		CounterpartyID: req.CounterpartyID,
		Category:       req.Category,
		CostCenter:     req.CostCenter,
		Tags:           req.Tags,
		Workflow:       req.Workflow,
		Metadata:       req.Metadata,
		Actor:          actorFrom(r),
	})
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, t)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := &query{r: r}
	tq := cashledger.TransactionQuery{
		ListOpts: transaction.ListOpts{
			Kind:            transaction.Kind(q.str("kind")),
			Category:        q.str("category"),
			CostCenter:      q.str("cost_center"),
			CounterpartyID:  q.id("counterparty_id", id.ParsePartyID),
			RecurrenceID:    q.id("recurrence_id", id.ParseRecurrenceID),
			DueFrom:         q.date("due_from"),
			DueTo:           q.date("due_to"),
			OpenOnly:        q.bool("open"),
			IncludeCanceled: q.bool("include_canceled"),
			Limit:           q.int("limit"),
			Offset:          q.int("offset"),
		},
		Status: transaction.Status(q.str("status")),
	}
	if q.err != nil {
		s.respondWithLedgerError(w, r, q.err)
		return
	}

	list, err := s.ledger.ListTransactions(r.Context(), storeFrom(r), tq)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	txnID, err := pathID(r, id.ParseTransactionID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	t, err := s.ledger.GetTransaction(r.Context(), storeFrom(r), txnID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, t)
}

func (s *Server) cancelTransaction(w http.ResponseWriter, r *http.Request) {
	txnID, err := pathID(r, id.ParseTransactionID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	var req cancelTransactionRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}

	t, err := s.ledger.CancelTransaction(r.Context(), cashledger.CancelTransactionInput{
		StoreID:       storeFrom(r),
		TransactionID: txnID,
		Reason:        req.Reason,
		Actor:         actorFrom(r),
	})
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, t)
}

func (s *Server) setWorkflow(w http.ResponseWriter, r *http.Request) {
	txnID, err := pathID(r, id.ParseTransactionID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	var req workflowRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}

	t, err := s.ledger.SetWorkflow(r.Context(), storeFrom(r), txnID, req.Workflow)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, t)
}
