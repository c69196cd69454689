package api

import (
	"net/http"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/id"
)

func (s *Server) applyPayment(w http.ResponseWriter, r *http.Request) {
	txnID, err := pathID(r, id.ParseTransactionID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	var req applyPaymentRequest
	if err := decodeBody(body, &req, false); err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}

	s.idempotent(w, r, body, func() (int, any, error) {
		currency := req.Currency
		if currency == "" {
			// Default to the transaction's own currency.
			t, err := s.ledger.GetTransaction(r.Context(), storeFrom(r), txnID)
			if err != nil {
				return 0, nil, err
			}
			currency = t.Currency()
		}
		amount, err := parseAmount(req.Amount, currency)
		if err != nil {
			return 0, nil, err
		}

		res, err := s.ledger.ApplyPayment(r.Context(), cashledger.ApplyPaymentInput{
			StoreID:       storeFrom(r),
			TransactionID: txnID,
			Amount:        amount,
			Method:        req.Method,
			PaidOn:        req.PaidOn,
			Note:          req.Note,
			ExpectedKind:  req.Kind,
			Actor:         actorFrom(r),
		})
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, res, nil
	})
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	txnID, err := pathID(r, id.ParseTransactionID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	list, err := s.ledger.ListPayments(r.Context(), storeFrom(r), txnID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (s *Server) reversePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := pathID(r, id.ParsePaymentID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	var req reversePaymentRequest
	if err := decodeBody(body, &req, true); err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}

	s.idempotent(w, r, body, func() (int, any, error) {
		res, err := s.ledger.ReversePayment(r.Context(), cashledger.ReversePaymentInput{
			StoreID:    storeFrom(r),
			PaymentID:  paymentID,
			ReversedOn: req.ReversedOn,
			Note:       req.Note,
			Actor:      actorFrom(r),
		})
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, res, nil
	})
}
